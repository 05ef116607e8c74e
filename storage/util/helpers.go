package util

import "fmt"

// DeriveTableName constructs a catalog table name from the configured
// prefix, if any.
func DeriveTableName(prefix string, table string) string {
	if prefix == "" {
		return table
	}

	return fmt.Sprintf("%s_%s", prefix, table)
}
