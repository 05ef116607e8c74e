package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/indieinfra/tgfile/config"
	storageutil "github.com/indieinfra/tgfile/storage/util"
)

type placeholderStyle int

const (
	placeholderQuestion placeholderStyle = iota
	placeholderDollar
)

// createdAtLayout keeps the adjusted-zone offset in the stored value so
// lexicographic ORDER BY matches chronological order within the zone.
const createdAtLayout = time.RFC3339

const recordColumns = "url, webp_url, fileId, message_id, created_at, file_name, webp_file_name, file_size, webp_file_size, mime_type"

// SQLStore implements Store over database/sql with mysql or postgres.
type SQLStore struct {
	cfg         *config.SQLCatalog
	db          *sql.DB
	table       string
	placeholder placeholderStyle
}

func NewSQLStore(cfg *config.SQLCatalog) (*SQLStore, error) {
	store, err := newSQLStoreWithDB(cfg, nil)
	if err != nil {
		return nil, err
	}

	driverName, err := resolveSQLDriverName(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, cfg.DSN)
	if err != nil {
		return nil, err
	}

	store.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Schema creation is idempotent, so concurrent cold starts are safe
	// without any process-level initialization flag.
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func newSQLStoreWithDB(cfg *config.SQLCatalog, db *sql.DB) (*SQLStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("catalog sql config is nil")
	}

	prefix := "tgfile"
	if cfg.TablePrefix != nil {
		prefix = *cfg.TablePrefix
	}

	placeholder, err := detectPlaceholderStyle(cfg.Driver)
	if err != nil {
		return nil, err
	}

	return &SQLStore{
		cfg:         cfg,
		db:          db,
		table:       storageutil.DeriveTableName(prefix, "files"),
		placeholder: placeholder,
	}, nil
}

func detectPlaceholderStyle(driver string) (placeholderStyle, error) {
	driverName, err := resolveSQLDriverName(driver)
	if err != nil {
		return placeholderQuestion, err
	}

	if driverName == "pgx" {
		return placeholderDollar, nil
	}

	return placeholderQuestion, nil
}

func resolveSQLDriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q", driver)
	}
}

func (cs *SQLStore) initSchema(ctx context.Context) error {
	_, err := cs.db.ExecContext(ctx, cs.schemaQuery())
	return err
}

func (cs *SQLStore) schemaQuery() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
url VARCHAR(255) PRIMARY KEY,
webp_url VARCHAR(255) UNIQUE,
fileId TEXT NOT NULL,
message_id BIGINT NOT NULL,
created_at VARCHAR(35) NOT NULL,
file_name TEXT,
webp_file_name TEXT,
file_size BIGINT,
webp_file_size BIGINT,
mime_type TEXT
)`, cs.table)
}

func (cs *SQLStore) Insert(ctx context.Context, rec FileRecord) error {
	_, err := cs.db.ExecContext(ctx, cs.insertQuery(),
		rec.PublicURL,
		nullableString(rec.WebpURL),
		rec.FileID,
		rec.MessageID,
		rec.CreatedAt.Format(createdAtLayout),
		rec.FileName,
		nullableString(rec.WebpFileName),
		rec.FileSize,
		rec.WebpFileSize,
		rec.MimeType,
	)
	if err != nil {
		if isDuplicateErr(err) {
			return fmt.Errorf("insert %s: %w", rec.PublicURL, ErrDuplicate)
		}
		return err
	}

	return nil
}

func (cs *SQLStore) GetByURL(ctx context.Context, url string) (*FileRecord, error) {
	row := cs.db.QueryRowContext(ctx, cs.selectQuery(), url, url)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return rec, nil
}

func (cs *SQLStore) List(ctx context.Context, limit, offset int) ([]FileRecord, error) {
	query := cs.listQuery()
	args := []any{}
	if limit > 0 {
		query = cs.pagedListQuery()
		args = append(args, limit, offset)
	}

	rows, err := cs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (cs *SQLStore) SearchByName(ctx context.Context, query string) ([]FileRecord, error) {
	pattern := "%" + strings.ToLower(escapeLike(query)) + "%"

	rows, err := cs.db.QueryContext(ctx, cs.searchQuery(), pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (cs *SQLStore) Delete(ctx context.Context, url string) error {
	_, err := cs.db.ExecContext(ctx, cs.deleteQuery(), url, url)
	return err
}

func (cs *SQLStore) insertQuery() string {
	placeholders := make([]string, 10)
	for i := range placeholders {
		placeholders[i] = cs.placeholderFor(i + 1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		cs.table, recordColumns, strings.Join(placeholders, ", "))
}

func (cs *SQLStore) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE url = %s OR webp_url = %s",
		recordColumns, cs.table, cs.placeholderFor(1), cs.placeholderFor(2))
}

func (cs *SQLStore) listQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC", recordColumns, cs.table)
}

func (cs *SQLStore) pagedListQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC LIMIT %s OFFSET %s",
		recordColumns, cs.table, cs.placeholderFor(1), cs.placeholderFor(2))
}

func (cs *SQLStore) searchQuery() string {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE LOWER(file_name) LIKE %s ESCAPE '!' OR LOWER(webp_file_name) LIKE %s ESCAPE '!' ORDER BY created_at DESC",
		recordColumns, cs.table, cs.placeholderFor(1), cs.placeholderFor(2))
}

func (cs *SQLStore) deleteQuery() string {
	return fmt.Sprintf("DELETE FROM %s WHERE url = %s OR webp_url = %s",
		cs.table, cs.placeholderFor(1), cs.placeholderFor(2))
}

func (cs *SQLStore) placeholderFor(index int) string {
	if cs.placeholder == placeholderDollar {
		return fmt.Sprintf("$%d", index)
	}

	return "?"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*FileRecord, error) {
	var (
		rec          FileRecord
		webpURL      sql.NullString
		createdAt    string
		fileName     sql.NullString
		webpFileName sql.NullString
		fileSize     sql.NullInt64
		webpFileSize sql.NullInt64
		mimeType     sql.NullString
	)

	if err := row.Scan(&rec.PublicURL, &webpURL, &rec.FileID, &rec.MessageID,
		&createdAt, &fileName, &webpFileName, &fileSize, &webpFileSize, &mimeType); err != nil {
		return nil, err
	}

	parsed, err := time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	rec.WebpURL = webpURL.String
	rec.CreatedAt = parsed
	rec.FileName = fileName.String
	rec.WebpFileName = webpFileName.String
	rec.FileSize = fileSize.Int64
	rec.WebpFileSize = webpFileSize.Int64
	rec.MimeType = mimeType.String

	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]FileRecord, error) {
	var out []FileRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}

	return out, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}

	return s
}

// escapeLike neutralizes LIKE metacharacters in user queries with the '!'
// escape declared in searchQuery.
func escapeLike(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return r.Replace(s)
}

// isDuplicateErr recognizes primary-key and unique violations across the
// supported drivers without importing their error types here.
func isDuplicateErr(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || // mysql 1062
		strings.Contains(msg, "duplicate key value") || // postgres 23505
		strings.Contains(msg, "UNIQUE constraint failed")
}
