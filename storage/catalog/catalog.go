// Package catalog is the durable url → backend-file-handle mapping. It is
// the single source of truth for file existence: a row may reference a
// backend object that is already gone, and readers must treat that as a
// downstream fetch failure, not a catalog error.
package catalog

import (
	"context"
	"time"
)

// FileRecord is one stored file. PublicURL is the primary key and is never
// reused; WebpURL, when set, is a second unique address for the transcoded
// variant of the same content.
type FileRecord struct {
	PublicURL    string
	WebpURL      string
	FileID       string
	MessageID    int64
	CreatedAt    time.Time
	FileName     string
	WebpFileName string
	FileSize     int64
	WebpFileSize int64
	MimeType     string
}

// Store is the catalog contract. Each call is atomic at the row level; no
// multi-statement transactions are required by any pipeline.
type Store interface {
	// Insert persists a new record. Returns ErrDuplicate when PublicURL
	// already exists.
	Insert(ctx context.Context, rec FileRecord) error

	// GetByURL returns the record whose PublicURL or WebpURL equals url,
	// or ErrNotFound.
	GetByURL(ctx context.Context, url string) (*FileRecord, error)

	// List returns records ordered newest first. A non-positive limit
	// returns everything.
	List(ctx context.Context, limit, offset int) ([]FileRecord, error)

	// SearchByName returns records whose original or webp file name
	// contains the query, case-insensitively, ordered newest first.
	SearchByName(ctx context.Context, query string) ([]FileRecord, error)

	// Delete removes the row matching either URL column. Deleting an
	// absent URL is a no-op.
	Delete(ctx context.Context, url string) error
}

// storageZone is the adjusted zone catalog timestamps are recorded in,
// matching the backend chat's local time for display and sort order.
var storageZone = time.FixedZone("UTC+8", 8*60*60)

// Now returns the current time in the catalog storage zone.
func Now() time.Time {
	return time.Now().In(storageZone)
}
