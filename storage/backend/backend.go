// Package backend defines the remote storage contract: upload bytes, turn
// an opaque file handle back into a fetchable URL, and best-effort removal
// of the container holding the object.
package backend

import (
	"context"
	"errors"
	"io"
)

// UploadResult carries the two identifiers that are the sole means of
// reaching or deleting the stored bytes. Losing them orphans the remote
// object; no reconciliation exists.
type UploadResult struct {
	// FileID is the opaque handle understood only by the same backend.
	FileID string
	// MessageID identifies the container (e.g. a chat message) holding
	// the file; required to delete it. Backends without a container
	// concept report zero.
	MessageID int64
}

// Store is a remote file storage backend.
type Store interface {
	// Upload stores the payload and returns its identifiers. The declared
	// MIME type selects the upload modality where the backend exposes
	// type-specialized endpoints.
	Upload(ctx context.Context, r io.Reader, name, mime string, size int64) (*UploadResult, error)

	// Resolve exchanges a file handle for a short-lived direct download
	// URL. ErrNotResolvable means the file is irretrievable; callers must
	// respond not-found rather than retry.
	Resolve(ctx context.Context, fileID string) (string, error)

	// Remove deletes the container identified by messageID (or the object
	// identified by fileID where no container exists). ErrAlreadyGone
	// means the remote side removed it first.
	Remove(ctx context.Context, fileID string, messageID int64) error
}

var (
	// ErrUpload indicates the backend rejected the upload call outright
	// (non-2xx). Maps to a gateway error upstream.
	ErrUpload = errors.New("backend upload failed")

	// ErrNoFileID indicates a 2xx upload response without any usable
	// file handle.
	ErrNoFileID = errors.New("backend response missing file id")

	// ErrNoMessageID indicates a 2xx upload response without a message id.
	ErrNoMessageID = errors.New("backend response missing message id")

	// ErrTransport indicates the backend could not be reached at the
	// network layer. Maps to a gateway-timeout upstream.
	ErrTransport = errors.New("backend unreachable")

	// ErrNotResolvable indicates the handle cannot be exchanged for a
	// download URL.
	ErrNotResolvable = errors.New("file not resolvable")

	// ErrAlreadyGone indicates the remote container was already deleted.
	ErrAlreadyGone = errors.New("remote object already gone")
)
