package catalog

import "errors"

// ErrNotFound indicates no record matches the requested URL.
var ErrNotFound = errors.New("file record not found")

// ErrDuplicate indicates an insert collided with an existing public URL.
var ErrDuplicate = errors.New("file record already exists")
