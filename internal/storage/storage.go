package storage

import (
	"context"
	"io"
)

// ObjectStore is the port the document service uses for candidate files. The
// production deployment points it at a mounted volume; tests use a temp dir.
type ObjectStore interface {
	// Put stores the object under key, overwriting any existing object.
	Put(ctx context.Context, key string, r io.Reader) error
	// Delete removes the object; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for a stored key.
	URL(key string) string
}
