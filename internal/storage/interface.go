package storage

import (
	"context"
	"io"
)

// ObjectStorage is the bucket the pipeline reads source files from and
// archives load-ready datasets to.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download returns the object body; the caller closes it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	Exists(ctx context.Context, key string) (bool, error)

	Delete(ctx context.Context, key string) error

	// GetURL returns the URL an object is reachable at.
	GetURL(key string) string
}
