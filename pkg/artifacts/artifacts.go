// Package artifacts stores generated images and other pipeline
// outputs. Two backends exist: a minio object store for deployments
// and a plain directory for local development.
package artifacts

import (
	"context"
	"io"
)

// Store writes and reads named artifacts. Keys are slash-separated
// paths scoped by project, e.g. "projects/42/renderings/v3.png".
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string, dst io.Writer) error
	Delete(ctx context.Context, key string) error
	Type() string
}
