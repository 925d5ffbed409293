package media

import (
	"context"
	"io"
)

type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Uploader stores media on the asset host and returns its public URL. Delete removes an
// object stored under key, a missing key is not an error.
type Uploader interface {
	Upload(ctx context.Context, key string, f File) (string, error)
	Delete(ctx context.Context, key string) error
}
