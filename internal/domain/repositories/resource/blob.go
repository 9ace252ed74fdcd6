package resource

import (
	"context"
	"io"
)

// PutOptions configures a blob write
type PutOptions struct {
	Overwrite   bool // false: an existing object yields a ConflictError
	ContentType string
	Size        int64 // -1 when unknown
}

// BlobEntry is one listed object
type BlobEntry struct {
	Key  string
	Size int64
}

// BlobStore is path-keyed object storage
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error
	PublicURL(key string) string
	Remove(ctx context.Context, keys ...string) error
	List(ctx context.Context, prefix string) ([]BlobEntry, error)
}
