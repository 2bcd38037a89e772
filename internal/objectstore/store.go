// Package objectstore provides the Object Store Adapter: artifact storage
// under caller-chosen keys over S3-compatible backends, including presigned
// download URLs for the artifacts the orchestrator attaches to responses.
package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// Common errors returned by Store implementations.
var (
	ErrNotFound      = errors.New("object not found")
	ErrAccessDenied  = errors.New("access denied")
	ErrBucketMissing = errors.New("bucket does not exist")
)

// ObjectAttrs describes a stored object.
type ObjectAttrs struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	ContentType  string
}

// PutOptions configures a Put call.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Store is the Object Store Adapter port (§4.5).
type Store interface {
	// Get retrieves an object by key. The caller must close the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectAttrs, error)
	// Put stores an object, fully consuming r, and returns its ETag.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (etag string, err error)
	// Delete removes an object. Not an error if it doesn't exist.
	Delete(ctx context.Context, key string) error
	// Head returns metadata without downloading content.
	Head(ctx context.Context, key string) (ObjectAttrs, error)
	// Exists checks whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)
	// Presign returns a time-limited, directly downloadable URL for key.
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
	// Ping verifies connectivity to the backing bucket.
	Ping(ctx context.Context) error
}
