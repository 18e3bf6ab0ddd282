package storage

import (
	"context"
	"io"
	"net/url"
	"time"
)

// Gateway is the byte-level object store contract the engine consumes. File
// bytes move through presigned URLs, so the surface stays small: direct writes
// for engine-owned objects, existence checks, and URL issuance.
type Gateway interface {
	// Put stores bytes under key. Existing objects are overwritten.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// Head reports whether an object exists under key. Upload finalization
	// gates on this so a database row never claims bytes that were not written.
	Head(ctx context.Context, key string) (bool, error)
	// PresignPut issues a time-limited upload URL for the two-phase flow.
	PresignPut(ctx context.Context, key string, expiry time.Duration) (*url.URL, error)
	// PresignGet issues a time-limited download URL.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (*url.URL, error)
}
