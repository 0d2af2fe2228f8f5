// Package storage defines object storage backends and the gateway that
// stores uploaded images together with their derived metadata.
// Swap backends by changing the concrete type injected at startup: the
// MinIO implementation works with any S3-compatible provider, the S3
// implementation talks to AWS through the official SDK.
package storage

import (
	"context"
	"io"
)

// Backend is the interface for uploading and removing raw objects.
type Backend interface {
	// Upload streams data to the store under the given key.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key.
	Delete(ctx context.Context, key string) error
	// PublicURL constructs the browser-accessible URL for a given key.
	PublicURL(key string) string
}
