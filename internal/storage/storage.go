// Package storage provides object storage for delivered artifacts.
//
// Two providers implement Storage:
// - LocalStorage: filesystem storage, used by the CLI and in development
// - R2Storage: Cloudflare R2 (S3-compatible) storage for production
//
// Delivery uses storage in two places: the direct strategy materializes the
// artifact as an addressable object, and the link strategy parks artifacts
// too large to inline behind an expiring URL.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Storage defines the interface for object storage operations.
//
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at key. Returns ErrKeyExists if the key is taken and
	// opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for the object. A non-zero expires yields a
	// presigned URL where the provider supports it.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type. Detected from the key when empty.
	ContentType string

	// MaxSize is the maximum allowed size in bytes; 0 means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Filename, when set, is sent as the attachment filename so browsers
	// save the object instead of rendering it.
	Filename string
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	// Example: "./storage" or "~/Downloads/folio"
	BasePath string

	// BaseURL is the URL prefix for stored files. When empty, URL returns
	// file:// URLs pointing at the stored file.
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string

	// PublicURL is the public URL for the bucket, if it has one.
	// If empty, presigned URLs are used for all access.
	PublicURL string

	// Region defaults to "auto".
	Region string
}

const (
	// ProviderLocal identifies the local filesystem storage provider.
	ProviderLocal = "local"

	// ProviderR2 identifies the Cloudflare R2 storage provider.
	ProviderR2 = "r2"
)

// ArtifactKey generates the key for a directly delivered artifact.
// Format: deliveries/{deliveryID}/{filename}
func ArtifactKey(deliveryID uuid.UUID, filename string) string {
	return fmt.Sprintf("deliveries/%s/%s", deliveryID, filename)
}

// LinkKey generates the key for an artifact published behind a temporary link.
// Format: links/{deliveryID}/{filename}
func LinkKey(deliveryID uuid.UUID, filename string) string {
	return fmt.Sprintf("links/%s/%s", deliveryID, filename)
}
