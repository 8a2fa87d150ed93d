// Package storage provides object storage for published image previews.
//
// This package defines a Storage interface with implementations for:
// - MemoryStorage: In-process storage for tests and single-node demos
// - LocalStorage: File system storage for development
// - R2Storage: Cloudflare R2 (S3-compatible) storage for production
//
// Previews are written once under a unique key, served by URL while the
// workflow holds the image, and deleted when the image is replaced or the
// workflow is disposed.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Storage defines the interface for object storage operations.
//
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at the specified key with the given options.
	// Returns ErrKeyExists if the key is taken and opts.Overwrite is false.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get retrieves the data at the specified key. The caller must close
	// the returned reader. Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at the specified key.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for accessing the object at the specified key.
	// Backends that sign URLs honour expires; the others ignore it.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)
}

// =============================================================================
// Data Types
// =============================================================================

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type of the object. Detected from the key
	// extension when empty.
	ContentType string

	// MaxSize is the maximum allowed size in bytes; 0 means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Public requests a public-read ACL where the backend supports one.
	Public bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string    // Object key/path
	Size         int64     // Size in bytes
	ContentType  string    // MIME type
	LastModified time.Time // Last modification time
	ETag         string    // Entity tag (if available)
}

// =============================================================================
// Configuration Types
// =============================================================================

// Config selects and configures a storage backend.
type Config struct {
	Provider string // ProviderMemory, ProviderLocal or ProviderR2
	BaseURL  string // URL prefix for memory and local objects
	Local    LocalConfig
	R2       R2Config
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory where files are stored.
	// Example: "./storage" or "/var/lib/defectlens/files"
	BasePath string

	// BaseURL is the public URL prefix for accessing files.
	// Example: "http://localhost:8080/files"
	BaseURL string
}

// R2Config holds configuration for Cloudflare R2 storage.
type R2Config struct {
	// AccountID is your Cloudflare account ID.
	AccountID string

	// AccessKeyID is the R2 API access key ID.
	AccessKeyID string

	// SecretAccessKey is the R2 API secret key.
	SecretAccessKey string

	// BucketName is the name of the R2 bucket to use.
	BucketName string

	// PublicURL is the public URL for the bucket (if using a custom domain).
	// If empty, presigned URLs are used for all access.
	PublicURL string

	// Endpoint overrides the endpoint derived from AccountID, for other
	// S3-compatible services. Path-style addressing is used when set.
	Endpoint string

	// Region is the signing region. R2 accepts "auto".
	Region string
}

// =============================================================================
// Provider Constants
// =============================================================================

const (
	// ProviderMemory identifies the in-process storage provider.
	ProviderMemory = "memory"

	// ProviderLocal identifies the local filesystem storage provider.
	ProviderLocal = "local"

	// ProviderR2 identifies the Cloudflare R2 storage provider.
	ProviderR2 = "r2"
)

// New builds the backend named by cfg.Provider. An empty provider selects
// memory storage.
func New(cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case "", ProviderMemory:
		return NewMemoryStorage(cfg.BaseURL, logger), nil
	case ProviderLocal:
		local := cfg.Local
		if local.BaseURL == "" {
			local.BaseURL = cfg.BaseURL
		}
		return NewLocalStorage(local, logger)
	case ProviderR2:
		return NewR2Storage(cfg.R2, logger)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}

// =============================================================================
// Key Generation Helpers
// =============================================================================

// PreviewKey generates a storage key for an image preview.
// Format: previews/{imageID}/{uuid}{ext}
//
// A fresh uuid is appended so re-publishing the same image never collides
// with an object that is still being released.
//
// Example: "previews/123e4567-e89b-12d3-a456-426614174000/987fcdeb-51a2-43f1-b9c4-12345678abcd.jpg"
func PreviewKey(imageID uuid.UUID, contentType string) string {
	return fmt.Sprintf("previews/%s/%s%s", imageID, uuid.New(), ExtensionForContentType(contentType))
}
