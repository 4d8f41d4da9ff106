package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// PutResult reports where an uploaded object lives.
type PutResult struct {
	// URL is the publicly reachable URL of the object.
	URL string
	// FileID is the storage-assigned object id. Required by backends whose
	// delete call is keyed by id (Backblaze); empty on public-bucket backends.
	FileID string
}

// ObjectInfo describes a stored object, as returned by ListObjects.
type ObjectInfo struct {
	Name       string
	URL        string
	FileID     string
	UploadedAt time.Time
}

// ErrMissingFileID is returned when a backend needs the object id to delete
// and none was supplied.
var ErrMissingFileID = errors.New("storage: file id is required to delete this object")

// ObjectStorage hides authentication and URL construction for the remote
// blob store.
type ObjectStorage interface {
	// PutObject uploads the object and returns its public URL and id.
	PutObject(ctx context.Context, name string, body io.Reader, size int64, contentType string) (*PutResult, error)

	// DeleteObject removes an object. Deleting an object that is already
	// gone is not an error.
	DeleteObject(ctx context.Context, name, fileID string) error

	// ListObjects enumerates the bucket, for the reconciliation sweep.
	ListObjects(ctx context.Context) ([]ObjectInfo, error)

	// RequiresFileID reports whether DeleteObject needs the object id in
	// addition to the name.
	RequiresFileID() bool
}

// Config holds object storage configuration.
type Config struct {
	Type           string // backblaze, cloudflare_r2, local
	Bucket         string
	BucketID       string // Backblaze bucket id
	KeyID          string // Backblaze application key id
	ApplicationKey string // Backblaze application key
	BaseURL        string // public URL base, overrides the provider default
	Endpoint       string // R2 or custom S3 endpoint
	Region         string
	AccessKey      string
	SecretKey      string
	BasePath       string // local backend directory
	Timeout        time.Duration
}

// NewObjectStorage creates a storage backend from configuration.
func NewObjectStorage(cfg Config) (ObjectStorage, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	switch cfg.Type {
	case "backblaze":
		return NewBackblazeStorage(cfg)
	case "cloudflare_r2":
		return NewCloudflareR2Storage(cfg)
	case "local":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
