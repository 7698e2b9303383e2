package blog

import (
	"context"
	"io"
	"time"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload writes content at objectKey, replacing any existing object
	Upload(ctx context.Context, objectKey string, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// List returns metadata for every object whose key starts with prefix, sorted by key.
	// URL may be empty in listed metadata.
	List(ctx context.Context, prefix string) ([]*ObjectMeta, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// GetURL returns the retrieval URL for an object
	GetURL(ctx context.Context, objectKey string) (string, error)
}

// EventSink receives lifecycle notifications after a successful write
type EventSink interface {
	ArticlePublished(ctx context.Context, article *Article) error
	ArticleUpdated(ctx context.Context, oldSlug string, article *Article) error
	ArticleDeleted(ctx context.Context, slug string) error
	DraftSaved(ctx context.Context, draft *Draft) error
	DraftDeleted(ctx context.Context, slug string) error
	DraftPublished(ctx context.Context, article *Article) error
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	URL         string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	MimeType string
}
