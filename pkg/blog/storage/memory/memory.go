package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-blog/pkg/blog"
)

const defaultMimeType = "application/octet-stream"

type object struct {
	data      []byte
	mimeType  string
	updatedAt time.Time
}

// Backend is an in-memory implementation of the blog.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]object
}

// New creates a new in-memory storage backend
func New() blog.BlobStore {
	return &Backend{
		objects: make(map[string]object),
	}
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*blog.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, blog.ErrObjectNotFound
	}
	return b.meta(objectKey, obj), nil
}

// Upload stores a copy of the reader's content
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, params blog.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = defaultMimeType
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = object{data: data, mimeType: mimeType, updatedAt: time.Now().UTC()}
	return nil
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, exists := b.objects[objectKey]
	if !exists {
		return nil, blog.ErrObjectNotFound
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return blog.ErrObjectNotFound
	}

	delete(b.objects, objectKey)
	return nil
}

// List returns every object under prefix, sorted by key
func (b *Backend) List(ctx context.Context, prefix string) ([]*blog.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var metas []*blog.ObjectMeta
	for key, obj := range b.objects {
		if strings.HasPrefix(key, prefix) {
			metas = append(metas, b.meta(key, obj))
		}
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Key < metas[j].Key })
	return metas, nil
}

// GetURL returns a memory:// URL; in-memory objects are not reachable over the network
func (b *Backend) GetURL(ctx context.Context, objectKey string) (string, error) {
	return "memory://" + objectKey, nil
}

func (b *Backend) meta(key string, obj object) *blog.ObjectMeta {
	return &blog.ObjectMeta{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.mimeType,
		UpdatedAt:   obj.updatedAt,
		URL:         "memory://" + key,
	}
}
