// Package storagetest holds the behaviour every blog.BlobStore must share.
package storagetest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
)

// Options adjusts the suite for backend quirks
type Options struct {
	// DeleteMissingSucceeds is set for backends such as S3 that report
	// success when deleting a key that does not exist.
	DeleteMissingSucceeds bool

	// ListOmitsURL is set for backends whose List leaves ObjectMeta.URL
	// empty, such as S3 without a public base URL.
	ListOmitsURL bool
}

// Run exercises store against the BlobStore contract. Keys are namespaced
// under prefix so the suite can share a bucket or table with other data.
func Run(t *testing.T, store blog.BlobStore, prefix string, opts Options) {
	ctx := context.Background()
	key := func(k string) string { return prefix + k }

	t.Run("UploadDownload", func(t *testing.T) {
		data := []byte(`{"slug":"hello"}`)
		require.NoError(t, store.Upload(ctx, key("articles/hello.json"), bytes.NewReader(data), blog.UploadParams{MimeType: "application/json"}))

		rc, err := store.Download(ctx, key("articles/hello.json"))
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.Equal(t, data, got)

		meta, err := store.GetObjectMeta(ctx, key("articles/hello.json"))
		require.NoError(t, err)
		assert.Equal(t, key("articles/hello.json"), meta.Key)
		assert.Equal(t, int64(len(data)), meta.Size)
		assert.Equal(t, "application/json", meta.ContentType)
	})

	t.Run("UploadReplaces", func(t *testing.T) {
		require.NoError(t, store.Upload(ctx, key("drafts/x.json"), strings.NewReader("first"), blog.UploadParams{}))
		require.NoError(t, store.Upload(ctx, key("drafts/x.json"), strings.NewReader("second"), blog.UploadParams{}))

		rc, err := store.Download(ctx, key("drafts/x.json"))
		require.NoError(t, err)
		defer rc.Close()
		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("DownloadMissing", func(t *testing.T) {
		_, err := store.Download(ctx, key("articles/missing.json"))
		assert.ErrorIs(t, err, blog.ErrObjectNotFound)

		_, err = store.GetObjectMeta(ctx, key("articles/missing.json"))
		assert.ErrorIs(t, err, blog.ErrObjectNotFound)
	})

	t.Run("ListByPrefix", func(t *testing.T) {
		for _, k := range []string{"list/articles/b.json", "list/articles/a.json", "list/drafts/a.json"} {
			require.NoError(t, store.Upload(ctx, key(k), strings.NewReader("{}"), blog.UploadParams{MimeType: "application/json"}))
		}

		metas, err := store.List(ctx, key("list/articles/"))
		require.NoError(t, err)
		require.Len(t, metas, 2)
		assert.Equal(t, key("list/articles/a.json"), metas[0].Key)
		assert.Equal(t, key("list/articles/b.json"), metas[1].Key)
		if !opts.ListOmitsURL {
			assert.NotEmpty(t, metas[0].URL)
		}

		metas, err = store.List(ctx, key("list/nothing/"))
		require.NoError(t, err)
		assert.Empty(t, metas)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Upload(ctx, key("drafts/gone.json"), strings.NewReader("{}"), blog.UploadParams{}))
		require.NoError(t, store.Delete(ctx, key("drafts/gone.json")))

		_, err := store.Download(ctx, key("drafts/gone.json"))
		assert.ErrorIs(t, err, blog.ErrObjectNotFound)

		err = store.Delete(ctx, key("drafts/gone.json"))
		if opts.DeleteMissingSucceeds {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, blog.ErrObjectNotFound)
		}
	})

	t.Run("GetURL", func(t *testing.T) {
		url, err := store.GetURL(ctx, key("articles/hello.json"))
		require.NoError(t, err)
		assert.Contains(t, url, "articles/hello.json")
	})
}
