package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/storage/storagetest"
)

func TestFSBackend(t *testing.T) {
	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	storagetest.Run(t, store, "", storagetest.Options{})
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base directory is required")
}

func TestFSBackend_URLMethods(t *testing.T) {
	tmp := t.TempDir()
	ctx := context.Background()

	t.Run("NoPrefix", func(t *testing.T) {
		store, err := New(Config{BaseDir: tmp})
		require.NoError(t, err)

		url, err := store.GetURL(ctx, "articles/a.json")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(url, "file://"), url)
		assert.True(t, strings.HasSuffix(url, "/articles/a.json"), url)
	})

	t.Run("WithPrefix", func(t *testing.T) {
		store, err := New(Config{BaseDir: tmp, URLPrefix: "https://cdn.example.com/blog/"})
		require.NoError(t, err)

		url, err := store.GetURL(ctx, "articles/a.json")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/blog/articles/a.json", url)
	})
}

func TestFSBackend_RejectsEscapingKeys(t *testing.T) {
	store, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	err = store.Upload(context.Background(), "../outside.json", strings.NewReader("{}"), blog.UploadParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes base directory")
}

func TestFSBackend_DeleteCleansEmptyDirectories(t *testing.T) {
	tmp := t.TempDir()
	store, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Upload(ctx, "drafts/only.json", strings.NewReader("{}"), blog.UploadParams{}))
	require.NoError(t, store.Delete(ctx, "drafts/only.json"))

	_, err = os.Stat(filepath.Join(tmp, "drafts"))
	assert.True(t, os.IsNotExist(err), "expected drafts directory removed, stat err=%v", err)
	_, err = os.Stat(tmp)
	assert.NoError(t, err)
}

func TestFSBackend_ListSkipsTempFiles(t *testing.T) {
	tmp := t.TempDir()
	store, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(tmp, "articles"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "articles", ".upload-123"), []byte("partial"), 0644))
	require.NoError(t, store.Upload(ctx, "articles/real.json", strings.NewReader("{}"), blog.UploadParams{}))

	metas, err := store.List(ctx, "articles/")
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, "articles/real.json", metas[0].Key)
}
