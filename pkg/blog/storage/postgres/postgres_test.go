package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-blog/pkg/blog/storage/storagetest"
)

func TestPostgresBackend_URL(t *testing.T) {
	ctx := context.Background()

	url, err := New(nil, "").GetURL(ctx, "articles/a.json")
	require.NoError(t, err)
	assert.Equal(t, "postgres://blog_blobs/articles/a.json", url)

	url, err = New(nil, "https://blog.example.com/raw/").GetURL(ctx, "articles/a.json")
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.com/raw/articles/a.json", url)
}

func TestPostgresBackend_InvalidURL(t *testing.T) {
	_, _, err := NewWithPool(context.Background(), "postgres://user@localhost:notaport/db", "", "")
	require.Error(t, err)
}

// TestPostgresBackend_Integration runs the store suite against a live database
func TestPostgresBackend_Integration(t *testing.T) {
	dbURL := os.Getenv("BLOB_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("Skipping Postgres integration test. Set BLOB_TEST_DATABASE_URL to run.")
	}

	ctx := context.Background()
	store, pool, err := NewWithPool(ctx, dbURL, "", "")
	require.NoError(t, err)
	defer pool.Close()

	prefix := fmt.Sprintf("test-%d/", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM blog_blobs WHERE left(key, length($1)) = $1`, prefix)
	})

	storagetest.Run(t, store, prefix, storagetest.Options{})
}
