package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-blog/pkg/blog"
)

// Schema creates the table backing the store
const Schema = `
CREATE TABLE IF NOT EXISTS blog_blobs (
	key          TEXT PRIMARY KEY,
	data         BYTEA NOT NULL,
	content_type TEXT NOT NULL DEFAULT 'application/octet-stream',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Backend stores each blob as one row of the blog_blobs table
type Backend struct {
	db        DBTX
	urlPrefix string
}

// New creates a Postgres blob store over db. urlPrefix is used for retrieval
// URLs; when empty they take the form postgres://blog_blobs/<key>.
func New(db DBTX, urlPrefix string) blog.BlobStore {
	return &Backend{db: db, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

// NewWithPool creates a store from a connection pool, optionally setting
// search_path to schema on every connection, and ensures the table exists.
func NewWithPool(ctx context.Context, databaseURL, schema, urlPrefix string) (blog.BlobStore, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, nil, handlePostgresError("migrate", err)
	}

	return New(pool, urlPrefix), pool, nil
}

func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01": // undefined_table
			return fmt.Errorf("table blog_blobs does not exist - run migrations")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Upload inserts or replaces the row for objectKey
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader, params blog.UploadParams) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	contentType := params.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	query := `
		INSERT INTO blog_blobs (key, data, content_type, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE
		SET data = EXCLUDED.data, content_type = EXCLUDED.content_type, updated_at = EXCLUDED.updated_at`

	if _, err := b.db.Exec(ctx, query, objectKey, data, contentType); err != nil {
		return handlePostgresError("upload", err)
	}
	return nil
}

// Download reads the row for objectKey
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	var data []byte
	err := b.db.QueryRow(ctx, `SELECT data FROM blog_blobs WHERE key = $1`, objectKey).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blog.ErrObjectNotFound
		}
		return nil, handlePostgresError("download", err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the row for objectKey
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	tag, err := b.db.Exec(ctx, `DELETE FROM blog_blobs WHERE key = $1`, objectKey)
	if err != nil {
		return handlePostgresError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return blog.ErrObjectNotFound
	}
	return nil
}

// List returns rows whose key starts with prefix, sorted by key
func (b *Backend) List(ctx context.Context, prefix string) ([]*blog.ObjectMeta, error) {
	query := `
		SELECT key, length(data), content_type, updated_at
		FROM blog_blobs
		WHERE left(key, length($1)) = $1
		ORDER BY key`

	rows, err := b.db.Query(ctx, query, prefix)
	if err != nil {
		return nil, handlePostgresError("list", err)
	}
	defer rows.Close()

	var metas []*blog.ObjectMeta
	for rows.Next() {
		var meta blog.ObjectMeta
		if err := rows.Scan(&meta.Key, &meta.Size, &meta.ContentType, &meta.UpdatedAt); err != nil {
			return nil, handlePostgresError("list", err)
		}
		meta.URL = b.url(meta.Key)
		metas = append(metas, &meta)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list", err)
	}
	return metas, nil
}

// GetObjectMeta retrieves metadata for a row
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*blog.ObjectMeta, error) {
	meta := blog.ObjectMeta{Key: objectKey}
	err := b.db.QueryRow(ctx,
		`SELECT length(data), content_type, updated_at FROM blog_blobs WHERE key = $1`, objectKey,
	).Scan(&meta.Size, &meta.ContentType, &meta.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, blog.ErrObjectNotFound
		}
		return nil, handlePostgresError("get_object_meta", err)
	}
	meta.URL = b.url(objectKey)
	return &meta, nil
}

// GetURL returns the retrieval URL for objectKey
func (b *Backend) GetURL(ctx context.Context, objectKey string) (string, error) {
	return b.url(objectKey), nil
}

func (b *Backend) url(key string) string {
	if b.urlPrefix != "" {
		return b.urlPrefix + "/" + key
	}
	return "postgres://blog_blobs/" + key
}
