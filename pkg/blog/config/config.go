package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tendant/simple-blog/pkg/blog"
	"github.com/tendant/simple-blog/pkg/blog/auth"
	fsstorage "github.com/tendant/simple-blog/pkg/blog/storage/fs"
	memorystorage "github.com/tendant/simple-blog/pkg/blog/storage/memory"
	pgstorage "github.com/tendant/simple-blog/pkg/blog/storage/postgres"
	s3storage "github.com/tendant/simple-blog/pkg/blog/storage/s3"
)

// Storage backend types
const (
	StorageMemory   = "memory"
	StorageFS       = "fs"
	StorageS3       = "s3"
	StoragePostgres = "postgres"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:        "8080",
		Environment: "development",
		Storage: StorageConfig{
			Type: StorageMemory,
		},
		SessionTTL:         12 * time.Hour,
		CORSAllowedOrigins: []string{"*"},
		MetricsEnabled:     true,
		EnableEventLogging: true,
		RequireAdminAuth:   true,
	}
}

// ServerConfig represents configuration for the blog server and CLI
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	Storage StorageConfig

	// Admin authentication
	AdminPassword     string
	AdminPasswordHash string
	SessionSecret     string
	SessionTTL        time.Duration
	RequireAdminAuth  bool // false for tools that never serve HTTP

	// Parallel record fetches during listings; 0 means unlimited
	FetchConcurrency int

	CORSAllowedOrigins []string
	MetricsEnabled     bool
	EnableEventLogging bool
}

// StorageConfig selects and configures the blob store
type StorageConfig struct {
	Type string // memory, fs, s3, postgres

	// fs
	BaseDir string

	// fs and postgres retrieval URL prefix
	URLPrefix string

	S3 s3storage.Config

	// postgres
	DatabaseURL string
	DBSchema    string
}

// IsProduction reports whether the server runs in production
func (c *ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	switch c.Environment {
	case "development", "production", "testing":
	default:
		return fmt.Errorf("environment must be 'development', 'production' or 'testing', got: %s", c.Environment)
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageFS:
		if c.Storage.BaseDir == "" {
			return errors.New("filesystem base directory is required")
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("s3 bucket is required")
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("database url is required for postgres storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.RequireAdminAuth {
		if c.AdminPassword == "" && c.AdminPasswordHash == "" {
			return errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
		}
		if c.AdminPasswordHash != "" {
			if err := auth.CheckHash(c.AdminPasswordHash); err != nil {
				return fmt.Errorf("ADMIN_PASSWORD_HASH: %w (single-quote the value in .env files)", err)
			}
		}
		if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters")
		}
		if c.SessionTTL <= 0 {
			return errors.New("session ttl must be positive")
		}
	}

	if c.FetchConcurrency < 0 {
		return errors.New("fetch concurrency cannot be negative")
	}

	return nil
}

// BuildStore creates the configured blob store. The returned close function
// releases backend resources and is never nil.
func (c *ServerConfig) BuildStore(ctx context.Context) (blog.BlobStore, func(), error) {
	noop := func() {}

	switch c.Storage.Type {
	case StorageMemory:
		return memorystorage.New(), noop, nil

	case StorageFS:
		store, err := fsstorage.New(fsstorage.Config{
			BaseDir:   c.Storage.BaseDir,
			URLPrefix: c.Storage.URLPrefix,
		})
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case StorageS3:
		store, err := s3storage.New(c.Storage.S3)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case StoragePostgres:
		store, pool, err := pgstorage.NewWithPool(ctx, c.Storage.DatabaseURL, c.Storage.DBSchema, c.Storage.URLPrefix)
		if err != nil {
			return nil, noop, err
		}
		return store, pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}

// BuildService creates a Service over store. Extra options are applied last.
func (c *ServerConfig) BuildService(store blog.BlobStore, extra ...blog.Option) (blog.Service, error) {
	options := []blog.Option{
		blog.WithBlobStore(store),
		blog.WithFetchConcurrency(c.FetchConcurrency),
	}

	if c.EnableEventLogging {
		options = append(options, blog.WithEventSink(blog.NewLoggingEventSink(slog.Default())))
	}

	options = append(options, extra...)
	return blog.New(options...)
}

// BuildSessions creates the admin session issuer. Without SESSION_SECRET a
// random secret is generated, so sessions do not survive a restart.
func (c *ServerConfig) BuildSessions() (*auth.Sessions, error) {
	secret := []byte(c.SessionSecret)
	if len(secret) == 0 {
		generated, err := auth.GenerateSecret()
		if err != nil {
			return nil, err
		}
		secret = generated
		slog.Warn("SESSION_SECRET not set, using a random secret; sessions end on restart")
	}

	return auth.New(auth.Config{
		Password:     c.AdminPassword,
		PasswordHash: c.AdminPasswordHash,
		Secret:       secret,
		TTL:          c.SessionTTL,
	})
}
