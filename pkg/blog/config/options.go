package config

import (
	"fmt"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithStorageURL selects the blob store from a STORAGE_URL-style string
func WithStorageURL(raw string) Option {
	return func(c *ServerConfig) error {
		storage, err := ParseStorageURL(raw, EnvConfig{AWSRegion: "us-east-1", S3PresignDuration: 3600})
		if err != nil {
			return err
		}
		c.Storage = storage
		return nil
	}
}

// WithFilesystemStorage stores records under baseDir
func WithFilesystemStorage(baseDir, urlPrefix string) Option {
	return func(c *ServerConfig) error {
		if baseDir == "" {
			return fmt.Errorf("filesystem base directory cannot be empty")
		}
		c.Storage = StorageConfig{Type: StorageFS, BaseDir: baseDir, URLPrefix: urlPrefix}
		return nil
	}
}

// WithAdminPassword sets the plaintext admin password
func WithAdminPassword(password string) Option {
	return func(c *ServerConfig) error {
		c.AdminPassword = password
		return nil
	}
}

// WithSessionSecret sets the HMAC key for session tokens
func WithSessionSecret(secret string, ttl time.Duration) Option {
	return func(c *ServerConfig) error {
		c.SessionSecret = secret
		if ttl > 0 {
			c.SessionTTL = ttl
		}
		return nil
	}
}

// WithoutAdminAuth skips admin credential validation for offline tools
func WithoutAdminAuth() Option {
	return func(c *ServerConfig) error {
		c.RequireAdminAuth = false
		return nil
	}
}

// WithFetchConcurrency caps parallel record fetches during listings
func WithFetchConcurrency(n int) Option {
	return func(c *ServerConfig) error {
		if n < 0 {
			return fmt.Errorf("fetch concurrency cannot be negative")
		}
		c.FetchConcurrency = n
		return nil
	}
}

// WithEventLogging enables or disables the logging event sink
func WithEventLogging(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableEventLogging = enabled
		return nil
	}
}
