// Package auth issues and checks the single operator's session tokens.
//
// The operator logs in with the admin password (compared in constant time, or
// against a bcrypt hash) and receives a short-lived HS256 JWT. Mutating routes
// verify the token on every request.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/tendant/simple-blog/pkg/blog"
	"golang.org/x/crypto/bcrypt"
)

// Subject is the only identity a session can carry
const Subject = "admin"

const (
	defaultTTL      = 12 * time.Hour
	minSecretLength = 32
)

// Config configures session issuance
type Config struct {
	Password     string // plaintext admin password
	PasswordHash string // bcrypt hash; takes precedence over Password
	Secret       []byte // HMAC key for session tokens
	TTL          time.Duration
}

// Session is an issued session token
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Sessions checks the admin password and issues session tokens
type Sessions struct {
	tokenAuth    *jwtauth.JWTAuth
	password     string
	passwordHash string
	ttl          time.Duration
	now          func() time.Time
}

// New creates a session issuer
func New(cfg Config) (*Sessions, error) {
	if cfg.Password == "" && strings.TrimSpace(cfg.PasswordHash) == "" {
		return nil, errors.New("admin password or password hash is required")
	}
	if hash := strings.TrimSpace(cfg.PasswordHash); hash != "" {
		if err := CheckHash(hash); err != nil {
			return nil, err
		}
	}
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretLength)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	return &Sessions{
		tokenAuth:    jwtauth.New("HS256", cfg.Secret, nil),
		password:     cfg.Password,
		passwordHash: strings.TrimSpace(cfg.PasswordHash),
		ttl:          cfg.TTL,
		now:          time.Now,
	}, nil
}

// CheckPassword reports whether candidate is the admin password
func (s *Sessions) CheckPassword(candidate string) bool {
	if s.passwordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(s.password), []byte(candidate)) == 1
}

// Login checks the password and issues a session
func (s *Sessions) Login(candidate string) (*Session, error) {
	if !s.CheckPassword(candidate) {
		return nil, blog.ErrUnauthorized
	}
	return s.Issue()
}

// Issue creates a new session token for the admin
func (s *Sessions) Issue() (*Session, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl).Truncate(time.Second)

	claims := map[string]interface{}{
		"sub": Subject,
		"jti": uuid.New().String(),
	}
	jwtauth.SetIssuedAt(claims, now)
	jwtauth.SetExpiry(claims, expiresAt)

	_, token, err := s.tokenAuth.Encode(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt}, nil
}

// Verifier returns middleware that decodes a bearer token or "jwt" cookie into the request context
func (s *Sessions) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(s.tokenAuth)
}

// FromContext checks the token placed in ctx by Verifier
func FromContext(ctx context.Context) error {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", blog.ErrUnauthorized, err)
	}
	if token == nil {
		return blog.ErrUnauthorized
	}
	if sub, _ := claims["sub"].(string); sub != Subject {
		return fmt.Errorf("%w: unexpected subject", blog.ErrUnauthorized)
	}
	return nil
}

// HashPassword hashes a plaintext password for ADMIN_PASSWORD_HASH
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckHash reports whether hash is a well-formed bcrypt hash. A hash whose
// '$' segments were expanded away by a shell or dotenv loader fails here.
func CheckHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return fmt.Errorf("admin password hash is not a bcrypt hash: %w", err)
	}
	return nil
}

// GenerateSecret returns a random session secret
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, minSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}
	return secret, nil
}
