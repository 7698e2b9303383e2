package blog

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotFound indicates an article or draft does not exist
	ErrNotFound = errors.New("record not found")

	// ErrObjectNotFound indicates a blob store key does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrValidation indicates a request failed validation
	ErrValidation = errors.New("validation failed")

	// ErrVersionConflict indicates the stored record changed since the caller read it
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates a missing or invalid credential
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPublishVerification indicates a published article did not read back as written
	ErrPublishVerification = errors.New("published article failed verification")
)

// ValidationError describes invalid input. It matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// RecordError represents an error related to an article or draft operation
type RecordError struct {
	Kind string // "article" or "draft"
	Slug string
	Op   string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation %s failed for slug %q: %v", e.Kind, e.Op, e.Slug, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
