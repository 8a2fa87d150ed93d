package storage

import (
	"errors"
	"fmt"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrNotFound is returned when a requested object doesn't exist.
	ErrNotFound = errors.New("object not found")

	// ErrKeyExists is returned when a Put without Overwrite targets an
	// existing key.
	ErrKeyExists = errors.New("object already exists at this key")

	// ErrInvalidKey is returned for empty keys and path traversal attempts.
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrTooLarge is returned when an object exceeds PutOptions.MaxSize.
	ErrTooLarge = errors.New("object exceeds maximum size")

	// ErrAccessDenied is returned when the backend rejects the credentials
	// or ACL for an object.
	ErrAccessDenied = errors.New("access denied")
)

// =============================================================================
// Structured Error Type
// =============================================================================

// StorageError records the operation and key of a failed storage call.
type StorageError struct {
	Op  string // Put, Get, Delete, URL or Exists
	Key string // Storage key involved, may be empty
	Err error  // Underlying error, often a sentinel
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

func opError(op, key string, err error) *StorageError {
	return &StorageError{Op: op, Key: key, Err: err}
}

// =============================================================================
// Helper Functions
// =============================================================================

// IsNotFound reports whether err indicates a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsKeyExists reports whether err indicates a key collision.
func IsKeyExists(err error) bool {
	return errors.Is(err, ErrKeyExists)
}

// IsInvalidKey reports whether err indicates a rejected key.
func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}

// IsTooLarge reports whether err indicates an oversized object.
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrTooLarge)
}
