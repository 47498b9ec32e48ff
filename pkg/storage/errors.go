package storage

import "errors"

var (
	// ErrNotFound indicates the referenced object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrForbidden indicates the credentials cannot read the referenced object.
	ErrForbidden = errors.New("object access denied")
	// ErrEmptyKey indicates an empty storage key was provided.
	ErrEmptyKey = errors.New("storage key must not be empty")
	// ErrInvalidKey indicates a malformed key or one containing a path traversal segment.
	ErrInvalidKey = errors.New("storage key is invalid")
	// ErrNotConfigured indicates a reference to a backend that has no configuration.
	ErrNotConfigured = errors.New("storage backend not configured")
)
