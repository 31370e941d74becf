package cache

import "errors"

// Sentinel errors for caching operations.
var (
	// ErrNotFound is returned when a requested artifact does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned by stores used after Close.
	ErrClosed = errors.New("cache closed")
)
