package runstore

import "errors"

// Run store errors.
var (
	// ErrRunNotFound is returned when a run id is unknown.
	ErrRunNotFound = errors.New("run not found")

	// ErrUnsupportedDriver is returned for drivers other than sqlite and postgres.
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	// ErrStoreClosed is returned after Close.
	ErrStoreClosed = errors.New("run store is closed")
)
