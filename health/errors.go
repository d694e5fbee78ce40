package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check timed out.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates a checker was not found.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrNotWritable indicates the cache directory cannot be written.
	ErrNotWritable = errors.New("health: directory is not writable")

	// ErrMissingCredentials indicates no API key is configured.
	ErrMissingCredentials = errors.New("health: credentials are not configured")
)
