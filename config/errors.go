package config

import "errors"

// Sentinel errors for configuration loading and validation.
var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("config: missing required environment variables")

	// ErrInvalidDimension indicates a non-positive vector dimension.
	ErrInvalidDimension = errors.New("config: dimension must be positive")

	// ErrInvalidWorkers indicates a non-positive worker pool width.
	ErrInvalidWorkers = errors.New("config: workers must be positive")

	// ErrInvalidTier indicates an out-of-range retry tier setting.
	ErrInvalidTier = errors.New("config: invalid retry tier")

	// ErrInvalidRate indicates a negative request rate or burst.
	ErrInvalidRate = errors.New("config: requests per second and burst must not be negative")

	// ErrInvalidLRU indicates a negative LRU size or TTL.
	ErrInvalidLRU = errors.New("config: lru size and ttl must not be negative")
)
