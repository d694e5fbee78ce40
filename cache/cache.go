package cache

import (
	"context"
	"errors"
	"fmt"
)

// KeyLength is the length of a cache key: a hex-encoded SHA-256 digest.
const KeyLength = 64

// Sentinel errors for cache operations.
var (
	// ErrNotFound indicates no entry is stored under a key.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrCorruptEntry indicates stored bytes that do not parse or do not have
	// the expected shape. The cache does not repair or delete such files.
	ErrCorruptEntry = errors.New("cache: corrupt entry")

	// ErrShapeMismatch indicates a computed result whose shape disagrees with
	// the request. Nothing is persisted.
	ErrShapeMismatch = errors.New("cache: result shape mismatch")

	// ErrInvalidInput indicates a request the cache cannot serve.
	ErrInvalidInput = errors.New("cache: invalid input")

	// ErrInvalidKey indicates a key that is not a lowercase hex SHA-256 digest.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrNoRebase indicates a per-call directory was requested from a store
	// that cannot change its base directory.
	ErrNoRebase = errors.New("cache: store does not support per-call directories")
)

// Key identifies a cache entry: the lowercase hex SHA-256 digest of a
// canonical request encoding.
type Key string

// String returns the key as a string.
func (k Key) String() string {
	return string(k)
}

// ValidateKey checks that a key is a 64 character lowercase hex digest, which
// also guarantees it is a safe file name.
func ValidateKey(key Key) error {
	if len(key) != KeyLength {
		return fmt.Errorf("%w: length %d", ErrInvalidKey, len(key))
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidKey, string(key))
		}
	}
	return nil
}

// Store maps cache keys to persisted entries.
//
// Entries are Vector, Matrix, DefinitionMap or any other JSON value; the
// three named shapes are validated on load and save.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Atomicity: a concurrent reader never observes a partially written entry.
// - Context: the operation stored with observe.WithOp names the caller in
//   the load and save log events.
// - Errors: Load returns ErrNotFound when absent and ErrCorruptEntry when the
//   stored bytes fail to parse or validate.
type Store interface {
	// Exists reports whether an entry is stored under key.
	Exists(ctx context.Context, key Key) (bool, error)

	// Load decodes the entry stored under key into entry, which must be a
	// pointer.
	Load(ctx context.Context, key Key, entry any) error

	// Save stores entry under key, replacing any previous entry.
	Save(ctx context.Context, key Key, entry any) error

	// Path returns the location of the entry for key.
	Path(key Key) string
}

// Rebaser is implemented by stores that can serve the same keys from another
// base directory.
type Rebaser interface {
	// WithDir returns a store rooted at dir that shares the receiver's
	// configuration.
	WithDir(dir string) Store
}

// Dimensioner is implemented by stores that validate vectors against a fixed
// dimension.
type Dimensioner interface {
	Dimension() int
}

// storeFor returns store, or a copy rooted at dir when dir is set.
func storeFor(store Store, dir string) (Store, error) {
	if dir == "" {
		return store, nil
	}
	r, ok := store.(Rebaser)
	if !ok {
		return nil, ErrNoRebase
	}
	return r.WithDir(dir), nil
}
