package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonwraymond/embedcache/observe"
)

// DirEnv names the environment variable that overrides the default cache
// directory.
const DirEnv = "EMBEDCACHE_DIR"

// DefaultDir returns the process-wide default cache directory: $EMBEDCACHE_DIR
// if set, otherwise "embedcache" under the user cache directory, otherwise
// under the temporary directory.
func DefaultDir() string {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir
	}
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "embedcache")
	}
	return filepath.Join(os.TempDir(), "embedcache")
}

// DiskStoreConfig configures a DiskStore.
type DiskStoreConfig struct {
	// Dir is the base directory holding one file per key.
	// Default: DefaultDir()
	Dir string

	// Dimension is the expected length of every stored vector.
	// Default: 1536
	Dimension int

	// Telemetry receives load and save events.
	// Default: observe.Nop()
	Telemetry *observe.Telemetry
}

// DiskStore persists each entry as <dir>/<key>.json.
//
// Saves write a temporary file in the same directory and rename it over the
// final path, so readers see either the old entry or the new one. The
// directory is created on the first save.
type DiskStore struct {
	dir       string
	dimension int
	tel       *observe.Telemetry
}

// NewDiskStore creates a new disk store.
func NewDiskStore(cfg DiskStoreConfig) *DiskStore {
	if cfg.Dir == "" {
		cfg.Dir = DefaultDir()
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = observe.Nop()
	}
	return &DiskStore{
		dir:       cfg.Dir,
		dimension: cfg.Dimension,
		tel:       cfg.Telemetry,
	}
}

// Dir returns the base directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Dimension returns the expected vector dimension.
func (s *DiskStore) Dimension() int {
	return s.dimension
}

// WithDir returns a store rooted at dir with the same dimension and
// telemetry.
func (s *DiskStore) WithDir(dir string) Store {
	clone := *s
	clone.dir = dir
	return &clone
}

// Path returns the file that holds the entry for key.
func (s *DiskStore) Path(key Key) string {
	return filepath.Join(s.dir, string(key)+".json")
}

// Exists reports whether a file is stored under key.
func (s *DiskStore) Exists(ctx context.Context, key Key) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	_, err := os.Stat(s.Path(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("cache: stat entry: %w", err)
}

// Load reads and validates the entry stored under key.
func (s *DiskStore) Load(ctx context.Context, key Key, entry any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	path := s.Path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("cache: read %s: %w", path, err)
	}
	if err := decodeEntry(data, entry, s.dimension); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	logLoaded(ctx, s.tel, key, path)
	return nil
}

// Save validates entry and atomically replaces the file stored under key.
func (s *DiskStore) Save(ctx context.Context, key Key, entry any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := checkShape(entry, s.dimension); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", ErrInvalidInput, err)
	}

	path := s.Path(key)
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}

	op := opName(ctx)
	s.tel.Logger().Info(ctx, fmt.Sprintf("%s: saved: %s", op, path),
		observe.F("path", path),
		observe.F("key", string(key)),
	)
	s.tel.Metrics().RecordSave(ctx)
	return nil
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("cache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("cache: chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("cache: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("cache: rename entry: %w", err)
	}
	return nil
}

// opName returns the operation stored in ctx, or "cache" when there is none.
func opName(ctx context.Context) string {
	if op := observe.OpFrom(ctx); op != "" {
		return op
	}
	return "cache"
}

func logLoaded(ctx context.Context, tel *observe.Telemetry, key Key, path string) {
	op := opName(ctx)
	tel.Logger().Info(ctx, fmt.Sprintf("%s: loaded: %s", op, path),
		observe.F("path", path),
		observe.F("key", string(key)),
	)
	tel.Metrics().RecordLoad(ctx)
}

var (
	_ Store       = (*DiskStore)(nil)
	_ Rebaser     = (*DiskStore)(nil)
	_ Dimensioner = (*DiskStore)(nil)
)
