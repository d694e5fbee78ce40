package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jonwraymond/embedcache/observe"
)

// LRUConfig configures the in-memory tier of an LRUStore.
type LRUConfig struct {
	// Size is the maximum number of entries held in memory.
	// Default: 1024
	Size int

	// TTL bounds how long an entry stays in memory. Zero keeps entries until
	// they are evicted by size.
	// Default: 0
	TTL time.Duration

	// Telemetry receives load events for memory hits.
	// Default: observe.Nop()
	Telemetry *observe.Telemetry
}

// LRUStore keeps recently used entries in memory in front of a backing store.
// Entries are held as encoded bytes and keyed by their backing path, so
// stores rebased with WithDir share one memory tier without collisions.
// Saves always reach the backing store.
type LRUStore struct {
	backing   Store
	dimension int
	entries   *expirable.LRU[string, []byte]
	tel       *observe.Telemetry
}

// NewLRUStore wraps backing with an in-memory tier.
func NewLRUStore(backing Store, cfg LRUConfig) *LRUStore {
	if cfg.Size <= 0 {
		cfg.Size = 1024
	}
	if cfg.TTL < 0 {
		cfg.TTL = 0
	}
	if cfg.Telemetry == nil {
		cfg.Telemetry = observe.Nop()
	}

	dimension := DefaultDimension
	if d, ok := backing.(Dimensioner); ok {
		dimension = d.Dimension()
	}

	return &LRUStore{
		backing:   backing,
		dimension: dimension,
		entries:   expirable.NewLRU[string, []byte](cfg.Size, nil, cfg.TTL),
		tel:       cfg.Telemetry,
	}
}

// Dimension returns the expected vector dimension.
func (s *LRUStore) Dimension() int {
	return s.dimension
}

// Len returns the number of entries held in memory.
func (s *LRUStore) Len() int {
	return s.entries.Len()
}

// WithDir returns a store over the backing store rebased to dir, sharing the
// memory tier. If the backing store cannot be rebased the receiver is
// returned.
func (s *LRUStore) WithDir(dir string) Store {
	r, ok := s.backing.(Rebaser)
	if !ok {
		return s
	}
	clone := *s
	clone.backing = r.WithDir(dir)
	return &clone
}

// Path returns the backing location of key.
func (s *LRUStore) Path(key Key) string {
	return s.backing.Path(key)
}

// Exists reports whether key is held in memory or by the backing store.
func (s *LRUStore) Exists(ctx context.Context, key Key) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	if _, ok := s.entries.Peek(s.Path(key)); ok {
		return true, nil
	}
	return s.backing.Exists(ctx, key)
}

// Load serves key from memory when possible and otherwise from the backing
// store, remembering the result.
func (s *LRUStore) Load(ctx context.Context, key Key, entry any) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	path := s.Path(key)

	if data, ok := s.entries.Get(path); ok {
		if err := decodeEntry(data, entry, s.dimension); err == nil {
			logLoaded(ctx, s.tel, key, path)
			return nil
		}
		s.entries.Remove(path)
	}

	if err := s.backing.Load(ctx, key, entry); err != nil {
		return err
	}
	s.remember(path, entry)
	return nil
}

// Save writes entry to the backing store and then to memory.
func (s *LRUStore) Save(ctx context.Context, key Key, entry any) error {
	if err := s.backing.Save(ctx, key, entry); err != nil {
		return err
	}
	s.remember(s.Path(key), entry)
	return nil
}

func (s *LRUStore) remember(path string, entry any) {
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	s.entries.Add(path, data)
}

var (
	_ Store       = (*LRUStore)(nil)
	_ Rebaser     = (*LRUStore)(nil)
	_ Dimensioner = (*LRUStore)(nil)
)
