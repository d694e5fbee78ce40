package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/embedcache/observe"
	"github.com/jonwraymond/embedcache/resilience"
)

// FillCache keeps one DefinitionMap per map name and fills in the names it
// is missing. The map is stored under EncodeNamed(mapName), the namespace
// NamedCache also uses; pick map names that no other named document uses.
//
// Concurrent Fill calls on the same map are last-writer-wins: each call loads
// the map, adds its own names and saves. A name generated by a call whose
// save is overwritten is generated again later.
type FillCache struct {
	store Store
	opts  options
}

// NewFillCache creates a definition cache over store.
func NewFillCache(store Store, opts ...Option) *FillCache {
	return &FillCache{
		store: store,
		opts:  newOptions(store, opts),
	}
}

// Fill returns the definition of every name, in input order and including
// duplicates. Names missing from the map are generated once each on the
// worker pool and saved together.
//
// If any generation fails, its error is returned and the map is left
// unchanged: names generated by the same call are not persisted.
func (c *FillCache) Fill(ctx context.Context, names []string, gen Generator, opts ...CallOption) ([]string, error) {
	if len(names) == 0 {
		return []string{}, nil
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: generator is nil", ErrInvalidInput)
	}
	co := newCallOptions(OpFill, opts)
	ctx = observe.WithOp(ctx, co.op)

	store, err := storeFor(c.store, co.dir)
	if err != nil {
		return nil, err
	}
	key := c.opts.keys.EncodeNamed(c.opts.mapName)

	var out []string
	err = c.opts.tel.Trace(ctx, observe.OpMeta{Op: co.op, Key: string(key), Items: len(names)}, func(ctx context.Context) error {
		defs, err := c.fill(ctx, store, key, names, gen)
		if err != nil {
			return err
		}
		out = make([]string, len(names))
		for i, name := range names {
			out[i] = defs[name]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FillCache) fill(ctx context.Context, store Store, key Key, names []string, gen Generator) (DefinitionMap, error) {
	defs := DefinitionMap{}
	if err := store.Load(ctx, key, &defs); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		defs = DefinitionMap{}
	}

	seen := make(map[string]struct{}, len(names))
	var missing []string
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		_, hit := defs[name]
		c.opts.tel.Metrics().RecordLookup(ctx, hit)
		if !hit {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return defs, nil
	}

	generated, err := resilience.Map(ctx, c.opts.pool, missing, func(ctx context.Context, name string) (string, error) {
		return invoke(ctx, &c.opts, func(ctx context.Context) (string, error) {
			return gen.Generate(ctx, name)
		})
	})
	if err != nil {
		return nil, err
	}

	for name, def := range generated {
		defs[name] = def
	}
	if err := store.Save(ctx, key, defs); err != nil {
		return nil, err
	}

	op := opName(ctx)
	c.opts.tel.Logger().Info(ctx, fmt.Sprintf("%s: generated %d new definitions", op, len(generated)),
		observe.F("count", len(generated)),
		observe.F("path", store.Path(key)),
	)
	c.opts.tel.Metrics().RecordGenerated(ctx, len(generated))
	return defs, nil
}
