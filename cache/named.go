package cache

import (
	"context"
	"fmt"

	"github.com/jonwraymond/embedcache/observe"
)

// NamedCache memoizes a whole JSON document under a name, such as a list
// fetched once from a remote source.
//
// Named entries share one namespace: the document named like a FillCache map
// is that map's file, so a NamedCache[DefinitionMap] reads the definitions a
// FillCache has saved.
type NamedCache[T any] struct {
	store Store
	opts  options
	group flight
}

// NewNamedCache creates a cache of named documents over store.
func NewNamedCache[T any](store Store, opts ...Option) *NamedCache[T] {
	return &NamedCache[T]{
		store: store,
		opts:  newOptions(store, opts),
	}
}

// GetOrFetch returns the document stored under name, fetching and storing it
// on a miss.
func (c *NamedCache[T]) GetOrFetch(ctx context.Context, name string, fetch func(context.Context) (T, error), opts ...CallOption) (T, error) {
	var zero T
	if fetch == nil {
		return zero, fmt.Errorf("%w: fetch is nil", ErrInvalidInput)
	}
	co := newCallOptions(OpNamed, opts)
	ctx = observe.WithOp(ctx, co.op)

	store, err := storeFor(c.store, co.dir)
	if err != nil {
		return zero, err
	}
	key := c.opts.keys.EncodeNamed(name)

	var out T
	err = c.opts.tel.Trace(ctx, observe.OpMeta{Op: co.op, Key: string(key), Items: 1}, func(ctx context.Context) error {
		v, _, err := c.group.do(ctx, store.Path(key), func(ctx context.Context) (any, error) {
			var doc T
			hit, err := loadIfExists(ctx, store, key, &doc)
			if err != nil {
				return nil, err
			}
			c.opts.tel.Metrics().RecordLookup(ctx, hit)
			if hit {
				return doc, nil
			}

			doc, err = invoke(ctx, &c.opts, fetch)
			if err != nil {
				return nil, err
			}
			if err := store.Save(ctx, key, doc); err != nil {
				return nil, err
			}
			return doc, nil
		})
		if err != nil {
			return err
		}
		out, _ = v.(T)
		return nil
	})
	if err != nil {
		return zero, err
	}
	return out, nil
}
