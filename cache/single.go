package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/embedcache/observe"
)

// SingleCache memoizes the embedding of one text.
//
// Concurrent misses for the same key within one process are collapsed into a
// single remote call and a single save.
type SingleCache struct {
	store Store
	opts  options
	group flight
}

// NewSingleCache creates a cache for single texts over store.
func NewSingleCache(store Store, opts ...Option) *SingleCache {
	return &SingleCache{
		store: store,
		opts:  newOptions(store, opts),
	}
}

// GetOrCompute returns the stored embedding of text, computing and storing it
// with embedder on a miss. A failed computation stores nothing.
func (c *SingleCache) GetOrCompute(ctx context.Context, text string, embedder Embedder, opts ...CallOption) (Vector, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is nil", ErrInvalidInput)
	}
	co := newCallOptions(OpEmbedOne, opts)
	ctx = observe.WithOp(ctx, co.op)

	store, err := storeFor(c.store, co.dir)
	if err != nil {
		return nil, err
	}
	key := c.opts.keys.EncodeText(text)

	var out Vector
	err = c.opts.tel.Trace(ctx, observe.OpMeta{Op: co.op, Key: string(key), Items: 1}, func(ctx context.Context) error {
		v, shared, err := c.group.do(ctx, store.Path(key), func(ctx context.Context) (any, error) {
			return c.lookup(ctx, store, key, text, embedder)
		})
		if err != nil {
			return err
		}
		out = v.(Vector)
		if shared {
			out = out.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SingleCache) lookup(ctx context.Context, store Store, key Key, text string, embedder Embedder) (Vector, error) {
	var v Vector
	hit, err := loadIfExists(ctx, store, key, &v)
	if err != nil {
		return nil, err
	}
	c.opts.tel.Metrics().RecordLookup(ctx, hit)
	if hit {
		return v, nil
	}

	v, err = invoke(ctx, &c.opts, func(ctx context.Context) (Vector, error) {
		return embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	if err := checkVector(v, c.opts.dimension); err != nil {
		return nil, err
	}
	if err := store.Save(ctx, key, v); err != nil {
		return nil, err
	}
	return v, nil
}

// BatchCache memoizes the embeddings of an ordered list of texts as one
// entry. The key covers the whole list, so overlapping batches share nothing.
type BatchCache struct {
	store Store
	opts  options
	group flight
}

// NewBatchCache creates a cache for batches of texts over store.
func NewBatchCache(store Store, opts ...Option) *BatchCache {
	return &BatchCache{
		store: store,
		opts:  newOptions(store, opts),
	}
}

// GetOrCompute returns the stored embeddings of texts, computing and storing
// them with embedder on a miss. The result has one row per text in input
// order. An empty batch is rejected with ErrInvalidInput.
func (c *BatchCache) GetOrCompute(ctx context.Context, texts []string, embedder BatchEmbedder, opts ...CallOption) (Matrix, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidInput)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is nil", ErrInvalidInput)
	}
	co := newCallOptions(OpEmbedMany, opts)
	ctx = observe.WithOp(ctx, co.op)

	store, err := storeFor(c.store, co.dir)
	if err != nil {
		return nil, err
	}
	key := c.opts.keys.EncodeBatch(texts)

	var out Matrix
	err = c.opts.tel.Trace(ctx, observe.OpMeta{Op: co.op, Key: string(key), Items: len(texts)}, func(ctx context.Context) error {
		v, shared, err := c.group.do(ctx, store.Path(key), func(ctx context.Context) (any, error) {
			return c.lookup(ctx, store, key, texts, embedder)
		})
		if err != nil {
			return err
		}
		out = v.(Matrix)
		if shared {
			out = out.Clone()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BatchCache) lookup(ctx context.Context, store Store, key Key, texts []string, embedder BatchEmbedder) (Matrix, error) {
	var m Matrix
	hit, err := loadIfExists(ctx, store, key, &m)
	if err != nil {
		return nil, err
	}
	if hit && len(m) != len(texts) {
		return nil, fmt.Errorf("%w: %s holds %d rows for %d texts", ErrCorruptEntry, store.Path(key), len(m), len(texts))
	}
	c.opts.tel.Metrics().RecordLookup(ctx, hit)
	if hit {
		return m, nil
	}

	m, err = invoke(ctx, &c.opts, func(ctx context.Context) (Matrix, error) {
		return embedder.EmbedBatch(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	if len(m) != len(texts) {
		return nil, fmt.Errorf("%w: got %d rows for %d texts", ErrShapeMismatch, len(m), len(texts))
	}
	if err := checkMatrix(m, c.opts.dimension); err != nil {
		return nil, err
	}
	if err := store.Save(ctx, key, m); err != nil {
		return nil, err
	}
	return m, nil
}

// loadIfExists loads the entry under key into entry if one is stored. An
// entry removed between the existence check and the load counts as a miss.
func loadIfExists(ctx context.Context, store Store, key Key, entry any) (bool, error) {
	ok, err := store.Exists(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := store.Load(ctx, key, entry); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
