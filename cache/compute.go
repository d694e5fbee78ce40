package cache

import (
	"context"
	"sync"
)

// Embedder computes the embedding of one text.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: transient failures should be marked with resilience.Transient so
//   that they are retried; anything else is surfaced to the caller.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
}

// BatchEmbedder computes the embeddings of an ordered list of texts in one
// remote call, returning one row per text in input order.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) (Matrix, error)
}

// Generator produces the definition of one name.
type Generator interface {
	Generate(ctx context.Context, name string) (string, error)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) (Vector, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) (Vector, error) {
	return f(ctx, text)
}

// BatchEmbedderFunc adapts a function to BatchEmbedder.
type BatchEmbedderFunc func(ctx context.Context, texts []string) (Matrix, error)

// EmbedBatch calls f.
func (f BatchEmbedderFunc) EmbedBatch(ctx context.Context, texts []string) (Matrix, error) {
	return f(ctx, texts)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, name string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}

// remoteResult holds the first successful result of a remote call. An attempt
// abandoned by a timeout may still finish after the call has returned.
type remoteResult[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
}

func (r *remoteResult[T]) store(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.set {
		r.value = v
		r.set = true
	}
}

func (r *remoteResult[T]) load() T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// invoke runs fn through the configured invoker, wrapping every attempt with
// remote telemetry.
func invoke[T any](ctx context.Context, o *options, fn func(context.Context) (T, error)) (T, error) {
	var res remoteResult[T]
	err := o.invoker.Execute(ctx, o.tel.WrapRemote(func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		res.store(v)
		return nil
	}))
	if err != nil {
		var zero T
		return zero, err
	}
	return res.load(), nil
}

