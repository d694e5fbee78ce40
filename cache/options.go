package cache

import (
	"context"
	"time"

	"github.com/jonwraymond/embedcache/observe"
	"github.com/jonwraymond/embedcache/resilience"
)

// DefaultMapName names the definition map used by FillCache.
const DefaultMapName = "definitions"

// Default operation names, used in log events and spans.
const (
	OpEmbedOne  = "embed_one"
	OpEmbedMany = "embed_many"
	OpFill      = "fill"
	OpNamed     = "get_named"
)

type options struct {
	keys      KeyEncoder
	invoker   resilience.Invoker
	tel       *observe.Telemetry
	dimension int
	pool      *resilience.Pool
	mapName   string
}

// Option configures a cache.
type Option func(*options)

// WithKeyEncoder sets the key encoder.
// Default: NewKeyEncoder()
func WithKeyEncoder(k KeyEncoder) Option {
	return func(o *options) {
		o.keys = k
	}
}

// WithInvoker sets the policy remote calls run under, typically a
// *resilience.Retry or *resilience.Executor.
// Default: DefaultInvoker(telemetry)
func WithInvoker(inv resilience.Invoker) Option {
	return func(o *options) {
		o.invoker = inv
	}
}

// WithTelemetry sets the telemetry for spans, lookups and remote calls.
// Default: observe.Nop()
func WithTelemetry(t *observe.Telemetry) Option {
	return func(o *options) {
		o.tel = t
	}
}

// WithDimension sets the expected vector dimension of computed results.
// Default: the store's dimension, or DefaultDimension
func WithDimension(dim int) Option {
	return func(o *options) {
		o.dimension = dim
	}
}

// WithPool sets the worker pool used by FillCache.
func WithPool(p *resilience.Pool) Option {
	return func(o *options) {
		o.pool = p
	}
}

// WithWorkers sets the width of the worker pool used by FillCache.
// Default: 15
func WithWorkers(n int) Option {
	return func(o *options) {
		o.pool = resilience.NewPool(resilience.PoolConfig{Workers: n})
	}
}

// WithMapName sets the name of the definition map used by FillCache.
// Default: "definitions"
func WithMapName(name string) Option {
	return func(o *options) {
		o.mapName = name
	}
}

func newOptions(store Store, opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.keys == nil {
		o.keys = NewKeyEncoder()
	}
	if o.tel == nil {
		o.tel = observe.Nop()
	}
	if o.invoker == nil {
		o.invoker = DefaultInvoker(o.tel)
	}
	if o.dimension <= 0 {
		o.dimension = DefaultDimension
		if d, ok := store.(Dimensioner); ok {
			o.dimension = d.Dimension()
		}
	}
	if o.pool == nil {
		o.pool = resilience.NewPool(resilience.PoolConfig{})
	}
	if o.mapName == "" {
		o.mapName = DefaultMapName
	}
	return o
}

// RetryObserver returns a retry hook that logs and counts retries through
// tel.
func RetryObserver(tel *observe.Telemetry) func(ctx context.Context, kind resilience.FailureKind, attempt int, err error, delay time.Duration) {
	return func(ctx context.Context, kind resilience.FailureKind, attempt int, err error, delay time.Duration) {
		tel.OnRetry(ctx, kind.String(), attempt, err, delay)
	}
}

// DefaultInvoker returns a tiered retry with the default tiers, reporting
// retries through tel.
func DefaultInvoker(tel *observe.Telemetry) *resilience.Retry {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = RetryObserver(tel)
	return resilience.NewRetry(cfg)
}

type callOptions struct {
	dir string
	op  string
}

// CallOption configures a single cache call.
type CallOption func(*callOptions)

// WithDir serves the call from dir instead of the store's base directory.
// The store must implement Rebaser.
func WithDir(dir string) CallOption {
	return func(o *callOptions) {
		o.dir = dir
	}
}

// WithOp names the operation in log events and spans. Variants of one remote
// operation may use different names and still share entries, since the name
// is never part of the key.
func WithOp(op string) CallOption {
	return func(o *callOptions) {
		o.op = op
	}
}

func newCallOptions(defaultOp string, opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.op == "" {
		o.op = defaultOp
	}
	return o
}
