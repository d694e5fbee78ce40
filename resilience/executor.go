package resilience

import (
	"context"
	"time"
)

// Executor composes the resilience patterns applied to one remote call.
type Executor struct {
	retry       *Retry
	rateLimiter *RateLimiter
	timeout     *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithRetry adds tiered retry to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithRateLimiter adds client-side rate limiting to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// WithTimeout adds a per-attempt timeout to the executor.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithTimeoutConfig adds a per-attempt timeout with custom config.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// Execute runs the operation through all configured resilience patterns.
//
// The execution order is:
// 1. Retry (if configured) - outermost, owns the backoff loop
// 2. Rate Limiter (if configured) - every attempt consumes a token
// 3. Timeout (if configured) - bounds each attempt
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	if op == nil {
		return ErrNilOperation
	}

	execute := op

	// Wrap with timeout (innermost)
	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.timeout.Execute(ctx, inner)
		}
	}

	// Wrap with rate limiter
	if e.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.rateLimiter.Execute(ctx, inner)
		}
	}

	// Wrap with retry (outermost)
	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return e.retry.Execute(ctx, inner)
		}
	}

	return execute(ctx)
}

var _ Invoker = (*Executor)(nil)
