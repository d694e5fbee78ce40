package resilience

import (
	"context"
	"time"
)

// TimeoutConfig configures the per-attempt timeout.
type TimeoutConfig struct {
	// Timeout is the maximum duration of a single remote attempt.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout bounds each attempt of a remote call. It is applied inside Retry, so
// an expired attempt surfaces as ErrTimeout and is retried under the timeout
// tier.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Timeout{config: config}
}

// Execute runs the operation with a timeout. The operation keeps running in
// the background if it ignores its context; its result is then discarded.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	if op == nil {
		return ErrNilOperation
	}

	attemptCtx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(attemptCtx)
	}()

	select {
	case err := <-done:
		// An operation that honors attemptCtx may return before the select
		// observes the expiry.
		if err != nil && ctx.Err() == nil && attemptCtx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return err
	case <-attemptCtx.Done():
		// The caller's own cancellation is not an attempt timeout.
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrTimeout
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

var _ Invoker = (*Timeout)(nil)
