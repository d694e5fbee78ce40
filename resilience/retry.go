package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Invoker runs a remote operation under some resilience policy.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: implementations must stop waiting once ctx is done.
// - Errors: the operation's final error is returned unchanged.
type Invoker interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// TierConfig configures retries for one failure kind.
type TierConfig struct {
	// MaxAttempts is the number of failures of this kind tolerated before the
	// error is surfaced. Zero means unlimited.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 1s
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 60s
	MaxDelay time.Duration

	// Multiplier is the exponential growth factor.
	// Default: 2.0
	Multiplier float64

	// Jitter is the randomization factor applied to each delay, in [0, 1].
	// A delay d becomes a random value in [d*(1-Jitter), d*(1+Jitter)].
	// Default: 0 (no jitter)
	Jitter float64
}

// RetryConfig configures tiered retry behavior.
type RetryConfig struct {
	// RateLimit applies to KindRateLimit failures.
	RateLimit TierConfig

	// Timeout applies to KindTimeout failures.
	Timeout TierConfig

	// Unavailable applies to KindUnavailable failures.
	Unavailable TierConfig

	// Classify maps an error to its failure kind.
	// Default: KindOf
	Classify func(err error) FailureKind

	// OnRetry is called before each retry wait with the context of the call.
	OnRetry func(ctx context.Context, kind FailureKind, attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the tiers used against rate-limited remote APIs:
// unlimited rate-limit retries, 10 timeout attempts and 6 unavailable attempts,
// all with exponential backoff and 25% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		RateLimit: TierConfig{
			MaxAttempts:  0,
			InitialDelay: time.Second,
			MaxDelay:     60 * time.Second,
			Multiplier:   2.0,
			Jitter:       0.25,
		},
		Timeout: TierConfig{
			MaxAttempts:  10,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       0.25,
		},
		Unavailable: TierConfig{
			MaxAttempts:  6,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       0.25,
		},
	}
}

// Retry implements tiered retry with exponential backoff.
type Retry struct {
	config RetryConfig

	// defaultClassify is set when Classify was left to KindOf. Only then is
	// an unlabeled attempt deadline treated as a timeout.
	defaultClassify bool
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	config.RateLimit = applyTierDefaults(config.RateLimit)
	config.Timeout = applyTierDefaults(config.Timeout)
	config.Unavailable = applyTierDefaults(config.Unavailable)
	defaultClassify := config.Classify == nil
	if defaultClassify {
		config.Classify = KindOf
	}

	return &Retry{config: config, defaultClassify: defaultClassify}
}

func applyTierDefaults(t TierConfig) TierConfig {
	if t.MaxAttempts < 0 {
		t.MaxAttempts = 0
	}
	if t.InitialDelay <= 0 {
		t.InitialDelay = time.Second
	}
	if t.MaxDelay <= 0 {
		t.MaxDelay = 60 * time.Second
	}
	if t.MaxDelay < t.InitialDelay {
		t.MaxDelay = t.InitialDelay
	}
	if t.Multiplier < 1 {
		t.Multiplier = 2.0
	}
	if t.Jitter < 0 {
		t.Jitter = 0
	}
	if t.Jitter > 1 {
		t.Jitter = 1
	}
	return t
}

// Execute runs the operation, retrying transient failures according to the
// tier of their kind. Counters are kept per kind for the duration of the call,
// so a call that alternates between timeouts and rate limits exhausts each
// budget independently.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	if op == nil {
		return ErrNilOperation
	}

	var (
		attempts  [KindUnavailable + 1]int
		schedules [KindUnavailable + 1]*backoff.ExponentialBackOff
	)

	for {
		err := op(ctx)
		if err == nil {
			return nil
		}

		// Parent cancellation is final regardless of what the attempt returned.
		if ctx.Err() != nil {
			return err
		}

		kind := r.classify(err)
		if kind == KindNone {
			return err
		}

		attempts[kind]++
		tier := r.tier(kind)
		if tier.MaxAttempts > 0 && attempts[kind] >= tier.MaxAttempts {
			return err
		}

		if schedules[kind] == nil {
			schedules[kind] = newSchedule(tier)
		}
		delay := schedules[kind].NextBackOff()
		if delay == backoff.Stop {
			return err
		}

		if r.config.OnRetry != nil {
			r.config.OnRetry(ctx, kind, attempts[kind], err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (r *Retry) classify(err error) FailureKind {
	kind := r.config.Classify(err)
	if kind != KindNone || !r.defaultClassify {
		return kind
	}

	// An attempt that hit its own deadline while the caller is still waiting
	// is a timeout, even if the transport did not label it. A Permanent mark
	// still wins.
	var perm *PermanentError
	if errors.As(err, &perm) {
		return KindNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindNone
}

func (r *Retry) tier(kind FailureKind) TierConfig {
	switch kind {
	case KindRateLimit:
		return r.config.RateLimit
	case KindTimeout:
		return r.config.Timeout
	default:
		return r.config.Unavailable
	}
}

func newSchedule(t TierConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.InitialDelay
	b.MaxInterval = t.MaxDelay
	b.Multiplier = t.Multiplier
	b.RandomizationFactor = t.Jitter
	// Attempt budgets bound the retries; elapsed time does not.
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

var _ Invoker = (*Retry)(nil)
