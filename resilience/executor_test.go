package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedRemote answers each request with the next scripted outcome and
// succeeds once the script runs out.
type scriptedRemote struct {
	mu       sync.Mutex
	script   []error
	requests int
}

var (
	errTooManyRequests = Transient(KindRateLimit, errors.New("429 too many requests"))
	errGatewayTimeout  = Transient(KindTimeout, errors.New("504 gateway timeout"))
	errUnavailable     = Transient(KindUnavailable, errors.New("503 service unavailable"))
	errBadRequest      = errors.New("400 bad request")
)

func (s *scriptedRemote) embed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if len(s.script) == 0 {
		return nil
	}
	err := s.script[0]
	s.script = s.script[1:]
	return err
}

func repeat(err error, n int) []error {
	out := make([]error, n)
	for i := range out {
		out[i] = err
	}
	return out
}

func TestNewExecutor_NoPatterns(t *testing.T) {
	remote := &scriptedRemote{script: []error{errUnavailable}}

	err := NewExecutor().Execute(context.Background(), remote.embed)

	if err != errUnavailable {
		t.Errorf("Execute() error = %v, want %v", err, errUnavailable)
	}
	if remote.requests != 1 {
		t.Errorf("requests = %d, want 1", remote.requests)
	}
}

func TestExecutor_RemoteFailures(t *testing.T) {
	tests := []struct {
		name     string
		script   []error
		want     error
		requests int
	}{
		{"first request succeeds", nil, nil, 1},
		{"mixed transient failures", []error{errTooManyRequests, errUnavailable, errGatewayTimeout}, nil, 4},
		{"bad request is final", []error{errBadRequest}, errBadRequest, 1},
		{"permanent 503", []error{Permanent(errUnavailable)}, Permanent(errUnavailable), 1},
		{"unavailable budget exhausted", repeat(errUnavailable, 10), errUnavailable, 6},
		{"rate limits never exhaust", repeat(errTooManyRequests, 20), nil, 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecutor(
				WithRetry(NewRetry(fastRetryConfig())),
				WithTimeout(time.Second),
			)
			remote := &scriptedRemote{script: tt.script}

			err := e.Execute(context.Background(), remote.embed)

			if tt.want == nil && err != nil {
				t.Errorf("Execute() error = %v", err)
			}
			if tt.want != nil && (err == nil || err.Error() != tt.want.Error()) {
				t.Errorf("Execute() error = %v, want %v", err, tt.want)
			}
			if remote.requests != tt.requests {
				t.Errorf("requests = %d, want %d", remote.requests, tt.requests)
			}
		})
	}
}

func TestExecutor_HungAttemptRetriedAsTimeout(t *testing.T) {
	cfg := fastRetryConfig()
	var kinds []FailureKind
	cfg.OnRetry = func(ctx context.Context, kind FailureKind, attempt int, err error, delay time.Duration) {
		kinds = append(kinds, kind)
	}
	e := NewExecutor(
		WithRetry(NewRetry(cfg)),
		WithTimeout(5*time.Millisecond),
	)

	var mu sync.Mutex
	requests := 0
	err := e.Execute(context.Background(), func(ctx context.Context) error {
		mu.Lock()
		requests++
		first := requests == 1
		mu.Unlock()
		if first {
			return hungRemote(ctx)
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if len(kinds) != 1 || kinds[0] != KindTimeout {
		t.Errorf("retries = %v, want one timeout retry", kinds)
	}
}

func TestExecutor_EveryAttemptConsumesAToken(t *testing.T) {
	e := NewExecutor(
		WithRetry(NewRetry(fastRetryConfig())),
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 2})),
		WithTimeout(time.Second),
	)
	remote := &scriptedRemote{script: repeat(errUnavailable, 10)}

	// Once the burst is spent, every retry is rejected by the limiter before
	// it reaches the remote, until the caller gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := e.Execute(ctx, remote.embed)

	if err == nil {
		t.Fatal("Execute() should fail once the caller's deadline passes")
	}
	if remote.requests != 2 {
		t.Errorf("requests = %d, want 2", remote.requests)
	}
}

func TestExecutor_RateLimitRejectionIsRetried(t *testing.T) {
	cfg := fastRetryConfig()
	var kinds []FailureKind
	cfg.OnRetry = func(ctx context.Context, kind FailureKind, attempt int, err error, delay time.Duration) {
		kinds = append(kinds, kind)
	}
	e := NewExecutor(
		WithRetry(NewRetry(cfg)),
		WithRateLimiter(NewRateLimiter(RateLimiterConfig{Rate: 20, Burst: 1})),
	)
	remote := &scriptedRemote{}

	for i := range 2 {
		if err := e.Execute(context.Background(), remote.embed); err != nil {
			t.Fatalf("Execute() #%d error = %v", i, err)
		}
	}

	if remote.requests != 2 {
		t.Errorf("requests = %d, want 2", remote.requests)
	}
	if len(kinds) == 0 || kinds[0] != KindRateLimit {
		t.Errorf("retries = %v, want rate limit retries", kinds)
	}
}

func TestExecutor_CallerCancelStopsRetries(t *testing.T) {
	e := NewExecutor(WithRetry(NewRetry(fastRetryConfig())))
	ctx, cancel := context.WithCancel(context.Background())

	requests := 0
	err := e.Execute(ctx, func(ctx context.Context) error {
		requests++
		if requests == 2 {
			cancel()
		}
		return errTooManyRequests
	})

	if err == nil {
		t.Fatal("Execute() should fail after cancellation")
	}
	if requests != 2 {
		t.Errorf("requests = %d, want 2", requests)
	}
}

func TestExecutor_WithTimeoutConfig(t *testing.T) {
	timeout := NewTimeout(TimeoutConfig{Timeout: 5 * time.Millisecond})
	e := NewExecutor(WithTimeoutConfig(timeout))

	if e.timeout != timeout {
		t.Error("WithTimeoutConfig() did not install the given Timeout")
	}
	if err := e.Execute(context.Background(), hungRemote); err != ErrTimeout {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
}

func TestExecutor_NilOperation(t *testing.T) {
	if err := NewExecutor().Execute(context.Background(), nil); err != ErrNilOperation {
		t.Errorf("Execute(nil) error = %v, want ErrNilOperation", err)
	}
}
