package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/embedcache/observe"
	"github.com/jonwraymond/embedcache/resilience"
)

const testDim = 4

// recordingLogger keeps every message it receives.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *recordingLogger) Info(ctx context.Context, msg string, fields ...observe.Field) {
	l.record(msg)
}

func (l *recordingLogger) Warn(ctx context.Context, msg string, fields ...observe.Field) {
	l.record(msg)
}

func (l *recordingLogger) Error(ctx context.Context, msg string, fields ...observe.Field) {
	l.record(msg)
}

func (l *recordingLogger) Debug(ctx context.Context, msg string, fields ...observe.Field) {}

func (l *recordingLogger) With(fields ...observe.Field) observe.Logger {
	return l
}

func (l *recordingLogger) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

// count returns the number of messages containing substr.
func (l *recordingLogger) count(substr string) int {
	n := 0
	for _, msg := range l.messages() {
		if strings.Contains(msg, substr) {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T) (*DiskStore, *recordingLogger) {
	t.Helper()
	logger := &recordingLogger{}
	store := NewDiskStore(DiskStoreConfig{
		Dir:       t.TempDir(),
		Dimension: testDim,
		Telemetry: observe.NewTelemetry(nil, nil, logger),
	})
	return store, logger
}

// fastInvoker retries transient failures with millisecond delays.
func fastInvoker() *resilience.Retry {
	tier := resilience.TierConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	}
	return resilience.NewRetry(resilience.RetryConfig{
		RateLimit:   tier,
		Timeout:     resilience.TierConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Unavailable: resilience.TierConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
}

// fakeVector derives a deterministic vector from text.
func fakeVector(text string) Vector {
	v := make(Vector, testDim)
	for i := range v {
		v[i] = float32(len(text)*10 + i)
	}
	return v
}

// countingEmbedder returns fakeVector and counts calls.
type countingEmbedder struct {
	calls atomic.Int64
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	e.calls.Add(1)
	return fakeVector(text), nil
}

func (e *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) (Matrix, error) {
	e.calls.Add(1)
	m := make(Matrix, len(texts))
	for i, text := range texts {
		m[i] = fakeVector(text)
	}
	return m, nil
}

// countingGenerator defines each name as "def(<name>)" and counts calls per
// name.
type countingGenerator struct {
	mu    sync.Mutex
	calls map[string]int
}

func (g *countingGenerator) Generate(ctx context.Context, name string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[name]++
	return fmt.Sprintf("def(%s)", name), nil
}

func (g *countingGenerator) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		n += c
	}
	return n
}
