package observe

import (
	"context"
	"time"
)

// CallFunc is the signature of an operation wrapped by Telemetry.
type CallFunc func(ctx context.Context) error

// Telemetry bundles the tracer, metrics and logger injected into cache
// components, and wraps remote calls with all three.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the operation name is read from ctx (WithOp).
//   - Errors: errors from wrapped functions are recorded and returned unchanged.
//   - A nil *Telemetry behaves like Nop().
type Telemetry struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewTelemetry creates a Telemetry from its components. Nil components are
// replaced with no-op implementations.
func NewTelemetry(tracer Tracer, metrics Metrics, logger Logger) *Telemetry {
	if tracer == nil {
		tracer = NopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Telemetry{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Nop returns a Telemetry that records nothing.
func Nop() *Telemetry {
	return NewTelemetry(nil, nil, nil)
}

// TelemetryFromObserver creates a Telemetry from an Observer.
func TelemetryFromObserver(obs Observer) (*Telemetry, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewTelemetry(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Tracer returns the tracer.
func (t *Telemetry) Tracer() Tracer {
	if t == nil {
		return NopTracer()
	}
	return t.tracer
}

// Metrics returns the metrics recorder.
func (t *Telemetry) Metrics() Metrics {
	if t == nil {
		return NopMetrics()
	}
	return t.metrics
}

// Logger returns the logger.
func (t *Telemetry) Logger() Logger {
	if t == nil {
		return NopLogger()
	}
	return t.logger
}

// Trace runs fn inside a span named after meta.
func (t *Telemetry) Trace(ctx context.Context, meta OpMeta, fn CallFunc) error {
	ctx, span := t.Tracer().StartSpan(ctx, meta)
	err := fn(ctx)
	t.Tracer().EndSpan(span, err)
	return err
}

// WrapRemote wraps one remote call attempt with a client span, the remote
// call metrics and a debug log entry.
func (t *Telemetry) WrapRemote(fn CallFunc) CallFunc {
	return func(ctx context.Context) error {
		meta := OpMeta{Op: OpFrom(ctx), Remote: true}

		ctx, span := t.Tracer().StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx)

		duration := time.Since(start)
		t.Tracer().EndSpan(span, err)
		t.Metrics().RecordRemote(ctx, meta, duration, err)

		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			t.Logger().Warn(ctx, "remote call failed", fields...)
		} else {
			t.Logger().Debug(ctx, "remote call completed", fields...)
		}

		return err
	}
}

// OnRetry logs and counts one retry of a remote call. It matches the shape of
// the resilience retry hook once the failure kind is rendered as a string.
func (t *Telemetry) OnRetry(ctx context.Context, kind string, attempt int, err error, delay time.Duration) {
	t.Metrics().RecordRetry(ctx, kind)
	t.Logger().Warn(ctx, "retrying remote call",
		Field{Key: "failure_kind", Value: kind},
		Field{Key: "attempt", Value: attempt},
		Field{Key: "delay_ms", Value: delay.Milliseconds()},
		Field{Key: "error", Value: errString(err)},
	)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
