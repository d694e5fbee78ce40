package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SpanPrefix prefixes every span and metric name emitted by this module.
const SpanPrefix = "embedcache"

// OpMeta describes one cache operation or remote call for telemetry purposes.
type OpMeta struct {
	Op     string // Operation name, e.g. embed_one (required)
	Remote bool   // Set for the remote call made on a cache miss
	Key    string // Cache key (optional)
	Items  int    // Number of inputs in the request (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: embedcache.<op> or embedcache.remote.<op>
func (m OpMeta) SpanName() string {
	if m.Remote {
		return SpanPrefix + ".remote." + m.Op
	}
	return SpanPrefix + "." + m.Op
}

// Validate reports whether the metadata names an operation.
func (m OpMeta) Validate() error {
	if m.Op == "" {
		return ErrMissingOp
	}
	return nil
}

// Tracer wraps OpenTelemetry tracing with per-operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a cache operation or remote call.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return NopTracer()
	}
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with the operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("embedcache.op", meta.Op),
		attribute.Bool("embedcache.remote", meta.Remote),
		attribute.Bool("embedcache.error", false), // Will be updated in EndSpan if error
	}
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("embedcache.key", meta.Key))
	}
	if meta.Items > 0 {
		attrs = append(attrs, attribute.Int("embedcache.items", meta.Items))
	}

	kind := trace.SpanKindInternal
	if meta.Remote {
		kind = trace.SpanKindClient
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(kind),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("embedcache.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// NopTracer returns a tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
