package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingTracer() (*tracerImpl, *tracetest.SpanRecorder, trace.Tracer) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otelTracer := tp.Tracer("test")
	return &tracerImpl{tracer: otelTracer}, recorder, otelTracer
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]attribute.Value {
	attrMap := make(map[string]attribute.Value)
	for _, a := range s.Attributes() {
		attrMap[string(a.Key)] = a.Value
	}
	return attrMap
}

func TestOpMeta_SpanName(t *testing.T) {
	testCases := []struct {
		name     string
		meta     OpMeta
		expected string
	}{
		{"cache op", OpMeta{Op: "embed_one"}, "embedcache.embed_one"},
		{"remote op", OpMeta{Op: "embed_one", Remote: true}, "embedcache.remote.embed_one"},
		{"fill", OpMeta{Op: "fill"}, "embedcache.fill"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.meta.SpanName(); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestOpMeta_Validate(t *testing.T) {
	if err := (OpMeta{}).Validate(); !errors.Is(err, ErrMissingOp) {
		t.Errorf("Validate() = %v, want ErrMissingOp", err)
	}
	if err := (OpMeta{Op: "embed_one"}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

// TestTracer_SpanAttributes verifies all attributes are present on span.
func TestTracer_SpanAttributes(t *testing.T) {
	tr, recorder, _ := newRecordingTracer()
	meta := OpMeta{
		Op:    "embed_many",
		Key:   "5f2b",
		Items: 3,
	}

	_, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Name() != "embedcache.embed_many" {
		t.Errorf("expected span name 'embedcache.embed_many', got %q", s.Name())
	}
	if s.SpanKind() != trace.SpanKindInternal {
		t.Errorf("expected internal span kind, got %v", s.SpanKind())
	}

	attrMap := spanAttrs(s)
	if v, ok := attrMap["embedcache.op"]; !ok || v.AsString() != "embed_many" {
		t.Errorf("expected embedcache.op='embed_many', got %v", v)
	}
	if v, ok := attrMap["embedcache.key"]; !ok || v.AsString() != "5f2b" {
		t.Errorf("expected embedcache.key='5f2b', got %v", v)
	}
	if v, ok := attrMap["embedcache.items"]; !ok || v.AsInt64() != 3 {
		t.Errorf("expected embedcache.items=3, got %v", v)
	}
	if v, ok := attrMap["embedcache.error"]; !ok || v.AsBool() {
		t.Errorf("expected embedcache.error=false, got %v", v)
	}
}

// TestTracer_SpanAttributesMinimal verifies optional attributes are omitted.
func TestTracer_SpanAttributesMinimal(t *testing.T) {
	tr, recorder, _ := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), OpMeta{Op: "embed_one", Remote: true})
	tr.EndSpan(span, nil)

	s := recorder.Ended()[0]
	if s.SpanKind() != trace.SpanKindClient {
		t.Errorf("expected client span kind for remote calls, got %v", s.SpanKind())
	}

	attrMap := spanAttrs(s)
	if _, ok := attrMap["embedcache.key"]; ok {
		t.Error("expected no embedcache.key attribute")
	}
	if _, ok := attrMap["embedcache.items"]; ok {
		t.Error("expected no embedcache.items attribute")
	}
	if v, ok := attrMap["embedcache.remote"]; !ok || !v.AsBool() {
		t.Errorf("expected embedcache.remote=true, got %v", v)
	}
}

// TestTracer_ContextPropagation verifies the remote span nests under the
// cache operation span.
func TestTracer_ContextPropagation(t *testing.T) {
	tr, recorder, _ := newRecordingTracer()

	parentCtx, parentSpan := tr.StartSpan(context.Background(), OpMeta{Op: "fill"})
	_, childSpan := tr.StartSpan(parentCtx, OpMeta{Op: "fill", Remote: true})
	tr.EndSpan(childSpan, nil)
	tr.EndSpan(parentSpan, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	var child sdktrace.ReadOnlySpan
	for _, s := range spans {
		if s.Name() == "embedcache.remote.fill" {
			child = s
			break
		}
	}
	if child == nil {
		t.Fatal("child span not found")
	}

	if child.Parent().TraceID() != parentSpan.SpanContext().TraceID() {
		t.Error("child span should have same trace ID as parent")
	}
	if child.Parent().SpanID() != parentSpan.SpanContext().SpanID() {
		t.Error("child span should have the cache span as parent")
	}
}

// TestTracer_ErrorRecording verifies error sets span status and attribute.
func TestTracer_ErrorRecording(t *testing.T) {
	tr, recorder, _ := newRecordingTracer()

	_, span := tr.StartSpan(context.Background(), OpMeta{Op: "embed_one", Remote: true})
	tr.EndSpan(span, errors.New("429 too many requests"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	s := spans[0]
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status().Code)
	}
	if v := spanAttrs(s)["embedcache.error"]; !v.AsBool() {
		t.Error("expected embedcache.error=true")
	}
}

func TestNewTracer_NilFallsBackToNoop(t *testing.T) {
	tr := NewTracer(nil)
	_, span := tr.StartSpan(context.Background(), OpMeta{Op: "embed_one"})
	tr.EndSpan(span, nil)
}
