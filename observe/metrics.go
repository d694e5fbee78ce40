package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricLoads          = "embedcache.loads"
	MetricSaves          = "embedcache.saves"
	MetricHits           = "embedcache.hits"
	MetricMisses         = "embedcache.misses"
	MetricRetries        = "embedcache.retries"
	MetricGenerated      = "embedcache.definitions.generated"
	MetricRemoteCalls    = "embedcache.remote.calls"
	MetricRemoteErrors   = "embedcache.remote.errors"
	MetricRemoteDuration = "embedcache.remote.duration_ms"
)

// Metrics records cache and remote call metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly; the operation is read from ctx (WithOp).
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLoad records one entry read from the store.
	RecordLoad(ctx context.Context)

	// RecordSave records one entry written to the store.
	RecordSave(ctx context.Context)

	// RecordLookup records a cache hit or miss.
	RecordLookup(ctx context.Context, hit bool)

	// RecordRetry records one retry of a remote call.
	RecordRetry(ctx context.Context, kind string)

	// RecordGenerated records definitions computed by one fill call.
	RecordGenerated(ctx context.Context, n int)

	// RecordRemote records one remote call with duration and error status.
	RecordRemote(ctx context.Context, meta OpMeta, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	loads        metric.Int64Counter
	saves        metric.Int64Counter
	hits         metric.Int64Counter
	misses       metric.Int64Counter
	retries      metric.Int64Counter
	generated    metric.Int64Counter
	remoteCalls  metric.Int64Counter
	remoteErrors metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates the cache instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	return newMetrics(meter)
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	m := &metricsImpl{}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&m.loads, MetricLoads, "Cache entries loaded from the store", "{entry}"},
		{&m.saves, MetricSaves, "Cache entries saved to the store", "{entry}"},
		{&m.hits, MetricHits, "Cache lookups served without a remote call", "{lookup}"},
		{&m.misses, MetricMisses, "Cache lookups that required a remote call", "{lookup}"},
		{&m.retries, MetricRetries, "Remote call retries", "{retry}"},
		{&m.generated, MetricGenerated, "Definitions generated by fill calls", "{definition}"},
		{&m.remoteCalls, MetricRemoteCalls, "Remote call attempts", "{call}"},
		{&m.remoteErrors, MetricRemoteErrors, "Failed remote call attempts", "{error}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name,
			metric.WithDescription(c.desc),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	durationHist, err := meter.Float64Histogram(
		MetricRemoteDuration,
		metric.WithDescription("Remote call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}
	m.durationHist = durationHist

	return m, nil
}

func opAttr(ctx context.Context) attribute.KeyValue {
	return attribute.String("embedcache.op", OpFrom(ctx))
}

func (m *metricsImpl) RecordLoad(ctx context.Context) {
	m.loads.Add(ctx, 1, metric.WithAttributes(opAttr(ctx)))
}

func (m *metricsImpl) RecordSave(ctx context.Context) {
	m.saves.Add(ctx, 1, metric.WithAttributes(opAttr(ctx)))
}

func (m *metricsImpl) RecordLookup(ctx context.Context, hit bool) {
	opt := metric.WithAttributes(opAttr(ctx))
	if hit {
		m.hits.Add(ctx, 1, opt)
		return
	}
	m.misses.Add(ctx, 1, opt)
}

func (m *metricsImpl) RecordRetry(ctx context.Context, kind string) {
	m.retries.Add(ctx, 1, metric.WithAttributes(
		opAttr(ctx),
		attribute.String("embedcache.failure_kind", kind),
	))
}

func (m *metricsImpl) RecordGenerated(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.generated.Add(ctx, int64(n), metric.WithAttributes(opAttr(ctx)))
}

// RecordRemote records metrics for a remote call attempt.
func (m *metricsImpl) RecordRemote(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("embedcache.op", meta.Op))

	m.remoteCalls.Add(ctx, 1, opt)
	if err != nil {
		m.remoteErrors.Add(ctx, 1, opt)
	}

	durationMs := float64(duration.Milliseconds())
	m.durationHist.Record(ctx, durationMs, opt)
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return &noopMetrics{}
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordLoad(ctx context.Context)               {}
func (m *noopMetrics) RecordSave(ctx context.Context)               {}
func (m *noopMetrics) RecordLookup(ctx context.Context, hit bool)   {}
func (m *noopMetrics) RecordRetry(ctx context.Context, kind string) {}
func (m *noopMetrics) RecordGenerated(ctx context.Context, n int)   {}
func (m *noopMetrics) RecordRemote(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
}
