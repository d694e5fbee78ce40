package observe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/embedcache/observe/exporters"
)

// Config holds all configuration for the Observer.
type Config struct {
	ServiceName string        `yaml:"service_name"`
	Version     string        `yaml:"version"`
	Tracing     TracingConfig `yaml:"tracing"`
	Metrics     MetricsConfig `yaml:"metrics"`
	Logging     LoggingConfig `yaml:"logging"`
}

// TracingConfig configures the tracing subsystem.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`   // otlp|stdout|none
	SamplePct float64 `yaml:"sample_pct"` // 0.0-1.0
}

// MetricsConfig configures the metrics subsystem.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // otlp|prometheus|stdout|none
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // debug|info|warn|error

	// Writer receives the JSON log lines.
	// Default: os.Stderr
	Writer io.Writer `yaml:"-"`
}

// Validate validates the configuration. Exporters and levels are only checked
// for the subsystems that are enabled.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	if t := c.Tracing; t.Enabled {
		if !slices.Contains(ValidTracingExporters, t.Exporter) {
			return fmt.Errorf("%w: %q", ErrInvalidTracingExporter, t.Exporter)
		}
		if t.SamplePct < MinSamplePct || t.SamplePct > MaxSamplePct {
			return fmt.Errorf("%w, got: %f", ErrInvalidSamplePct, t.SamplePct)
		}
	}
	if m := c.Metrics; m.Enabled && !slices.Contains(ValidMetricsExporters, m.Exporter) {
		return fmt.Errorf("%w: %q", ErrInvalidMetricsExporter, m.Exporter)
	}
	if l := c.Logging; l.Enabled && !slices.Contains(ValidLogLevels, l.Level) {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, l.Level)
	}
	return nil
}

// Observer provides access to telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown is idempotent; later calls return the first result.
type Observer interface {
	// Tracer returns the configured tracer.
	Tracer() trace.Tracer

	// Meter returns the configured meter.
	Meter() metric.Meter

	// Logger returns the configured logger.
	Logger() Logger

	// Shutdown flushes and stops the tracer and meter providers.
	Shutdown(ctx context.Context) error
}

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: the operation stored with WithOp is added as the "op" field.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for constructing a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type observer struct {
	tracer         trace.Tracer
	meter          metric.Meter
	logger         Logger
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewObserver builds the tracer, meter and logger described by cfg. Disabled
// subsystems get no-op implementations, so callers never check for nil.
// Enabled providers are also installed as the OpenTelemetry globals.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer("noop"),
		meter:  noop.NewMeterProvider().Meter("noop"),
		logger: NopLogger(),
	}

	if cfg.Tracing.Enabled {
		tp, err := newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, fmt.Errorf("failed to setup tracing: %w", err)
		}
		otel.SetTracerProvider(tp)
		obs.tracerProvider = tp
		obs.tracer = tp.Tracer(cfg.ServiceName)
	}

	if cfg.Metrics.Enabled {
		mp, err := newMeterProvider(ctx, cfg, res)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("failed to setup metrics: %w", err)
		}
		otel.SetMeterProvider(mp)
		obs.meterProvider = mp
		obs.meter = mp.Meter(cfg.ServiceName)
	}

	if cfg.Logging.Enabled {
		w := cfg.Logging.Writer
		if w == nil {
			w = os.Stderr
		}
		obs.logger = NewLoggerWithWriter(cfg.Logging.Level, w)
	}

	return obs, nil
}

// sampler maps a sampling fraction to an OpenTelemetry sampler.
func sampler(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1.0:
		return sdktrace.AlwaysSample()
	case pct <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(pct)
	}
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.Tracing.SamplePct)),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics reader: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if reader != nil {
		opts = append(opts, sdkmetric.WithReader(reader))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

func (o *observer) Tracer() trace.Tracer {
	return o.tracer
}

func (o *observer) Meter() metric.Meter {
	return o.meter
}

func (o *observer) Logger() Logger {
	return o.logger
}

// Shutdown stops the tracer provider, then the meter provider.
func (o *observer) Shutdown(ctx context.Context) error {
	o.shutdownOnce.Do(func() {
		var errs []error
		if o.tracerProvider != nil {
			if err := o.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
			}
		}
		if o.meterProvider != nil {
			if err := o.meterProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
			}
		}
		o.shutdownErr = errors.Join(errs...)
	})
	return o.shutdownErr
}

// NopLogger returns a logger that discards everything.
func NopLogger() Logger {
	return &noopLogger{}
}

type noopLogger struct{}

func (l *noopLogger) Info(ctx context.Context, msg string, fields ...Field)  {}
func (l *noopLogger) Warn(ctx context.Context, msg string, fields ...Field)  {}
func (l *noopLogger) Error(ctx context.Context, msg string, fields ...Field) {}
func (l *noopLogger) Debug(ctx context.Context, msg string, fields ...Field) {}
func (l *noopLogger) With(fields ...Field) Logger                           { return l }
