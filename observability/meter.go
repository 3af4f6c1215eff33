package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/kbukum/video-transcriber-mcp/logger"
)

// InitMeter installs a periodic OTLP/HTTP meter provider as the global
// one.
func InitMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields("endpoint", cfg.Endpoint, "interval", cfg.Interval.String()))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the service's instruments.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	jobTotal        metric.Int64Counter
	jobActive       metric.Int64UpDownCounter
	stageDuration   metric.Float64Histogram
	sessionActive   metric.Int64UpDownCounter
	errorTotal      metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("rpc.request.total",
		metric.WithDescription("Total number of JSON-RPC requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rpc.request.total counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("rpc.request.duration",
		metric.WithDescription("Duration of JSON-RPC requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rpc.request.duration histogram: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("rpc.request.active",
		metric.WithDescription("Number of in-flight JSON-RPC requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rpc.request.active gauge: %w", err)
	}

	jobTotal, err := meter.Int64Counter("job.total",
		metric.WithDescription("Finished transcription jobs by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating job.total counter: %w", err)
	}

	jobActive, err := meter.Int64UpDownCounter("job.active",
		metric.WithDescription("Number of running transcription jobs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating job.active gauge: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("job.stage.duration",
		metric.WithDescription("Duration of job stages in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating job.stage.duration histogram: %w", err)
	}

	sessionActive, err := meter.Int64UpDownCounter("session.active",
		metric.WithDescription("Number of open HTTP sessions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session.active gauge: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by type and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
		jobTotal:        jobTotal,
		jobActive:       jobActive,
		stageDuration:   stageDuration,
		sessionActive:   sessionActive,
		errorTotal:      errorTotal,
	}, nil
}

// MustMetrics creates instruments on the global meter, falling back to nil
// (recording disabled) if instrument creation fails.
func MustMetrics(name string) *Metrics {
	m, err := NewMetrics(Meter(name))
	if err != nil {
		logger.Warn("metrics disabled", logger.Fields(logger.FieldError, err.Error()))
		return nil
	}
	return m
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the completed request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordJobStart increments the running job count.
func (m *Metrics) RecordJobStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.jobActive.Add(ctx, 1)
}

// RecordJobEnd records a terminal job. cause is empty on success.
func (m *Metrics) RecordJobEnd(ctx context.Context, status, cause string) {
	if m == nil {
		return
	}
	m.jobActive.Add(ctx, -1)
	m.jobTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("cause", cause),
	))
}

// RecordStage records how long one job stage took.
func (m *Metrics) RecordStage(ctx context.Context, stage, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("status", status),
	))
}

// RecordSessionOpen increments the open session count.
func (m *Metrics) RecordSessionOpen(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionActive.Add(ctx, 1)
}

// RecordSessionClose decrements the open session count.
func (m *Metrics) RecordSessionClose(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionActive.Add(ctx, -1)
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
