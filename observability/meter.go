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

	"github.com/aiponge/servicekit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the metric instruments for lifecycle observability:
// scheduler executions, health probes, instance status transitions, and
// registry population. A nil *Metrics is valid and records nothing, so
// components run unmetered when no recorder is wired in.
type Metrics struct {
	schedulerRuns     metric.Int64Counter
	schedulerDuration metric.Float64Histogram
	probeTotal        metric.Int64Counter
	probeDuration     metric.Float64Histogram
	statusTransitions metric.Int64Counter
	activeInstances   metric.Int64UpDownCounter
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	schedulerRuns, err := meter.Int64Counter("scheduler.runs.total",
		metric.WithDescription("Total scheduler executions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler.runs.total counter: %w", err)
	}

	schedulerDuration, err := meter.Float64Histogram("scheduler.run.duration",
		metric.WithDescription("Duration of scheduler executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating scheduler.run.duration histogram: %w", err)
	}

	probeTotal, err := meter.Int64Counter("registry.probes.total",
		metric.WithDescription("Total health probes by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registry.probes.total counter: %w", err)
	}

	probeDuration, err := meter.Float64Histogram("registry.probe.duration",
		metric.WithDescription("Duration of health probes in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registry.probe.duration histogram: %w", err)
	}

	statusTransitions, err := meter.Int64Counter("registry.status.transitions",
		metric.WithDescription("Instance status transitions by from/to state"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registry.status.transitions counter: %w", err)
	}

	activeInstances, err := meter.Int64UpDownCounter("registry.instances.active",
		metric.WithDescription("Number of currently registered instances"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registry.instances.active gauge: %w", err)
	}

	operationTotal, err := meter.Int64Counter("operation.total",
		metric.WithDescription("Total number of tracked operations"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation.total counter: %w", err)
	}

	operationDuration, err := meter.Float64Histogram("operation.duration",
		metric.WithDescription("Duration of tracked operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation.duration histogram: %w", err)
	}

	return &Metrics{
		schedulerRuns:     schedulerRuns,
		schedulerDuration: schedulerDuration,
		probeTotal:        probeTotal,
		probeDuration:     probeDuration,
		statusTransitions: statusTransitions,
		activeInstances:   activeInstances,
		operationTotal:    operationTotal,
		operationDuration: operationDuration,
	}, nil
}

// RecordSchedulerRun records one scheduler execution.
func (m *Metrics) RecordSchedulerRun(ctx context.Context, service, scheduler string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("scheduler", scheduler),
		attribute.String("status", outcome(success)),
	)
	m.schedulerRuns.Add(ctx, 1, attrs)
	m.schedulerDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("scheduler", scheduler),
	))
}

// RecordProbe records one health probe against an instance.
func (m *Metrics) RecordProbe(ctx context.Context, service string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	m.probeTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("status", outcome(success)),
	))
	m.probeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
	))
}

// RecordStatusTransition records an instance status change.
func (m *Metrics) RecordStatusTransition(ctx context.Context, service, from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// AddActiveInstances moves the registered-instance gauge by delta.
func (m *Metrics) AddActiveInstances(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.activeInstances.Add(ctx, delta)
}

// RecordOperation records a tracked operation execution.
func (m *Metrics) RecordOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	m.operationTotal.Add(ctx, 1, attrs)
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("operation", operation),
	))
}

func outcome(success bool) string {
	if success {
		return "ok"
	}
	return "error"
}
