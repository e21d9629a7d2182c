package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records channel and model metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordTrigger records one dispatch of an event name and how many
	// handlers it reached (named plus wildcard).
	RecordTrigger(ctx context.Context, name string, handlers int)

	// RecordMutation records a completed outermost Set with the number of
	// keys that ended up changed.
	RecordMutation(ctx context.Context, kind string, changedKeys int, duration time.Duration)

	// RecordValidation records a validation run; err is the validation error, if any.
	RecordValidation(ctx context.Context, kind string, err error)

	// RecordDestroy records a model teardown.
	RecordDestroy(ctx context.Context, kind string, waited bool, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	triggers         metric.Int64Counter
	handlerCalls     metric.Int64Counter
	mutations        metric.Int64Counter
	mutationLatency  metric.Float64Histogram
	changedKeys      metric.Int64Histogram
	validations      metric.Int64Counter
	validationErrors metric.Int64Counter
	destroys         metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("observable")

	triggers, err := meter.Int64Counter("observable.event.triggers",
		metric.WithDescription("Number of event dispatches"),
	)
	if err != nil {
		return nil, err
	}

	handlerCalls, err := meter.Int64Counter("observable.event.handler_calls",
		metric.WithDescription("Number of handler invocations"),
	)
	if err != nil {
		return nil, err
	}

	mutations, err := meter.Int64Counter("observable.model.mutations",
		metric.WithDescription("Number of outermost attribute mutations"),
	)
	if err != nil {
		return nil, err
	}

	mutationLatency, err := meter.Float64Histogram("observable.model.mutation.latency_ms",
		metric.WithDescription("Outermost mutation latency including handlers, in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	changedKeys, err := meter.Int64Histogram("observable.model.changed_keys",
		metric.WithDescription("Keys changed per outermost mutation"),
	)
	if err != nil {
		return nil, err
	}

	validations, err := meter.Int64Counter("observable.model.validations",
		metric.WithDescription("Number of validation runs"),
	)
	if err != nil {
		return nil, err
	}

	validationErrors, err := meter.Int64Counter("observable.model.validation_errors",
		metric.WithDescription("Number of failed validation runs"),
	)
	if err != nil {
		return nil, err
	}

	destroys, err := meter.Int64Counter("observable.model.destroys",
		metric.WithDescription("Number of model teardowns"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		triggers:         triggers,
		handlerCalls:     handlerCalls,
		mutations:        mutations,
		mutationLatency:  mutationLatency,
		changedKeys:      changedKeys,
		validations:      validations,
		validationErrors: validationErrors,
		destroys:         destroys,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordTrigger records an event dispatch.
func (m *otelMetrics) RecordTrigger(ctx context.Context, name string, handlers int) {
	attrs := metric.WithAttributes(attribute.String("event", name))
	m.triggers.Add(ctx, 1, attrs)
	if handlers > 0 {
		m.handlerCalls.Add(ctx, int64(handlers), attrs)
	}
}

// RecordMutation records an outermost mutation.
func (m *otelMetrics) RecordMutation(ctx context.Context, kind string, changedKeys int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	m.mutations.Add(ctx, 1, attrs)
	m.mutationLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.changedKeys.Record(ctx, int64(changedKeys), attrs)
}

// RecordValidation records a validation run.
func (m *otelMetrics) RecordValidation(ctx context.Context, kind string, err error) {
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	m.validations.Add(ctx, 1, attrs)
	if err != nil {
		m.validationErrors.Add(ctx, 1, attrs)
	}
}

// RecordDestroy records a model teardown.
func (m *otelMetrics) RecordDestroy(ctx context.Context, kind string, waited bool, err error) {
	m.destroys.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("waited", waited),
		attribute.Bool("success", err == nil),
	))
}
