package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("observable")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartMutationSpan starts a span covering an outermost Set, including
	// every handler it triggers.
	StartMutationSpan(ctx context.Context, kind, cid string) (context.Context, trace.Span)

	// StartDestroySpan starts a span covering a Destroy call. With a wait
	// the span ends when the persister acknowledges.
	StartDestroySpan(ctx context.Context, kind, cid string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartMutationSpan starts a span for an outermost Set.
func (m *otelSpanManager) StartMutationSpan(ctx context.Context, kind, cid string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "observable.set",
		trace.WithAttributes(
			attribute.String("model.kind", kind),
			attribute.String("model.cid", cid),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartDestroySpan starts a span for a Destroy call.
func (m *otelSpanManager) StartDestroySpan(ctx context.Context, kind, cid string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "observable.destroy",
		trace.WithAttributes(
			attribute.String("model.kind", kind),
			attribute.String("model.cid", cid),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
