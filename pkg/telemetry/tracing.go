package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/hookstore/pkg/effect"
)

// DefaultTracerName is the tracer name used when none is configured.
const DefaultTracerName = "hookstore"

// TracingOption configures the tracing observer.
type TracingOption func(*Tracing)

// WithTracer sets the tracer. The default resolves DefaultTracerName from
// the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) TracingOption {
	return func(t *Tracing) {
		if tracer != nil {
			t.tracer = tracer
		}
	}
}

// WithContext sets the parent context for spans.
func WithContext(ctx context.Context) TracingOption {
	return func(t *Tracing) {
		if ctx != nil {
			t.ctx = ctx
		}
	}
}

// Tracing is an Observer that records an OpenTelemetry span for every
// effect run and a span event for store changes.
//
// Configure the global provider before creating it:
//
//	otel.SetTracerProvider(tp)
//	obs := telemetry.NewTracing()
type Tracing struct {
	tracer trace.Tracer
	ctx    context.Context
}

// NewTracing creates a tracing observer.
func NewTracing(opts ...TracingOption) *Tracing {
	t := &Tracing{ctx: context.Background()}
	for _, opt := range opts {
		opt(t)
	}
	if t.tracer == nil {
		t.tracer = otel.Tracer(DefaultTracerName)
	}
	return t
}

// StoreInitialized implements store.Observer.
func (t *Tracing) StoreInitialized(name string) {
	_, span := t.tracer.Start(t.ctx, "hookstore.store.init",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("hookstore.store", name)),
	)
	span.End()
}

// StoreSet implements store.Observer.
func (t *Tracing) StoreSet(name string, listeners int, skipped bool) {
	_, span := t.tracer.Start(t.ctx, "hookstore.store.set",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("hookstore.store", name),
			attribute.Int("hookstore.listeners", listeners),
			attribute.Bool("hookstore.skipped", skipped),
		),
	)
	span.End()
}

// EffectStarted implements effect.Observer. The span ends when the callback
// finishes; a panicking callback marks it as an error.
func (t *Tracing) EffectStarted(name string, reason effect.Reason) func(error) {
	_, span := t.tracer.Start(t.ctx, "hookstore.effect.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("hookstore.effect", name),
			attribute.String("hookstore.reason", reason.String()),
		),
	)
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// EffectSkipped implements effect.Observer.
func (t *Tracing) EffectSkipped(name string) {
	span := trace.SpanFromContext(t.ctx)
	span.AddEvent("hookstore.effect.skipped", trace.WithAttributes(attribute.String("hookstore.effect", name)))
}

// CleanupRan implements effect.Observer.
func (t *Tracing) CleanupRan(name string) {
	span := trace.SpanFromContext(t.ctx)
	span.AddEvent("hookstore.effect.cleanup", trace.WithAttributes(attribute.String("hookstore.effect", name)))
}
