package telemetry

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/vango-dev/hookstore/pkg/effect"
	"github.com/vango-dev/hookstore/pkg/store"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T does not implement prometheus.Metric", o)
	}
	var m dto.Metric
	if err := metric.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetricsRecordsStoreEvents(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()))

	s := store.New[int](store.WithName("count"), store.WithObserver(m)).
		WithEquals(func(a, b int) bool { return a == b })
	s.InitIfNeeded(store.Value(1))
	s.Subscribe(func() {})
	s.Subscribe(func() {})
	s.Set(2)
	s.Set(2)

	if got := metricCounterValue(t, m.storeInits.WithLabelValues("count")); got != 1 {
		t.Errorf("inits = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.storeSets.WithLabelValues("count", "notified")); got != 1 {
		t.Errorf("notified sets = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.storeSets.WithLabelValues("count", "skipped")); got != 1 {
		t.Errorf("skipped sets = %v, want 1", got)
	}
	if got := metricGaugeValue(t, m.storeListeners.WithLabelValues("count")); got != 2 {
		t.Errorf("listeners = %v, want 2", got)
	}
}

func TestMetricsRecordsEffectEvents(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

	c := effect.NewCell(effect.WithName("fx"), effect.WithObserver(m))
	fn := func() effect.Cleanup { return func() {} }

	c.Run(fn, []any{1})
	c.Run(fn, []any{1})
	c.Run(fn, []any{2})
	c.Dispose()

	if got := metricCounterValue(t, m.effectRuns.WithLabelValues("fx", "mount")); got != 1 {
		t.Errorf("mount runs = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.effectRuns.WithLabelValues("fx", "deps_changed")); got != 1 {
		t.Errorf("deps_changed runs = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.effectSkips.WithLabelValues("fx")); got != 1 {
		t.Errorf("skips = %v, want 1", got)
	}
	if got := metricCounterValue(t, m.effectCleanups.WithLabelValues("fx")); got != 2 {
		t.Errorf("cleanups = %v, want 2", got)
	}
	if got := metricHistogramCount(t, m.effectDuration.WithLabelValues("fx")); got != 2 {
		t.Errorf("duration samples = %v, want 2", got)
	}
}

func TestMetricsObservesPanickedRun(t *testing.T) {
	m := NewMetrics(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))
	c := effect.NewCell(effect.WithName("fx"), effect.WithObserver(m))

	func() {
		defer func() { _ = recover() }()
		c.Run(func() effect.Cleanup { panic("boom") }, []any{1})
	}()

	if got := metricHistogramCount(t, m.effectDuration.WithLabelValues("fx")); got != 1 {
		t.Errorf("duration samples = %v, want 1", got)
	}
}

func TestMetricsRegistersOnRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(WithRegistry(reg), WithConstLabels(prometheus.Labels{"app": "test"}))
	m.StoreInitialized("a")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "hookstore_store_inits_total" {
			found = true
		}
	}
	if !found {
		t.Error("expected hookstore_store_inits_total to be registered")
	}
}

type recordedSpan struct {
	trace.Span

	name   string
	attrs  []attribute.KeyValue
	status codes.Code
	errs   int
	ended  bool
}

func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }
func (s *recordedSpan) RecordError(error, ...trace.EventOption) { s.errs++ }
func (s *recordedSpan) End(...trace.SpanEndOption) { s.ended = true }

type recordingTracer struct {
	noop.Tracer

	mu    sync.Mutex
	spans []*recordedSpan
}

func (r *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	ctx, span := r.Tracer.Start(ctx, name, opts...)
	rs := &recordedSpan{Span: span, name: name, attrs: cfg.Attributes()}
	r.mu.Lock()
	r.spans = append(r.spans, rs)
	r.mu.Unlock()
	return ctx, rs
}

func attrValue(attrs []attribute.KeyValue, key string) string {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.Emit()
		}
	}
	return ""
}

func TestTracingSpanPerEffectRun(t *testing.T) {
	tracer := &recordingTracer{}
	obs := NewTracing(WithTracer(tracer))

	c := effect.NewCell(effect.WithName("fx"), effect.WithObserver(obs))
	c.Run(func() effect.Cleanup { return nil }, []any{"a"})
	c.Run(func() effect.Cleanup { return nil }, []any{"a"})
	c.Run(func() effect.Cleanup { return nil }, nil)

	if len(tracer.spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(tracer.spans))
	}
	for _, s := range tracer.spans {
		if s.name != "hookstore.effect.run" {
			t.Errorf("unexpected span name %q", s.name)
		}
		if attrValue(s.attrs, "hookstore.effect") != "fx" {
			t.Errorf("expected effect attribute fx, got %v", s.attrs)
		}
	}
	if got := attrValue(tracer.spans[1].attrs, "hookstore.reason"); got != "no_deps" {
		t.Errorf("expected reason no_deps, got %q", got)
	}
}

func TestTracingEndsSpanOnPanic(t *testing.T) {
	tracer := &recordingTracer{}
	c := effect.NewCell(effect.WithName("fx"), effect.WithObserver(NewTracing(WithTracer(tracer))))

	func() {
		defer func() { _ = recover() }()
		c.Run(func() effect.Cleanup { panic("boom") }, []any{1})
	}()
	c.Run(func() effect.Cleanup { return nil }, []any{1})

	if len(tracer.spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(tracer.spans))
	}
	failed, ok := tracer.spans[0], tracer.spans[1]
	if !failed.ended || failed.status != codes.Error || failed.errs != 1 {
		t.Errorf("expected ended error span, got ended=%v status=%v errs=%d", failed.ended, failed.status, failed.errs)
	}
	if !ok.ended || ok.status != codes.Ok {
		t.Errorf("expected ended ok span, got ended=%v status=%v", ok.ended, ok.status)
	}
}

func TestTracingStoreSet(t *testing.T) {
	tracer := &recordingTracer{}
	s := store.New[string](store.WithName("title"), store.WithObserver(NewTracing(WithTracer(tracer))))
	s.Set("x")

	if len(tracer.spans) != 1 || tracer.spans[0].name != "hookstore.store.set" {
		t.Fatalf("expected one store.set span, got %+v", tracer.spans)
	}
	if got := attrValue(tracer.spans[0].attrs, "hookstore.skipped"); got != "false" {
		t.Errorf("expected skipped=false, got %q", got)
	}
}

func TestLoggingObserver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := NewLogging(logger)

	s := store.New[int](store.WithName("n"), store.WithObserver(obs))
	s.Set(1)

	out := buf.String()
	if !strings.Contains(out, "store set") || !strings.Contains(out, "store=n") {
		t.Errorf("unexpected log output: %s", out)
	}
}

type countingObserver struct {
	events []string
}

func (c *countingObserver) StoreInitialized(name string) { c.events = append(c.events, "init:"+name) }
func (c *countingObserver) StoreSet(name string, _ int, _ bool) {
	c.events = append(c.events, "set:"+name)
}
func (c *countingObserver) EffectStarted(name string, _ effect.Reason) func(error) {
	c.events = append(c.events, "start:"+name)
	return func(err error) {
		if err != nil {
			c.events = append(c.events, "failed:"+name)
			return
		}
		c.events = append(c.events, "done:"+name)
	}
}
func (c *countingObserver) EffectSkipped(name string) { c.events = append(c.events, "skip:"+name) }
func (c *countingObserver) CleanupRan(name string)    { c.events = append(c.events, "cleanup:"+name) }

func TestTeeFansOut(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	obs := Tee(a, nil, b)

	obs.StoreSet("s", 0, false)
	done := obs.EffectStarted("e", effect.ReasonMount)
	done(nil)
	obs.EffectStarted("f", effect.ReasonNoDeps)(stderrors.New("boom"))

	want := []string{"set:s", "start:e", "done:e", "start:f", "failed:f"}
	for _, c := range []*countingObserver{a, b} {
		if strings.Join(c.events, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, c.events)
		}
	}
}

func TestTeeEmptyDone(t *testing.T) {
	if done := Tee(NewLogging(nil)).EffectStarted("e", effect.ReasonMount); done != nil {
		t.Error("expected nil done when no observer returns one")
	}
}
