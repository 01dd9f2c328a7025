// Package telemetry provides observers for store and effect events.
//
// Every observer implements both store.Observer and effect.Observer:
//
//	m := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	s := store.New[int](store.WithObserver(m))
//	c := effect.NewCell(effect.WithObserver(m))
//
// Metrics records Prometheus counters and histograms, Tracing opens an
// OpenTelemetry span per effect run, and Logging writes slog records.
// Tee fans one event out to several observers.
package telemetry
