package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/hookstore/pkg/effect"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hookstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for effect duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "hookstore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is an Observer that records Prometheus metrics.
//
// Metrics collected:
//   - hookstore_store_inits_total: stores initialized, by store
//   - hookstore_store_sets_total: SetState calls, by store and outcome
//     ("notified" or "skipped")
//   - hookstore_store_listeners: listeners notified by the last set, by store
//   - hookstore_effect_runs_total: effect callbacks run, by effect and reason
//   - hookstore_effect_skips_total: runs skipped because deps were equal
//   - hookstore_effect_cleanups_total: cleanups run, by effect
//   - hookstore_effect_duration_seconds: callback duration, by effect
type Metrics struct {
	storeInits     *prometheus.CounterVec
	storeSets      *prometheus.CounterVec
	storeListeners *prometheus.GaugeVec
	effectRuns     *prometheus.CounterVec
	effectSkips    *prometheus.CounterVec
	effectCleanups *prometheus.CounterVec
	effectDuration *prometheus.HistogramVec

	now func() time.Time
}

// NewMetrics registers the metrics with the configured registry. Creating
// two Metrics on the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		storeInits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_inits_total",
			Help:        "Total number of store initializations",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		storeSets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_sets_total",
			Help:        "Total number of store SetState calls",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "outcome"}),

		storeListeners: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_listeners",
			Help:        "Listeners subscribed at the last SetState",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		effectRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect callback runs",
			ConstLabels: config.ConstLabels,
		}, []string{"effect", "reason"}),

		effectSkips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_skips_total",
			Help:        "Total number of effect runs skipped because dependencies were unchanged",
			ConstLabels: config.ConstLabels,
		}, []string{"effect"}),

		effectCleanups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_cleanups_total",
			Help:        "Total number of effect cleanups run",
			ConstLabels: config.ConstLabels,
		}, []string{"effect"}),

		effectDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Effect callback duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"effect"}),

		now: time.Now,
	}
}

// StoreInitialized implements store.Observer.
func (m *Metrics) StoreInitialized(name string) {
	m.storeInits.WithLabelValues(name).Inc()
}

// StoreSet implements store.Observer.
func (m *Metrics) StoreSet(name string, listeners int, skipped bool) {
	outcome := "notified"
	if skipped {
		outcome = "skipped"
	}
	m.storeSets.WithLabelValues(name, outcome).Inc()
	m.storeListeners.WithLabelValues(name).Set(float64(listeners))
}

// EffectStarted implements effect.Observer.
func (m *Metrics) EffectStarted(name string, reason effect.Reason) func(error) {
	m.effectRuns.WithLabelValues(name, reason.String()).Inc()
	start := m.now()
	return func(error) {
		m.effectDuration.WithLabelValues(name).Observe(m.now().Sub(start).Seconds())
	}
}

// EffectSkipped implements effect.Observer.
func (m *Metrics) EffectSkipped(name string) {
	m.effectSkips.WithLabelValues(name).Inc()
}

// CleanupRan implements effect.Observer.
func (m *Metrics) CleanupRan(name string) {
	m.effectCleanups.WithLabelValues(name).Inc()
}
