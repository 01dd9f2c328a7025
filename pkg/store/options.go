package store

import "log/slog"

type options struct {
	name     string
	policy   UninitializedPolicy
	logger   *slog.Logger
	observer Observer
}

func defaultOptions() options {
	return options{
		name:   "anonymous",
		policy: AllowUninitialized,
		logger: slog.Default().With("component", "store"),
	}
}

// Option configures a Store.
type Option func(*options)

// WithName sets the name used in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithUninitializedPolicy sets how updaters behave before initialization.
func WithUninitializedPolicy(p UninitializedPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver sets an observer for initialization and set events.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}
