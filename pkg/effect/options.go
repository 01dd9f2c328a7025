package effect

import "log/slog"

type options struct {
	name     string
	comparer Comparer
	logger   *slog.Logger
	observer Observer
}

func defaultOptions() options {
	return options{
		name:     "anonymous",
		comparer: Serialized,
		logger:   slog.Default().With("component", "effect"),
	}
}

// Option configures a Cell.
type Option func(*options)

// WithName sets the name used in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithComparer sets the dependency equality strategy. The default is
// Serialized.
func WithComparer(c Comparer) Option {
	return func(o *options) {
		if c != nil {
			o.comparer = c
		}
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

// WithObserver sets an observer for run, skip and cleanup events.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// ComparerByName returns the comparer registered under name: "serialized"
// or "shallow".
func ComparerByName(name string) (Comparer, bool) {
	switch name {
	case "serialized", "":
		return Serialized, true
	case "shallow":
		return Shallow, true
	default:
		return nil, false
	}
}
