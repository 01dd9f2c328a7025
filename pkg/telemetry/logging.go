package telemetry

import (
	"log/slog"

	"github.com/vango-dev/hookstore/pkg/effect"
)

// Logging is an Observer that writes one debug record per event.
type Logging struct {
	logger *slog.Logger
}

// NewLogging creates a logging observer. A nil logger uses slog.Default.
func NewLogging(logger *slog.Logger) *Logging {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logging{logger: logger.With("component", "telemetry")}
}

// StoreInitialized implements store.Observer.
func (l *Logging) StoreInitialized(name string) {
	l.logger.Debug("store initialized", "store", name)
}

// StoreSet implements store.Observer.
func (l *Logging) StoreSet(name string, listeners int, skipped bool) {
	l.logger.Debug("store set", "store", name, "listeners", listeners, "skipped", skipped)
}

// EffectStarted implements effect.Observer.
func (l *Logging) EffectStarted(name string, reason effect.Reason) func(error) {
	l.logger.Debug("effect run", "effect", name, "reason", reason.String())
	return nil
}

// EffectSkipped implements effect.Observer.
func (l *Logging) EffectSkipped(name string) {
	l.logger.Debug("effect skipped", "effect", name)
}

// CleanupRan implements effect.Observer.
func (l *Logging) CleanupRan(name string) {
	l.logger.Debug("effect cleanup", "effect", name)
}
