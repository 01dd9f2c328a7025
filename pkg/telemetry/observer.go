package telemetry

import (
	"github.com/vango-dev/hookstore/pkg/effect"
	"github.com/vango-dev/hookstore/pkg/store"
)

// Observer receives both store and effect events.
type Observer interface {
	store.Observer
	effect.Observer
}

// Tee returns an Observer that forwards every event to each of obs in
// order. Nil entries are skipped.
func Tee(obs ...Observer) Observer {
	var out tee
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

type tee []Observer

func (t tee) StoreInitialized(name string) {
	for _, o := range t {
		o.StoreInitialized(name)
	}
}

func (t tee) StoreSet(name string, listeners int, skipped bool) {
	for _, o := range t {
		o.StoreSet(name, listeners, skipped)
	}
}

func (t tee) EffectStarted(name string, reason effect.Reason) func(error) {
	var dones []func(error)
	for _, o := range t {
		if done := o.EffectStarted(name, reason); done != nil {
			dones = append(dones, done)
		}
	}
	if len(dones) == 0 {
		return nil
	}
	return func(err error) {
		// Close in reverse so nested spans end inside-out.
		for i := len(dones) - 1; i >= 0; i-- {
			dones[i](err)
		}
	}
}

func (t tee) EffectSkipped(name string) {
	for _, o := range t {
		o.EffectSkipped(name)
	}
}

func (t tee) CleanupRan(name string) {
	for _, o := range t {
		o.CleanupRan(name)
	}
}
