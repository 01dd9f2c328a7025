package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/thejerf/suture/v4"
)

func newSupervisor(name string) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: supervisorEventHook(slog.Default().With("component", "supervisor")),
	})
}

func supervisorEventHook(logger *slog.Logger) suture.EventHook {
	return func(ei suture.Event) {
		switch e := ei.(type) {
		case suture.EventStopTimeout:
			logger.Warn("service failed to stop in time", "supervisor", e.SupervisorName, "service", e.ServiceName)
		case suture.EventServicePanic:
			logger.Error("service panicked", "service", e.ServiceName, "panic", e.PanicMsg)
			logger.Debug(e.Stacktrace)
		case suture.EventServiceTerminate:
			logger.Error("service failed", "error", e.Err, "supervisor", e.SupervisorName, "service", e.ServiceName)
		case suture.EventBackoff:
			logger.Debug("too many service failures, backing off", "supervisor", e.SupervisorName)
		case suture.EventResume:
			logger.Debug("leaving backoff", "supervisor", e.SupervisorName)
		default:
			b, _ := json.Marshal(e)
			logger.Warn("unknown supervisor event", "type", int(e.Type()), "event", string(b))
		}
	}
}

// service is a named suture.Service.
type service struct {
	name string
	fn   func(ctx context.Context) error
}

func newService(name string, fn func(ctx context.Context) error) service {
	return service{name: name, fn: fn}
}

func (s service) String() string {
	return s.name
}

func (s service) Serve(ctx context.Context) error {
	return sanitizeError(ctx, s.fn(ctx))
}

// sanitizeError keeps a failing service's error from looking like a
// context error unless ctx is actually done; suture stops restarting a
// service that returns a context error.
func sanitizeError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if !(stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)) {
		return err
	}

	var errs []error
	if stderrors.Is(err, suture.ErrDoNotRestart) {
		errs = append(errs, suture.ErrDoNotRestart)
	}
	if stderrors.Is(err, suture.ErrTerminateSupervisorTree) {
		errs = append(errs, suture.ErrTerminateSupervisorTree)
	}
	errs = append(errs, stderrors.New(err.Error()))
	return stderrors.Join(errs...)
}
