package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/vango-dev/hookstore/pkg/store"
)

// CounterBody is the JSON representation of a counter.
type CounterBody struct {
	Name  string `json:"name" doc:"Counter name" example:"hits"`
	Value int64  `json:"value" doc:"Current value" example:"42"`
}

type counterOutput struct {
	Body CounterBody
}

type listOutput struct {
	Body struct {
		Counters []CounterBody `json:"counters" doc:"All counters, sorted by name"`
	}
}

type getInput struct {
	Name string `path:"name" pattern:"^[A-Za-z0-9_-]{1,64}$" doc:"Counter name"`
}

type setInput struct {
	Name string `path:"name" pattern:"^[A-Za-z0-9_-]{1,64}$" doc:"Counter name"`
	Body struct {
		Value int64 `json:"value" doc:"New value"`
	}
}

type stepInput struct {
	Name string `path:"name" pattern:"^[A-Za-z0-9_-]{1,64}$" doc:"Counter name"`
	By   int64  `query:"by" default:"1" doc:"Amount to add or subtract"`
}

func (s *Server) registerAPI(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-counters",
		Method:      http.MethodGet,
		Path:        "/api/counters",
		Summary:     "List counters",
		Tags:        []string{"counters"},
	}, s.listCounters)

	huma.Register(api, huma.Operation{
		OperationID: "get-counter",
		Method:      http.MethodGet,
		Path:        "/api/counters/{name}",
		Summary:     "Get a counter",
		Tags:        []string{"counters"},
	}, s.getCounter)

	huma.Register(api, huma.Operation{
		OperationID: "set-counter",
		Method:      http.MethodPut,
		Path:        "/api/counters/{name}",
		Summary:     "Set a counter, creating it if needed",
		Tags:        []string{"counters"},
	}, s.setCounter)

	huma.Register(api, huma.Operation{
		OperationID: "increment-counter",
		Method:      http.MethodPost,
		Path:        "/api/counters/{name}/increment",
		Summary:     "Increment a counter",
		Tags:        []string{"counters"},
	}, func(ctx context.Context, in *stepInput) (*counterOutput, error) {
		return s.step(ctx, in.Name, in.By)
	})

	huma.Register(api, huma.Operation{
		OperationID: "decrement-counter",
		Method:      http.MethodPost,
		Path:        "/api/counters/{name}/decrement",
		Summary:     "Decrement a counter",
		Tags:        []string{"counters"},
	}, func(ctx context.Context, in *stepInput) (*counterOutput, error) {
		return s.step(ctx, in.Name, -in.By)
	})
}

func (s *Server) listCounters(ctx context.Context, _ *struct{}) (*listOutput, error) {
	out := &listOutput{}
	out.Body.Counters = []CounterBody{}
	for _, name := range s.counters.Names() {
		if c, ok := s.counters.Get(name); ok {
			out.Body.Counters = append(out.Body.Counters, CounterBody{Name: name, Value: c.Snapshot()})
		}
	}
	return out, nil
}

func (s *Server) getCounter(ctx context.Context, in *getInput) (*counterOutput, error) {
	c, ok := s.counters.Get(in.Name)
	if !ok {
		return nil, huma.Error404NotFound("counter " + in.Name + " not found")
	}
	return counterResponse(in.Name, c.Snapshot()), nil
}

func (s *Server) setCounter(ctx context.Context, in *setInput) (*counterOutput, error) {
	c, err := s.ensure(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	value := c.Set(in.Body.Value)
	s.sync(in.Name)
	return counterResponse(in.Name, value), nil
}

func (s *Server) step(ctx context.Context, name string, by int64) (*counterOutput, error) {
	c, err := s.ensure(ctx, name)
	if err != nil {
		return nil, err
	}
	value := c.Update(func(prev int64) int64 { return prev + by })
	s.sync(name)
	return counterResponse(name, value), nil
}

func (s *Server) ensure(ctx context.Context, name string) (*store.Store[int64], error) {
	c, err := s.counters.Ensure(ctx, name, 0)
	if err != nil {
		s.logger.Error("counter unavailable", "counter", name, "error", err)
		return nil, huma.Error503ServiceUnavailable("counter unavailable", err)
	}
	return c, nil
}

// sync retries a stale snapshot. The mutation has already been applied, so
// a write failure is logged rather than returned.
func (s *Server) sync(name string) {
	if err := s.counters.Sync(name); err != nil {
		s.logger.Warn("snapshot behind", "counter", name, "error", err)
	}
}

func counterResponse(name string, value int64) *counterOutput {
	return &counterOutput{Body: CounterBody{Name: name, Value: value}}
}
