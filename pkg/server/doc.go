// Package server exposes named int64 counters over HTTP and WebSocket.
//
// Each counter is a store.Store[int64] held in a store.Registry. The REST
// API is built with huma on a chi router:
//
//	GET  /api/counters
//	GET  /api/counters/{name}
//	PUT  /api/counters/{name}
//	POST /api/counters/{name}/increment?by=N
//	POST /api/counters/{name}/decrement?by=N
//
// GET /ws/counters/{name} streams {"name","value"} frames: the current value
// first, then one frame per change. Changes that arrive faster than the
// client reads are coalesced into the latest value. Clients may send
// {"op":"increment","by":N}, {"op":"decrement","by":N} or
// {"op":"set","value":N} on the same connection.
//
// When a snapshot.Sink is configured every counter is persisted through a
// dependency-gated effect, so only value changes are written.
//
// GET /metrics serves Prometheus metrics and GET /healthz reports liveness.
package server
