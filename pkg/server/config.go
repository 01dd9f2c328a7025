package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/hookstore/pkg/effect"
	"github.com/vango-dev/hookstore/pkg/snapshot"
	"github.com/vango-dev/hookstore/pkg/telemetry"
)

// Config holds server configuration.
type Config struct {
	// Address is the listen address for ListenAndServe.
	Address string

	// Version is reported in the OpenAPI document.
	Version string

	// ReadBufferSize and WriteBufferSize size WebSocket buffers.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates WebSocket origins. Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// WriteTimeout bounds each WebSocket frame write.
	WriteTimeout time.Duration

	// PingInterval is how often idle streams are pinged.
	PingInterval time.Duration

	// ReadHeaderTimeout is passed to http.Server.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Sink persists counters. Nil disables persistence.
	Sink snapshot.Sink

	// SnapshotPrefix is prepended to every snapshot key.
	SnapshotPrefix string

	// Observer receives store and effect events. Optional.
	Observer telemetry.Observer

	// Gatherer backs GET /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Comparer gates snapshot writes. Default: effect.Serialized.
	Comparer effect.Comparer

	// Logger is the server logger. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
// CheckOrigin enforces same-origin by default.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		Version:           "dev",
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       SameOriginCheck,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		SnapshotPrefix:    "counters/",
		Gatherer:          prometheus.DefaultGatherer,
		Comparer:          effect.Serialized,
	}
}

func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	out := *c
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.Version == "" {
		out.Version = defaults.Version
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaults.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = defaults.CheckOrigin
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.PingInterval == 0 {
		out.PingInterval = defaults.PingInterval
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if out.Gatherer == nil {
		out.Gatherer = defaults.Gatherer
	}
	if out.Comparer == nil {
		out.Comparer = defaults.Comparer
	}
	return &out
}

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}
	return originURL.Host == host
}

// AllowOrigins returns a CheckOrigin that accepts same-origin requests and
// the listed origin hosts.
func AllowOrigins(hosts ...string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if u, err := url.Parse(h); err == nil && u.Host != "" {
			h = u.Host
		}
		allowed[h] = true
	}
	return func(r *http.Request) bool {
		if SameOriginCheck(r) {
			return true
		}
		u, err := url.Parse(r.Header.Get("Origin"))
		return err == nil && allowed[u.Host]
	}
}
