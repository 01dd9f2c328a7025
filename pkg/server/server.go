package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the counter API.
type Server struct {
	config   *Config
	counters *Counters
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	streams map[string]*stream
}

// New creates a server. A nil config uses DefaultConfig.
func New(config *Config) *Server {
	config = config.withDefaults()

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	config.Logger = logger

	s := &Server{
		config:   config,
		counters: NewCounters(config),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger:  logger.With("component", "server"),
		streams: make(map[string]*stream),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	api := humachi.New(r, huma.DefaultConfig("hookstore", s.config.Version))
	s.registerAPI(api)

	r.Get("/ws/counters/{name}", s.handleStream)
	r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	return r
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Counters returns the server's counters.
func (s *Server) Counters() *Counters {
	return s.counters
}

// Config returns the effective configuration.
func (s *Server) Config() *Config {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

func (s *Server) addStream(st *stream) {
	s.mu.Lock()
	s.streams[st.id] = st
	n := len(s.streams)
	s.mu.Unlock()
	s.logger.Debug("stream added", "stream", st.id, "streams", n)
}

func (s *Server) removeStream(st *stream) {
	s.mu.Lock()
	delete(s.streams, st.id)
	s.mu.Unlock()
}

// StreamCount returns the number of open WebSocket streams.
func (s *Server) StreamCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// closeStreams asks every open stream to send a close frame and exit.
// http.Server.Shutdown does not track hijacked connections.
func (s *Server) closeStreams() {
	s.mu.Lock()
	streams := make([]*stream, 0, len(s.streams))
	for _, st := range s.streams {
		streams = append(streams, st)
	}
	s.mu.Unlock()

	for _, st := range streams {
		st.close()
	}
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully within
// ShutdownTimeout. It returns ctx.Err() after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errC := make(chan error, 1)
	go func() { errC <- httpServer.Serve(ln) }()
	s.logger.Info("server listening", "address", ln.Addr().String())

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.closeStreams()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("shutdown incomplete", "error", err)
	}
	if err := <-errC; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return ctx.Err()
}

// Close stops persistence and disposes all counters.
func (s *Server) Close() {
	s.closeStreams()
	s.counters.Close()
}
