package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/hookstore/pkg/store"
)

// maxClientMessage bounds client op frames.
const maxClientMessage = 1024

// Frame is a counter value pushed to stream clients.
type Frame struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// ClientOp is a mutation sent by a stream client.
type ClientOp struct {
	Op    string `json:"op"`
	By    int64  `json:"by,omitempty"`
	Value int64  `json:"value,omitempty"`
}

// stream is one WebSocket subscriber of one counter.
type stream struct {
	id      string
	name    string
	conn    *websocket.Conn
	counter *store.Store[int64]
	server  *Server
	logger  *slog.Logger

	// notify holds at most one pending change; further changes coalesce.
	notify chan struct{}

	quit     chan struct{}
	quitOnce sync.Once
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !ValidName(name) {
		http.Error(w, "invalid counter name", http.StatusBadRequest)
		return
	}

	// Counters are created only for accepted streams.
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	counter, err := s.counters.Ensure(r.Context(), name, 0)
	if err != nil {
		s.logger.Error("counter unavailable", "counter", name, "error", err)
		conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "counter unavailable"))
		conn.Close()
		return
	}

	st := &stream{
		id:      uuid.NewString(),
		name:    name,
		conn:    conn,
		counter: counter,
		server:  s,
		notify:  make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
	st.logger = s.logger.With("stream", st.id, "counter", name)

	s.addStream(st)
	defer s.removeStream(st)

	st.run()
}

func (st *stream) close() {
	st.quitOnce.Do(func() { close(st.quit) })
}

func (st *stream) changed() {
	select {
	case st.notify <- struct{}{}:
	default:
	}
}

// run writes frames until the client disconnects or the server shuts down.
func (st *stream) run() {
	defer st.conn.Close()

	unsubscribe := st.counter.Subscribe(st.changed)
	defer unsubscribe()

	st.logger.Debug("stream opened")
	defer st.logger.Debug("stream closed")

	go st.readLoop()

	if err := st.writeFrame(); err != nil {
		return
	}

	ping := time.NewTicker(st.server.config.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-st.quit:
			st.conn.SetWriteDeadline(time.Now().Add(st.server.config.WriteTimeout))
			st.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return

		case <-st.notify:
			if err := st.writeFrame(); err != nil {
				return
			}

		case <-ping.C:
			st.conn.SetWriteDeadline(time.Now().Add(st.server.config.WriteTimeout))
			if err := st.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (st *stream) writeFrame() error {
	st.conn.SetWriteDeadline(time.Now().Add(st.server.config.WriteTimeout))
	err := st.conn.WriteJSON(Frame{Name: st.name, Value: st.counter.Snapshot()})
	if err != nil {
		st.logger.Debug("stream write failed", "error", err)
	}
	return err
}

// readLoop applies client ops and closes the stream when the connection
// fails.
func (st *stream) readLoop() {
	defer st.close()

	st.conn.SetReadLimit(maxClientMessage)
	for {
		_, data, err := st.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				st.logger.Debug("stream read failed", "error", err)
			}
			return
		}

		var op ClientOp
		if err := json.Unmarshal(data, &op); err != nil {
			st.logger.Warn("invalid client message", "error", err)
			continue
		}
		st.apply(op)
	}
}

func (st *stream) apply(op ClientOp) {
	switch op.Op {
	case "increment", "decrement":
		by := op.By
		if by == 0 {
			by = 1
		}
		if op.Op == "decrement" {
			by = -by
		}
		st.counter.Update(func(prev int64) int64 { return prev + by })
	case "set":
		st.counter.Set(op.Value)
	default:
		st.logger.Warn("unknown client op", "op", op.Op)
		return
	}
	st.server.sync(st.name)
}
