package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger returns chi middleware that logs one record per request.
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&logFormatter{logger: logger})
}

type logFormatter struct {
	logger *slog.Logger
}

// NewLogEntry creates a new LogEntry for the request.
func (l *logFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	attrs := []any{}

	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		attrs = append(attrs, slog.String("request", reqID))
	}
	attrs = append(attrs, slog.String("from", r.RemoteAddr))

	return &logEntry{
		logger: l.logger,
		attrs:  attrs,
		msg:    fmt.Sprintf("%s %s %s", r.Method, r.RequestURI, r.Proto),
	}
}

type logEntry struct {
	logger *slog.Logger
	attrs  []any
	msg    string
}

func (l *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	attrs := append(l.attrs,
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.String("elapsed", elapsed.String()),
	)

	if status >= 500 {
		l.logger.Error(l.msg, attrs...)
		return
	}
	l.logger.Info(l.msg, attrs...)
}

func (l *logEntry) Panic(v interface{}, stack []byte) {
	l.logger.Error("panic serving request", "panic", fmt.Sprint(v), "stack", string(stack))
}
