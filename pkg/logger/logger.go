// Package logger configures logrus and bridges it into chi's request logging.
package logger

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// New builds a logger writing to stdout. Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter is New with an explicit destination
func NewWithWriter(out io.Writer, level, format string) *logrus.Logger {
	l := logrus.New()
	l.Out = out

	if format == "text" {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return l
}

// RequestLogger returns chi middleware that writes one structured line per
// request through l.
func RequestLogger(l logrus.FieldLogger) func(http.Handler) http.Handler {
	return middleware.RequestLogger(&formatter{logger: l})
}

// FromRequest returns the request-scoped entry set up by RequestLogger, or a
// standalone entry when the middleware is not installed.
func FromRequest(r *http.Request) logrus.FieldLogger {
	if entry, ok := middleware.GetLogEntry(r).(*logEntry); ok {
		return entry.logger
	}
	return logrus.StandardLogger()
}

type formatter struct {
	logger logrus.FieldLogger
}

func (f *formatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	fields := logrus.Fields{
		"method":      r.Method,
		"path":        r.URL.Path,
		"remote_addr": r.RemoteAddr,
	}
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		fields["request_id"] = reqID
	}

	return &logEntry{logger: f.logger.WithFields(fields)}
}

type logEntry struct {
	logger logrus.FieldLogger
}

func (e *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra any) {
	entry := e.logger.WithFields(logrus.Fields{
		"status":      status,
		"bytes":       bytes,
		"duration_ms": float64(elapsed.Microseconds()) / 1000,
	})

	switch {
	case status >= 500:
		entry.Error("request completed")
	case status >= 400:
		entry.Warn("request completed")
	default:
		entry.Info("request completed")
	}
}

func (e *logEntry) Panic(v any, stack []byte) {
	e.logger.WithFields(logrus.Fields{
		"panic": v,
		"stack": string(stack),
	}).Error("request panicked")
}
