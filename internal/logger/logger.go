// Package logger configures logrus and carries a request-scoped entry in
// context.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	entryKey     contextKey = "logger"
)

// New creates a JSON logger at the given level. Unknown or empty levels fall
// back to info.
func New(level string) *logrus.Logger {
	return NewWithOutput(level, os.Stdout)
}

// NewWithOutput is New writing to w.
func NewWithOutput(level string, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(ParseLevel(level))
	return log
}

// ParseLevel parses a level name case-insensitively, defaulting to info.
func ParseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithEntry stores a log entry in context
func WithEntry(ctx context.Context, e *logrus.Entry) context.Context {
	return context.WithValue(ctx, entryKey, e)
}

// FromContext returns the entry stored in ctx. Without one it returns an
// entry of the standard logger, tagged with the request ID when present.
func FromContext(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(entryKey).(*logrus.Entry); ok && e != nil {
		return e
	}
	e := logrus.NewEntry(logrus.StandardLogger())
	if id := RequestIDFromContext(ctx); id != "" {
		e = e.WithField("request_id", id)
	}
	return e
}
