// Package observability provides structured logging, metrics and health
// checks for taskcal.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig configures NewLogger.
type LogConfig struct {
	Level     slog.Level
	JSON      bool
	AddSource bool
	// Output defaults to os.Stderr.
	Output  io.Writer
	Service string
	Version string
}

// LogConfigFromEnv reads TASKCAL_ENV, TASKCAL_LOG_LEVEL, TASKCAL_LOG_FORMAT
// and TASKCAL_VERSION. Production defaults to JSON with source locations.
// An unknown level falls back to info.
func LogConfigFromEnv() LogConfig {
	cfg := LogConfig{Level: slog.LevelInfo, Service: "taskcal", Version: "dev"}
	if os.Getenv("TASKCAL_ENV") == "production" {
		cfg.JSON = true
		cfg.AddSource = true
	}
	if lvl, err := ParseLevel(os.Getenv("TASKCAL_LOG_LEVEL")); err == nil {
		cfg.Level = lvl
	}
	switch strings.ToLower(os.Getenv("TASKCAL_LOG_FORMAT")) {
	case "json":
		cfg.JSON = true
	case "text":
		cfg.JSON = false
	}
	if v := os.Getenv("TASKCAL_VERSION"); v != "" {
		cfg.Version = v
	}
	return cfg
}

// LoggerFromEnv is NewLogger(LogConfigFromEnv()).
func LoggerFromEnv() *slog.Logger {
	return NewLogger(LogConfigFromEnv())
}

// ParseLevel accepts debug, info, warn or error in any case. An empty
// string is an error so callers can keep their default.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if s == "" {
		return lvl, fmt.Errorf("empty log level")
	}
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return lvl, fmt.Errorf("invalid log level %q", s)
	}
	return lvl, nil
}

// NewLogger builds a slog logger that stamps every record with the service
// name, version and the Trace carried by the record's context.
func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	var h slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.JSON {
		h = slog.NewJSONHandler(out, opts)
	}

	var attrs []slog.Attr
	if cfg.Service != "" {
		attrs = append(attrs, slog.String("service", cfg.Service))
	}
	if cfg.Version != "" {
		attrs = append(attrs, slog.String("version", cfg.Version))
	}
	return slog.New(traceHandler{h.WithAttrs(attrs)})
}

type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	tr := TraceFromContext(ctx)
	if tr.CorrelationID != "" {
		r.AddAttrs(slog.String(CorrelationIDKey, tr.CorrelationID))
	}
	if tr.RequestID != "" {
		r.AddAttrs(slog.String(RequestIDKey, tr.RequestID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}
