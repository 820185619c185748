// Package api serves a task gateway over HTTP so that remote clients can use
// it as their document store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

// CorrelationHeader carries the caller's correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

type ServerConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "127.0.0.1:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  time.Minute,
	}
}

type Server struct {
	http    *http.Server
	logger  *slog.Logger
	metrics observability.Metrics
	health  *observability.HealthRegistry
}

// NewServer mounts the task routes of h plus /health. Nil health, metrics
// and logger fall back to an empty registry, no-op metrics and slog.Default.
func NewServer(cfg ServerConfig, h *TaskHandler, health *observability.HealthRegistry, metrics observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if health == nil {
		health = observability.NewHealthRegistry()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s := &Server{logger: logger, metrics: metrics, health: health}

	r := mux.NewRouter()
	r.Use(s.observe, handlers.RecoveryHandler(handlers.RecoveryLogger(panicLogger{logger})))
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/tasks", h.List).Methods(http.MethodGet)
	r.HandleFunc("/tasks", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", h.Patch).Methods(http.MethodPatch)
	r.HandleFunc("/tasks/{id}", h.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/views/dashboard", h.Dashboard).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type", CorrelationHeader}),
		handlers.ExposedHeaders([]string{CorrelationHeader}),
	)
	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      cors(r),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Handler exposes the routed handler, CORS included, for tests and
// embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start blocks serving until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("task API listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("task API stopping")
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.GetOverallHealth(r.Context())
	code := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

// observe starts the request trace and records one counter, one timing
// and one log line per request, labelled by route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.StartRequest(r.Context(), r.Header.Get(CorrelationHeader))
		w.Header().Set(CorrelationHeader, observability.CorrelationIDFromContext(ctx))
		r = r.WithContext(ctx)

		m := httpsnoop.CaptureMetrics(next, w, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		method := observability.T("method", r.Method)
		path := observability.T("route", route)
		s.metrics.Counter(observability.MetricHTTPRequests, 1, method, path,
			observability.T(observability.StatusKey, strconv.Itoa(m.Code)))
		s.metrics.Timing(observability.MetricHTTPDuration, m.Duration, method, path)

		s.logger.InfoContext(ctx, "http request",
			"method", r.Method,
			"route", route,
			"bytes", m.Written,
			observability.StatusKey, m.Code,
			observability.DurationKey, m.Duration.Milliseconds(),
		)
	})
}

type panicLogger struct {
	logger *slog.Logger
}

func (l panicLogger) Println(v ...any) {
	l.logger.Error("http handler panicked", "panic", v)
}

// APIError is the JSON body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIError{Code: code, Message: message})
}
