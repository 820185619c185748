// Package remote holds gateways that reach a document store over the network.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

// BreakerConfig configures the circuit breaker around remote calls.
type BreakerConfig struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	// Interval clears failure counts while closed. Zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// FailureThreshold trips the breaker after this many consecutive failures.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         0,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// HTTPConfig configures an HTTPGateway.
type HTTPConfig struct {
	BaseURL string
	Client  *http.Client
	Breaker BreakerConfig
}

// response is one completed HTTP exchange.
type response struct {
	status int
	body   []byte
}

// HTTPGateway talks to a taskcal document-store server. Calls pass through a
// circuit breaker; missing documents do not count as failures.
type HTTPGateway struct {
	base    *url.URL
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[response]
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewHTTPGateway creates a gateway for the server at cfg.BaseURL.
func NewHTTPGateway(cfg HTTPConfig, metrics observability.Metrics, logger *slog.Logger) (*HTTPGateway, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid remote URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid remote URL %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker = DefaultBreakerConfig()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &HTTPGateway{
		base:    base,
		client:  cfg.Client,
		metrics: metrics,
		logger:  logger,
	}
	g.breaker = gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:        base.Host,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Breaker.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, task.ErrNotFound) || errors.Is(err, errRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed",
				"remote", name,
				"from", from.String(),
				"to", to.String(),
			)
			g.metrics.Gauge(observability.MetricBreakerState, float64(to), observability.T("remote", name))
		},
	})
	return g, nil
}

// errRejected marks a 4xx answer: the server is healthy but refused the call.
var errRejected = errors.New("request rejected")

// BreakerState returns the current breaker state.
func (g *HTTPGateway) BreakerState() gobreaker.State {
	return g.breaker.State()
}

// FetchAll handles GET /tasks.
func (g *HTTPGateway) FetchAll(ctx context.Context) ([]task.Record, error) {
	res, err := g.do(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, task.NewTransportError("fetch", err)
	}
	var records []task.Record
	if err := json.Unmarshal(res.body, &records); err != nil {
		return nil, task.NewTransportError("fetch", fmt.Errorf("decode response: %w", err))
	}
	return records, nil
}

// Create handles POST /tasks.
func (g *HTTPGateway) Create(ctx context.Context, r task.Record) (string, error) {
	r.ID = ""
	res, err := g.do(ctx, http.MethodPost, "/tasks", r)
	if err != nil {
		return "", task.NewTransportError("create", err)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(res.body, &created); err != nil {
		return "", task.NewTransportError("create", fmt.Errorf("decode response: %w", err))
	}
	return created.ID, nil
}

// Patch handles PATCH /tasks/{id}.
func (g *HTTPGateway) Patch(ctx context.Context, id string, p task.RecordPatch) error {
	_, err := g.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), p)
	return task.NewTransportError("patch", err)
}

// Delete handles DELETE /tasks/{id}.
func (g *HTTPGateway) Delete(ctx context.Context, id string) error {
	_, err := g.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil)
	return task.NewTransportError("delete", err)
}

// Ping calls GET /health.
func (g *HTTPGateway) Ping(ctx context.Context) error {
	_, err := g.do(ctx, http.MethodGet, "/health", nil)
	return err
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, payload any) (response, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return response{}, err
		}
	}

	return g.breaker.Execute(func() (response, error) {
		req, err := http.NewRequestWithContext(ctx, method, g.base.String()+path, bytes.NewReader(body))
		if err != nil {
			return response{}, err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if id := observability.CorrelationIDFromContext(ctx); id != "" {
			req.Header.Set("X-Correlation-ID", id)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
		if err != nil {
			return response{}, err
		}
		res := response{status: resp.StatusCode, body: data}

		switch {
		case resp.StatusCode == http.StatusNotFound && strings.HasPrefix(path, "/tasks/"):
			return res, task.ErrNotFound
		case resp.StatusCode >= 500:
			return res, fmt.Errorf("%s %s: server returned %d: %s", method, path, resp.StatusCode, errorMessage(data))
		case resp.StatusCode >= 400:
			return res, fmt.Errorf("%w: %s %s: %d: %s", errRejected, method, path, resp.StatusCode, errorMessage(data))
		}
		return res, nil
	})
}

func errorMessage(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	return strings.TrimSpace(string(body))
}
