package persistence

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

// InstrumentedGateway counts and times every call of the wrapped gateway.
type InstrumentedGateway struct {
	next    task.Gateway
	store   string
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewInstrumentedGateway wraps next. store names the backend in metric tags.
func NewInstrumentedGateway(next task.Gateway, store string, metrics observability.Metrics, logger *slog.Logger) *InstrumentedGateway {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InstrumentedGateway{
		next:    next,
		store:   store,
		metrics: metrics,
		logger:  logger.With("store", store),
	}
}

// Unwrap returns the wrapped gateway.
func (g *InstrumentedGateway) Unwrap() task.Gateway {
	return g.next
}

// observe records one call. A missing task is a normal answer, not a
// backend failure, so it gets its own outcome.
func (g *InstrumentedGateway) observe(ctx context.Context, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := "ok"
	switch {
	case errors.Is(err, task.ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}

	g.metrics.Counter(observability.MetricGatewayCalls, 1,
		observability.T("store", g.store), observability.T("op", op), observability.T("outcome", outcome))
	g.metrics.Timing(observability.MetricGatewayDuration, elapsed,
		observability.T("store", g.store), observability.T("op", op))

	if outcome == "error" {
		g.logger.WarnContext(ctx, "gateway call failed", "op", op,
			observability.DurationKey, elapsed.Milliseconds(), observability.ErrorKey, err)
		return
	}
	g.logger.DebugContext(ctx, "gateway call", "op", op, "outcome", outcome,
		observability.DurationKey, elapsed.Milliseconds())
}

func (g *InstrumentedGateway) FetchAll(ctx context.Context) ([]task.Record, error) {
	start := time.Now()
	records, err := g.next.FetchAll(ctx)
	g.observe(ctx, "fetch", start, err)
	return records, err
}

func (g *InstrumentedGateway) Create(ctx context.Context, r task.Record) (string, error) {
	start := time.Now()
	id, err := g.next.Create(ctx, r)
	g.observe(ctx, "create", start, err)
	return id, err
}

func (g *InstrumentedGateway) Patch(ctx context.Context, id string, p task.RecordPatch) error {
	start := time.Now()
	err := g.next.Patch(ctx, id, p)
	g.observe(ctx, "patch", start, err)
	return err
}

func (g *InstrumentedGateway) Delete(ctx context.Context, id string) error {
	start := time.Now()
	err := g.next.Delete(ctx, id)
	g.observe(ctx, "delete", start, err)
	return err
}

// ErrPingUnsupported is returned by Ping when the wrapped gateway cannot
// report its health.
var ErrPingUnsupported = errors.New("gateway does not support ping")

// Ping forwards to the wrapped gateway when it implements task.Pinger.
func (g *InstrumentedGateway) Ping(ctx context.Context) error {
	p, ok := g.next.(task.Pinger)
	if !ok {
		return ErrPingUnsupported
	}
	return p.Ping(ctx)
}
