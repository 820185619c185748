package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

// Routing keys for sync events.
const (
	RoutingKeyCommitted = "taskcal.sync.committed"
	RoutingKeyFailed    = "taskcal.sync.failed"
	RoutingKeyLoaded    = "taskcal.sync.loaded"
)

// Outcome values carried by SyncEvent.
const (
	OutcomeCommitted  = "committed"
	OutcomeFailed     = "failed"
	OutcomeRolledBack = "rolled_back"
	OutcomeLoaded     = "loaded"
)

// SyncEvent describes one completed gateway round trip.
type SyncEvent struct {
	Op            Kind   `json:"op"`
	TaskID        string `json:"task_id,omitempty"`
	ProvisionalID string `json:"provisional_id,omitempty"`
	Seq           uint64 `json:"seq,omitempty"`
	Outcome       string `json:"outcome"`
	Stale         bool   `json:"stale,omitempty"`
	Count         int    `json:"count,omitempty"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
}

// RoutingKey returns the key the event is published under.
func (e SyncEvent) RoutingKey() string {
	switch e.Outcome {
	case OutcomeLoaded:
		return RoutingKeyLoaded
	case OutcomeCommitted:
		return RoutingKeyCommitted
	default:
		return RoutingKeyFailed
	}
}

func (c *Controller) publish(ctx context.Context, evt SyncEvent) {
	env, err := eventbus.NewEnvelope(evt.RoutingKey(), evt.TaskID, evt, c.now())
	if err != nil {
		c.logger.Error("failed to encode sync event", "error", err)
		return
	}
	env.CorrelationID = observability.CorrelationIDFromContext(ctx)
	body, err := env.Encode()
	if err != nil {
		c.logger.Error("failed to encode event envelope", "error", err)
		return
	}

	// Publishing must not inherit a cancelled caller context.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.publisher.Publish(pubCtx, env.RoutingKey, body); err != nil {
		c.metrics.Counter(observability.MetricEventsPublished, 1,
			observability.T("routing_key", env.RoutingKey), observability.T("outcome", "error"))
		c.logger.Warn("failed to publish sync event",
			"routing_key", env.RoutingKey,
			"task_id", evt.TaskID,
			"error", err,
		)
		return
	}
	c.metrics.Counter(observability.MetricEventsPublished, 1,
		observability.T("routing_key", env.RoutingKey), observability.T("outcome", "ok"))
}

// RoutingKeyAll matches every sync event.
const RoutingKeyAll = "taskcal.sync.*"

// EventHandler consumes sync events from a bus and hands the decoded event
// to fn.
type EventHandler struct {
	patterns []string
	fn       func(ctx context.Context, env *eventbus.Envelope, evt SyncEvent) error
	metrics  observability.Metrics
}

// NewEventHandler subscribes fn to the given routing key patterns, or to
// every sync event when none are given.
func NewEventHandler(metrics observability.Metrics, fn func(ctx context.Context, env *eventbus.Envelope, evt SyncEvent) error, patterns ...string) *EventHandler {
	if len(patterns) == 0 {
		patterns = []string{RoutingKeyAll}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &EventHandler{patterns: patterns, fn: fn, metrics: metrics}
}

// Patterns implements eventbus.Subscriber.
func (h *EventHandler) Patterns() []string {
	return h.patterns
}

// Handle implements eventbus.Subscriber. Payloads that do not decode are
// dropped.
func (h *EventHandler) Handle(ctx context.Context, env *eventbus.Envelope) error {
	var evt SyncEvent
	if err := json.Unmarshal(env.Payload, &evt); err != nil {
		h.metrics.Counter(observability.MetricEventsConsumed, 1,
			observability.T("routing_key", env.RoutingKey), observability.T("outcome", "invalid"))
		return nil
	}
	err := h.fn(ctx, env, evt)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.metrics.Counter(observability.MetricEventsConsumed, 1,
		observability.T("routing_key", env.RoutingKey), observability.T("outcome", outcome))
	return err
}
