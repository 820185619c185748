package observability

import (
	"context"

	"github.com/google/uuid"
)

// Attribute keys shared by logs and metric tags.
const (
	CorrelationIDKey = "correlation_id"
	RequestIDKey     = "request_id"
	DurationKey      = "duration_ms"
	ErrorKey         = "error"
	StatusKey        = "status"
)

type traceKey struct{}

// Trace ties log lines and sync events to the command or HTTP request that
// caused them.
type Trace struct {
	CorrelationID string
	RequestID     string
}

func WithTrace(ctx context.Context, tr Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, tr)
}

func TraceFromContext(ctx context.Context) Trace {
	if ctx == nil {
		return Trace{}
	}
	tr, _ := ctx.Value(traceKey{}).(Trace)
	return tr
}

// WithCorrelationID sets the correlation id, generating one when id is
// empty. The request id is kept.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	tr := TraceFromContext(ctx)
	tr.CorrelationID = id
	return WithTrace(ctx, tr)
}

func CorrelationIDFromContext(ctx context.Context) string {
	return TraceFromContext(ctx).CorrelationID
}

// StartRequest gives ctx a fresh request id and continues correlationID,
// or starts a new one when the caller sent none.
func StartRequest(ctx context.Context, correlationID string) context.Context {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return WithTrace(ctx, Trace{CorrelationID: correlationID, RequestID: uuid.NewString()})
}
