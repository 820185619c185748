package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire format of every message on the bus.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	RoutingKey    string          `json:"routing_key"`
	TaskID        string          `json:"task_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope encodes payload and stamps a fresh event id.
func NewEnvelope(routingKey, taskID string, payload any, occurredAt time.Time) (*Envelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", routingKey, err)
	}
	return &Envelope{
		EventID:    uuid.New(),
		RoutingKey: routingKey,
		TaskID:     taskID,
		OccurredAt: occurredAt.UTC(),
		Payload:    body,
	}, nil
}

// Encode returns the JSON body published to the broker.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope parses a message body. The transport routing key is used
// when the body does not carry one.
func DecodeEnvelope(body []byte, routingKey string) (*Envelope, error) {
	env := &Envelope{}
	if err := json.Unmarshal(body, env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.RoutingKey == "" {
		env.RoutingKey = routingKey
	}
	return env, nil
}
