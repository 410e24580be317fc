// Package events records appointment lifecycle events in the transactional
// outbox and relays them to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"salonpro/internal/domain"
	"salonpro/internal/store"
)

// Envelope is the JSON payload of every appointment event.
type Envelope struct {
	EventID     string             `json:"event_id"`
	EventType   string             `json:"event_type"`
	OccurredAt  time.Time          `json:"occurred_at"`
	Appointment domain.Appointment `json:"appointment"`
}

// NewOutboxEvent builds the outbox row for appt, capturing the caller's trace
// context so the relay can continue the trace when it publishes.
func NewOutboxEvent(ctx context.Context, eventType string, appt domain.Appointment, now time.Time) (domain.OutboxEvent, error) {
	env := Envelope{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		OccurredAt:  now.UTC(),
		Appointment: appt,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return domain.OutboxEvent{}, err
	}

	traceparent, tracestate := TraceContextStrings(ctx)
	return domain.OutboxEvent{
		EventID:     env.EventID,
		EventType:   eventType,
		AggregateID: appt.ID,
		Payload:     payload,
		Traceparent: traceparent,
		Tracestate:  tracestate,
		CreatedAt:   env.OccurredAt,
	}, nil
}

// Record writes the event for appt through tx.
func Record(ctx context.Context, tx store.StylistTx, eventType string, appt domain.Appointment, now time.Time) error {
	ev, err := NewOutboxEvent(ctx, eventType, appt, now)
	if err != nil {
		return err
	}
	return tx.RecordEvent(ctx, ev)
}

func TraceContextStrings(ctx context.Context) (traceparent string, tracestate string) {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier["traceparent"], carrier["tracestate"]
}

func ContextWithTraceContext(ctx context.Context, traceparent string, tracestate string) context.Context {
	if traceparent == "" && tracestate == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{
		"traceparent": traceparent,
		"tracestate":  tracestate,
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
