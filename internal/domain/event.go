package domain

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

const (
	EventAppointmentScheduled   = "appointment.scheduled"
	EventAppointmentRescheduled = "appointment.rescheduled"
	EventAppointmentCancelled   = "appointment.cancelled"
	EventAppointmentCompleted   = "appointment.completed"
	EventAppointmentNoShow      = "appointment.no_show"
)

// OutboxEvent is a lifecycle event written in the same transaction as the
// appointment change it describes and relayed to the message broker later.
type OutboxEvent struct {
	bun.BaseModel `bun:"table:outbox_events"`

	ID          int64      `bun:"id,pk,autoincrement"`
	EventID     string     `bun:"event_id,notnull"`
	EventType   string     `bun:"event_type,notnull"`
	AggregateID int64      `bun:"aggregate_id,notnull"`
	Payload     []byte     `bun:"payload,notnull"`
	Traceparent string     `bun:"traceparent"`
	Tracestate  string     `bun:"tracestate"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	PublishedAt *time.Time `bun:"published_at"`
}

func (e *OutboxEvent) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
