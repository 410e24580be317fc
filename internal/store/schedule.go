package store

import (
	"context"
	"time"

	"salonpro/internal/domain"
)

// StylistTx is the view of the store available while a stylist's timeline is locked.
type StylistTx interface {
	GetAppointment(ctx context.Context, id int64) (domain.Appointment, error)
	ListAppointments(ctx context.Context, stylistID int64, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (domain.Appointment, bool, error)

	// CreateAppointment validates references and field values and assigns the id.
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, id int64, upd AppointmentUpdate) (domain.Appointment, error)

	RecordEvent(ctx context.Context, ev domain.OutboxEvent) error
}
