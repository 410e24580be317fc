package store

import (
	"context"
	"time"

	"salonpro/internal/domain"
)

// AppointmentUpdate is a partial mutation; nil fields are left unchanged.
type AppointmentUpdate struct {
	Status    *domain.Status
	StartTime *time.Time
}

type AppointmentReader interface {
	Get(ctx context.Context, id int64) (domain.Appointment, error)
	// FindByStylistAndRange returns the stylist's appointments whose [start,end)
	// intersects [from,to), ordered by start ascending. All statuses are returned.
	FindByStylistAndRange(ctx context.Context, stylistID int64, from, to time.Time) ([]domain.Appointment, error)
	// FindByClient returns the client's full history, most recent first.
	FindByClient(ctx context.Context, clientID int64) ([]domain.Appointment, error)
	FindByStatus(ctx context.Context, status domain.Status) ([]domain.Appointment, error)
	// FindByDateRange returns appointments of every stylist starting in [from,to).
	FindByDateRange(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
}

type AppointmentRepository interface {
	AppointmentReader

	Insert(ctx context.Context, appt domain.Appointment) (int64, error)
	Update(ctx context.Context, id int64, upd AppointmentUpdate) (domain.Appointment, error)

	// InStylistTransaction runs fn while holding the stylist's exclusive write
	// lock. Writes made through tx become visible atomically when fn returns nil
	// and are discarded otherwise.
	InStylistTransaction(ctx context.Context, stylistID int64, fn func(ctx context.Context, tx StylistTx) error) error
}
