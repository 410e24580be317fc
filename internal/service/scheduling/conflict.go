package scheduling

import (
	"context"
	"time"

	"salonpro/internal/domain"
)

// TimelineReader lists a stylist's appointments intersecting a window. Inside
// a stylist transaction this is the store.StylistTx itself.
type TimelineReader interface {
	ListAppointments(ctx context.Context, stylistID int64, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
}

// Detector decides whether a proposed slot collides with a stylist's
// time-blocking appointments. Every write that places an appointment on a
// timeline calls it while holding that stylist's lock.
type Detector struct{}

// FindConflict returns the earliest scheduled or completed appointment of the
// stylist overlapping [start, start+duration), ignoring excludeID. A nil
// result means the slot is free.
func (Detector) FindConflict(ctx context.Context, r TimelineReader, stylistID int64, start time.Time, duration time.Duration, excludeID int64) (*domain.Appointment, error) {
	proposed := domain.Interval{Start: start.UTC(), End: start.UTC().Add(duration)}

	existing, err := r.ListAppointments(ctx, stylistID, proposed.Start, proposed.End)
	if err != nil {
		return nil, err
	}
	for _, a := range existing {
		if a.ID == excludeID || a.StylistID != stylistID || !a.Status.BlocksTime() {
			continue
		}
		if a.Interval().Overlaps(proposed) {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (d Detector) HasConflict(ctx context.Context, r TimelineReader, stylistID int64, start time.Time, duration time.Duration, excludeID int64) (bool, error) {
	a, err := d.FindConflict(ctx, r, stylistID, start, duration, excludeID)
	if err != nil {
		return false, err
	}
	return a != nil, nil
}

func conflictError(a *domain.Appointment) error {
	return &domain.ConflictError{AppointmentID: a.ID, Start: a.StartTime, End: a.End()}
}
