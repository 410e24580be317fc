// Package queries answers read-only temporal questions about the appointment
// book. Results reflect committed state at the time of the call.
package queries

import (
	"context"
	"time"

	"salonpro/internal/domain"
	"salonpro/internal/store"
)

type Service struct {
	repo     store.AppointmentReader
	entities store.EntityStore
	hours    domain.SalonHours
}

func NewService(repo store.AppointmentReader, entities store.EntityStore, hours domain.SalonHours) *Service {
	return &Service{repo: repo, entities: entities, hours: hours}
}

// TodaysAppointments lists the scheduled and completed appointments starting
// on the salon-local calendar day of ref.
func (s *Service) TodaysAppointments(ctx context.Context, ref time.Time) ([]domain.Appointment, error) {
	day := s.hours.Day(ref)
	rows, err := s.repo.FindByDateRange(ctx, day.Start, day.End)
	if err != nil {
		return nil, err
	}
	return keep(rows, func(a domain.Appointment) bool { return a.Status.BlocksTime() }), nil
}

// Upcoming lists scheduled appointments starting after ref. A zero horizon
// means no upper bound; otherwise only starts before ref+horizon are returned.
func (s *Service) Upcoming(ctx context.Context, ref time.Time, horizon time.Duration) ([]domain.Appointment, error) {
	if horizon < 0 {
		return nil, domain.NewValidationError("horizon must not be negative")
	}
	rows, err := s.repo.FindByStatus(ctx, domain.StatusScheduled)
	if err != nil {
		return nil, err
	}
	limit := ref.Add(horizon)
	return keep(rows, func(a domain.Appointment) bool {
		if !a.StartTime.After(ref) {
			return false
		}
		return horizon == 0 || a.StartTime.Before(limit)
	}), nil
}

// StylistAvailability returns the free gaps of the stylist's working window
// on date that can fit an appointment of the given duration.
func (s *Service) StylistAvailability(ctx context.Context, stylistID int64, date time.Time, duration time.Duration) ([]domain.Interval, error) {
	if duration <= 0 {
		return nil, domain.NewValidationError("duration must be positive")
	}
	if _, err := s.entities.GetStylist(ctx, stylistID); err != nil {
		return nil, err
	}

	window := s.hours.WorkingWindow(date)
	rows, err := s.repo.FindByStylistAndRange(ctx, stylistID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	busy := make([]domain.Interval, 0, len(rows))
	for _, a := range rows {
		if a.Status.BlocksTime() {
			busy = append(busy, a.Interval())
		}
	}
	return domain.FreeIntervals(window, busy, duration), nil
}

// AvailableSlots enumerates bookable start times on date, step apart, that
// fit duration and are not before now.
func (s *Service) AvailableSlots(ctx context.Context, stylistID int64, date time.Time, duration, step time.Duration, now time.Time) ([]time.Time, error) {
	if step <= 0 {
		return nil, domain.NewValidationError("step must be positive")
	}
	free, err := s.StylistAvailability(ctx, stylistID, date, duration)
	if err != nil {
		return nil, err
	}
	var slots []time.Time
	for _, gap := range free {
		for t := gap.Start; !t.Add(duration).After(gap.End); t = t.Add(step) {
			if t.Before(now) {
				continue
			}
			slots = append(slots, t)
		}
	}
	return slots, nil
}

// ClientHistory returns every appointment of the client, most recent first.
// History outlives the client record, so a missing client is not an error.
func (s *Service) ClientHistory(ctx context.Context, clientID int64) ([]domain.Appointment, error) {
	return s.repo.FindByClient(ctx, clientID)
}

// StylistSchedule returns the stylist's appointments of any status
// intersecting [from, to).
func (s *Service) StylistSchedule(ctx context.Context, stylistID int64, from, to time.Time) ([]domain.Appointment, error) {
	if !to.After(from) {
		return nil, domain.NewValidationError("range end must be after range start")
	}
	if _, err := s.entities.GetStylist(ctx, stylistID); err != nil {
		return nil, err
	}
	return s.repo.FindByStylistAndRange(ctx, stylistID, from, to)
}

// AppointmentsOn returns every appointment, whatever its status, starting on
// the salon-local calendar day of date.
func (s *Service) AppointmentsOn(ctx context.Context, date time.Time) ([]domain.Appointment, error) {
	day := s.hours.Day(date)
	return s.repo.FindByDateRange(ctx, day.Start, day.End)
}

func (s *Service) Get(ctx context.Context, id int64) (domain.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func keep(rows []domain.Appointment, pred func(domain.Appointment) bool) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(rows))
	for _, a := range rows {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}
