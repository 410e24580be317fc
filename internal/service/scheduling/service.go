// Package scheduling is the write side of the appointment core: it books,
// moves and closes appointments while keeping each stylist's timeline free of
// double bookings.
package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"salonpro/internal/domain"
	"salonpro/internal/events"
	"salonpro/internal/store"
)

const maxIdempotencyKeyLen = 256

type Config struct {
	// AllowPastBooking permits Schedule and Reschedule to place appointments
	// before the current time (back-office data entry).
	AllowPastBooking bool
	// StrictCompletion rejects Complete until the appointment has ended.
	StrictCompletion bool
	Now              func() time.Time
}

func DefaultConfig() Config {
	return Config{StrictCompletion: true}
}

type Service struct {
	repo     store.AppointmentRepository
	entities store.EntityStore
	detector Detector
	cfg      Config
}

func NewService(repo store.AppointmentRepository, entities store.EntityStore, cfg Config) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{repo: repo, entities: entities, cfg: cfg}
}

func (s *Service) now() time.Time {
	return s.cfg.Now().UTC()
}

type ScheduleInput struct {
	ClientID       int64
	StylistID      int64
	ServiceID      int64
	StartTime      time.Time
	Notes          string
	IdempotencyKey string
}

// Schedule books a new appointment. Duration and price are copied from the
// service so later catalogue edits do not rewrite booked history.
func (s *Service) Schedule(ctx context.Context, in ScheduleInput) (domain.Appointment, error) {
	if in.StartTime.IsZero() {
		return domain.Appointment{}, domain.NewValidationError("start_time is required")
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > maxIdempotencyKeyLen {
		return domain.Appointment{}, domain.NewValidationError("idempotency_key too long")
	}

	if _, err := s.entities.GetClient(ctx, in.ClientID); err != nil {
		return domain.Appointment{}, referenceError("client", err)
	}
	stylist, err := s.entities.GetStylist(ctx, in.StylistID)
	if err != nil {
		return domain.Appointment{}, referenceError("stylist", err)
	}
	if !stylist.Active {
		return domain.Appointment{}, domain.NewValidationError("stylist is not active")
	}
	svc, err := s.entities.GetService(ctx, in.ServiceID)
	if err != nil {
		return domain.Appointment{}, referenceError("service", err)
	}
	if !svc.Active {
		return domain.Appointment{}, domain.NewValidationError("service is not active")
	}
	if svc.DurationMinutes <= 0 {
		return domain.Appointment{}, domain.NewValidationError("service duration must be positive")
	}
	if svc.Price < 0 {
		return domain.Appointment{}, domain.NewValidationError("service price must not be negative")
	}

	start := in.StartTime.UTC()
	appt := domain.Appointment{
		ClientID:        in.ClientID,
		StylistID:       in.StylistID,
		ServiceID:       in.ServiceID,
		StartTime:       start,
		DurationMinutes: svc.DurationMinutes,
		Price:           svc.Price,
		Status:          domain.StatusScheduled,
		Notes:           strings.TrimSpace(in.Notes),
	}
	if key != "" {
		appt.IdempotencyKey = &key
	}

	var out domain.Appointment
	err = s.repo.InStylistTransaction(ctx, in.StylistID, func(ctx context.Context, tx store.StylistTx) error {
		if key != "" {
			existing, ok, err := tx.FindByIdempotencyKey(ctx, key)
			if err != nil {
				return err
			}
			if ok {
				if !sameBooking(existing, appt) {
					return domain.ErrIdempotencyConflict
				}
				out = existing
				return nil
			}
		}

		if err := s.checkNotPast(start); err != nil {
			return err
		}
		conflict, err := s.detector.FindConflict(ctx, tx, in.StylistID, start, svc.Duration(), 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflictError(conflict)
		}

		created, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		if err := events.Record(ctx, tx, domain.EventAppointmentScheduled, created, s.now()); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// Reschedule moves a scheduled appointment to newStart with the same stylist
// and duration. The appointment's own current slot never counts as a conflict.
func (s *Service) Reschedule(ctx context.Context, id int64, newStart time.Time) (domain.Appointment, error) {
	if newStart.IsZero() {
		return domain.Appointment{}, domain.NewValidationError("start_time is required")
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	start := newStart.UTC()
	var out domain.Appointment
	err = s.repo.InStylistTransaction(ctx, current.StylistID, func(ctx context.Context, tx store.StylistTx) error {
		a, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != domain.StatusScheduled {
			return &domain.InvalidStateError{AppointmentID: id, From: a.Status, To: domain.StatusScheduled}
		}
		if err := s.checkNotPast(start); err != nil {
			return err
		}

		conflict, err := s.detector.FindConflict(ctx, tx, a.StylistID, start, a.Duration(), a.ID)
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflictError(conflict)
		}

		updated, err := tx.UpdateAppointment(ctx, id, store.AppointmentUpdate{StartTime: &start})
		if err != nil {
			return err
		}
		if err := events.Record(ctx, tx, domain.EventAppointmentRescheduled, updated, s.now()); err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, id int64) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusCancelled, domain.EventAppointmentCancelled, nil)
}

func (s *Service) Complete(ctx context.Context, id int64) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusCompleted, domain.EventAppointmentCompleted, func(a domain.Appointment) error {
		if s.cfg.StrictCompletion {
			return s.checkEnded(a)
		}
		return nil
	})
}

// MarkNoShow records that the client never arrived; it is only meaningful
// once the booked slot is over.
func (s *Service) MarkNoShow(ctx context.Context, id int64) (domain.Appointment, error) {
	return s.transition(ctx, id, domain.StatusNoShow, domain.EventAppointmentNoShow, s.checkEnded)
}

func (s *Service) transition(ctx context.Context, id int64, to domain.Status, eventType string, guard func(domain.Appointment) error) (domain.Appointment, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = s.repo.InStylistTransaction(ctx, current.StylistID, func(ctx context.Context, tx store.StylistTx) error {
		a, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if !a.Status.CanTransitionTo(to) {
			return &domain.InvalidStateError{AppointmentID: id, From: a.Status, To: to}
		}
		if guard != nil {
			if err := guard(a); err != nil {
				return err
			}
		}

		updated, err := tx.UpdateAppointment(ctx, id, store.AppointmentUpdate{Status: &to})
		if err != nil {
			return err
		}
		if err := events.Record(ctx, tx, eventType, updated, s.now()); err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) checkNotPast(start time.Time) error {
	if s.cfg.AllowPastBooking {
		return nil
	}
	if start.Before(s.now()) {
		return domain.NewValidationError("start_time must not be in the past")
	}
	return nil
}

func (s *Service) checkEnded(a domain.Appointment) error {
	if a.End().After(s.now()) {
		return domain.NewValidationError("appointment has not ended yet")
	}
	return nil
}

func referenceError(kind string, err error) error {
	if domain.IsNotFound(err) {
		return domain.WrapValidation("unknown "+kind, err)
	}
	return err
}

func sameBooking(existing, requested domain.Appointment) bool {
	return existing.ClientID == requested.ClientID &&
		existing.StylistID == requested.StylistID &&
		existing.ServiceID == requested.ServiceID &&
		existing.StartTime.Equal(requested.StartTime)
}

// IsConflict reports whether err is a double-booking rejection.
func IsConflict(err error) bool {
	var ce *domain.ConflictError
	return errors.As(err, &ce)
}
