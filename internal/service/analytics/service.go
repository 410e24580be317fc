// Package analytics aggregates revenue and performance figures over the
// appointment book. Every figure is recomputed from the repository on demand.
package analytics

import (
	"context"
	"sort"
	"time"

	"salonpro/internal/domain"
	"salonpro/internal/store"
)

type ServiceCount struct {
	ServiceID   int64  `json:"service_id" yaml:"service_id"`
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
	Count       int    `json:"count" yaml:"count"`
}

type StylistPerformance struct {
	StylistID        int64   `json:"stylist_id" yaml:"stylist_id"`
	AppointmentCount int     `json:"appointment_count" yaml:"appointment_count"`
	CompletedCount   int     `json:"completed_count" yaml:"completed_count"`
	NoShowCount      int     `json:"no_show_count" yaml:"no_show_count"`
	CancelledCount   int     `json:"cancelled_count" yaml:"cancelled_count"`
	Revenue          float64 `json:"revenue" yaml:"revenue"`
	NoShowRate       float64 `json:"no_show_rate" yaml:"no_show_rate"`
}

type Service struct {
	repo     store.AppointmentReader
	entities store.EntityStore
	hours    domain.SalonHours
}

func NewService(repo store.AppointmentReader, entities store.EntityStore, hours domain.SalonHours) *Service {
	return &Service{repo: repo, entities: entities, hours: hours}
}

// DailyRevenue sums the prices of completed appointments starting on the
// salon-local calendar day of date.
func (s *Service) DailyRevenue(ctx context.Context, date time.Time) (float64, error) {
	day := s.hours.Day(date)
	return s.RevenueBetween(ctx, day.Start, day.End)
}

// RevenueBetween sums the prices of completed appointments starting in [from, to).
func (s *Service) RevenueBetween(ctx context.Context, from, to time.Time) (float64, error) {
	if !to.After(from) {
		return 0, domain.NewValidationError("range end must be after range start")
	}
	rows, err := s.repo.FindByDateRange(ctx, from, to)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, a := range rows {
		total += a.Revenue()
	}
	return total, nil
}

// ServicePopularity counts scheduled and completed appointments per service
// starting in [from, to), most booked first and ties by service id.
func (s *Service) ServicePopularity(ctx context.Context, from, to time.Time) ([]ServiceCount, error) {
	if !to.After(from) {
		return nil, domain.NewValidationError("range end must be after range start")
	}
	rows, err := s.repo.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	counts := make(map[int64]int)
	for _, a := range rows {
		if a.Status.BlocksTime() {
			counts[a.ServiceID]++
		}
	}

	out := make([]ServiceCount, 0, len(counts))
	for id, n := range counts {
		sc := ServiceCount{ServiceID: id, Count: n}
		if svc, err := s.entities.GetService(ctx, id); err == nil {
			sc.ServiceName = svc.Name
		} else if !domain.IsNotFound(err) {
			return nil, err
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ServiceID < out[j].ServiceID
	})
	return out, nil
}

// StylistPerformance summarises the stylist's appointments starting in
// [from, to). NoShowRate is no-shows over closed appointments (completed,
// no-show and cancelled) and zero when none are closed.
func (s *Service) StylistPerformance(ctx context.Context, stylistID int64, from, to time.Time) (StylistPerformance, error) {
	if !to.After(from) {
		return StylistPerformance{}, domain.NewValidationError("range end must be after range start")
	}
	if _, err := s.entities.GetStylist(ctx, stylistID); err != nil {
		return StylistPerformance{}, err
	}
	rows, err := s.repo.FindByStylistAndRange(ctx, stylistID, from, to)
	if err != nil {
		return StylistPerformance{}, err
	}

	p := StylistPerformance{StylistID: stylistID}
	for _, a := range rows {
		if a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		p.AppointmentCount++
		switch a.Status {
		case domain.StatusCompleted:
			p.CompletedCount++
		case domain.StatusNoShow:
			p.NoShowCount++
		case domain.StatusCancelled:
			p.CancelledCount++
		}
		p.Revenue += a.Revenue()
	}
	if closed := p.CompletedCount + p.NoShowCount + p.CancelledCount; closed > 0 {
		p.NoShowRate = float64(p.NoShowCount) / float64(closed)
	}
	return p, nil
}
