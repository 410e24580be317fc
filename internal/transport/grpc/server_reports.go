package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (s *SalonServer) TodaysAppointments(ctx context.Context, req *TodaysAppointmentsRequest) (*AppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "TodaysAppointments"))

	if req == nil {
		return nil, nilRequest(log)
	}
	ref := req.Reference
	if ref.IsZero() {
		ref = s.now()
	}

	appts, err := s.queries.TodaysAppointments(ctx, ref)
	if err != nil {
		return nil, s.fail(log, "todays appointments", err, slog.Time("reference", ref))
	}
	log.Debug("appointments listed", slog.Int("count", len(appts)))
	return &AppointmentsResponse{Appointments: appts}, nil
}

func (s *SalonServer) UpcomingAppointments(ctx context.Context, req *UpcomingAppointmentsRequest) (*AppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "UpcomingAppointments"))

	if req == nil {
		return nil, nilRequest(log)
	}
	ref := req.Reference
	if ref.IsZero() {
		ref = s.now()
	}
	horizon := time.Duration(req.HorizonMinutes) * time.Minute

	appts, err := s.queries.Upcoming(ctx, ref, horizon)
	if err != nil {
		return nil, s.fail(log, "upcoming appointments", err, slog.Time("reference", ref), slog.Duration("horizon", horizon))
	}
	log.Debug("appointments listed", slog.Int("count", len(appts)))
	return &AppointmentsResponse{Appointments: appts}, nil
}

func (s *SalonServer) StylistAvailability(ctx context.Context, req *StylistAvailabilityRequest) (*StylistAvailabilityResponse, error) {
	log := s.log.With(slog.String("rpc", "StylistAvailability"))

	if req == nil {
		return nil, nilRequest(log)
	}
	if req.Date.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_date"), slog.Int64("stylist_id", req.StylistID))
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	attrs := []any{slog.Int64("stylist_id", req.StylistID), slog.Time("date", req.Date)}

	free, err := s.queries.StylistAvailability(ctx, req.StylistID, req.Date, duration)
	if err != nil {
		return nil, s.fail(log, "stylist availability", err, attrs...)
	}
	resp := &StylistAvailabilityResponse{Free: free}

	if req.StepMinutes > 0 {
		step := time.Duration(req.StepMinutes) * time.Minute
		slots, err := s.queries.AvailableSlots(ctx, req.StylistID, req.Date, duration, step, s.now())
		if err != nil {
			return nil, s.fail(log, "stylist slots", err, attrs...)
		}
		resp.Slots = slots
	}
	return resp, nil
}

func (s *SalonServer) ClientHistory(ctx context.Context, req *ClientHistoryRequest) (*AppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "ClientHistory"))

	if req == nil {
		return nil, nilRequest(log)
	}

	appts, err := s.queries.ClientHistory(ctx, req.ClientID)
	if err != nil {
		return nil, s.fail(log, "client history", err, slog.Int64("client_id", req.ClientID))
	}
	return &AppointmentsResponse{Appointments: appts}, nil
}

func (s *SalonServer) StylistSchedule(ctx context.Context, req *StylistRangeRequest) (*AppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "StylistSchedule"))

	if req == nil {
		return nil, nilRequest(log)
	}

	appts, err := s.queries.StylistSchedule(ctx, req.StylistID, req.From, req.To)
	if err != nil {
		return nil, s.fail(log, "stylist schedule", err,
			slog.Int64("stylist_id", req.StylistID),
			slog.Time("from", req.From),
			slog.Time("to", req.To),
		)
	}
	return &AppointmentsResponse{Appointments: appts}, nil
}

func (s *SalonServer) AppointmentsOn(ctx context.Context, req *DateRequest) (*AppointmentsResponse, error) {
	log := s.log.With(slog.String("rpc", "AppointmentsOn"))

	if req == nil {
		return nil, nilRequest(log)
	}
	if req.Date.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_date"))
		return nil, status.Error(codes.InvalidArgument, "date is required")
	}

	appts, err := s.queries.AppointmentsOn(ctx, req.Date)
	if err != nil {
		return nil, s.fail(log, "appointments on date", err, slog.Time("date", req.Date))
	}
	return &AppointmentsResponse{Appointments: appts}, nil
}

func (s *SalonServer) DailyRevenue(ctx context.Context, req *DateRequest) (*RevenueResponse, error) {
	log := s.log.With(slog.String("rpc", "DailyRevenue"))

	if req == nil {
		return nil, nilRequest(log)
	}
	date := req.Date
	if date.IsZero() {
		date = s.now()
	}

	revenue, err := s.reports.DailyRevenue(ctx, date)
	if err != nil {
		return nil, s.fail(log, "daily revenue", err, slog.Time("date", date))
	}
	return &RevenueResponse{Revenue: revenue}, nil
}

func (s *SalonServer) RevenueBetween(ctx context.Context, req *RangeRequest) (*RevenueResponse, error) {
	log := s.log.With(slog.String("rpc", "RevenueBetween"))

	if req == nil {
		return nil, nilRequest(log)
	}

	revenue, err := s.reports.RevenueBetween(ctx, req.From, req.To)
	if err != nil {
		return nil, s.fail(log, "revenue between", err, slog.Time("from", req.From), slog.Time("to", req.To))
	}
	return &RevenueResponse{Revenue: revenue}, nil
}

func (s *SalonServer) ServicePopularity(ctx context.Context, req *RangeRequest) (*ServicePopularityResponse, error) {
	log := s.log.With(slog.String("rpc", "ServicePopularity"))

	if req == nil {
		return nil, nilRequest(log)
	}

	counts, err := s.reports.ServicePopularity(ctx, req.From, req.To)
	if err != nil {
		return nil, s.fail(log, "service popularity", err, slog.Time("from", req.From), slog.Time("to", req.To))
	}
	return &ServicePopularityResponse{Services: counts}, nil
}

func (s *SalonServer) StylistPerformance(ctx context.Context, req *StylistRangeRequest) (*StylistPerformanceResponse, error) {
	log := s.log.With(slog.String("rpc", "StylistPerformance"))

	if req == nil {
		return nil, nilRequest(log)
	}

	perf, err := s.reports.StylistPerformance(ctx, req.StylistID, req.From, req.To)
	if err != nil {
		return nil, s.fail(log, "stylist performance", err,
			slog.Int64("stylist_id", req.StylistID),
			slog.Time("from", req.From),
			slog.Time("to", req.To),
		)
	}
	return &StylistPerformanceResponse{Performance: perf}, nil
}
