package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"salonpro/internal/domain"
	"salonpro/internal/service/analytics"
	"salonpro/internal/service/scheduling"
	"salonpro/internal/store"
)

// SalonServer adapts the scheduling, query and analytics services to the
// SalonService RPC surface. It owns request validation that depends on the
// wire shape and the mapping from domain errors to status codes.
type SalonServer struct {
	sched    schedulingService
	queries  queryService
	reports  analyticsService
	entities store.EntityAdmin
	log      *slog.Logger
	now      func() time.Time
}

type schedulingService interface {
	Schedule(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error)
	Reschedule(ctx context.Context, id int64, newStart time.Time) (domain.Appointment, error)
	Cancel(ctx context.Context, id int64) (domain.Appointment, error)
	Complete(ctx context.Context, id int64) (domain.Appointment, error)
	MarkNoShow(ctx context.Context, id int64) (domain.Appointment, error)
}

type queryService interface {
	Get(ctx context.Context, id int64) (domain.Appointment, error)
	TodaysAppointments(ctx context.Context, ref time.Time) ([]domain.Appointment, error)
	Upcoming(ctx context.Context, ref time.Time, horizon time.Duration) ([]domain.Appointment, error)
	StylistAvailability(ctx context.Context, stylistID int64, date time.Time, duration time.Duration) ([]domain.Interval, error)
	AvailableSlots(ctx context.Context, stylistID int64, date time.Time, duration, step time.Duration, now time.Time) ([]time.Time, error)
	ClientHistory(ctx context.Context, clientID int64) ([]domain.Appointment, error)
	StylistSchedule(ctx context.Context, stylistID int64, from, to time.Time) ([]domain.Appointment, error)
	AppointmentsOn(ctx context.Context, date time.Time) ([]domain.Appointment, error)
}

type analyticsService interface {
	DailyRevenue(ctx context.Context, date time.Time) (float64, error)
	RevenueBetween(ctx context.Context, from, to time.Time) (float64, error)
	ServicePopularity(ctx context.Context, from, to time.Time) ([]analytics.ServiceCount, error)
	StylistPerformance(ctx context.Context, stylistID int64, from, to time.Time) (analytics.StylistPerformance, error)
}

var _ SalonServiceServer = (*SalonServer)(nil)

func NewSalonServer(sched schedulingService, queries queryService, reports analyticsService, entities store.EntityAdmin, log *slog.Logger) *SalonServer {
	if log == nil {
		log = slog.Default()
	}
	return &SalonServer{
		sched:    sched,
		queries:  queries,
		reports:  reports,
		entities: entities,
		log:      log.With(slog.String("component", "grpc.salon")),
		now:      time.Now,
	}
}

func (s *SalonServer) ScheduleAppointment(ctx context.Context, req *ScheduleAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "ScheduleAppointment"))

	if req == nil {
		return nil, nilRequest(log)
	}
	if req.StartTime.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.Int64("stylist_id", req.StylistID))
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}

	key := idempotencyKey(ctx)
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}

	appt, err := s.sched.Schedule(ctx, scheduling.ScheduleInput{
		ClientID:       req.ClientID,
		StylistID:      req.StylistID,
		ServiceID:      req.ServiceID,
		StartTime:      req.StartTime,
		Notes:          req.Notes,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, s.fail(log, "appointment schedule", err,
			slog.Int64("stylist_id", req.StylistID),
			slog.Int64("client_id", req.ClientID),
			slog.Time("start_time", req.StartTime),
		)
	}

	log.Info(
		"appointment scheduled",
		slog.Int64("appointment_id", appt.ID),
		slog.Int64("stylist_id", appt.StylistID),
		slog.Time("start_time", appt.StartTime),
		slog.Time("end_time", appt.End()),
	)
	return &AppointmentResponse{Appointment: appt}, nil
}

func (s *SalonServer) RescheduleAppointment(ctx context.Context, req *RescheduleAppointmentRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "RescheduleAppointment"))

	if req == nil {
		return nil, nilRequest(log)
	}
	if req.StartTime.IsZero() {
		log.Warn("invalid request", slog.String("reason", "missing_start_time"), slog.Int64("appointment_id", req.ID))
		return nil, status.Error(codes.InvalidArgument, "start_time is required")
	}

	appt, err := s.sched.Reschedule(ctx, req.ID, req.StartTime)
	if err != nil {
		return nil, s.fail(log, "appointment reschedule", err,
			slog.Int64("appointment_id", req.ID),
			slog.Time("start_time", req.StartTime),
		)
	}

	log.Info("appointment rescheduled", slog.Int64("appointment_id", appt.ID), slog.Time("start_time", appt.StartTime))
	return &AppointmentResponse{Appointment: appt}, nil
}

func (s *SalonServer) CancelAppointment(ctx context.Context, req *IDRequest) (*AppointmentResponse, error) {
	return s.transition(ctx, "CancelAppointment", req, s.sched.Cancel)
}

func (s *SalonServer) CompleteAppointment(ctx context.Context, req *IDRequest) (*AppointmentResponse, error) {
	return s.transition(ctx, "CompleteAppointment", req, s.sched.Complete)
}

func (s *SalonServer) MarkNoShow(ctx context.Context, req *IDRequest) (*AppointmentResponse, error) {
	return s.transition(ctx, "MarkNoShow", req, s.sched.MarkNoShow)
}

func (s *SalonServer) transition(ctx context.Context, rpc string, req *IDRequest, apply func(context.Context, int64) (domain.Appointment, error)) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", rpc))

	if req == nil {
		return nil, nilRequest(log)
	}

	appt, err := apply(ctx, req.ID)
	if err != nil {
		return nil, s.fail(log, "appointment status change", err, slog.Int64("appointment_id", req.ID))
	}

	log.Info("appointment status changed", slog.Int64("appointment_id", appt.ID), slog.String("status", string(appt.Status)))
	return &AppointmentResponse{Appointment: appt}, nil
}

func (s *SalonServer) GetAppointment(ctx context.Context, req *IDRequest) (*AppointmentResponse, error) {
	log := s.log.With(slog.String("rpc", "GetAppointment"))

	if req == nil {
		return nil, nilRequest(log)
	}

	appt, err := s.queries.Get(ctx, req.ID)
	if err != nil {
		return nil, s.fail(log, "appointment get", err, slog.Int64("appointment_id", req.ID))
	}
	return &AppointmentResponse{Appointment: appt}, nil
}

func idempotencyKey(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get("idempotency-key")
	if len(values) == 0 {
		values = md.Get("x-idempotency-key")
	}
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}

func nilRequest(log *slog.Logger) error {
	log.Warn("invalid request", slog.String("reason", "nil_request"))
	return status.Error(codes.InvalidArgument, "request is required")
}

// fail logs err at the level its kind deserves and converts it to a status.
// Expected outcomes such as conflicts log at Info; malformed input at Warn.
func (s *SalonServer) fail(log *slog.Logger, op string, err error, attrs ...any) error {
	log = log.With(attrs...)

	var (
		conflict     *domain.ConflictError
		invalidState *domain.InvalidStateError
		vErr         *domain.ValidationError
		notFound     *domain.NotFoundError
	)
	switch {
	case errors.As(err, &conflict):
		log.Info(op+" conflict", slog.Int64("blocking_appointment_id", conflict.AppointmentID))
		return conflictStatus(conflict)
	case errors.Is(err, domain.ErrIdempotencyConflict):
		log.Info(op + " idempotency conflict")
		return status.Error(codes.FailedPrecondition, "This request key was already used for a different appointment. Try again.")
	case errors.As(err, &invalidState):
		log.Info(op+" rejected", slog.String("from", string(invalidState.From)), slog.String("to", string(invalidState.To)))
		return invalidStateStatus(invalidState)
	case errors.Is(err, domain.ErrEntityInUse):
		log.Info(op+" rejected", slog.Any("err", err))
		return entityInUseStatus(err)
	case errors.As(err, &vErr):
		log.Warn("invalid request", slog.Any("err", err))
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.As(err, &notFound):
		log.Info(notFound.Kind+" not found", slog.Int64("id", notFound.ID))
		return status.Error(codes.NotFound, notFound.Error())
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn(op+" timed out", slog.Any("err", err))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		log.Info(op+" canceled by caller")
		return status.Error(codes.Canceled, "request canceled")
	default:
		log.Error(op+" failed", slog.Any("err", err))
		return status.Error(codes.Internal, "internal error")
	}
}
