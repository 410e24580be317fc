package grpc

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"salonpro/internal/domain"
	"salonpro/internal/service/scheduling"
	"salonpro/internal/store"
)

type fakeScheduling struct {
	scheduleFn   func(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error)
	rescheduleFn func(ctx context.Context, id int64, newStart time.Time) (domain.Appointment, error)
	cancelFn     func(ctx context.Context, id int64) (domain.Appointment, error)
	completeFn   func(ctx context.Context, id int64) (domain.Appointment, error)
	noShowFn     func(ctx context.Context, id int64) (domain.Appointment, error)
}

func (f *fakeScheduling) Schedule(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error) {
	if f.scheduleFn == nil {
		panic("Schedule not configured")
	}
	return f.scheduleFn(ctx, in)
}

func (f *fakeScheduling) Reschedule(ctx context.Context, id int64, newStart time.Time) (domain.Appointment, error) {
	if f.rescheduleFn == nil {
		panic("Reschedule not configured")
	}
	return f.rescheduleFn(ctx, id, newStart)
}

func (f *fakeScheduling) Cancel(ctx context.Context, id int64) (domain.Appointment, error) {
	if f.cancelFn == nil {
		panic("Cancel not configured")
	}
	return f.cancelFn(ctx, id)
}

func (f *fakeScheduling) Complete(ctx context.Context, id int64) (domain.Appointment, error) {
	if f.completeFn == nil {
		panic("Complete not configured")
	}
	return f.completeFn(ctx, id)
}

func (f *fakeScheduling) MarkNoShow(ctx context.Context, id int64) (domain.Appointment, error) {
	if f.noShowFn == nil {
		panic("MarkNoShow not configured")
	}
	return f.noShowFn(ctx, id)
}

type fakeQueries struct {
	getFn          func(ctx context.Context, id int64) (domain.Appointment, error)
	todaysFn       func(ctx context.Context, ref time.Time) ([]domain.Appointment, error)
	upcomingFn     func(ctx context.Context, ref time.Time, horizon time.Duration) ([]domain.Appointment, error)
	availabilityFn func(ctx context.Context, stylistID int64, date time.Time, duration time.Duration) ([]domain.Interval, error)
	slotsFn        func(ctx context.Context, stylistID int64, date time.Time, duration, step time.Duration, now time.Time) ([]time.Time, error)
	historyFn      func(ctx context.Context, clientID int64) ([]domain.Appointment, error)
	scheduleFn     func(ctx context.Context, stylistID int64, from, to time.Time) ([]domain.Appointment, error)
	onFn           func(ctx context.Context, date time.Time) ([]domain.Appointment, error)
}

func (f *fakeQueries) Get(ctx context.Context, id int64) (domain.Appointment, error) {
	if f.getFn == nil {
		panic("Get not configured")
	}
	return f.getFn(ctx, id)
}

func (f *fakeQueries) TodaysAppointments(ctx context.Context, ref time.Time) ([]domain.Appointment, error) {
	if f.todaysFn == nil {
		panic("TodaysAppointments not configured")
	}
	return f.todaysFn(ctx, ref)
}

func (f *fakeQueries) Upcoming(ctx context.Context, ref time.Time, horizon time.Duration) ([]domain.Appointment, error) {
	if f.upcomingFn == nil {
		panic("Upcoming not configured")
	}
	return f.upcomingFn(ctx, ref, horizon)
}

func (f *fakeQueries) StylistAvailability(ctx context.Context, stylistID int64, date time.Time, duration time.Duration) ([]domain.Interval, error) {
	if f.availabilityFn == nil {
		panic("StylistAvailability not configured")
	}
	return f.availabilityFn(ctx, stylistID, date, duration)
}

func (f *fakeQueries) AvailableSlots(ctx context.Context, stylistID int64, date time.Time, duration, step time.Duration, now time.Time) ([]time.Time, error) {
	if f.slotsFn == nil {
		panic("AvailableSlots not configured")
	}
	return f.slotsFn(ctx, stylistID, date, duration, step, now)
}

func (f *fakeQueries) ClientHistory(ctx context.Context, clientID int64) ([]domain.Appointment, error) {
	if f.historyFn == nil {
		panic("ClientHistory not configured")
	}
	return f.historyFn(ctx, clientID)
}

func (f *fakeQueries) StylistSchedule(ctx context.Context, stylistID int64, from, to time.Time) ([]domain.Appointment, error) {
	if f.scheduleFn == nil {
		panic("StylistSchedule not configured")
	}
	return f.scheduleFn(ctx, stylistID, from, to)
}

func (f *fakeQueries) AppointmentsOn(ctx context.Context, date time.Time) ([]domain.Appointment, error) {
	if f.onFn == nil {
		panic("AppointmentsOn not configured")
	}
	return f.onFn(ctx, date)
}

// fakeEntities only implements what a test configures; other calls hit the
// nil embedded interface and panic.
type fakeEntities struct {
	store.EntityAdmin

	findByPhoneFn  func(ctx context.Context, phone string) (domain.Client, error)
	deleteClientFn func(ctx context.Context, id int64) error
}

func (f *fakeEntities) FindClientByPhone(ctx context.Context, phone string) (domain.Client, error) {
	return f.findByPhoneFn(ctx, phone)
}

func (f *fakeEntities) DeleteClient(ctx context.Context, id int64) error {
	return f.deleteClientFn(ctx, id)
}

var tenAM = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newTestServer(sched *fakeScheduling, queries *fakeQueries, entities store.EntityAdmin) *SalonServer {
	if sched == nil {
		sched = &fakeScheduling{}
	}
	if queries == nil {
		queries = &fakeQueries{}
	}
	return NewSalonServer(sched, queries, nil, entities, slog.Default())
}

func scheduleReturning(err error) *fakeScheduling {
	return &fakeScheduling{
		scheduleFn: func(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error) {
			return domain.Appointment{}, err
		},
	}
}

func validScheduleRequest() *ScheduleAppointmentRequest {
	return &ScheduleAppointmentRequest{ClientID: 1, StylistID: 2, ServiceID: 3, StartTime: tenAM}
}

func TestIdempotencyKey_ReadsHeadersAndTrims(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "  abc  "))
	if got := idempotencyKey(ctx); got != "abc" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "abc")
	}

	ctx = metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-idempotency-key", "xyz"))
	if got := idempotencyKey(ctx); got != "xyz" {
		t.Fatalf("idempotencyKey = %q, want %q", got, "xyz")
	}

	if got := idempotencyKey(context.Background()); got != "" {
		t.Fatalf("idempotencyKey = %q, want empty", got)
	}
}

func TestScheduleAppointment_RejectsMissingStartTime(t *testing.T) {
	srv := newTestServer(&fakeScheduling{}, nil, nil)

	_, err := srv.ScheduleAppointment(context.Background(), &ScheduleAppointmentRequest{ClientID: 1, StylistID: 2, ServiceID: 3})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}

	_, err = srv.ScheduleAppointment(context.Background(), nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("nil request code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestScheduleAppointment_PassesInputAndIdempotencyKey(t *testing.T) {
	var got scheduling.ScheduleInput
	srv := newTestServer(&fakeScheduling{
		scheduleFn: func(ctx context.Context, in scheduling.ScheduleInput) (domain.Appointment, error) {
			got = in
			return domain.Appointment{ID: 10, StylistID: in.StylistID, StartTime: in.StartTime, DurationMinutes: 30}, nil
		},
	}, nil, nil)

	req := validScheduleRequest()
	req.IdempotencyKey = "from-body"
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("idempotency-key", "k1"))

	resp, err := srv.ScheduleAppointment(ctx, req)
	if err != nil {
		t.Fatalf("ScheduleAppointment error: %v", err)
	}
	if resp.Appointment.ID != 10 {
		t.Fatalf("appointment id = %d, want 10", resp.Appointment.ID)
	}
	if got.IdempotencyKey != "k1" {
		t.Fatalf("idempotency_key = %q, want %q", got.IdempotencyKey, "k1")
	}
	if got.ClientID != 1 || got.StylistID != 2 || got.ServiceID != 3 || !got.StartTime.Equal(tenAM) {
		t.Fatalf("input = %+v", got)
	}

	if _, err := srv.ScheduleAppointment(context.Background(), req); err != nil {
		t.Fatalf("ScheduleAppointment error: %v", err)
	}
	if got.IdempotencyKey != "from-body" {
		t.Fatalf("idempotency_key = %q, want body key", got.IdempotencyKey)
	}
}

func TestScheduleAppointment_MapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"conflict", &domain.ConflictError{AppointmentID: 7, Start: tenAM, End: tenAM.Add(time.Hour)}, codes.FailedPrecondition},
		{"idempotency", domain.ErrIdempotencyConflict, codes.FailedPrecondition},
		{"validation", domain.NewValidationError("start_time is in the past"), codes.InvalidArgument},
		{"unknown reference", domain.WrapValidation("unknown stylist", domain.NewNotFound("stylist", 2)), codes.InvalidArgument},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded},
		{"internal", errors.New("disk on fire"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(scheduleReturning(tc.err), nil, nil)
			_, err := srv.ScheduleAppointment(context.Background(), validScheduleRequest())
			if status.Code(err) != tc.want {
				t.Fatalf("code = %s, want %s", status.Code(err), tc.want)
			}
		})
	}
}

func TestScheduleAppointment_ConflictCarriesBlockingAppointment(t *testing.T) {
	blocking := &domain.ConflictError{AppointmentID: 7, Start: tenAM, End: tenAM.Add(time.Hour)}
	srv := newTestServer(scheduleReturning(blocking), nil, nil)

	_, err := srv.ScheduleAppointment(context.Background(), validScheduleRequest())
	got, ok := ConflictFromError(err)
	if !ok {
		t.Fatalf("ConflictFromError(%v) found no details", err)
	}
	if got.AppointmentID != 7 || !got.Start.Equal(blocking.Start) || !got.End.Equal(blocking.End) {
		t.Fatalf("conflict = %+v, want %+v", got, blocking)
	}

	var info *errdetails.ErrorInfo
	for _, d := range status.Convert(err).Details() {
		if i, ok := d.(*errdetails.ErrorInfo); ok {
			info = i
		}
	}
	if info == nil || info.GetReason() != ReasonSlotUnavailable || info.GetDomain() != ErrorDomain {
		t.Fatalf("ErrorInfo = %v, want %s in %s", info, ReasonSlotUnavailable, ErrorDomain)
	}
}

func TestScheduleAppointment_InternalErrorHidesDetail(t *testing.T) {
	srv := newTestServer(scheduleReturning(errors.New("pq: password authentication failed")), nil, nil)

	_, err := srv.ScheduleAppointment(context.Background(), validScheduleRequest())
	if msg := status.Convert(err).Message(); msg != "internal error" {
		t.Fatalf("message = %q, want %q", msg, "internal error")
	}
}

func TestCancelAppointment_MapsInvalidState(t *testing.T) {
	srv := newTestServer(&fakeScheduling{
		cancelFn: func(ctx context.Context, id int64) (domain.Appointment, error) {
			return domain.Appointment{}, &domain.InvalidStateError{AppointmentID: id, From: domain.StatusCancelled, To: domain.StatusCancelled}
		},
	}, nil, nil)

	_, err := srv.CancelAppointment(context.Background(), &IDRequest{ID: 4})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.FailedPrecondition)
	}
	if _, ok := ConflictFromError(err); ok {
		t.Fatalf("ConflictFromError reported a conflict for an invalid state")
	}
	details := status.Convert(err).Details()
	if len(details) != 1 {
		t.Fatalf("len(details) = %d, want 1", len(details))
	}
	info, ok := details[0].(*errdetails.ErrorInfo)
	if !ok || info.GetReason() != ReasonInvalidState || info.GetMetadata()["from"] != string(domain.StatusCancelled) {
		t.Fatalf("details[0] = %v, want %s ErrorInfo", details[0], ReasonInvalidState)
	}
}

func TestCompleteAppointment_ReturnsUpdatedAppointment(t *testing.T) {
	srv := newTestServer(&fakeScheduling{
		completeFn: func(ctx context.Context, id int64) (domain.Appointment, error) {
			return domain.Appointment{ID: id, Status: domain.StatusCompleted}, nil
		},
	}, nil, nil)

	resp, err := srv.CompleteAppointment(context.Background(), &IDRequest{ID: 4})
	if err != nil {
		t.Fatalf("CompleteAppointment error: %v", err)
	}
	if resp.Appointment.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want %s", resp.Appointment.Status, domain.StatusCompleted)
	}
}

func TestGetAppointment_MapsNotFound(t *testing.T) {
	srv := newTestServer(nil, &fakeQueries{
		getFn: func(ctx context.Context, id int64) (domain.Appointment, error) {
			return domain.Appointment{}, domain.NewNotFound("appointment", id)
		},
	}, nil)

	_, err := srv.GetAppointment(context.Background(), &IDRequest{ID: 99})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.NotFound)
	}
}

func TestTodaysAppointments_DefaultsReferenceToNow(t *testing.T) {
	var gotRef time.Time
	srv := newTestServer(nil, &fakeQueries{
		todaysFn: func(ctx context.Context, ref time.Time) ([]domain.Appointment, error) {
			gotRef = ref
			return []domain.Appointment{{ID: 1}}, nil
		},
	}, nil)
	srv.now = func() time.Time { return tenAM }

	resp, err := srv.TodaysAppointments(context.Background(), &TodaysAppointmentsRequest{})
	if err != nil {
		t.Fatalf("TodaysAppointments error: %v", err)
	}
	if !gotRef.Equal(tenAM) {
		t.Fatalf("reference = %v, want %v", gotRef, tenAM)
	}
	if len(resp.Appointments) != 1 {
		t.Fatalf("appointments = %d, want 1", len(resp.Appointments))
	}
}

func TestStylistAvailability_ReturnsSlotsOnlyWhenStepSet(t *testing.T) {
	var gotDuration, gotStep time.Duration
	srv := newTestServer(nil, &fakeQueries{
		availabilityFn: func(ctx context.Context, stylistID int64, date time.Time, duration time.Duration) ([]domain.Interval, error) {
			gotDuration = duration
			return []domain.Interval{{Start: tenAM, End: tenAM.Add(2 * time.Hour)}}, nil
		},
		slotsFn: func(ctx context.Context, stylistID int64, date time.Time, duration, step time.Duration, now time.Time) ([]time.Time, error) {
			gotStep = step
			return []time.Time{tenAM, tenAM.Add(30 * time.Minute)}, nil
		},
	}, nil)

	resp, err := srv.StylistAvailability(context.Background(), &StylistAvailabilityRequest{StylistID: 2, Date: tenAM, DurationMinutes: 45})
	if err != nil {
		t.Fatalf("StylistAvailability error: %v", err)
	}
	if gotDuration != 45*time.Minute {
		t.Fatalf("duration = %v, want 45m", gotDuration)
	}
	if len(resp.Free) != 1 || resp.Slots != nil {
		t.Fatalf("resp = %+v, want one free interval and no slots", resp)
	}

	resp, err = srv.StylistAvailability(context.Background(), &StylistAvailabilityRequest{StylistID: 2, Date: tenAM, DurationMinutes: 45, StepMinutes: 30})
	if err != nil {
		t.Fatalf("StylistAvailability error: %v", err)
	}
	if gotStep != 30*time.Minute || len(resp.Slots) != 2 {
		t.Fatalf("step = %v slots = %d, want 30m and 2", gotStep, len(resp.Slots))
	}

	_, err = srv.StylistAvailability(context.Background(), &StylistAvailabilityRequest{StylistID: 2, DurationMinutes: 45})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("missing date code = %s, want %s", status.Code(err), codes.InvalidArgument)
	}
}

func TestListClients_LooksUpByPhone(t *testing.T) {
	srv := newTestServer(nil, nil, &fakeEntities{
		findByPhoneFn: func(ctx context.Context, phone string) (domain.Client, error) {
			if phone != "555-0101" {
				return domain.Client{}, &domain.NotFoundError{Kind: "client"}
			}
			return domain.Client{ID: 3, Phone: phone}, nil
		},
	})

	resp, err := srv.ListClients(context.Background(), &ListClientsRequest{Phone: " 555-0101 "})
	if err != nil {
		t.Fatalf("ListClients error: %v", err)
	}
	if len(resp.Clients) != 1 || resp.Clients[0].ID != 3 {
		t.Fatalf("clients = %+v, want client 3", resp.Clients)
	}

	_, err = srv.ListClients(context.Background(), &ListClientsRequest{Phone: "555-0000"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.NotFound)
	}
}

func TestDeleteClient_MapsEntityInUse(t *testing.T) {
	srv := newTestServer(nil, nil, &fakeEntities{
		deleteClientFn: func(ctx context.Context, id int64) error {
			return domain.ErrEntityInUse
		},
	})

	_, err := srv.DeleteClient(context.Background(), &IDRequest{ID: 3})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("code = %s, want %s", status.Code(err), codes.FailedPrecondition)
	}
}
