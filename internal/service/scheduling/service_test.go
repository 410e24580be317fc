package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"salonpro/internal/domain"
	"salonpro/internal/store"
	"salonpro/internal/store/memstore"
)

type fixture struct {
	store    store.Store
	svc      *Service
	now      *time.Time
	client   domain.Client
	stylist  domain.Stylist
	haircut  domain.Service // 30 min, 25
	coloring domain.Service // 60 min, 40
}

var day = time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	return newFixtureOn(t, memstore.New(), cfg)
}

func newFixtureOn(t *testing.T, s store.Store, cfg Config) *fixture {
	t.Helper()
	ctx := context.Background()

	c, err := s.CreateClient(ctx, domain.Client{FirstName: "Ada", LastName: "Lovelace", Phone: "555-0100"})
	if err != nil {
		t.Fatalf("CreateClient error: %v", err)
	}
	st, err := s.CreateStylist(ctx, domain.Stylist{FirstName: "Sam", LastName: "Cutter", Phone: "555-0200", Email: "sam@salon.test", Active: true})
	if err != nil {
		t.Fatalf("CreateStylist error: %v", err)
	}
	haircut, err := s.CreateService(ctx, domain.Service{Name: "Haircut", DurationMinutes: 30, Price: 25, Active: true})
	if err != nil {
		t.Fatalf("CreateService error: %v", err)
	}
	coloring, err := s.CreateService(ctx, domain.Service{Name: "Coloring", DurationMinutes: 60, Price: 40, Active: true})
	if err != nil {
		t.Fatalf("CreateService error: %v", err)
	}

	now := day.Add(-24 * time.Hour)
	cfg.Now = func() time.Time { return now }
	return &fixture{
		store:    s,
		svc:      NewService(s, s, cfg),
		now:      &now,
		client:   c,
		stylist:  st,
		haircut:  haircut,
		coloring: coloring,
	}
}

func (f *fixture) book(t *testing.T, svc domain.Service, start time.Time) domain.Appointment {
	t.Helper()
	a, err := f.svc.Schedule(context.Background(), ScheduleInput{
		ClientID:  f.client.ID,
		StylistID: f.stylist.ID,
		ServiceID: svc.ID,
		StartTime: start,
	})
	if err != nil {
		t.Fatalf("Schedule(%v) error: %v", start, err)
	}
	return a
}

func (f *fixture) tryBook(svc domain.Service, start time.Time) (domain.Appointment, error) {
	return f.svc.Schedule(context.Background(), ScheduleInput{
		ClientID:  f.client.ID,
		StylistID: f.stylist.ID,
		ServiceID: svc.ID,
		StartTime: start,
	})
}

func TestSchedule_RejectsOverlapAndAllowsBackToBack(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	first := f.book(t, f.haircut, at(10, 0))
	if first.Status != domain.StatusScheduled {
		t.Fatalf("status = %q, want %q", first.Status, domain.StatusScheduled)
	}
	if !first.EndTime.Equal(at(10, 30)) {
		t.Fatalf("end = %v, want %v", first.EndTime, at(10, 30))
	}
	if first.Price != 25 || first.DurationMinutes != 30 {
		t.Fatalf("snapshot = %v/%d, want 25/30", first.Price, first.DurationMinutes)
	}

	_, err := f.tryBook(f.haircut, at(10, 15))
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want *ConflictError", err)
	}
	if conflict.AppointmentID != first.ID {
		t.Fatalf("conflicting id = %d, want %d", conflict.AppointmentID, first.ID)
	}
	if !conflict.Start.Equal(at(10, 0)) || !conflict.End.Equal(at(10, 30)) {
		t.Fatalf("conflict interval = [%v, %v), want [%v, %v)", conflict.Start, conflict.End, at(10, 0), at(10, 30))
	}

	second := f.book(t, f.haircut, at(10, 30))
	if second.ID <= first.ID {
		t.Fatalf("ids not increasing: %d then %d", first.ID, second.ID)
	}
}

func TestSchedule_OtherStylistIsIndependent(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	other, err := f.store.CreateStylist(context.Background(), domain.Stylist{FirstName: "Kim", LastName: "Shears", Phone: "555-0300", Email: "kim@salon.test", Active: true})
	if err != nil {
		t.Fatalf("CreateStylist error: %v", err)
	}

	f.book(t, f.haircut, at(10, 0))
	_, err = f.svc.Schedule(context.Background(), ScheduleInput{
		ClientID: f.client.ID, StylistID: other.ID, ServiceID: f.haircut.ID, StartTime: at(10, 0),
	})
	if err != nil {
		t.Fatalf("Schedule for other stylist error: %v", err)
	}
}

func TestCancel_TwiceIsInvalidState(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := f.book(t, f.haircut, at(10, 0))

	cancelled, err := f.svc.Cancel(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if cancelled.Status != domain.StatusCancelled {
		t.Fatalf("status = %q, want %q", cancelled.Status, domain.StatusCancelled)
	}

	_, err = f.svc.Cancel(context.Background(), a.ID)
	var invalid *domain.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("second Cancel err = %v, want *InvalidStateError", err)
	}
	got, err := f.store.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Status != domain.StatusCancelled {
		t.Fatalf("status after failed cancel = %q, want %q", got.Status, domain.StatusCancelled)
	}
}

func TestCancel_FreesSlotForRebooking(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := f.book(t, f.haircut, at(10, 0))

	if _, err := f.svc.Cancel(context.Background(), a.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	rebooked := f.book(t, f.haircut, at(10, 0))
	if rebooked.ID == a.ID {
		t.Fatalf("rebooked id = %d, want a new id", rebooked.ID)
	}
}

func TestReschedule_ExcludesOwnSlot(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := f.book(t, f.coloring, at(10, 0))

	moved, err := f.svc.Reschedule(context.Background(), a.ID, at(10, 30))
	if err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if !moved.StartTime.Equal(at(10, 30)) || !moved.EndTime.Equal(at(11, 30)) {
		t.Fatalf("moved = [%v, %v), want [%v, %v)", moved.StartTime, moved.EndTime, at(10, 30), at(11, 30))
	}
	if moved.ID != a.ID {
		t.Fatalf("id = %d, want %d", moved.ID, a.ID)
	}
}

func TestReschedule_IntoAnotherAppointmentConflicts(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	blocker := f.book(t, f.haircut, at(11, 0))
	a := f.book(t, f.haircut, at(9, 0))

	_, err := f.svc.Reschedule(context.Background(), a.ID, at(10, 45))
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want *ConflictError", err)
	}
	if conflict.AppointmentID != blocker.ID {
		t.Fatalf("conflicting id = %d, want %d", conflict.AppointmentID, blocker.ID)
	}

	got, err := f.store.Get(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !got.StartTime.Equal(at(9, 0)) {
		t.Fatalf("start after failed reschedule = %v, want %v", got.StartTime, at(9, 0))
	}
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	done := f.book(t, f.haircut, at(10, 0))
	missed := f.book(t, f.haircut, at(11, 0))
	*f.now = at(12, 0)

	if _, err := f.svc.Complete(context.Background(), done.ID); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if _, err := f.svc.MarkNoShow(context.Background(), missed.ID); err != nil {
		t.Fatalf("MarkNoShow error: %v", err)
	}

	for _, id := range []int64{done.ID, missed.ID} {
		var invalid *domain.InvalidStateError
		if _, err := f.svc.Cancel(context.Background(), id); !errors.As(err, &invalid) {
			t.Fatalf("Cancel(%d) err = %v, want *InvalidStateError", id, err)
		}
		if _, err := f.svc.Complete(context.Background(), id); !errors.As(err, &invalid) {
			t.Fatalf("Complete(%d) err = %v, want *InvalidStateError", id, err)
		}
		if _, err := f.svc.Reschedule(context.Background(), id, at(15, 0)); !errors.As(err, &invalid) {
			t.Fatalf("Reschedule(%d) err = %v, want *InvalidStateError", id, err)
		}
	}
}

func TestCompletedAppointmentStillBlocksTime(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.svc.cfg.AllowPastBooking = true
	a := f.book(t, f.haircut, at(10, 0))
	*f.now = at(11, 0)

	if _, err := f.svc.Complete(context.Background(), a.ID); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if _, err := f.tryBook(f.haircut, at(10, 10)); !IsConflict(err) {
		t.Fatalf("err = %v, want conflict with completed appointment", err)
	}
}

func TestSchedule_PastStartRejectedUnlessAllowed(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	*f.now = at(12, 0)

	_, err := f.tryBook(f.haircut, at(9, 0))
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}

	f.svc.cfg.AllowPastBooking = true
	if _, err := f.tryBook(f.haircut, at(9, 0)); err != nil {
		t.Fatalf("Schedule with AllowPastBooking error: %v", err)
	}
}

func TestComplete_StrictRequiresEnd(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := f.book(t, f.haircut, at(10, 0))
	*f.now = at(10, 15)

	_, err := f.svc.Complete(context.Background(), a.ID)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}

	f.svc.cfg.StrictCompletion = false
	completed, err := f.svc.Complete(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("lenient Complete error: %v", err)
	}
	if completed.Status != domain.StatusCompleted {
		t.Fatalf("status = %q, want %q", completed.Status, domain.StatusCompleted)
	}
}

func TestMarkNoShow_RequiresEnd(t *testing.T) {
	f := newFixture(t, Config{})
	a := f.book(t, f.haircut, at(10, 0))
	*f.now = at(10, 29)

	var verr *domain.ValidationError
	if _, err := f.svc.MarkNoShow(context.Background(), a.ID); !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}

	*f.now = at(10, 30)
	if _, err := f.svc.MarkNoShow(context.Background(), a.ID); err != nil {
		t.Fatalf("MarkNoShow error: %v", err)
	}
}

func TestSchedule_ReferenceErrors(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	_, err := f.svc.Schedule(context.Background(), ScheduleInput{
		ClientID: 999, StylistID: f.stylist.ID, ServiceID: f.haircut.ID, StartTime: at(10, 0),
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "client" {
		t.Fatalf("err = %v, want wrapped client NotFoundError", err)
	}

	if err := f.store.DeactivateService(context.Background(), f.coloring.ID); err != nil {
		t.Fatalf("DeactivateService error: %v", err)
	}
	if _, err := f.tryBook(f.coloring, at(10, 0)); !errors.As(err, &verr) {
		t.Fatalf("inactive service err = %v, want *ValidationError", err)
	}

	if _, err := f.svc.Cancel(context.Background(), 12345); !domain.IsNotFound(err) {
		t.Fatalf("Cancel unknown err = %v, want not found", err)
	}
	if _, err := f.svc.Reschedule(context.Background(), 12345, at(10, 0)); !domain.IsNotFound(err) {
		t.Fatalf("Reschedule unknown err = %v, want not found", err)
	}
}

func TestSchedule_IdempotencyKey(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	in := ScheduleInput{
		ClientID: f.client.ID, StylistID: f.stylist.ID, ServiceID: f.haircut.ID,
		StartTime: at(10, 0), IdempotencyKey: "k1",
	}

	first, err := f.svc.Schedule(context.Background(), in)
	if err != nil {
		t.Fatalf("Schedule error: %v", err)
	}
	replay, err := f.svc.Schedule(context.Background(), in)
	if err != nil {
		t.Fatalf("replayed Schedule error: %v", err)
	}
	if replay.ID != first.ID {
		t.Fatalf("replay id = %d, want %d", replay.ID, first.ID)
	}

	in.StartTime = at(14, 0)
	if _, err := f.svc.Schedule(context.Background(), in); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("err = %v, want %v", err, domain.ErrIdempotencyConflict)
	}

	events, err := f.store.FetchUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchUnpublished error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1 (replays record nothing)", len(events))
	}
}

func TestMutationsRecordLifecycleEvents(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	a := f.book(t, f.haircut, at(10, 0))
	if _, err := f.svc.Reschedule(context.Background(), a.ID, at(11, 0)); err != nil {
		t.Fatalf("Reschedule error: %v", err)
	}
	if _, err := f.svc.Cancel(context.Background(), a.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if _, err := f.tryBook(f.haircut, at(11, 0)); err != nil {
		t.Fatalf("rebook error: %v", err)
	}

	events, err := f.store.FetchUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchUnpublished error: %v", err)
	}
	want := []string{
		domain.EventAppointmentScheduled,
		domain.EventAppointmentRescheduled,
		domain.EventAppointmentCancelled,
		domain.EventAppointmentScheduled,
	}
	if len(events) != len(want) {
		t.Fatalf("len(events) = %d, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.EventType != want[i] {
			t.Fatalf("events[%d] = %q, want %q", i, ev.EventType, want[i])
		}
	}
}

func TestSchedule_ConcurrentRequestsBookSlotOnce(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			_, err := f.tryBook(f.coloring, at(10, offset))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case IsConflict(err):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != 1 || conflicts != workers-1 {
		t.Fatalf("successes = %d, conflicts = %d, want 1 and %d", successes, conflicts, workers-1)
	}

	booked, err := f.store.FindByStylistAndRange(context.Background(), f.stylist.ID, at(0, 0), at(23, 0))
	if err != nil {
		t.Fatalf("FindByStylistAndRange error: %v", err)
	}
	for i := range booked {
		for j := i + 1; j < len(booked); j++ {
			if booked[i].Interval().Overlaps(booked[j].Interval()) {
				t.Fatalf("appointments %d and %d overlap", booked[i].ID, booked[j].ID)
			}
		}
	}
}

func TestSchedule_CancelledContextLeavesNoState(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Schedule(ctx, ScheduleInput{
		ClientID: f.client.ID, StylistID: f.stylist.ID, ServiceID: f.haircut.ID, StartTime: at(10, 0),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want %v", err, context.Canceled)
	}
	booked, err := f.store.FindByStylistAndRange(context.Background(), f.stylist.ID, at(0, 0), at(23, 0))
	if err != nil {
		t.Fatalf("FindByStylistAndRange error: %v", err)
	}
	if len(booked) != 0 {
		t.Fatalf("len(booked) = %d, want 0", len(booked))
	}
}
