package scheduling

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"salonpro/internal/domain"
	"salonpro/internal/store/sqlstore"
)

func newSQLiteFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db, err := sqlstore.Open("sqlite://"+filepath.Join(t.TempDir(), "salon.db"), sqlstore.PoolConfig{})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlstore.Close(db)
	})
	if err := sqlstore.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return newFixtureOn(t, sqlstore.New(db), cfg)
}

func TestSQLite_OverlapBackToBackAndRebook(t *testing.T) {
	f := newSQLiteFixture(t, DefaultConfig())

	first := f.book(t, f.haircut, at(10, 0))

	_, err := f.tryBook(f.haircut, at(10, 15))
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("10:15 err = %v, want *ConflictError", err)
	}
	if conflict.AppointmentID != first.ID || !conflict.Start.Equal(at(10, 0)) || !conflict.End.Equal(at(10, 30)) {
		t.Fatalf("conflict = %+v, want appointment %d 10:00-10:30", conflict, first.ID)
	}

	f.book(t, f.haircut, at(10, 30))

	if _, err := f.svc.Cancel(context.Background(), first.ID); err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	_, err = f.svc.Cancel(context.Background(), first.ID)
	var stateErr *domain.InvalidStateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("second Cancel err = %v, want *InvalidStateError", err)
	}
	f.book(t, f.haircut, at(10, 15))

	moved, err := f.svc.Reschedule(context.Background(), first.ID, at(14, 0))
	if !errors.As(err, &stateErr) {
		t.Fatalf("Reschedule cancelled = %+v, %v; want *InvalidStateError", moved, err)
	}

	events, err := f.store.FetchUnpublished(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchUnpublished error: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("len(events) = %d, want 4 (three bookings and one cancel)", len(events))
	}
}

func TestSQLite_ConcurrentRequestsBookSlotOnce(t *testing.T) {
	f := newSQLiteFixture(t, DefaultConfig())

	const workers = 8
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
			_, err := f.tryBook(f.coloring, at(10, offset*5))
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
}
