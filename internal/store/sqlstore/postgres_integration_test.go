package sqlstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"salonpro/internal/domain"
	"salonpro/internal/store"
)

func openPostgresSchema(ctx context.Context, t *testing.T) *Store {
	t.Helper()
	databaseURL := strings.TrimSpace(os.Getenv("SALONPRO_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("SALONPRO_TEST_DATABASE_URL not set")
	}

	admin, err := Open(databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(admin)
	})

	schema := "salonpro_test_" + randomHex(t, 8)
	if _, err := admin.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = admin.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	db, err := Open(withSearchPath(t, databaseURL, schema+",public"), PoolConfig{MaxOpenConns: 4})
	if err != nil {
		t.Fatalf("Open schema error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate error: %v", err)
	}
	return New(db)
}

func TestPostgresIntegration_OverlapBackstopAndStylistLock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s := openPostgresSchema(ctx, t)
	c, err := s.CreateClient(ctx, domain.Client{FirstName: "Ada", LastName: "Lovelace", Phone: "555-0100"})
	if err != nil {
		t.Fatalf("CreateClient error: %v", err)
	}
	st, err := s.CreateStylist(ctx, domain.Stylist{FirstName: "Sam", LastName: "Cutter", Phone: "555-0200", Email: "sam@salon.test", Active: true})
	if err != nil {
		t.Fatalf("CreateStylist error: %v", err)
	}
	svc, err := s.CreateService(ctx, domain.Service{Name: "Haircut", DurationMinutes: 60, Price: 40, Active: true})
	if err != nil {
		t.Fatalf("CreateService error: %v", err)
	}

	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	appt := func(at time.Time) domain.Appointment {
		return domain.Appointment{
			ClientID: c.ID, StylistID: st.ID, ServiceID: svc.ID,
			StartTime: at, DurationMinutes: svc.DurationMinutes, Price: svc.Price,
		}
	}

	if _, err := s.Insert(ctx, appt(start)); err != nil {
		t.Fatalf("Insert error: %v", err)
	}

	// The exclusion constraint rejects an overlap even when the caller skips
	// the conflict check.
	_, err = s.Insert(ctx, appt(start.Add(30*time.Minute)))
	var conflict *domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("overlap err = %v, want *ConflictError", err)
	}

	if _, err := s.Insert(ctx, appt(start.Add(time.Hour))); err != nil {
		t.Fatalf("back-to-back Insert error: %v", err)
	}

	// Two store instances share only the database; the advisory lock
	// serialises their critical sections.
	other := New(s.db)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		overlap bool
	)
	for _, r := range []*Store{s, other} {
		wg.Add(1)
		go func(r *Store) {
			defer wg.Done()
			_ = r.InStylistTransaction(ctx, st.ID, func(ctx context.Context, tx store.StylistTx) error {
				mu.Lock()
				inside++
				if inside > 1 {
					overlap = true
				}
				mu.Unlock()
				time.Sleep(50 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}(r)
	}
	wg.Wait()
	if overlap {
		t.Fatalf("stylist critical sections overlapped across store instances")
	}
}

func TestPostgresIntegration_DeleteClientWaitsForOpenBooking(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	s := openPostgresSchema(ctx, t)
	c, err := s.CreateClient(ctx, domain.Client{FirstName: "Ada", LastName: "Lovelace", Phone: "555-0100"})
	if err != nil {
		t.Fatalf("CreateClient error: %v", err)
	}
	st, err := s.CreateStylist(ctx, domain.Stylist{FirstName: "Sam", LastName: "Cutter", Phone: "555-0200", Email: "sam@salon.test", Active: true})
	if err != nil {
		t.Fatalf("CreateStylist error: %v", err)
	}
	svc, err := s.CreateService(ctx, domain.Service{Name: "Haircut", DurationMinutes: 60, Price: 40, Active: true})
	if err != nil {
		t.Fatalf("CreateService error: %v", err)
	}

	// A second store instance stands in for another replica: only the
	// advisory locks are shared.
	other := New(s.db)
	created := make(chan struct{})
	release := make(chan struct{})
	txErr := make(chan error, 1)
	go func() {
		txErr <- s.InStylistTransaction(ctx, st.ID, func(ctx context.Context, tx store.StylistTx) error {
			_, err := tx.CreateAppointment(ctx, domain.Appointment{
				ClientID: c.ID, StylistID: st.ID, ServiceID: svc.ID,
				StartTime: time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC), DurationMinutes: svc.DurationMinutes, Price: svc.Price,
			})
			if err != nil {
				return err
			}
			close(created)
			<-release
			return nil
		})
	}()
	<-created

	deleteErr := make(chan error, 1)
	go func() {
		deleteErr <- other.DeleteClient(ctx, c.ID)
	}()
	// Give the delete time to queue behind the booking's shared lock.
	time.Sleep(100 * time.Millisecond)
	close(release)

	if err := <-txErr; err != nil {
		t.Fatalf("InStylistTransaction error: %v", err)
	}
	if err := <-deleteErr; !errors.Is(err, domain.ErrEntityInUse) {
		t.Fatalf("DeleteClient err = %v, want %v", err, domain.ErrEntityInUse)
	}
}

func withSearchPath(t *testing.T, databaseURL, searchPath string) string {
	t.Helper()
	u, err := url.Parse(databaseURL)
	if err != nil {
		t.Fatalf("parse database url: %v", err)
	}
	q := u.Query()
	q.Set("search_path", searchPath)
	u.RawQuery = q.Encode()
	return u.String()
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}
