// Package memstore is an in-process implementation of store.Store. It backs
// the test suites and the ephemeral memory:// mode of the binaries.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"salonpro/internal/domain"
	"salonpro/internal/store"
)

type Store struct {
	mu sync.RWMutex

	clients  map[int64]domain.Client
	stylists map[int64]domain.Stylist
	services map[int64]domain.Service
	appts    map[int64]domain.Appointment
	keys     map[string]int64
	outbox   []domain.OutboxEvent

	nextClientID  int64
	nextStylistID int64
	nextServiceID int64
	nextApptID    int64
	nextEventID   int64

	locks store.StylistLocks
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		clients:  make(map[int64]domain.Client),
		stylists: make(map[int64]domain.Stylist),
		services: make(map[int64]domain.Service),
		appts:    make(map[int64]domain.Appointment),
		keys:     make(map[string]int64),
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

func (s *Store) Insert(ctx context.Context, appt domain.Appointment) (int64, error) {
	var id int64
	err := s.InStylistTransaction(ctx, appt.StylistID, func(ctx context.Context, tx store.StylistTx) error {
		created, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		id = created.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, id int64, upd store.AppointmentUpdate) (domain.Appointment, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	var out domain.Appointment
	err = s.InStylistTransaction(ctx, current.StylistID, func(ctx context.Context, tx store.StylistTx) error {
		a, err := tx.UpdateAppointment(ctx, id, upd)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (domain.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Appointment{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appts[id]
	if !ok {
		return domain.Appointment{}, domain.NewNotFound("appointment", id)
	}
	return a, nil
}

func (s *Store) FindByStylistAndRange(ctx context.Context, stylistID int64, from, to time.Time) ([]domain.Appointment, error) {
	return s.filter(ctx, ascending, func(a domain.Appointment) bool {
		return a.StylistID == stylistID && a.Interval().Overlaps(domain.Interval{Start: from, End: to})
	})
}

func (s *Store) FindByClient(ctx context.Context, clientID int64) ([]domain.Appointment, error) {
	return s.filter(ctx, descending, func(a domain.Appointment) bool {
		return a.ClientID == clientID
	})
}

func (s *Store) FindByStatus(ctx context.Context, status domain.Status) ([]domain.Appointment, error) {
	return s.filter(ctx, ascending, func(a domain.Appointment) bool {
		return a.Status == status
	})
}

func (s *Store) FindByDateRange(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	return s.filter(ctx, ascending, func(a domain.Appointment) bool {
		return !a.StartTime.Before(from) && a.StartTime.Before(to)
	})
}

type order int

const (
	ascending order = iota
	descending
)

func (s *Store) filter(ctx context.Context, o order, keep func(domain.Appointment) bool) ([]domain.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]domain.Appointment, 0)
	for _, a := range s.appts {
		if keep(a) {
			out = append(out, a)
		}
	}
	s.mu.RUnlock()
	sortAppointments(out, o)
	return out, nil
}

func sortAppointments(appts []domain.Appointment, o order) {
	sort.Slice(appts, func(i, j int) bool {
		a, b := appts[i], appts[j]
		if !a.StartTime.Equal(b.StartTime) {
			if o == descending {
				return a.StartTime.After(b.StartTime)
			}
			return a.StartTime.Before(b.StartTime)
		}
		if o == descending {
			return a.ID > b.ID
		}
		return a.ID < b.ID
	})
}

func (s *Store) InStylistTransaction(ctx context.Context, stylistID int64, fn func(ctx context.Context, tx store.StylistTx) error) error {
	unlock, err := s.locks.Lock(ctx, stylistID)
	if err != nil {
		return err
	}
	defer unlock()

	tx := &stylistTx{
		s:       s,
		pending: make(map[int64]domain.Appointment),
		keys:    make(map[string]int64),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(tx)
}

// commit re-checks references under the write lock: a client deleted or a
// service deactivated while the transaction ran must not end up behind a
// scheduled appointment.
func (s *Store) commit(tx *stylistTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range tx.pending {
		if a.Status != domain.StatusScheduled {
			continue
		}
		if err := s.referenceError(a); err != nil {
			return err
		}
	}
	for id, a := range tx.pending {
		s.appts[id] = a
	}
	for k, id := range tx.keys {
		s.keys[k] = id
	}
	for _, ev := range tx.events {
		s.nextEventID++
		ev.ID = s.nextEventID
		s.outbox = append(s.outbox, ev)
	}
	return nil
}

func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.OutboxEvent
	for _, ev := range s.outbox {
		if ev.PublishedAt != nil {
			continue
		}
		out = append(out, ev)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkPublished(ctx context.Context, ids []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if _, ok := want[s.outbox[i].ID]; ok && s.outbox[i].PublishedAt == nil {
			published := now
			s.outbox[i].PublishedAt = &published
		}
	}
	return nil
}

type stylistTx struct {
	s       *Store
	pending map[int64]domain.Appointment
	keys    map[string]int64
	events  []domain.OutboxEvent
}

func (t *stylistTx) GetAppointment(ctx context.Context, id int64) (domain.Appointment, error) {
	if a, ok := t.pending[id]; ok {
		return a, nil
	}
	return t.s.Get(ctx, id)
}

func (t *stylistTx) ListAppointments(ctx context.Context, stylistID int64, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	window := domain.Interval{Start: windowStart, End: windowEnd}
	committed, err := t.s.FindByStylistAndRange(ctx, stylistID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(committed)+len(t.pending))
	for _, a := range committed {
		if _, ok := t.pending[a.ID]; ok {
			continue
		}
		out = append(out, a)
	}
	for _, a := range t.pending {
		if a.StylistID == stylistID && a.Interval().Overlaps(window) {
			out = append(out, a)
		}
	}
	sortAppointments(out, ascending)
	return out, nil
}

func (t *stylistTx) FindByIdempotencyKey(ctx context.Context, key string) (domain.Appointment, bool, error) {
	if id, ok := t.keys[key]; ok {
		return t.pending[id], true, nil
	}
	t.s.mu.RLock()
	id, ok := t.s.keys[key]
	t.s.mu.RUnlock()
	if !ok {
		return domain.Appointment{}, false, nil
	}
	a, err := t.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, false, err
	}
	return a, true, nil
}

func (t *stylistTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Appointment{}, err
	}
	if err := t.s.checkReferences(appt); err != nil {
		return domain.Appointment{}, err
	}
	if appt.DurationMinutes <= 0 {
		return domain.Appointment{}, domain.NewValidationError("duration must be positive")
	}
	if appt.Price < 0 {
		return domain.Appointment{}, domain.NewValidationError("price must not be negative")
	}
	if appt.Status == "" {
		appt.Status = domain.StatusScheduled
	}
	if !appt.Status.Valid() {
		return domain.Appointment{}, domain.NewValidationError("invalid status")
	}

	now := time.Now().UTC()
	t.s.mu.Lock()
	t.s.nextApptID++
	appt.ID = t.s.nextApptID
	t.s.mu.Unlock()

	appt.StartTime = appt.StartTime.UTC()
	appt.EndTime = appt.StartTime.Add(appt.Duration())
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now

	t.pending[appt.ID] = appt
	if k := appt.Key(); k != "" {
		t.keys[k] = appt.ID
	}
	return appt, nil
}

func (t *stylistTx) UpdateAppointment(ctx context.Context, id int64, upd store.AppointmentUpdate) (domain.Appointment, error) {
	a, err := t.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return domain.Appointment{}, domain.NewValidationError("invalid status")
		}
		a.Status = *upd.Status
	}
	if upd.StartTime != nil {
		a.StartTime = upd.StartTime.UTC()
		a.EndTime = a.StartTime.Add(a.Duration())
	}
	a.UpdatedAt = time.Now().UTC()
	t.pending[id] = a
	return a, nil
}

func (t *stylistTx) RecordEvent(ctx context.Context, ev domain.OutboxEvent) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	t.events = append(t.events, ev)
	return nil
}

func (s *Store) checkReferences(appt domain.Appointment) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.referenceError(appt)
}

// referenceError requires s.mu to be held.
func (s *Store) referenceError(appt domain.Appointment) error {
	if _, ok := s.clients[appt.ClientID]; !ok {
		return domain.WrapValidation("unknown client", domain.NewNotFound("client", appt.ClientID))
	}
	st, ok := s.stylists[appt.StylistID]
	if !ok {
		return domain.WrapValidation("unknown stylist", domain.NewNotFound("stylist", appt.StylistID))
	}
	svc, ok := s.services[appt.ServiceID]
	if !ok {
		return domain.WrapValidation("unknown service", domain.NewNotFound("service", appt.ServiceID))
	}
	if svc.DurationMinutes <= 0 || svc.Price < 0 {
		return domain.NewValidationError("service has invalid duration or price")
	}
	if appt.Status == domain.StatusScheduled || appt.Status == "" {
		if !st.Active {
			return domain.NewValidationError("stylist is not active")
		}
		if !svc.Active {
			return domain.NewValidationError("service is not active")
		}
	}
	return nil
}

func (s *Store) referencedByScheduled(match func(domain.Appointment) bool) bool {
	for _, a := range s.appts {
		if a.Status == domain.StatusScheduled && match(a) {
			return true
		}
	}
	return false
}

func (s *Store) CreateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if err := domain.ValidateEntity(c); err != nil {
		return domain.Client{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.clients {
		if existing.Phone == c.Phone {
			return domain.Client{}, domain.NewValidationError("phone already registered")
		}
	}
	s.nextClientID++
	c.ID = s.nextClientID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.clients[c.ID] = c
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, id int64) (domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return domain.Client{}, domain.NewNotFound("client", id)
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	s.mu.RLock()
	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindClientByPhone(ctx context.Context, phone string) (domain.Client, error) {
	phone = strings.TrimSpace(phone)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.Phone == phone {
			return c, nil
		}
	}
	return domain.Client{}, &domain.NotFoundError{Kind: "client"}
}

func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[id]; !ok {
		return domain.NewNotFound("client", id)
	}
	if s.referencedByScheduled(func(a domain.Appointment) bool { return a.ClientID == id }) {
		return domain.ErrEntityInUse
	}
	delete(s.clients, id)
	return nil
}

func (s *Store) CreateStylist(ctx context.Context, st domain.Stylist) (domain.Stylist, error) {
	if err := domain.ValidateEntity(st); err != nil {
		return domain.Stylist{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextStylistID++
	st.ID = s.nextStylistID
	if st.HiredAt.IsZero() {
		st.HiredAt = time.Now().UTC()
	}
	s.stylists[st.ID] = st
	return st, nil
}

func (s *Store) GetStylist(ctx context.Context, id int64) (domain.Stylist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stylists[id]
	if !ok {
		return domain.Stylist{}, domain.NewNotFound("stylist", id)
	}
	return st, nil
}

func (s *Store) ListStylists(ctx context.Context, activeOnly bool) ([]domain.Stylist, error) {
	s.mu.RLock()
	out := make([]domain.Stylist, 0, len(s.stylists))
	for _, st := range s.stylists {
		if activeOnly && !st.Active {
			continue
		}
		out = append(out, st)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeactivateStylist(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stylists[id]
	if !ok {
		return domain.NewNotFound("stylist", id)
	}
	if s.referencedByScheduled(func(a domain.Appointment) bool { return a.StylistID == id }) {
		return domain.ErrEntityInUse
	}
	st.Active = false
	s.stylists[id] = st
	return nil
}

func (s *Store) CreateService(ctx context.Context, svc domain.Service) (domain.Service, error) {
	if err := domain.ValidateEntity(svc); err != nil {
		return domain.Service{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.services {
		if strings.EqualFold(existing.Name, svc.Name) {
			return domain.Service{}, domain.NewValidationError("service name already exists")
		}
	}
	s.nextServiceID++
	svc.ID = s.nextServiceID
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = time.Now().UTC()
	}
	s.services[svc.ID] = svc
	return svc, nil
}

func (s *Store) GetService(ctx context.Context, id int64) (domain.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return domain.Service{}, domain.NewNotFound("service", id)
	}
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	s.mu.RLock()
	out := make([]domain.Service, 0, len(s.services))
	for _, svc := range s.services {
		if activeOnly && !svc.Active {
			continue
		}
		out = append(out, svc)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeactivateService(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[id]
	if !ok {
		return domain.NewNotFound("service", id)
	}
	if s.referencedByScheduled(func(a domain.Appointment) bool { return a.ServiceID == id }) {
		return domain.ErrEntityInUse
	}
	svc.Active = false
	s.services[id] = svc
	return nil
}
