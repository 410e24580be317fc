package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"salonpro/internal/domain"
	"salonpro/internal/store"
)

type Store struct {
	db    *bun.DB
	locks store.StylistLocks
}

var _ store.Store = (*Store)(nil)

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (r *Store) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Store) Close() error {
	return Close(r.db)
}

type stylistTx struct {
	tx bun.Tx
}

func (r *Store) Insert(ctx context.Context, appt domain.Appointment) (int64, error) {
	var id int64
	err := r.InStylistTransaction(ctx, appt.StylistID, func(ctx context.Context, tx store.StylistTx) error {
		a, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		id = a.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Store) Update(ctx context.Context, id int64, upd store.AppointmentUpdate) (domain.Appointment, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	var out domain.Appointment
	err = r.InStylistTransaction(ctx, current.StylistID, func(ctx context.Context, tx store.StylistTx) error {
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

func (r *Store) Get(ctx context.Context, id int64) (domain.Appointment, error) {
	return getAppointment(ctx, r.db, id)
}

func (r *Store) FindByStylistAndRange(ctx context.Context, stylistID int64, from, to time.Time) ([]domain.Appointment, error) {
	return listStylistRange(ctx, r.db, stylistID, from, to)
}

func (r *Store) FindByClient(ctx context.Context, clientID int64) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("client_id = ?", clientID).
		OrderExpr("start_time DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return normalize(rows), nil
}

func (r *Store) FindByStatus(ctx context.Context, status domain.Status) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", status).
		OrderExpr("start_time ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return normalize(rows), nil
}

func (r *Store) FindByDateRange(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("start_time >= ?", from.UTC()).
		Where("start_time < ?", to.UTC()).
		OrderExpr("start_time ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return normalize(rows), nil
}

func (r *Store) InStylistTransaction(ctx context.Context, stylistID int64, fn func(ctx context.Context, tx store.StylistTx) error) error {
	unlock, err := r.locks.Lock(ctx, stylistID)
	if err != nil {
		return err
	}
	defer unlock()

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockStylistTimeline(ctx, tx, stylistID); err != nil {
			return err
		}
		return fn(ctx, stylistTx{tx: tx})
	})
}

// lockStylistTimeline extends the in-process lock across server replicas
// sharing one PostgreSQL database. SQLite is single-process by construction.
func lockStylistTimeline(ctx context.Context, tx bun.Tx, stylistID int64) error {
	if !isPostgres(tx) {
		return nil
	}
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", entityLockKey("stylist", stylistID)).Exec(ctx)
	return err
}

// lockReferencedEntities takes shared locks on the client and service a new
// booking points at. DeleteClient and DeactivateService take the same keys
// exclusively, so a removal either sees the committed booking or the booking
// sees the removal. SQLite runs one transaction at a time.
func lockReferencedEntities(ctx context.Context, tx bun.Tx, appt domain.Appointment) error {
	if !isPostgres(tx) {
		return nil
	}
	_, err := tx.NewRaw(
		"SELECT pg_advisory_xact_lock_shared(hashtext(?)), pg_advisory_xact_lock_shared(hashtext(?))",
		entityLockKey("client", appt.ClientID), entityLockKey("service", appt.ServiceID),
	).Exec(ctx)
	return err
}

func lockEntity(ctx context.Context, tx bun.Tx, kind string, id int64) error {
	if !isPostgres(tx) {
		return nil
	}
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", entityLockKey(kind, id)).Exec(ctx)
	return err
}

func entityLockKey(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}

func (r stylistTx) GetAppointment(ctx context.Context, id int64) (domain.Appointment, error) {
	return getAppointment(ctx, r.tx, id)
}

func (r stylistTx) ListAppointments(ctx context.Context, stylistID int64, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listStylistRange(ctx, r.tx, stylistID, windowStart, windowEnd)
}

func (r stylistTx) FindByIdempotencyKey(ctx context.Context, key string) (domain.Appointment, bool, error) {
	var a domain.Appointment
	err := r.tx.NewSelect().
		Model(&a).
		Where("idempotency_key = ?", key).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, false, nil
	}
	if err != nil {
		return domain.Appointment{}, false, err
	}
	return normalizeOne(a), true, nil
}

func (r stylistTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if err := lockReferencedEntities(ctx, r.tx, appt); err != nil {
		return domain.Appointment{}, err
	}
	if err := r.checkReferences(ctx, appt); err != nil {
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

	m := domain.Appointment{
		ClientID:        appt.ClientID,
		StylistID:       appt.StylistID,
		ServiceID:       appt.ServiceID,
		StartTime:       appt.StartTime.UTC(),
		EndTime:         appt.StartTime.UTC().Add(appt.Duration()),
		DurationMinutes: appt.DurationMinutes,
		Price:           appt.Price,
		Status:          appt.Status,
		Notes:           appt.Notes,
		IdempotencyKey:  appt.IdempotencyKey,
		CreatedAt:       appt.CreatedAt,
		UpdatedAt:       appt.UpdatedAt,
	}

	_, err := r.tx.NewInsert().Model(&m).Returning("id").Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return domain.Appointment{}, &domain.ConflictError{Start: m.StartTime, End: m.EndTime}
		}
		if isUniqueViolation(err) && m.IdempotencyKey != nil {
			return domain.Appointment{}, domain.ErrIdempotencyConflict
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r stylistTx) UpdateAppointment(ctx context.Context, id int64, upd store.AppointmentUpdate) (domain.Appointment, error) {
	a, err := r.GetAppointment(ctx, id)
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

	_, err = r.tx.NewUpdate().
		Model(&a).
		Column("status", "start_time", "end_time", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
			return domain.Appointment{}, &domain.ConflictError{Start: a.StartTime, End: a.EndTime}
		}
		return domain.Appointment{}, err
	}
	return a, nil
}

func (r stylistTx) RecordEvent(ctx context.Context, ev domain.OutboxEvent) error {
	m := ev
	_, err := r.tx.NewInsert().Model(&m).Returning("id").Exec(ctx)
	return err
}

func (r stylistTx) checkReferences(ctx context.Context, appt domain.Appointment) error {
	ok, err := r.tx.NewSelect().Model((*domain.Client)(nil)).Where("id = ?", appt.ClientID).Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.WrapValidation("unknown client", domain.NewNotFound("client", appt.ClientID))
	}

	var st domain.Stylist
	err = r.tx.NewSelect().Model(&st).Where("id = ?", appt.StylistID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapValidation("unknown stylist", domain.NewNotFound("stylist", appt.StylistID))
	}
	if err != nil {
		return err
	}

	var svc domain.Service
	err = r.tx.NewSelect().Model(&svc).Where("id = ?", appt.ServiceID).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.WrapValidation("unknown service", domain.NewNotFound("service", appt.ServiceID))
	}
	if err != nil {
		return err
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

func getAppointment(ctx context.Context, db bun.IDB, id int64) (domain.Appointment, error) {
	var a domain.Appointment
	err := db.NewSelect().
		Model(&a).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, domain.NewNotFound("appointment", id)
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	return normalizeOne(a), nil
}

func listStylistRange(ctx context.Context, db bun.IDB, stylistID int64, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := db.NewSelect().
		Model(&rows).
		Where("stylist_id = ?", stylistID).
		Where("start_time < ?", windowEnd.UTC()).
		Where("end_time > ?", windowStart.UTC()).
		OrderExpr("start_time ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return normalize(rows), nil
}

func normalize(rows []domain.Appointment) []domain.Appointment {
	for i := range rows {
		rows[i] = normalizeOne(rows[i])
	}
	return rows
}

func normalizeOne(a domain.Appointment) domain.Appointment {
	a.StartTime = a.StartTime.UTC()
	a.EndTime = a.EndTime.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
