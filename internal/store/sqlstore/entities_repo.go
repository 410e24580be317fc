package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"

	"salonpro/internal/domain"
)

func (r *Store) CreateClient(ctx context.Context, c domain.Client) (domain.Client, error) {
	if err := domain.ValidateEntity(c); err != nil {
		return domain.Client{}, err
	}
	c.Phone = strings.TrimSpace(c.Phone)
	if _, err := r.db.NewInsert().Model(&c).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Client{}, domain.NewValidationError("phone already registered")
		}
		return domain.Client{}, err
	}
	return c, nil
}

func (r *Store) GetClient(ctx context.Context, id int64) (domain.Client, error) {
	var c domain.Client
	if err := r.getByID(ctx, &c, id); err != nil {
		return domain.Client{}, notFound(err, "client", id)
	}
	return c, nil
}

func (r *Store) ListClients(ctx context.Context) ([]domain.Client, error) {
	var rows []domain.Client
	if err := r.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Store) FindClientByPhone(ctx context.Context, phone string) (domain.Client, error) {
	var c domain.Client
	err := r.db.NewSelect().
		Model(&c).
		Where("phone = ?", strings.TrimSpace(phone)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Client{}, &domain.NotFoundError{Kind: "client"}
	}
	if err != nil {
		return domain.Client{}, err
	}
	return c, nil
}

func (r *Store) DeleteClient(ctx context.Context, id int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockEntity(ctx, tx, "client", id); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, (*domain.Client)(nil), "client", id); err != nil {
			return err
		}
		if err := rejectScheduled(ctx, tx, "client_id", id); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*domain.Client)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}

func (r *Store) CreateStylist(ctx context.Context, s domain.Stylist) (domain.Stylist, error) {
	if err := domain.ValidateEntity(s); err != nil {
		return domain.Stylist{}, err
	}
	if _, err := r.db.NewInsert().Model(&s).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Stylist{}, domain.NewValidationError("stylist phone or email already registered")
		}
		return domain.Stylist{}, err
	}
	return s, nil
}

func (r *Store) GetStylist(ctx context.Context, id int64) (domain.Stylist, error) {
	var s domain.Stylist
	if err := r.getByID(ctx, &s, id); err != nil {
		return domain.Stylist{}, notFound(err, "stylist", id)
	}
	return s, nil
}

func (r *Store) ListStylists(ctx context.Context, activeOnly bool) ([]domain.Stylist, error) {
	var rows []domain.Stylist
	q := r.db.NewSelect().Model(&rows).Order("id ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

// DeactivateStylist takes the stylist's timeline lock so no booking can slip
// in between the scheduled-appointment check and the update.
func (r *Store) DeactivateStylist(ctx context.Context, id int64) error {
	unlock, err := r.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockStylistTimeline(ctx, tx, id); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, (*domain.Stylist)(nil), "stylist", id); err != nil {
			return err
		}
		if err := rejectScheduled(ctx, tx, "stylist_id", id); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*domain.Stylist)(nil)).
			Set("active = ?", false).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
}

func (r *Store) CreateService(ctx context.Context, s domain.Service) (domain.Service, error) {
	if err := domain.ValidateEntity(s); err != nil {
		return domain.Service{}, err
	}
	exists, err := r.db.NewSelect().
		Model((*domain.Service)(nil)).
		Where("LOWER(name) = LOWER(?)", s.Name).
		Exists(ctx)
	if err != nil {
		return domain.Service{}, err
	}
	if exists {
		return domain.Service{}, domain.NewValidationError("service name already exists")
	}
	if _, err := r.db.NewInsert().Model(&s).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.Service{}, domain.NewValidationError("service name already exists")
		}
		return domain.Service{}, err
	}
	return s, nil
}

func (r *Store) GetService(ctx context.Context, id int64) (domain.Service, error) {
	var s domain.Service
	if err := r.getByID(ctx, &s, id); err != nil {
		return domain.Service{}, notFound(err, "service", id)
	}
	return s, nil
}

func (r *Store) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	var rows []domain.Service
	q := r.db.NewSelect().Model(&rows).Order("id ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Store) DeactivateService(ctx context.Context, id int64) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockEntity(ctx, tx, "service", id); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, (*domain.Service)(nil), "service", id); err != nil {
			return err
		}
		if err := rejectScheduled(ctx, tx, "service_id", id); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model((*domain.Service)(nil)).
			Set("active = ?", false).
			Where("id = ?", id).
			Exec(ctx)
		return err
	})
}

func (r *Store) getByID(ctx context.Context, model any, id int64) error {
	return r.db.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
}

func notFound(err error, kind string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFound(kind, id)
	}
	return err
}

func requireRow(ctx context.Context, tx bun.Tx, model any, kind string, id int64) error {
	ok, err := tx.NewSelect().Model(model).Where("id = ?", id).Exists(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NewNotFound(kind, id)
	}
	return nil
}

func rejectScheduled(ctx context.Context, tx bun.Tx, column string, id int64) error {
	inUse, err := tx.NewSelect().
		Model((*domain.Appointment)(nil)).
		Where("? = ?", bun.Ident(column), id).
		Where("status = ?", domain.StatusScheduled).
		Exists(ctx)
	if err != nil {
		return err
	}
	if inUse {
		return domain.ErrEntityInUse
	}
	return nil
}
