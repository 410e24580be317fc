package sqlstore

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"salonpro/internal/domain"
)

func (r *Store) FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []domain.OutboxEvent
	err := r.db.NewSelect().
		Model(&rows).
		Where("published_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Store) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().
		Model((*domain.OutboxEvent)(nil)).
		Set("published_at = ?", time.Now().UTC()).
		Where("id IN (?)", bun.In(ids)).
		Where("published_at IS NULL").
		Exec(ctx)
	return err
}
