package store

import (
	"context"

	"salonpro/internal/domain"
)

type Outbox interface {
	FetchUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

// Store is everything a composed application opens at start and closes at shutdown.
type Store interface {
	AppointmentRepository
	EntityAdmin
	Outbox

	Ping(ctx context.Context) error
	Close() error
}
