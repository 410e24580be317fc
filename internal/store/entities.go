package store

import (
	"context"

	"salonpro/internal/domain"
)

// EntityStore is the read boundary the scheduling core needs from profile storage.
type EntityStore interface {
	GetClient(ctx context.Context, id int64) (domain.Client, error)
	GetStylist(ctx context.Context, id int64) (domain.Stylist, error)
	GetService(ctx context.Context, id int64) (domain.Service, error)
}

// EntityAdmin is the CRUD surface used by the presentation layer.
type EntityAdmin interface {
	EntityStore

	CreateClient(ctx context.Context, c domain.Client) (domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	FindClientByPhone(ctx context.Context, phone string) (domain.Client, error)
	DeleteClient(ctx context.Context, id int64) error

	CreateStylist(ctx context.Context, s domain.Stylist) (domain.Stylist, error)
	ListStylists(ctx context.Context, activeOnly bool) ([]domain.Stylist, error)
	DeactivateStylist(ctx context.Context, id int64) error

	CreateService(ctx context.Context, s domain.Service) (domain.Service, error)
	ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error)
	DeactivateService(ctx context.Context, id int64) error
}
