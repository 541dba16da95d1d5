package catalog

import (
	"context"
	"time"

	"carbooking/internal/domain"
)

type VehicleRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	List(ctx context.Context) ([]domain.Vehicle, error)
	GetAvailable(ctx context.Context, start, end time.Time) ([]domain.Vehicle, error)
}

type ExtraRepository interface {
	ListAll(ctx context.Context) ([]domain.Extra, error)
}
