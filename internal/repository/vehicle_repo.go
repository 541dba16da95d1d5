package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"carbooking/internal/domain"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *VehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	var v domain.Vehicle
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *VehicleRepository) List(ctx context.Context) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

// GetAvailable lists vehicles flagged available that have no recorded
// reservation overlapping [start, end).
func (r *VehicleRepository) GetAvailable(ctx context.Context, start, end time.Time) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	err := r.db.WithContext(ctx).
		Where("available = ?", true).
		Where(`NOT EXISTS (
SELECT 1 FROM reservations r
WHERE r.vehicle_id = vehicles.id
  AND r.start_at < ?
  AND r.end_at > ?
)`, end.UTC(), start.UTC()).
		Order("price_per_day ASC, id ASC").
		Find(&out).Error
	return out, err
}
