package repository

import (
	"context"

	"gorm.io/gorm"

	"carbooking/internal/domain"
)

type ExtraRepository struct {
	db *gorm.DB
}

func NewExtraRepository(db *gorm.DB) *ExtraRepository {
	return &ExtraRepository{db: db}
}

func (r *ExtraRepository) Create(ctx context.Context, e *domain.Extra) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ExtraRepository) ListAll(ctx context.Context) ([]domain.Extra, error) {
	var out []domain.Extra
	err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}
