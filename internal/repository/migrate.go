package repository

import (
	"gorm.io/gorm"

	"carbooking/internal/domain"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Vehicle{},
		&domain.Extra{},
		&domain.Client{},
		&reservationModel{},
		&stagingModel{},
	)
}
