package domain

import "time"

type Vehicle struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Brand       string    `json:"brand" gorm:"not null"`
	Model       string    `json:"model" gorm:"not null"`
	Category    string    `json:"category"`
	PricePerDay float64   `json:"price_per_day" validate:"gte=0"`
	ImageURL    string    `json:"image_url,omitempty"`
	Available   bool      `json:"available" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot renders the vehicle the way the catalog service publishes it.
func (v *Vehicle) Snapshot() VehicleSnapshot {
	return VehicleSnapshot{
		"IdVehicule":  v.ID,
		"Marque":      v.Brand,
		"Modele":      v.Model,
		"Categorie":   v.Category,
		"PrixParJour": v.PricePerDay,
		"Image":       v.ImageURL,
	}
}
