package domain

import "time"

type ReservationStatus string

const (
	ReservationStaged    ReservationStatus = "staged"
	ReservationCommitted ReservationStatus = "committed"
)

type ReservationExtra struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name"`
	PricePerDay float64 `json:"pricePerDay"`
}

// CanonicalReservation is the reconciled, priced form of a booking draft.
// End is strictly after Start. Unless TotalAuthoritative is set,
// TotalPrice == VehicleTotal + ExtrasTotal.
type CanonicalReservation struct {
	ClientID           int64              `json:"clientId"`
	VehicleID          int64              `json:"vehicleId"`
	VehicleName        string             `json:"vehicleName"`
	VehicleImage       string             `json:"vehicleImage"`
	VehiclePricePerDay float64            `json:"vehiclePricePerDay"`
	Start              time.Time          `json:"start"`
	End                time.Time          `json:"end"`
	PickupLocation     string             `json:"pickupLocation"`
	ReturnLocation     string             `json:"returnLocation"`
	Extras             []ReservationExtra `json:"extras"`
	DurationDays       int                `json:"durationDays"`
	VehicleTotal       float64            `json:"vehicleTotal"`
	ExtrasTotal        float64            `json:"extrasTotal"`
	TotalPrice         float64            `json:"totalPrice"`
	TotalAuthoritative bool               `json:"totalAuthoritative,omitempty"`
	Status             ReservationStatus  `json:"status"`
	IdempotencyKey     string             `json:"idempotencyKey,omitempty"`
}

// PendingReservation is a canonical reservation parked in the staging store
// until the backend acknowledges it.
type PendingReservation struct {
	CanonicalReservation
	CreatedAt time.Time `json:"createdAt"`
	BackendID string    `json:"backendId,omitempty"`
}

// BackendAck is what the reservation backend returns on create.
type BackendAck struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
