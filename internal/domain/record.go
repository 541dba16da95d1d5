package domain

import "time"

// ReservationRecord is the backend of record's wire contract. Key names are
// fixed by the backend.
type ReservationRecord struct {
	ID             string        `json:"Id,omitempty"`
	ClientID       int64         `json:"IdClient"`
	VehicleID      int64         `json:"IdVehicule"`
	Start          time.Time     `json:"DateDebut"`
	End            time.Time     `json:"DateFin"`
	PickupLocation string        `json:"LieuDepart"`
	ReturnLocation string        `json:"LieuRetour"`
	Status         string        `json:"Statut"`
	TotalPrice     float64       `json:"PrixTotal"`
	Extras         []RecordExtra `json:"Extras"`
	IdempotencyKey string        `json:"CleIdempotence"`
}

type RecordExtra struct {
	ID    int64   `json:"IdExtra,omitempty"`
	Name  string  `json:"Nom"`
	Price float64 `json:"Prix"`
}

// Backend status values.
const (
	RecordStatusConfirmed = "Confirmee"
	RecordStatusPending   = "EnAttente"
)

func RecordFromCanonical(r CanonicalReservation) ReservationRecord {
	extras := make([]RecordExtra, 0, len(r.Extras))
	for _, e := range r.Extras {
		extras = append(extras, RecordExtra{ID: e.ID, Name: e.Name, Price: e.PricePerDay})
	}

	return ReservationRecord{
		ClientID:       r.ClientID,
		VehicleID:      r.VehicleID,
		Start:          r.Start.UTC(),
		End:            r.End.UTC(),
		PickupLocation: r.PickupLocation,
		ReturnLocation: r.ReturnLocation,
		Status:         RecordStatusPending,
		TotalPrice:     r.TotalPrice,
		Extras:         extras,
		IdempotencyKey: r.IdempotencyKey,
	}
}
