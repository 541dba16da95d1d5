package domain

type Extra struct {
	ID          int64   `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"not null"`
	Category    string  `json:"category"`
	PricePerDay float64 `json:"price_per_day"`
}

func (e *Extra) Snapshot() ExtraSnapshot {
	return ExtraSnapshot{
		"IdExtra":   e.ID,
		"Nom":       e.Name,
		"Prix":      e.PricePerDay,
		"Categorie": e.Category,
	}
}
