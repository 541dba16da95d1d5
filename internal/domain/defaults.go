package domain

// DefaultTable holds every placeholder used when a field cannot be resolved
// from any source. Reconciliation and pricing both read it, so the values
// stay consistent system-wide.
type DefaultTable struct {
	PickupLocation     string
	ReturnLocation     string
	VehicleName        string
	VehicleImage       string
	VehiclePricePerDay float64
	ExtraName          string
	// ExtraPrices maps a known extra name (case-insensitive) to its default
	// price per day.
	ExtraPrices map[string]float64
	// ExtrasBundle is charged when the extras list cannot be resolved at all.
	ExtrasBundle []ReservationExtra
}

func DefaultDefaults() DefaultTable {
	return DefaultTable{
		PickupLocation:     "Agence principale",
		ReturnLocation:     "Agence principale",
		VehicleName:        "Véhicule",
		VehicleImage:       "/images/vehicule-default.png",
		VehiclePricePerDay: 450,
		ExtraName:          "Option",
		ExtraPrices: map[string]float64{
			"gps":                    70,
			"siège bébé":             20,
			"siege bebe":             20,
			"baby-chair":             20,
			"conducteur additionnel": 80,
			"additional driver":      80,
		},
		ExtrasBundle: []ReservationExtra{
			{Name: "GPS", PricePerDay: 70},
			{Name: "Siège bébé", PricePerDay: 20},
			{Name: "Conducteur additionnel", PricePerDay: 80},
		},
	}
}
