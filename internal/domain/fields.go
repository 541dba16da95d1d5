package domain

// Fields is a loosely-typed record as delivered by an upstream source: URL
// query parameters, a form post or a catalog payload. Keys are kept exactly
// as the source spelled them.
type Fields map[string]any

// VehicleSnapshot is a read-only vehicle record fetched from the catalog.
type VehicleSnapshot map[string]any

// ExtraSnapshot is a read-only extra record fetched from the extras catalog.
type ExtraSnapshot map[string]any
