package domain

import "time"

// ClientIdentity is the client block collected by the confirmation step of
// the booking form.
type ClientIdentity struct {
	Civility         string `json:"civility,omitempty"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	Email            string `json:"email,omitempty"`
	Password         string `json:"password,omitempty"`
	Phone            string `json:"phone,omitempty"`
	IdentityDocument string `json:"identityDocument,omitempty"`
	BirthDate        string `json:"birthDate,omitempty"`
	LicenseNumber    string `json:"licenseNumber,omitempty"`
	LicenseIssuedAt  string `json:"licenseIssuedAt,omitempty"`
	Address          string `json:"address,omitempty"`
}

// WithoutSecrets returns a copy that is safe to persist or echo back.
func (c ClientIdentity) WithoutSecrets() ClientIdentity {
	c.Password = ""
	return c
}

// BookingDraft is the in-progress reservation assembled by the wizard.
// Dates stay raw strings until pricing parses them.
type BookingDraft struct {
	PickupLocation string         `json:"pickupLocation,omitempty"`
	PickupAt       string         `json:"pickupAt,omitempty"`
	ReturnLocation string         `json:"returnLocation,omitempty"`
	ReturnAt       string         `json:"returnAt,omitempty"`
	VehicleID      int64          `json:"vehicleId,omitempty"`
	ExtraIDs       []int64        `json:"extraIds"`
	Client         ClientIdentity `json:"client"`
	Step           int            `json:"step"`
}

// DraftState is the transient "draft in progress" slot of a booking session.
type DraftState struct {
	SessionID string       `json:"sessionId"`
	ClientID  int64        `json:"clientId,omitempty"`
	Draft     BookingDraft `json:"draft"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
