package domain

import (
	"strings"
	"time"
)

// Profile field names as the client profile service spells them. They are
// also the names reported back to callers in missing-field lists.
const (
	FieldCivility         = "civilite"
	FieldIdentityDocument = "cinPassport"
	FieldBirthDate        = "dateNaissance"
	FieldLicenseNumber    = "numPermis"
	FieldLicenseIssuedAt  = "datePermis"
	FieldAddress          = "adresse"
)

// RequiredProfileFields must all be present before a reservation can be
// committed for a client.
var RequiredProfileFields = []string{
	FieldCivility,
	FieldIdentityDocument,
	FieldBirthDate,
	FieldLicenseNumber,
	FieldLicenseIssuedAt,
	FieldAddress,
}

// Client is the persisted account behind the reference authentication and
// profile providers.
type Client struct {
	ID               int64     `json:"id" gorm:"primaryKey"`
	Email            string    `json:"email" gorm:"uniqueIndex;not null" validate:"required,email"`
	PasswordHash     string    `json:"-" gorm:"not null"`
	Civility         string    `json:"civility,omitempty"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Phone            string    `json:"phone,omitempty"`
	IdentityDocument string    `json:"identity_document,omitempty"`
	BirthDate        string    `json:"birth_date,omitempty"`
	LicenseNumber    string    `json:"license_number,omitempty"`
	LicenseIssuedAt  string    `json:"license_issued_at,omitempty"`
	Address          string    `json:"address,omitempty"`
	PreferredAgency  string    `json:"preferred_agency,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (c *Client) Profile() *ClientProfile {
	return &ClientProfile{
		ID:               c.ID,
		Email:            c.Email,
		Civility:         c.Civility,
		FirstName:        c.FirstName,
		LastName:         c.LastName,
		Phone:            c.Phone,
		IdentityDocument: c.IdentityDocument,
		BirthDate:        c.BirthDate,
		LicenseNumber:    c.LicenseNumber,
		LicenseIssuedAt:  c.LicenseIssuedAt,
		Address:          c.Address,
		PreferredAgency:  c.PreferredAgency,
	}
}

// ClientProfile is owned by the profile service. The booking engine only
// reads it.
type ClientProfile struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	Civility         string `json:"civilite,omitempty"`
	FirstName        string `json:"prenom,omitempty"`
	LastName         string `json:"nom,omitempty"`
	Phone            string `json:"telephone,omitempty"`
	IdentityDocument string `json:"cinPassport,omitempty"`
	BirthDate        string `json:"dateNaissance,omitempty"`
	LicenseNumber    string `json:"numPermis,omitempty"`
	LicenseIssuedAt  string `json:"datePermis,omitempty"`
	Address          string `json:"adresse,omitempty"`
	PreferredAgency  string `json:"agencePreferee,omitempty"`
}

// MissingFields lists the required profile fields that are still blank, in
// RequiredProfileFields order.
func (p *ClientProfile) MissingFields() []string {
	values := map[string]string{
		FieldCivility:         p.Civility,
		FieldIdentityDocument: p.IdentityDocument,
		FieldBirthDate:        p.BirthDate,
		FieldLicenseNumber:    p.LicenseNumber,
		FieldLicenseIssuedAt:  p.LicenseIssuedAt,
		FieldAddress:          p.Address,
	}

	missing := make([]string, 0)
	for _, name := range RequiredProfileFields {
		if strings.TrimSpace(values[name]) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func (p *ClientProfile) IsComplete() bool {
	return len(p.MissingFields()) == 0
}

// Identity projects the profile onto the identity block of a booking draft.
func (p *ClientProfile) Identity() ClientIdentity {
	return ClientIdentity{
		Civility:         p.Civility,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Phone:            p.Phone,
		IdentityDocument: p.IdentityDocument,
		BirthDate:        p.BirthDate,
		LicenseNumber:    p.LicenseNumber,
		LicenseIssuedAt:  p.LicenseIssuedAt,
		Address:          p.Address,
	}
}
