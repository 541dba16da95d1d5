package auth

import "carbooking/internal/domain"

type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Civility         string `json:"civilite"`
	FirstName        string `json:"prenom" binding:"required"`
	LastName         string `json:"nom" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"motDePasse" binding:"required,min=6"`
	Phone            string `json:"telephone"`
	IdentityDocument string `json:"cinPassport"`
	BirthDate        string `json:"dateNaissance"`
	LicenseNumber    string `json:"numPermis"`
	LicenseIssuedAt  string `json:"datePermis"`
	Address          string `json:"adresse"`
	PreferredAgency  string `json:"agencePreferee"`
}

// RegisterRequestFromIdentity builds a registration from the identity block
// collected by the booking form.
func RegisterRequestFromIdentity(id domain.ClientIdentity) RegisterRequest {
	return RegisterRequest{
		Civility:         id.Civility,
		FirstName:        id.FirstName,
		LastName:         id.LastName,
		Email:            id.Email,
		Password:         id.Password,
		Phone:            id.Phone,
		IdentityDocument: id.IdentityDocument,
		BirthDate:        id.BirthDate,
		LicenseNumber:    id.LicenseNumber,
		LicenseIssuedAt:  id.LicenseIssuedAt,
		Address:          id.Address,
	}
}

// UpdateProfileRequest only changes the fields that are set.
type UpdateProfileRequest struct {
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

type AuthResult struct {
	Profile *domain.ClientProfile `json:"profile"`
	Token   string                `json:"token"`
}
