package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"carbooking/internal/domain"
)

// Service is the reference authentication and client profile provider.
type Service struct {
	clients ClientRepositoryInterface
	jwt     jwtService
}

func NewService(clients ClientRepositoryInterface, jwt jwtService) *Service {
	return &Service{clients: clients, jwt: jwt}
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	client, err := s.clients.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(client.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Profile: client.Profile(), Token: token}, nil
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.clients.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	client := &domain.Client{
		Email:            email,
		PasswordHash:     hash,
		Civility:         strings.TrimSpace(req.Civility),
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Phone:            strings.TrimSpace(req.Phone),
		IdentityDocument: strings.TrimSpace(req.IdentityDocument),
		BirthDate:        strings.TrimSpace(req.BirthDate),
		LicenseNumber:    strings.TrimSpace(req.LicenseNumber),
		LicenseIssuedAt:  strings.TrimSpace(req.LicenseIssuedAt),
		Address:          strings.TrimSpace(req.Address),
		PreferredAgency:  strings.TrimSpace(req.PreferredAgency),
	}
	if err := s.clients.Create(ctx, client); err != nil {
		if s.clients.IsUniqueViolation(err) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	token, err := s.jwt.GenerateToken(client.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Profile: client.Profile(), Token: token}, nil
}

func (s *Service) GetByID(ctx context.Context, clientID int64) (*domain.ClientProfile, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return client.Profile(), nil
}

func (s *Service) UpdateProfile(ctx context.Context, clientID int64, req UpdateProfileRequest) (*domain.ClientProfile, error) {
	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&client.Civility, req.Civility)
	set(&client.FirstName, req.FirstName)
	set(&client.LastName, req.LastName)
	set(&client.Phone, req.Phone)
	set(&client.IdentityDocument, req.IdentityDocument)
	set(&client.BirthDate, req.BirthDate)
	set(&client.LicenseNumber, req.LicenseNumber)
	set(&client.LicenseIssuedAt, req.LicenseIssuedAt)
	set(&client.Address, req.Address)
	set(&client.PreferredAgency, req.PreferredAgency)

	if err := s.clients.Update(ctx, client); err != nil {
		return nil, err
	}
	return client.Profile(), nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
