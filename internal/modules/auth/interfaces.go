package auth

import (
	"context"

	"carbooking/internal/domain"
)

// ClientRepositoryInterface is the part of the client repository the
// reference provider uses.
type ClientRepositoryInterface interface {
	Create(ctx context.Context, c *domain.Client) error
	GetByEmail(ctx context.Context, email string) (*domain.Client, error)
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	Update(ctx context.Context, c *domain.Client) error
	IsUniqueViolation(err error) bool
}

type jwtService interface {
	GenerateToken(clientID int64) (string, error)
}

// Provider authenticates clients.
type Provider interface {
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
}

// ProfileProvider serves the authoritative client profile.
type ProfileProvider interface {
	GetByID(ctx context.Context, clientID int64) (*domain.ClientProfile, error)
}

// PendingStore is the slice of the staging store the gate touches.
type PendingStore interface {
	Attribute(ctx context.Context, clientID int64) (*domain.PendingReservation, error)
	Load(ctx context.Context, clientID int64) (*domain.PendingReservation, error)
}
