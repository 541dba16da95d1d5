package booking

import (
	"context"

	"carbooking/internal/domain"
	"carbooking/internal/modules/auth"
	"carbooking/internal/pkg/jwt"
)

type VehicleCatalog interface {
	GetByID(ctx context.Context, id int64) (domain.VehicleSnapshot, error)
}

type ExtrasCatalog interface {
	ListAll(ctx context.Context) ([]domain.ExtraSnapshot, error)
}

// ProfileService reads and completes client profiles.
type ProfileService interface {
	GetByID(ctx context.Context, clientID int64) (*domain.ClientProfile, error)
	UpdateProfile(ctx context.Context, clientID int64, req auth.UpdateProfileRequest) (*domain.ClientProfile, error)
}

type Committer interface {
	Commit(ctx context.Context, clientID int64, r domain.CanonicalReservation) (*domain.PendingReservation, error)
	History(ctx context.Context, clientID int64) ([]domain.ReservationRecord, error)
}

type SessionTokens interface {
	GenerateSessionToken(sessionID string, clientID int64) (string, error)
	ValidateSessionToken(token string) (*jwt.SessionClaims, error)
}

// Publisher pushes session updates to a live subscriber, if any.
type Publisher interface {
	Publish(sessionID string, event any) bool
}
