package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"carbooking/internal/domain"
)

// GateResult tells the caller whether the booking can go straight to commit
// or must first collect the missing profile fields.
type GateResult struct {
	Profile       *domain.ClientProfile      `json:"profile"`
	Token         string                     `json:"token,omitempty"`
	CanProceed    bool                       `json:"canProceed"`
	MissingFields []string                   `json:"missingFields"`
	Pending       *domain.PendingReservation `json:"pending,omitempty"`
}

// Err returns a ProfileIncompleteError when the client cannot proceed.
func (r *GateResult) Err() error {
	if r.CanProceed {
		return nil
	}
	return &ProfileIncompleteError{Missing: r.MissingFields}
}

type Gate struct {
	provider Provider
	profiles ProfileProvider
	staging  PendingStore
	log      *zap.Logger
}

func NewGate(provider Provider, profiles ProfileProvider, staging PendingStore, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{provider: provider, profiles: profiles, staging: staging, log: log}
}

// AfterLogin verifies credentials, attributes any anonymous staged
// reservation to the client and checks profile completeness. A rejected
// login leaves staging untouched.
func (g *Gate) AfterLogin(ctx context.Context, creds Credentials) (*GateResult, error) {
	res, err := g.provider.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, &AuthenticationError{Err: err}
	}
	return g.evaluate(ctx, res.Profile, res.Token)
}

func (g *Gate) AfterRegister(ctx context.Context, req RegisterRequest) (*GateResult, error) {
	res, err := g.provider.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return g.evaluate(ctx, res.Profile, res.Token)
}

// Recheck re-reads the profile, typically after the client completed it.
func (g *Gate) Recheck(ctx context.Context, clientID int64) (*GateResult, error) {
	profile, err := g.profiles.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", clientID, err)
	}
	return g.evaluate(ctx, profile, "")
}

func (g *Gate) evaluate(ctx context.Context, profile *domain.ClientProfile, token string) (*GateResult, error) {
	pending, err := g.staging.Attribute(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("attribute staged reservation: %w", err)
	}
	if pending == nil {
		pending, err = g.staging.Load(ctx, profile.ID)
		if err != nil {
			return nil, fmt.Errorf("load staged reservation: %w", err)
		}
	}

	missing := profile.MissingFields()
	result := &GateResult{
		Profile:       profile,
		Token:         token,
		CanProceed:    len(missing) == 0,
		MissingFields: missing,
		Pending:       pending,
	}

	if !result.CanProceed {
		g.log.Info("profile incomplete, booking kept staged",
			zap.Int64("client_id", profile.ID),
			zap.Strings("missing", missing),
			zap.Bool("has_pending", pending != nil),
		)
	}
	return result, nil
}
