package booking

import (
	"carbooking/internal/domain"
	"carbooking/internal/modules/auth"
)

// SessionView is what callers see of a booking session.
type SessionView struct {
	ID            string                     `json:"id"`
	ClientID      int64                      `json:"clientId,omitempty"`
	Step          int                        `json:"step"`
	StepName      string                     `json:"stepName"`
	Draft         domain.BookingDraft        `json:"draft"`
	Query         string                     `json:"query"`
	Token         string                     `json:"token"`
	AccessToken   string                     `json:"accessToken,omitempty"`
	Profile       *domain.ClientProfile      `json:"profile,omitempty"`
	CanProceed    bool                       `json:"canProceed"`
	MissingFields []string                   `json:"missingFields,omitempty"`
	Pending       *domain.PendingReservation `json:"pending,omitempty"`
	Reservation   *domain.PendingReservation `json:"reservation,omitempty"`
}

type ResumeRequest struct {
	Token string `json:"token" binding:"required"`
}

type RestoreRequest struct {
	Step string `json:"step" binding:"required"`
}

type LoginRequest = auth.Credentials

type ProfileRequest = auth.UpdateProfileRequest

// Event is a message pushed over the live channel.
type Event struct {
	Type    string       `json:"type"`
	Session *SessionView `json:"session,omitempty"`
	Error   string       `json:"error,omitempty"`
}

const (
	EventSession = "session"
	EventRefresh = "refresh"
	EventClosed  = "closed"
	EventPong    = "pong"
	EventError   = "error"
)
