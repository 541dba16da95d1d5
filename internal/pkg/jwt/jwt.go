package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const (
	audienceClient  = "client"
	audienceSession = "booking-session"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid claims")
)

type Service struct {
	secret     []byte
	ttl        time.Duration
	sessionTTL time.Duration
}

// Claims identify an authenticated client.
type Claims struct {
	ClientID int64 `json:"client_id"`
	jwtlib.RegisteredClaims
}

// SessionClaims carry a booking session across an interruption such as a
// login or profile-completion redirect.
type SessionClaims struct {
	SessionID string `json:"sid"`
	ClientID  int64  `json:"client_id,omitempty"`
	jwtlib.RegisteredClaims
}

func New(secret string, ttl, sessionTTL time.Duration) *Service {
	return &Service{
		secret:     []byte(secret),
		ttl:        ttl,
		sessionTTL: sessionTTL,
	}
}

func (s *Service) GenerateToken(clientID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		ClientID: clientID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Audience:  jwtlib.ClaimStrings{audienceClient},
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenStr, claims, audienceClient); err != nil {
		return nil, err
	}
	if claims.ClientID <= 0 {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func (s *Service) GenerateSessionToken(sessionID string, clientID int64) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		SessionID: sessionID,
		ClientID:  clientID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Audience:  jwtlib.ClaimStrings{audienceSession},
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.sessionTTL)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateSessionToken(tokenStr string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.parse(tokenStr, claims, audienceSession); err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

func (s *Service) parse(tokenStr string, claims jwtlib.Claims, audience string) error {
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithAudience(audience),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
