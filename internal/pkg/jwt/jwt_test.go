package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_AccessToken_RoundTrip(t *testing.T) {
	svc := New("test-secret", time.Hour, time.Hour)

	token, err := svc.GenerateToken(42)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.ClientID)
}

func TestService_SessionToken_RoundTrip(t *testing.T) {
	svc := New("test-secret", time.Hour, time.Hour)

	token, err := svc.GenerateSessionToken("sess-1", 7)
	require.NoError(t, err)

	claims, err := svc.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, int64(7), claims.ClientID)
}

func TestService_TokensAreNotInterchangeable(t *testing.T) {
	svc := New("test-secret", time.Hour, time.Hour)

	access, err := svc.GenerateToken(42)
	require.NoError(t, err)
	session, err := svc.GenerateSessionToken("sess-1", 0)
	require.NoError(t, err)

	_, err = svc.ValidateSessionToken(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken(session)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_RejectsForeignSecretAndExpiry(t *testing.T) {
	issuer := New("secret-a", time.Hour, time.Hour)
	verifier := New("secret-b", time.Hour, time.Hour)

	token, err := issuer.GenerateToken(1)
	require.NoError(t, err)
	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := New("secret-a", -time.Minute, -time.Minute)
	token, err = expired.GenerateSessionToken("sess", 0)
	require.NoError(t, err)
	_, err = expired.ValidateSessionToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
