package rediskv

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbooking/internal/domain"
)

// Runs against a real server only when REDIS_TEST_ADDR is set.
func newTestStore(t *testing.T) *Store {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	s := New(Options{Addr: addr, Prefix: "carbooking-test:" + uuid.NewString() + ":"})
	require.NoError(t, s.Ping(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "pending:current")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, "pending:current", []byte("x")))
	require.NoError(t, s.Set(ctx, "pending:client:3", []byte("y")))

	got, err := s.Get(ctx, "pending:current")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))

	keys, err := s.Keys(ctx, "pending:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pending:current", "pending:client:3"}, keys)

	require.NoError(t, s.Delete(ctx, "pending:current"))
	_, err = s.Get(ctx, "pending:current")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewWithClient_DefaultPrefix(t *testing.T) {
	s := NewWithClient(nil, "", 0)
	assert.Equal(t, DefaultPrefix, s.prefix)
}
