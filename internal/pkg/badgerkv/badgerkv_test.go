package badgerkv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbooking/internal/domain"
)

func TestStore_SetGetDelete(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()

	_, err = s.Get(ctx, "pending:client:1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, "pending:client:1", []byte(`{"a":1}`)))
	got, err := s.Get(ctx, "pending:client:1")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, s.Delete(ctx, "pending:client:1"))
	_, err = s.Get(ctx, "pending:client:1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// deleting an absent key is not an error
	assert.NoError(t, s.Delete(ctx, "pending:client:1"))
}

func TestStore_KeysByPrefix(t *testing.T) {
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "pending:client:1", []byte("a")))
	require.NoError(t, s.Set(ctx, "pending:client:2", []byte("b")))
	require.NoError(t, s.Set(ctx, "draft:xyz", []byte("c")))

	keys, err := s.Keys(ctx, "pending:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pending:client:1", "pending:client:2"}, keys)
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "pending:client:9", []byte("kept")))
	require.NoError(t, s.Close())

	reopened, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, "pending:client:9")
	require.NoError(t, err)
	assert.Equal(t, "kept", string(got))
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}
