package staging

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbooking/internal/database"
	"carbooking/internal/domain"
	"carbooking/internal/pkg/badgerkv"
	"carbooking/internal/repository"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string][]byte{}}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryKV) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

var fixedNow = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(kv KV) *Store {
	s := NewStore(kv, zap.NewNop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func sampleReservation(clientID int64) domain.PendingReservation {
	start := time.Date(2025, 5, 15, 10, 0, 0, 0, time.UTC)
	return domain.PendingReservation{
		CanonicalReservation: domain.CanonicalReservation{
			ClientID:           clientID,
			VehicleID:          3,
			VehicleName:        "Dacia Duster",
			VehicleImage:       "/img/duster.png",
			VehiclePricePerDay: 1200,
			Start:              start,
			End:                start.Add(5 * 24 * time.Hour),
			PickupLocation:     "Agency",
			ReturnLocation:     "Agency",
			Extras:             []domain.ReservationExtra{{ID: 2, Name: "baby-chair", PricePerDay: 30}},
			DurationDays:       5,
			VehicleTotal:       6000,
			ExtrasTotal:        150,
			TotalPrice:         6150,
			Status:             domain.ReservationStaged,
			IdempotencyKey:     "idem-1",
		},
	}
}

func TestStore_SaveLoadLastWriteWins(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	got, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	first := sampleReservation(1)
	require.NoError(t, s.Save(ctx, 1, first))

	second := sampleReservation(1)
	second.PickupLocation = "Rabat"
	second.Extras = nil
	require.NoError(t, s.Save(ctx, 1, second))

	got, err = s.Load(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Rabat", got.PickupLocation)
	assert.Nil(t, got.Extras, "no merge with the previous value")
	assert.Equal(t, fixedNow, got.CreatedAt)
}

func TestStore_RequiresClient(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	assert.ErrorIs(t, s.Save(ctx, 0, sampleReservation(0)), ErrNoClient)
	_, err := s.Load(ctx, 0)
	assert.ErrorIs(t, err, ErrNoClient)
	assert.ErrorIs(t, s.Clear(ctx, -1), ErrNoClient)
}

func TestStore_ClearAlsoClearsOwnCurrentSlot(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	require.NoError(t, s.SaveCurrent(ctx, sampleReservation(1)))
	require.NoError(t, s.Clear(ctx, 1))

	got, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
	current, err := s.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestStore_ClearKeepsOtherClientsCurrentSlot(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, 1, sampleReservation(1)))
	require.NoError(t, s.SaveCurrent(ctx, sampleReservation(2)))
	require.NoError(t, s.Clear(ctx, 1))

	current, err := s.LoadCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, int64(2), current.ClientID)
}

func TestStore_AttributeCopiesAnonymousCurrentSlot(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	require.NoError(t, s.SaveCurrent(ctx, sampleReservation(0)))

	got, err := s.Attribute(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ClientID)

	staged, err := s.Load(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, staged)
	assert.Equal(t, 6150.0, staged.TotalPrice)

	current, err := s.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), current.ClientID)

	other, err := s.Attribute(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, other, "a slot attributed to one client is not handed to another")
}

func TestStore_AttributeWithEmptyCurrentSlot(t *testing.T) {
	s := newTestStore(newMemoryKV())

	got, err := s.Attribute(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_MarkPersisted(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	_, err := s.MarkPersisted(ctx, 1, "42")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, s.Save(ctx, 1, sampleReservation(1)))
	got, err := s.MarkPersisted(ctx, 1, "42")
	require.NoError(t, err)
	assert.Equal(t, "42", got.BackendID)
	assert.Equal(t, domain.ReservationCommitted, got.Status)

	loaded, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "42", loaded.BackendID)
}

func TestStore_DraftSlotDropsPassword(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	state := domain.DraftState{
		SessionID: "s-1",
		Draft: domain.BookingDraft{
			PickupLocation: "Agency",
			Step:           2,
			Client:         domain.ClientIdentity{Email: "a@b.ma", Password: "secret1"},
		},
	}
	require.NoError(t, s.SaveDraft(ctx, state))

	got, err := s.LoadDraft(ctx, "s-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Draft.Step)
	assert.Equal(t, "a@b.ma", got.Draft.Client.Email)
	assert.Empty(t, got.Draft.Client.Password)
	assert.Equal(t, fixedNow, got.UpdatedAt)

	require.NoError(t, s.ClearDraft(ctx, "s-1"))
	got, err = s.LoadDraft(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.SaveDraft(ctx, domain.DraftState{}), ErrNoSession)
}

func TestStore_ListAndPurge(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, 1, sampleReservation(1)))
	require.NoError(t, s.SaveDraft(ctx, domain.DraftState{SessionID: "old"}))

	s.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }
	require.NoError(t, s.Save(ctx, 2, sampleReservation(2)))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "pending:client:1", entries[0].Key)
	assert.Equal(t, int64(1), entries[0].ClientID)
	assert.Equal(t, "draft:old", entries[2].Key)

	removed, err := s.PurgeOlderThan(ctx, fixedNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ClientID)
}

func TestStore_ConcurrentSavesSerialize(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := sampleReservation(1)
			r.PickupLocation = fmt.Sprintf("Agency %d", i)
			assert.NoError(t, s.Save(ctx, 1, r))
		}(i)
	}
	wg.Wait()

	got, err := s.Load(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, strings.HasPrefix(got.PickupLocation, "Agency "))
}

func TestStore_SurvivesRestart_Badger(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	want := sampleReservation(1)

	kv, err := badgerkv.Open(badgerkv.Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, newTestStore(kv).Save(ctx, 1, want))
	require.NoError(t, kv.Close())

	reopened, err := badgerkv.Open(badgerkv.Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := newTestStore(reopened).Load(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)

	want.CreatedAt = fixedNow
	assert.Equal(t, want, *got)
}

func TestStore_SurvivesRestart_SQL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staging.db")
	ctx := context.Background()
	want := sampleReservation(1)

	db, err := database.Connect(path)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))
	require.NoError(t, newTestStore(repository.NewStagingRepository(db)).Save(ctx, 1, want))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	reopened, err := database.Connect(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		if s, err := reopened.DB(); err == nil {
			_ = s.Close()
		}
	})

	got, err := newTestStore(repository.NewStagingRepository(reopened)).Load(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)

	want.CreatedAt = fixedNow
	assert.Equal(t, want, *got)
}

func TestStore_SessionViewsHaveSeparateCurrentSlots(t *testing.T) {
	s := newTestStore(newMemoryKV())
	ctx := context.Background()

	a := s.Session("a")
	b := s.Session("b")

	ra := sampleReservation(0)
	ra.PickupLocation = "From A"
	require.NoError(t, a.SaveCurrent(ctx, ra))
	rb := sampleReservation(0)
	rb.PickupLocation = "From B"
	require.NoError(t, b.SaveCurrent(ctx, rb))

	got, err := a.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Equal(t, "From A", got.PickupLocation)

	unscoped, err := s.LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Nil(t, unscoped)

	attributed, err := b.Attribute(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, attributed)

	staged, err := s.Load(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "From B", staged.PickupLocation, "client slots are shared across views")
}
