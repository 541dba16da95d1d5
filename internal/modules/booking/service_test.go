package booking

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carbooking/internal/database"
	"carbooking/internal/domain"
	"carbooking/internal/modules/auth"
	"carbooking/internal/modules/commit"
	"carbooking/internal/modules/reconcile"
	"carbooking/internal/modules/staging"
	"carbooking/internal/modules/wizard"
	"carbooking/internal/pkg/badgerkv"
	"carbooking/internal/pkg/jwt"
	"carbooking/internal/repository"
)

type catalogStub struct {
	vehicles map[int64]domain.VehicleSnapshot
	extras   []domain.ExtraSnapshot
}

func (c *catalogStub) GetByID(_ context.Context, id int64) (domain.VehicleSnapshot, error) {
	v, ok := c.vehicles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (c *catalogStub) ListAll(context.Context) ([]domain.ExtraSnapshot, error) {
	return c.extras, nil
}

type failingCommitter struct {
	calls int
}

func (f *failingCommitter) Commit(_ context.Context, clientID int64, _ domain.CanonicalReservation) (*domain.PendingReservation, error) {
	f.calls++
	return nil, &commit.CommitFailure{ClientID: clientID, Err: errors.New("backend unavailable")}
}

func (f *failingCommitter) History(context.Context, int64) ([]domain.ReservationRecord, error) {
	return nil, nil
}

type fixture struct {
	svc     *Service
	store   *staging.Store
	auth    *auth.Service
	backend *repository.ReservationRepository
	catalog *catalogStub
	deps    Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:booking_test_%s?mode=memory&cache=shared", t.Name())
	db, err := database.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db))

	kv, err := badgerkv.Open(badgerkv.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	store := staging.NewStore(kv, zap.NewNop())
	tokens := jwt.New("test-secret", time.Hour, time.Hour)
	authSvc := auth.NewService(repository.NewClientRepository(db), tokens)
	backend := repository.NewReservationRepository(db)

	catalog := &catalogStub{
		vehicles: map[int64]domain.VehicleSnapshot{
			3: {"IdVehicule": 3, "Marque": "Peugeot", "Modele": "308", "PrixParJour": 1200.0},
		},
		extras: []domain.ExtraSnapshot{
			{"IdExtra": 1, "Nom": "GPS", "Prix": 30.0},
			{"idExtra": 2, "nom": "Siège bébé", "prix": "20"},
		},
	}

	deps := Deps{
		Staging:         store,
		Reconciler:      reconcile.New(domain.DefaultDefaults(), zap.NewNop()),
		Vehicles:        catalog,
		Extras:          catalog,
		Profiles:        authSvc,
		Auth:            authSvc,
		Committer:       commit.NewCoordinator(backend, store, zap.NewNop()),
		Tokens:          tokens,
		RefreshInterval: time.Hour,
	}
	svc := NewService(deps)
	t.Cleanup(svc.Shutdown)

	return &fixture{svc: svc, store: store, auth: authSvc, backend: backend, catalog: catalog, deps: deps}
}

func confirmationLink() domain.Fields {
	return domain.Fields{
		"lieuDepart": "Casablanca Aéroport",
		"dateDepart": "2025-05-15T09:00",
		"lieuRetour": "Casablanca Aéroport",
		"dateRetour": "2025-05-20T09:00",
		"vehicule":   "3",
		"extras":     "1",
		"etape":      "3",
	}
}

func (f *fixture) registerClient(t *testing.T, complete bool) *domain.ClientProfile {
	t.Helper()
	req := auth.RegisterRequest{
		FirstName: "Nadia",
		LastName:  "Benali",
		Email:     "nadia@example.com",
		Password:  "secret123",
	}
	if complete {
		req.Civility = "Mme"
		req.IdentityDocument = "AB123456"
		req.BirthDate = "1990-04-02"
		req.LicenseNumber = "P-998877"
		req.LicenseIssuedAt = "2012-06-30"
		req.Address = "12 rue des Oliviers, Casablanca"
	}
	res, err := f.auth.Register(context.Background(), req)
	require.NoError(t, err)
	return res.Profile
}

func completeProfile() auth.UpdateProfileRequest {
	return auth.UpdateProfileRequest{
		Civility:         "Mme",
		IdentityDocument: "AB123456",
		BirthDate:        "1990-04-02",
		LicenseNumber:    "P-998877",
		LicenseIssuedAt:  "2012-06-30",
		Address:          "12 rue des Oliviers, Casablanca",
	}
}

func TestStart_FromLinkStagesAtConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)

	assert.Equal(t, int(wizard.Confirmation), view.Step)
	assert.NotEmpty(t, view.Token)
	require.NotNil(t, view.Pending)
	assert.Equal(t, 5, view.Pending.DurationDays)
	assert.Equal(t, 6150.0, view.Pending.TotalPrice)
	assert.Equal(t, "Peugeot 308", view.Pending.VehicleName)
	assert.Contains(t, view.Query, "etape=3")

	current, err := f.store.Session(view.ID).LoadCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Zero(t, current.ClientID)
}

func TestStart_ClampsToVehicleSelectionWithoutVehicle(t *testing.T) {
	f := newFixture(t)

	link := confirmationLink()
	delete(link, "vehicule")

	view, err := f.svc.Start(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, int(wizard.VehicleSelection), view.Step)
	assert.Nil(t, view.Pending)
}

func TestStart_FallsBackToFirstFailingStep(t *testing.T) {
	f := newFixture(t)

	link := confirmationLink()
	link["dateRetour"] = "2025-05-10T09:00"

	view, err := f.svc.Start(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, int(wizard.Locations), view.Step)
}

func TestAdvance_ValidationKeepsStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Start(ctx, domain.Fields{"lieuDepart": "Rabat"})
	require.NoError(t, err)

	_, err = f.svc.Advance(ctx, view.ID)
	var verr *wizard.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "dateDepart")

	got, err := f.svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, int(wizard.Locations), got.Step)
}

func TestAdvance_WalksToConfirmationWithoutExtras(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Start(ctx, domain.Fields{
		"lieuDepart": "Rabat",
		"dateDepart": "2025-05-15",
		"lieuRetour": "Rabat",
		"dateRetour": "2025-05-17",
	})
	require.NoError(t, err)

	view, err = f.svc.Advance(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, int(wizard.VehicleSelection), view.Step)

	view, err = f.svc.UpdateDraft(ctx, view.ID, domain.Fields{"vehicule": 3})
	require.NoError(t, err)

	view, err = f.svc.Advance(ctx, view.ID)
	require.NoError(t, err)
	view, err = f.svc.Advance(ctx, view.ID)
	require.NoError(t, err)

	assert.Equal(t, int(wizard.Confirmation), view.Step)
	require.NotNil(t, view.Pending)
	assert.Empty(t, view.Pending.Extras)
	assert.Equal(t, 2400.0, view.Pending.TotalPrice)

	_, err = f.svc.Advance(ctx, view.ID)
	assert.ErrorIs(t, err, wizard.ErrLastStep)
}

func TestRetreat_FromFirstStepFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.svc.Start(ctx)
	require.NoError(t, err)

	_, err = f.svc.Retreat(ctx, view.ID)
	assert.ErrorIs(t, err, wizard.ErrFirstStep)
}

func TestLogin_FailureLeavesStagingUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerClient(t, false)

	view, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, view.ID, auth.Credentials{Email: "nadia@example.com", Password: "wrong-password"})
	var authErr *auth.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	current, err := f.store.Session(view.ID).LoadCurrent(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Zero(t, current.ClientID)

	got, err := f.svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Zero(t, got.ClientID)
}

func TestFlow_IncompleteProfileThenCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.registerClient(t, false)

	view, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)

	view, err = f.svc.Login(ctx, view.ID, auth.Credentials{Email: "nadia@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, profile.ID, view.ClientID)
	assert.NotEmpty(t, view.AccessToken)
	assert.False(t, view.CanProceed)
	assert.Equal(t, domain.RequiredProfileFields, view.MissingFields)
	require.NotNil(t, view.Pending)

	staged, err := f.store.Load(ctx, profile.ID)
	require.NoError(t, err)
	require.NotNil(t, staged)

	_, err = f.svc.Commit(ctx, view.ID)
	var incomplete *auth.ProfileIncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, domain.RequiredProfileFields, incomplete.Missing)

	view, err = f.svc.CompleteProfile(ctx, view.ID, completeProfile())
	require.NoError(t, err)
	assert.True(t, view.CanProceed)
	assert.Empty(t, view.MissingFields)
	assert.Equal(t, "AB123456", view.Draft.Client.IdentityDocument)

	done, err := f.svc.Commit(ctx, view.ID)
	require.NoError(t, err)
	require.NotNil(t, done.Reservation)
	assert.NotEmpty(t, done.Reservation.BackendID)
	assert.Equal(t, domain.ReservationCommitted, done.Reservation.Status)
	assert.Equal(t, 6150.0, done.Reservation.TotalPrice)

	staged, err = f.store.Load(ctx, profile.ID)
	require.NoError(t, err)
	assert.Nil(t, staged)

	current, err := f.store.Session(view.ID).LoadCurrent(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, err = f.svc.Get(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	records, err := f.svc.History(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(3), records[0].VehicleID)
}

func TestCommit_KeepsConfirmedTotalAfterRepricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.registerClient(t, true)

	view, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)
	view, err = f.svc.Login(ctx, view.ID, auth.Credentials{Email: "nadia@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotNil(t, view.Pending)
	require.Equal(t, 6150.0, view.Pending.TotalPrice)

	f.catalog.vehicles[3] = domain.VehicleSnapshot{"IdVehicule": 3, "Marque": "Peugeot", "Modele": "308", "PrixParJour": 1500.0}

	done, err := f.svc.Commit(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 6150.0, done.Reservation.TotalPrice)
	assert.True(t, done.Reservation.TotalAuthoritative)

	records, err := f.svc.History(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 6150.0, records[0].TotalPrice)
}

func TestCommit_ChangedBookingIsRepriced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerClient(t, true)

	view, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)
	view, err = f.svc.Login(ctx, view.ID, auth.Credentials{Email: "nadia@example.com", Password: "secret123"})
	require.NoError(t, err)

	// A direct write to the draft bypasses restaging, so the staged
	// reservation still books the old period.
	st, err := f.store.LoadDraft(ctx, view.ID)
	require.NoError(t, err)
	st.Draft.ReturnAt = "2025-05-22T09:00:00Z"
	require.NoError(t, f.store.SaveDraft(ctx, *st))

	done, err := f.svc.Commit(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, done.Reservation.DurationDays)
	assert.Equal(t, 8610.0, done.Reservation.TotalPrice)
	assert.False(t, done.Reservation.TotalAuthoritative)
}

func TestSessionLocksAreReleased(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := f.svc.Get(ctx, fmt.Sprintf("unknown-%d", i))
		assert.ErrorIs(t, err, ErrSessionNotFound)
	}
	f.svc.locksMu.Lock()
	assert.Empty(t, f.svc.locks)
	f.svc.locksMu.Unlock()

	unlock := f.svc.lock("busy")
	acquired := make(chan struct{})
	go func() {
		release := f.svc.lock("busy")
		close(acquired)
		release()
	}()

	assert.Eventually(t, func() bool {
		f.svc.locksMu.Lock()
		defer f.svc.locksMu.Unlock()
		l, ok := f.svc.locks["busy"]
		return ok && l.refs == 2
	}, time.Second, time.Millisecond)

	unlock()
	<-acquired
	assert.Eventually(t, func() bool {
		f.svc.locksMu.Lock()
		defer f.svc.locksMu.Unlock()
		return len(f.svc.locks) == 0
	}, time.Second, time.Millisecond)
}

func TestCommit_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	early, err := f.svc.Start(ctx, domain.Fields{"lieuDepart": "Rabat"})
	require.NoError(t, err)
	_, err = f.svc.Commit(ctx, early.ID)
	assert.ErrorIs(t, err, ErrNotAtConfirmation)

	anonymous, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)
	_, err = f.svc.Commit(ctx, anonymous.ID)
	assert.ErrorIs(t, err, ErrAuthRequired)

	_, err = f.svc.Commit(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCommit_FailureKeepsEverythingStaged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.registerClient(t, true)

	failing := &failingCommitter{}
	deps := f.deps
	deps.Committer = failing
	svc := NewService(deps)

	view, err := svc.Start(ctx, confirmationLink())
	require.NoError(t, err)
	view, err = svc.Login(ctx, view.ID, auth.Credentials{Email: "nadia@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.True(t, view.CanProceed)

	_, err = svc.Commit(ctx, view.ID)
	var failure *commit.CommitFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 1, failing.calls)

	staged, err := f.store.Load(ctx, profile.ID)
	require.NoError(t, err)
	assert.NotNil(t, staged)

	got, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, int(wizard.Confirmation), got.Step)
}

func TestResume_RebuildsFromStagedReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerClient(t, false)

	view, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)
	view, err = f.svc.Login(ctx, view.ID, auth.Credentials{Email: "nadia@example.com", Password: "secret123"})
	require.NoError(t, err)

	same, err := f.svc.Resume(ctx, view.Token)
	require.NoError(t, err)
	assert.Equal(t, view.ID, same.ID)

	require.NoError(t, f.store.ClearDraft(ctx, view.ID))

	rebuilt, err := f.svc.Resume(ctx, view.Token)
	require.NoError(t, err)
	assert.Equal(t, view.ID, rebuilt.ID)
	assert.Equal(t, int(wizard.Confirmation), rebuilt.Step)
	assert.Equal(t, int64(3), rebuilt.Draft.VehicleID)
	assert.Equal(t, []int64{1}, rebuilt.Draft.ExtraIDs)
	require.NotNil(t, rebuilt.Pending)
	assert.Equal(t, 6150.0, rebuilt.Pending.TotalPrice)

	_, err = f.svc.Resume(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}

func TestLogin_PicksUpEarlierStagedReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerClient(t, true)
	creds := auth.Credentials{Email: "nadia@example.com", Password: "secret123"}

	first, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, first.ID, creds)
	require.NoError(t, err)

	fresh, err := f.svc.Start(ctx)
	require.NoError(t, err)
	view, err := f.svc.Login(ctx, fresh.ID, creds)
	require.NoError(t, err)

	assert.Equal(t, int(wizard.Confirmation), view.Step)
	assert.Equal(t, int64(3), view.Draft.VehicleID)
	require.NotNil(t, view.Pending)
	assert.Equal(t, 6150.0, view.Pending.TotalPrice)
}

func TestRefresh_MergesOnlyIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.registerClient(t, false)

	view, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)
	view, err = f.svc.Login(ctx, view.ID, auth.Credentials{Email: "nadia@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = f.auth.UpdateProfile(ctx, profile.ID, auth.UpdateProfileRequest{
		Address:         "5 avenue Hassan II",
		PreferredAgency: "Rabat Centre",
	})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "5 avenue Hassan II", refreshed.Draft.Client.Address)
	assert.Equal(t, view.Step, refreshed.Step)
	assert.Equal(t, view.Draft.PickupLocation, refreshed.Draft.PickupLocation)
	assert.Equal(t, view.Draft.PickupAt, refreshed.Draft.PickupAt)
	assert.Equal(t, view.Draft.VehicleID, refreshed.Draft.VehicleID)
	assert.Equal(t, view.Draft.ExtraIDs, refreshed.Draft.ExtraIDs)
	assert.Contains(t, refreshed.MissingFields, domain.FieldCivility)
	assert.NotContains(t, refreshed.MissingFields, domain.FieldAddress)
}

func TestAbandon_ClearsStaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	profile := f.registerClient(t, false)

	view, err := f.svc.Start(ctx, confirmationLink())
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, view.ID, auth.Credentials{Email: "nadia@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Abandon(ctx, view.ID))

	staged, err := f.store.Load(ctx, profile.ID)
	require.NoError(t, err)
	assert.Nil(t, staged)

	_, err = f.svc.Get(ctx, view.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

type recordingPublisher struct {
	events atomic.Int32
}

func (p *recordingPublisher) Publish(string, any) bool {
	p.events.Add(1)
	return true
}

func TestMutationsArePublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pub := &recordingPublisher{}
	f.svc.SetPublisher(pub)

	view, err := f.svc.Start(ctx, domain.Fields{
		"lieuDepart": "Rabat",
		"dateDepart": "2025-05-15",
		"lieuRetour": "Rabat",
		"dateRetour": "2025-05-17",
	})
	require.NoError(t, err)
	_, err = f.svc.Advance(ctx, view.ID)
	require.NoError(t, err)

	assert.Equal(t, int32(1), pub.events.Load())
}

func TestRefresher_StartStop(t *testing.T) {
	var ticks atomic.Int32
	r := NewRefresher(5*time.Millisecond, func(context.Context) error {
		ticks.Add(1)
		return nil
	}, zap.NewNop())

	require.True(t, r.Start(context.Background()))
	assert.False(t, r.Start(context.Background()))
	assert.Eventually(t, func() bool { return ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)

	r.Stop()
	assert.False(t, r.Running())
	after := ticks.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())

	r.Stop()
}
