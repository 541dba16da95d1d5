// Package booking runs booking sessions: it drives the wizard, stages the
// reservation, routes authentication through the gate and hands the final
// reservation to the commit coordinator.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"carbooking/internal/domain"
	"carbooking/internal/modules/auth"
	"carbooking/internal/modules/commit"
	"carbooking/internal/modules/reconcile"
	"carbooking/internal/modules/staging"
	"carbooking/internal/modules/wizard"
)

type Deps struct {
	Staging    *staging.Store
	Reconciler *reconcile.Reconciler
	Vehicles   VehicleCatalog
	Extras     ExtrasCatalog
	Profiles   ProfileService
	Auth       auth.Provider
	Committer  Committer
	Tokens     SessionTokens
	// Publisher is optional.
	Publisher       Publisher
	RefreshInterval time.Duration
	Logger          *zap.Logger
}

type Service struct {
	store      *staging.Store
	reconciler *reconcile.Reconciler
	vehicles   VehicleCatalog
	extras     ExtrasCatalog
	profiles   ProfileService
	provider   auth.Provider
	committer  Committer
	tokens     SessionTokens
	publisher  Publisher
	interval   time.Duration
	log        *zap.Logger

	locksMu sync.Mutex
	locks   map[string]*sessionLock

	mu         sync.Mutex
	refreshers map[string]*Refresher
}

func NewService(d Deps) *Service {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	interval := d.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Service{
		store:      d.Staging,
		reconciler: d.Reconciler,
		vehicles:   d.Vehicles,
		extras:     d.Extras,
		profiles:   d.Profiles,
		provider:   d.Auth,
		committer:  d.Committer,
		tokens:     d.Tokens,
		publisher:  d.Publisher,
		interval:   interval,
		log:        log,
		locks:      make(map[string]*sessionLock),
		refreshers: make(map[string]*Refresher),
	}
}

// SetPublisher attaches the live channel after construction, since the hub
// and the service are wired to each other.
func (s *Service) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// session is the working state of one request against a booking session.
type session struct {
	state       domain.DraftState
	profile     *domain.ClientProfile
	accessToken string
	pending     *domain.PendingReservation
}

func (s *Service) step(st *domain.DraftState) wizard.Step {
	return wizard.Step(st.Draft.Step)
}

// Start opens a session from raw fields, typically the URL query of a
// shared booking link followed by a form post. The session resumes at the
// requested step when every earlier step is satisfied.
func (s *Service) Start(ctx context.Context, sources ...domain.Fields) (*SessionView, error) {
	id := uuid.NewString()
	unlock := s.lock(id)
	defer unlock()

	d := reconcile.NormalizeDraft(domain.BookingDraft{}, sources...)
	d.Step = int(restoreStep(wizard.Step(d.Step), d))
	st := &domain.DraftState{SessionID: id, Draft: d}

	sess := &session{state: *st}
	if s.step(st) == wizard.Confirmation {
		p, err := s.stage(ctx, st, nil)
		if err != nil {
			return nil, err
		}
		sess.pending = p
	}
	if err := s.store.SaveDraft(ctx, *st); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}

	s.log.Info("booking session started",
		zap.String("session_id", id),
		zap.String("step", s.step(st).String()),
	)
	return s.render(ctx, sess)
}

func (s *Service) Get(ctx context.Context, id string) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, &session{state: *st})
}

// Resume reopens a session from its token. When the draft is gone but the
// client still has a staged reservation, the session is rebuilt at the
// confirmation step from that reservation.
func (s *Service) Resume(ctx context.Context, token string) (*SessionView, error) {
	claims, err := s.tokens.ValidateSessionToken(token)
	if err != nil {
		return nil, ErrInvalidSessionToken
	}

	unlock := s.lock(claims.SessionID)
	defer unlock()

	st, err := s.load(ctx, claims.SessionID)
	if err == nil {
		return s.render(ctx, &session{state: *st})
	}
	if !errors.Is(err, ErrSessionNotFound) || claims.ClientID <= 0 {
		return nil, err
	}

	pending, err := s.store.Load(ctx, claims.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load staged reservation: %w", err)
	}
	if pending == nil {
		return nil, ErrSessionNotFound
	}

	st = &domain.DraftState{
		SessionID: claims.SessionID,
		ClientID:  claims.ClientID,
		Draft:     draftFromReservation(pending.CanonicalReservation),
	}
	if err := s.store.SaveDraft(ctx, *st); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	s.log.Info("booking session rebuilt from staged reservation",
		zap.String("session_id", st.SessionID),
		zap.Int64("client_id", st.ClientID),
	)
	return s.render(ctx, &session{state: *st, pending: pending})
}

// UpdateDraft folds raw fields into the draft. The step does not move; at
// confirmation the edit must keep every earlier step valid and the staged
// reservation is refreshed.
func (s *Service) UpdateDraft(ctx context.Context, id string, fields domain.Fields) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *st
	next.Draft = reconcile.NormalizeDraft(st.Draft, fields)
	next.Draft.Step = st.Draft.Step

	sess := &session{state: next}
	if s.step(&next) == wizard.Confirmation {
		if err := wizard.CheckStep(wizard.Confirmation, next.Draft); err != nil {
			return nil, err
		}
		p, err := s.stage(ctx, &next, nil)
		if err != nil {
			return nil, err
		}
		sess.pending = p
	}
	if err := s.store.SaveDraft(ctx, next); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return s.publishRender(ctx, sess)
}

// Advance moves to the next step when the current one validates. Reaching
// confirmation stages the reservation.
func (s *Service) Advance(ctx context.Context, id string) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	current := s.step(st)
	next, err := wizard.Advance(current, st.Draft)
	if err != nil {
		return nil, err
	}

	updated := *st
	if current == wizard.Extras && updated.Draft.ExtraIDs == nil {
		// Passing the extras step without a choice is an explicit empty
		// selection.
		updated.Draft.ExtraIDs = []int64{}
	}
	updated.Draft.Step = int(next)

	sess := &session{state: updated}
	if next == wizard.Confirmation {
		p, err := s.stage(ctx, &updated, nil)
		if err != nil {
			return nil, err
		}
		sess.pending = p
	}
	if err := s.store.SaveDraft(ctx, updated); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return s.publishRender(ctx, sess)
}

// Retreat moves back one step. A staged reservation is kept.
func (s *Service) Retreat(ctx context.Context, id string) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prev, err := wizard.Retreat(s.step(st))
	if err != nil {
		return nil, err
	}

	st.Draft.Step = int(prev)
	if err := s.store.SaveDraft(ctx, *st); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return s.publishRender(ctx, &session{state: *st})
}

// Restore jumps to target, clamped to a step the draft can support.
func (s *Service) Restore(ctx context.Context, id string, target wizard.Step) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	st.Draft.Step = int(restoreStep(target, st.Draft))
	sess := &session{state: *st}
	if s.step(st) == wizard.Confirmation {
		p, err := s.stage(ctx, st, nil)
		if err != nil {
			return nil, err
		}
		sess.pending = p
	}
	if err := s.store.SaveDraft(ctx, *st); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return s.publishRender(ctx, sess)
}

// Login authenticates the client mid-booking. A rejected login returns an
// *auth.AuthenticationError and leaves the session and staging untouched.
func (s *Service) Login(ctx context.Context, id string, creds auth.Credentials) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.gate(id).AfterLogin(ctx, creds)
	if err != nil {
		s.log.Info("login rejected during booking", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	return s.afterGate(ctx, st, res)
}

// Register creates the client from the identity block of the draft merged
// with fields, then continues like Login.
func (s *Service) Register(ctx context.Context, id string, fields domain.Fields) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	d := reconcile.NormalizeDraft(st.Draft, fields)
	d.Step = st.Draft.Step
	if err := wizard.ValidateIdentity(d.Client); err != nil {
		return nil, err
	}

	res, err := s.gate(id).AfterRegister(ctx, auth.RegisterRequestFromIdentity(d.Client))
	if err != nil {
		return nil, err
	}
	st.Draft = d
	return s.afterGate(ctx, st, res)
}

// CompleteProfile updates the signed-in client's profile and re-runs the
// completeness check. The staged reservation is carried through untouched.
func (s *Service) CompleteProfile(ctx context.Context, id string, req auth.UpdateProfileRequest) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.ClientID <= 0 {
		return nil, ErrAuthRequired
	}

	if _, err := s.profiles.UpdateProfile(ctx, st.ClientID, req); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	res, err := s.gate(id).Recheck(ctx, st.ClientID)
	if err != nil {
		return nil, err
	}
	return s.afterGate(ctx, st, res)
}

// Commit re-reconciles the draft against fresh catalog and profile data and
// commits it. When the result books the same thing as the staged
// reservation, the staged total is kept. The session ends on success; on
// failure everything stays staged for a retry.
func (s *Service) Commit(ctx context.Context, id string) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.step(st) != wizard.Confirmation {
		return nil, ErrNotAtConfirmation
	}
	if st.ClientID <= 0 {
		return nil, ErrAuthRequired
	}

	in, err := s.gather(ctx, st.Draft, st.ClientID, true)
	if err != nil {
		return nil, err
	}
	if in.Profile == nil {
		return nil, fmt.Errorf("load profile %d: %w", st.ClientID, domain.ErrNotFound)
	}
	if missing := in.Profile.MissingFields(); len(missing) > 0 {
		return nil, &auth.ProfileIncompleteError{Missing: missing}
	}

	r, err := s.reconciler.Reconcile(in)
	if err != nil {
		return nil, err
	}
	staged, err := s.staged(ctx, s.store.Session(id), st.ClientID)
	if err != nil {
		return nil, err
	}
	if staged != nil && staged.TotalPrice != r.TotalPrice && commit.SameBooking(staged.CanonicalReservation, r) {
		// The client confirmed the staged total; a catalog change since then
		// does not reprice the same booking.
		s.log.Info("keeping confirmed total",
			zap.String("session_id", id),
			zap.Float64("confirmed", staged.TotalPrice),
			zap.Float64("recomputed", r.TotalPrice),
		)
		total := staged.TotalPrice
		in.AuthoritativeTotal = &total
		if r, err = s.reconciler.Reconcile(in); err != nil {
			return nil, err
		}
	}

	committed, err := s.committer.Commit(ctx, st.ClientID, r)
	if err != nil {
		return nil, err
	}

	s.end(context.WithoutCancel(ctx), id)

	view := &SessionView{
		ID:          id,
		ClientID:    st.ClientID,
		Step:        st.Draft.Step,
		StepName:    s.step(st).String(),
		Draft:       withoutSecrets(st.Draft),
		Query:       wizard.Snapshot(st.Draft, s.step(st)),
		Profile:     in.Profile,
		CanProceed:  true,
		Reservation: committed,
	}
	s.publish(id, Event{Type: EventClosed, Session: view})
	return view, nil
}

// Abandon drops the session together with whatever it staged.
func (s *Service) Abandon(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if st.ClientID > 0 {
		if err := s.store.Clear(ctx, st.ClientID); err != nil {
			return fmt.Errorf("clear staged reservation: %w", err)
		}
	}
	s.end(ctx, id)
	s.publish(id, Event{Type: EventClosed})
	s.log.Info("booking session abandoned", zap.String("session_id", id))
	return nil
}

// Pending returns the reservation staged for the client, if any.
func (s *Service) Pending(ctx context.Context, clientID int64) (*domain.PendingReservation, error) {
	return s.store.Load(ctx, clientID)
}

func (s *Service) History(ctx context.Context, clientID int64) ([]domain.ReservationRecord, error) {
	return s.committer.History(ctx, clientID)
}

// Refresh merges the latest profile into the draft. Only identity fields
// change; step, locations, dates, vehicle and extras are left alone. A
// staged reservation is re-reconciled.
func (s *Service) Refresh(ctx context.Context, id string) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.ClientID <= 0 {
		return s.render(ctx, &session{state: *st})
	}

	profile, err := s.profiles.GetByID(ctx, st.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", st.ClientID, err)
	}
	st.Draft = reconcile.MergeProfile(st.Draft, profile)

	sess := &session{state: *st, profile: profile}
	if s.step(st) == wizard.Confirmation {
		p, err := s.stage(ctx, st, profile)
		if err != nil {
			return nil, err
		}
		sess.pending = p
	}
	if err := s.store.SaveDraft(ctx, *st); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	return s.render(ctx, sess)
}

// StartRefresh runs Refresh periodically for the session and hands each
// result to push. It is a no-op when a refresher already runs.
func (s *Service) StartRefresh(id string, push func(*SessionView)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refreshers[id]; ok {
		return
	}
	r := NewRefresher(s.interval, func(ctx context.Context) error {
		view, err := s.Refresh(ctx, id)
		if err != nil {
			return err
		}
		push(view)
		return nil
	}, s.log.With(zap.String("session_id", id)))
	r.Start(context.Background())
	s.refreshers[id] = r
}

func (s *Service) StopRefresh(id string) {
	s.mu.Lock()
	r, ok := s.refreshers[id]
	delete(s.refreshers, id)
	s.mu.Unlock()

	if ok {
		r.Stop()
	}
}

// Shutdown stops every refresher.
func (s *Service) Shutdown() {
	s.mu.Lock()
	running := s.refreshers
	s.refreshers = make(map[string]*Refresher)
	s.mu.Unlock()

	for _, r := range running {
		r.Stop()
	}
}

// ValidateSessionToken checks that token was issued for the session.
func (s *Service) ValidateSessionToken(id, token string) error {
	claims, err := s.tokens.ValidateSessionToken(token)
	if err != nil || claims.SessionID != id {
		return ErrInvalidSessionToken
	}
	return nil
}

func (s *Service) afterGate(ctx context.Context, st *domain.DraftState, res *auth.GateResult) (*SessionView, error) {
	st.ClientID = res.Profile.ID
	st.Draft = reconcile.MergeProfile(st.Draft, res.Profile)

	sess := &session{profile: res.Profile, accessToken: res.Token, pending: res.Pending}

	if res.Pending != nil && s.step(st) < wizard.Confirmation && st.Draft.VehicleID <= 0 {
		// A fresh session picks up the reservation the client staged earlier.
		identity := st.Draft.Client
		st.Draft = draftFromReservation(res.Pending.CanonicalReservation)
		st.Draft.Client = identity
	}

	if s.step(st) == wizard.Confirmation {
		p, err := s.stage(ctx, st, res.Profile)
		if err != nil {
			return nil, err
		}
		sess.pending = p
	}
	if err := s.store.SaveDraft(ctx, *st); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}

	sess.state = *st
	return s.publishRender(ctx, sess)
}

// stage reconciles the draft and writes it to the session's current slot,
// and to the client slot once the client is known. An identical staged
// reservation keeps its idempotency key and backend id.
func (s *Service) stage(ctx context.Context, st *domain.DraftState, profile *domain.ClientProfile) (*domain.PendingReservation, error) {
	in, err := s.gather(ctx, st.Draft, st.ClientID, false)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		in.Profile = profile
	}

	r, err := s.reconciler.Reconcile(in)
	if err != nil {
		return nil, err
	}

	view := s.store.Session(st.SessionID)
	previous, err := s.staged(ctx, view, st.ClientID)
	if err != nil {
		return nil, err
	}

	pending := domain.PendingReservation{CanonicalReservation: r}
	if previous != nil && commit.SameReservation(previous.CanonicalReservation, r) {
		pending.IdempotencyKey = previous.IdempotencyKey
		pending.BackendID = previous.BackendID
		pending.CreatedAt = previous.CreatedAt
	}

	if err := view.SaveCurrent(ctx, pending); err != nil {
		return nil, fmt.Errorf("stage reservation: %w", err)
	}
	return &pending, nil
}

func (s *Service) staged(ctx context.Context, view *staging.Store, clientID int64) (*domain.PendingReservation, error) {
	if clientID > 0 {
		p, err := view.Load(ctx, clientID)
		if err != nil || p != nil {
			return p, err
		}
	}
	return view.LoadCurrent(ctx)
}

// gather fetches the vehicle, extras and profile the draft refers to in
// parallel. Catalog failures degrade to defaults; a profile failure is fatal
// only when needProfile is set.
func (s *Service) gather(ctx context.Context, d domain.BookingDraft, clientID int64, needProfile bool) (reconcile.Input, error) {
	var (
		vehicle domain.VehicleSnapshot
		extras  []domain.ExtraSnapshot
		profile *domain.ClientProfile
	)

	g, gctx := errgroup.WithContext(ctx)
	if d.VehicleID > 0 {
		g.Go(func() error {
			v, err := s.vehicles.GetByID(gctx, d.VehicleID)
			if err != nil {
				s.log.Warn("vehicle lookup failed, falling back to defaults",
					zap.Int64("vehicle_id", d.VehicleID), zap.Error(err))
				return nil
			}
			vehicle = v
			return nil
		})
	}
	if d.ExtraIDs != nil {
		g.Go(func() error {
			list, err := s.extras.ListAll(gctx)
			if err != nil {
				s.log.Warn("extras lookup failed, falling back to defaults", zap.Error(err))
				return nil
			}
			extras = list
			return nil
		})
	}
	if clientID > 0 {
		g.Go(func() error {
			p, err := s.profiles.GetByID(gctx, clientID)
			if err != nil {
				if needProfile {
					return fmt.Errorf("load profile %d: %w", clientID, err)
				}
				s.log.Warn("profile lookup failed", zap.Int64("client_id", clientID), zap.Error(err))
				return nil
			}
			profile = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reconcile.Input{}, err
	}

	return reconcile.Input{
		Draft:    d,
		ClientID: clientID,
		Vehicle:  vehicle,
		Extras:   extras,
		Profile:  profile,
	}, nil
}

func (s *Service) render(ctx context.Context, sess *session) (*SessionView, error) {
	st := sess.state
	token, err := s.tokens.GenerateSessionToken(st.SessionID, st.ClientID)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}

	pending := sess.pending
	if pending == nil {
		pending, err = s.staged(ctx, s.store.Session(st.SessionID), st.ClientID)
		if err != nil {
			return nil, err
		}
	}

	view := &SessionView{
		ID:          st.SessionID,
		ClientID:    st.ClientID,
		Step:        st.Draft.Step,
		StepName:    wizard.Step(st.Draft.Step).String(),
		Draft:       withoutSecrets(st.Draft),
		Query:       wizard.Snapshot(st.Draft, wizard.Step(st.Draft.Step)),
		Token:       token,
		AccessToken: sess.accessToken,
		Profile:     sess.profile,
		Pending:     pending,
	}
	if sess.profile != nil {
		view.MissingFields = sess.profile.MissingFields()
		view.CanProceed = len(view.MissingFields) == 0
	}
	return view, nil
}

func (s *Service) publishRender(ctx context.Context, sess *session) (*SessionView, error) {
	view, err := s.render(ctx, sess)
	if err != nil {
		return nil, err
	}
	s.publish(view.ID, Event{Type: EventSession, Session: view})
	return view, nil
}

func (s *Service) publish(id string, ev Event) {
	s.mu.Lock()
	p := s.publisher
	s.mu.Unlock()
	if p != nil {
		p.Publish(id, ev)
	}
}

// end clears the session's draft and current slot.
func (s *Service) end(ctx context.Context, id string) {
	view := s.store.Session(id)
	if err := view.ClearCurrent(ctx); err != nil {
		s.log.Warn("clear current slot failed", zap.String("session_id", id), zap.Error(err))
	}
	if err := s.store.ClearDraft(ctx, id); err != nil {
		s.log.Warn("clear draft failed", zap.String("session_id", id), zap.Error(err))
	}

	// The caller holds the session lock, which a running tick may be waiting
	// for, so the refresher is cancelled without waiting.
	s.mu.Lock()
	r, ok := s.refreshers[id]
	delete(s.refreshers, id)
	s.mu.Unlock()
	if ok {
		r.Cancel()
	}
}

func (s *Service) gate(id string) *auth.Gate {
	return auth.NewGate(s.provider, s.profiles, s.store.Session(id), s.log)
}

func (s *Service) load(ctx context.Context, id string) (*domain.DraftState, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	st, err := s.store.LoadDraft(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if st == nil {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// sessionLock serializes the operations on one session. It lives in
// Service.locks only while someone holds or waits for it.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (s *Service) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// restoreStep clamps target and then falls back to the first step whose
// gate the draft does not pass.
func restoreStep(target wizard.Step, d domain.BookingDraft) wizard.Step {
	step := wizard.Restore(target, d)
	var verr *wizard.ValidationError
	if err := wizard.CheckStep(step, d); errors.As(err, &verr) {
		return verr.Step
	}
	return step
}

func draftFromReservation(r domain.CanonicalReservation) domain.BookingDraft {
	d := domain.BookingDraft{
		PickupLocation: r.PickupLocation,
		PickupAt:       r.Start.UTC().Format(time.RFC3339),
		ReturnLocation: r.ReturnLocation,
		ReturnAt:       r.End.UTC().Format(time.RFC3339),
		VehicleID:      r.VehicleID,
		Step:           int(wizard.Confirmation),
	}
	if r.Extras == nil {
		return d
	}
	ids := make([]int64, 0, len(r.Extras))
	for _, e := range r.Extras {
		if e.ID > 0 {
			ids = append(ids, e.ID)
		}
	}
	// Extras without catalog ids came from the default bundle; leaving the
	// selection unset resolves to the same bundle again.
	if len(ids) > 0 || len(r.Extras) == 0 {
		d.ExtraIDs = ids
	}
	return d
}

func withoutSecrets(d domain.BookingDraft) domain.BookingDraft {
	d.Client = d.Client.WithoutSecrets()
	return d
}
