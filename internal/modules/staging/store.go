// Package staging keeps in-progress reservations and drafts in a durable
// key-value store so a booking survives login redirects and restarts.
package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"carbooking/internal/domain"
	"carbooking/internal/pkg/metrics"
)

const (
	clientPrefix = "pending:client:"
	currentKey   = "pending:current"
	draftPrefix  = "draft:"
)

func ClientKey(clientID int64) string { return clientPrefix + strconv.FormatInt(clientID, 10) }
func DraftKey(sessionID string) string { return draftPrefix + sessionID }

type entry struct {
	SavedAt time.Time       `json:"savedAt"`
	Payload json.RawMessage `json:"payload"`
}

// Entry describes one stored value for maintenance listings.
type Entry struct {
	Key      string    `json:"key"`
	ClientID int64     `json:"clientId,omitempty"`
	SavedAt  time.Time `json:"savedAt"`
}

type Store struct {
	kv      KV
	log     *zap.Logger
	now     func() time.Time
	mu      *sync.Mutex
	current string
}

func NewStore(kv KV, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{kv: kv, log: log, now: time.Now, mu: &sync.Mutex{}, current: currentKey}
}

// Session returns a view whose current slot belongs to one booking session,
// so concurrent anonymous sessions do not overwrite each other. Client slots
// and the write lock are shared with s.
func (s *Store) Session(sessionID string) *Store {
	view := *s
	view.current = currentKey + ":" + sessionID
	return &view
}

// Save stages r for the client, replacing whatever was staged before.
func (s *Store) Save(ctx context.Context, clientID int64, r domain.PendingReservation) error {
	if clientID <= 0 {
		return ErrNoClient
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r.ClientID = clientID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	return s.put(ctx, ClientKey(clientID), "client", r)
}

// Load returns the reservation staged for the client, or nil.
func (s *Store) Load(ctx context.Context, clientID int64) (*domain.PendingReservation, error) {
	if clientID <= 0 {
		return nil, ErrNoClient
	}
	var r domain.PendingReservation
	found, err := s.get(ctx, ClientKey(clientID), &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}

// Clear removes the client's staged reservation and the current slot when
// that slot belongs to the same client.
func (s *Store) Clear(ctx context.Context, clientID int64) error {
	if clientID <= 0 {
		return ErrNoClient
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, ClientKey(clientID)); err != nil {
		return fmt.Errorf("clear client %d: %w", clientID, err)
	}
	metrics.StagingWrites.WithLabelValues("client", "delete").Inc()

	var current domain.PendingReservation
	found, err := s.get(ctx, s.current, &current)
	if err != nil {
		return err
	}
	if found && current.ClientID == clientID {
		if err := s.kv.Delete(ctx, s.current); err != nil {
			return fmt.Errorf("clear current slot: %w", err)
		}
		metrics.StagingWrites.WithLabelValues("current", "delete").Inc()
	}
	return nil
}

// SaveCurrent writes the unscoped slot used before a client is known. When
// the reservation already names a client, the client slot is kept in step.
func (s *Store) SaveCurrent(ctx context.Context, r domain.PendingReservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	if err := s.put(ctx, s.current, "current", r); err != nil {
		return err
	}
	if r.ClientID > 0 {
		return s.put(ctx, ClientKey(r.ClientID), "client", r)
	}
	return nil
}

func (s *Store) LoadCurrent(ctx context.Context) (*domain.PendingReservation, error) {
	var r domain.PendingReservation
	found, err := s.get(ctx, s.current, &r)
	if err != nil || !found {
		return nil, err
	}
	return &r, nil
}

func (s *Store) ClearCurrent(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, s.current); err != nil {
		return fmt.Errorf("clear current slot: %w", err)
	}
	metrics.StagingWrites.WithLabelValues("current", "delete").Inc()
	return nil
}

// Attribute copies the current slot into the client's slot once the client
// is known. It returns the attributed reservation, or nil when the current
// slot is empty or already belongs to another client.
func (s *Store) Attribute(ctx context.Context, clientID int64) (*domain.PendingReservation, error) {
	if clientID <= 0 {
		return nil, ErrNoClient
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var current domain.PendingReservation
	found, err := s.get(ctx, s.current, &current)
	if err != nil || !found {
		return nil, err
	}
	if current.ClientID != 0 && current.ClientID != clientID {
		return nil, nil
	}

	current.ClientID = clientID
	if err := s.put(ctx, s.current, "current", current); err != nil {
		return nil, err
	}
	if err := s.put(ctx, ClientKey(clientID), "client", current); err != nil {
		return nil, err
	}
	s.log.Info("staged reservation attributed", zap.Int64("client_id", clientID))
	return &current, nil
}

// MarkPersisted attaches the backend identifier to the staged reservation.
func (s *Store) MarkPersisted(ctx context.Context, clientID int64, backendID string) (*domain.PendingReservation, error) {
	if clientID <= 0 {
		return nil, ErrNoClient
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var r domain.PendingReservation
	found, err := s.get(ctx, ClientKey(clientID), &r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("mark persisted for client %d: %w", clientID, ErrKeyNotFound)
	}

	r.BackendID = backendID
	r.Status = domain.ReservationCommitted
	if err := s.put(ctx, ClientKey(clientID), "client", r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SaveDraft(ctx context.Context, state domain.DraftState) error {
	if state.SessionID == "" {
		return ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	state.Draft.Client = state.Draft.Client.WithoutSecrets()
	state.UpdatedAt = s.now().UTC()
	return s.put(ctx, DraftKey(state.SessionID), "draft", state)
}

// LoadDraft returns the stored draft for the session, or nil.
func (s *Store) LoadDraft(ctx context.Context, sessionID string) (*domain.DraftState, error) {
	if sessionID == "" {
		return nil, ErrNoSession
	}
	var state domain.DraftState
	found, err := s.get(ctx, DraftKey(sessionID), &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (s *Store) ClearDraft(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, DraftKey(sessionID)); err != nil {
		return fmt.Errorf("clear draft %s: %w", sessionID, err)
	}
	metrics.StagingWrites.WithLabelValues("draft", "delete").Inc()
	return nil
}

// List describes every stored entry, reservations first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	out := make([]Entry, 0)
	for _, prefix := range []string{"pending:", draftPrefix} {
		keys, err := s.kv.Keys(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, key := range keys {
			raw, err := s.kv.Get(ctx, key)
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			var e entry
			if err := json.Unmarshal(raw, &e); err != nil {
				s.log.Warn("skipping undecodable staging entry", zap.String("key", key), zap.Error(err))
				continue
			}
			item := Entry{Key: key, SavedAt: e.SavedAt}
			if id, ok := strings.CutPrefix(key, clientPrefix); ok {
				item.ClientID, _ = strconv.ParseInt(id, 10, 64)
			}
			out = append(out, item)
		}
	}
	return out, nil
}

// PurgeOlderThan deletes entries last saved before cutoff and returns how
// many were removed.
func (s *Store) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for _, e := range entries {
		if !e.SavedAt.Before(cutoff) {
			continue
		}
		if err := s.kv.Delete(ctx, e.Key); err != nil {
			return removed, fmt.Errorf("purge %s: %w", e.Key, err)
		}
		removed++
	}
	if removed > 0 {
		metrics.StagingWrites.WithLabelValues("any", "purge").Add(float64(removed))
		s.log.Info("purged staging entries", zap.Int("count", removed), zap.Time("cutoff", cutoff))
	}
	return removed, nil
}

func (s *Store) put(ctx context.Context, key, slot string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	raw, err := json.Marshal(entry{SavedAt: s.now().UTC(), Payload: payload})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	metrics.StagingWrites.WithLabelValues(slot, "set").Inc()
	return nil
}

func (s *Store) get(ctx context.Context, key string, v any) (bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", key, err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}
