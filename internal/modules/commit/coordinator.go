// Package commit sends a staged reservation to the backend of record exactly
// once and clears staging only after the backend acknowledged it.
package commit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"carbooking/internal/domain"
	"carbooking/internal/pkg/metrics"
)

// Backend is the reservation backend of record.
type Backend interface {
	Create(ctx context.Context, rec domain.ReservationRecord) (*domain.BackendAck, error)
	ListByClient(ctx context.Context, clientID int64) ([]domain.ReservationRecord, error)
}

// Staging is the slice of the staging store the coordinator needs.
type Staging interface {
	Save(ctx context.Context, clientID int64, r domain.PendingReservation) error
	Load(ctx context.Context, clientID int64) (*domain.PendingReservation, error)
	MarkPersisted(ctx context.Context, clientID int64, backendID string) (*domain.PendingReservation, error)
	Clear(ctx context.Context, clientID int64) error
}

type Coordinator struct {
	backend Backend
	staging Staging
	log     *zap.Logger
	now     func() time.Time
}

func NewCoordinator(backend Backend, staging Staging, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{backend: backend, staging: staging, log: log, now: time.Now}
}

// Commit persists r for the client. The backend call is detached from ctx
// cancellation so an abandoned request cannot lose a reservation in flight.
// On backend failure the reservation stays staged and a *CommitFailure is
// returned.
func (c *Coordinator) Commit(ctx context.Context, clientID int64, r domain.CanonicalReservation) (*domain.PendingReservation, error) {
	if clientID <= 0 {
		return nil, ErrNoClient
	}
	r.ClientID = clientID

	pending, err := c.ensureStaged(ctx, clientID, r)
	if err != nil {
		return nil, err
	}

	if pending.BackendID != "" {
		c.log.Info("reservation already persisted, clearing staging",
			zap.Int64("client_id", clientID),
			zap.String("backend_id", pending.BackendID),
		)
		return c.finish(ctx, clientID, pending, "replayed")
	}

	detached := context.WithoutCancel(ctx)
	started := c.now()
	ack, err := c.backend.Create(detached, domain.RecordFromCanonical(pending.CanonicalReservation))
	metrics.CommitDuration.Observe(c.now().Sub(started).Seconds())
	if err != nil {
		metrics.Commits.WithLabelValues("failed").Inc()
		c.log.Warn("reservation commit failed, kept staged",
			zap.Int64("client_id", clientID),
			zap.String("idempotency_key", pending.IdempotencyKey),
			zap.Error(err),
		)
		return nil, &CommitFailure{ClientID: clientID, Err: err}
	}

	persisted, err := c.staging.MarkPersisted(detached, clientID, ack.ID)
	if err != nil {
		return nil, fmt.Errorf("record backend id %s: %w", ack.ID, err)
	}
	return c.finish(detached, clientID, persisted, "committed")
}

// History lists the client's reservations known to the backend.
func (c *Coordinator) History(ctx context.Context, clientID int64) ([]domain.ReservationRecord, error) {
	if clientID <= 0 {
		return nil, ErrNoClient
	}
	return c.backend.ListByClient(ctx, clientID)
}

// ensureStaged makes sure the staged copy matches r and carries an
// idempotency key. A retry of the same reservation reuses the staged key,
// and a reservation committed earlier derives the key it was committed with.
func (c *Coordinator) ensureStaged(ctx context.Context, clientID int64, r domain.CanonicalReservation) (*domain.PendingReservation, error) {
	staged, err := c.staging.Load(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load staged reservation: %w", err)
	}

	if staged != nil && staged.BackendID != "" && SameReservation(staged.CanonicalReservation, r) {
		return staged, nil
	}

	pending := domain.PendingReservation{CanonicalReservation: r}
	if staged != nil {
		pending.CreatedAt = staged.CreatedAt
		if pending.IdempotencyKey == "" && SameReservation(staged.CanonicalReservation, r) {
			pending.IdempotencyKey = staged.IdempotencyKey
		}
	}
	if pending.IdempotencyKey == "" {
		pending.IdempotencyKey = ReservationKey(r)
	}
	pending.Status = domain.ReservationStaged

	if err := c.staging.Save(ctx, clientID, pending); err != nil {
		return nil, fmt.Errorf("stage reservation: %w", err)
	}
	return &pending, nil
}

func (c *Coordinator) finish(ctx context.Context, clientID int64, p *domain.PendingReservation, result string) (*domain.PendingReservation, error) {
	if err := c.staging.Clear(ctx, clientID); err != nil {
		return nil, fmt.Errorf("clear staging: %w", err)
	}
	metrics.Commits.WithLabelValues(result).Inc()

	out := *p
	out.Status = domain.ReservationCommitted
	c.log.Info("reservation committed",
		zap.Int64("client_id", clientID),
		zap.String("backend_id", out.BackendID),
		zap.Float64("total", out.TotalPrice),
	)
	return &out, nil
}

var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:carbooking:reservation"))

// ReservationKey derives the idempotency key from what the reservation books:
// client, vehicle, period, places and extras. Prices are left out so a
// repriced catalog cannot turn a repeat commit into a second booking.
func ReservationKey(r domain.CanonicalReservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d|%s|%s|%s|%s",
		r.ClientID,
		r.VehicleID,
		r.Start.UTC().Format(time.RFC3339Nano),
		r.End.UTC().Format(time.RFC3339Nano),
		r.PickupLocation,
		r.ReturnLocation,
	)
	for _, e := range r.Extras {
		fmt.Fprintf(&b, "|%s", extraIdentity(e))
	}
	return uuid.NewSHA1(keyNamespace, []byte(b.String())).String()
}

// SameBooking reports whether a and b book the same vehicle for the same
// period, places and extras, whatever they cost.
func SameBooking(a, b domain.CanonicalReservation) bool {
	if a.VehicleID != b.VehicleID ||
		!a.Start.Equal(b.Start) ||
		!a.End.Equal(b.End) ||
		a.PickupLocation != b.PickupLocation ||
		a.ReturnLocation != b.ReturnLocation ||
		len(a.Extras) != len(b.Extras) {
		return false
	}
	for i := range a.Extras {
		if extraIdentity(a.Extras[i]) != extraIdentity(b.Extras[i]) {
			return false
		}
	}
	return true
}

// SameReservation is SameBooking with identical prices.
func SameReservation(a, b domain.CanonicalReservation) bool {
	if !SameBooking(a, b) || a.TotalPrice != b.TotalPrice {
		return false
	}
	for i := range a.Extras {
		if a.Extras[i] != b.Extras[i] {
			return false
		}
	}
	return true
}

// extraIdentity names an extra by catalog id, or by name for defaulted
// extras that have none.
func extraIdentity(e domain.ReservationExtra) string {
	if e.ID > 0 {
		return fmt.Sprintf("#%d", e.ID)
	}
	return strings.ToLower(strings.TrimSpace(e.Name))
}
