package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"carbooking/internal/domain"
)

// ReservationRepository is the reference backend of record. Creates are
// idempotent on CleIdempotence.
type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

type reservationModel struct {
	ID             int64     `gorm:"column:id;primaryKey"`
	ClientID       int64     `gorm:"column:client_id;index"`
	VehicleID      int64     `gorm:"column:vehicle_id;index"`
	StartAt        time.Time `gorm:"column:start_at"`
	EndAt          time.Time `gorm:"column:end_at"`
	PickupLocation string    `gorm:"column:pickup_location"`
	ReturnLocation string    `gorm:"column:return_location"`
	Status         string    `gorm:"column:status"`
	TotalPrice     float64   `gorm:"column:total_price"`
	Extras         string    `gorm:"column:extras;type:text"`
	IdempotencyKey *string   `gorm:"column:idempotency_key;uniqueIndex;size:64"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (reservationModel) TableName() string { return "reservations" }

func toReservationModel(rec domain.ReservationRecord) (reservationModel, error) {
	extras := rec.Extras
	if extras == nil {
		extras = []domain.RecordExtra{}
	}
	raw, err := json.Marshal(extras)
	if err != nil {
		return reservationModel{}, fmt.Errorf("encode extras: %w", err)
	}

	var key *string
	if k := strings.TrimSpace(rec.IdempotencyKey); k != "" {
		key = &k
	}

	return reservationModel{
		ClientID:       rec.ClientID,
		VehicleID:      rec.VehicleID,
		StartAt:        rec.Start.UTC(),
		EndAt:          rec.End.UTC(),
		PickupLocation: rec.PickupLocation,
		ReturnLocation: rec.ReturnLocation,
		Status:         domain.RecordStatusConfirmed,
		TotalPrice:     rec.TotalPrice,
		Extras:         string(raw),
		IdempotencyKey: key,
	}, nil
}

func toDomainRecord(m reservationModel) (domain.ReservationRecord, error) {
	extras := []domain.RecordExtra{}
	if m.Extras != "" {
		if err := json.Unmarshal([]byte(m.Extras), &extras); err != nil {
			return domain.ReservationRecord{}, fmt.Errorf("decode extras of reservation %d: %w", m.ID, err)
		}
	}

	var key string
	if m.IdempotencyKey != nil {
		key = *m.IdempotencyKey
	}

	return domain.ReservationRecord{
		ID:             strconv.FormatInt(m.ID, 10),
		ClientID:       m.ClientID,
		VehicleID:      m.VehicleID,
		Start:          m.StartAt.UTC(),
		End:            m.EndAt.UTC(),
		PickupLocation: m.PickupLocation,
		ReturnLocation: m.ReturnLocation,
		Status:         m.Status,
		TotalPrice:     m.TotalPrice,
		Extras:         extras,
		IdempotencyKey: key,
	}, nil
}

func ackOf(m reservationModel) *domain.BackendAck {
	return &domain.BackendAck{ID: strconv.FormatInt(m.ID, 10), Status: m.Status}
}

// Create stores the record unless one with the same idempotency key already
// exists, in which case the existing record is acknowledged again.
func (r *ReservationRepository) Create(ctx context.Context, rec domain.ReservationRecord) (*domain.BackendAck, error) {
	m, err := toReservationModel(rec)
	if err != nil {
		return nil, err
	}

	if m.IdempotencyKey != nil {
		existing, err := r.findByKey(ctx, *m.IdempotencyKey)
		if err == nil {
			return ackOf(*existing), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		// A concurrent create with the same key won the race.
		if m.IdempotencyKey != nil && isUniqueConstraintError(err) {
			existing, findErr := r.findByKey(ctx, *m.IdempotencyKey)
			if findErr == nil {
				return ackOf(*existing), nil
			}
		}
		return nil, err
	}
	return ackOf(m), nil
}

func (r *ReservationRepository) ListByClient(ctx context.Context, clientID int64) ([]domain.ReservationRecord, error) {
	var models []reservationModel
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("start_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.ReservationRecord, 0, len(models))
	for _, m := range models {
		rec, err := toDomainRecord(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.ReservationRecord, error) {
	var m reservationModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	rec, err := toDomainRecord(m)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *ReservationRepository) findByKey(ctx context.Context, key string) (*reservationModel, error) {
	var m reservationModel
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}
