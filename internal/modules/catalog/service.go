// Package catalog publishes vehicles and extras as loosely-typed snapshots,
// the shape the reconciler consumes.
package catalog

import (
	"context"
	"fmt"

	"carbooking/internal/domain"
	"carbooking/internal/modules/pricing"
	"carbooking/internal/modules/reconcile"
)

type Service struct {
	vehicles VehicleRepository
	extras   ExtraRepository
}

func NewService(vehicles VehicleRepository, extras ExtraRepository) *Service {
	return &Service{vehicles: vehicles, extras: extras}
}

func (s *Service) GetByID(ctx context.Context, id int64) (domain.VehicleSnapshot, error) {
	v, err := s.vehicles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return v.Snapshot(), nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.ExtraSnapshot, error) {
	extras, err := s.extras.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExtraSnapshot, 0, len(extras))
	for i := range extras {
		out = append(out, extras[i].Snapshot())
	}
	return out, nil
}

// ListVehicles returns every vehicle, or only those free over the period
// when both bounds are given. A period also adds the rental duration and the
// vehicle-only estimate to each snapshot.
func (s *Service) ListVehicles(ctx context.Context, start, end string) ([]domain.VehicleSnapshot, error) {
	if start == "" && end == "" {
		vehicles, err := s.vehicles.List(ctx)
		if err != nil {
			return nil, err
		}
		return snapshots(vehicles), nil
	}
	if start == "" || end == "" {
		return nil, ErrIncompleteRange
	}

	from, err := pricing.ParseTime(start)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	to, err := pricing.ParseTime(end)
	if err != nil {
		return nil, fmt.Errorf("end: %w", err)
	}
	if !to.After(from) {
		return nil, reconcile.ErrEndBeforeStart
	}

	vehicles, err := s.vehicles.GetAvailable(ctx, from, to)
	if err != nil {
		return nil, err
	}

	days := pricing.Days(from, to)
	out := snapshots(vehicles)
	for i, v := range vehicles {
		out[i]["DureeJours"] = days
		out[i]["PrixEstime"] = pricing.VehicleTotal(v.PricePerDay, days)
	}
	return out, nil
}

func snapshots(vehicles []domain.Vehicle) []domain.VehicleSnapshot {
	out := make([]domain.VehicleSnapshot, 0, len(vehicles))
	for i := range vehicles {
		out = append(out, vehicles[i].Snapshot())
	}
	return out
}
