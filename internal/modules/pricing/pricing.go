// Package pricing derives rental duration and totals from a canonical
// reservation.
package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"carbooking/internal/domain"
)

// Layouts accepted for raw date-time strings coming from forms and query
// parameters. Values without a zone are read as UTC.
var Layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006",
}

func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidRange)
	}
	for _, layout := range Layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse %q", ErrInvalidRange, raw)
}

// DurationDays returns the number of chargeable days between two raw
// timestamps: the absolute difference rounded up to whole days, at least 1.
func DurationDays(start, end string) (int, error) {
	s, err := ParseTime(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseTime(end)
	if err != nil {
		return 0, err
	}
	return Days(s, e), nil
}

func Days(start, end time.Time) int {
	diff := end.Sub(start)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(diff.Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

func VehicleTotal(pricePerDay float64, days int) float64 {
	return round(pricePerDay * float64(days))
}

// ExtrasTotal charges every extra per day. A nil list means the extras could
// not be resolved and the built-in bundle is charged instead; an empty list
// charges nothing.
func (c *Calculator) ExtrasTotal(extras []domain.ReservationExtra, days int) float64 {
	var sum float64
	for _, e := range c.ResolveExtras(extras) {
		sum += e.PricePerDay * float64(days)
	}
	return round(sum)
}

func (c *Calculator) ResolveExtras(extras []domain.ReservationExtra) []domain.ReservationExtra {
	if extras != nil {
		return extras
	}
	bundle := make([]domain.ReservationExtra, len(c.defaults.ExtrasBundle))
	copy(bundle, c.defaults.ExtrasBundle)
	return bundle
}

func Total(vehicleTotal, extrasTotal float64) float64 {
	return round(vehicleTotal + extrasTotal)
}

type Calculator struct {
	defaults domain.DefaultTable
}

func NewCalculator(defaults domain.DefaultTable) *Calculator {
	return &Calculator{defaults: defaults}
}

// Apply fills duration, resolved extras and totals. A total flagged as
// authoritative is kept as delivered.
func (c *Calculator) Apply(r domain.CanonicalReservation) domain.CanonicalReservation {
	days := Days(r.Start, r.End)
	r.DurationDays = days
	r.Extras = c.ResolveExtras(r.Extras)
	r.VehicleTotal = VehicleTotal(r.VehiclePricePerDay, days)
	r.ExtrasTotal = c.ExtrasTotal(r.Extras, days)
	if !r.TotalAuthoritative {
		r.TotalPrice = Total(r.VehicleTotal, r.ExtrasTotal)
	}
	return r
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
