// Package reconcile merges booking data from inconsistent sources into one
// canonical reservation using the precedence tables in fields.go.
package reconcile

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"carbooking/internal/domain"
	"carbooking/internal/modules/pricing"
	"carbooking/internal/pkg/metrics"
)

type Input struct {
	Draft    domain.BookingDraft
	ClientID int64
	// Vehicle may be nil when the catalog could not be reached.
	Vehicle domain.VehicleSnapshot
	// Extras are candidate snapshots. With a draft selection they are matched
	// by id in selection order; without one they are taken as given.
	Extras  []domain.ExtraSnapshot
	Profile *domain.ClientProfile
	// AuthoritativeTotal, when set, wins over any recomputed total.
	AuthoritativeTotal *float64
}

type Reconciler struct {
	defaults domain.DefaultTable
	calc     *pricing.Calculator
	log      *zap.Logger
}

func New(defaults domain.DefaultTable, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		defaults: defaults,
		calc:     pricing.NewCalculator(defaults),
		log:      log,
	}
}

func (r *Reconciler) Defaults() domain.DefaultTable {
	return r.defaults
}

// Reconcile builds a priced canonical reservation. It fails only when the
// dates cannot be parsed or the return is not after the pickup.
func (r *Reconciler) Reconcile(in Input) (domain.CanonicalReservation, error) {
	start, err := pricing.ParseTime(in.Draft.PickupAt)
	if err != nil {
		return domain.CanonicalReservation{}, fmt.Errorf("pickup time: %w", err)
	}
	end, err := pricing.ParseTime(in.Draft.ReturnAt)
	if err != nil {
		return domain.CanonicalReservation{}, fmt.Errorf("return time: %w", err)
	}
	if !end.After(start) {
		return domain.CanonicalReservation{}, ErrEndBeforeStart
	}

	c := domain.CanonicalReservation{
		ClientID:  in.ClientID,
		VehicleID: in.Draft.VehicleID,
		Start:     start.UTC(),
		End:       end.UTC(),
		Status:    domain.ReservationStaged,
	}
	if c.ClientID == 0 && in.Profile != nil {
		c.ClientID = in.Profile.ID
	}

	var agency string
	if in.Profile != nil {
		agency = strings.TrimSpace(in.Profile.PreferredAgency)
	}
	c.PickupLocation = firstNonEmpty(in.Draft.PickupLocation, agency)
	c.ReturnLocation = firstNonEmpty(in.Draft.ReturnLocation, agency)

	r.applyVehicle(&c, in.Vehicle)
	c.Extras = r.resolveExtras(in.Draft.ExtraIDs, in.Extras)

	if in.AuthoritativeTotal != nil {
		c.TotalPrice = *in.AuthoritativeTotal
		c.TotalAuthoritative = true
	}

	return r.Normalize(c), nil
}

// Normalize fills every blank field from the default table and prices the
// result. Normalizing a normalized reservation returns it unchanged.
func (r *Reconciler) Normalize(c domain.CanonicalReservation) domain.CanonicalReservation {
	if c.PickupLocation == "" {
		c.PickupLocation = r.defaults.PickupLocation
		r.defaulted("pickupLocation")
	}
	if c.ReturnLocation == "" {
		c.ReturnLocation = r.defaults.ReturnLocation
		r.defaulted("returnLocation")
	}
	if c.VehicleName == "" {
		c.VehicleName = r.defaults.VehicleName
		r.defaulted("vehicleName")
	}
	if c.VehicleImage == "" {
		c.VehicleImage = r.defaults.VehicleImage
		r.defaulted("vehicleImage")
	}
	if c.VehiclePricePerDay <= 0 {
		c.VehiclePricePerDay = r.defaults.VehiclePricePerDay
		r.defaulted("vehiclePricePerDay")
	}
	if c.Status == "" {
		c.Status = domain.ReservationStaged
	}

	if c.Extras != nil {
		extras := make([]domain.ReservationExtra, len(c.Extras))
		for i, e := range c.Extras {
			if strings.TrimSpace(e.Name) == "" {
				e.Name = r.defaults.ExtraName
				r.defaulted("extraName")
			}
			extras[i] = e
		}
		c.Extras = extras
	} else {
		r.defaulted("extras")
	}

	return r.calc.Apply(c)
}

// MergeProfile copies profile-derived identity fields into the draft. Step,
// locations, dates and selections are left as they are, as is the password.
func MergeProfile(d domain.BookingDraft, p *domain.ClientProfile) domain.BookingDraft {
	if p == nil {
		return d
	}
	id := p.Identity()
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&d.Client.Civility, id.Civility)
	set(&d.Client.FirstName, id.FirstName)
	set(&d.Client.LastName, id.LastName)
	set(&d.Client.Email, id.Email)
	set(&d.Client.Phone, id.Phone)
	set(&d.Client.IdentityDocument, id.IdentityDocument)
	set(&d.Client.BirthDate, id.BirthDate)
	set(&d.Client.LicenseNumber, id.LicenseNumber)
	set(&d.Client.LicenseIssuedAt, id.LicenseIssuedAt)
	set(&d.Client.Address, id.Address)
	return d
}

func (r *Reconciler) applyVehicle(c *domain.CanonicalReservation, v domain.VehicleSnapshot) {
	if len(v) == 0 {
		return
	}

	if c.VehicleID == 0 {
		if raw, ok := lookup(v, VehicleFields, ID); ok {
			if id, ok := asInt(raw); ok {
				c.VehicleID = id
			}
		}
	}

	if raw, ok := lookup(v, VehicleFields, Name); ok {
		c.VehicleName, _ = asString(raw)
	} else {
		var parts []string
		for _, field := range []string{Brand, Model} {
			if raw, ok := lookup(v, VehicleFields, field); ok {
				if s, ok := asString(raw); ok {
					parts = append(parts, s)
				}
			}
		}
		c.VehicleName = strings.Join(parts, " ")
	}

	if raw, ok := lookup(v, VehicleFields, Image); ok {
		c.VehicleImage, _ = asString(raw)
	}
	if raw, ok := lookup(v, VehicleFields, PricePerDay); ok {
		if price, ok := asFloat(raw); ok && price > 0 {
			c.VehiclePricePerDay = price
		}
	}
}

func (r *Reconciler) resolveExtras(selection []int64, snapshots []domain.ExtraSnapshot) []domain.ReservationExtra {
	if selection == nil {
		if len(snapshots) == 0 {
			return nil
		}
		out := make([]domain.ReservationExtra, 0, len(snapshots))
		for _, s := range snapshots {
			out = append(out, r.resolveExtra(0, s))
		}
		return out
	}

	byID := make(map[int64]domain.ExtraSnapshot, len(snapshots))
	for _, s := range snapshots {
		if raw, ok := lookup(s, ExtraFields, ID); ok {
			if id, ok := asInt(raw); ok {
				byID[id] = s
			}
		}
	}

	out := make([]domain.ReservationExtra, 0, len(selection))
	for _, id := range selection {
		out = append(out, r.resolveExtra(id, byID[id]))
	}
	return out
}

func (r *Reconciler) resolveExtra(id int64, s domain.ExtraSnapshot) domain.ReservationExtra {
	e := domain.ReservationExtra{ID: id}

	if e.ID == 0 {
		if raw, ok := lookup(s, ExtraFields, ID); ok {
			e.ID, _ = asInt(raw)
		}
	}
	if raw, ok := lookup(s, ExtraFields, Name); ok {
		e.Name, _ = asString(raw)
	}

	if raw, ok := lookup(s, ExtraFields, PricePerDay); ok {
		if price, ok := asFloat(raw); ok {
			e.PricePerDay = price
			return e
		}
	}

	if price, ok := r.defaults.ExtraPrices[strings.ToLower(strings.TrimSpace(e.Name))]; ok {
		e.PricePerDay = price
		r.defaulted("extraPrice")
		return e
	}

	r.defaulted("extraPrice")
	return e
}

func (r *Reconciler) defaulted(field string) {
	metrics.ReconciliationDefaults.WithLabelValues(field).Inc()
	r.log.Warn("reconciliation default applied", zap.String("field", field))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
