// Package wizard drives the ordered booking steps and gates each transition
// on the data the current step needs.
package wizard

import (
	"net/url"
	"strconv"
	"strings"

	"carbooking/internal/domain"
	"carbooking/internal/modules/pricing"
	"carbooking/internal/pkg/validator"
)

type Step int

const (
	Locations Step = iota
	VehicleSelection
	Extras
	Confirmation
)

const (
	First = Locations
	Last  = Confirmation
)

var stepNames = map[Step]string{
	Locations:        "locations",
	VehicleSelection: "vehicle",
	Extras:           "extras",
	Confirmation:     "confirmation",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "step(" + strconv.Itoa(int(s)) + ")"
}

func (s Step) Valid() bool {
	return s >= First && s <= Last
}

// ParseStep accepts a step index or name.
func ParseStep(raw string) (Step, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(raw); err == nil {
		if s := Step(n); s.Valid() {
			return s, nil
		}
		return 0, ErrUnknownStep
	}
	for s, name := range stepNames {
		if name == raw {
			return s, nil
		}
	}
	return 0, ErrUnknownStep
}

type locationsForm struct {
	PickupLocation string `json:"lieuDepart" validate:"required"`
	PickupAt       string `json:"dateDepart" validate:"required"`
	ReturnLocation string `json:"lieuRetour" validate:"required"`
	ReturnAt       string `json:"dateRetour" validate:"required"`
}

type vehicleForm struct {
	VehicleID int64 `json:"vehicule" validate:"required,gt=0"`
}

type identityForm struct {
	FirstName string `json:"prenom" validate:"required"`
	LastName  string `json:"nom" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"motDePasse" validate:"required,min=6"`
}

// Advance validates the current step and returns the next one. On failure
// the current step is returned unchanged with the error.
func Advance(current Step, d domain.BookingDraft) (Step, error) {
	if !current.Valid() {
		return current, ErrUnknownStep
	}
	if current == Last {
		return current, ErrLastStep
	}
	if fields := validateStep(current, d); len(fields) > 0 {
		return current, &ValidationError{Step: current, Fields: fields}
	}
	return current + 1, nil
}

func Retreat(current Step) (Step, error) {
	if !current.Valid() {
		return current, ErrUnknownStep
	}
	if current == First {
		return current, ErrFirstStep
	}
	return current - 1, nil
}

// Restore picks the step to resume at. Out-of-range targets are clamped, and
// a target past vehicle selection without a selected vehicle lands on
// vehicle selection.
func Restore(target Step, d domain.BookingDraft) Step {
	if target < First {
		target = First
	}
	if target > Last {
		target = Last
	}
	if target > VehicleSelection && d.VehicleID <= 0 {
		return VehicleSelection
	}
	return target
}

// CheckStep reports whether every step before target would pass its gate.
func CheckStep(target Step, d domain.BookingDraft) error {
	for s := First; s < target && s < Last; s++ {
		if fields := validateStep(s, d); len(fields) > 0 {
			return &ValidationError{Step: s, Fields: fields}
		}
	}
	return nil
}

func validateStep(s Step, d domain.BookingDraft) map[string]string {
	switch s {
	case Locations:
		return validateLocations(d)
	case VehicleSelection:
		return validator.Validate(vehicleForm{VehicleID: d.VehicleID})
	}
	return nil
}

func validateLocations(d domain.BookingDraft) map[string]string {
	form := locationsForm{
		PickupLocation: strings.TrimSpace(d.PickupLocation),
		PickupAt:       strings.TrimSpace(d.PickupAt),
		ReturnLocation: strings.TrimSpace(d.ReturnLocation),
		ReturnAt:       strings.TrimSpace(d.ReturnAt),
	}
	fields := validator.Validate(form)
	if fields == nil {
		fields = map[string]string{}
	}

	start, startErr := pricing.ParseTime(form.PickupAt)
	if form.PickupAt != "" && startErr != nil {
		fields["dateDepart"] = "datetime"
	}
	end, endErr := pricing.ParseTime(form.ReturnAt)
	if form.ReturnAt != "" && endErr != nil {
		fields["dateRetour"] = "datetime"
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		fields["dateRetour"] = "gtfield=dateDepart"
	}
	return fields
}

// ValidateIdentity gates registration from the confirmation step.
func ValidateIdentity(id domain.ClientIdentity) error {
	fields := validator.Validate(identityForm{
		FirstName: strings.TrimSpace(id.FirstName),
		LastName:  strings.TrimSpace(id.LastName),
		Email:     strings.TrimSpace(id.Email),
		Password:  id.Password,
	})
	if len(fields) > 0 {
		return &ValidationError{Step: Confirmation, Fields: fields}
	}
	return nil
}

// Snapshot renders the draft and step as the shareable URL query.
func Snapshot(d domain.BookingDraft, step Step) string {
	q := url.Values{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			q.Set(key, value)
		}
	}

	set("lieuDepart", d.PickupLocation)
	set("dateDepart", d.PickupAt)
	set("lieuRetour", d.ReturnLocation)
	set("dateRetour", d.ReturnAt)
	if d.VehicleID > 0 {
		q.Set("vehicule", strconv.FormatInt(d.VehicleID, 10))
	}
	if len(d.ExtraIDs) > 0 {
		ids := make([]string, 0, len(d.ExtraIDs))
		for _, id := range d.ExtraIDs {
			ids = append(ids, strconv.FormatInt(id, 10))
		}
		q.Set("extras", strings.Join(ids, ","))
	}
	q.Set("etape", strconv.Itoa(int(step)))
	return q.Encode()
}

// ParseSnapshot reads a URL query back into raw fields. A leading "?" is
// allowed.
func ParseSnapshot(query string) (domain.Fields, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return nil, err
	}
	out := make(domain.Fields, len(values))
	for key, v := range values {
		if len(v) > 0 {
			out[key] = v[0]
		}
	}
	return out, nil
}
