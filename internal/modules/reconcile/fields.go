package reconcile

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"carbooking/internal/domain"
)

// Rule names one logical field and the source keys that may carry it, most
// preferred first.
type Rule struct {
	Field string
	Keys  []string
}

// Logical draft fields.
const (
	PickupLocation   = "pickupLocation"
	PickupAt         = "pickupAt"
	ReturnLocation   = "returnLocation"
	ReturnAt         = "returnAt"
	VehicleID        = "vehicleId"
	ExtraIDs         = "extraIds"
	Step             = "step"
	Civility         = "civility"
	FirstName        = "firstName"
	LastName         = "lastName"
	Email            = "email"
	Password         = "password"
	Phone            = "phone"
	IdentityDocument = "identityDocument"
	BirthDate        = "birthDate"
	LicenseNumber    = "licenseNumber"
	LicenseIssuedAt  = "licenseIssuedAt"
	Address          = "address"
)

// Logical catalog fields.
const (
	ID          = "id"
	Name        = "name"
	Brand       = "brand"
	Model       = "model"
	Image       = "image"
	PricePerDay = "pricePerDay"
)

// DraftFields is the precedence table for raw booking input: URL query
// parameters, form posts and stored drafts.
var DraftFields = []Rule{
	{PickupLocation, []string{"lieuDepart", "LieuDepart", "lieuPriseEnCharge", "LieuPriseEnCharge", "pickupLocation"}},
	{PickupAt, []string{"dateDepart", "DateDepart", "dateDebut", "DateDebut", "pickupAt"}},
	{ReturnLocation, []string{"lieuRetour", "LieuRetour", "lieuRestitution", "LieuRestitution", "returnLocation"}},
	{ReturnAt, []string{"dateRetour", "DateRetour", "dateFin", "DateFin", "returnAt"}},
	{VehicleID, []string{"vehicule", "Vehicule", "idVehicule", "IdVehicule", "vehicleId"}},
	{ExtraIDs, []string{"extras", "Extras", "idExtras", "IdExtras", "extraIds"}},
	{Step, []string{"etape", "Etape", "step"}},
	{Civility, []string{"civilite", "Civilite", "civility"}},
	{FirstName, []string{"prenom", "Prenom", "firstName"}},
	{LastName, []string{"nom", "Nom", "lastName"}},
	{Email, []string{"email", "Email"}},
	{Password, []string{"motDePasse", "MotDePasse", "password"}},
	{Phone, []string{"telephone", "Telephone", "phone"}},
	{IdentityDocument, []string{"cinPassport", "CinPassport", "identityDocument"}},
	{BirthDate, []string{"dateNaissance", "DateNaissance", "birthDate"}},
	{LicenseNumber, []string{"numPermis", "NumPermis", "licenseNumber"}},
	{LicenseIssuedAt, []string{"datePermis", "DatePermis", "licenseIssuedAt"}},
	{Address, []string{"adresse", "Adresse", "address"}},
}

// VehicleFields is the precedence table for vehicle catalog snapshots.
var VehicleFields = []Rule{
	{ID, []string{"IdVehicule", "idVehicule", "Id", "id"}},
	{Name, []string{"NomComplet", "nomComplet", "Nom", "nom", "Name", "name"}},
	{Brand, []string{"Marque", "marque", "Brand", "brand"}},
	{Model, []string{"Modele", "modele", "Model", "model"}},
	{Image, []string{"Image", "image", "ImageUrl", "imageUrl", "Photo", "photo"}},
	{PricePerDay, []string{"PrixParJour", "prixParJour", "PricePerDay", "pricePerDay", "Prix", "prix"}},
}

// ExtraFields is the precedence table for extras catalog snapshots.
var ExtraFields = []Rule{
	{ID, []string{"IdExtra", "idExtra", "Id", "id"}},
	{Name, []string{"Nom", "nom", "Name", "name", "Libelle", "libelle"}},
	{PricePerDay, []string{"Prix", "prix", "PrixParJour", "prixParJour", "PricePerDay", "pricePerDay", "Price", "price"}},
}

func keysFor(rules []Rule, field string) []string {
	for _, r := range rules {
		if r.Field == field {
			return r.Keys
		}
	}
	return nil
}

// lookup returns the first defined value among the field's candidate keys.
func lookup(src map[string]any, rules []Rule, field string) (any, bool) {
	for _, key := range keysFor(rules, field) {
		v, ok := src[key]
		if ok && defined(v) {
			return v, true
		}
	}
	return nil, false
}

func defined(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return t != nil
	case []string:
		return t != nil
	case []int64:
		return t != nil
	case float64:
		return !math.IsNaN(t)
	}
	return true
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int, int64, int32:
		return fmt.Sprint(t), true
	case fmt.Stringer:
		s := strings.TrimSpace(t.String())
		return s, s != ""
	}
	return "", false
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t)
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func asInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case float64:
		if t != math.Trunc(t) {
			return 0, false
		}
		return int64(t), true
	case json.Number:
		n, err := t.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// asIDList accepts a JSON array, a Go slice or a comma-separated string.
// Entries that are not identifiers are skipped.
func asIDList(v any) ([]int64, bool) {
	out := make([]int64, 0)
	appendID := func(x any) {
		if id, ok := asInt(x); ok && id > 0 {
			out = append(out, id)
		}
	}

	switch t := v.(type) {
	case []int64:
		for _, id := range t {
			appendID(id)
		}
	case []any:
		for _, x := range t {
			appendID(x)
		}
	case []string:
		for _, x := range t {
			appendID(x)
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				appendID(part)
			}
		}
	default:
		id, ok := asInt(v)
		if !ok {
			return nil, false
		}
		appendID(id)
	}
	return out, true
}

// NormalizeDraft folds raw field sources into base. Sources are applied in
// order, so later sources override earlier ones; only defined values
// override.
func NormalizeDraft(base domain.BookingDraft, sources ...domain.Fields) domain.BookingDraft {
	d := base
	for _, src := range sources {
		if len(src) == 0 {
			continue
		}
		applyString(src, PickupLocation, &d.PickupLocation)
		applyString(src, PickupAt, &d.PickupAt)
		applyString(src, ReturnLocation, &d.ReturnLocation)
		applyString(src, ReturnAt, &d.ReturnAt)

		if v, ok := lookup(src, DraftFields, VehicleID); ok {
			if id, ok := asInt(v); ok {
				d.VehicleID = id
			}
		}
		if v, ok := lookup(src, DraftFields, ExtraIDs); ok {
			if ids, ok := asIDList(v); ok {
				d.ExtraIDs = ids
			}
		} else if raw, present := rawEmptySelection(src); present {
			d.ExtraIDs = raw
		}
		if v, ok := lookup(src, DraftFields, Step); ok {
			if step, ok := asInt(v); ok {
				d.Step = int(step)
			}
		}

		applyString(src, Civility, &d.Client.Civility)
		applyString(src, FirstName, &d.Client.FirstName)
		applyString(src, LastName, &d.Client.LastName)
		applyString(src, Email, &d.Client.Email)
		applyString(src, Password, &d.Client.Password)
		applyString(src, Phone, &d.Client.Phone)
		applyString(src, IdentityDocument, &d.Client.IdentityDocument)
		applyString(src, BirthDate, &d.Client.BirthDate)
		applyString(src, LicenseNumber, &d.Client.LicenseNumber)
		applyString(src, LicenseIssuedAt, &d.Client.LicenseIssuedAt)
		applyString(src, Address, &d.Client.Address)
	}
	return d
}

// rawEmptySelection reports an extras key explicitly set to an empty value,
// which clears the selection rather than leaving it untouched.
func rawEmptySelection(src domain.Fields) ([]int64, bool) {
	for _, key := range keysFor(DraftFields, ExtraIDs) {
		v, ok := src[key]
		if !ok {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			return []int64{}, true
		}
	}
	return nil, false
}

func applyString(src domain.Fields, field string, dst *string) {
	if v, ok := lookup(src, DraftFields, field); ok {
		if s, ok := asString(v); ok {
			*dst = s
		}
	}
}
