package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbooking/internal/domain"
	"carbooking/internal/modules/reconcile"
)

func validDraft() domain.BookingDraft {
	return domain.BookingDraft{
		PickupLocation: "Agency",
		PickupAt:       "2025-05-15T10:00",
		ReturnLocation: "Agency",
		ReturnAt:       "2025-05-20T10:00",
	}
}

func TestAdvance_FullSequence(t *testing.T) {
	d := validDraft()

	step, err := Advance(Locations, d)
	require.NoError(t, err)
	assert.Equal(t, VehicleSelection, step)

	_, err = Advance(VehicleSelection, d)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"vehicule": "required"}, verr.Fields)

	d.VehicleID = 3
	step, err = Advance(VehicleSelection, d)
	require.NoError(t, err)
	assert.Equal(t, Extras, step)

	step, err = Advance(Extras, d)
	require.NoError(t, err)
	assert.Equal(t, Confirmation, step)

	step, err = Advance(Confirmation, d)
	assert.ErrorIs(t, err, ErrLastStep)
	assert.Equal(t, Confirmation, step)
}

func TestAdvance_ReturnNotAfterPickup(t *testing.T) {
	for name, returnAt := range map[string]string{
		"earlier": "2025-05-14T10:00",
		"equal":   "2025-05-15T10:00",
	} {
		t.Run(name, func(t *testing.T) {
			d := validDraft()
			d.ReturnAt = returnAt

			step, err := Advance(Locations, d)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, Locations, step)
			assert.Equal(t, Locations, verr.Step)
			assert.Equal(t, "gtfield=dateDepart", verr.Fields["dateRetour"])
		})
	}
}

func TestAdvance_MissingAndMalformedLocations(t *testing.T) {
	d := domain.BookingDraft{PickupLocation: "  ", PickupAt: "not a date", ReturnAt: "2025-05-20"}

	_, err := Advance(Locations, d)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"lieuDepart": "required",
		"dateDepart": "datetime",
		"lieuRetour": "required",
	}, verr.Fields)
	assert.Contains(t, verr.Error(), "lieuDepart=required")
}

func TestRetreat(t *testing.T) {
	step, err := Retreat(Confirmation)
	require.NoError(t, err)
	assert.Equal(t, Extras, step)

	step, err = Retreat(Locations)
	assert.ErrorIs(t, err, ErrFirstStep)
	assert.Equal(t, Locations, step)
}

func TestRestore(t *testing.T) {
	d := validDraft()

	assert.Equal(t, VehicleSelection, Restore(Confirmation, d), "no vehicle selected")
	assert.Equal(t, VehicleSelection, Restore(Extras, d))
	assert.Equal(t, Locations, Restore(-3, d))

	d.VehicleID = 5
	assert.Equal(t, Confirmation, Restore(Confirmation, d))
	assert.Equal(t, Confirmation, Restore(42, d))
	assert.Equal(t, Extras, Restore(Extras, d))
}

func TestCheckStep(t *testing.T) {
	d := validDraft()
	d.ReturnAt = "2025-05-01"
	d.VehicleID = 1

	var verr *ValidationError
	require.ErrorAs(t, CheckStep(Confirmation, d), &verr)
	assert.Equal(t, Locations, verr.Step)

	assert.NoError(t, CheckStep(Locations, d))
}

func TestValidateIdentity(t *testing.T) {
	ok := domain.ClientIdentity{FirstName: "Salma", LastName: "Idrissi", Email: "salma@example.ma", Password: "secret1"}
	assert.NoError(t, ValidateIdentity(ok))

	bad := domain.ClientIdentity{FirstName: " ", Email: "not-an-email", Password: "12345"}
	err := ValidateIdentity(bad)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"prenom":     "required",
		"nom":        "required",
		"email":      "email",
		"motDePasse": "min=6",
	}, verr.Fields)
}

func TestSnapshot_RoundTripsThroughReconciler(t *testing.T) {
	d := validDraft()
	d.VehicleID = 12
	d.ExtraIDs = []int64{3, 1}

	query := Snapshot(d, Extras)
	assert.Contains(t, query, "etape=2")
	assert.Contains(t, query, "extras=3%2C1")

	fields, err := ParseSnapshot("?" + query)
	require.NoError(t, err)

	got := reconcile.NormalizeDraft(domain.BookingDraft{}, fields)
	assert.Equal(t, d.PickupLocation, got.PickupLocation)
	assert.Equal(t, d.PickupAt, got.PickupAt)
	assert.Equal(t, d.ReturnAt, got.ReturnAt)
	assert.Equal(t, int64(12), got.VehicleID)
	assert.Equal(t, []int64{3, 1}, got.ExtraIDs)
	assert.Equal(t, int(Extras), got.Step)
}

func TestParseStep(t *testing.T) {
	s, err := ParseStep("2")
	require.NoError(t, err)
	assert.Equal(t, Extras, s)

	s, err = ParseStep("Confirmation")
	require.NoError(t, err)
	assert.Equal(t, Confirmation, s)

	_, err = ParseStep("7")
	assert.ErrorIs(t, err, ErrUnknownStep)
	_, err = ParseStep("payment")
	assert.ErrorIs(t, err, ErrUnknownStep)

	assert.Equal(t, "vehicle", VehicleSelection.String())
}
