package app_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthtrack/internal/app"
	"healthtrack/internal/domain"
)

func TestFormState_Defaults(t *testing.T) {
	f := app.NewFormState(clock)
	d := f.Draft()

	assert.Equal(t, "2024-03-15", d.Date)
	assert.False(t, d.Weight.Valid)
	assert.False(t, d.Sleep.Valid)
	assert.Equal(t, domain.Of(50), d.Energy)
	assert.Equal(t, domain.Of(50), d.Mood)
	assert.Equal(t, domain.Of(50), d.Stress)
	assert.Equal(t, domain.FoodBalanced, d.FoodType)
	assert.Empty(t, d.EditingID)
}

func TestFormState_SetField(t *testing.T) {
	f := app.NewFormState(clock)

	require.NoError(t, f.SetField(app.FieldWeight, " 70.5 "))
	require.NoError(t, f.SetField(app.FieldFoodType, "junk-food"))
	require.NoError(t, f.SetField(app.FieldDate, "2024-02-29"))
	require.NoError(t, f.SetField(app.FieldSport, ""))

	d := f.Draft()
	assert.Equal(t, domain.Of(70.5), d.Weight)
	assert.Equal(t, domain.FoodJunk, d.FoodType)
	assert.Equal(t, "2024-02-29", d.Date)
	assert.False(t, d.Sport.Valid)
}

func TestFormState_SetFieldRejects(t *testing.T) {
	tests := []struct {
		field app.Field
		raw   string
	}{
		{app.FieldWeight, "heavy"},
		{app.FieldWeight, "-3"},
		{app.FieldSleep, "25"},
		{app.FieldEnergy, "0"},
		{app.FieldMood, "55.5"},
		{app.FieldDate, "01/02/2024"},
		{app.FieldFoodType, "pizza"},
		{app.Field("colour"), "red"},
	}
	for _, tc := range tests {
		t.Run(string(tc.field)+"="+tc.raw, func(t *testing.T) {
			f := app.NewFormState(clock)
			before := f.Draft()

			err := f.SetField(tc.field, tc.raw)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Contains(t, verr.Invalid, string(tc.field))
			assert.Equal(t, before, f.Draft(), "draft must be unchanged")
		})
	}
}

func TestFormState_ValidateRequired(t *testing.T) {
	f := app.NewFormState(clock)

	err := f.ValidateRequired()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"weight", "sleep"}, verr.Missing)

	require.NoError(t, f.SetDate(""))
	require.True(t, errors.As(f.ValidateRequired(), &verr))
	assert.Equal(t, []string{"date", "weight", "sleep"}, verr.Missing)

	require.NoError(t, f.SetDate("2024-01-01"))
	require.NoError(t, f.SetMeasure(domain.MetricWeight, domain.Of(70)))
	require.NoError(t, f.SetMeasure(domain.MetricSleep, domain.Of(0)))
	assert.NoError(t, f.ValidateRequired())
}

func TestFormState_LoadForEditAndReset(t *testing.T) {
	f := app.NewFormState(clock)
	rec := domain.HealthRecord{
		ID:       "rec-1",
		Date:     "2024-01-05",
		Weight:   domain.Of(80),
		Sleep:    domain.Of(6),
		Energy:   domain.Of(10),
		Mood:     domain.Of(20),
		Stress:   domain.Of(30),
		FoodType: domain.FoodVegan,
	}

	f.LoadForEdit(rec)
	d := f.Draft()
	assert.Equal(t, "rec-1", d.EditingID)
	assert.Equal(t, rec, d.Record())

	f.Reset()
	assert.Equal(t, app.DefaultDraft(fixedNow), f.Draft())
}

func TestFormState_ValidateCatchesStoredOutOfRange(t *testing.T) {
	f := app.NewFormState(clock)
	f.LoadForEdit(domain.HealthRecord{ID: "x", Date: "2024-01-01", Weight: domain.Of(70), Sleep: domain.Of(7), Mood: domain.Of(3000)})

	err := f.Validate()
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Invalid, "mood")
}
