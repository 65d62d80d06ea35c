package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository/memory"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

var billNow = time.Date(2024, 5, 12, 18, 0, 0, 0, time.UTC)

func testRates() *StaticRates {
	return NewStaticRates(
		map[string]float64{"uci": 120, "GENERAL": 60},
		map[string]float64{"X-ray": 45, "blood  panel": 30},
		25,
	)
}

func TestStaticRates(t *testing.T) {
	r := testRates()

	rate, ok := r.DailyRate(model.HospitalizationUCI)
	assert.True(t, ok)
	assert.Equal(t, 120.0, rate)

	_, ok = r.DailyRate(model.HospitalizationNeonatos)
	assert.False(t, ok)

	assert.Equal(t, 45.0, r.StudyCost("x-ray"))
	assert.Equal(t, 30.0, r.StudyCost("Blood Panel"))
	assert.Equal(t, 25.0, r.StudyCost("Urinalysis"))
}

func TestStayDays(t *testing.T) {
	admitted := billNow.Add(-50 * time.Hour)
	h := &model.Hospitalization{AdmittedAt: admitted}
	assert.Equal(t, 3, StayDays(h, billNow))

	h.AdmittedAt = billNow.Add(-time.Minute)
	assert.Equal(t, 1, StayDays(h, billNow))

	discharged := admitted.Add(24 * time.Hour)
	h = &model.Hospitalization{AdmittedAt: admitted, DischargedAt: &discharged}
	assert.Equal(t, 1, StayDays(h, billNow))
}

func TestTotalCost(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	p := &model.Patient{
		ID:      uuid.New(),
		Name:    "Rocky",
		Species: "dog",
		State:   model.StateHospitalized,
		Studies: []model.Study{
			{TaskID: uuid.New(), Name: "X-ray"},
			{TaskID: uuid.New(), Name: "Blood panel"},
		},
		Payments: []model.Payment{{Amount: 100, Method: "card"}},
	}
	require.NoError(t, store.Patients().Create(ctx, p))

	itemID := uuid.New()
	h := &model.Hospitalization{
		ID:         uuid.New(),
		PatientID:  p.ID,
		AdmittedAt: billNow.Add(-30 * time.Hour),
		Type:       model.HospitalizationUCI,
		TherapyPlan: []model.TherapyPlanItem{
			{ID: itemID, MedicationName: "Amoxicillin", UnitCost: 3.5, FrequencyHours: 12, Active: true},
		},
		Administrations: []model.MedicationAdministration{
			{ID: uuid.New(), TherapyItemID: itemID, Status: model.AdministrationAdministered},
			{ID: uuid.New(), TherapyItemID: itemID, Status: model.AdministrationAdministered},
			{ID: uuid.New(), TherapyItemID: itemID, Status: model.AdministrationOmitted},
			{ID: uuid.New(), TherapyItemID: itemID, Status: model.AdministrationPending},
		},
	}
	require.NoError(t, store.Hospitalizations().Create(ctx, h))

	s := NewService(store, testRates(), func() time.Time { return billNow })
	b, err := s.TotalCost(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, 240.0, b.Hospitalization)
	assert.Equal(t, 7.0, b.Medication)
	assert.Equal(t, 75.0, b.Studies)
	assert.Equal(t, 322.0, b.Total)
	assert.Equal(t, 100.0, b.Paid)
	assert.Equal(t, 222.0, b.Balance)
	assert.Len(t, b.Lines, 5)
	assert.Equal(t, 2, b.Lines[0].Quantity)
}

func TestTotalCostWithoutHospitalization(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := &model.Patient{ID: uuid.New(), Name: "Kiwi", Species: "bird", State: model.StateWaiting}
	require.NoError(t, store.Patients().Create(ctx, p))

	b, err := NewService(store, testRates(), nil).TotalCost(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, b.Total)
	assert.Empty(t, b.Lines)
}

func TestTotalCostErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	s := NewService(store, testRates(), func() time.Time { return billNow })

	_, err := s.TotalCost(ctx, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))

	p := &model.Patient{ID: uuid.New(), Name: "Tiny", Species: "cat", State: model.StateHospitalized}
	require.NoError(t, store.Patients().Create(ctx, p))
	require.NoError(t, store.Hospitalizations().Create(ctx, &model.Hospitalization{
		ID: uuid.New(), PatientID: p.ID, AdmittedAt: billNow, Type: model.HospitalizationNeonatos,
	}))

	_, err = s.TotalCost(ctx, p.ID)
	assert.True(t, apperrors.IsValidation(err))
}
