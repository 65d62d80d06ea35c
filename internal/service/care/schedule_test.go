package care

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

func therapyHospitalization(freqHours ...int) *model.Hospitalization {
	h := &model.Hospitalization{ID: uuid.New(), AdmittedAt: wardNow, MonitoringFrequency: "4h"}
	for _, f := range freqHours {
		h.TherapyPlan = append(h.TherapyPlan, model.TherapyPlanItem{
			ID:             uuid.New(),
			MedicationName: "drug",
			FrequencyHours: f,
			Active:         true,
			CreatedAt:      wardNow,
		})
	}
	return h
}

func assertNoDuplicateSlots(t *testing.T, h *model.Hospitalization) {
	t.Helper()
	seen := make(map[string]bool)
	for _, a := range h.Administrations {
		key := a.TherapyItemID.String() + a.ScheduledAt.Format(time.RFC3339)
		assert.False(t, seen[key], "duplicate slot %s", key)
		seen[key] = true
	}
}

func TestPlanScheduleCoversNextDay(t *testing.T) {
	h := therapyHospitalization(8)

	created := planSchedule(h, wardNow)

	require.Len(t, created, 3)
	start := ceilMinute(wardNow)
	for i, a := range created {
		assert.Equal(t, start.Add(time.Duration(i)*8*time.Hour), a.ScheduledAt)
		assert.Equal(t, model.AdministrationPending, a.Status)
		assert.Equal(t, h.TherapyPlan[0].ID, a.TherapyItemID)
	}
	assert.Len(t, h.Administrations, 3)
}

func TestPlanScheduleIsIdempotent(t *testing.T) {
	h := therapyHospitalization(8, 6)

	first := planSchedule(h, wardNow)
	second := planSchedule(h, wardNow)

	assert.NotEmpty(t, first)
	assert.Empty(t, second)
	assertNoDuplicateSlots(t, h)
}

func TestPlanScheduleExtendsFromLastSlot(t *testing.T) {
	h := therapyHospitalization(8)
	planSchedule(h, wardNow)

	later := planSchedule(h, wardNow.Add(8*time.Hour))

	require.Len(t, later, 1)
	assert.Equal(t, ceilMinute(wardNow).Add(24*time.Hour), later[0].ScheduledAt)
	assertNoDuplicateSlots(t, h)
}

func TestPlanScheduleSkipsMissedSlots(t *testing.T) {
	h := therapyHospitalization(6)

	created := planSchedule(h, wardNow.Add(13*time.Hour))

	require.NotEmpty(t, created)
	assert.Equal(t, ceilMinute(wardNow).Add(18*time.Hour), created[0].ScheduledAt)
}

func TestPlanScheduleIgnoresInactiveItems(t *testing.T) {
	h := therapyHospitalization(8)
	h.TherapyPlan[0].Active = false

	assert.Empty(t, planSchedule(h, wardNow))
}

func TestPlanScheduleNeverBooksBeforeActivation(t *testing.T) {
	admitted := time.Date(2024, 5, 10, 10, 0, 30, 0, time.UTC)
	h := therapyHospitalization(12)
	h.TherapyPlan[0].CreatedAt = admitted

	created := planSchedule(h, admitted)

	require.Len(t, created, 2)
	assert.Equal(t, time.Date(2024, 5, 10, 10, 1, 0, 0, time.UTC), created[0].ScheduledAt)
	assert.Equal(t, time.Date(2024, 5, 10, 22, 1, 0, 0, time.UTC), created[1].ScheduledAt)
	for _, a := range created {
		assert.False(t, a.ScheduledAt.Before(admitted))
		assert.Equal(t, model.AdministrationPending, a.EffectiveStatus(admitted))
	}
}

func TestCeilMinute(t *testing.T) {
	exact := time.Date(2024, 5, 10, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, exact, ceilMinute(exact))
	assert.Equal(t, exact.Add(time.Minute), ceilMinute(exact.Add(time.Nanosecond)))
	assert.Equal(t, exact.Add(time.Minute), ceilMinute(exact.Add(59*time.Second)))
}
