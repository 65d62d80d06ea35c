package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonitoringFrequency(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"4h", 4 * time.Hour, false},
		{" 12 hours", 12 * time.Hour, false},
		{"6", 6 * time.Hour, false},
		{"0h", 0, true},
		{"h4", 0, true},
		{"", 0, true},
		{"8760h", 8760 * time.Hour, false},
		{"8761h", 0, true},
		{"3000000h", 0, true},
		{"99999999999999999999h", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMonitoringFrequency(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	past := MedicationAdministration{ScheduledAt: now.Add(-time.Minute), Status: AdministrationPending}
	future := MedicationAdministration{ScheduledAt: now.Add(time.Hour), Status: AdministrationPending}
	done := MedicationAdministration{ScheduledAt: now.Add(-time.Hour), Status: AdministrationAdministered}

	assert.Equal(t, AdministrationLate, past.EffectiveStatus(now))
	assert.Equal(t, AdministrationPending, past.Status)
	assert.Equal(t, AdministrationPending, future.EffectiveStatus(now))
	assert.Equal(t, AdministrationAdministered, done.EffectiveStatus(now))
}

func TestHospitalizationCloneDoesNotAlias(t *testing.T) {
	h := &Hospitalization{TherapyPlan: []TherapyPlanItem{{MedicationName: "amoxicillin"}}}
	c := h.Clone()
	c.TherapyPlan[0].MedicationName = "changed"
	assert.Equal(t, "amoxicillin", h.TherapyPlan[0].MedicationName)
}

func TestPatientPatchApply(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &Patient{Name: "Rex", State: StateInStudies}
	name := " Max "
	changed := PatientPatch{Name: &name}.Apply(p, now)
	assert.Equal(t, []string{"name"}, changed)
	assert.Equal(t, "Max", p.Name)
	assert.Equal(t, StateInStudies, p.State)
}
