package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type HospitalizationType string

const (
	HospitalizationGeneral     HospitalizationType = "GENERAL"
	HospitalizationUCI         HospitalizationType = "UCI"
	HospitalizationNeonatos    HospitalizationType = "NEONATOS"
	HospitalizationInfecciosos HospitalizationType = "INFECCIOSOS"
)

func (t HospitalizationType) Valid() bool {
	switch t {
	case HospitalizationGeneral, HospitalizationUCI, HospitalizationNeonatos, HospitalizationInfecciosos:
		return true
	}
	return false
}

type AdministrationStatus string

const (
	AdministrationPending      AdministrationStatus = "PENDING"
	AdministrationAdministered AdministrationStatus = "ADMINISTERED"
	AdministrationLate         AdministrationStatus = "LATE"
	AdministrationOmitted      AdministrationStatus = "OMITTED"
)

type TherapyPlanItem struct {
	ID             uuid.UUID  `json:"id"`
	MedicationID   string     `json:"medication_id"`
	MedicationName string     `json:"medication_name"`
	Dose           string     `json:"dose"`
	FrequencyHours int        `json:"frequency_hours"`
	Route          string     `json:"route,omitempty"`
	UnitCost       float64    `json:"unit_cost"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
	DeactivatedAt  *time.Time `json:"deactivated_at,omitempty"`
}

// MedicationAdministration is one scheduled dose. (TherapyItemID, ScheduledAt)
// is unique within a hospitalization.
type MedicationAdministration struct {
	ID             uuid.UUID            `json:"id"`
	TherapyItemID  uuid.UUID            `json:"therapy_item_id"`
	ScheduledAt    time.Time            `json:"scheduled_at"`
	Status         AdministrationStatus `json:"status"`
	AdministeredAt *time.Time           `json:"administered_at,omitempty"`
	AdministeredBy string               `json:"administered_by,omitempty"`
	Notes          string               `json:"notes,omitempty"`
}

// EffectiveStatus is what dashboards show: a pending dose whose time has
// passed reads as LATE. The stored status is never changed.
func (a MedicationAdministration) EffectiveStatus(now time.Time) AdministrationStatus {
	if a.Status == AdministrationPending && a.ScheduledAt.Before(now) {
		return AdministrationLate
	}
	return a.Status
}

type VitalSigns struct {
	RecordedAt      time.Time `json:"recorded_at"`
	RecordedBy      string    `json:"recorded_by"`
	Temperature     float64   `json:"temperature,omitempty"`
	HeartRate       int       `json:"heart_rate,omitempty"`
	RespiratoryRate int       `json:"respiratory_rate,omitempty"`
	Weight          float64   `json:"weight,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

type Hospitalization struct {
	ID                    uuid.UUID                  `json:"id"`
	PatientID             uuid.UUID                  `json:"patient_id"`
	AdmittedAt            time.Time                  `json:"admitted_at"`
	Type                  HospitalizationType        `json:"type"`
	Reason                string                     `json:"reason,omitempty"`
	MonitoringFrequency   string                     `json:"monitoring_frequency"`
	LastMonitoringAt      *time.Time                 `json:"last_monitoring_at,omitempty"`
	TherapyPlan           []TherapyPlanItem          `json:"therapy_plan"`
	Administrations       []MedicationAdministration `json:"administrations"`
	VitalSigns            []VitalSigns               `json:"vital_signs"`
	DischargedAt          *time.Time                 `json:"discharged_at,omitempty"`
	DischargeCondition    string                     `json:"discharge_condition,omitempty"`
	DischargeInstructions string                     `json:"discharge_instructions,omitempty"`
}

func (h *Hospitalization) IsOpen() bool { return h.DischargedAt == nil }

func (h *Hospitalization) TherapyItem(id uuid.UUID) (*TherapyPlanItem, bool) {
	for i := range h.TherapyPlan {
		if h.TherapyPlan[i].ID == id {
			return &h.TherapyPlan[i], true
		}
	}
	return nil, false
}

func (h *Hospitalization) Administration(id uuid.UUID) (*MedicationAdministration, bool) {
	for i := range h.Administrations {
		if h.Administrations[i].ID == id {
			return &h.Administrations[i], true
		}
	}
	return nil, false
}

func (h *Hospitalization) Clone() *Hospitalization {
	if h == nil {
		return nil
	}
	c := *h
	c.TherapyPlan = append([]TherapyPlanItem(nil), h.TherapyPlan...)
	c.Administrations = append([]MedicationAdministration(nil), h.Administrations...)
	c.VitalSigns = append([]VitalSigns(nil), h.VitalSigns...)
	if h.LastMonitoringAt != nil {
		t := *h.LastMonitoringAt
		c.LastMonitoringAt = &t
	}
	if h.DischargedAt != nil {
		t := *h.DischargedAt
		c.DischargedAt = &t
	}
	return &c
}

// MaxMonitoringHours caps a monitoring frequency at one year.
const MaxMonitoringHours = 24 * 365

// ParseMonitoringFrequency reads the leading integer of s as a number of
// hours, so "4h", "4" and "4 hours" all mean four hours.
func ParseMonitoringFrequency(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("monitoring frequency %q has no leading hour count", s)
	}
	hours, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, fmt.Errorf("monitoring frequency %q: %w", s, err)
	}
	if hours <= 0 {
		return 0, fmt.Errorf("monitoring frequency %q must be positive", s)
	}
	if hours > MaxMonitoringHours {
		return 0, fmt.Errorf("monitoring frequency %q exceeds %d hours", s, MaxMonitoringHours)
	}
	return time.Duration(hours) * time.Hour, nil
}

type HospitalizationFilter struct {
	OpenOnly  bool
	PatientID *uuid.UUID
}
