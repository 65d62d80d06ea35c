// Package care schedules inpatient work: monitoring urgency, therapy plans
// and medication administration for hospitalized patients.
package care

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/patient"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
	"github.com/longevaiapp/EVEREST-sub000/pkg/locker"
	"github.com/longevaiapp/EVEREST-sub000/pkg/logger"
	"github.com/longevaiapp/EVEREST-sub000/pkg/metrics"
	"github.com/longevaiapp/EVEREST-sub000/pkg/validator"
)

type AdmitInput struct {
	Type                model.HospitalizationType `json:"type" validate:"required,oneof=GENERAL UCI NEONATOS INFECCIOSOS"`
	MonitoringFrequency string                    `json:"monitoring_frequency" validate:"required"`
	Reason              string                    `json:"reason"`
	TherapyPlan         []TherapyItemInput        `json:"therapy_plan" validate:"dive"`
}

type TherapyItemInput struct {
	MedicationID   string  `json:"medication_id" validate:"required"`
	MedicationName string  `json:"medication_name" validate:"required"`
	Dose           string  `json:"dose" validate:"required"`
	FrequencyHours int     `json:"frequency_hours" validate:"gt=0,lte=168"`
	Route          string  `json:"route"`
	UnitCost       float64 `json:"unit_cost" validate:"gte=0"`
}

type VitalSignsInput struct {
	Temperature     float64 `json:"temperature" validate:"gte=0"`
	HeartRate       int     `json:"heart_rate" validate:"gte=0"`
	RespiratoryRate int     `json:"respiratory_rate" validate:"gte=0"`
	Weight          float64 `json:"weight" validate:"gte=0"`
	Notes           string  `json:"notes"`
}

type Service struct {
	store    repository.Store
	patients *patient.Service
	locks    *locker.Keyed
	validate *validator.Validator
	metrics  *metrics.Metrics
	log      *logger.Logger
	now      func() time.Time
}

// NewService wires the care scheduler. locks must be the same keyed locker
// the workflow engine uses, since both write patient history.
func NewService(store repository.Store, locks *locker.Keyed, m *metrics.Metrics, log *logger.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if m == nil {
		m = metrics.New("clinic")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:    store,
		patients: patient.NewService(store, now),
		locks:    locks,
		validate: validator.New(),
		metrics:  m,
		log:      log,
		now:      now,
	}
}

// With returns a copy bound to tx. Its Admit and Close take no locks; the
// caller holds the patient's lock.
func (s *Service) With(tx repository.Store) *Service {
	c := *s
	c.store = tx
	c.patients = s.patients.With(tx)
	return &c
}

// Admit opens a hospitalization for patientID and books the first day of
// its therapy plan. Patient history is left to the caller.
func (s *Service) Admit(ctx context.Context, patientID uuid.UUID, in AdmitInput) (*model.Hospitalization, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if _, err := model.ParseMonitoringFrequency(in.MonitoringFrequency); err != nil {
		return nil, apperrors.Validation("invalid monitoring frequency", err)
	}

	now := s.now()
	h := &model.Hospitalization{
		ID:                  uuid.New(),
		PatientID:           patientID,
		AdmittedAt:          now,
		Type:                in.Type,
		Reason:              in.Reason,
		MonitoringFrequency: strings.TrimSpace(in.MonitoringFrequency),
	}
	for _, item := range in.TherapyPlan {
		h.TherapyPlan = append(h.TherapyPlan, newTherapyItem(item, now))
	}
	created := planSchedule(h, now)

	if err := s.store.Hospitalizations().Create(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to create hospitalization: %w", err)
	}
	s.metrics.ScheduledAdministrations.Add(float64(len(created)))
	return h, nil
}

// Close ends an open hospitalization. Doses still pending are marked
// omitted. Closing a closed hospitalization returns it unchanged.
func (s *Service) Close(ctx context.Context, id uuid.UUID, condition, instructions string) (*model.Hospitalization, error) {
	h, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !h.IsOpen() {
		return h, nil
	}

	now := s.now()
	h.DischargedAt = &now
	h.DischargeCondition = condition
	h.DischargeInstructions = instructions
	for i := range h.Administrations {
		if h.Administrations[i].Status == model.AdministrationPending {
			h.Administrations[i].Status = model.AdministrationOmitted
			h.Administrations[i].Notes = "discharged"
		}
	}

	if err := s.store.Hospitalizations().Update(ctx, h); err != nil {
		return nil, fmt.Errorf("failed to close hospitalization: %w", err)
	}
	return h, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Hospitalization, error) {
	h, err := s.store.Hospitalizations().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get hospitalization: %w", err)
	}
	return h, nil
}

func (s *Service) ListOpen(ctx context.Context) ([]*model.Hospitalization, error) {
	list, err := s.store.Hospitalizations().List(ctx, model.HospitalizationFilter{OpenOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list hospitalizations: %w", err)
	}
	return list, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Hospitalization, error) {
	list, err := s.store.Hospitalizations().List(ctx, model.HospitalizationFilter{PatientID: &patientID})
	if err != nil {
		return nil, fmt.Errorf("failed to list hospitalizations: %w", err)
	}
	return list, nil
}

// GenerateDailySchedule books the pending doses of the next 24 hours and
// returns only the ones it created. Calling it again creates nothing new.
func (s *Service) GenerateDailySchedule(ctx context.Context, id uuid.UUID) ([]model.MedicationAdministration, error) {
	var created []model.MedicationAdministration
	_, err := s.mutate(ctx, id, model.SystemActor, func(h *model.Hospitalization, now time.Time) (*model.HistoryEntry, error) {
		created = planSchedule(h, now)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ScheduledAdministrations.Add(float64(len(created)))
	return created, nil
}

// AdministerMedication marks a pending dose as given.
func (s *Service) AdministerMedication(ctx context.Context, adminID uuid.UUID, actor model.Actor) (*model.MedicationAdministration, error) {
	return s.settleDose(ctx, adminID, model.AdministrationAdministered, "", actor)
}

// OmitMedication records that a pending dose was deliberately skipped.
func (s *Service) OmitMedication(ctx context.Context, adminID uuid.UUID, reason string, actor model.Actor) (*model.MedicationAdministration, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("a reason is required to omit a dose", nil)
	}
	return s.settleDose(ctx, adminID, model.AdministrationOmitted, reason, actor)
}

func (s *Service) settleDose(ctx context.Context, adminID uuid.UUID, status model.AdministrationStatus, notes string, actor model.Actor) (*model.MedicationAdministration, error) {
	hospID, err := s.findAdministration(ctx, adminID)
	if err != nil {
		return nil, err
	}

	var out model.MedicationAdministration
	_, err = s.mutate(ctx, hospID, actor, func(h *model.Hospitalization, now time.Time) (*model.HistoryEntry, error) {
		a, ok := h.Administration(adminID)
		if !ok {
			return nil, apperrors.NotFound("administration", adminID)
		}
		if a.Status != model.AdministrationPending {
			return nil, apperrors.Validation(fmt.Sprintf("dose %s is already %s", adminID, a.Status), nil)
		}

		a.Status = status
		a.Notes = notes
		action := model.EventMedicationOmitted
		if status == model.AdministrationAdministered {
			a.AdministeredAt = &now
			a.AdministeredBy = actor.ID
			action = model.EventMedicationAdministered
		}
		out = *a

		var name string
		if item, ok := h.TherapyItem(a.TherapyItemID); ok {
			name = item.MedicationName
		}
		return &model.HistoryEntry{
			Action: action,
			Details: model.AdministrationPayload(model.AdministrationDetails{
				HospitalizationID: h.ID,
				AdministrationID:  a.ID,
				MedicationName:    name,
				Status:            status,
				Notes:             notes,
			}),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordVitalSigns appends a vitals reading and resets the monitoring clock.
func (s *Service) RecordVitalSigns(ctx context.Context, id uuid.UUID, in VitalSignsInput, actor model.Actor) (*model.Hospitalization, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, actor, func(h *model.Hospitalization, now time.Time) (*model.HistoryEntry, error) {
		v := model.VitalSigns{
			RecordedAt:      now,
			RecordedBy:      actor.ID,
			Temperature:     in.Temperature,
			HeartRate:       in.HeartRate,
			RespiratoryRate: in.RespiratoryRate,
			Weight:          in.Weight,
			Notes:           in.Notes,
		}
		h.VitalSigns = append(h.VitalSigns, v)
		h.LastMonitoringAt = &now
		return &model.HistoryEntry{Action: model.EventVitalSignsRecorded, Details: model.VitalSignsPayload(v)}, nil
	})
}

// AddTherapyItem extends the plan and books its doses right away.
func (s *Service) AddTherapyItem(ctx context.Context, id uuid.UUID, in TherapyItemInput, actor model.Actor) (*model.TherapyPlanItem, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	var item model.TherapyPlanItem
	var booked int
	_, err := s.mutate(ctx, id, actor, func(h *model.Hospitalization, now time.Time) (*model.HistoryEntry, error) {
		item = newTherapyItem(in, now)
		h.TherapyPlan = append(h.TherapyPlan, item)
		booked = len(planSchedule(h, now))
		return &model.HistoryEntry{
			Action:  model.EventTherapyUpdated,
			Details: model.TherapyPayload(model.TherapyDetails{HospitalizationID: h.ID, Item: item, Active: true}),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ScheduledAdministrations.Add(float64(booked))
	return &item, nil
}

// DeactivateTherapyItem stops an item. Its future pending doses are omitted;
// doses already due stay pending so they can still be settled.
func (s *Service) DeactivateTherapyItem(ctx context.Context, id, itemID uuid.UUID, actor model.Actor) error {
	_, err := s.mutate(ctx, id, actor, func(h *model.Hospitalization, now time.Time) (*model.HistoryEntry, error) {
		item, ok := h.TherapyItem(itemID)
		if !ok {
			return nil, apperrors.NotFound("therapy item", itemID)
		}
		if !item.Active {
			return nil, apperrors.Validation(fmt.Sprintf("therapy item %s is already inactive", itemID), nil)
		}
		item.Active = false
		item.DeactivatedAt = &now
		for i := range h.Administrations {
			a := &h.Administrations[i]
			if a.TherapyItemID == itemID && a.Status == model.AdministrationPending && a.ScheduledAt.After(now) {
				a.Status = model.AdministrationOmitted
				a.Notes = "therapy discontinued"
			}
		}
		return &model.HistoryEntry{
			Action:  model.EventTherapyUpdated,
			Details: model.TherapyPayload(model.TherapyDetails{HospitalizationID: h.ID, Item: *item, Active: false}),
		}, nil
	})
	return err
}

// mutate applies fn to an open hospitalization under its patient's lock.
// The record and the history entry fn returns, if any, are written in one
// transaction.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, actor model.Actor, fn func(h *model.Hospitalization, now time.Time) (*model.HistoryEntry, error)) (*model.Hospitalization, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(current.PatientID.String())
	defer unlock()

	var out *model.Hospitalization
	err = s.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		h, err := tx.Hospitalizations().Get(ctx, id)
		if err != nil {
			return err
		}
		if !h.IsOpen() {
			return apperrors.Validation(fmt.Sprintf("hospitalization %s is closed", id), nil)
		}

		now := s.now()
		entry, err := fn(h, now)
		if err != nil {
			return err
		}
		if err := tx.Hospitalizations().Update(ctx, h); err != nil {
			return fmt.Errorf("failed to update hospitalization: %w", err)
		}
		if entry != nil {
			entry.Timestamp = now
			entry.Actor = actor
			if err := s.patients.With(tx).RecordHistory(ctx, h.PatientID, *entry); err != nil {
				return err
			}
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) findAdministration(ctx context.Context, adminID uuid.UUID) (uuid.UUID, error) {
	open, err := s.ListOpen(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	for _, h := range open {
		if _, ok := h.Administration(adminID); ok {
			return h.ID, nil
		}
	}
	return uuid.Nil, apperrors.NotFound("administration", adminID)
}

func newTherapyItem(in TherapyItemInput, now time.Time) model.TherapyPlanItem {
	return model.TherapyPlanItem{
		ID:             uuid.New(),
		MedicationID:   in.MedicationID,
		MedicationName: in.MedicationName,
		Dose:           in.Dose,
		FrequencyHours: in.FrequencyHours,
		Route:          in.Route,
		UnitCost:       in.UnitCost,
		Active:         true,
		CreatedAt:      now,
	}
}
