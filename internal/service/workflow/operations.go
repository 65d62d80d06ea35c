package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/patient"
	"github.com/longevaiapp/EVEREST-sub000/internal/service/pharmacy"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

// CheckIn registers an arrival and queues it for triage.
func (e *Engine) CheckIn(ctx context.Context, in patient.CheckInInput, actor model.Actor) (*model.Patient, error) {
	start := time.Now()
	if err := e.check(in); err != nil {
		e.observe("check_in", start, err)
		return nil, err
	}

	var out *model.Patient
	err := e.store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		st := e.newStep(ctx, tx, actor)
		p, err := st.patients.Create(ctx, in, actor)
		if err != nil {
			return err
		}
		st.patient = p

		details := p.History[0].Details
		if _, err := st.task(model.RoleTriage, "Triage "+p.Name,
			fmt.Sprintf("%s (%s): %s", p.Name, p.Species, p.Reason), details); err != nil {
			return err
		}
		if err := st.notify(model.RoleReception, model.EventCheckedIn, "Patient checked in",
			fmt.Sprintf("%s arrived with %s priority", p.Name, p.Priority), details); err != nil {
			return err
		}
		if err := st.emit(model.EventCheckedIn, details); err != nil {
			return err
		}
		out = p
		return nil
	})
	e.observe("check_in", start, err)
	if err != nil {
		return nil, err
	}
	e.log.Info("workflow operation completed", "operation", "check_in", "patient_id", out.ID.String(), "actor", actor.ID)
	return out, nil
}

// Triage sets the clinical priority and sends the patient to the waiting room.
func (e *Engine) Triage(ctx context.Context, id uuid.UUID, in TriageInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "triage", id, actor, func(st *step) error {
		if err := st.transition(model.StateWaiting); err != nil {
			return err
		}
		priority := in.Priority
		if err := st.patch(model.PatientPatch{Priority: &priority}); err != nil {
			return err
		}
		if _, err := st.tasks.CompleteForPatient(st.ctx, model.RoleTriage, id, ""); err != nil {
			return err
		}

		details := model.TriagePayload(model.TriageDetails{Priority: in.Priority, Weight: in.Weight, Notes: in.Notes})
		if err := st.notify(model.RoleDoctor, model.EventTriaged, "Patient waiting",
			fmt.Sprintf("%s triaged as %s", st.patient.Name, in.Priority), details); err != nil {
			return err
		}
		return st.record(model.EventTriaged, details)
	})
}

func (e *Engine) AssignToDoctor(ctx context.Context, id uuid.UUID, in AssignInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "assign_to_doctor", id, actor, func(st *step) error {
		if err := st.transition(model.StateInConsultation); err != nil {
			return err
		}
		doctor := in.DoctorID
		if err := st.patch(model.PatientPatch{AssignedDoctor: &doctor}); err != nil {
			return err
		}

		details := model.AssignmentPayload(model.AssignmentDetails{DoctorID: in.DoctorID, DoctorName: in.DoctorName})
		if _, err := st.task(model.RoleDoctor, "Consult "+st.patient.Name, st.patient.Reason, details); err != nil {
			return err
		}
		if err := st.notify(model.RoleDoctor, model.EventAssignedToDoctor, "Patient assigned",
			fmt.Sprintf("%s is waiting in consultation", st.patient.Name), details); err != nil {
			return err
		}
		return st.record(model.EventAssignedToDoctor, details)
	})
}

// RequestStudies queues one laboratory task per study and a single
// laboratory notification with the count.
func (e *Engine) RequestStudies(ctx context.Context, id uuid.UUID, in StudiesInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "request_studies", id, actor, func(st *step) error {
		if err := st.transition(model.StateInStudies); err != nil {
			return err
		}
		if err := st.leaveConsultation(); err != nil {
			return err
		}

		names := make([]string, 0, len(in.Studies))
		studies := make([]model.Study, 0, len(in.Studies))
		for _, name := range in.Studies {
			name = strings.TrimSpace(name)
			taskID, err := st.task(model.RoleLaboratory, name+" for "+st.patient.Name, "", model.StudiesPayload(name))
			if err != nil {
				return err
			}
			names = append(names, name)
			studies = append(studies, model.Study{TaskID: taskID, Name: name, RequestedAt: st.now})
		}
		if err := st.patch(model.PatientPatch{AddStudies: studies}); err != nil {
			return err
		}

		details := model.StudiesPayload(names...)
		if err := st.notify(model.RoleLaboratory, model.EventStudiesRequested, "Studies requested",
			fmt.Sprintf("%d studies requested for %s", len(names), st.patient.Name), details); err != nil {
			return err
		}
		return st.record(model.EventStudiesRequested, details)
	})
}

// PostStudyResults attaches results and closes their laboratory tasks. The
// patient returns to WAITING once no study is pending.
func (e *Engine) PostStudyResults(ctx context.Context, id uuid.UUID, in ResultsInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "post_study_results", id, actor, func(st *step) error {
		if st.patient.State != model.StateInStudies {
			return apperrors.IllegalTransition(string(st.patient.State), string(model.StateWaiting))
		}
		for _, r := range in.Results {
			study, ok := findStudy(st.patient, r.TaskID)
			if !ok {
				return apperrors.NotFound("study", r.TaskID)
			}
			if !study.Pending() {
				return apperrors.Validation(fmt.Sprintf("study %s already has results", study.Name), nil)
			}
		}

		if err := st.patch(model.PatientPatch{StudyResults: in.Results}); err != nil {
			return err
		}
		for _, r := range in.Results {
			if err := st.tasks.Complete(st.ctx, model.RoleLaboratory, r.TaskID); err != nil {
				return err
			}
		}

		pending := st.patient.PendingStudies()
		if pending == 0 {
			if err := st.transition(model.StateWaiting); err != nil {
				return err
			}
		}

		details := model.StudyResultsPayload(model.StudyResultsDetails{Results: in.Results, Pending: pending})
		msg := fmt.Sprintf("All results for %s are ready", st.patient.Name)
		if pending > 0 {
			msg = fmt.Sprintf("%d results posted for %s, %d pending", len(in.Results), st.patient.Name, pending)
		}
		if err := st.notify(model.RoleDoctor, model.EventStudyResultsPosted, "Study results", msg, details); err != nil {
			return err
		}
		return st.record(model.EventStudyResultsPosted, details)
	})
}

func (e *Engine) PrescribeMedication(ctx context.Context, id uuid.UUID, in PrescriptionInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "prescribe_medication", id, actor, func(st *step) error {
		if err := st.transition(model.StateInPharmacy); err != nil {
			return err
		}
		if err := st.leaveConsultation(); err != nil {
			return err
		}

		details := model.PrescriptionPayload(model.PrescriptionDetails{PrescriptionID: uuid.New(), Items: in.Items})
		if _, err := st.task(model.RolePharmacy, "Prepare prescription for "+st.patient.Name, in.Notes, details); err != nil {
			return err
		}
		if err := st.notify(model.RolePharmacy, model.EventMedicationPrescribed, "New prescription",
			fmt.Sprintf("%d items prescribed for %s", len(in.Items), st.patient.Name), details); err != nil {
			return err
		}
		return st.record(model.EventMedicationPrescribed, details)
	})
}

// DeliverMedication dispenses the open prescriptions from pharmacy stock.
// Stock is returned if the rest of the operation fails.
func (e *Engine) DeliverMedication(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Patient, error) {
	return e.run(ctx, "deliver_medication", id, actor, func(st *step) error {
		if err := st.transition(model.StateReadyForDischarge); err != nil {
			return err
		}
		done, err := st.tasks.CompleteForPatient(st.ctx, model.RolePharmacy, id, model.KindPrescription)
		if err != nil {
			return err
		}
		if len(done) == 0 {
			return apperrors.Validation(fmt.Sprintf("patient %s has no prescription awaiting delivery", id), nil)
		}

		var items []model.PrescriptionItem
		for _, t := range done {
			items = append(items, t.Details.Prescription.Items...)
		}
		lines := make([]pharmacy.DispenseLine, 0, len(items))
		for _, it := range items {
			lines = append(lines, pharmacy.DispenseLine{MedicationID: it.MedicationID, Quantity: it.Quantity})
		}
		if e.pharmacy != nil {
			if err := e.pharmacy.Dispense(st.ctx, lines); err != nil {
				return fmt.Errorf("failed to dispense medication: %w", err)
			}
			st.onRollback(func(ctx context.Context) error {
				for _, l := range lines {
					if _, err := e.pharmacy.AdjustStock(ctx, l.MedicationID, l.Quantity); err != nil {
						return err
					}
				}
				return nil
			})
		}

		details := model.PrescriptionPayload(model.PrescriptionDetails{
			PrescriptionID: done[0].Details.Prescription.PrescriptionID,
			Items:          items,
		})
		if err := st.notify(model.RoleReception, model.EventMedicationDelivered, "Medication delivered",
			fmt.Sprintf("%s is ready for discharge", st.patient.Name), details); err != nil {
			return err
		}
		return st.record(model.EventMedicationDelivered, details)
	})
}

func (e *Engine) ScheduleSurgery(ctx context.Context, id uuid.UUID, in SurgeryInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "schedule_surgery", id, actor, func(st *step) error {
		if err := st.transition(model.StateSurgeryScheduled); err != nil {
			return err
		}
		if err := st.leaveConsultation(); err != nil {
			return err
		}

		details := model.SurgeryPayload(model.SurgeryDetails{Procedure: in.Procedure, ScheduledFor: in.ScheduledFor})
		when := in.ScheduledFor.Format("2006-01-02 15:04")
		if _, err := st.task(model.RoleDoctor, fmt.Sprintf("Surgery: %s on %s", in.Procedure, st.patient.Name),
			"Scheduled for "+when, details); err != nil {
			return err
		}
		if err := st.notify(model.RoleReception, model.EventSurgeryScheduled, "Surgery scheduled",
			fmt.Sprintf("%s: %s at %s", st.patient.Name, in.Procedure, when), details); err != nil {
			return err
		}
		return st.record(model.EventSurgeryScheduled, details)
	})
}

func (e *Engine) StartSurgery(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Patient, error) {
	return e.run(ctx, "start_surgery", id, actor, func(st *step) error {
		if err := st.transition(model.StateInSurgery); err != nil {
			return err
		}
		done, err := st.tasks.CompleteForPatient(st.ctx, model.RoleDoctor, id, model.KindSurgery)
		if err != nil {
			return err
		}

		var sd model.SurgeryDetails
		if len(done) > 0 {
			sd = *done[0].Details.Surgery
		}
		details := model.SurgeryPayload(sd)
		if err := st.notify(model.RoleReception, model.EventSurgeryStarted, "Surgery started",
			fmt.Sprintf("%s is in surgery", st.patient.Name), details); err != nil {
			return err
		}
		return st.record(model.EventSurgeryStarted, details)
	})
}

// CompleteSurgery files the report and either admits the patient or sends
// them to reception for discharge.
func (e *Engine) CompleteSurgery(ctx context.Context, id uuid.UUID, in CompleteSurgeryInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	if in.Outcome == model.StateHospitalized && in.Admission == nil {
		return nil, apperrors.Validation("admission details are required when the outcome is HOSPITALIZED", nil)
	}
	return e.run(ctx, "complete_surgery", id, actor, func(st *step) error {
		report := in.Report
		if err := st.patch(model.PatientPatch{SurgeryReport: &report}); err != nil {
			return err
		}
		if err := st.transition(in.Outcome); err != nil {
			return err
		}

		details := model.SurgeryPayload(model.SurgeryDetails{Report: in.Report, Outcome: in.Outcome})
		if in.Outcome == model.StateHospitalized {
			if _, err := st.admit(*in.Admission); err != nil {
				return err
			}
		} else if err := st.notify(model.RoleReception, model.EventSurgeryCompleted, "Surgery completed",
			fmt.Sprintf("%s is ready for discharge", st.patient.Name), details); err != nil {
			return err
		}
		return st.record(model.EventSurgeryCompleted, details)
	})
}

func (e *Engine) Hospitalize(ctx context.Context, id uuid.UUID, in AdmitInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "hospitalize", id, actor, func(st *step) error {
		if err := st.transition(model.StateHospitalized); err != nil {
			return err
		}
		if err := st.leaveConsultation(); err != nil {
			return err
		}
		h, err := st.admit(in)
		if err != nil {
			return err
		}
		return st.record(model.EventHospitalized, model.HospitalizationPayload(model.HospitalizationDetails{
			HospitalizationID:   h.ID,
			Type:                h.Type,
			MonitoringFrequency: h.MonitoringFrequency,
			Reason:              h.Reason,
		}))
	})
}

// FinishConsultation ends a visit that needs no further service.
func (e *Engine) FinishConsultation(ctx context.Context, id uuid.UUID, in FinishConsultationInput, actor model.Actor) (*model.Patient, error) {
	return e.run(ctx, "finish_consultation", id, actor, func(st *step) error {
		if err := st.transition(model.StateReadyForDischarge); err != nil {
			return err
		}
		var pp model.PatientPatch
		if in.Diagnosis != "" {
			pp.Diagnosis = &in.Diagnosis
		}
		if in.Notes != "" {
			pp.ConsultationNotes = &in.Notes
		}
		if err := st.patch(pp); err != nil {
			return err
		}
		if err := st.leaveConsultation(); err != nil {
			return err
		}

		details := model.PatchPayload("diagnosis", "consultation_notes")
		if err := st.notify(model.RoleReception, model.EventConsultationFinished, "Consultation finished",
			fmt.Sprintf("%s is ready for discharge", st.patient.Name), details); err != nil {
			return err
		}
		return st.record(model.EventConsultationFinished, details)
	})
}

// OrderDischarge closes the hospitalization with the discharge condition.
func (e *Engine) OrderDischarge(ctx context.Context, id uuid.UUID, in DischargeOrderInput, actor model.Actor) (*model.Patient, error) {
	if strings.TrimSpace(in.Condition) == "" {
		return nil, apperrors.Validation("discharge condition is required", nil)
	}
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "order_discharge", id, actor, func(st *step) error {
		if err := st.transition(model.StateReadyForDischarge); err != nil {
			return err
		}
		hid, err := st.closeHospitalization(in.Condition, in.Instructions)
		if err != nil {
			return err
		}
		if _, err := st.tasks.CompleteForPatient(st.ctx, model.RoleHospitalization, id, ""); err != nil {
			return err
		}

		details := model.DischargePayload(model.DischargeDetails{
			Condition:         in.Condition,
			Instructions:      in.Instructions,
			HospitalizationID: hid,
		})
		if err := st.notify(model.RoleReception, model.EventDischargeOrdered, "Discharge ordered",
			fmt.Sprintf("%s leaves hospitalization in %s condition", st.patient.Name, in.Condition), details); err != nil {
			return err
		}
		return st.record(model.EventDischargeOrdered, details)
	})
}

// DischargePatient ends the visit. Open hospitalizations are closed, every
// outstanding task of the patient is completed and the owner is e-mailed
// through the outbox.
func (e *Engine) DischargePatient(ctx context.Context, id uuid.UUID, in DischargeInput, actor model.Actor) (*model.Patient, error) {
	return e.run(ctx, "discharge_patient", id, actor, func(st *step) error {
		if st.patient.State != model.StateReadyForDischarge {
			return apperrors.IllegalTransition(string(st.patient.State), string(model.StateDischarged))
		}
		if in.Summary != "" {
			summary := in.Summary
			if err := st.patch(model.PatientPatch{DischargeSummary: &summary}); err != nil {
				return err
			}
		}
		hid, err := st.closeHospitalization("", in.Instructions)
		if err != nil {
			return err
		}
		if _, err := st.tasks.CompleteForPatient(st.ctx, "", id, ""); err != nil {
			return err
		}
		if err := st.transition(model.StateDischarged); err != nil {
			return err
		}

		details := model.DischargePayload(model.DischargeDetails{Instructions: in.Instructions, HospitalizationID: hid})
		if err := st.notify(model.RoleAdmin, model.EventDischarged, "Patient discharged",
			fmt.Sprintf("%s has been discharged", st.patient.Name), details); err != nil {
			return err
		}
		return st.record(model.EventDischarged, details)
	})
}

func (e *Engine) ScheduleFollowUp(ctx context.Context, id uuid.UUID, in FollowUpInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "schedule_follow_up", id, actor, func(st *step) error {
		if err := st.requireActive(); err != nil {
			return err
		}
		if !in.Date.After(st.now) {
			return apperrors.Validation("follow-up date must be in the future", nil)
		}
		if err := st.patch(model.PatientPatch{FollowUp: &model.FollowUp{Date: in.Date, Reason: in.Reason}}); err != nil {
			return err
		}

		details := model.FollowUpPayload(model.FollowUpDetails{Date: in.Date, Reason: in.Reason})
		day := in.Date.Format("2006-01-02")
		if _, err := st.task(model.RoleReception, "Book follow-up for "+st.patient.Name,
			fmt.Sprintf("%s: %s", day, in.Reason), details); err != nil {
			return err
		}
		if err := st.notify(model.RoleReception, model.EventFollowUpScheduled, "Follow-up scheduled",
			fmt.Sprintf("%s returns on %s", st.patient.Name, day), details); err != nil {
			return err
		}
		return st.record(model.EventFollowUpScheduled, details)
	})
}

func (e *Engine) RegisterPayment(ctx context.Context, id uuid.UUID, in PaymentInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "register_payment", id, actor, func(st *step) error {
		if err := st.requireActive(); err != nil {
			return err
		}
		payment := model.Payment{Amount: in.Amount, Method: in.Method, Reference: in.Reference, PaidAt: st.now, Actor: st.actor}
		if err := st.patch(model.PatientPatch{AddPayment: &payment}); err != nil {
			return err
		}

		details := model.PaymentPayload(model.PaymentDetails{Amount: in.Amount, Method: in.Method, Reference: in.Reference})
		if err := st.notify(model.RoleAdmin, model.EventPaymentRegistered, "Payment registered",
			fmt.Sprintf("%.2f by %s for %s", in.Amount, in.Method, st.patient.Name), details); err != nil {
			return err
		}
		return st.record(model.EventPaymentRegistered, details)
	})
}

func (e *Engine) RequestGrooming(ctx context.Context, id uuid.UUID, in GroomingInput, actor model.Actor) (*model.Patient, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}
	return e.run(ctx, "request_grooming", id, actor, func(st *step) error {
		if err := st.requireActive(); err != nil {
			return err
		}
		details := model.GroomingPayload(model.GroomingDetails{Services: in.Services, Notes: in.Notes})
		services := strings.Join(in.Services, ", ")
		if _, err := st.task(model.RoleStylist, "Grooming for "+st.patient.Name, services, details); err != nil {
			return err
		}
		if err := st.notify(model.RoleStylist, model.EventGroomingRequested, "Grooming requested",
			fmt.Sprintf("%s: %s", st.patient.Name, services), details); err != nil {
			return err
		}
		return st.record(model.EventGroomingRequested, details)
	})
}

// UpdatePatient merges non-state fields under the patient's lock.
func (e *Engine) UpdatePatient(ctx context.Context, id uuid.UUID, pp model.PatientPatch, actor model.Actor) (*model.Patient, error) {
	return e.run(ctx, "update_patient", id, actor, func(st *step) error {
		before := len(st.patient.History)
		if err := st.patch(pp); err != nil {
			return err
		}
		if len(st.patient.History) == before {
			return nil
		}
		return st.emit(model.EventPatientUpdated, st.patient.History[len(st.patient.History)-1].Details)
	})
}

// closeHospitalization closes the patient's open stay, if any, and returns
// its id.
func (st *step) closeHospitalization(condition, instructions string) (*uuid.UUID, error) {
	open, err := st.tx.Hospitalizations().List(st.ctx, model.HospitalizationFilter{OpenOnly: true, PatientID: &st.patient.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list hospitalizations: %w", err)
	}
	var last *uuid.UUID
	for _, h := range open {
		if _, err := st.care.Close(st.ctx, h.ID, condition, instructions); err != nil {
			return nil, err
		}
		hid := h.ID
		last = &hid
	}
	return last, nil
}

func findStudy(p *model.Patient, taskID uuid.UUID) (model.Study, bool) {
	for _, s := range p.Studies {
		if s.TaskID == taskID {
			return s, true
		}
	}
	return model.Study{}, false
}
