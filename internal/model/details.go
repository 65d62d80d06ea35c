package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a clinical action. It labels history entries, notification
// types and outbox events.
type EventType string

const (
	EventCheckedIn              EventType = "checked_in"
	EventStateChanged           EventType = "state_changed"
	EventTriaged                EventType = "triaged"
	EventAssignedToDoctor       EventType = "assigned_to_doctor"
	EventStudiesRequested       EventType = "studies_requested"
	EventStudyResultsPosted     EventType = "study_results_posted"
	EventMedicationPrescribed   EventType = "medication_prescribed"
	EventMedicationDelivered    EventType = "medication_delivered"
	EventSurgeryScheduled       EventType = "surgery_scheduled"
	EventSurgeryStarted         EventType = "surgery_started"
	EventSurgeryCompleted       EventType = "surgery_completed"
	EventHospitalized           EventType = "hospitalized"
	EventConsultationFinished   EventType = "consultation_finished"
	EventDischargeOrdered       EventType = "discharge_ordered"
	EventDischarged             EventType = "discharged"
	EventFollowUpScheduled      EventType = "follow_up_scheduled"
	EventPaymentRegistered      EventType = "payment_registered"
	EventGroomingRequested      EventType = "grooming_requested"
	EventPatientUpdated         EventType = "patient_updated"
	EventVitalSignsRecorded     EventType = "vital_signs_recorded"
	EventMedicationAdministered EventType = "medication_administered"
	EventMedicationOmitted      EventType = "medication_omitted"
	EventTherapyUpdated         EventType = "therapy_updated"
)

// DetailsKind discriminates the populated field of Details.
type DetailsKind string

const (
	KindCheckIn         DetailsKind = "check_in"
	KindTransition      DetailsKind = "transition"
	KindTriage          DetailsKind = "triage"
	KindAssignment      DetailsKind = "assignment"
	KindStudies         DetailsKind = "studies"
	KindStudyResults    DetailsKind = "study_results"
	KindPrescription    DetailsKind = "prescription"
	KindSurgery         DetailsKind = "surgery"
	KindHospitalization DetailsKind = "hospitalization"
	KindDischarge       DetailsKind = "discharge"
	KindFollowUp        DetailsKind = "follow_up"
	KindPayment         DetailsKind = "payment"
	KindGrooming        DetailsKind = "grooming"
	KindPatch           DetailsKind = "patch"
	KindVitalSigns      DetailsKind = "vital_signs"
	KindAdministration  DetailsKind = "administration"
	KindTherapy         DetailsKind = "therapy"
)

// Details is the payload carried by history entries, tasks and
// notifications. Exactly one field matching Kind is set; use the
// constructors below rather than filling it by hand.
type Details struct {
	Kind            DetailsKind             `json:"kind"`
	CheckIn         *CheckInDetails         `json:"check_in,omitempty"`
	Transition      *TransitionDetails      `json:"transition,omitempty"`
	Triage          *TriageDetails          `json:"triage,omitempty"`
	Assignment      *AssignmentDetails      `json:"assignment,omitempty"`
	Studies         *StudiesDetails         `json:"studies,omitempty"`
	StudyResults    *StudyResultsDetails    `json:"study_results,omitempty"`
	Prescription    *PrescriptionDetails    `json:"prescription,omitempty"`
	Surgery         *SurgeryDetails         `json:"surgery,omitempty"`
	Hospitalization *HospitalizationDetails `json:"hospitalization,omitempty"`
	Discharge       *DischargeDetails       `json:"discharge,omitempty"`
	FollowUp        *FollowUpDetails        `json:"follow_up,omitempty"`
	Payment         *PaymentDetails         `json:"payment,omitempty"`
	Grooming        *GroomingDetails        `json:"grooming,omitempty"`
	Patch           *PatchDetails           `json:"patch,omitempty"`
	VitalSigns      *VitalSigns             `json:"vital_signs,omitempty"`
	Administration  *AdministrationDetails  `json:"administration,omitempty"`
	Therapy         *TherapyDetails         `json:"therapy,omitempty"`
}

type CheckInDetails struct {
	Reason   string   `json:"reason"`
	Priority Priority `json:"priority"`
}

type TransitionDetails struct {
	From State `json:"from"`
	To   State `json:"to"`
}

type TriageDetails struct {
	Priority Priority `json:"priority"`
	Weight   float64  `json:"weight,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

type AssignmentDetails struct {
	DoctorID   string `json:"doctor_id"`
	DoctorName string `json:"doctor_name,omitempty"`
}

type StudiesDetails struct {
	Studies []string `json:"studies"`
}

type StudyResultsDetails struct {
	Results []StudyResult `json:"results"`
	Pending int           `json:"pending"`
}

type PrescriptionItem struct {
	MedicationID string  `json:"medication_id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Quantity     int     `json:"quantity" validate:"gt=0"`
	Dose         string  `json:"dose,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
	UnitCost     float64 `json:"unit_cost,omitempty" validate:"gte=0"`
}

type PrescriptionDetails struct {
	PrescriptionID uuid.UUID          `json:"prescription_id"`
	Items          []PrescriptionItem `json:"items"`
}

type SurgeryDetails struct {
	Procedure    string    `json:"procedure"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Report       string    `json:"report,omitempty"`
	Outcome      State     `json:"outcome,omitempty"`
}

type HospitalizationDetails struct {
	HospitalizationID   uuid.UUID           `json:"hospitalization_id"`
	Type                HospitalizationType `json:"type"`
	MonitoringFrequency string              `json:"monitoring_frequency"`
	Reason              string              `json:"reason,omitempty"`
}

type DischargeDetails struct {
	Condition         string     `json:"condition,omitempty"`
	Instructions      string     `json:"instructions,omitempty"`
	HospitalizationID *uuid.UUID `json:"hospitalization_id,omitempty"`
}

type FollowUpDetails struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason,omitempty"`
}

type PaymentDetails struct {
	Amount    float64 `json:"amount"`
	Method    string  `json:"method"`
	Reference string  `json:"reference,omitempty"`
}

type GroomingDetails struct {
	Services []string `json:"services"`
	Notes    string   `json:"notes,omitempty"`
}

type PatchDetails struct {
	Fields []string `json:"fields"`
}

type AdministrationDetails struct {
	HospitalizationID uuid.UUID            `json:"hospitalization_id"`
	AdministrationID  uuid.UUID            `json:"administration_id"`
	MedicationName    string               `json:"medication_name"`
	Status            AdministrationStatus `json:"status"`
	Notes             string               `json:"notes,omitempty"`
}

type TherapyDetails struct {
	HospitalizationID uuid.UUID       `json:"hospitalization_id"`
	Item              TherapyPlanItem `json:"item"`
	Active            bool            `json:"active"`
}

func CheckInPayload(d CheckInDetails) Details { return Details{Kind: KindCheckIn, CheckIn: &d} }

func TransitionPayload(from, to State) Details {
	return Details{Kind: KindTransition, Transition: &TransitionDetails{From: from, To: to}}
}

func TriagePayload(d TriageDetails) Details { return Details{Kind: KindTriage, Triage: &d} }

func AssignmentPayload(d AssignmentDetails) Details {
	return Details{Kind: KindAssignment, Assignment: &d}
}

func StudiesPayload(studies ...string) Details {
	return Details{Kind: KindStudies, Studies: &StudiesDetails{Studies: studies}}
}

func StudyResultsPayload(d StudyResultsDetails) Details {
	return Details{Kind: KindStudyResults, StudyResults: &d}
}

func PrescriptionPayload(d PrescriptionDetails) Details {
	return Details{Kind: KindPrescription, Prescription: &d}
}

func SurgeryPayload(d SurgeryDetails) Details { return Details{Kind: KindSurgery, Surgery: &d} }

func HospitalizationPayload(d HospitalizationDetails) Details {
	return Details{Kind: KindHospitalization, Hospitalization: &d}
}

func DischargePayload(d DischargeDetails) Details { return Details{Kind: KindDischarge, Discharge: &d} }

func FollowUpPayload(d FollowUpDetails) Details { return Details{Kind: KindFollowUp, FollowUp: &d} }

func PaymentPayload(d PaymentDetails) Details { return Details{Kind: KindPayment, Payment: &d} }

func GroomingPayload(d GroomingDetails) Details { return Details{Kind: KindGrooming, Grooming: &d} }

func PatchPayload(fields ...string) Details {
	return Details{Kind: KindPatch, Patch: &PatchDetails{Fields: fields}}
}

func VitalSignsPayload(v VitalSigns) Details {
	return Details{Kind: KindVitalSigns, VitalSigns: &v}
}

func AdministrationPayload(d AdministrationDetails) Details {
	return Details{Kind: KindAdministration, Administration: &d}
}

func TherapyPayload(d TherapyDetails) Details { return Details{Kind: KindTherapy, Therapy: &d} }

// Valid reports whether exactly the field named by Kind is populated.
func (d Details) Valid() bool {
	set := map[DetailsKind]bool{
		KindCheckIn:         d.CheckIn != nil,
		KindTransition:      d.Transition != nil,
		KindTriage:          d.Triage != nil,
		KindAssignment:      d.Assignment != nil,
		KindStudies:         d.Studies != nil,
		KindStudyResults:    d.StudyResults != nil,
		KindPrescription:    d.Prescription != nil,
		KindSurgery:         d.Surgery != nil,
		KindHospitalization: d.Hospitalization != nil,
		KindDischarge:       d.Discharge != nil,
		KindFollowUp:        d.FollowUp != nil,
		KindPayment:         d.Payment != nil,
		KindGrooming:        d.Grooming != nil,
		KindPatch:           d.Patch != nil,
		KindVitalSigns:      d.VitalSigns != nil,
		KindAdministration:  d.Administration != nil,
		KindTherapy:         d.Therapy != nil,
	}
	count := 0
	for _, ok := range set {
		if ok {
			count++
		}
	}
	return count == 1 && set[d.Kind]
}
