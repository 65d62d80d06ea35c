package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Owner struct {
	ID    string `json:"id" db:"owner_id"`
	Name  string `json:"name" db:"owner_name"`
	Email string `json:"email,omitempty" db:"owner_email"`
	Phone string `json:"phone,omitempty" db:"owner_phone"`
}

// HistoryEntry is immutable once appended.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     Actor     `json:"actor"`
	Action    EventType `json:"action"`
	Details   Details   `json:"details"`
}

// ClinicalNotes are free-text fields written by the doctor along the visit.
type ClinicalNotes struct {
	Consultation     string `json:"consultation,omitempty"`
	Diagnosis        string `json:"diagnosis,omitempty"`
	SurgeryReport    string `json:"surgery_report,omitempty"`
	DischargeSummary string `json:"discharge_summary,omitempty"`
}

// Study is one laboratory/imaging study requested during the visit.
type Study struct {
	TaskID      uuid.UUID  `json:"task_id"`
	Name        string     `json:"name"`
	RequestedAt time.Time  `json:"requested_at"`
	Result      string     `json:"result,omitempty"`
	ResultAt    *time.Time `json:"result_at,omitempty"`
}

func (s Study) Pending() bool { return s.ResultAt == nil }

type StudyResult struct {
	TaskID uuid.UUID `json:"task_id" validate:"required"`
	Result string    `json:"result" validate:"required"`
}

type Payment struct {
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Reference string    `json:"reference,omitempty"`
	PaidAt    time.Time `json:"paid_at"`
	Actor     Actor     `json:"actor"`
}

type FollowUp struct {
	Date   time.Time `json:"date"`
	Reason string    `json:"reason,omitempty"`
}

type Patient struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	Species           string         `json:"species"`
	Breed             string         `json:"breed,omitempty"`
	Owner             Owner          `json:"owner"`
	State             State          `json:"state"`
	Priority          Priority       `json:"priority"`
	Reason            string         `json:"reason,omitempty"`
	ArrivedAt         time.Time      `json:"arrived_at"`
	AssignedDoctor    string         `json:"assigned_doctor,omitempty"`
	HospitalizationID *uuid.UUID     `json:"hospitalization_id,omitempty"`
	Notes             ClinicalNotes  `json:"notes"`
	Studies           []Study        `json:"studies,omitempty"`
	Payments          []Payment      `json:"payments,omitempty"`
	FollowUp          *FollowUp      `json:"follow_up,omitempty"`
	History           []HistoryEntry `json:"history"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// PendingStudies counts studies still waiting for results.
func (p *Patient) PendingStudies() int {
	n := 0
	for _, s := range p.Studies {
		if s.Pending() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers never alias stored slices.
func (p *Patient) Clone() *Patient {
	if p == nil {
		return nil
	}
	c := *p
	c.Studies = append([]Study(nil), p.Studies...)
	c.Payments = append([]Payment(nil), p.Payments...)
	c.History = append([]HistoryEntry(nil), p.History...)
	if p.HospitalizationID != nil {
		id := *p.HospitalizationID
		c.HospitalizationID = &id
	}
	if p.FollowUp != nil {
		f := *p.FollowUp
		c.FollowUp = &f
	}
	return &c
}

// PatientPatch is a shallow merge of non-state fields. It deliberately has no
// State field: state only changes through a transition.
type PatientPatch struct {
	Name              *string       `json:"name,omitempty"`
	Breed             *string       `json:"breed,omitempty"`
	Priority          *Priority     `json:"priority,omitempty"`
	Reason            *string       `json:"reason,omitempty"`
	AssignedDoctor    *string       `json:"assigned_doctor,omitempty"`
	OwnerPhone        *string       `json:"owner_phone,omitempty"`
	OwnerEmail        *string       `json:"owner_email,omitempty"`
	ConsultationNotes *string       `json:"consultation_notes,omitempty"`
	Diagnosis         *string       `json:"diagnosis,omitempty"`
	SurgeryReport     *string       `json:"surgery_report,omitempty"`
	DischargeSummary  *string       `json:"discharge_summary,omitempty"`
	HospitalizationID *uuid.UUID    `json:"-"`
	AddStudies        []Study       `json:"-"`
	StudyResults      []StudyResult `json:"-"`
	AddPayment        *Payment      `json:"-"`
	FollowUp          *FollowUp     `json:"-"`
}

// Apply merges the patch into p and returns the names of the fields it touched.
func (pp PatientPatch) Apply(p *Patient, now time.Time) []string {
	var changed []string
	setStr := func(name string, dst *string, v *string) {
		if v == nil {
			return
		}
		*dst = strings.TrimSpace(*v)
		changed = append(changed, name)
	}

	setStr("name", &p.Name, pp.Name)
	setStr("breed", &p.Breed, pp.Breed)
	setStr("reason", &p.Reason, pp.Reason)
	setStr("assigned_doctor", &p.AssignedDoctor, pp.AssignedDoctor)
	setStr("owner_phone", &p.Owner.Phone, pp.OwnerPhone)
	setStr("owner_email", &p.Owner.Email, pp.OwnerEmail)
	setStr("consultation_notes", &p.Notes.Consultation, pp.ConsultationNotes)
	setStr("diagnosis", &p.Notes.Diagnosis, pp.Diagnosis)
	setStr("surgery_report", &p.Notes.SurgeryReport, pp.SurgeryReport)
	setStr("discharge_summary", &p.Notes.DischargeSummary, pp.DischargeSummary)

	if pp.Priority != nil {
		p.Priority = *pp.Priority
		changed = append(changed, "priority")
	}
	if pp.HospitalizationID != nil {
		id := *pp.HospitalizationID
		p.HospitalizationID = &id
		changed = append(changed, "hospitalization_id")
	}
	if len(pp.AddStudies) > 0 {
		p.Studies = append(p.Studies, pp.AddStudies...)
		changed = append(changed, "studies")
	}
	if len(pp.StudyResults) > 0 {
		for _, r := range pp.StudyResults {
			for i := range p.Studies {
				if p.Studies[i].TaskID == r.TaskID && p.Studies[i].Pending() {
					at := now
					p.Studies[i].Result = r.Result
					p.Studies[i].ResultAt = &at
				}
			}
		}
		changed = append(changed, "study_results")
	}
	if pp.AddPayment != nil {
		p.Payments = append(p.Payments, *pp.AddPayment)
		changed = append(changed, "payments")
	}
	if pp.FollowUp != nil {
		f := *pp.FollowUp
		p.FollowUp = &f
		changed = append(changed, "follow_up")
	}
	return changed
}

type PatientFilter struct {
	States []State
	Limit  int
}

func (f PatientFilter) Matches(p *Patient) bool {
	if len(f.States) == 0 {
		return true
	}
	for _, s := range f.States {
		if p.State == s {
			return true
		}
	}
	return false
}
