package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Outbox event types published by the relay.
const (
	TopicPatientEvents      = "clinic.patient"
	OutboxPatientDischarged = "patient.discharged"
)

// OutboxEvent is written in the same transaction as the state change it
// describes and relayed to the broker afterwards.
type OutboxEvent struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	EventType   string          `db:"event_type" json:"event_type"`
	PatientID   uuid.UUID       `db:"patient_id" json:"patient_id"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      OutboxStatus    `db:"status" json:"status"`
	Attempts    int             `db:"attempts" json:"attempts"`
	LastError   *string         `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// PatientEvent is the payload of every outbox event.
type PatientEvent struct {
	Type       EventType `json:"type"`
	PatientID  uuid.UUID `json:"patient_id"`
	State      State     `json:"state"`
	Actor      Actor     `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
	Owner      *Owner    `json:"owner,omitempty"`
	Patient    string    `json:"patient_name,omitempty"`
	Details    Details   `json:"details"`
}

// NewOutboxEvent encodes ev. Discharge events get their own event type so the
// relay can route them to the owner e-mail.
func NewOutboxEvent(ev PatientEvent) (*OutboxEvent, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	eventType := "patient." + string(ev.Type)
	if ev.Type == EventDischarged {
		eventType = OutboxPatientDischarged
	}
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		PatientID: ev.PatientID,
		Payload:   payload,
		Status:    OutboxStatusPending,
		CreatedAt: ev.OccurredAt,
	}, nil
}
