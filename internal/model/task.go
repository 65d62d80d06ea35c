package model

import (
	"time"

	"github.com/google/uuid"
)

// Task is one unit of work queued for a role dashboard.
type Task struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Role        Role       `json:"role" db:"role"`
	PatientID   uuid.UUID  `json:"patient_id" db:"patient_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description,omitempty" db:"description"`
	Priority    Priority   `json:"priority" db:"priority"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	Details     Details    `json:"details"`
}

func (t *Task) Open() bool { return t.CompletedAt == nil }
