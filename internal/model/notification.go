package model

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Role      Role       `json:"role" db:"role"`
	Type      EventType  `json:"type" db:"type"`
	Title     string     `json:"title" db:"title"`
	Message   string     `json:"message" db:"message"`
	Priority  Priority   `json:"priority" db:"priority"`
	PatientID *uuid.UUID `json:"patient_id,omitempty" db:"patient_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty" db:"read_at"`
	Details   Details    `json:"details"`
}

func (n *Notification) Unread() bool { return n.ReadAt == nil }
