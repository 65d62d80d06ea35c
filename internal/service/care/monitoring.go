package care

import (
	"fmt"
	"sort"
	"time"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusUrgent  Status = "urgent"
	StatusOverdue Status = "overdue"
	StatusSoon    Status = "soon"
	StatusOK      Status = "ok"
)

// Statuses lists every monitoring status, most urgent first.
var Statuses = []Status{StatusUrgent, StatusOverdue, StatusSoon, StatusOK, StatusUnknown}

const soonWindow = 30 * time.Minute

type Monitoring struct {
	Status       Status     `json:"status"`
	Message      string     `json:"message"`
	UrgencyLevel int        `json:"urgency_level"`
	NextDueAt    *time.Time `json:"next_due_at,omitempty"`
}

// MonitoringStatus classifies how due the next vitals check of h is. It
// depends only on the frequency, the last check and now.
func MonitoringStatus(h *model.Hospitalization, now time.Time) Monitoring {
	freq, err := model.ParseMonitoringFrequency(h.MonitoringFrequency)
	if err != nil {
		return Monitoring{
			Status:  StatusUnknown,
			Message: fmt.Sprintf("Unknown monitoring frequency %q", h.MonitoringFrequency),
		}
	}
	if h.LastMonitoringAt == nil {
		return Monitoring{Status: StatusUrgent, Message: "No monitoring recorded", UrgencyLevel: 3}
	}

	due := h.LastMonitoringAt.Add(freq)
	remaining := due.Sub(now)
	switch {
	case remaining <= 0:
		hrs, mins := hoursMinutes(-remaining)
		return Monitoring{
			Status:       StatusOverdue,
			Message:      fmt.Sprintf("Overdue by %dh %dmin", hrs, mins),
			UrgencyLevel: 2,
			NextDueAt:    &due,
		}
	case remaining <= soonWindow:
		mins := int((remaining + time.Minute - 1) / time.Minute)
		return Monitoring{
			Status:       StatusSoon,
			Message:      fmt.Sprintf("Due in %dmin", mins),
			UrgencyLevel: 1,
			NextDueAt:    &due,
		}
	default:
		hrs, mins := hoursMinutes(remaining)
		return Monitoring{
			Status:    StatusOK,
			Message:   fmt.Sprintf("Next check in %dh %dmin", hrs, mins),
			NextDueAt: &due,
		}
	}
}

func hoursMinutes(d time.Duration) (int, int) {
	total := int(d / time.Minute)
	return total / 60, total % 60
}

// SortByUrgency orders entries by urgency level, highest first. Equal levels
// keep the earliest admission first.
func SortByUrgency(entries []BoardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Monitoring.UrgencyLevel != b.Monitoring.UrgencyLevel {
			return a.Monitoring.UrgencyLevel > b.Monitoring.UrgencyLevel
		}
		return a.AdmittedAt.Before(b.AdmittedAt)
	})
}
