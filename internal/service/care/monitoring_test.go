package care

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

var wardNow = time.Date(2024, 5, 10, 8, 0, 30, 0, time.UTC)

func hospitalization(freq string, lastAgo *time.Duration) *model.Hospitalization {
	h := &model.Hospitalization{ID: uuid.New(), MonitoringFrequency: freq, AdmittedAt: wardNow.Add(-24 * time.Hour)}
	if lastAgo != nil {
		at := wardNow.Add(-*lastAgo)
		h.LastMonitoringAt = &at
	}
	return h
}

func ago(d time.Duration) *time.Duration { return &d }

func TestMonitoringStatus(t *testing.T) {
	tests := []struct {
		name    string
		freq    string
		lastAgo *time.Duration
		status  Status
		level   int
		message string
	}{
		{"never monitored", "4h", nil, StatusUrgent, 3, "No monitoring recorded"},
		{"overdue by an hour", "4h", ago(5 * time.Hour), StatusOverdue, 2, "Overdue by 1h 0min"},
		{"exactly due", "4h", ago(4 * time.Hour), StatusOverdue, 2, "Overdue by 0h 0min"},
		{"due soon", "4h", ago(3*time.Hour + 45*time.Minute), StatusSoon, 1, "Due in 15min"},
		{"thirty minutes left", "4h", ago(3*time.Hour + 30*time.Minute), StatusSoon, 1, "Due in 30min"},
		{"recently checked", "4h", ago(time.Hour), StatusOK, 0, "Next check in 3h 0min"},
		{"long frequency text", "12 hours", ago(2*time.Hour + 15*time.Minute), StatusOK, 0, "Next check in 9h 45min"},
		{"unparseable", "every shift", ago(time.Hour), StatusUnknown, 0, `Unknown monitoring frequency "every shift"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonitoringStatus(hospitalization(tt.freq, tt.lastAgo), wardNow)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.level, got.UrgencyLevel)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestMonitoringStatusIsPure(t *testing.T) {
	h := hospitalization("4h", ago(5*time.Hour))
	first := MonitoringStatus(h, wardNow)
	second := MonitoringStatus(h, wardNow)
	assert.Equal(t, first, second)
	require.NotNil(t, h.LastMonitoringAt)
	assert.Equal(t, wardNow.Add(-5*time.Hour), *h.LastMonitoringAt)
}

func TestSortByUrgency(t *testing.T) {
	early := wardNow.Add(-3 * time.Hour)
	late := wardNow.Add(-time.Hour)
	entries := []BoardEntry{
		{PatientName: "ok", AdmittedAt: early, Monitoring: Monitoring{UrgencyLevel: 0}},
		{PatientName: "urgent-late", AdmittedAt: late, Monitoring: Monitoring{UrgencyLevel: 3}},
		{PatientName: "soon", AdmittedAt: early, Monitoring: Monitoring{UrgencyLevel: 1}},
		{PatientName: "urgent-early", AdmittedAt: early, Monitoring: Monitoring{UrgencyLevel: 3}},
		{PatientName: "overdue", AdmittedAt: late, Monitoring: Monitoring{UrgencyLevel: 2}},
	}

	SortByUrgency(entries)

	var names []string
	for _, e := range entries {
		names = append(names, e.PatientName)
	}
	assert.Equal(t, []string{"urgent-early", "urgent-late", "overdue", "soon", "ok"}, names)
}
