package care

import (
	"time"

	"github.com/google/uuid"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

// scheduleHorizon is how far ahead GenerateDailySchedule books doses.
const scheduleHorizon = 24 * time.Hour

type slotKey struct {
	item uuid.UUID
	at   int64
}

// planSchedule appends the pending doses every active therapy item still
// needs within the horizon and returns the new ones. Slots already on the
// grid are never booked twice, and missed slots in the past are not
// backfilled.
func planSchedule(h *model.Hospitalization, now time.Time) []model.MedicationAdministration {
	booked := make(map[slotKey]bool, len(h.Administrations))
	last := make(map[uuid.UUID]time.Time)
	for _, a := range h.Administrations {
		booked[slotKey{a.TherapyItemID, a.ScheduledAt.Unix()}] = true
		if a.ScheduledAt.After(last[a.TherapyItemID]) {
			last[a.TherapyItemID] = a.ScheduledAt
		}
	}

	start := ceilMinute(now)
	end := now.Add(scheduleHorizon)

	var created []model.MedicationAdministration
	for _, item := range h.TherapyPlan {
		if !item.Active || item.FrequencyHours <= 0 {
			continue
		}
		freq := time.Duration(item.FrequencyHours) * time.Hour

		cursor := ceilMinute(item.CreatedAt)
		if prev, ok := last[item.ID]; ok && !prev.Before(cursor) {
			cursor = prev.Add(freq)
		}
		for cursor.Before(start) {
			cursor = cursor.Add(freq)
		}

		for ; cursor.Before(end); cursor = cursor.Add(freq) {
			key := slotKey{item.ID, cursor.Unix()}
			if booked[key] {
				continue
			}
			booked[key] = true
			created = append(created, model.MedicationAdministration{
				ID:            uuid.New(),
				TherapyItemID: item.ID,
				ScheduledAt:   cursor,
				Status:        model.AdministrationPending,
			})
		}
	}

	h.Administrations = append(h.Administrations, created...)
	return created
}

// ceilMinute rounds t up to the next whole minute so a slot booked for an
// activation at hh:mm:ss never lands before the activation itself.
func ceilMinute(t time.Time) time.Time {
	m := t.Truncate(time.Minute)
	if m.Before(t) {
		m = m.Add(time.Minute)
	}
	return m
}
