package email

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
)

// DischargeHandler turns a relayed patient.discharged outbox event into an
// owner notice. Events without an owner e-mail are skipped.
func DischargeHandler(svc Service) func(ctx context.Context, event *model.OutboxEvent) error {
	return func(ctx context.Context, event *model.OutboxEvent) error {
		var ev model.PatientEvent
		if err := json.Unmarshal(event.Payload, &ev); err != nil {
			return fmt.Errorf("decode discharge event %s: %w", event.ID, err)
		}
		if ev.Owner == nil || ev.Owner.Email == "" {
			return nil
		}

		notice := DischargeNotice{
			To:           ev.Owner.Email,
			OwnerName:    ev.Owner.Name,
			PatientName:  ev.Patient,
			DischargedAt: ev.OccurredAt,
		}
		if d := ev.Details.Discharge; d != nil {
			notice.Condition = d.Condition
			notice.Instructions = d.Instructions
		}
		return svc.SendDischargeNotice(ctx, notice)
	}
}
