package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

const hospitalizationColumns = `id, patient_id, admitted_at, type, reason, monitoring_frequency,
	last_monitoring_at, therapy_plan, administrations, vital_signs,
	discharged_at, discharge_condition, discharge_instructions`

type hospitalizationRow struct {
	ID                    uuid.UUID                               `db:"id"`
	PatientID             uuid.UUID                               `db:"patient_id"`
	AdmittedAt            time.Time                               `db:"admitted_at"`
	Type                  string                                  `db:"type"`
	Reason                string                                  `db:"reason"`
	MonitoringFrequency   string                                  `db:"monitoring_frequency"`
	LastMonitoringAt      *time.Time                              `db:"last_monitoring_at"`
	TherapyPlan           jsonb[[]model.TherapyPlanItem]          `db:"therapy_plan"`
	Administrations       jsonb[[]model.MedicationAdministration] `db:"administrations"`
	VitalSigns            jsonb[[]model.VitalSigns]               `db:"vital_signs"`
	DischargedAt          *time.Time                              `db:"discharged_at"`
	DischargeCondition    string                                  `db:"discharge_condition"`
	DischargeInstructions string                                  `db:"discharge_instructions"`
}

func toHospitalizationRow(h *model.Hospitalization) hospitalizationRow {
	return hospitalizationRow{
		ID:                    h.ID,
		PatientID:             h.PatientID,
		AdmittedAt:            h.AdmittedAt,
		Type:                  string(h.Type),
		Reason:                h.Reason,
		MonitoringFrequency:   h.MonitoringFrequency,
		LastMonitoringAt:      h.LastMonitoringAt,
		TherapyPlan:           jsonOf(h.TherapyPlan),
		Administrations:       jsonOf(h.Administrations),
		VitalSigns:            jsonOf(h.VitalSigns),
		DischargedAt:          h.DischargedAt,
		DischargeCondition:    h.DischargeCondition,
		DischargeInstructions: h.DischargeInstructions,
	}
}

func (row hospitalizationRow) toModel() *model.Hospitalization {
	return &model.Hospitalization{
		ID:                    row.ID,
		PatientID:             row.PatientID,
		AdmittedAt:            row.AdmittedAt,
		Type:                  model.HospitalizationType(row.Type),
		Reason:                row.Reason,
		MonitoringFrequency:   row.MonitoringFrequency,
		LastMonitoringAt:      row.LastMonitoringAt,
		TherapyPlan:           row.TherapyPlan.V,
		Administrations:       row.Administrations.V,
		VitalSigns:            row.VitalSigns.V,
		DischargedAt:          row.DischargedAt,
		DischargeCondition:    row.DischargeCondition,
		DischargeInstructions: row.DischargeInstructions,
	}
}

type hospitalizationRepository struct {
	db sqlx.ExtContext
}

func (r *hospitalizationRepository) Create(ctx context.Context, h *model.Hospitalization) error {
	query := `
		INSERT INTO hospitalizations (` + hospitalizationColumns + `)
		VALUES (
			:id, :patient_id, :admitted_at, :type, :reason, :monitoring_frequency,
			:last_monitoring_at, :therapy_plan, :administrations, :vital_signs,
			:discharged_at, :discharge_condition, :discharge_instructions
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, toHospitalizationRow(h)); err != nil {
		return fmt.Errorf("failed to create hospitalization: %w", err)
	}
	return nil
}

func (r *hospitalizationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Hospitalization, error) {
	var row hospitalizationRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+hospitalizationColumns+` FROM hospitalizations WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, apperrors.NotFound("hospitalization", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hospitalization: %w", err)
	}
	return row.toModel(), nil
}

func (r *hospitalizationRepository) Update(ctx context.Context, h *model.Hospitalization) error {
	query := `
		UPDATE hospitalizations SET
			type = :type, reason = :reason, monitoring_frequency = :monitoring_frequency,
			last_monitoring_at = :last_monitoring_at, therapy_plan = :therapy_plan,
			administrations = :administrations, vital_signs = :vital_signs,
			discharged_at = :discharged_at, discharge_condition = :discharge_condition,
			discharge_instructions = :discharge_instructions
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, toHospitalizationRow(h))
	if err != nil {
		return fmt.Errorf("failed to update hospitalization: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("hospitalization", h.ID)
	}
	return nil
}

func (r *hospitalizationRepository) List(ctx context.Context, filter model.HospitalizationFilter) ([]*model.Hospitalization, error) {
	query := `SELECT ` + hospitalizationColumns + ` FROM hospitalizations WHERE TRUE`
	var args []interface{}
	if filter.OpenOnly {
		query += ` AND discharged_at IS NULL`
	}
	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		query += fmt.Sprintf(` AND patient_id = $%d`, len(args))
	}
	query += ` ORDER BY seq ASC`

	var rows []hospitalizationRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list hospitalizations: %w", err)
	}
	out := make([]*model.Hospitalization, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toModel())
	}
	return out, nil
}
