package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

const patientColumns = `id, name, species, breed, owner_id, owner_name, owner_email, owner_phone,
	state, priority, reason, arrived_at, assigned_doctor, hospitalization_id,
	notes, studies, payments, follow_up, updated_at`

type patientRow struct {
	ID                uuid.UUID                  `db:"id"`
	Name              string                     `db:"name"`
	Species           string                     `db:"species"`
	Breed             string                     `db:"breed"`
	OwnerID           string                     `db:"owner_id"`
	OwnerName         string                     `db:"owner_name"`
	OwnerEmail        string                     `db:"owner_email"`
	OwnerPhone        string                     `db:"owner_phone"`
	State             string                     `db:"state"`
	Priority          string                     `db:"priority"`
	Reason            string                     `db:"reason"`
	ArrivedAt         time.Time                  `db:"arrived_at"`
	AssignedDoctor    string                     `db:"assigned_doctor"`
	HospitalizationID uuid.NullUUID              `db:"hospitalization_id"`
	Notes             jsonb[model.ClinicalNotes] `db:"notes"`
	Studies           jsonb[[]model.Study]       `db:"studies"`
	Payments          jsonb[[]model.Payment]     `db:"payments"`
	FollowUp          jsonb[*model.FollowUp]     `db:"follow_up"`
	UpdatedAt         time.Time                  `db:"updated_at"`
}

type historyRow struct {
	PatientID  uuid.UUID            `db:"patient_id"`
	Seq        int                  `db:"seq"`
	OccurredAt time.Time            `db:"occurred_at"`
	Actor      jsonb[model.Actor]   `db:"actor"`
	Action     string               `db:"action"`
	Details    jsonb[model.Details] `db:"details"`
}

func toPatientRow(p *model.Patient) patientRow {
	row := patientRow{
		ID:             p.ID,
		Name:           p.Name,
		Species:        p.Species,
		Breed:          p.Breed,
		OwnerID:        p.Owner.ID,
		OwnerName:      p.Owner.Name,
		OwnerEmail:     p.Owner.Email,
		OwnerPhone:     p.Owner.Phone,
		State:          string(p.State),
		Priority:       string(p.Priority),
		Reason:         p.Reason,
		ArrivedAt:      p.ArrivedAt,
		AssignedDoctor: p.AssignedDoctor,
		Notes:          jsonOf(p.Notes),
		Studies:        jsonOf(p.Studies),
		Payments:       jsonOf(p.Payments),
		FollowUp:       jsonOf(p.FollowUp),
		UpdatedAt:      p.UpdatedAt,
	}
	if p.HospitalizationID != nil {
		row.HospitalizationID = uuid.NullUUID{UUID: *p.HospitalizationID, Valid: true}
	}
	return row
}

func (row patientRow) toModel(history []model.HistoryEntry) *model.Patient {
	p := &model.Patient{
		ID:             row.ID,
		Name:           row.Name,
		Species:        row.Species,
		Breed:          row.Breed,
		Owner:          model.Owner{ID: row.OwnerID, Name: row.OwnerName, Email: row.OwnerEmail, Phone: row.OwnerPhone},
		State:          model.State(row.State),
		Priority:       model.Priority(row.Priority),
		Reason:         row.Reason,
		ArrivedAt:      row.ArrivedAt,
		AssignedDoctor: row.AssignedDoctor,
		Notes:          row.Notes.V,
		Studies:        row.Studies.V,
		Payments:       row.Payments.V,
		FollowUp:       row.FollowUp.V,
		History:        history,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.HospitalizationID.Valid {
		id := row.HospitalizationID.UUID
		p.HospitalizationID = &id
	}
	return p
}

type patientRepository struct {
	db sqlx.ExtContext
}

func (r *patientRepository) Create(ctx context.Context, p *model.Patient) error {
	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES (
			:id, :name, :species, :breed, :owner_id, :owner_name, :owner_email, :owner_phone,
			:state, :priority, :reason, :arrived_at, :assigned_doctor, :hospitalization_id,
			:notes, :studies, :payments, :follow_up, :updated_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, toPatientRow(p)); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return apperrors.Conflict("patient " + p.ID.String() + " already exists")
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return r.appendHistory(ctx, p.ID, 0, p.History)
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var row patientRow
	err := sqlx.GetContext(ctx, r.db, &row, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	if isNoRows(err) {
		return nil, apperrors.NotFound("patient", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	history, err := r.history(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return row.toModel(history[id]), nil
}

func (r *patientRepository) Update(ctx context.Context, p *model.Patient) error {
	query := `
		UPDATE patients SET
			name = :name, species = :species, breed = :breed,
			owner_id = :owner_id, owner_name = :owner_name, owner_email = :owner_email, owner_phone = :owner_phone,
			state = :state, priority = :priority, reason = :reason,
			assigned_doctor = :assigned_doctor, hospitalization_id = :hospitalization_id,
			notes = :notes, studies = :studies, payments = :payments, follow_up = :follow_up,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, toPatientRow(p))
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NotFound("patient", p.ID)
	}

	var stored int
	if err := sqlx.GetContext(ctx, r.db, &stored, `SELECT COUNT(*) FROM patient_history WHERE patient_id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to count patient history: %w", err)
	}
	if len(p.History) < stored {
		return apperrors.Conflict("patient history is append-only")
	}
	return r.appendHistory(ctx, p.ID, stored, p.History[stored:])
}

func (r *patientRepository) List(ctx context.Context, filter model.PatientFilter) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients`
	var args []interface{}
	if len(filter.States) > 0 {
		states := make([]string, len(filter.States))
		for i, s := range filter.States {
			states[i] = string(s)
		}
		args = append(args, pq.Array(states))
		query += fmt.Sprintf(` WHERE state = ANY($%d)`, len(args))
	}
	query += ` ORDER BY arrived_at ASC, id ASC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	var rows []patientRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	history, err := r.history(ctx, ids)
	if err != nil {
		return nil, err
	}

	patients := make([]*model.Patient, 0, len(rows))
	for _, row := range rows {
		patients = append(patients, row.toModel(history[row.ID]))
	}
	return patients, nil
}

func (r *patientRepository) appendHistory(ctx context.Context, patientID uuid.UUID, offset int, entries []model.HistoryEntry) error {
	query := `
		INSERT INTO patient_history (patient_id, seq, occurred_at, actor, action, details)
		VALUES (:patient_id, :seq, :occurred_at, :actor, :action, :details)
	`
	for i, e := range entries {
		row := historyRow{
			PatientID:  patientID,
			Seq:        offset + i,
			OccurredAt: e.Timestamp,
			Actor:      jsonOf(e.Actor),
			Action:     string(e.Action),
			Details:    jsonOf(e.Details),
		}
		if _, err := sqlx.NamedExecContext(ctx, r.db, query, row); err != nil {
			return fmt.Errorf("failed to append patient history: %w", err)
		}
	}
	return nil
}

func (r *patientRepository) history(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.HistoryEntry, error) {
	out := make(map[uuid.UUID][]model.HistoryEntry, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	var rows []historyRow
	query := `
		SELECT patient_id, seq, occurred_at, actor, action, details
		FROM patient_history
		WHERE patient_id = ANY($1::uuid[])
		ORDER BY patient_id, seq
	`
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, pq.Array(keys)); err != nil {
		return nil, fmt.Errorf("failed to load patient history: %w", err)
	}
	for _, row := range rows {
		out[row.PatientID] = append(out[row.PatientID], model.HistoryEntry{
			Timestamp: row.OccurredAt,
			Actor:     row.Actor.V,
			Action:    model.EventType(row.Action),
			Details:   row.Details.V,
		})
	}
	return out, nil
}
