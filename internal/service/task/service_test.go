package task

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longevaiapp/EVEREST-sub000/internal/model"
	"github.com/longevaiapp/EVEREST-sub000/internal/repository/memory"
	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

func newService() *Service {
	now := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)
	return NewService(memory.New(), func() time.Time { return now })
}

func TestCreateAppendsInOrder(t *testing.T) {
	ctx := context.Background()
	s := newService()
	patientID := uuid.New()

	first, err := s.Create(ctx, model.RoleLaboratory, model.Task{PatientID: patientID, Title: "X-ray"})
	require.NoError(t, err)
	second, err := s.Create(ctx, model.RoleLaboratory, model.Task{PatientID: patientID, Title: "Blood panel"})
	require.NoError(t, err)

	queue, err := s.List(ctx, model.RoleLaboratory)
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, first, queue[0].ID)
	assert.Equal(t, second, queue[1].ID)
	assert.Equal(t, model.PriorityNormal, queue[0].Priority)
	assert.Equal(t, model.RoleLaboratory, queue[0].Role)

	other, err := s.List(ctx, model.RolePharmacy)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestCreateValidates(t *testing.T) {
	s := newService()
	_, err := s.Create(context.Background(), model.Role("JANITOR"), model.Task{Title: "mop"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = s.Create(context.Background(), model.RoleDoctor, model.Task{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestCompleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newService()
	id, err := s.Create(ctx, model.RolePharmacy, model.Task{Title: "Prepare amoxicillin"})
	require.NoError(t, err)
	_, err = s.Create(ctx, model.RolePharmacy, model.Task{Title: "Prepare meloxicam"})
	require.NoError(t, err)

	require.NoError(t, s.Complete(ctx, model.RolePharmacy, id))
	once, err := s.List(ctx, model.RolePharmacy)
	require.NoError(t, err)

	require.NoError(t, s.Complete(ctx, model.RolePharmacy, id))
	require.NoError(t, s.Complete(ctx, model.RolePharmacy, uuid.New()))
	twice, err := s.List(ctx, model.RolePharmacy)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	require.Len(t, twice, 1)
	assert.Equal(t, "Prepare meloxicam", twice[0].Title)

	archived, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.NotNil(t, archived.CompletedAt)
}

func TestCompleteForPatientFiltersByKind(t *testing.T) {
	ctx := context.Background()
	s := newService()
	patientID := uuid.New()

	_, err := s.Create(ctx, model.RoleDoctor, model.Task{
		PatientID: patientID, Title: "Consultation",
		Details: model.AssignmentPayload(model.AssignmentDetails{DoctorID: "d-1"}),
	})
	require.NoError(t, err)
	_, err = s.Create(ctx, model.RoleDoctor, model.Task{
		PatientID: patientID, Title: "Surgery",
		Details: model.SurgeryPayload(model.SurgeryDetails{Procedure: "spay"}),
	})
	require.NoError(t, err)

	done, err := s.CompleteForPatient(ctx, model.RoleDoctor, patientID, model.KindAssignment)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "Consultation", done[0].Title)

	open, err := s.ListByPatient(ctx, patientID, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Surgery", open[0].Title)
}
