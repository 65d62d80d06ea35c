package pharmacy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

func newInventory() *Inventory {
	return NewInventory([]Medication{
		{ID: "amox", Name: "Amoxicillin 250mg", Stock: 10, UnitCost: 2.5},
		{ID: "melox", Name: "Meloxicam 1.5mg/ml", Stock: 3, UnitCost: 8},
	})
}

func TestSearch(t *testing.T) {
	inv := newInventory()

	all, err := inv.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "amox", all[0].ID)

	found, err := inv.Search(context.Background(), "MELOX")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 3, found[0].Stock)
}

func TestDispenseIsAllOrNothing(t *testing.T) {
	inv := newInventory()
	ctx := context.Background()

	err := inv.Dispense(ctx, []DispenseLine{
		{MedicationID: "amox", Quantity: 2},
		{MedicationID: "melox", Quantity: 5},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	found, _ := inv.Search(ctx, "amox")
	assert.Equal(t, 10, found[0].Stock)

	require.NoError(t, inv.Dispense(ctx, []DispenseLine{
		{MedicationID: "amox", Quantity: 2},
		{MedicationID: "melox", Quantity: 3},
	}))
	found, _ = inv.Search(ctx, "")
	assert.Equal(t, 8, found[0].Stock)
	assert.Equal(t, 0, found[1].Stock)
}

func TestDispenseUnknownMedication(t *testing.T) {
	err := newInventory().Dispense(context.Background(), []DispenseLine{{MedicationID: "nope", Quantity: 1}})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAdjustStock(t *testing.T) {
	inv := newInventory()
	ctx := context.Background()

	m, err := inv.AdjustStock(ctx, "melox", 2)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Stock)

	_, err = inv.AdjustStock(ctx, "melox", -6)
	assert.True(t, apperrors.IsValidation(err))

	_, err = inv.AdjustStock(ctx, "nope", 1)
	assert.True(t, apperrors.IsNotFound(err))
}
