package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/longevaiapp/EVEREST-sub000/pkg/errors"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Kind  string `json:"kind" validate:"omitempty,oneof=A B"`
	Count int    `json:"count" validate:"gte=0"`
}

func TestStructValid(t *testing.T) {
	assert.NoError(t, New().Struct(sample{Name: "x", Kind: "A"}))
}

func TestStructReportsJSONNames(t *testing.T) {
	err := New().Struct(sample{Kind: "C", Count: -1})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "kind must be one of [A B]")

	fields := Fields(errors.Unwrap(err))
	require.Len(t, fields, 3)
	assert.Equal(t, "name", fields[0].Field)
	assert.Equal(t, "count", fields[2].Field)
}

func TestFieldsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, Fields(errors.New("boom")))
}
