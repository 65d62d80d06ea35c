package errors

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCodeOfThroughWrapping(t *testing.T) {
	id := uuid.New()
	err := fmt.Errorf("failed to load patient: %w", NotFound("patient", id))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), id.String())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("boom")))
	assert.False(t, IsNotFound(nil))
}

func TestIllegalTransitionMessage(t *testing.T) {
	err := IllegalTransition("ARRIVED", "DISCHARGED")

	assert.True(t, IsIllegalTransition(err))
	assert.Equal(t, "illegal transition ARRIVED -> DISCHARGED", err.Error())
}

func TestValidationWrapsCause(t *testing.T) {
	cause := fmt.Errorf("strconv: bad input")
	err := Validation("invalid monitoring frequency", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invalid monitoring frequency: strconv: bad input", err.Error())
}
