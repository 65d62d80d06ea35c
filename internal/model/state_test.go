package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateArrived, StateWaiting, true},
		{StateWaiting, StateInConsultation, true},
		{StateInConsultation, StateInStudies, true},
		{StateInConsultation, StateHospitalized, true},
		{StateInStudies, StateWaiting, true},
		{StateInSurgery, StateHospitalized, true},
		{StateReadyForDischarge, StateDischarged, true},
		{StateArrived, StateDischarged, false},
		{StateWaiting, StateInStudies, false},
		{StateDischarged, StateWaiting, false},
		{StateHospitalized, StateInSurgery, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestNextStatesReturnsCopy(t *testing.T) {
	next := NextStates(StateInConsultation)
	assert.Len(t, next, 5)
	next[0] = StateDischarged
	assert.Equal(t, StateInStudies, NextStates(StateInConsultation)[0])
	assert.Empty(t, NextStates(StateDischarged))
}

func TestStateValid(t *testing.T) {
	assert.True(t, StateDischarged.Valid())
	assert.True(t, StateDischarged.IsTerminal())
	assert.True(t, StateArrived.Valid())
	assert.False(t, State("LOST").Valid())
}

func TestDetailsValid(t *testing.T) {
	assert.True(t, StudiesPayload("X-ray").Valid())
	assert.True(t, TransitionPayload(StateArrived, StateWaiting).Valid())
	assert.False(t, Details{}.Valid())
	assert.False(t, Details{Kind: KindTriage, Studies: &StudiesDetails{}}.Valid())
}
