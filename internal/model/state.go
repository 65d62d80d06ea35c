package model

// State is a patient's clinical state. A patient is always in exactly one.
type State string

const (
	StateArrived           State = "ARRIVED"
	StateWaiting           State = "WAITING"
	StateInConsultation    State = "IN_CONSULTATION"
	StateInStudies         State = "IN_STUDIES"
	StateInPharmacy        State = "IN_PHARMACY"
	StateSurgeryScheduled  State = "SURGERY_SCHEDULED"
	StateInSurgery         State = "IN_SURGERY"
	StateHospitalized      State = "HOSPITALIZED"
	StateReadyForDischarge State = "READY_FOR_DISCHARGE"
	StateDischarged        State = "DISCHARGED"
)

var transitions = map[State][]State{
	StateArrived:           {StateWaiting},
	StateWaiting:           {StateInConsultation},
	StateInConsultation:    {StateInStudies, StateInPharmacy, StateSurgeryScheduled, StateHospitalized, StateReadyForDischarge},
	StateInStudies:         {StateWaiting},
	StateInPharmacy:        {StateReadyForDischarge},
	StateSurgeryScheduled:  {StateInSurgery},
	StateInSurgery:         {StateHospitalized, StateReadyForDischarge},
	StateHospitalized:      {StateReadyForDischarge},
	StateReadyForDischarge: {StateDischarged},
}

// CanTransition reports whether from -> to is an edge of the clinical graph.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStates returns the legal targets from s.
func NextStates(s State) []State {
	out := make([]State, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

func (s State) IsTerminal() bool {
	return s == StateDischarged
}

func (s State) Valid() bool {
	if s == StateDischarged {
		return true
	}
	_, ok := transitions[s]
	return ok
}
