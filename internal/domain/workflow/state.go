package workflow

// State represents a report state in the approval lifecycle
type State string

const (
	StateAppliedFor                  State = "appliedFor"
	StateApproved                    State = "approved"
	StateRejected                    State = "rejected"
	StateInWork                      State = "inWork"
	StateUnderExamination            State = "underExamination"
	StateUnderExaminationByInsurance State = "underExaminationByInsurance"
	StateRefunded                    State = "refunded"
)

var validStates = map[State]bool{
	StateAppliedFor:                  true,
	StateApproved:                    true,
	StateRejected:                    true,
	StateInWork:                      true,
	StateUnderExamination:            true,
	StateUnderExaminationByInsurance: true,
	StateRefunded:                    true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
	StateRefunded: true,
}

// IsTerminal returns true if no further transitions are allowed
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known report state
func (s State) IsValid() bool {
	return validStates[s]
}
