package workflow

// State is the status of a mission order in its approval lifecycle
type State string

const (
	StateDraft           State = "draft"
	StatePendingService  State = "pending_service"
	StatePendingDirector State = "pending_director"
	StatePendingFinance  State = "pending_finance"
	StateApproved        State = "approved"
	StateRejected        State = "rejected"
	StatePaid            State = "paid"
)

var validStates = map[State]bool{
	StateDraft:           true,
	StatePendingService:  true,
	StatePendingDirector: true,
	StatePendingFinance:  true,
	StateApproved:        true,
	StateRejected:        true,
	StatePaid:            true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
	StatePaid:     true,
}

// AllStates lists every status in lifecycle order
func AllStates() []State {
	return []State{
		StateDraft,
		StatePendingService,
		StatePendingDirector,
		StatePendingFinance,
		StateApproved,
		StateRejected,
		StatePaid,
	}
}

// IsTerminal returns true if no further transition can leave the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsPending returns true if the state is one of the approval stages
func (s State) IsPending() bool {
	_, ok := StageFor(s)
	return ok
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known mission status
func (s State) IsValid() bool {
	return validStates[s]
}
