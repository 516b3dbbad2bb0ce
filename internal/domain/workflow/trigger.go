package workflow

// Trigger is an action that can move a mission order between states
type Trigger string

const (
	TriggerSubmit   Trigger = "submit"
	TriggerApprove  Trigger = "approve"
	TriggerReject   Trigger = "reject"
	TriggerMarkPaid Trigger = "mark_paid"
	TriggerDelete   Trigger = "delete"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// SignatureAction is the decision recorded on a signature
type SignatureAction string

const (
	ActionApproved SignatureAction = "approved"
	ActionRejected SignatureAction = "rejected"
)

// String returns the string representation of the action
func (a SignatureAction) String() string {
	return string(a)
}

// IsValid reports whether the action is one of the two recorded decisions
func (a SignatureAction) IsValid() bool {
	return a == ActionApproved || a == ActionRejected
}
