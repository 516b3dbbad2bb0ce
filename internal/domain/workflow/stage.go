package workflow

import (
	"fmt"
	"strings"
)

// Stage is one step of the approval chain
type Stage struct {
	Status       State
	RequiredRole Role
}

// Chain is the fixed approval order. Approving the last stage yields StateApproved.
var Chain = []Stage{
	{Status: StatePendingService, RequiredRole: RoleChefService},
	{Status: StatePendingDirector, RequiredRole: RoleDirecteur},
	{Status: StatePendingFinance, RequiredRole: RoleFinance},
}

// StageIndex returns the position of status in Chain, or -1
func StageIndex(status State) int {
	for i, s := range Chain {
		if s.Status == status {
			return i
		}
	}
	return -1
}

// StageFor returns the stage descriptor for a pending status
func StageFor(status State) (Stage, bool) {
	i := StageIndex(status)
	if i < 0 {
		return Stage{}, false
	}
	return Chain[i], true
}

// NextStatus returns the status that follows an approval at status
func NextStatus(status State) (State, bool) {
	i := StageIndex(status)
	if i < 0 {
		return "", false
	}
	if i == len(Chain)-1 {
		return StateApproved, true
	}
	return Chain[i+1].Status, true
}

// CanAct reports whether roles may approve or reject a mission in status
func CanAct(status State, roles RoleSet) bool {
	stage, ok := StageFor(status)
	return ok && roles.Has(stage.RequiredRole)
}

// Decision is the outcome of an approve or reject action
type Decision struct {
	From       State
	To         State
	SignerRole Role
	Action     SignatureAction
}

// Decide computes the transition for an approve or reject action.
// The signer role is always the role of the current stage.
func Decide(current State, trigger Trigger, roles RoleSet) (Decision, error) {
	var action SignatureAction
	switch trigger {
	case TriggerApprove:
		action = ActionApproved
	case TriggerReject:
		action = ActionRejected
	default:
		return Decision{}, fmt.Errorf("%w: %s is not a stage decision", ErrInvalidTransition, trigger)
	}

	stage, ok := StageFor(current)
	if !ok {
		return Decision{}, fmt.Errorf("%w: cannot %s a mission in status %s", ErrInvalidTransition, trigger, current)
	}
	if !roles.Has(stage.RequiredRole) {
		return Decision{}, fmt.Errorf("%w: role %s required at %s", ErrUnauthorized, stage.RequiredRole, current)
	}

	d := Decision{From: current, SignerRole: stage.RequiredRole, Action: action}
	if action == ActionRejected {
		d.To = StateRejected
		return d, nil
	}
	d.To, _ = NextStatus(current)
	return d, nil
}

// RequireComment trims a rejection reason and fails when it is empty
func RequireComment(comment string) (string, error) {
	c := strings.TrimSpace(comment)
	if c == "" {
		return "", NewValidationError("comment", "a rejection reason is required")
	}
	return c, nil
}
