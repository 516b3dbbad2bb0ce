package workflow

import "context"

// StateMachine tracks the status of one mission order and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger has a configured transition from the current state
	CanFire(trigger Trigger) bool

	// Target resolves the state the trigger would lead to, without changing state
	Target(ctx context.Context, trigger Trigger) (State, error)

	// Fire executes the trigger, moving to the target state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger
}
