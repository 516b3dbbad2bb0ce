package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc decides whether a transition may be taken
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns the configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine positioned at initialState
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions leaving a specific state
type StateConfiguration interface {
	// Permit allows a trigger to move to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to move to the target state when guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration

	// PermitReentryIf allows a trigger that leaves the state unchanged when guard passes
	PermitReentryIf(trigger Trigger, guard GuardFunc) StateConfiguration
}

type transition struct {
	toState State
	guard   GuardFunc
}

type stateConfig struct {
	fromState   State
	transitions map[Trigger][]transition
}

type stateMachineBuilder struct {
	configurations map[State]*stateConfig
}

type stateMachine struct {
	currentState   State
	configurations map[State]*stateConfig
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{
		configurations: make(map[State]*stateConfig),
	}
}

// Configure returns the configuration for the given state
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{
			fromState:   state,
			transitions: make(map[Trigger][]transition),
		}
		b.configurations[state] = config
	}

	return config
}

// Build creates a new state machine positioned at initialState
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	// Copy so later Configure calls do not leak into built machines
	configsCopy := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		transitionsCopy := make(map[Trigger][]transition, len(config.transitions))
		for trigger, transitions := range config.transitions {
			transitionsCopy[trigger] = append([]transition{}, transitions...)
		}
		configsCopy[state] = &stateConfig{
			fromState:   state,
			transitions: transitionsCopy,
		}
	}

	return &stateMachine{
		currentState:   initialState,
		configurations: configsCopy,
	}
}

// Permit allows a trigger to move to the target state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

// PermitIf allows a trigger to move to the target state when guard passes
func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}

	c.transitions[trigger] = append(c.transitions[trigger], transition{
		toState: toState,
		guard:   guard,
	})

	return c
}

// PermitReentryIf allows a trigger that leaves the state unchanged when guard passes
func (c *stateConfig) PermitReentryIf(trigger Trigger, guard GuardFunc) StateConfiguration {
	return c.PermitIf(trigger, c.fromState, guard)
}

// State returns the current state
func (m *stateMachine) State() State {
	return m.currentState
}

// CanFire returns true if the trigger has a configured transition.
// Guards are not evaluated here; Target and Fire evaluate them.
func (m *stateMachine) CanFire(trigger Trigger) bool {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return false
	}
	return len(config.transitions[trigger]) > 0
}

// Target resolves the state the trigger would lead to, without changing state
func (m *stateMachine) Target(ctx context.Context, trigger Trigger) (State, error) {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return "", fmt.Errorf("%w: cannot %s from %s (no configuration)", ErrInvalidTransition, trigger, m.currentState)
	}

	transitions := config.transitions[trigger]
	if len(transitions) == 0 {
		return "", fmt.Errorf("%w: cannot %s from %s", ErrInvalidTransition, trigger, m.currentState)
	}

	for _, t := range transitions {
		if t.guard == nil || t.guard(ctx) {
			return t.toState, nil
		}
	}

	return "", fmt.Errorf("%w: %s from %s", ErrGuardFailed, trigger, m.currentState)
}

// Fire executes the trigger, moving to the target state if allowed
func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	next, err := m.Target(ctx, trigger)
	if err != nil {
		return err
	}
	m.currentState = next
	return nil
}

// PermittedTriggers returns all triggers configured for the current state, sorted
func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.transitions))
	for trigger := range config.transitions {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })

	return triggers
}
