package workflow

import "context"

// StateMachine tracks the current state of one report and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Transition returns the table row the trigger would take from the current state
	Transition(trigger Trigger) (Transition, bool)

	// Fire executes the trigger, moving to the target state if allowed
	Fire(ctx context.Context, trigger Trigger) (Transition, error)

	// PermittedTriggers returns the triggers available from the current state, sorted
	PermittedTriggers() []Trigger
}
