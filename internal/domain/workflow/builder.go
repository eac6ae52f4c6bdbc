package workflow

import (
	"context"
	"fmt"
	"sort"
)

// GuardFunc evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder builds a configured state machine
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) (StateMachine, error)
}

// StateConfiguration configures transitions for a specific state
type StateConfiguration interface {
	// Permit allows a trigger to move to the target state for holders of access
	Permit(trigger Trigger, toState State, access string) StateConfiguration

	// PermitIf is Permit with a guard condition
	PermitIf(trigger Trigger, toState State, access string, guard GuardFunc) StateConfiguration
}

type edge struct {
	Transition
	guard GuardFunc
}

type stateConfig struct {
	fromState State
	edges     map[Trigger]edge
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

// Configure panics on unknown states; tables are static so this is a programming error
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if terminalStates[state] {
		panic(fmt.Sprintf("terminal state cannot have transitions: %s", state))
	}

	config, exists := b.configurations[state]
	if !exists {
		config = &stateConfig{fromState: state, edges: make(map[Trigger]edge)}
		b.configurations[state] = config
	}
	return config
}

// Build copies the configuration so later Configure calls do not leak into machines
func (b *stateMachineBuilder) Build(initialState State) (StateMachine, error) {
	if !initialState.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, initialState)
	}

	configs := make(map[State]*stateConfig, len(b.configurations))
	for state, config := range b.configurations {
		edges := make(map[Trigger]edge, len(config.edges))
		for trigger, e := range config.edges {
			edges[trigger] = e
		}
		configs[state] = &stateConfig{fromState: state, edges: edges}
	}

	return &stateMachine{currentState: initialState, configurations: configs}, nil
}

func (c *stateConfig) Permit(trigger Trigger, toState State, access string) StateConfiguration {
	return c.PermitIf(trigger, toState, access, nil)
}

// PermitIf registers a single edge per trigger; the table has no ambiguous triggers
func (c *stateConfig) PermitIf(trigger Trigger, toState State, access string, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if _, exists := c.edges[trigger]; exists {
		panic(fmt.Sprintf("duplicate trigger %s from state %s", trigger, c.fromState))
	}

	c.edges[trigger] = edge{
		Transition: Transition{From: c.fromState, To: toState, Trigger: trigger, Access: access},
		guard:      guard,
	}
	return c
}

func (m *stateMachine) State() State {
	return m.currentState
}

func (m *stateMachine) lookup(trigger Trigger) (edge, bool) {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return edge{}, false
	}
	e, exists := config.edges[trigger]
	return e, exists
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	_, ok := m.lookup(trigger)
	return ok
}

func (m *stateMachine) Transition(trigger Trigger) (Transition, bool) {
	e, ok := m.lookup(trigger)
	return e.Transition, ok
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) (Transition, error) {
	e, ok := m.lookup(trigger)
	if !ok {
		return Transition{}, fmt.Errorf("%w: cannot fire %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}
	if e.guard != nil && !e.guard(ctx) {
		return Transition{}, fmt.Errorf("%w: %s from state %s", ErrGuardFailed, trigger, m.currentState)
	}

	m.currentState = e.To
	return e.Transition, nil
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	config, exists := m.configurations[m.currentState]
	if !exists {
		return []Trigger{}
	}

	triggers := make([]Trigger, 0, len(config.edges))
	for trigger := range config.edges {
		triggers = append(triggers, trigger)
	}
	sort.Slice(triggers, func(i, j int) bool { return triggers[i] < triggers[j] })
	return triggers
}
