package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateAppliedFor, false},
		{StateApproved, false},
		{StateInWork, false},
		{StateUnderExamination, false},
		{StateUnderExaminationByInsurance, false},
		{StateRejected, true},
		{StateRefunded, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	if !StateInWork.IsValid() {
		t.Error("inWork should be valid")
	}
	if State("CREATED").IsValid() {
		t.Error("CREATED should not be valid")
	}
	if State("").IsValid() {
		t.Error("empty state should not be valid")
	}
}

func newTripMachine(t *testing.T, initial State, guard GuardFunc) StateMachine {
	t.Helper()
	b := NewBuilder()
	b.Configure(StateAppliedFor).
		Permit(TriggerApprove, StateApproved, "approve/travel").
		PermitIf(TriggerReject, StateRejected, "approve/travel", guard)
	b.Configure(StateApproved).
		Permit(TriggerSubmit, StateUnderExamination, entity.AccessOwner)

	m, err := b.Build(initial)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return m
}

func TestStateMachine_Fire(t *testing.T) {
	ctx := context.Background()
	m := newTripMachine(t, StateAppliedFor, nil)

	tr, err := m.Fire(ctx, TriggerApprove)
	if err != nil {
		t.Fatalf("Fire(approve) error = %v", err)
	}
	if tr.From != StateAppliedFor || tr.To != StateApproved || tr.Access != "approve/travel" {
		t.Errorf("unexpected transition %+v", tr)
	}
	if m.State() != StateApproved {
		t.Errorf("State() = %v, want approved", m.State())
	}

	if _, err := m.Fire(ctx, TriggerApprove); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire(approve) from approved error = %v, want ErrInvalidTransition", err)
	}
	if m.State() != StateApproved {
		t.Errorf("state changed after rejected fire: %v", m.State())
	}
}

func TestStateMachine_Guard(t *testing.T) {
	ctx := context.Background()
	m := newTripMachine(t, StateAppliedFor, func(context.Context) bool { return false })

	if !m.CanFire(TriggerReject) {
		t.Error("CanFire(reject) should be true regardless of guard")
	}
	if _, err := m.Fire(ctx, TriggerReject); !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire(reject) error = %v, want ErrGuardFailed", err)
	}
	if m.State() != StateAppliedFor {
		t.Errorf("State() = %v, want appliedFor", m.State())
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	m := newTripMachine(t, StateAppliedFor, nil)
	got := m.PermittedTriggers()
	if len(got) != 2 || got[0] != TriggerApprove || got[1] != TriggerReject {
		t.Errorf("PermittedTriggers() = %v", got)
	}

	m = newTripMachine(t, StateRejected, nil)
	if len(m.PermittedTriggers()) != 0 {
		t.Error("terminal state should permit nothing")
	}
}

func TestBuilder_InvalidInitialState(t *testing.T) {
	_, err := NewBuilder().Build(State("bogus"))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Build() error = %v, want ErrInvalidState", err)
	}
}

func TestBuilder_TerminalStatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic when configuring a terminal state")
		}
	}()
	NewBuilder().Configure(StateRefunded)
}

func TestTransitions_Table(t *testing.T) {
	for _, kind := range entity.Kinds {
		rows := Transitions(kind)
		if len(rows) == 0 {
			t.Errorf("no transitions for %s", kind)
		}
		seen := map[string]bool{}
		reachesRefunded := false
		for _, r := range rows {
			if r.From.IsTerminal() {
				t.Errorf("%s: transition out of terminal state %s", kind, r.From)
			}
			key := string(r.From) + "/" + string(r.Trigger)
			if seen[key] {
				t.Errorf("%s: duplicate trigger %s", kind, key)
			}
			seen[key] = true
			if r.To == StateRefunded {
				reachesRefunded = true
			}
		}
		if !reachesRefunded {
			t.Errorf("%s: refunded is unreachable", kind)
		}
	}

	rows := Transitions(entity.KindHealthCareCost)
	last := rows[len(rows)-1]
	if last.From != StateUnderExaminationByInsurance || last.Access != "confirm/healthCareCost" {
		t.Errorf("unexpected insurance row %+v", last)
	}
}

func TestInitialState(t *testing.T) {
	if s, _ := InitialState(entity.KindTrip); s != StateAppliedFor {
		t.Errorf("trip initial = %v", s)
	}
	if s, _ := InitialState(entity.KindHealthCareCost); s != StateInWork {
		t.Errorf("health care initial = %v", s)
	}
	if _, err := InitialState(entity.Kind("x")); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("unknown kind error = %v", err)
	}
}
