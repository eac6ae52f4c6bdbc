package workflow

import "github.com/garyjia/travel-reimbursement/internal/domain/entity"

// Transition is one row of a per-kind transition table.
type Transition struct {
	Kind    entity.Kind
	From    State
	To      State
	Trigger Trigger
	// Access is the capability required, or entity.AccessOwner.
	Access string
}

func row(kind entity.Kind, from State, trigger Trigger, to State, action string) Transition {
	access := entity.AccessOwner
	if action != entity.AccessOwner {
		access = entity.Access(action, kind)
	}
	return Transition{Kind: kind, From: from, To: to, Trigger: trigger, Access: access}
}

var transitions = []Transition{
	row(entity.KindTrip, StateAppliedFor, TriggerApprove, StateApproved, entity.ActionApprove),
	row(entity.KindTrip, StateAppliedFor, TriggerReject, StateRejected, entity.ActionApprove),
	row(entity.KindTrip, StateApproved, TriggerSubmit, StateUnderExamination, entity.AccessOwner),
	row(entity.KindTrip, StateUnderExamination, TriggerBackToApproved, StateApproved, entity.ActionExamine),
	row(entity.KindTrip, StateUnderExamination, TriggerRefund, StateRefunded, entity.ActionExamine),

	row(entity.KindAdvance, StateAppliedFor, TriggerApprove, StateApproved, entity.ActionApprove),
	row(entity.KindAdvance, StateAppliedFor, TriggerReject, StateRejected, entity.ActionApprove),
	row(entity.KindAdvance, StateApproved, TriggerSettle, StateRefunded, entity.ActionBook),

	row(entity.KindExpenseReport, StateInWork, TriggerSubmit, StateUnderExamination, entity.AccessOwner),
	row(entity.KindExpenseReport, StateUnderExamination, TriggerBackToInWork, StateInWork, entity.ActionExamine),
	row(entity.KindExpenseReport, StateUnderExamination, TriggerRefund, StateRefunded, entity.ActionExamine),

	row(entity.KindHealthCareCost, StateInWork, TriggerSubmit, StateUnderExamination, entity.AccessOwner),
	row(entity.KindHealthCareCost, StateUnderExamination, TriggerBackToInWork, StateInWork, entity.ActionExamine),
	row(entity.KindHealthCareCost, StateUnderExamination, TriggerToInsurance, StateUnderExaminationByInsurance, entity.ActionExamine),
	row(entity.KindHealthCareCost, StateUnderExaminationByInsurance, TriggerRefund, StateRefunded, entity.ActionConfirm),
}

// Transitions returns the table rows of a report kind.
func Transitions(kind entity.Kind) []Transition {
	var out []Transition
	for _, t := range transitions {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// InitialState is the state a report is created in. Creation is not a transition.
func InitialState(kind entity.Kind) (State, error) {
	switch kind {
	case entity.KindTrip, entity.KindAdvance:
		return StateAppliedFor, nil
	case entity.KindExpenseReport, entity.KindHealthCareCost:
		return StateInWork, nil
	}
	return "", ErrUnknownKind
}

// EditableStates are the states in which the owner may still change a report.
func EditableStates(kind entity.Kind) []State {
	switch kind {
	case entity.KindTrip:
		return []State{StateAppliedFor, StateApproved}
	case entity.KindAdvance:
		return []State{StateAppliedFor}
	case entity.KindExpenseReport, entity.KindHealthCareCost:
		return []State{StateInWork}
	}
	return nil
}

// ExaminationStates are the states in which examiners may change a report.
func ExaminationStates(kind entity.Kind) []State {
	switch kind {
	case entity.KindTrip, entity.KindExpenseReport:
		return []State{StateUnderExamination}
	case entity.KindHealthCareCost:
		return []State{StateUnderExamination, StateUnderExaminationByInsurance}
	}
	return nil
}
