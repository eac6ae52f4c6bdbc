package service

import (
	"github.com/garyjia/travel-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/travel-reimbursement/internal/domain/workflow"
)

var readActions = []string{entity.ActionApprove, entity.ActionExamine, entity.ActionConfirm, entity.ActionBook}

// CanRead reports whether actor may see report: its owner and editor, and
// everybody holding a capability on its kind for its project.
func CanRead(actor entity.Actor, r *entity.Report) bool {
	if r.IsEditor(actor.ID) || actor.IsAdmin() {
		return true
	}
	for _, action := range readActions {
		if actor.Can(entity.Access(action, r.Kind), r.Project) {
			return true
		}
	}
	return false
}

// CanEdit reports whether actor may change the content of report in its
// current state. Owners edit before submission, examiners during examination.
func CanEdit(actor entity.Actor, r *entity.Report) bool {
	if r.Historic {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	state := domainwf.State(r.State)
	if r.IsEditor(actor.ID) && hasState(domainwf.EditableStates(r.Kind), state) {
		return true
	}
	if hasState(domainwf.ExaminationStates(r.Kind), state) {
		return actor.Can(entity.Access(entity.ActionExamine, r.Kind), r.Project) ||
			actor.Can(entity.Access(entity.ActionConfirm, r.Kind), r.Project)
	}
	return false
}

func hasState(states []domainwf.State, s domainwf.State) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}
