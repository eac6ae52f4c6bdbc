package entity

import "strings"

// Actions a grant may allow
const (
	ActionApprove = "approve"
	ActionExamine = "examine"
	ActionConfirm = "confirm"
	ActionBook    = "book"
	ActionAdmin   = "admin"
)

// AccessOwner marks transitions reserved to the report owner or editor.
const AccessOwner = "owner"

// Access builds the capability name for an action on a report kind,
// e.g. "approve/travel".
func Access(action string, kind Kind) string {
	return action + "/" + string(kind)
}

// Grant is one capability, optionally limited to some projects.
type Grant struct {
	Access string `json:"access"`
	// Projects limits the grant; empty means all projects.
	Projects []string `json:"projects,omitempty"`
}

// Actor is the authenticated caller of a mutation.
type Actor struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	Lang   string  `json:"lang,omitempty"`
	Grants []Grant `json:"grants,omitempty"`
}

// Can reports whether the actor holds access for the given project.
func (a Actor) Can(access, project string) bool {
	for _, g := range a.Grants {
		if g.Access != access && g.Access != ActionAdmin {
			continue
		}
		if len(g.Projects) == 0 {
			return true
		}
		for _, p := range g.Projects {
			if p == project {
				return true
			}
		}
	}
	return false
}

// CanAny reports whether the actor holds any capability on kind.
func (a Actor) CanAny(kind Kind) bool {
	suffix := "/" + string(kind)
	for _, g := range a.Grants {
		if g.Access == ActionAdmin || strings.HasSuffix(g.Access, suffix) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor may manage countries and projects.
func (a Actor) IsAdmin() bool {
	return a.Can(ActionAdmin, "")
}
