// Package onboarding decides which screen a visitor sees and drives the
// form, follow-up and exit transitions.
package onboarding

import (
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// State is the derived stage of a visitor. It is never stored.
type State string

const (
	StateNew              State = "NEW"
	StateFormIncomplete   State = "FORM_INCOMPLETE"
	StateAwaitingFollowUp State = "AWAITING_FOLLOWUP"
	StateComplete         State = "COMPLETE"
	StateAdmin            State = "ADMIN"
)

// Route is the client screen for a state.
type Route string

const (
	RouteForm     Route = "form"
	RouteFollowUp Route = "followup"
	RouteResults  Route = "results"
	RouteAdmin    Route = "admin"
)

// Route returns the screen the client should show.
func (s State) Route() Route {
	switch s {
	case StateAwaitingFollowUp:
		return RouteFollowUp
	case StateComplete:
		return RouteResults
	case StateAdmin:
		return RouteAdmin
	default:
		return RouteForm
	}
}

// Tracked reports whether location tracking runs while a visitor is in s.
func (s State) Tracked() bool {
	switch s {
	case StateNew, StateFormIncomplete, StateAwaitingFollowUp:
		return true
	default:
		return false
	}
}

// Status derives the state from the persisted timestamps. The first matching
// rule wins:
//
//	identifier == adminSentinel                        ADMIN
//	no initial_form_started_at                         NEW
//	no initial_form_submitted_at                       FORM_INCOMPLETE
//	skipped_at or additional_form_submitted_at set     COMPLETE
//	follow-up questions stored                         AWAITING_FOLLOWUP
//	otherwise                                          FORM_INCOMPLETE
//
// A nil user is NEW.
func Status(identifier, adminSentinel string, u *models.User) State {
	if adminSentinel != "" && identifier == adminSentinel {
		return StateAdmin
	}
	if u == nil || u.InitialFormStartedAt == nil {
		return StateNew
	}
	if u.InitialFormSubmittedAt == nil {
		return StateFormIncomplete
	}
	if u.SkippedAt != nil || u.AdditionalFormSubmittedAt != nil {
		return StateComplete
	}
	if u.FollowUp != nil && len(u.FollowUp.Questions) > 0 {
		return StateAwaitingFollowUp
	}
	return StateFormIncomplete
}
