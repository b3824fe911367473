package onboarding

import (
	"testing"
	"time"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	at := func() *time.Time { v := now; return &v }
	questions := &models.FollowUp{Summary: "s", Questions: []string{"q1"}}

	tests := []struct {
		name       string
		identifier string
		user       *models.User
		want       State
	}{
		{name: "admin sentinel ignores stored fields", identifier: "admin", user: &models.User{SkippedAt: at()}, want: StateAdmin},
		{name: "nil user", identifier: "010", user: nil, want: StateNew},
		{name: "no timestamps", identifier: "010", user: &models.User{}, want: StateNew},
		{name: "form started", identifier: "010", user: &models.User{InitialFormStartedAt: at()}, want: StateFormIncomplete},
		{
			name:       "form submitted with follow-up questions",
			identifier: "010",
			user:       &models.User{InitialFormStartedAt: at(), InitialFormSubmittedAt: at(), FollowUp: questions},
			want:       StateAwaitingFollowUp,
		},
		{
			name:       "form submitted without follow-up questions",
			identifier: "010",
			user:       &models.User{InitialFormStartedAt: at(), InitialFormSubmittedAt: at()},
			want:       StateFormIncomplete,
		},
		{
			name:       "skipped",
			identifier: "010",
			user:       &models.User{InitialFormStartedAt: at(), InitialFormSubmittedAt: at(), SkippedAt: at(), FollowUp: questions},
			want:       StateComplete,
		},
		{
			name:       "answered",
			identifier: "010",
			user:       &models.User{InitialFormStartedAt: at(), InitialFormSubmittedAt: at(), AdditionalFormSubmittedAt: at()},
			want:       StateComplete,
		},
		{
			name:       "skipped without submitted form is still incomplete",
			identifier: "010",
			user:       &models.User{InitialFormStartedAt: at(), SkippedAt: at()},
			want:       StateFormIncomplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Status(tt.identifier, "admin", tt.user); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStatus_EmptySentinelNeverAdmin(t *testing.T) {
	t.Parallel()

	if got := Status("", "", nil); got != StateNew {
		t.Errorf("Status() = %s, want NEW", got)
	}
}

func TestState_Route(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state   State
		route   Route
		tracked bool
	}{
		{StateNew, RouteForm, true},
		{StateFormIncomplete, RouteForm, true},
		{StateAwaitingFollowUp, RouteFollowUp, true},
		{StateComplete, RouteResults, false},
		{StateAdmin, RouteAdmin, false},
	}
	for _, tt := range tests {
		if got := tt.state.Route(); got != tt.route {
			t.Errorf("%s.Route() = %s, want %s", tt.state, got, tt.route)
		}
		if got := tt.state.Tracked(); got != tt.tracked {
			t.Errorf("%s.Tracked() = %v, want %v", tt.state, got, tt.tracked)
		}
	}
}
