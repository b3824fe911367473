package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	healthy := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		mode       string
		checks     map[string]CheckFunc
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "basic mode skips probes",
			mode:       "",
			checks:     map[string]CheckFunc{"database": down},
			wantStatus: http.StatusOK,
		},
		{
			name:       "extended mode all healthy",
			mode:       "extended",
			checks:     map[string]CheckFunc{"database": healthy, "redis": healthy},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"database": "healthy", "redis": "healthy"},
		},
		{
			name:       "extended mode with failing dependency",
			mode:       "extended",
			checks:     map[string]CheckFunc{"database": healthy, "rabbitmq": down},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"database": "healthy", "rabbitmq": "unhealthy: connection refused"},
		},
		{
			name:       "nil probe is skipped",
			mode:       "extended",
			checks:     map[string]CheckFunc{"database": healthy, "rabbitmq": nil},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"database": "healthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(tt.checks)
			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz?mode="+tt.mode, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			body := decodeBody(t, w)
			checks, _ := body["checks"].(map[string]any)
			if len(checks) != len(tt.wantChecks) {
				t.Fatalf("Expected checks %v, got %v", tt.wantChecks, body["checks"])
			}
			for name, want := range tt.wantChecks {
				if checks[name] != want {
					t.Errorf("check %s = %v, want %q", name, checks[name], want)
				}
			}
		})
	}
}

func TestHealthChecker_ProbeGetsDeadline(t *testing.T) {
	t.Parallel()

	var hasDeadline bool
	h := NewHealthChecker(map[string]CheckFunc{"database": func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	}})
	h.HealthCheck(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))

	if !hasDeadline {
		t.Error("Expected probe context to carry a deadline")
	}
}
