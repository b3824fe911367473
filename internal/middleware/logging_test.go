package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
		wantRoute     string
	}{
		{name: "GET booth", method: http.MethodGet, path: "/booths/A1001", handlerStatus: http.StatusOK, wantRoute: "/booths/{id}"},
		{name: "POST form", method: http.MethodPost, path: "/me/form", handlerStatus: http.StatusCreated, wantRoute: "/me/form"},
		{name: "unmatched", method: http.MethodGet, path: "/notfound", handlerStatus: http.StatusNotFound, wantRoute: "unmatched"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zap.InfoLevel)
			var seenRoute string
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenRoute = routeTemplate(r)
				w.WriteHeader(tt.handlerStatus)
			})

			router := mux.NewRouter()
			router.Handle("/booths/{id}", handler)
			router.Handle("/me/form", handler)
			router.NotFoundHandler = handler
			router.Use(Logging(zap.New(core)))

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.handlerStatus {
				t.Errorf("Expected status %d, got %d", tt.handlerStatus, w.Code)
			}
			if tt.wantRoute != "unmatched" && seenRoute != tt.wantRoute {
				t.Errorf("routeTemplate() = %q, want %q", seenRoute, tt.wantRoute)
			}
			if tt.wantRoute == "unmatched" {
				// mux middleware only wraps matched routes.
				return
			}
			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected 1 http_request log, got %d", len(entries))
			}
			if got := entries[0].ContextMap()["status_code"]; got != int64(tt.handlerStatus) {
				t.Errorf("Expected logged status %d, got %v", tt.handlerStatus, got)
			}
		})
	}
}

func TestRouteTemplate_NoRoute(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if got := routeTemplate(req); got != "unmatched" {
		t.Errorf("routeTemplate() = %q, want unmatched", got)
	}
}
