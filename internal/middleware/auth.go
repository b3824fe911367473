package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/request"
)

// TokenVerifier turns a bearer token into a session.
type TokenVerifier interface {
	Verify(token string) (*request.Session, error)
}

// Auth requires a valid session token and stores the session in the request context.
func Auth(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Missing Authorization header", logger)
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid Authorization header format", logger)
				return
			}

			session, err := verifier.Verify(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("session_verification_failed",
					zap.Error(err),
					zap.String("request_id", request.RequestIDFromContext(r.Context())),
				)
				respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired session", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithSession(r.Context(), session)))
		})
	}
}

// RequireAdmin rejects sessions that did not log in with the admin identifier.
// It must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := request.SessionFromContext(r)
		if s == nil {
			respondError(w, r, http.StatusUnauthorized, "Unauthorized", "Authentication required", nil)
			return
		}
		if !s.Admin {
			respondError(w, r, http.StatusForbidden, "Forbidden", "Admin access required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
