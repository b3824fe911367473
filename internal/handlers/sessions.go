package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	logpkg "github.com/myeongseok-gwon/coex-search-temp/internal/logger"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/onboarding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/request"
)

// Onboarding is the visitor flow driven by the /me routes.
type Onboarding interface {
	Enter(ctx context.Context, identifier string) (*onboarding.Snapshot, error)
	Current(ctx context.Context, userID string) (*onboarding.Snapshot, error)
	SubmitForm(ctx context.Context, userID string, p models.UserProfile) (*onboarding.Snapshot, error)
	SubmitFollowUp(ctx context.Context, userID string, answers []string) (*onboarding.Snapshot, error)
	Skip(ctx context.Context, userID string) (*onboarding.Snapshot, error)
	Regenerate(ctx context.Context, userID string) (*onboarding.Snapshot, error)
	SubmitExitRating(ctx context.Context, userID string, ratings models.ExitRatings) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(s request.Session) (string, time.Time, error)
}

var _ Onboarding = (*onboarding.Service)(nil)

// SessionHandler handles login.
type SessionHandler struct {
	flow   Onboarding
	tokens TokenIssuer
	logger *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(flow Onboarding, tokens TokenIssuer, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{flow: flow, tokens: tokens, logger: logger}
}

// RegisterRoutes registers session routes. They are public.
func (h *SessionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/sessions", h.CreateSession).Methods("POST")
}

// CreateSessionRequest represents a login request
type CreateSessionRequest struct {
	Identifier string `json:"identifier"`
}

// CreateSessionResponse carries the bearer token and where the client should go next.
type CreateSessionResponse struct {
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
	Admin     bool                 `json:"admin"`
	State     *onboarding.Snapshot `json:"state"`
}

// CreateSession logs a visitor in by phone number, or opens the admin view for the sentinel.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	snap, err := h.flow.Enter(r.Context(), req.Identifier)
	if err != nil {
		respondServiceError(w, r, h.logger, "create session", err)
		return
	}

	sess := request.Session{UserID: snap.UserID}
	if snap.State == onboarding.StateAdmin {
		sess = request.Session{UserID: models.AdminUserID, Admin: true}
	}
	token, expiresAt, err := h.tokens.Issue(sess)
	if err != nil {
		h.logger.Error("session_issue_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create session")
		return
	}

	h.logger.Info("session_created",
		zap.String("user_id", logpkg.MaskUserID(sess.UserID)),
		zap.Bool("admin", sess.Admin),
		zap.String("state", string(snap.State)),
	)
	respondJSON(w, http.StatusCreated, CreateSessionResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     sess.Admin,
		State:     snap,
	})
}
