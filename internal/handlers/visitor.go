package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	logpkg "github.com/myeongseok-gwon/coex-search-temp/internal/logger"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/onboarding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/tracking"
	"github.com/myeongseok-gwon/coex-search-temp/internal/validation"
)

// MaxLocationBatch is the largest number of GPS points accepted per request.
const MaxLocationBatch = 500

// VisitorStore is the part of the user repository written directly by handlers.
type VisitorStore interface {
	SaveFinalSurvey(ctx context.Context, userID string, s models.FinalSurvey, at time.Time) error
	IncrementModalClick(ctx context.Context, userID, boothID string) (int, error)
}

var _ VisitorStore = (*database.UserRepository)(nil)

// LocationTracker looks up live tracking sessions.
type LocationTracker interface {
	Get(userID string) (*tracking.Session, bool)
}

// VisitorHandler handles the signed-in visitor's onboarding, recommendation and exit routes.
type VisitorHandler struct {
	flow    Onboarding
	users   VisitorStore
	tracker LocationTracker
	now     func() time.Time
	logger  *zap.Logger
}

// NewVisitorHandler creates a new visitor handler
func NewVisitorHandler(flow Onboarding, users VisitorStore, tracker LocationTracker, logger *zap.Logger) *VisitorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisitorHandler{flow: flow, users: users, tracker: tracker, now: time.Now, logger: logger}
}

// RegisterRoutes registers visitor routes
// The router should already have the /me prefix and the auth middleware.
func (h *VisitorHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/state", h.GetState).Methods("GET")
	r.HandleFunc("/form", h.SubmitForm).Methods("POST")
	r.HandleFunc("/followup", h.SubmitFollowUp).Methods("POST")
	r.HandleFunc("/skip", h.Skip).Methods("POST")
	r.HandleFunc("/recommendations", h.GetRecommendations).Methods("GET")
	r.HandleFunc("/recommendations/regenerate", h.Regenerate).Methods("POST")
	r.HandleFunc("/recommendations/{booth_id}/clicks", h.RecordClick).Methods("POST")
	r.HandleFunc("/survey", h.SubmitSurvey).Methods("POST")
	r.HandleFunc("/exit", h.Exit).Methods("POST")
	r.HandleFunc("/locations", h.RecordLocations).Methods("POST")
}

// FollowUpRequest carries the answers to the generated follow-up questions.
type FollowUpRequest struct {
	Answers []string `json:"answers"`
}

// LocationBatch is a batch of samples, optionally with a client-side location error.
type LocationBatch struct {
	Points []models.GPSPoint `json:"points" validate:"dive"`
	Error  *LocationError    `json:"error,omitempty"`
}

// LocationError is reported when the browser could not provide a position.
type LocationError struct {
	Code    string `json:"code" validate:"required,max=64"`
	Message string `json:"message" validate:"max=500"`
}

// GetState returns the visitor's onboarding snapshot
func (h *VisitorHandler) GetState(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	snap, err := h.flow.Current(r.Context(), sess.UserID)
	if err != nil {
		respondServiceError(w, r, h.logger, "load state", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// SubmitForm saves the preference form
func (h *VisitorHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	var profile models.UserProfile
	if err := decodeJSON(r, &profile, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	snap, err := h.flow.SubmitForm(r.Context(), sess.UserID, profile)
	if err != nil {
		respondServiceError(w, r, h.logger, "submit form", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// SubmitFollowUp answers the follow-up questions
func (h *VisitorHandler) SubmitFollowUp(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	var req FollowUpRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	snap, err := h.flow.SubmitFollowUp(r.Context(), sess.UserID, req.Answers)
	if err != nil {
		respondServiceError(w, r, h.logger, "submit follow-up", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// Skip skips the follow-up questions
func (h *VisitorHandler) Skip(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	snap, err := h.flow.Skip(r.Context(), sess.UserID)
	if err != nil {
		respondServiceError(w, r, h.logger, "skip follow-up", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// GetRecommendations returns the stored recommendations of a COMPLETE visitor
func (h *VisitorHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	snap, err := h.flow.Current(r.Context(), sess.UserID)
	if err != nil {
		respondServiceError(w, r, h.logger, "load recommendations", err)
		return
	}
	if snap.State != onboarding.StateComplete {
		respondJSONError(w, http.StatusConflict, "Conflict", "Recommendations are available once onboarding is complete")
		return
	}
	respondJSON(w, http.StatusOK, snap.Recommendations)
}

// Regenerate replaces the visitor's recommendations
func (h *VisitorHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	snap, err := h.flow.Regenerate(r.Context(), sess.UserID)
	if err != nil {
		respondServiceError(w, r, h.logger, "regenerate recommendations", err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// RecordClick counts an opened recommendation detail modal
func (h *VisitorHandler) RecordClick(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	boothID := mux.Vars(r)["booth_id"]
	if !validation.IsBoothID(boothID) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid booth ID")
		return
	}
	count, err := h.users.IncrementModalClick(r.Context(), sess.UserID, boothID)
	if err != nil {
		respondServiceError(w, r, h.logger, "record click", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"booth_id": boothID, "clicks": count})
}

// SubmitSurvey stores the final survey
func (h *VisitorHandler) SubmitSurvey(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	var survey models.FinalSurvey
	if err := decodeJSON(r, &survey, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := validation.Struct(survey); err != nil {
		respondServiceError(w, r, h.logger, "submit survey", err)
		return
	}
	survey.FinalPros = validation.SanitizeText(survey.FinalPros)
	survey.FinalCons = validation.SanitizeText(survey.FinalCons)

	if err := h.users.SaveFinalSurvey(r.Context(), sess.UserID, survey, h.now()); err != nil {
		respondServiceError(w, r, h.logger, "submit survey", err)
		return
	}
	h.logger.Info("final_survey_submitted", zap.String("user_id", logpkg.MaskUserID(sess.UserID)))
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// Exit stores the exit ratings and ends location tracking
func (h *VisitorHandler) Exit(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	var ratings models.ExitRatings
	if err := decodeJSON(r, &ratings, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if err := h.flow.SubmitExitRating(r.Context(), sess.UserID, ratings); err != nil {
		respondServiceError(w, r, h.logger, "submit exit ratings", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "exited"})
}

// RecordLocations appends GPS samples to the visitor's live tracking session.
// Without a live session the batch is acknowledged and dropped.
func (h *VisitorHandler) RecordLocations(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	var batch LocationBatch
	if err := decodeJSON(r, &batch, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	if len(batch.Points) > MaxLocationBatch {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("At most %d points per request", MaxLocationBatch))
		return
	}
	if err := validation.Struct(batch); err != nil {
		respondServiceError(w, r, h.logger, "record locations", err)
		return
	}

	track, live := h.tracker.Get(sess.UserID)
	if !live {
		h.logger.Debug("locations_without_session",
			zap.String("user_id", logpkg.MaskUserID(sess.UserID)),
			zap.Int("points", len(batch.Points)),
		)
		respondJSON(w, http.StatusOK, map[string]any{"recorded": 0, "tracking": false})
		return
	}

	if batch.Error != nil {
		track.ReportError(batch.Error.Code, batch.Error.Message)
	}
	recorded := 0
	for _, p := range batch.Points {
		if err := track.Record(r.Context(), p); err != nil {
			respondServiceError(w, r, h.logger, "record locations", err)
			return
		}
		recorded++
	}
	respondJSON(w, http.StatusOK, map[string]any{"recorded": recorded, "tracking": true})
}
