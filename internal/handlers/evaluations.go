package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/evaluation"
)

// Evaluations is the booth evaluation flow.
type Evaluations interface {
	Start(ctx context.Context, userID, boothID string) (*models.Evaluation, error)
	Complete(ctx context.Context, userID, boothID string, in models.EvaluationInput) (*models.Evaluation, error)
	Get(ctx context.Context, userID, boothID string) (*models.Evaluation, error)
	List(ctx context.Context, userID string) ([]*models.Evaluation, error)
	DeleteRecommendation(ctx context.Context, userID, boothID string) error
	Finish(ctx context.Context, userID string) error
}

var _ Evaluations = (*evaluation.Service)(nil)

// EvaluationHandler handles booth evaluation requests
type EvaluationHandler struct {
	evaluations Evaluations
	logger      *zap.Logger
}

// NewEvaluationHandler creates a new evaluation handler
func NewEvaluationHandler(evaluations Evaluations, logger *zap.Logger) *EvaluationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationHandler{evaluations: evaluations, logger: logger}
}

// RegisterRoutes registers evaluation routes on the /me router.
// "finish" is registered before "{booth_id}" so it is never taken for a booth id.
func (h *EvaluationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/evaluations", h.ListEvaluations).Methods("GET")
	r.HandleFunc("/evaluations/finish", h.Finish).Methods("POST")
	r.HandleFunc("/evaluations/{booth_id}/start", h.StartEvaluation).Methods("POST")
	r.HandleFunc("/evaluations/{booth_id}", h.CompleteEvaluation).Methods("PUT")
	r.HandleFunc("/evaluations/{booth_id}", h.GetEvaluation).Methods("GET")
	r.HandleFunc("/recommendations/{booth_id}", h.DeleteRecommendation).Methods("DELETE")
}

// StartEvaluation opens an evaluation for a booth
func (h *EvaluationHandler) StartEvaluation(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	e, err := h.evaluations.Start(r.Context(), sess.UserID, mux.Vars(r)["booth_id"])
	if err != nil {
		respondServiceError(w, r, h.logger, "start evaluation", err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

// CompleteEvaluation submits ratings for an open evaluation
func (h *EvaluationHandler) CompleteEvaluation(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	var in models.EvaluationInput
	if err := decodeJSON(r, &in, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	e, err := h.evaluations.Complete(r.Context(), sess.UserID, mux.Vars(r)["booth_id"], in)
	if err != nil {
		respondServiceError(w, r, h.logger, "complete evaluation", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// GetEvaluation returns one evaluation
func (h *EvaluationHandler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	e, err := h.evaluations.Get(r.Context(), sess.UserID, mux.Vars(r)["booth_id"])
	if err != nil {
		respondServiceError(w, r, h.logger, "load evaluation", err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// ListEvaluations returns every evaluation of the visitor
func (h *EvaluationHandler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	evals, err := h.evaluations.List(r.Context(), sess.UserID)
	if err != nil {
		respondServiceError(w, r, h.logger, "list evaluations", err)
		return
	}
	respondJSON(w, http.StatusOK, evals)
}

// DeleteRecommendation hides a recommended booth from the visitor's evaluation list
func (h *EvaluationHandler) DeleteRecommendation(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	if err := h.evaluations.DeleteRecommendation(r.Context(), sess.UserID, mux.Vars(r)["booth_id"]); err != nil {
		respondServiceError(w, r, h.logger, "delete recommendation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Finish marks the evaluation phase as done
func (h *EvaluationHandler) Finish(w http.ResponseWriter, r *http.Request) {
	sess, ok := visitorSession(w, r)
	if !ok {
		return
	}
	if err := h.evaluations.Finish(r.Context(), sess.UserID); err != nil {
		respondServiceError(w, r, h.logger, "finish evaluations", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "finished"})
}
