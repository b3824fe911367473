package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	logpkg "github.com/myeongseok-gwon/coex-search-temp/internal/logger"
	"github.com/myeongseok-gwon/coex-search-temp/internal/onboarding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/request"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/embedding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/evaluation"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/recommend"
	"github.com/myeongseok-gwon/coex-search-temp/internal/validation"
)

const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// sanitizeErrorMessage bounds client-facing messages without splitting a multi-byte rune.
func sanitizeErrorMessage(message string) string {
	return logpkg.SanitizeString(message, maxErrorMessageLength)
}

// respondJSONError sends an error JSON response with sanitized error messages
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	respondJSONErrorDetails(w, status, errorType, message, nil)
}

func respondJSONErrorDetails(w http.ResponseWriter, status int, errorType, message string, details map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   sanitizeErrorMessage(message),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if len(details) > 0 {
		response["details"] = details
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// decodeJSON decodes the request body into v. An empty body leaves v untouched
// when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// visitorSession returns the caller's session, answering 401 when missing.
func visitorSession(w http.ResponseWriter, r *http.Request) (*request.Session, bool) {
	s := request.SessionFromContext(r)
	if s == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return nil, false
	}
	if s.Admin {
		respondJSONError(w, http.StatusForbidden, "Forbidden", "The admin session has no visitor record")
		return nil, false
	}
	return s, true
}

// respondServiceError maps service and storage errors to HTTP responses.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		respondJSONErrorDetails(w, http.StatusBadRequest, "Bad Request", "Validation failed", verr.Fields)
	case errors.Is(err, onboarding.ErrInvalidIdentifier):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Resource not found")
	case errors.Is(err, onboarding.ErrInvalidTransition), errors.Is(err, evaluation.ErrEvaluationClosed):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, recommend.ErrRecommendationFailed):
		logger.Warn(op+"_failed", zap.Error(err), zap.String("request_id", request.RequestIDFromContext(r.Context())))
		respondJSONError(w, http.StatusBadGateway, "Recommendation Failed", "Recommendation generation failed, please retry")
	case errors.Is(err, recommend.ErrFollowUpFailed):
		logger.Warn(op+"_failed", zap.Error(err), zap.String("request_id", request.RequestIDFromContext(r.Context())))
		respondJSONError(w, http.StatusBadGateway, "Follow-up Failed", "Follow-up question generation failed, please retry")
	case errors.Is(err, embedding.ErrRateLimitExceeded), errors.Is(err, embedding.ErrEmbeddingService):
		logger.Warn(op+"_failed", zap.Error(err), zap.String("request_id", request.RequestIDFromContext(r.Context())))
		respondJSONError(w, http.StatusBadGateway, "Search Unavailable", "Search is temporarily unavailable, please retry")
	case errors.Is(err, context.DeadlineExceeded):
		respondJSONError(w, http.StatusGatewayTimeout, "Gateway Timeout", "The request took too long")
	default:
		logger.Error(op+"_failed", zap.Error(err), zap.String("request_id", request.RequestIDFromContext(r.Context())))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to "+op)
	}
}
