package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrRateLimited indicates the API rate limit was exceeded
	ErrRateLimited = errors.New("rate limited")
	// ErrEmptyResponse is returned when the model returns no choices or blank content.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrUnavailable is returned while the LLM circuit breaker is open.
	ErrUnavailable = errors.New("llm unavailable")
)

// APIError represents an error from the LLM provider API
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	RetryAfter  *time.Duration
	IsPermanent bool // true for quota errors, false for rate limits
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// Is lets errors.Is(err, ErrRateLimited) match transient 429 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == 429 && !e.IsPermanent
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 && !apiErr.IsPermanent
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)
	return mentions429(errStr) ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests")
}

// mentions429 looks for a 429 status in an SDK error message. A bare "429"
// substring is not enough: it also appears in host ports and request IDs.
func mentions429(s string) bool {
	for _, marker := range []string{"429 Too Many Requests", "status 429", `"code":429`, `"code": 429`} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}

	errStr := err.Error()
	return strings.Contains(errStr, "insufficient_quota") ||
		strings.Contains(errStr, "quota")
}

// ExtractAPIError pulls status details out of an SDK error message. The
// OpenAI-compatible Gemini endpoint embeds a JSON error body in the message.
// It returns nil for errors that are not rate limit or quota responses.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	errStr := err.Error()
	if !mentions429(errStr) {
		return nil
	}

	apiErr := &APIError{
		StatusCode: 429,
		Message:    errStr,
		Type:       "rate_limit_error",
	}

	if body := errorBody(errStr); body != nil {
		if msg, _ := body["message"].(string); msg != "" {
			apiErr.Message = msg
		}
		status, _ := body["status"].(string)
		if typ, _ := body["type"].(string); typ != "" {
			apiErr.Type = typ
		} else if status != "" {
			apiErr.Type = status
		}
		if code, ok := body["code"].(string); ok {
			apiErr.Code = code
		}
		if apiErr.Code == "insufficient_quota" ||
			(status == "RESOURCE_EXHAUSTED" && strings.Contains(strings.ToLower(apiErr.Message), "quota")) {
			apiErr.IsPermanent = true
		}
	}

	retryAfter := 60 * time.Second
	if apiErr.IsPermanent {
		retryAfter = time.Hour
	}
	apiErr.RetryAfter = &retryAfter

	return apiErr
}

// errorBody decodes the JSON object embedded in an error message, descending
// into a nested "error" object when present.
func errorBody(errStr string) map[string]any {
	start := strings.Index(errStr, "{")
	end := strings.LastIndex(errStr, "}")
	if start == -1 || end <= start {
		return nil
	}
	var body map[string]any
	if json.Unmarshal([]byte(errStr[start:end+1]), &body) != nil {
		return nil
	}
	if nested, ok := body["error"].(map[string]any); ok {
		return nested
	}
	return body
}
