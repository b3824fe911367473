package embedding

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimitExceeded is the failure kind when the final attempt was rejected with HTTP 429.
	ErrRateLimitExceeded = errors.New("embedding rate limit exceeded")
	// ErrEmbeddingService is the failure kind for every other exhausted or rejected call.
	ErrEmbeddingService = errors.New("embedding service error")
	// ErrEmptyText is returned without calling the endpoint.
	ErrEmptyText = errors.New("embedding text is empty")
)

// EmbeddingError describes a failed Embed call after the retry budget is spent.
// errors.Is matches both Kind and the underlying cause.
type EmbeddingError struct {
	Kind       error
	StatusCode int
	Attempts   int
	Err        error
}

func (e *EmbeddingError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v after %d attempt(s) (status %d): %v", e.Kind, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%v after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *EmbeddingError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// statusError is a non-2xx response from the endpoint.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("embedding endpoint returned status %d: %s", e.StatusCode, e.Body)
}
