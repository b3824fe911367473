package middleware

import (
	"net/http"
	"time"
)

// DefaultRequestTimeout covers the slowest path: RAG retrieval, an LLM call
// and one fallback LLM call.
const DefaultRequestTimeout = 90 * time.Second

const timeoutBody = `{"success":false,"error":"Request Timeout","message":"The request took too long"}`

// Timeout answers 503 once the handler has run longer than timeout. The
// handler's context is cancelled at the same moment so upstream embedding and
// LLM calls stop.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		guarded := http.TimeoutHandler(next, timeout, timeoutBody)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Headers the handler sets replace this one unless it timed out.
			w.Header().Set("Content-Type", "application/json")
			guarded.ServeHTTP(w, r)
		})
	}
}
