package ai

import "context"

// Completer sends one prompt to a chat model and returns the raw text reply.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is a single-turn chat request.
type CompletionRequest struct {
	// Operation names the call for logs and metrics, e.g. "recommend_rag".
	Operation string
	System    string
	Prompt    string
	// JSON asks the model for a JSON object reply. Leave false when the
	// expected reply is a top-level array.
	JSON        bool
	Temperature *float64
}
