package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/breaker"
	"github.com/myeongseok-gwon/coex-search-temp/internal/metrics"
	"github.com/myeongseok-gwon/coex-search-temp/internal/request"
)

const (
	// DefaultModel is the default model to use
	DefaultModel = "gemini-2.5-flash-lite"
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 60 * time.Second
)

// OpenAIProvider implements Completer against any OpenAI-compatible chat
// completions endpoint.
type OpenAIProvider struct {
	client    openai.Client
	model     string
	breaker   *gobreaker.CircuitBreaker[string]
	logger    *zap.Logger
	debugMode bool
}

// ProviderOption configures an OpenAIProvider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	requestOptions []option.RequestOption
	breaker        breaker.Settings
}

// WithRequestOptions appends SDK request options, e.g. option.WithMaxRetries.
func WithRequestOptions(opts ...option.RequestOption) ProviderOption {
	return func(o *providerOptions) { o.requestOptions = append(o.requestOptions, opts...) }
}

// WithBreakerSettings overrides the circuit breaker thresholds.
func WithBreakerSettings(s breaker.Settings) ProviderOption {
	return func(o *providerOptions) { o.breaker = s }
}

// NewOpenAIProvider creates a new provider with logger support
func NewOpenAIProvider(apiKey, baseURL, model string, logger *zap.Logger, debugMode bool, opts ...ProviderOption) *OpenAIProvider {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := providerOptions{breaker: breaker.DefaultSettings()}
	for _, opt := range opts {
		opt(&o)
	}

	requestOptions := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	}, o.requestOptions...)

	return &OpenAIProvider{
		client:    openai.NewClient(requestOptions...),
		model:     model,
		breaker:   breaker.New[string]("llm", o.breaker, logger),
		logger:    logger,
		debugMode: debugMode,
	}
}

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Complete sends one system+user prompt pair and returns the reply text.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	content, err := p.breaker.Execute(func() (string, error) {
		return p.complete(ctx, req)
	})
	if breaker.IsOpen(err) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	metrics.RecordLLMRequest(req.Operation, err)
	return content, err
}

func (p *OpenAIProvider) complete(ctx context.Context, req CompletionRequest) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(p.model),
		Messages: messages,
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	requestID := request.RequestIDFromContext(ctx)
	if p.debugMode {
		p.logger.Debug("llm_api_request",
			zap.String("operation", req.Operation),
			zap.String("model", p.model),
			zap.Int("prompt_length", len(req.Prompt)),
			zap.String("prompt_preview", SanitizePrompt(req.Prompt, true)),
			zap.String("request_id", requestID),
		)
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)
	if err != nil {
		p.logger.Warn("llm_api_error",
			zap.String("operation", req.Operation),
			zap.String("model", p.model),
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.Duration("latency_ms", latency),
		)
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("%s request failed: %w", req.Operation, apiErr)
		}
		return "", fmt.Errorf("%s request failed: %w", req.Operation, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", req.Operation, ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	if p.debugMode {
		p.logger.Debug("llm_api_response",
			zap.String("operation", req.Operation),
			zap.String("model", p.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", SanitizeResponse(content, true)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s: %w", req.Operation, ErrEmptyResponse)
	}
	return content, nil
}

// Ensure OpenAIProvider implements Completer
var _ Completer = (*OpenAIProvider)(nil)

// IsUnavailable reports whether err came from an open circuit breaker.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
