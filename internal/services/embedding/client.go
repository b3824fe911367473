// Package embedding turns text into vectors using the Gemini embedContent endpoint.
package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/breaker"
	"github.com/myeongseok-gwon/coex-search-temp/internal/metrics"
)

const (
	// TaskSemanticSimilarity is the task type used for both profile and booth embeddings.
	TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"

	defaultMaxAttempts = 3
	rateLimitBackoff   = 2 * time.Second
	errorBackoff       = time.Second
	maxErrorBodyBytes  = 2048
)

// Embedder produces a vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Client calls {baseURL}/models/{model}:embedContent.
type Client struct {
	baseURL     string
	model       string
	apiKey      string
	httpClient  *http.Client
	maxAttempts int
	sleep       SleepFunc
	breaker     *gobreaker.CircuitBreaker[[]float64]
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(sleep SleepFunc) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithBreakerSettings overrides the circuit breaker thresholds.
func WithBreakerSettings(s breaker.Settings) Option {
	return func(c *Client) {
		c.breaker = breaker.New[[]float64]("gemini-embedding", s, c.logger)
	}
}

// NewClient creates an embedding client. baseURL is the API root, e.g.
// https://generativelanguage.googleapis.com/v1beta.
func NewClient(baseURL, model, apiKey string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxAttempts: defaultMaxAttempts,
		sleep:       sleepContext,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = breaker.New[[]float64]("gemini-embedding", breaker.DefaultSettings(), logger)
	}
	return c
}

// Model returns the embedding model name.
func (c *Client) Model() string {
	return c.model
}

// Embed returns the embedding for text. Rate-limited attempts back off
// attempt*2s, other failures 1s, for at most three attempts. When the budget is
// spent the error is an *EmbeddingError of kind ErrRateLimitExceeded or ErrEmbeddingService.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	values, err := c.breaker.Execute(func() ([]float64, error) {
		return c.embedWithRetry(ctx, text)
	})
	if err != nil {
		if breaker.IsOpen(err) {
			return nil, &EmbeddingError{Kind: ErrEmbeddingService, Err: err}
		}
		return nil, err
	}
	return values, nil
}

func (c *Client) embedWithRetry(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		values, status, err := c.embedOnce(ctx, text)
		if err == nil {
			metrics.EmbeddingAttempts.WithLabelValues("success").Inc()
			return values, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		lastErr, lastStatus = err, status
		delay := errorBackoff
		if status == http.StatusTooManyRequests {
			metrics.EmbeddingAttempts.WithLabelValues("rate_limited").Inc()
			delay = time.Duration(attempt) * rateLimitBackoff
		} else {
			metrics.EmbeddingAttempts.WithLabelValues("error").Inc()
		}

		if attempt == c.maxAttempts {
			break
		}

		c.logger.Warn("embedding_retry",
			zap.Int("attempt", attempt),
			zap.Int("status_code", status),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	kind := ErrEmbeddingService
	if lastStatus == http.StatusTooManyRequests {
		kind = ErrRateLimitExceeded
	}
	c.logger.Error("embedding_failed",
		zap.Int("attempts", c.maxAttempts),
		zap.Int("status_code", lastStatus),
		zap.Error(lastErr),
	)
	return nil, &EmbeddingError{Kind: kind, StatusCode: lastStatus, Attempts: c.maxAttempts, Err: lastErr}
}

type embedRequest struct {
	Content  embedContent `json:"content"`
	TaskType string       `json:"taskType"`
}

type embedContent struct {
	Parts []embedPart `json:"parts"`
}

type embedPart struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// embedOnce performs a single request. status is 0 when no response was received.
func (c *Client) embedOnce(ctx context.Context, text string) ([]float64, int, error) {
	body, err := json.Marshal(embedRequest{
		Content:  embedContent{Parts: []embedPart{{Text: text}}},
		TaskType: TaskSemanticSimilarity,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:embedContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Drop the URL from the error; it carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, 0, fmt.Errorf("embedding request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, resp.StatusCode, &statusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(out.Embedding.Values) == 0 {
		return nil, resp.StatusCode, errors.New("embedding response contained no values")
	}
	return out.Embedding.Values, resp.StatusCode, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
