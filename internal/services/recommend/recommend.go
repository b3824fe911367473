// Package recommend produces the ranked booth list for a visitor. It prefers
// retrieval-augmented ranking (vector pool then LLM) and falls back once to
// LLM ranking over the full catalog.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/metrics"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/profile"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/ai"
	"github.com/myeongseok-gwon/coex-search-temp/internal/similarity"
	"github.com/myeongseok-gwon/coex-search-temp/internal/telemetry"
)

const (
	// MaxRecommendations is the length of a recommendation list.
	MaxRecommendations = 20
	// FollowUpQuestionCount is the number of extra questions asked after the form.
	FollowUpQuestionCount = 4
	// DefaultMatchThreshold is the minimum similarity for the candidate pool.
	DefaultMatchThreshold = 0.3

	pathRAG      = "rag"
	pathFallback = "fallback"
)

var (
	// ErrRecommendationFailed is returned when both stages fail.
	ErrRecommendationFailed = errors.New("recommendation failed")
	// ErrFollowUpFailed wraps any failure to produce follow-up questions.
	ErrFollowUpFailed = errors.New("follow-up generation failed")
)

// Kind is the outcome of one stage.
type Kind int

const (
	// Ok means the stage produced a usable list.
	Ok Kind = iota
	// Retry means the stage failed and the next stage should run.
	Retry
	// Fatal means no further stage should run.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Ok:
		return "ok"
	case Retry:
		return "retry"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the outcome of a stage. Reason and Err are set unless Kind is Ok.
type Result struct {
	Kind            Kind
	Recommendations []models.Recommendation
	Reason          string
	Err             error
}

func ok(recs []models.Recommendation) Result {
	return Result{Kind: Ok, Recommendations: recs}
}

func retry(reason string, err error) Result {
	return Result{Kind: Retry, Reason: reason, Err: err}
}

func fatal(reason string, err error) Result {
	return Result{Kind: Fatal, Reason: reason, Err: err}
}

// Retriever builds the candidate pool.
type Retriever interface {
	EmbeddingsExist(ctx context.Context) bool
	SectorBalancedSearch(ctx context.Context, p models.UserProfile, threshold float64) ([]models.BoothSearchResult, error)
}

// CatalogLoader returns the full booth catalog.
type CatalogLoader interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// Service runs the recommendation stages.
type Service struct {
	retriever Retriever
	catalog   CatalogLoader
	llm       ai.Completer
	threshold float64
	tracer    trace.Tracer
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMatchThreshold overrides the candidate pool similarity threshold.
func WithMatchThreshold(threshold float64) Option {
	return func(s *Service) { s.threshold = threshold }
}

// NewService creates a recommendation service.
func NewService(retriever Retriever, loader CatalogLoader, llm ai.Completer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		retriever: retriever,
		catalog:   loader,
		llm:       llm,
		threshold: DefaultMatchThreshold,
		tracer:    telemetry.Tracer("recommend"),
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Recommend returns at most MaxRecommendations unique booths, best first.
func (s *Service) Recommend(ctx context.Context, p models.UserProfile) ([]models.Recommendation, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, span := s.tracer.Start(ctx, "recommend.Recommend")
	defer span.End()

	text := profile.Text(p)

	res := s.ragStage(ctx, p, text)
	metrics.RecordRecommendationStage(pathRAG, res.Kind.String())
	if res.Kind == Retry {
		s.logger.Warn("recommendation_rag_retry",
			zap.String("reason", res.Reason),
			zap.Error(res.Err),
		)
		res = s.fallbackStage(ctx, text)
		metrics.RecordRecommendationStage(pathFallback, res.Kind.String())
	}

	if res.Kind != Ok {
		err := stageError(res)
		span.RecordError(err)
		span.SetStatus(codes.Error, res.Reason)
		s.logger.Error("recommendation_failed",
			zap.String("reason", res.Reason),
			zap.Error(res.Err),
		)
		return nil, err
	}

	recs := similarity.Dedupe(res.Recommendations)
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}
	span.SetAttributes(attribute.Int("recommendations.count", len(recs)))
	s.logger.Info("recommendations_generated", zap.Int("count", len(recs)))
	return recs, nil
}

func stageError(res Result) error {
	if res.Err == nil {
		return fmt.Errorf("%w: %s", ErrRecommendationFailed, res.Reason)
	}
	return fmt.Errorf("%w: %s: %w", ErrRecommendationFailed, res.Reason, res.Err)
}

// ragStage ranks a vector-search candidate pool with the LLM. Every failure is
// a Retry, except a cancelled request which stops the pipeline.
func (s *Service) ragStage(ctx context.Context, p models.UserProfile, text string) Result {
	ctx, span := s.tracer.Start(ctx, "recommend.rag")
	defer span.End()

	if !s.retriever.EmbeddingsExist(ctx) {
		span.SetAttributes(attribute.Bool("embeddings.present", false))
		return retry("no booth embeddings", nil)
	}

	pool, err := s.retriever.SectorBalancedSearch(ctx, p, s.threshold)
	if err != nil {
		return s.ragFailure(ctx, span, "vector search failed", err)
	}
	span.SetAttributes(attribute.Int("candidates.count", len(pool)))
	if len(pool) == 0 {
		return retry("empty candidate pool", nil)
	}

	reply, err := s.llm.Complete(ctx, ai.CompletionRequest{
		Operation: "recommend_rag",
		System:    systemPrompt,
		Prompt:    ragPrompt(text, pool),
	})
	if err != nil {
		return s.ragFailure(ctx, span, "llm call failed", err)
	}

	recs, err := ParseRecommendations(reply)
	if err != nil {
		s.logger.Warn("recommendation_reply_unparseable",
			zap.String("path", pathRAG),
			zap.String("reply_preview", ai.SanitizeResponse(reply, false)),
		)
		return s.ragFailure(ctx, span, "unparseable llm reply", err)
	}

	scores := make(map[string]float64, len(pool))
	for _, b := range pool {
		scores[b.ID] = b.Similarity
	}
	for i := range recs {
		recs[i].Similarity = models.Float64(scores[recs[i].ID])
	}
	return ok(recs)
}

func (s *Service) ragFailure(ctx context.Context, span trace.Span, reason string, err error) Result {
	span.RecordError(err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fatal("request cancelled", ctxErr)
	}
	return retry(reason, err)
}

// fallbackStage ranks the full catalog with the LLM. It runs at most once and
// any failure is Fatal.
func (s *Service) fallbackStage(ctx context.Context, text string) Result {
	ctx, span := s.tracer.Start(ctx, "recommend.fallback")
	defer span.End()

	cat, err := s.catalog.Load(ctx)
	if err != nil {
		span.RecordError(err)
		return fatal("catalog unavailable", err)
	}
	if cat.Len() == 0 {
		return fatal("catalog is empty", nil)
	}
	span.SetAttributes(attribute.Int("catalog.size", cat.Len()))

	prompt, err := fallbackPrompt(text, cat.All())
	if err != nil {
		return fatal("prompt encoding failed", err)
	}

	reply, err := s.llm.Complete(ctx, ai.CompletionRequest{
		Operation: "recommend_fallback",
		System:    systemPrompt,
		Prompt:    prompt,
	})
	if err != nil {
		span.RecordError(err)
		return fatal("llm call failed", err)
	}

	recs, err := ParseRecommendations(reply)
	if err != nil {
		s.logger.Warn("recommendation_reply_unparseable",
			zap.String("path", pathFallback),
			zap.String("reply_preview", ai.SanitizeResponse(reply, false)),
		)
		span.RecordError(err)
		return fatal("unparseable llm reply", err)
	}
	return ok(recs)
}

// FollowUp asks the LLM for an interest summary and open follow-up questions.
func (s *Service) FollowUp(ctx context.Context, p models.UserProfile) (*models.FollowUp, error) {
	ctx, span := s.tracer.Start(ctx, "recommend.FollowUp")
	defer span.End()

	reply, err := s.llm.Complete(ctx, ai.CompletionRequest{
		Operation: "followup",
		System:    systemPrompt,
		Prompt:    followUpPrompt(profile.Text(p)),
		JSON:      true,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", ErrFollowUpFailed, err)
	}

	followUp, err := ParseFollowUp(reply)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("followup_reply_unparseable",
			zap.String("reply_preview", ai.SanitizeResponse(reply, false)),
		)
		return nil, fmt.Errorf("%w: %w", ErrFollowUpFailed, err)
	}
	return followUp, nil
}
