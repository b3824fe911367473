package workers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/metrics"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/queue"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/embedding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/validation"
)

const (
	// DefaultMaxWait is the longest the indexer sleeps for a job that is not ready yet.
	// Jobs further out are put back on the queue.
	DefaultMaxWait = 30 * time.Second

	rateLimitRetryBase = 30 * time.Second
	rateLimitRetryMax  = 10 * time.Minute
	errorRetryBase     = 5 * time.Second
)

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent job failure")

// CatalogSource returns the booth catalog.
type CatalogSource interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// EmbeddingStore is the part of the booth_embeddings repository the worker needs.
type EmbeddingStore interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	Insert(ctx context.Context, booth models.Booth, embedding []float64) error
}

var _ EmbeddingStore = (*database.BoothEmbeddingRepository)(nil)

// EmbeddingIndexer processes booth_embedding jobs
type EmbeddingIndexer struct {
	embedder embedding.Embedder
	booths   CatalogSource
	store    EmbeddingStore
	jobQueue queue.JobQueue // for re-enqueueing jobs with delays
	maxWait  time.Duration
	now      func() time.Time
	sleep    embedding.SleepFunc
	logger   *zap.Logger
}

// NewEmbeddingIndexer creates a new embedding indexer
func NewEmbeddingIndexer(
	embedder embedding.Embedder,
	booths CatalogSource,
	store EmbeddingStore,
	jobQueue queue.JobQueue,
	logger *zap.Logger,
) *EmbeddingIndexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbeddingIndexer{
		embedder: embedder,
		booths:   booths,
		store:    store,
		jobQueue: jobQueue,
		maxWait:  DefaultMaxWait,
		now:      time.Now,
		sleep:    sleepContext,
		logger:   logger,
	}
}

// ProcessBoothEmbeddingJob embeds the job's booth and stores the vector.
// It reports false when the booth already had an embedding.
func (x *EmbeddingIndexer) ProcessBoothEmbeddingJob(ctx context.Context, job *queue.Job) (bool, error) {
	if !validation.IsBoothID(job.BoothID) {
		return false, fmt.Errorf("%w: invalid booth id %q", errPermanent, job.BoothID)
	}

	cat, err := x.booths.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load catalog: %w", err)
	}
	booth, ok := cat.Get(job.BoothID)
	if !ok {
		return false, fmt.Errorf("%w: booth %s is not in the catalog", errPermanent, job.BoothID)
	}

	existing, err := x.store.ExistingIDs(ctx, []string{booth.ID})
	if err != nil {
		return false, err
	}
	if existing[booth.ID] {
		return false, nil
	}

	vec, err := x.embedder.Embed(ctx, booth.EmbeddingText())
	if err != nil {
		if errors.Is(err, embedding.ErrEmptyText) {
			return false, fmt.Errorf("%w: booth %s has no descriptive text", errPermanent, booth.ID)
		}
		return false, fmt.Errorf("failed to embed booth %s: %w", booth.ID, err)
	}
	if err := x.store.Insert(ctx, booth, vec); err != nil {
		return false, err
	}
	return true, nil
}

// ProcessJob processes a job based on its type and settles the message.
func (x *EmbeddingIndexer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if !job.ShouldProcess() && !job.IsExpired() {
		if handled, err := x.waitUntilReady(ctx, msg, job); handled {
			return err
		}
	}

	switch job.Type {
	case queue.JobTypeBoothEmbedding:
		stored, err := x.ProcessBoothEmbeddingJob(ctx, job)
		if err != nil {
			return x.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		result := "skipped"
		if stored {
			result = "stored"
		}
		metrics.EmbeddingJobsProcessed.WithLabelValues(result).Inc()
		x.logger.Info("booth_embedding_job_done",
			zap.String("job_id", job.ID.String()),
			zap.String("booth_id", job.BoothID),
			zap.String("result", result),
		)
		return nil

	default:
		metrics.EmbeddingJobsProcessed.WithLabelValues("dead_lettered").Inc()
		if nackErr := msg.Nack(false); nackErr != nil {
			x.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// waitUntilReady sleeps through a short NotBefore or pushes a distant job back.
// It reports true when the message has been settled and must not be processed.
func (x *EmbeddingIndexer) waitUntilReady(ctx context.Context, msg queue.MessageInterface, job *queue.Job) (bool, error) {
	wait := job.NotBefore.Sub(x.now())
	if wait <= x.maxWait {
		if err := x.sleep(ctx, wait); err != nil {
			_ = msg.Nack(true)
			return true, err
		}
		return false, nil
	}

	if x.jobQueue == nil {
		return false, nil
	}
	if err := x.jobQueue.Enqueue(ctx, job); err != nil {
		_ = msg.Nack(true)
		return true, fmt.Errorf("failed to push back job %s: %w", job.ID, err)
	}
	if err := msg.Ack(); err != nil {
		return true, fmt.Errorf("failed to ack pushed back job: %w", err)
	}
	return true, nil
}

// handleJobError requeues retryable failures with a delay and dead-letters the rest.
func (x *EmbeddingIndexer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("booth_id", job.BoothID),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(err),
	}

	if isPermanent(err) || !job.CanRetry() || x.jobQueue == nil {
		x.logger.Error("booth_embedding_job_dead_lettered", fields...)
		metrics.EmbeddingJobsProcessed.WithLabelValues("dead_lettered").Inc()
		if nackErr := msg.Nack(false); nackErr != nil {
			x.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("job failed (dead-lettered): %w", err)
	}

	rateLimited := errors.Is(err, embedding.ErrRateLimitExceeded)
	delay := retryDelay(job.RetryCount, rateLimited)
	next := job.Delayed(x.now().Add(delay))

	if enqueueErr := x.jobQueue.Enqueue(ctx, next); enqueueErr != nil {
		x.logger.Error("job_requeue_failed", append(fields, zap.NamedError("enqueue_error", enqueueErr))...)
		if nackErr := msg.Nack(true); nackErr != nil {
			x.logger.Error("job_nack_failed", zap.String("job_id", job.ID.String()), zap.Error(nackErr))
		}
		return fmt.Errorf("failed to re-enqueue job: %w", enqueueErr)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		x.logger.Warn("job_ack_failed", zap.String("job_id", job.ID.String()), zap.Error(ackErr))
	}

	metrics.EmbeddingJobsProcessed.WithLabelValues("requeued").Inc()
	x.logger.Warn("booth_embedding_job_requeued",
		append(fields, zap.Bool("rate_limited", rateLimited), zap.Duration("delay", delay))...,
	)
	return nil
}

// isPermanent reports failures that a later attempt cannot fix: bad jobs and
// client errors from the embedding endpoint other than 429.
func isPermanent(err error) bool {
	if errors.Is(err, errPermanent) {
		return true
	}
	var embErr *embedding.EmbeddingError
	if errors.As(err, &embErr) {
		s := embErr.StatusCode
		return s >= 400 && s < 500 && s != http.StatusTooManyRequests && s != http.StatusRequestTimeout
	}
	return false
}

// retryDelay doubles from 30s for rate limits (capped at 10m) and grows linearly
// from 5s for other failures.
func retryDelay(retryCount int, rateLimited bool) time.Duration {
	if !rateLimited {
		return time.Duration(retryCount+1) * errorRetryBase
	}
	d := rateLimitRetryBase << min(retryCount, 5)
	return min(d, rateLimitRetryMax)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
