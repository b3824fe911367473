package workers

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/queue"
)

// DefaultBackfillSpacing separates the NotBefore times of consecutive jobs.
const DefaultBackfillSpacing = time.Second

// BackfillResult summarizes one scheduling run.
type BackfillResult struct {
	Total    int `json:"total"`
	Existing int `json:"existing"`
	Enqueued int `json:"enqueued"`
}

// Backfiller schedules embedding jobs for catalog booths that have no stored vector.
type Backfiller struct {
	jobQueue queue.JobQueue
	booths   CatalogSource
	store    EmbeddingStore
	spacing  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewBackfiller creates a new backfiller. spacing <= 0 uses DefaultBackfillSpacing.
func NewBackfiller(jobQueue queue.JobQueue, booths CatalogSource, store EmbeddingStore, spacing time.Duration, logger *zap.Logger) *Backfiller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if spacing <= 0 {
		spacing = DefaultBackfillSpacing
	}
	return &Backfiller{
		jobQueue: jobQueue,
		booths:   booths,
		store:    store,
		spacing:  spacing,
		now:      time.Now,
		logger:   logger,
	}
}

// Missing returns the catalog booth ids without an embedding, in catalog order.
func (b *Backfiller) Missing(ctx context.Context) ([]string, int, error) {
	cat, err := b.booths.Load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load catalog: %w", err)
	}
	booths := cat.All()
	ids := make([]string, len(booths))
	for i, booth := range booths {
		ids[i] = booth.ID
	}

	existing, err := b.store.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if !existing[id] {
			missing = append(missing, id)
		}
	}
	return missing, len(ids), nil
}

// Schedule enqueues one booth_embedding job per missing booth. Each job becomes
// ready one spacing after the previous one so the worker paces the endpoint.
// A failed enqueue stops the run; the jobs already published stay queued.
func (b *Backfiller) Schedule(ctx context.Context) (BackfillResult, error) {
	missing, total, err := b.Missing(ctx)
	if err != nil {
		return BackfillResult{}, err
	}
	result := BackfillResult{Total: total, Existing: total - len(missing)}

	start := b.now()
	for i, id := range missing {
		job := queue.NewBoothEmbeddingJob(id, start.Add(time.Duration(i)*b.spacing))
		if err := b.jobQueue.Enqueue(ctx, job); err != nil {
			b.logger.Error("backfill_enqueue_failed",
				zap.String("booth_id", id),
				zap.Int("enqueued", result.Enqueued),
				zap.Error(err),
			)
			return result, fmt.Errorf("failed to enqueue booth %s: %w", id, err)
		}
		result.Enqueued++
	}

	b.logger.Info("backfill_scheduled",
		zap.Int("total", result.Total),
		zap.Int("existing", result.Existing),
		zap.Int("enqueued", result.Enqueued),
	)
	return result, nil
}
