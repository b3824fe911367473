package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultGCInterval is how often the dead letter queue is swept.
	DefaultGCInterval = time.Hour
	// DefaultDLQRetention keeps failed embedding jobs long enough to inspect them.
	DefaultDLQRetention = 7 * 24 * time.Hour

	sweepTimeout = 2 * time.Minute
)

// GarbageCollector sweeps dead-lettered embedding jobs older than a retention window.
type GarbageCollector struct {
	purger    DLQPurger
	interval  time.Duration
	retention time.Duration
	purged    atomic.Int64
	logger    *zap.Logger
}

// NewGarbageCollector creates a collector. Non-positive interval and retention use
// the defaults; a nil purger makes every sweep a no-op.
func NewGarbageCollector(purger DLQPurger, interval, retention time.Duration, logger *zap.Logger) *GarbageCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	if retention <= 0 {
		retention = DefaultDLQRetention
	}
	return &GarbageCollector{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Start sweeps once immediately and then every interval until ctx is cancelled.
// A failed sweep is logged and retried at the next tick.
func (gc *GarbageCollector) Start(ctx context.Context) error {
	ticker := time.NewTicker(gc.interval)
	defer ticker.Stop()
	for {
		if _, err := gc.RunOnce(ctx); err != nil && ctx.Err() == nil {
			gc.logger.Warn("dlq_gc_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sweep and returns the number of purged messages.
func (gc *GarbageCollector) RunOnce(ctx context.Context) (int, error) {
	if gc.purger == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := gc.purger.PurgeOlderThan(ctx, gc.retention)
	if err != nil {
		return n, fmt.Errorf("failed to purge dead letter queue: %w", err)
	}
	if n > 0 {
		total := gc.purged.Add(int64(n))
		gc.logger.Info("dlq_gc_purged",
			zap.Int("count", n),
			zap.Int64("total", total),
			zap.Duration("retention", gc.retention),
		)
	}
	return n, nil
}

// Purged returns the number of messages removed since the collector was created.
func (gc *GarbageCollector) Purged() int64 {
	return gc.purged.Load()
}
