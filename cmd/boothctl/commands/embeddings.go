package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/queue"
	"github.com/myeongseok-gwon/coex-search-temp/internal/workers"
)

// NewEmbeddingsCmd creates the embeddings command
func NewEmbeddingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "embeddings",
		Short: "Manage stored booth embeddings",
	}
	cmd.AddCommand(newEmbeddingsBackfillCmd())
	cmd.AddCommand(newEmbeddingsStatusCmd())
	cmd.AddCommand(newEmbeddingsPurgeDLQCmd())
	return cmd
}

func newEmbeddingsBackfillCmd() *cobra.Command {
	var (
		spacing time.Duration
		dryRun  bool
		debug   bool
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Enqueue embedding jobs for booths without a stored vector",
		Long:  "Compare the catalog with booth_embeddings and enqueue one booth_embedding job per missing booth. Jobs become ready --spacing apart so the worker paces the embedding endpoint.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), debug)
			if err != nil {
				return err
			}
			defer e.Close()

			booths := catalog.NewLoader(e.cfg.CatalogSource, e.logger)
			store := database.NewBoothEmbeddingRepository(e.db)
			out := cmd.OutOrStdout()

			if dryRun {
				missing, total, err := workers.NewBackfiller(nil, booths, store, spacing, e.logger).Missing(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Catalog booths: %d\n", total)
				fmt.Fprintf(out, "Missing embeddings: %d\n", len(missing))
				for _, id := range missing {
					fmt.Fprintf(out, "  - %s\n", id)
				}
				return nil
			}

			if err := e.cfg.RequireQueue(); err != nil {
				return err
			}
			jobQueue, err := queue.NewRabbitMQQueue(e.cfg.RabbitMQURL, e.logger)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				_ = jobQueue.Close()
			}()

			result, err := workers.NewBackfiller(jobQueue, booths, store, spacing, e.logger).Schedule(cmd.Context())
			fmt.Fprintf(out, "Catalog booths: %d\n", result.Total)
			fmt.Fprintf(out, "Already embedded: %d\n", result.Existing)
			fmt.Fprintf(out, "Jobs enqueued: %d\n", result.Enqueued)
			return err
		},
	}

	cmd.Flags().DurationVar(&spacing, "spacing", workers.DefaultBackfillSpacing, "Delay between consecutive jobs' earliest start")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List missing booths without enqueueing")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

func newEmbeddingsStatusCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show stored embedding count and queue depth",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), debug)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			store := database.NewBoothEmbeddingRepository(e.db)
			stored, err := store.Count(ctx)
			if err != nil {
				return err
			}
			missing, total, err := workers.NewBackfiller(nil, catalog.NewLoader(e.cfg.CatalogSource, e.logger), store, 0, e.logger).Missing(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Catalog booths: %d\n", total)
			fmt.Fprintf(out, "Stored embeddings: %d\n", stored)
			fmt.Fprintf(out, "Missing embeddings: %d\n", len(missing))

			if e.cfg.RabbitMQURL == "" {
				fmt.Fprintln(out, "Queue: not configured")
				return nil
			}
			jobQueue, err := queue.NewRabbitMQQueue(e.cfg.RabbitMQURL, e.logger)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				_ = jobQueue.Close()
			}()
			stats, err := jobQueue.Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Queue pending: %d\n", stats.Pending)
			fmt.Fprintf(out, "Queue consumers: %d\n", stats.Consumers)
			fmt.Fprintf(out, "Dead-lettered: %d\n", stats.DeadLettered)
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

func newEmbeddingsPurgeDLQCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "purge-dlq",
		Short: "Remove dead-lettered embedding jobs older than a retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()
			if err := e.cfg.RequireQueue(); err != nil {
				return err
			}

			jobQueue, err := queue.NewRabbitMQQueue(e.cfg.RabbitMQURL, e.logger)
			if err != nil {
				return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			defer func() {
				_ = jobQueue.Close()
			}()

			if olderThan <= 0 {
				olderThan = e.cfg.DLQRetention
			}
			n, err := queue.NewGarbageCollector(jobQueue, 0, olderThan, e.logger).RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d dead-lettered job(s) older than %s\n", n, olderThan)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Retention window (default DLQ_RETENTION)")
	return cmd
}
