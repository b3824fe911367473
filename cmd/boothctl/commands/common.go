// Package commands implements the boothctl subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/config"
	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/logger"
)

// env bundles what every database-backed subcommand needs.
type env struct {
	cfg    *config.Config
	db     *database.DB
	logger *zap.Logger
}

func openEnv(ctx context.Context, debug bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	zapLogger, err := logger.NewDevelopmentLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &env{cfg: cfg, db: db, logger: zapLogger}, nil
}

func (e *env) Close() {
	if err := e.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
	}
	_ = logger.Sync(e.logger)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
