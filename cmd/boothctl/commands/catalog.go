package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/logger"
)

// NewCatalogCmd creates the catalog command
func NewCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the booth catalog",
	}
	cmd.AddCommand(newCatalogValidateCmd())
	return cmd
}

func newCatalogValidateCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate [path-or-url]",
		Short: "Parse the catalog and report kept and dropped lines",
		Long:  "Parse the JSON Lines booth catalog. Defaults to CATALOG_SOURCE. Fails when no booth survives parsing.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := os.Getenv("CATALOG_SOURCE")
			if len(args) == 1 {
				source = args[0]
			}
			if source == "" {
				return fmt.Errorf("catalog source is required (argument or CATALOG_SOURCE)")
			}

			zapLogger, err := logger.NewDevelopmentLogger(verbose)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() {
				_ = logger.Sync(zapLogger)
			}()

			loader := catalog.NewLoader(source, zapLogger)
			c, err := loader.Load(cmd.Context())
			if err != nil {
				return err
			}
			stats := loader.Stats()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source: %s\n", source)
			fmt.Fprintf(out, "Booths: %d\n", stats.Kept)
			fmt.Fprintf(out, "Dropped lines: %d\n", stats.Dropped)

			if c.Len() == 0 {
				return fmt.Errorf("catalog has no valid booths")
			}

			categories := map[string]int{}
			for _, b := range c.All() {
				categories[b.CategoryName()]++
			}
			fmt.Fprintf(out, "Categories: %d\n", len(categories))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	return cmd
}
