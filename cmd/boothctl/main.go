package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/myeongseok-gwon/coex-search-temp/cmd/boothctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:           "boothctl",
		Short:         "Operator tool for the booth recommendation service",
		Long:          "CLI tool for validating the booth catalog, backfilling embeddings, managing floor plan positions and trying recommendations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewCatalogCmd())
	rootCmd.AddCommand(commands.NewEmbeddingsCmd())
	rootCmd.AddCommand(commands.NewPositionsCmd())
	rootCmd.AddCommand(commands.NewRecommendCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
