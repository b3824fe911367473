package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/validation"
)

// NewPositionsCmd creates the positions command
func NewPositionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "Manage booth floor plan positions",
		Long:  "Positions are normalized coordinates in [0, 1] on the floor plan image",
	}
	cmd.AddCommand(newPositionsListCmd())
	cmd.AddCommand(newPositionsSetCmd())
	cmd.AddCommand(newPositionsDeleteCmd())
	return cmd
}

func newPositionsListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List booth positions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			positions, err := database.NewBoothPositionRepository(e.db).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list positions: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, positions)
			}
			if len(positions) == 0 {
				fmt.Fprintln(out, "No booth positions recorded")
				return nil
			}
			for _, p := range positions {
				fmt.Fprintf(out, "%-12s x=%.4f y=%.4f\n", p.BoothID, p.X, p.Y)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newPositionsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <booth-id> <x> <y>",
		Short: "Create or move a booth position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			saved, err := database.NewBoothPositionRepository(e.db).Upsert(cmd.Context(), pos.BoothID, pos.X, pos.Y)
			if err != nil {
				return fmt.Errorf("failed to save position: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s at x=%.4f y=%.4f\n", saved.BoothID, saved.X, saved.Y)
			return nil
		},
	}
}

func newPositionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <booth-id>",
		Short: "Remove a booth position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !validation.IsBoothID(args[0]) {
				return fmt.Errorf("invalid booth id %q", args[0])
			}

			e, err := openEnv(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := database.NewBoothPositionRepository(e.db).Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete position: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

// parsePosition validates "<booth-id> <x> <y>" before any connection is opened.
func parsePosition(args []string) (models.BoothPosition, error) {
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return models.BoothPosition{}, fmt.Errorf("invalid x %q: %w", args[1], err)
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return models.BoothPosition{}, fmt.Errorf("invalid y %q: %w", args[2], err)
	}
	pos := models.BoothPosition{BoothID: args[0], X: x, Y: y}
	if err := validation.Struct(pos); err != nil {
		return models.BoothPosition{}, err
	}
	return pos, nil
}
