package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/ai"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/embedding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/recommend"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/vectorsearch"
	"github.com/myeongseok-gwon/coex-search-temp/internal/validation"
)

// NewRecommendCmd creates the recommend command
func NewRecommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Exercise the recommendation pipeline",
	}
	cmd.AddCommand(newRecommendDryRunCmd())
	return cmd
}

func newRecommendDryRunCmd() *cobra.Command {
	var (
		profilePath  string
		withFollowUp bool
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "dry-run",
		Short: "Generate recommendations for a profile without storing anything",
		Long:  "Read a preference profile as JSON (from --profile or stdin), run retrieval and the LLM, and print the result.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProfile(cmd.InOrStdin(), profilePath)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd.Context(), debug)
			if err != nil {
				return err
			}
			defer e.Close()
			if e.cfg.GeminiAPIKey == "" {
				return fmt.Errorf("GEMINI_API_KEY is required")
			}

			embedder := embedding.NewClient(e.cfg.GeminiBaseURL, e.cfg.EmbeddingModel, e.cfg.GeminiAPIKey, e.logger)
			searcher := vectorsearch.NewService(database.NewBoothEmbeddingRepository(e.db), embedder, e.logger,
				vectorsearch.WithCandidateCount(e.cfg.CandidateCount),
				vectorsearch.WithSectorBalanced(e.cfg.RetrievalSectorBalanced),
			)
			llm := ai.NewOpenAIProvider(e.cfg.GeminiAPIKey, e.cfg.LLMBaseURL, e.cfg.LLMModel, e.logger, debug)
			svc := recommend.NewService(searcher, catalog.NewLoader(e.cfg.CatalogSource, e.logger), llm, e.logger,
				recommend.WithMatchThreshold(e.cfg.MatchThreshold),
			)

			result := dryRunResult{}
			if withFollowUp {
				if result.FollowUp, err = svc.FollowUp(cmd.Context(), p); err != nil {
					return err
				}
			}
			if result.Recommendations, err = svc.Recommend(cmd.Context(), p); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&profilePath, "profile", "", "Path to a profile JSON file (default stdin)")
	cmd.Flags().BoolVar(&withFollowUp, "followup", false, "Also generate the follow-up questions")
	cmd.Flags().BoolVar(&debug, "debug", false, "Log LLM prompts and responses")
	return cmd
}

type dryRunResult struct {
	FollowUp        *models.FollowUp        `json:"followup,omitempty"`
	Recommendations []models.Recommendation `json:"recommendations"`
}

func readProfile(stdin io.Reader, path string) (models.UserProfile, error) {
	r := stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return models.UserProfile{}, fmt.Errorf("failed to open profile: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		r = f
	}

	var p models.UserProfile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	if err := validation.Struct(p); err != nil {
		return models.UserProfile{}, err
	}
	return p, nil
}
