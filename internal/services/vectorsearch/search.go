// Package vectorsearch retrieves candidate booths by embedding similarity.
package vectorsearch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/profile"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/embedding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/similarity"
)

// DefaultCandidateCount is the pool size requested for one recommendation.
const DefaultCandidateCount = 30

// Store is the part of the booth embedding table used for retrieval.
type Store interface {
	Exists(ctx context.Context) (bool, error)
	SearchSimilar(ctx context.Context, embedding []float64, threshold float64, matchCount int) ([]models.BoothSearchResult, error)
}

// Service runs similarity queries against the booth embedding store.
type Service struct {
	store          Store
	embedder       embedding.Embedder
	candidateCount int
	sectorBalanced bool
	logger         *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCandidateCount sets the pool size for SectorBalancedSearch.
func WithCandidateCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.candidateCount = n
		}
	}
}

// WithSectorBalanced enables one query per product sector instead of a single
// whole-profile query.
func WithSectorBalanced(enabled bool) Option {
	return func(s *Service) { s.sectorBalanced = enabled }
}

// NewService creates a vector search service.
func NewService(store Store, embedder embedding.Embedder, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:          store,
		embedder:       embedder,
		candidateCount: DefaultCandidateCount,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns at most topK booths whose similarity is at least threshold, best first.
// No matches is an empty slice, not an error.
func (s *Service) Search(ctx context.Context, vec []float64, threshold float64, topK int) ([]models.BoothSearchResult, error) {
	if topK <= 0 {
		return []models.BoothSearchResult{}, nil
	}
	rows, err := s.store.SearchSimilar(ctx, vec, threshold, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search booth embeddings: %w", err)
	}

	out := make([]models.BoothSearchResult, 0, len(rows))
	for _, r := range rows {
		if r.Similarity >= threshold {
			out = append(out, r)
		}
	}
	sortBySimilarity(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// EmbeddingsExist reports whether any booth embedding is stored. Errors are
// logged and reported as false so callers fall back to the full catalog.
func (s *Service) EmbeddingsExist(ctx context.Context) bool {
	ok, err := s.store.Exists(ctx)
	if err != nil {
		s.logger.Warn("embedding_existence_check_failed", zap.Error(err))
		return false
	}
	return ok
}

// SectorBalancedSearch builds the candidate pool for a profile.
func (s *Service) SectorBalancedSearch(ctx context.Context, p models.UserProfile, threshold float64) ([]models.BoothSearchResult, error) {
	if s.sectorBalanced {
		return s.perSectorSearch(ctx, p, threshold)
	}
	return s.searchText(ctx, profile.Text(p), threshold, s.candidateCount)
}

func (s *Service) perSectorSearch(ctx context.Context, p models.UserProfile, threshold float64) ([]models.BoothSearchResult, error) {
	var lists [][]models.BoothSearchResult
	for _, sector := range profile.Sectors {
		text := profile.SectorText(p, sector)
		if text == "" {
			continue
		}
		results, err := s.searchText(ctx, text, threshold, s.candidateCount)
		if err != nil {
			return nil, fmt.Errorf("sector %q: %w", sector.Name, err)
		}
		s.logger.Debug("sector_search_completed",
			zap.String("sector", sector.Name),
			zap.Int("results", len(results)),
		)
		lists = append(lists, results)
	}

	// A profile with no sector-specific interests still gets a pool.
	if len(lists) == 0 {
		return s.searchText(ctx, profile.Text(p), threshold, s.candidateCount)
	}
	return mergeTop(lists, s.candidateCount), nil
}

// HybridSearch blends a profile query with an explicit keyword query. The
// profile query fills about 70% of topK at a relaxed threshold, the keyword
// query the rest. A blank keyword runs the profile query only.
func (s *Service) HybridSearch(ctx context.Context, p models.UserProfile, keyword string, threshold float64, topK int) ([]models.BoothSearchResult, error) {
	profileResults, err := s.searchText(ctx, profile.Text(p), threshold*0.7, int(math.Floor(float64(topK)*0.7)))
	if err != nil {
		return nil, err
	}

	lists := [][]models.BoothSearchResult{profileResults}
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		keywordResults, err := s.searchText(ctx, keyword, threshold*0.8, int(math.Floor(float64(topK)*0.3)))
		if err != nil {
			return nil, err
		}
		lists = append(lists, keywordResults)
	}
	return mergeTop(lists, topK), nil
}

func (s *Service) searchText(ctx context.Context, text string, threshold float64, topK int) ([]models.BoothSearchResult, error) {
	if topK <= 0 {
		return []models.BoothSearchResult{}, nil
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.Search(ctx, vec, threshold, topK)
}

func mergeTop(lists [][]models.BoothSearchResult, topK int) []models.BoothSearchResult {
	merged := similarity.MergeByID(lists...)
	if merged == nil {
		return []models.BoothSearchResult{}
	}
	sortBySimilarity(merged)
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}

func sortBySimilarity(results []models.BoothSearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
}
