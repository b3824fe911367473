package database

import (
	"context"
	"time"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// UserStore is the subset of UserRepository used by the services.
// Services depend on these interfaces so they can be tested with mocks.
type UserStore interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, userID string, startedAt time.Time) (*models.User, error)
	MarkTimestamp(ctx context.Context, userID string, field Timestamp, at time.Time) error
	SaveProfile(ctx context.Context, userID string, profile models.UserProfile, at time.Time) error
	SaveFollowUpQuestions(ctx context.Context, userID string, followUp *models.FollowUp) error
	SaveFollowUpAnswers(ctx context.Context, userID string, answers []string, at time.Time) error
	SaveRecommendations(ctx context.Context, userID string, recs []models.Recommendation, at time.Time) error
	SaveEvaluationSummary(ctx context.Context, userID string, summary []models.EvaluationSummary) error
	SaveFinalSurvey(ctx context.Context, userID string, s models.FinalSurvey, at time.Time) error
	SaveExitRatings(ctx context.Context, userID string, ratings models.ExitRatings, at time.Time) error
	IncrementModalClick(ctx context.Context, userID, boothID string) (int, error)
}

// EvaluationStore is the subset of EvaluationRepository used by the services.
type EvaluationStore interface {
	Start(ctx context.Context, userID, boothID string, at time.Time) (*models.Evaluation, error)
	Complete(ctx context.Context, userID, boothID string, in models.EvaluationInput, at time.Time) (*models.Evaluation, error)
	Get(ctx context.Context, userID, boothID string) (*models.Evaluation, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Evaluation, error)
	SoftDeleteRecommendation(ctx context.Context, userID, boothID string, at time.Time) error
}

// BoothPositionStore is the subset of BoothPositionRepository used by handlers and the CLI.
type BoothPositionStore interface {
	List(ctx context.Context) ([]models.BoothPosition, error)
	Get(ctx context.Context, boothID string) (*models.BoothPosition, error)
	Upsert(ctx context.Context, boothID string, x, y float64) (*models.BoothPosition, error)
	Delete(ctx context.Context, boothID string) error
}

// GPSStore persists location samples.
type GPSStore interface {
	InsertPoints(ctx context.Context, userID string, points []models.GPSPoint) error
	SaveTracking(ctx context.Context, s models.TrackingSummary) (int64, error)
}

// BoothEmbeddingStore is the vector table used by retrieval and the backfill worker.
type BoothEmbeddingStore interface {
	Exists(ctx context.Context) (bool, error)
	SearchSimilar(ctx context.Context, embedding []float64, threshold float64, matchCount int) ([]models.BoothSearchResult, error)
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	Insert(ctx context.Context, booth models.Booth, embedding []float64) error
	Count(ctx context.Context) (int, error)
}

// Ensure concrete types implement the interfaces
var (
	_ UserStore           = (*UserRepository)(nil)
	_ EvaluationStore     = (*EvaluationRepository)(nil)
	_ BoothPositionStore  = (*BoothPositionRepository)(nil)
	_ GPSStore            = (*GPSRepository)(nil)
	_ BoothEmbeddingStore = (*BoothEmbeddingRepository)(nil)
)
