package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

const evaluationColumns = `user_id, booth_id, photo_url, booth_rating, rec_rating, started_at, ended_at,
	is_deleted, deleted_at, is_irrelevant, is_booth_wrong_info, is_correct`

// EvaluationRepository handles rows of the evaluation table keyed by (user_id, booth_id).
type EvaluationRepository struct {
	db *DB
}

// NewEvaluationRepository creates a new evaluation repository
func NewEvaluationRepository(db *DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Start creates the evaluation or, if it exists and is still open, sets started_at when unset.
func (r *EvaluationRepository) Start(ctx context.Context, userID, boothID string, at time.Time) (*models.Evaluation, error) {
	query := `
		INSERT INTO evaluation (user_id, booth_id, started_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, booth_id) DO UPDATE
		SET started_at = COALESCE(evaluation.started_at, EXCLUDED.started_at)
		RETURNING ` + evaluationColumns

	e, err := scanEvaluation(r.db.QueryRowContext(ctx, query, userID, boothID, at))
	if err != nil {
		return nil, fmt.Errorf("failed to start evaluation: %w", err)
	}
	return e, nil
}

// Complete writes ratings and flags and closes the evaluation. Closed rows are not updated;
// ErrNotFound is returned when no open row matched.
func (r *EvaluationRepository) Complete(ctx context.Context, userID, boothID string, in models.EvaluationInput, at time.Time) (*models.Evaluation, error) {
	query := `
		UPDATE evaluation
		SET booth_rating = $3, rec_rating = $4, photo_url = COALESCE($5, photo_url),
		    is_irrelevant = $6, is_booth_wrong_info = $7, is_correct = $8,
		    ended_at = $9
		WHERE user_id = $1 AND booth_id = $2 AND ended_at IS NULL
		RETURNING ` + evaluationColumns

	e, err := scanEvaluation(r.db.QueryRowContext(ctx, query,
		userID, boothID, in.BoothRating, in.RecRating, in.PhotoURL,
		in.IsIrrelevant, in.IsBoothWrongInfo, in.IsCorrect, at,
	))
	if nf := notFound(err, "open evaluation "+boothID); nf != nil {
		return nil, nf
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete evaluation: %w", err)
	}
	return e, nil
}

// Get retrieves one evaluation.
func (r *EvaluationRepository) Get(ctx context.Context, userID, boothID string) (*models.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluation WHERE user_id = $1 AND booth_id = $2`
	e, err := scanEvaluation(r.db.QueryRowContext(ctx, query, userID, boothID))
	if nf := notFound(err, "evaluation "+boothID); nf != nil {
		return nil, nf
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	return e, nil
}

// ListByUser returns all evaluations of a user, including soft-deleted ones, oldest first.
func (r *EvaluationRepository) ListByUser(ctx context.Context, userID string) ([]*models.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluation WHERE user_id = $1 ORDER BY started_at NULLS LAST, booth_id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []*models.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluations: %w", err)
	}
	return out, nil
}

// SoftDeleteRecommendation marks the booth as removed from the user's list, creating the row if needed.
func (r *EvaluationRepository) SoftDeleteRecommendation(ctx context.Context, userID, boothID string, at time.Time) error {
	query := `
		INSERT INTO evaluation (user_id, booth_id, is_deleted, deleted_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (user_id, booth_id) DO UPDATE
		SET is_deleted = TRUE, deleted_at = COALESCE(evaluation.deleted_at, EXCLUDED.deleted_at)
	`
	if _, err := r.db.ExecContext(ctx, query, userID, boothID, at); err != nil {
		return fmt.Errorf("failed to delete recommendation: %w", err)
	}
	return nil
}

func scanEvaluation(row rowScanner) (*models.Evaluation, error) {
	var (
		e                       models.Evaluation
		photo                   sql.NullString
		boothRating, recRating  sql.NullInt64
		started, ended, deleted sql.NullTime
		isDeleted, isIrrelevant sql.NullBool
		isWrongInfo, isCorrect  sql.NullBool
	)
	if err := row.Scan(
		&e.UserID, &e.BoothID, &photo, &boothRating, &recRating, &started, &ended,
		&isDeleted, &deleted, &isIrrelevant, &isWrongInfo, &isCorrect,
	); err != nil {
		return nil, err
	}
	e.PhotoURL = nullStringPtr(photo)
	e.BoothRating = nullIntPtr(boothRating)
	e.RecRating = nullIntPtr(recRating)
	e.StartedAt = nullTimePtr(started)
	e.EndedAt = nullTimePtr(ended)
	e.DeletedAt = nullTimePtr(deleted)
	e.IsDeleted = isDeleted.Bool
	e.IsIrrelevant = isIrrelevant.Bool
	e.IsBoothWrongInfo = isWrongInfo.Bool
	e.IsCorrect = isCorrect.Bool
	return &e, nil
}

// SummarizeEvaluations builds the rec_eval document from closed, non-deleted evaluations.
func SummarizeEvaluations(evals []*models.Evaluation) []models.EvaluationSummary {
	out := make([]models.EvaluationSummary, 0, len(evals))
	for _, e := range evals {
		if e == nil || e.IsDeleted || !e.Closed() {
			continue
		}
		out = append(out, models.EvaluationSummary{
			ID:          e.BoothID,
			BoothRating: e.BoothRating,
			RecRating:   e.RecRating,
		})
	}
	return out
}
