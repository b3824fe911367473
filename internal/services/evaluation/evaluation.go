// Package evaluation records visitors' ratings of the booths they visit.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	logpkg "github.com/myeongseok-gwon/coex-search-temp/internal/logger"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/validation"
)

// ErrEvaluationClosed is returned when completing an evaluation that already ended.
var ErrEvaluationClosed = errors.New("evaluation is closed")

// Store is the evaluation repository.
type Store interface {
	Start(ctx context.Context, userID, boothID string, at time.Time) (*models.Evaluation, error)
	Complete(ctx context.Context, userID, boothID string, in models.EvaluationInput, at time.Time) (*models.Evaluation, error)
	Get(ctx context.Context, userID, boothID string) (*models.Evaluation, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Evaluation, error)
	SoftDeleteRecommendation(ctx context.Context, userID, boothID string, at time.Time) error
}

// UserStore is the part of the user repository touched by evaluations.
type UserStore interface {
	SaveEvaluationSummary(ctx context.Context, userID string, summary []models.EvaluationSummary) error
	MarkTimestamp(ctx context.Context, userID string, field database.Timestamp, at time.Time) error
}

// Service manages evaluation rows and the per-user rec_eval summary.
type Service struct {
	store  Store
	users  UserStore
	now    func() time.Time
	logger *zap.Logger
}

// NewService creates an evaluation service.
func NewService(store Store, users UserStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, users: users, now: time.Now, logger: logger}
}

// Start opens the evaluation of boothID. Calling it again is harmless and
// never reopens a closed evaluation.
func (s *Service) Start(ctx context.Context, userID, boothID string) (*models.Evaluation, error) {
	if err := checkBoothID(boothID); err != nil {
		return nil, err
	}
	return s.store.Start(ctx, userID, boothID, s.now())
}

// Complete stores the ratings, closes the evaluation and rebuilds rec_eval.
func (s *Service) Complete(ctx context.Context, userID, boothID string, in models.EvaluationInput) (*models.Evaluation, error) {
	if err := checkBoothID(boothID); err != nil {
		return nil, err
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	e, err := s.store.Complete(ctx, userID, boothID, in, s.now())
	if errors.Is(err, database.ErrNotFound) {
		existing, getErr := s.store.Get(ctx, userID, boothID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Closed() {
			return nil, fmt.Errorf("%w: booth %s", ErrEvaluationClosed, boothID)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err := s.rebuildSummary(ctx, userID); err != nil {
		return nil, err
	}
	s.logger.Info("evaluation_completed",
		zap.String("user_id", logpkg.MaskUserID(userID)),
		zap.String("booth_id", boothID),
	)
	return e, nil
}

// Get returns one evaluation.
func (s *Service) Get(ctx context.Context, userID, boothID string) (*models.Evaluation, error) {
	return s.store.Get(ctx, userID, boothID)
}

// List returns all of the user's evaluations.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Evaluation, error) {
	evals, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if evals == nil {
		evals = []*models.Evaluation{}
	}
	return evals, nil
}

// DeleteRecommendation hides boothID from the user's recommendation list.
// The deleted booth also drops out of rec_eval.
func (s *Service) DeleteRecommendation(ctx context.Context, userID, boothID string) error {
	if err := checkBoothID(boothID); err != nil {
		return err
	}
	if err := s.store.SoftDeleteRecommendation(ctx, userID, boothID, s.now()); err != nil {
		return err
	}
	return s.rebuildSummary(ctx, userID)
}

// Finish marks the user's evaluation step as done.
func (s *Service) Finish(ctx context.Context, userID string) error {
	if err := s.users.MarkTimestamp(ctx, userID, database.TimestampEvaluationFinished, s.now()); err != nil {
		return err
	}
	s.logger.Info("evaluation_finished", zap.String("user_id", logpkg.MaskUserID(userID)))
	return nil
}

func (s *Service) rebuildSummary(ctx context.Context, userID string) error {
	evals, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.users.SaveEvaluationSummary(ctx, userID, database.SummarizeEvaluations(evals))
}

func checkBoothID(boothID string) error {
	if !validation.IsBoothID(boothID) {
		return &validation.Error{Fields: map[string]string{"booth_id": "is not a valid booth id"}}
	}
	return nil
}
