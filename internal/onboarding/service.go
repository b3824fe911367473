package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	logpkg "github.com/myeongseok-gwon/coex-search-temp/internal/logger"
	"github.com/myeongseok-gwon/coex-search-temp/internal/metrics"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/tracking"
	"github.com/myeongseok-gwon/coex-search-temp/internal/validation"
)

// DefaultAdminSentinel is the identifier that opens the admin view.
const DefaultAdminSentinel = "admin"

var (
	// ErrInvalidTransition is returned when an action is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid onboarding transition")
	// ErrInvalidIdentifier is returned for identifiers that are not digits-only phone numbers.
	ErrInvalidIdentifier = errors.New("identifier must be a phone number of digits only")
)

// UserStore is the part of the user repository used by onboarding.
type UserStore interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, userID string, startedAt time.Time) (*models.User, error)
	MarkTimestamp(ctx context.Context, userID string, field database.Timestamp, at time.Time) error
	SaveProfile(ctx context.Context, userID string, profile models.UserProfile, at time.Time) error
	SaveFollowUpQuestions(ctx context.Context, userID string, followUp *models.FollowUp) error
	SaveFollowUpAnswers(ctx context.Context, userID string, answers []string, at time.Time) error
	SaveRecommendations(ctx context.Context, userID string, recs []models.Recommendation, at time.Time) error
	SaveExitRatings(ctx context.Context, userID string, ratings models.ExitRatings, at time.Time) error
}

// Recommender generates follow-up questions and recommendation lists.
type Recommender interface {
	Recommend(ctx context.Context, p models.UserProfile) ([]models.Recommendation, error)
	FollowUp(ctx context.Context, p models.UserProfile) (*models.FollowUp, error)
}

// Tracker owns location tracking sessions.
type Tracker interface {
	Start(userID string) *tracking.Session
	Get(userID string) (*tracking.Session, bool)
	Stop(ctx context.Context, userID string) (*models.TrackingSummary, error)
}

// Snapshot is what the client needs to render the current screen.
type Snapshot struct {
	UserID          string                  `json:"user_id,omitempty"`
	State           State                   `json:"state"`
	Route           Route                   `json:"route"`
	FollowUp        *models.FollowUp        `json:"followup,omitempty"`
	Recommendations []models.Recommendation `json:"recommendations,omitempty"`
}

// Service applies onboarding transitions.
type Service struct {
	users         UserStore
	recommender   Recommender
	tracker       Tracker
	adminSentinel string
	now           func() time.Time
	logger        *zap.Logger
}

// NewService creates an onboarding service. An empty adminSentinel uses DefaultAdminSentinel.
func NewService(users UserStore, recommender Recommender, tracker Tracker, adminSentinel string, logger *zap.Logger) *Service {
	if adminSentinel == "" {
		adminSentinel = DefaultAdminSentinel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:         users,
		recommender:   recommender,
		tracker:       tracker,
		adminSentinel: adminSentinel,
		now:           time.Now,
		logger:        logger,
	}
}

// IsAdmin reports whether identifier is the admin sentinel.
func (s *Service) IsAdmin(identifier string) bool {
	return strings.TrimSpace(identifier) == s.adminSentinel
}

// Enter handles a login. Unknown visitors are created. The returned state is
// the one evaluated on entry, so a first visit reports NEW.
func (s *Service) Enter(ctx context.Context, identifier string) (*Snapshot, error) {
	id := strings.TrimSpace(identifier)
	if id == s.adminSentinel {
		return &Snapshot{State: StateAdmin, Route: RouteAdmin}, nil
	}
	if !validation.IsPhone(id) {
		return nil, ErrInvalidIdentifier
	}

	user, err := s.users.Get(ctx, id)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	state := Status(id, s.adminSentinel, user)

	now := s.now()
	if user == nil {
		if user, err = s.users.Create(ctx, id, now); err != nil {
			return nil, err
		}
		s.logger.Info("user_created", zap.String("user_id", logpkg.MaskUserID(id)))
	}
	if user.StartedAt == nil {
		if err := s.users.MarkTimestamp(ctx, id, database.TimestampStarted, now); err != nil {
			return nil, err
		}
	}
	// Rows created outside Enter may lack the form start; without it Status stays NEW.
	if user.InitialFormStartedAt == nil {
		if err := s.users.MarkTimestamp(ctx, id, database.TimestampInitialFormStarted, now); err != nil {
			return nil, err
		}
	}

	if state.Tracked() {
		if _, ok := s.tracker.Get(id); !ok {
			s.tracker.Start(id)
		}
	}

	s.logger.Info("onboarding_entered",
		zap.String("user_id", logpkg.MaskUserID(id)),
		zap.String("state", string(state)),
	)
	return snapshot(id, state, user), nil
}

// Current returns the visitor's snapshot without side effects.
func (s *Service) Current(ctx context.Context, userID string) (*Snapshot, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return snapshot(userID, Status(userID, s.adminSentinel, user), user), nil
}

// SubmitForm saves the preference form. A COMPLETE visitor editing answers
// gets fresh recommendations right away, and the edit is only stored once they
// are generated. Anyone else moves to the follow-up step.
func (s *Service) SubmitForm(ctx context.Context, userID string, p models.UserProfile) (*Snapshot, error) {
	if err := validation.Struct(p); err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := Status(userID, s.adminSentinel, user)

	profile := mergeProfile(user.UserProfile, p)

	if before == StateComplete {
		recs, err := s.recommender.Recommend(ctx, profile)
		if err != nil {
			return nil, err
		}
		now := s.now()
		if err := s.users.SaveProfile(ctx, userID, p, now); err != nil {
			return nil, err
		}
		if err := s.users.SaveRecommendations(ctx, userID, recs, now); err != nil {
			return nil, err
		}
		s.transition(userID, before, StateComplete)
		return &Snapshot{UserID: userID, State: StateComplete, Route: RouteResults, Recommendations: recs}, nil
	}

	if err := s.users.SaveProfile(ctx, userID, p, s.now()); err != nil {
		return nil, err
	}

	followUp, err := s.recommender.FollowUp(ctx, profile)
	if err != nil {
		s.logger.Warn("followup_generation_failed",
			zap.String("user_id", logpkg.MaskUserID(userID)),
			zap.Error(err),
		)
		return nil, err
	}
	if err := s.users.SaveFollowUpQuestions(ctx, userID, followUp); err != nil {
		return nil, err
	}

	s.transition(userID, before, StateAwaitingFollowUp)
	return &Snapshot{UserID: userID, State: StateAwaitingFollowUp, Route: RouteFollowUp, FollowUp: followUp}, nil
}

// SubmitFollowUp records the follow-up answers and generates recommendations.
// Nothing is persisted when generation fails, so the visitor can retry.
func (s *Service) SubmitFollowUp(ctx context.Context, userID string, answers []string) (*Snapshot, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := Status(userID, s.adminSentinel, user)
	if before != StateAwaitingFollowUp {
		return nil, fmt.Errorf("%w: cannot answer follow-up questions in state %s", ErrInvalidTransition, before)
	}
	if len(answers) > len(user.FollowUp.Questions) {
		return nil, &validation.Error{Fields: map[string]string{
			"answers": fmt.Sprintf("must have at most %d entries", len(user.FollowUp.Questions)),
		}}
	}
	cleaned := make([]string, len(answers))
	for i, a := range answers {
		cleaned[i] = validation.SanitizeText(a)
	}

	recs, err := s.recommender.Recommend(ctx, user.UserProfile)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.users.SaveFollowUpAnswers(ctx, userID, cleaned, now); err != nil {
		return nil, err
	}
	if err := s.users.SaveRecommendations(ctx, userID, recs, now); err != nil {
		return nil, err
	}

	s.transition(userID, before, StateComplete)
	return &Snapshot{UserID: userID, State: StateComplete, Route: RouteResults, Recommendations: recs}, nil
}

// Skip passes over the follow-up questions and generates recommendations.
func (s *Service) Skip(ctx context.Context, userID string) (*Snapshot, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	before := Status(userID, s.adminSentinel, user)
	if user.InitialFormSubmittedAt == nil || before == StateComplete {
		return nil, fmt.Errorf("%w: cannot skip in state %s", ErrInvalidTransition, before)
	}

	recs, err := s.recommender.Recommend(ctx, user.UserProfile)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.users.MarkTimestamp(ctx, userID, database.TimestampSkipped, now); err != nil {
		return nil, err
	}
	if err := s.users.SaveRecommendations(ctx, userID, recs, now); err != nil {
		return nil, err
	}

	s.transition(userID, before, StateComplete)
	return &Snapshot{UserID: userID, State: StateComplete, Route: RouteResults, Recommendations: recs}, nil
}

// Regenerate replaces a COMPLETE visitor's recommendations.
func (s *Service) Regenerate(ctx context.Context, userID string) (*Snapshot, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st := Status(userID, s.adminSentinel, user); st != StateComplete {
		return nil, fmt.Errorf("%w: cannot regenerate recommendations in state %s", ErrInvalidTransition, st)
	}
	recs, err := s.generate(ctx, userID, user.UserProfile)
	if err != nil {
		return nil, err
	}
	return &Snapshot{UserID: userID, State: StateComplete, Route: RouteResults, Recommendations: recs}, nil
}

// SubmitExitRating stores the exit ratings and ends location tracking.
func (s *Service) SubmitExitRating(ctx context.Context, userID string, ratings models.ExitRatings) error {
	if err := validation.Struct(ratings); err != nil {
		return err
	}
	if err := s.users.SaveExitRatings(ctx, userID, ratings, s.now()); err != nil {
		return err
	}

	if _, err := s.tracker.Stop(ctx, userID); err != nil && !errors.Is(err, tracking.ErrNoSession) {
		s.logger.Warn("tracking_stop_failed",
			zap.String("user_id", logpkg.MaskUserID(userID)),
			zap.Error(err),
		)
	}
	s.logger.Info("exit_ratings_submitted", zap.String("user_id", logpkg.MaskUserID(userID)))
	return nil
}

func (s *Service) generate(ctx context.Context, userID string, p models.UserProfile) ([]models.Recommendation, error) {
	recs, err := s.recommender.Recommend(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.users.SaveRecommendations(ctx, userID, recs, s.now()); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *Service) transition(userID string, from, to State) {
	metrics.OnboardingTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.logger.Info("onboarding_transition",
		zap.String("user_id", logpkg.MaskUserID(userID)),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
}

func snapshot(userID string, state State, u *models.User) *Snapshot {
	snap := &Snapshot{UserID: userID, State: state, Route: state.Route()}
	if u == nil {
		return snap
	}
	switch state {
	case StateAwaitingFollowUp:
		snap.FollowUp = u.FollowUp
	case StateComplete:
		snap.Recommendations = u.Recommendations
		if snap.Recommendations == nil {
			snap.Recommendations = []models.Recommendation{}
		}
	}
	return snap
}

// mergeProfile overlays the non-nil fields of update onto base, matching what
// SaveProfile writes.
func mergeProfile(base, update models.UserProfile) models.UserProfile {
	out := base
	if update.Age != nil {
		out.Age = update.Age
	}
	if update.Gender != nil {
		out.Gender = update.Gender
	}
	if update.VisitPurpose != nil {
		out.VisitPurpose = update.VisitPurpose
	}
	if update.Interests != nil {
		out.Interests = update.Interests
	}
	if update.HasCompanion != nil {
		out.HasCompanion = update.HasCompanion
	}
	if update.CompanionCount != nil {
		out.CompanionCount = update.CompanionCount
	}
	if update.SpecificGoal != nil {
		out.SpecificGoal = update.SpecificGoal
	}
	if update.HasChildren != nil {
		out.HasChildren = update.HasChildren
	}
	if update.ChildInterests != nil {
		out.ChildInterests = update.ChildInterests
	}
	if update.HasPets != nil {
		out.HasPets = update.HasPets
	}
	if update.PetTypes != nil {
		out.PetTypes = update.PetTypes
	}
	if update.HasAllergies != nil {
		out.HasAllergies = update.HasAllergies
	}
	if update.Allergies != nil {
		out.Allergies = update.Allergies
	}
	return out
}
