package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// Timestamp names one of the forward-only lifecycle columns of a user.
type Timestamp string

const (
	TimestampInitialFormStarted      Timestamp = "initial_form_started_at"
	TimestampInitialFormSubmitted    Timestamp = "initial_form_submitted_at"
	TimestampSkipped                 Timestamp = "skipped_at"
	TimestampAdditionalFormSubmitted Timestamp = "additional_form_submitted_at"
	TimestampStarted                 Timestamp = "started_at"
	TimestampEvaluationFinished      Timestamp = "evaluation_finished_at"
)

var timestampColumns = map[Timestamp]bool{
	TimestampInitialFormStarted:      true,
	TimestampInitialFormSubmitted:    true,
	TimestampSkipped:                 true,
	TimestampAdditionalFormSubmitted: true,
	TimestampStarted:                 true,
	TimestampEvaluationFinished:      true,
}

const userColumns = `user_id, age, gender, visit_purpose, interests, has_companion, companion_count,
	specific_goal, has_children, child_interests, has_pets, pet_types, has_allergies, allergies,
	followup_questions, followup_answers,
	initial_form_started_at, initial_form_submitted_at, skipped_at, additional_form_submitted_at,
	started_at, ended_at, recommended_at, evaluation_finished_at, survey_finished_at, exit_ratings_submitted_at,
	rec_result, rec_eval, final_rating, final_pros, final_cons,
	exit_recommendation_rating, exit_exhibition_rating, path_image_url, path_drawing_url,
	recommendation_modal_clicks`

// UserRepository handles attendee records in the "user" table.
type UserRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository. Stored documents that fail
// to decode are logged through logger and read back as empty.
func NewUserRepository(db *DB, logger *zap.Logger) *UserRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserRepository{db: db, logger: logger}
}

// Get retrieves a user by identifier. Returns ErrNotFound when absent.
func (r *UserRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM "user" WHERE user_id = $1`

	user, err := r.scanUser(r.db.QueryRowContext(ctx, query, userID))
	if nf := notFound(err, "user "+userID); nf != nil {
		return nil, nf
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Create inserts a user with initial_form_started_at set. Creating an existing user is a no-op.
func (r *UserRepository) Create(ctx context.Context, userID string, startedAt time.Time) (*models.User, error) {
	query := `
		INSERT INTO "user" (user_id, initial_form_started_at)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, userID, startedAt); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return r.Get(ctx, userID)
}

// MarkTimestamp sets a lifecycle timestamp if it is still unset. Timestamps never move backwards.
func (r *UserRepository) MarkTimestamp(ctx context.Context, userID string, field Timestamp, at time.Time) error {
	if !timestampColumns[field] {
		return fmt.Errorf("unknown timestamp field %q", field)
	}
	query := fmt.Sprintf(`UPDATE "user" SET %[1]s = COALESCE(%[1]s, $2) WHERE user_id = $1`, pq.QuoteIdentifier(string(field)))
	return r.exec(ctx, "mark "+string(field), query, userID, at)
}

// SaveProfile writes the provided form fields, ended_at and, if unset, the
// initial_form_started_at and initial_form_submitted_at timestamps.
// Nil fields are left untouched.
func (r *UserRepository) SaveProfile(ctx context.Context, userID string, profile models.UserProfile, at time.Time) error {
	query, args, err := buildProfileUpdate(userID, profile, at)
	if err != nil {
		return err
	}
	return r.exec(ctx, "save profile", query, args...)
}

// SaveFollowUpQuestions stores the generated follow-up summary and questions.
func (r *UserRepository) SaveFollowUpQuestions(ctx context.Context, userID string, followUp *models.FollowUp) error {
	doc, err := encodeJSON(followUp)
	if err != nil {
		return fmt.Errorf("failed to encode follow-up questions: %w", err)
	}
	return r.exec(ctx, "save follow-up questions",
		`UPDATE "user" SET followup_questions = $2 WHERE user_id = $1`, userID, doc)
}

// SaveFollowUpAnswers stores the answers and marks additional_form_submitted_at.
func (r *UserRepository) SaveFollowUpAnswers(ctx context.Context, userID string, answers []string, at time.Time) error {
	doc, err := encodeJSON(answers)
	if err != nil {
		return fmt.Errorf("failed to encode follow-up answers: %w", err)
	}
	return r.exec(ctx, "save follow-up answers", `
		UPDATE "user"
		SET followup_answers = $2,
		    additional_form_submitted_at = COALESCE(additional_form_submitted_at, $3)
		WHERE user_id = $1`, userID, doc, at)
}

// SaveRecommendations replaces rec_result and sets recommended_at.
func (r *UserRepository) SaveRecommendations(ctx context.Context, userID string, recs []models.Recommendation, at time.Time) error {
	if recs == nil {
		recs = []models.Recommendation{}
	}
	doc, err := encodeJSON(recs)
	if err != nil {
		return fmt.Errorf("failed to encode recommendations: %w", err)
	}
	return r.exec(ctx, "save recommendations",
		`UPDATE "user" SET rec_result = $2, recommended_at = $3 WHERE user_id = $1`, userID, doc, at)
}

// SaveEvaluationSummary replaces rec_eval.
func (r *UserRepository) SaveEvaluationSummary(ctx context.Context, userID string, summary []models.EvaluationSummary) error {
	if summary == nil {
		summary = []models.EvaluationSummary{}
	}
	doc, err := encodeJSON(summary)
	if err != nil {
		return fmt.Errorf("failed to encode evaluation summary: %w", err)
	}
	return r.exec(ctx, "save evaluation summary",
		`UPDATE "user" SET rec_eval = $2 WHERE user_id = $1`, userID, doc)
}

// SaveFinalSurvey stores the end-of-visit questionnaire.
func (r *UserRepository) SaveFinalSurvey(ctx context.Context, userID string, s models.FinalSurvey, at time.Time) error {
	return r.exec(ctx, "save final survey", `
		UPDATE "user"
		SET final_rating = $2, final_pros = $3, final_cons = $4,
		    path_image_url = COALESCE($5, path_image_url),
		    path_drawing_url = COALESCE($6, path_drawing_url),
		    survey_finished_at = COALESCE(survey_finished_at, $7)
		WHERE user_id = $1`,
		userID, s.FinalRating, s.FinalPros, s.FinalCons, s.PathImageURL, s.PathDrawingURL, at)
}

// SaveExitRatings stores the exit ratings and marks exit_ratings_submitted_at.
func (r *UserRepository) SaveExitRatings(ctx context.Context, userID string, ratings models.ExitRatings, at time.Time) error {
	return r.exec(ctx, "save exit ratings", `
		UPDATE "user"
		SET exit_recommendation_rating = $2, exit_exhibition_rating = $3,
		    exit_ratings_submitted_at = COALESCE(exit_ratings_submitted_at, $4)
		WHERE user_id = $1`,
		userID, ratings.RecommendationRating, ratings.ExhibitionRating, at)
}

// IncrementModalClick atomically bumps the click counter for boothID and returns the new count.
func (r *UserRepository) IncrementModalClick(ctx context.Context, userID, boothID string) (int, error) {
	query := `
		UPDATE "user"
		SET recommendation_modal_clicks = jsonb_set(
			COALESCE(recommendation_modal_clicks, '{}'::jsonb),
			ARRAY[$2::text],
			to_jsonb(COALESCE((recommendation_modal_clicks->>$2)::int, 0) + 1)
		)
		WHERE user_id = $1
		RETURNING (recommendation_modal_clicks->>$2)::int
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, userID, boothID).Scan(&count)
	if nf := notFound(err, "user "+userID); nf != nil {
		return 0, nf
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment modal clicks: %w", err)
	}
	return count, nil
}

func (r *UserRepository) exec(ctx context.Context, op string, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("failed to %s: %w", op, ErrNotFound)
	}
	return nil
}

// buildProfileUpdate builds a partial UPDATE covering only the non-nil profile fields.
func buildProfileUpdate(userID string, p models.UserProfile, at time.Time) (string, []any, error) {
	sets := []string{}
	args := []any{userID}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Age != nil {
		add("age", *p.Age)
	}
	if p.Gender != nil {
		add("gender", *p.Gender)
	}
	if p.VisitPurpose != nil {
		add("visit_purpose", *p.VisitPurpose)
	}
	if p.Interests != nil {
		doc, err := encodeJSON(p.Interests)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode interests: %w", err)
		}
		add("interests", doc)
	}
	if p.HasCompanion != nil {
		add("has_companion", *p.HasCompanion)
	}
	if p.CompanionCount != nil {
		add("companion_count", *p.CompanionCount)
	}
	if p.SpecificGoal != nil {
		add("specific_goal", *p.SpecificGoal)
	}
	if p.HasChildren != nil {
		add("has_children", *p.HasChildren)
	}
	if p.ChildInterests != nil {
		add("child_interests", pq.Array(p.ChildInterests))
	}
	if p.HasPets != nil {
		add("has_pets", *p.HasPets)
	}
	if p.PetTypes != nil {
		add("pet_types", pq.Array(p.PetTypes))
	}
	if p.HasAllergies != nil {
		add("has_allergies", *p.HasAllergies)
	}
	if p.Allergies != nil {
		add("allergies", *p.Allergies)
	}

	args = append(args, at)
	n := len(args)
	sets = append(sets,
		fmt.Sprintf("ended_at = $%d", n),
		fmt.Sprintf("initial_form_started_at = COALESCE(initial_form_started_at, $%d)", n),
		fmt.Sprintf("initial_form_submitted_at = COALESCE(initial_form_submitted_at, $%d)", n),
	)

	query := `UPDATE "user" SET ` + strings.Join(sets, ", ") + ` WHERE user_id = $1`
	return query, args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanUser(row rowScanner) (*models.User, error) {
	var (
		u                                   models.User
		age, companionCount                 sql.NullInt64
		gender, visitPurpose, goal          sql.NullString
		allergies                           sql.NullString
		hasCompanion, hasChildren, hasPets  sql.NullBool
		hasAllergies                        sql.NullBool
		interests, clicks                   []byte
		childInterests, petTypes            pq.StringArray
		followUp, answers, recResult        sql.NullString
		recEval                             sql.NullString
		finalRating, exitRec, exitExhibit   sql.NullInt64
		finalPros, finalCons                sql.NullString
		pathImage, pathDrawing              sql.NullString
		formStarted, formSubmitted, skipped sql.NullTime
		additional, started, ended          sql.NullTime
		recommended, evalFinished           sql.NullTime
		surveyFinished, exitSubmitted       sql.NullTime
	)

	err := row.Scan(
		&u.UserID, &age, &gender, &visitPurpose, &interests, &hasCompanion, &companionCount,
		&goal, &hasChildren, &childInterests, &hasPets, &petTypes, &hasAllergies, &allergies,
		&followUp, &answers,
		&formStarted, &formSubmitted, &skipped, &additional,
		&started, &ended, &recommended, &evalFinished, &surveyFinished, &exitSubmitted,
		&recResult, &recEval, &finalRating, &finalPros, &finalCons,
		&exitRec, &exitExhibit, &pathImage, &pathDrawing,
		&clicks,
	)
	if err != nil {
		return nil, err
	}

	u.Age = nullIntPtr(age)
	u.Gender = nullStringPtr(gender)
	u.VisitPurpose = nullStringPtr(visitPurpose)
	u.HasCompanion = nullBoolPtr(hasCompanion)
	u.CompanionCount = nullIntPtr(companionCount)
	u.SpecificGoal = nullStringPtr(goal)
	u.HasChildren = nullBoolPtr(hasChildren)
	u.HasPets = nullBoolPtr(hasPets)
	u.HasAllergies = nullBoolPtr(hasAllergies)
	u.Allergies = nullStringPtr(allergies)
	if len(childInterests) > 0 {
		u.ChildInterests = []string(childInterests)
	}
	if len(petTypes) > 0 {
		u.PetTypes = []string(petTypes)
	}

	u.InitialFormStartedAt = nullTimePtr(formStarted)
	u.InitialFormSubmittedAt = nullTimePtr(formSubmitted)
	u.SkippedAt = nullTimePtr(skipped)
	u.AdditionalFormSubmittedAt = nullTimePtr(additional)
	u.StartedAt = nullTimePtr(started)
	u.EndedAt = nullTimePtr(ended)
	u.RecommendedAt = nullTimePtr(recommended)
	u.EvaluationFinishedAt = nullTimePtr(evalFinished)
	u.SurveyFinishedAt = nullTimePtr(surveyFinished)
	u.ExitRatingsSubmittedAt = nullTimePtr(exitSubmitted)

	u.FinalRating = nullIntPtr(finalRating)
	u.FinalPros = nullStringPtr(finalPros)
	u.FinalCons = nullStringPtr(finalCons)
	u.ExitRecommendationRating = nullIntPtr(exitRec)
	u.ExitExhibitionRating = nullIntPtr(exitExhibit)
	u.PathImageURL = nullStringPtr(pathImage)
	u.PathDrawingURL = nullStringPtr(pathDrawing)

	r.decodeDocuments(&u, interests, clicks, followUp.String, answers.String, recResult.String, recEval.String)
	return &u, nil
}

// decodeDocuments fills the JSON sub-documents. A malformed document is logged and left empty.
func (r *UserRepository) decodeDocuments(u *models.User, interests, clicks []byte, followUp, answers, recResult, recEval string) {
	var err error
	warn := func(column string, err error) {
		r.logger.Warn("user_document_invalid",
			zap.String("column", column),
			zap.Error(err),
		)
	}

	if u.Interests, err = decodeInterests(interests); err != nil {
		warn("interests", err)
	}
	if u.RecommendationModalClicks, err = decodeClicks(clicks); err != nil {
		warn("recommendation_modal_clicks", err)
	}
	if u.FollowUp, err = DecodeFollowUp(followUp); err != nil {
		warn("followup_questions", err)
	}
	if u.FollowUpAnswers, err = decodeStringList(answers, "followup_answers"); err != nil {
		warn("followup_answers", err)
	}
	if u.Recommendations, err = DecodeRecommendations(recResult); err != nil {
		warn("rec_result", err)
	}
	if u.RecEval, err = DecodeEvaluationSummary(recEval); err != nil {
		warn("rec_eval", err)
	}
}
