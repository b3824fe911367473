package models

import "time"

// AdminUserID is the stored identifier used for the admin sentinel login.
const AdminUserID = "0"

// UserProfile holds the preference form answers. Every field is optional:
// nil means "not provided", never false.
type UserProfile struct {
	Age            *int                `json:"age,omitempty" validate:"required,min=1,max=120"`
	Gender         *string             `json:"gender,omitempty" validate:"required,min=1,max=20"`
	VisitPurpose   *string             `json:"visit_purpose,omitempty" validate:"omitempty,max=200"`
	Interests      map[string][]string `json:"interests,omitempty" validate:"omitempty,max=20,dive,keys,min=1,max=50,endkeys,max=50,dive,min=1,max=50"`
	HasCompanion   *bool               `json:"has_companion,omitempty"`
	CompanionCount *int                `json:"companion_count,omitempty" validate:"omitempty,min=0,max=50"`
	SpecificGoal   *string             `json:"specific_goal,omitempty" validate:"omitempty,max=1000"`
	HasChildren    *bool               `json:"has_children,omitempty"`
	ChildInterests []string            `json:"child_interests,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
	HasPets        *bool               `json:"has_pets,omitempty"`
	PetTypes       []string            `json:"pet_types,omitempty" validate:"omitempty,max=20,dive,min=1,max=50"`
	HasAllergies   *bool               `json:"has_allergies,omitempty"`
	Allergies      *string             `json:"allergies,omitempty" validate:"omitempty,max=500"`
}

// FollowUp is the LLM generated interest summary and the extra questions shown after the form.
type FollowUp struct {
	Summary   string   `json:"summary"`
	Questions []string `json:"questions"`
}

// EvaluationSummary is one entry of the per-user rec_eval document.
type EvaluationSummary struct {
	ID          string `json:"id"`
	BoothRating *int   `json:"booth_rating"`
	RecRating   *int   `json:"rec_rating"`
}

// User is the persisted attendee record. JSON sub-documents (recommendations,
// evaluation summary, follow-up Q&A, modal clicks) are decoded by the database layer.
type User struct {
	UserID string `json:"user_id"`
	UserProfile

	FollowUp        *FollowUp `json:"followup_questions,omitempty"`
	FollowUpAnswers []string  `json:"followup_answers,omitempty"`

	InitialFormStartedAt      *time.Time `json:"initial_form_started_at,omitempty"`
	InitialFormSubmittedAt    *time.Time `json:"initial_form_submitted_at,omitempty"`
	SkippedAt                 *time.Time `json:"skipped_at,omitempty"`
	AdditionalFormSubmittedAt *time.Time `json:"additional_form_submitted_at,omitempty"`
	StartedAt                 *time.Time `json:"started_at,omitempty"`
	EndedAt                   *time.Time `json:"ended_at,omitempty"`
	RecommendedAt             *time.Time `json:"recommended_at,omitempty"`
	EvaluationFinishedAt      *time.Time `json:"evaluation_finished_at,omitempty"`
	SurveyFinishedAt          *time.Time `json:"survey_finished_at,omitempty"`
	ExitRatingsSubmittedAt    *time.Time `json:"exit_ratings_submitted_at,omitempty"`

	Recommendations []Recommendation    `json:"rec_result,omitempty"`
	RecEval         []EvaluationSummary `json:"rec_eval,omitempty"`

	FinalRating              *int    `json:"final_rating,omitempty"`
	FinalPros                *string `json:"final_pros,omitempty"`
	FinalCons                *string `json:"final_cons,omitempty"`
	ExitRecommendationRating *int    `json:"exit_recommendation_rating,omitempty"`
	ExitExhibitionRating     *int    `json:"exit_exhibition_rating,omitempty"`
	PathImageURL             *string `json:"path_image_url,omitempty"`
	PathDrawingURL           *string `json:"path_drawing_url,omitempty"`

	RecommendationModalClicks map[string]int `json:"recommendation_modal_clicks,omitempty"`
}

// FinalSurvey is the end-of-visit questionnaire.
type FinalSurvey struct {
	FinalRating    int     `json:"final_rating" validate:"required,rating"`
	FinalPros      string  `json:"final_pros" validate:"max=2000"`
	FinalCons      string  `json:"final_cons" validate:"max=2000"`
	PathImageURL   *string `json:"path_image_url,omitempty" validate:"omitempty,url,max=2048"`
	PathDrawingURL *string `json:"path_drawing_url,omitempty" validate:"omitempty,url,max=2048"`
}

// ExitRatings closes the visit.
type ExitRatings struct {
	RecommendationRating int `json:"exit_recommendation_rating" validate:"required,rating"`
	ExhibitionRating     int `json:"exit_exhibition_rating" validate:"required,rating"`
}
