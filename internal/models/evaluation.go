package models

import "time"

// Evaluation is a user's rating of one visited booth, keyed by (UserID, BoothID).
// Once EndedAt is set the evaluation is closed.
type Evaluation struct {
	UserID           string     `json:"user_id"`
	BoothID          string     `json:"booth_id"`
	PhotoURL         *string    `json:"photo_url,omitempty"`
	BoothRating      *int       `json:"booth_rating,omitempty"`
	RecRating        *int       `json:"rec_rating,omitempty"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	IsDeleted        bool       `json:"is_deleted"`
	DeletedAt        *time.Time `json:"deleted_at,omitempty"`
	IsIrrelevant     bool       `json:"is_irrelevant"`
	IsBoothWrongInfo bool       `json:"is_booth_wrong_info"`
	IsCorrect        bool       `json:"is_correct"`
}

// Closed reports whether the evaluation has been completed.
func (e *Evaluation) Closed() bool {
	return e.EndedAt != nil
}

// EvaluationInput carries the fields a user submits when completing an evaluation.
type EvaluationInput struct {
	BoothRating      int     `json:"booth_rating" validate:"required,rating"`
	RecRating        int     `json:"rec_rating" validate:"required,rating"`
	PhotoURL         *string `json:"photo_url,omitempty" validate:"omitempty,url,max=2048"`
	IsIrrelevant     bool    `json:"is_irrelevant"`
	IsBoothWrongInfo bool    `json:"is_booth_wrong_info"`
	IsCorrect        bool    `json:"is_correct"`
}
