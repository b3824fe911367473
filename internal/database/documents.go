package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// JSON sub-documents stored on the users row are encoded and decoded only here.
// Decoders validate shape after unmarshalling; a document that fails the check is
// reported as an error and the caller decides whether to tolerate it.

func encodeJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// DecodeRecommendations parses a stored rec_result document. Every entry must carry an id.
func DecodeRecommendations(raw string) ([]models.Recommendation, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var recs []models.Recommendation
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("invalid rec_result: %w", err)
	}
	for i, r := range recs {
		if strings.TrimSpace(r.ID) == "" {
			return nil, fmt.Errorf("invalid rec_result: entry %d has no id", i)
		}
	}
	return recs, nil
}

// DecodeEvaluationSummary parses a stored rec_eval document.
func DecodeEvaluationSummary(raw string) ([]models.EvaluationSummary, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var summary []models.EvaluationSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, fmt.Errorf("invalid rec_eval: %w", err)
	}
	for i, s := range summary {
		if s.ID == "" {
			return nil, fmt.Errorf("invalid rec_eval: entry %d has no id", i)
		}
	}
	return summary, nil
}

// DecodeFollowUp parses stored follow-up questions.
func DecodeFollowUp(raw string) (*models.FollowUp, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var f models.FollowUp
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return nil, fmt.Errorf("invalid followup_questions: %w", err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("invalid followup_questions: no questions")
	}
	return &f, nil
}

func decodeStringList(raw string, column string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", column, err)
	}
	return out, nil
}

func decodeInterests(raw []byte) (map[string][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string][]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("invalid interests: %w", err)
	}
	return out, nil
}

func decodeClicks(raw []byte) (map[string]int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]int
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("invalid recommendation_modal_clicks: %w", err)
	}
	return out, nil
}
