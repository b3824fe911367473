package recommend

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// ErrMalformedResponse is returned when a model reply cannot be decoded.
var ErrMalformedResponse = errors.New("malformed model response")

// stripFences returns the content of the first ```json block, or of the first
// plain ``` block when there is no json block. Text without fences is returned trimmed.
// An unterminated fence keeps everything after the opening marker.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(text, marker)
		if start == -1 {
			continue
		}
		rest := text[start+len(marker):]
		if end := strings.Index(rest, "```"); end != -1 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	return text
}

// boothID accepts both "B2404" and a bare number, which models occasionally emit.
type boothID string

func (id *boothID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = boothID(strings.TrimSpace(s))
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if _, err := strconv.ParseFloat(string(data), 64); err != nil {
		return fmt.Errorf("invalid booth id %s", data)
	}
	*id = boothID(data)
	return nil
}

type rawRecommendation struct {
	ID        boothID `json:"id"`
	Rationale string  `json:"rationale"`
}

// ParseRecommendations decodes a model reply into recommendations, tolerating
// markdown code fences. Entries without an id are dropped; a reply with no
// usable entry is malformed.
func ParseRecommendations(text string) ([]models.Recommendation, error) {
	body := stripFences(text)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrMalformedResponse)
	}

	var raw []rawRecommendation
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	recs := make([]models.Recommendation, 0, len(raw))
	for _, r := range raw {
		if r.ID == "" {
			continue
		}
		recs = append(recs, models.Recommendation{
			ID:        string(r.ID),
			Rationale: strings.TrimSpace(r.Rationale),
		})
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: no recommendations", ErrMalformedResponse)
	}
	return recs, nil
}

// ParseFollowUp decodes a {summary, questions} reply. Blank questions are
// dropped and at most FollowUpQuestionCount are kept.
func ParseFollowUp(text string) (*models.FollowUp, error) {
	body := stripFences(text)

	var raw models.FollowUp
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	out := &models.FollowUp{Summary: strings.TrimSpace(raw.Summary)}
	for _, q := range raw.Questions {
		if q = strings.TrimSpace(q); q != "" {
			out.Questions = append(out.Questions, q)
		}
		if len(out.Questions) == FollowUpQuestionCount {
			break
		}
	}
	if len(out.Questions) == 0 {
		return nil, fmt.Errorf("%w: no follow-up questions", ErrMalformedResponse)
	}
	return out, nil
}
