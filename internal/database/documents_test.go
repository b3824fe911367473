package database

import (
	"testing"
	"time"
)

func TestDecodeRecommendations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantLen int
		wantErr bool
	}{
		{name: "empty", raw: "", wantLen: 0},
		{name: "valid", raw: `[{"id":"A1","rationale":"r","similarity":0.8},{"id":"B2","rationale":"r2"}]`, wantLen: 2},
		{name: "not json", raw: `{oops`, wantErr: true},
		{name: "object instead of array", raw: `{"id":"A1"}`, wantErr: true},
		{name: "entry without id", raw: `[{"rationale":"r"}]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DecodeRecommendations(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestDecodeRecommendations_KeepsSimilarity(t *testing.T) {
	t.Parallel()

	got, err := DecodeRecommendations(`[{"id":"A1","rationale":"r","similarity":0.8},{"id":"B2","rationale":"r2"}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Similarity == nil || *got[0].Similarity != 0.8 {
		t.Errorf("similarity not decoded: %+v", got[0])
	}
	if got[1].Similarity != nil {
		t.Errorf("expected nil similarity for fallback entry, got %v", *got[1].Similarity)
	}
}

func TestDecodeFollowUp(t *testing.T) {
	t.Parallel()

	f, err := DecodeFollowUp(`{"summary":"과일에 관심","questions":["q1","q2","q3","q4"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Summary != "과일에 관심" || len(f.Questions) != 4 {
		t.Errorf("unexpected follow-up: %+v", f)
	}

	if _, err := DecodeFollowUp(`{"summary":"s","questions":[]}`); err == nil {
		t.Error("expected error for follow-up without questions")
	}
	if f, err := DecodeFollowUp(""); err != nil || f != nil {
		t.Errorf("empty document should decode to nil, got %v, %v", f, err)
	}
}

func TestDecodeEvaluationSummary(t *testing.T) {
	t.Parallel()

	s, err := DecodeEvaluationSummary(`[{"id":"A1","booth_rating":5,"rec_rating":4}]`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 1 || *s[0].BoothRating != 5 || *s[0].RecRating != 4 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if _, err := DecodeEvaluationSummary(`[{"booth_rating":5}]`); err == nil {
		t.Error("expected error for entry without id")
	}
}

func TestEncodeJSON_Nil(t *testing.T) {
	t.Parallel()

	ns, err := encodeJSON(nil)
	if err != nil || ns.Valid {
		t.Errorf("encodeJSON(nil) = %+v, %v; want NULL", ns, err)
	}
	ns, err = encodeJSON([]string{"a"})
	if err != nil || !ns.Valid || ns.String != `["a"]` {
		t.Errorf("encodeJSON = %+v, %v", ns, err)
	}
}

func mustTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2025-11-19T10:00:00Z")
	if err != nil {
		t.Fatalf("parse time: %v", err)
	}
	return ts
}
