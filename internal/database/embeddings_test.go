package database

import (
	"testing"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

func TestVectorLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []float64
		want string
	}{
		{name: "empty", in: nil, want: "[]"},
		{name: "single", in: []float64{0.5}, want: "[0.5]"},
		{name: "several", in: []float64{0.1, -0.25, 3}, want: "[0.1,-0.25,3]"},
		{name: "no exponent", in: []float64{0.000001}, want: "[0.000001]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := VectorLiteral(tt.in); got != tt.want {
				t.Errorf("VectorLiteral(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSummarizeEvaluations(t *testing.T) {
	t.Parallel()

	five, four := 5, 4
	ended := mustTime(t)
	evals := []*models.Evaluation{
		{BoothID: "A1", BoothRating: &five, RecRating: &four, EndedAt: &ended},
		{BoothID: "B2"},
		{BoothID: "C3", BoothRating: &four, RecRating: &four, EndedAt: &ended, IsDeleted: true},
		nil,
	}

	got := SummarizeEvaluations(evals)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1: %+v", len(got), got)
	}
	if got[0].ID != "A1" || *got[0].BoothRating != 5 || *got[0].RecRating != 4 {
		t.Errorf("unexpected summary %+v", got[0])
	}
}
