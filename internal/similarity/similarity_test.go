package similarity

import (
	"math"
	"testing"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

const epsilon = 1e-9

func TestCosine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite", a: []float64{1, 2}, b: []float64{-1, -2}, want: -1},
		{name: "zero vector", a: []float64{1, 2, 3}, b: []float64{0, 0, 0}, want: 0},
		{name: "both zero", a: []float64{0, 0}, b: []float64{0, 0}, want: 0},
		{name: "length mismatch", a: []float64{1, 2}, b: []float64{1, 2, 3}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("Cosine(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCosine_Symmetric(t *testing.T) {
	t.Parallel()

	vectors := [][]float64{
		{0.1, 0.5, -0.3, 0.9},
		{1, 1, 1, 1},
		{-2, 0.25, 7, 3},
		{0.001, 0.002, 0.003, -0.004},
	}
	for i := range vectors {
		self := Cosine(vectors[i], vectors[i])
		if math.Abs(self-1) > 1e-9 {
			t.Errorf("Cosine(v%d, v%d) = %v, want ~1", i, i, self)
		}
		for j := range vectors {
			ab := Cosine(vectors[i], vectors[j])
			ba := Cosine(vectors[j], vectors[i])
			if math.Abs(ab-ba) > epsilon {
				t.Errorf("Cosine not symmetric for v%d, v%d: %v vs %v", i, j, ab, ba)
			}
		}
	}
}

func ids(recs []models.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	recs := []models.Recommendation{
		{ID: "A1", Rationale: "first"},
		{ID: "B2", Rationale: "second"},
		{ID: "A1", Rationale: "duplicate"},
		{ID: "C3", Rationale: "third"},
		{ID: "B2", Rationale: "duplicate"},
	}

	got := Dedupe(recs)
	want := []string{"A1", "B2", "C3"}
	if len(got) != len(want) {
		t.Fatalf("Dedupe returned %v, want %v", ids(got), want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, want[i])
		}
	}
	if got[0].Rationale != "first" {
		t.Errorf("expected first occurrence to be kept, got rationale %q", got[0].Rationale)
	}

	again := Dedupe(got)
	if len(again) != len(got) {
		t.Fatalf("Dedupe not idempotent: %v vs %v", ids(again), ids(got))
	}
	for i := range got {
		if again[i] != got[i] {
			t.Errorf("Dedupe not idempotent at %d", i)
		}
	}
}

func TestDedupe_Empty(t *testing.T) {
	t.Parallel()

	if got := Dedupe(nil); len(got) != 0 {
		t.Errorf("Dedupe(nil) = %v, want empty", got)
	}
}

func TestMergeByID(t *testing.T) {
	t.Parallel()

	a := []models.BoothSearchResult{
		{Booth: models.Booth{ID: "A1"}, Similarity: 0.5},
		{Booth: models.Booth{ID: "B2"}, Similarity: 0.9},
	}
	b := []models.BoothSearchResult{
		{Booth: models.Booth{ID: "A1"}, Similarity: 0.7},
		{Booth: models.Booth{ID: "C3"}, Similarity: 0.4},
		{Booth: models.Booth{ID: "B2"}, Similarity: 0.1},
	}

	got := MergeByID(a, b)
	if len(got) != 3 {
		t.Fatalf("MergeByID returned %d results, want 3", len(got))
	}
	want := map[string]float64{"A1": 0.7, "B2": 0.9, "C3": 0.4}
	for _, r := range got {
		if r.Similarity != want[r.ID] {
			t.Errorf("%s similarity = %v, want %v", r.ID, r.Similarity, want[r.ID])
		}
	}
}
