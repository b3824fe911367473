package models

// Recommendation is one ranked booth with the LLM's rationale. Similarity is set
// only when the booth came from the vector search candidate pool.
type Recommendation struct {
	ID         string   `json:"id"`
	Rationale  string   `json:"rationale"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}
