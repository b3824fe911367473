package models

import (
	"strings"
	"time"
)

// Booth is one exhibitor entry of the event catalog. Booth ids look like "A1234".
type Booth struct {
	ID                  string  `json:"id"`
	CompanyNameKor      string  `json:"company_name_kor"`
	Category            *string `json:"category"`
	CompanyDescription  string  `json:"company_description"`
	Products            string  `json:"products"`
	ProductsDescription string  `json:"products_description"`
}

// CategoryName returns the category or an empty string when the booth has none.
func (b Booth) CategoryName() string {
	if b.Category == nil {
		return ""
	}
	return *b.Category
}

// EmbeddingText joins the descriptive fields used to build the booth's stored embedding.
func (b Booth) EmbeddingText() string {
	fields := []string{b.CompanyNameKor, b.CategoryName(), b.CompanyDescription, b.Products, b.ProductsDescription}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// BoothSearchResult is a booth returned by vector search together with its cosine similarity.
type BoothSearchResult struct {
	Booth
	Similarity float64 `json:"similarity"`
}

// BoothPosition places a booth on the floor map. X and Y are relative coordinates in [0,1].
type BoothPosition struct {
	BoothID   string     `json:"booth_id" validate:"required,booth_id"`
	X         float64    `json:"x" validate:"min=0,max=1"`
	Y         float64    `json:"y" validate:"min=0,max=1"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
