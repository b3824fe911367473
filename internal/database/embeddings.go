package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// BoothEmbeddingRepository reads and writes booth_embeddings and calls the
// search_similar_booths(query_embedding, match_threshold, match_count) function.
type BoothEmbeddingRepository struct {
	db *DB
}

// NewBoothEmbeddingRepository creates a new booth embedding repository
func NewBoothEmbeddingRepository(db *DB) *BoothEmbeddingRepository {
	return &BoothEmbeddingRepository{db: db}
}

// Exists reports whether at least one booth embedding is stored.
func (r *BoothEmbeddingRepository) Exists(ctx context.Context) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM booth_embeddings LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check booth embeddings: %w", err)
	}
	return true, nil
}

// SearchSimilar returns at most matchCount booths with similarity >= threshold, best first.
func (r *BoothEmbeddingRepository) SearchSimilar(ctx context.Context, embedding []float64, threshold float64, matchCount int) ([]models.BoothSearchResult, error) {
	query := `
		SELECT id, company_name_kor, category, company_description, products, products_description, similarity
		FROM search_similar_booths($1::vector, $2, $3)
	`
	rows, err := r.db.QueryContext(ctx, query, VectorLiteral(embedding), threshold, matchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar booths: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []models.BoothSearchResult{}
	for rows.Next() {
		var (
			res                         models.BoothSearchResult
			category                    sql.NullString
			description, products, desc sql.NullString
		)
		if err := rows.Scan(&res.ID, &res.CompanyNameKor, &category, &description, &products, &desc, &res.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		res.Category = nullStringPtr(category)
		res.CompanyDescription = description.String
		res.Products = products.String
		res.ProductsDescription = desc.String
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}
	return out, nil
}

// ExistingIDs returns the subset of ids that already have an embedding.
func (r *BoothEmbeddingRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM booth_embeddings WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query existing embeddings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan embedding id: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating embedding ids: %w", err)
	}
	return out, nil
}

// Insert stores a booth and its embedding. An existing row for the booth is replaced.
func (r *BoothEmbeddingRepository) Insert(ctx context.Context, booth models.Booth, embedding []float64) error {
	query := `
		INSERT INTO booth_embeddings (id, company_name_kor, category, company_description, products, products_description, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
		ON CONFLICT (id) DO UPDATE SET
			company_name_kor = EXCLUDED.company_name_kor,
			category = EXCLUDED.category,
			company_description = EXCLUDED.company_description,
			products = EXCLUDED.products,
			products_description = EXCLUDED.products_description,
			embedding = EXCLUDED.embedding
	`
	_, err := r.db.ExecContext(ctx, query,
		booth.ID, booth.CompanyNameKor, booth.Category, booth.CompanyDescription,
		booth.Products, booth.ProductsDescription, VectorLiteral(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booth embedding: %w", err)
	}
	return nil
}

// Count returns the number of stored embeddings.
func (r *BoothEmbeddingRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM booth_embeddings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count booth embeddings: %w", err)
	}
	return n, nil
}

// VectorLiteral renders a pgvector text literal such as "[0.1,0.2]".
func VectorLiteral(v []float64) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
