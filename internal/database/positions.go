package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// BoothPositionRepository handles booth map coordinates.
type BoothPositionRepository struct {
	db *DB
}

// NewBoothPositionRepository creates a new booth position repository
func NewBoothPositionRepository(db *DB) *BoothPositionRepository {
	return &BoothPositionRepository{db: db}
}

// List returns every position ordered by booth id.
func (r *BoothPositionRepository) List(ctx context.Context) ([]models.BoothPosition, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT booth_id, x, y, created_at, updated_at FROM booth_positions ORDER BY booth_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query booth positions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []models.BoothPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booth position: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating booth positions: %w", err)
	}
	return out, nil
}

// Get returns the position of one booth.
func (r *BoothPositionRepository) Get(ctx context.Context, boothID string) (*models.BoothPosition, error) {
	p, err := scanPosition(r.db.QueryRowContext(ctx,
		`SELECT booth_id, x, y, created_at, updated_at FROM booth_positions WHERE booth_id = $1`, boothID))
	if nf := notFound(err, "booth position "+boothID); nf != nil {
		return nil, nf
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booth position: %w", err)
	}
	return p, nil
}

// Upsert creates or moves a booth position.
func (r *BoothPositionRepository) Upsert(ctx context.Context, boothID string, x, y float64) (*models.BoothPosition, error) {
	now := time.Now().UTC()
	p, err := scanPosition(r.db.QueryRowContext(ctx, `
		INSERT INTO booth_positions (booth_id, x, y, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (booth_id) DO UPDATE SET x = EXCLUDED.x, y = EXCLUDED.y, updated_at = EXCLUDED.updated_at
		RETURNING booth_id, x, y, created_at, updated_at`, boothID, x, y, now))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert booth position: %w", err)
	}
	return p, nil
}

// Delete removes a booth position. Returns ErrNotFound when nothing was deleted.
func (r *BoothPositionRepository) Delete(ctx context.Context, boothID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM booth_positions WHERE booth_id = $1`, boothID)
	if err != nil {
		return fmt.Errorf("failed to delete booth position: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete booth position: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("booth position %s: %w", boothID, ErrNotFound)
	}
	return nil
}

func scanPosition(row rowScanner) (*models.BoothPosition, error) {
	var (
		p                models.BoothPosition
		created, updated sql.NullTime
	)
	if err := row.Scan(&p.BoothID, &p.X, &p.Y, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt = nullTimePtr(created)
	p.UpdatedAt = nullTimePtr(updated)
	return &p, nil
}
