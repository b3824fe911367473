package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// GPSRepository stores location samples and per-session tracking summaries.
type GPSRepository struct {
	db *DB
}

// NewGPSRepository creates a new GPS repository
func NewGPSRepository(db *DB) *GPSRepository {
	return &GPSRepository{db: db}
}

// InsertPoints appends location samples for a user in one transaction.
func (r *GPSRepository) InsertPoints(ctx context.Context, userID string, points []models.GPSPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gps_locations (user_id, latitude, longitude, accuracy, altitude, speed, heading, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare location insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, userID, p.Latitude, p.Longitude, p.Accuracy, p.Altitude, p.Speed, p.Heading, p.Timestamp); err != nil {
			return fmt.Errorf("failed to insert location: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit locations: %w", err)
	}
	return nil
}

// SaveTracking writes the summary of a finished tracking session.
func (r *GPSRepository) SaveTracking(ctx context.Context, s models.TrackingSummary) (int64, error) {
	locations, err := json.Marshal(s.Locations)
	if err != nil {
		return 0, fmt.Errorf("failed to encode locations: %w", err)
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO gps_tracking (user_id, total_points, total_distance, duration, locations)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		s.UserID, s.TotalPoints, s.TotalDistance, s.DurationText(), locations,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to save tracking summary: %w", err)
	}
	return id, nil
}
