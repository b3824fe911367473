// Package tracking keeps one live location-tracking session per visitor.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	logpkg "github.com/myeongseok-gwon/coex-search-temp/internal/logger"
	"github.com/myeongseok-gwon/coex-search-temp/internal/metrics"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

// earthRadiusMeters is the mean Earth radius used by Distance.
const earthRadiusMeters = 6371000

// ErrNoSession is returned when a user has no live tracking session.
var ErrNoSession = errors.New("no tracking session")

// Store persists samples and session summaries.
type Store interface {
	InsertPoints(ctx context.Context, userID string, points []models.GPSPoint) error
	SaveTracking(ctx context.Context, s models.TrackingSummary) (int64, error)
}

// Registry owns the live sessions, keyed by user id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	store    Store
	now      func() time.Time
	logger   *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(store Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		store:    store,
		now:      time.Now,
		logger:   logger,
	}
}

// Start opens a session for userID. A previous session for the same user is
// replaced; its samples are already persisted but no summary is written for it.
func (r *Registry) Start(userID string) *Session {
	s := &Session{
		userID:    userID,
		startedAt: r.now(),
		store:     r.store,
		logger:    r.logger,
	}

	r.mu.Lock()
	_, replaced := r.sessions[userID]
	r.sessions[userID] = s
	active := len(r.sessions)
	r.mu.Unlock()

	metrics.TrackingSessionsActive.Set(float64(active))
	r.logger.Info("tracking_session_started",
		zap.String("user_id", logpkg.MaskUserID(userID)),
		zap.Bool("replaced", replaced),
	)
	return s
}

// Get returns the live session for userID.
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Active returns the number of live sessions.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Stop removes the user's session and persists its summary. A session without
// samples is removed without writing a summary.
func (r *Registry) Stop(ctx context.Context, userID string) (*models.TrackingSummary, error) {
	r.mu.Lock()
	s, ok := r.sessions[userID]
	delete(r.sessions, userID)
	active := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return nil, ErrNoSession
	}
	metrics.TrackingSessionsActive.Set(float64(active))

	summary := s.Summary(r.now())
	if summary.TotalPoints == 0 {
		r.logger.Info("tracking_session_stopped_empty", zap.String("user_id", logpkg.MaskUserID(userID)))
		return &summary, nil
	}

	if _, err := r.store.SaveTracking(ctx, summary); err != nil {
		return &summary, fmt.Errorf("failed to save tracking summary: %w", err)
	}
	r.logger.Info("tracking_session_stopped",
		zap.String("user_id", logpkg.MaskUserID(userID)),
		zap.Int("total_points", summary.TotalPoints),
		zap.Float64("total_distance_m", summary.TotalDistance),
		zap.String("duration", summary.DurationText()),
	)
	return &summary, nil
}

// Session accumulates one visit's location samples.
type Session struct {
	userID    string
	startedAt time.Time
	store     Store
	logger    *zap.Logger

	mu        sync.Mutex
	locations []models.GPSPoint
	distance  float64
}

// UserID returns the session owner.
func (s *Session) UserID() string {
	return s.userID
}

// Record persists a sample and adds it to the running totals. Samples that fail
// to persist are not counted.
func (s *Session) Record(ctx context.Context, p models.GPSPoint) error {
	if err := s.store.InsertPoints(ctx, s.userID, []models.GPSPoint{p}); err != nil {
		return fmt.Errorf("failed to record location: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if n := len(s.locations); n > 0 {
		prev := s.locations[n-1]
		s.distance += Distance(prev.Latitude, prev.Longitude, p.Latitude, p.Longitude)
	}
	s.locations = append(s.locations, p)
	return nil
}

// ReportError logs a client-side location error such as a denied permission.
// Tracking errors never fail the visitor's flow.
func (s *Session) ReportError(code, message string) {
	s.logger.Warn("tracking_client_error",
		zap.String("user_id", logpkg.MaskUserID(s.userID)),
		zap.String("code", logpkg.SanitizeString(code, 64)),
		zap.String("message", logpkg.SanitizeString(message, logpkg.MaxErrorMessageLength)),
	)
}

// Summary returns the session totals as of now.
func (s *Session) Summary(now time.Time) models.TrackingSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	locations := make([]models.GPSPoint, len(s.locations))
	copy(locations, s.locations)
	return models.TrackingSummary{
		UserID:        s.userID,
		TotalPoints:   len(locations),
		TotalDistance: s.distance,
		Duration:      now.Sub(s.startedAt),
		Locations:     locations,
	}
}

// Distance returns the great-circle distance in metres between two coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
