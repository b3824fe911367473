package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/onboarding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/request"
)

var errNotMocked = errors.New("not mocked")

type mockOnboarding struct {
	enterFn      func(ctx context.Context, identifier string) (*onboarding.Snapshot, error)
	currentFn    func(ctx context.Context, userID string) (*onboarding.Snapshot, error)
	submitFormFn func(ctx context.Context, userID string, p models.UserProfile) (*onboarding.Snapshot, error)
	followUpFn   func(ctx context.Context, userID string, answers []string) (*onboarding.Snapshot, error)
	skipFn       func(ctx context.Context, userID string) (*onboarding.Snapshot, error)
	regenerateFn func(ctx context.Context, userID string) (*onboarding.Snapshot, error)
	exitFn       func(ctx context.Context, userID string, ratings models.ExitRatings) error
}

var _ Onboarding = (*mockOnboarding)(nil)

func (m *mockOnboarding) Enter(ctx context.Context, identifier string) (*onboarding.Snapshot, error) {
	if m.enterFn == nil {
		return nil, errNotMocked
	}
	return m.enterFn(ctx, identifier)
}

func (m *mockOnboarding) Current(ctx context.Context, userID string) (*onboarding.Snapshot, error) {
	if m.currentFn == nil {
		return nil, errNotMocked
	}
	return m.currentFn(ctx, userID)
}

func (m *mockOnboarding) SubmitForm(ctx context.Context, userID string, p models.UserProfile) (*onboarding.Snapshot, error) {
	if m.submitFormFn == nil {
		return nil, errNotMocked
	}
	return m.submitFormFn(ctx, userID, p)
}

func (m *mockOnboarding) SubmitFollowUp(ctx context.Context, userID string, answers []string) (*onboarding.Snapshot, error) {
	if m.followUpFn == nil {
		return nil, errNotMocked
	}
	return m.followUpFn(ctx, userID, answers)
}

func (m *mockOnboarding) Skip(ctx context.Context, userID string) (*onboarding.Snapshot, error) {
	if m.skipFn == nil {
		return nil, errNotMocked
	}
	return m.skipFn(ctx, userID)
}

func (m *mockOnboarding) Regenerate(ctx context.Context, userID string) (*onboarding.Snapshot, error) {
	if m.regenerateFn == nil {
		return nil, errNotMocked
	}
	return m.regenerateFn(ctx, userID)
}

func (m *mockOnboarding) SubmitExitRating(ctx context.Context, userID string, ratings models.ExitRatings) error {
	if m.exitFn == nil {
		return errNotMocked
	}
	return m.exitFn(ctx, userID, ratings)
}

type mockTokens struct {
	mu     sync.Mutex
	issued []request.Session
	err    error
}

func (m *mockTokens) Issue(s request.Session) (string, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", time.Time{}, m.err
	}
	m.issued = append(m.issued, s)
	return "token-" + s.UserID, time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC), nil
}

type mockVisitorStore struct {
	mu      sync.Mutex
	surveys map[string]models.FinalSurvey
	clicks  map[string]int
}

func newMockVisitorStore() *mockVisitorStore {
	return &mockVisitorStore{surveys: map[string]models.FinalSurvey{}, clicks: map[string]int{}}
}

func (m *mockVisitorStore) SaveFinalSurvey(_ context.Context, userID string, s models.FinalSurvey, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surveys[userID] = s
	return nil
}

func (m *mockVisitorStore) IncrementModalClick(_ context.Context, userID, boothID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks[userID+"/"+boothID]++
	return m.clicks[userID+"/"+boothID], nil
}

type memoryGPS struct {
	mu     sync.Mutex
	points []models.GPSPoint
}

func (m *memoryGPS) InsertPoints(_ context.Context, _ string, points []models.GPSPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, points...)
	return nil
}

func (m *memoryGPS) SaveTracking(context.Context, models.TrackingSummary) (int64, error) {
	return 1, nil
}

type staticCatalog struct {
	catalog *catalog.Catalog
	err     error
}

func (s staticCatalog) Load(context.Context) (*catalog.Catalog, error) {
	return s.catalog, s.err
}
