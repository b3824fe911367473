package tracking

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
)

type mockStore struct {
	mu        sync.Mutex
	points    []models.GPSPoint
	summaries []models.TrackingSummary
	insertErr error
	saveErr   error
}

func (m *mockStore) InsertPoints(ctx context.Context, userID string, points []models.GPSPoint) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, points...)
	return nil
}

func (m *mockStore) SaveTracking(ctx context.Context, s models.TrackingSummary) (int64, error) {
	if m.saveErr != nil {
		return 0, m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return int64(len(m.summaries)), nil
}

var _ Store = (*mockStore)(nil)

func newTestRegistry(store Store, clock *time.Time) *Registry {
	r := NewRegistry(store, nil)
	r.now = func() time.Time { return *clock }
	return r
}

func TestDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{"same point", 37.5, 127.0, 37.5, 127.0, 0, 1e-9},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 1},
		{"coex to samseong station", 37.5116, 127.0593, 37.5089, 127.0631, 450, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("Distance() = %v, want %v ± %v", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestRegistry_Lifecycle(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	clock := time.Date(2025, 10, 1, 10, 0, 0, 0, time.UTC)
	reg := newTestRegistry(store, &clock)

	s := reg.Start("01012345678")
	if got, ok := reg.Get("01012345678"); !ok || got != s {
		t.Fatal("Get() did not return the started session")
	}

	ctx := context.Background()
	for _, p := range []models.GPSPoint{
		{Latitude: 0, Longitude: 0, Timestamp: clock},
		{Latitude: 1, Longitude: 0, Timestamp: clock},
		{Latitude: 1, Longitude: 0, Timestamp: clock},
	} {
		if err := s.Record(ctx, p); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	clock = clock.Add(3*time.Minute + 20*time.Second)
	summary, err := reg.Stop(ctx, "01012345678")
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if summary.TotalPoints != 3 {
		t.Errorf("TotalPoints = %d, want 3", summary.TotalPoints)
	}
	if math.Abs(summary.TotalDistance-111195) > 1 {
		t.Errorf("TotalDistance = %v, want about 111195", summary.TotalDistance)
	}
	if summary.DurationText() != "3m 20s" {
		t.Errorf("duration = %s, want 3m 20s", summary.DurationText())
	}
	if len(store.points) != 3 || len(store.summaries) != 1 {
		t.Errorf("store has %d points and %d summaries", len(store.points), len(store.summaries))
	}
	if _, ok := reg.Get("01012345678"); ok {
		t.Error("session should be removed after Stop")
	}
	if reg.Active() != 0 {
		t.Errorf("Active() = %d, want 0", reg.Active())
	}
}

func TestRegistry_StartReplaces(t *testing.T) {
	t.Parallel()

	clock := time.Now()
	reg := newTestRegistry(&mockStore{}, &clock)

	first := reg.Start("u")
	second := reg.Start("u")
	if first == second {
		t.Fatal("Start() should create a new session")
	}
	if got, _ := reg.Get("u"); got != second {
		t.Error("Get() should return the replacement session")
	}
	if reg.Active() != 1 {
		t.Errorf("Active() = %d, want 1", reg.Active())
	}
}

func TestRegistry_StopWithoutSession(t *testing.T) {
	t.Parallel()

	clock := time.Now()
	reg := newTestRegistry(&mockStore{}, &clock)
	if _, err := reg.Stop(context.Background(), "missing"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Stop() error = %v, want ErrNoSession", err)
	}
}

func TestRegistry_StopEmptySessionWritesNothing(t *testing.T) {
	t.Parallel()

	store := &mockStore{}
	clock := time.Now()
	reg := newTestRegistry(store, &clock)
	reg.Start("u")

	summary, err := reg.Stop(context.Background(), "u")
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if summary.TotalPoints != 0 || len(store.summaries) != 0 {
		t.Errorf("empty session should not be persisted: %+v", store.summaries)
	}
}

func TestSession_RecordFailureNotCounted(t *testing.T) {
	t.Parallel()

	store := &mockStore{insertErr: errors.New("db down")}
	clock := time.Now()
	reg := newTestRegistry(store, &clock)
	s := reg.Start("u")

	if err := s.Record(context.Background(), models.GPSPoint{Latitude: 1, Longitude: 1}); err == nil {
		t.Fatal("Record() should fail when the store fails")
	}
	if got := s.Summary(clock).TotalPoints; got != 0 {
		t.Errorf("TotalPoints = %d, want 0", got)
	}
}

func TestSession_ConcurrentRecord(t *testing.T) {
	t.Parallel()

	clock := time.Now()
	reg := newTestRegistry(&mockStore{}, &clock)
	s := reg.Start("u")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Record(context.Background(), models.GPSPoint{Latitude: 37.5, Longitude: 127})
		}()
	}
	wg.Wait()

	if got := s.Summary(clock).TotalPoints; got != 50 {
		t.Errorf("TotalPoints = %d, want 50", got)
	}
}
