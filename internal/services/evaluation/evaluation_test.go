package evaluation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/validation"
)

type key struct{ user, booth string }

// memoryStore follows the repository's upsert and close-once rules.
type memoryStore struct {
	mu    sync.Mutex
	rows  map[key]*models.Evaluation
	order []key
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[key]*models.Evaluation)}
}

func (m *memoryStore) row(userID, boothID string) *models.Evaluation {
	k := key{userID, boothID}
	e, ok := m.rows[k]
	if !ok {
		e = &models.Evaluation{UserID: userID, BoothID: boothID}
		m.rows[k] = e
		m.order = append(m.order, k)
	}
	return e
}

func (m *memoryStore) Start(ctx context.Context, userID, boothID string, at time.Time) (*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.row(userID, boothID)
	if e.StartedAt == nil {
		e.StartedAt = &at
	}
	cp := *e
	return &cp, nil
}

func (m *memoryStore) Complete(ctx context.Context, userID, boothID string, in models.EvaluationInput, at time.Time) (*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[key{userID, boothID}]
	if !ok || e.Closed() {
		return nil, database.ErrNotFound
	}
	e.BoothRating, e.RecRating = &in.BoothRating, &in.RecRating
	e.IsCorrect, e.IsIrrelevant, e.IsBoothWrongInfo = in.IsCorrect, in.IsIrrelevant, in.IsBoothWrongInfo
	e.EndedAt = &at
	cp := *e
	return &cp, nil
}

func (m *memoryStore) Get(ctx context.Context, userID, boothID string) (*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[key{userID, boothID}]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memoryStore) ListByUser(ctx context.Context, userID string) ([]*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Evaluation
	for _, k := range m.order {
		if k.user == userID {
			cp := *m.rows[k]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryStore) SoftDeleteRecommendation(ctx context.Context, userID, boothID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.row(userID, boothID)
	e.IsDeleted = true
	if e.DeletedAt == nil {
		e.DeletedAt = &at
	}
	return nil
}

var _ Store = (*memoryStore)(nil)

type mockUsers struct {
	summaries [][]models.EvaluationSummary
	marked    []database.Timestamp
	markErr   error
}

func (m *mockUsers) SaveEvaluationSummary(ctx context.Context, userID string, summary []models.EvaluationSummary) error {
	m.summaries = append(m.summaries, summary)
	return nil
}

func (m *mockUsers) MarkTimestamp(ctx context.Context, userID string, field database.Timestamp, at time.Time) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, field)
	return nil
}

var _ UserStore = (*mockUsers)(nil)

func input(booth, rec int) models.EvaluationInput {
	return models.EvaluationInput{BoothRating: booth, RecRating: rec, IsCorrect: true}
}

func TestService_StartAndComplete(t *testing.T) {
	t.Parallel()

	store, users := newMemoryStore(), &mockUsers{}
	svc := NewService(store, users, nil)
	ctx := context.Background()

	first, err := svc.Start(ctx, "u1", "A1001")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	again, err := svc.Start(ctx, "u1", "A1001")
	if err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if !again.StartedAt.Equal(*first.StartedAt) {
		t.Error("restarting should keep the original started_at")
	}

	e, err := svc.Complete(ctx, "u1", "A1001", input(5, 4))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !e.Closed() || *e.BoothRating != 5 {
		t.Errorf("Complete() = %+v", e)
	}
	if len(users.summaries) != 1 {
		t.Fatalf("summary saves = %d, want 1", len(users.summaries))
	}
	got := users.summaries[0]
	if len(got) != 1 || got[0].ID != "A1001" || *got[0].RecRating != 4 {
		t.Errorf("summary = %+v", got)
	}

	if _, err := svc.Complete(ctx, "u1", "A1001", input(1, 1)); !errors.Is(err, ErrEvaluationClosed) {
		t.Errorf("Complete() on closed evaluation error = %v, want ErrEvaluationClosed", err)
	}
	reopened, _ := svc.Start(ctx, "u1", "A1001")
	if !reopened.Closed() {
		t.Error("Start() must not reopen a closed evaluation")
	}
}

func TestService_CompleteWithoutStart(t *testing.T) {
	t.Parallel()

	svc := NewService(newMemoryStore(), &mockUsers{}, nil)
	_, err := svc.Complete(context.Background(), "u1", "B2002", input(3, 3))
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Complete() error = %v, want ErrNotFound", err)
	}
}

func TestService_CompleteValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		boothID string
		in      models.EvaluationInput
		field   string
	}{
		{name: "booth rating too high", boothID: "A1", in: input(6, 3), field: "booth_rating"},
		{name: "missing rec rating", boothID: "A1", in: input(3, 0), field: "rec_rating"},
		{name: "bad booth id", boothID: "../etc", in: input(3, 3), field: "booth_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(newMemoryStore(), &mockUsers{}, nil)
			_, err := svc.Complete(context.Background(), "u1", tt.boothID, tt.in)
			var verr *validation.Error
			if !errors.As(err, &verr) {
				t.Fatalf("Complete() error = %v, want *validation.Error", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("fields = %v, want %s", verr.Fields, tt.field)
			}
		})
	}
}

func TestService_DeleteRecommendationDropsFromSummary(t *testing.T) {
	t.Parallel()

	store, users := newMemoryStore(), &mockUsers{}
	svc := NewService(store, users, nil)
	ctx := context.Background()

	for _, booth := range []string{"A1", "A2"} {
		if _, err := svc.Start(ctx, "u1", booth); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Complete(ctx, "u1", booth, input(4, 4)); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.DeleteRecommendation(ctx, "u1", "A1"); err != nil {
		t.Fatalf("DeleteRecommendation() error = %v", err)
	}
	if err := svc.DeleteRecommendation(ctx, "u1", "C9"); err != nil {
		t.Fatalf("DeleteRecommendation() of unvisited booth error = %v", err)
	}

	last := users.summaries[len(users.summaries)-1]
	if len(last) != 1 || last[0].ID != "A2" {
		t.Errorf("summary after delete = %+v, want only A2", last)
	}

	evals, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(evals) != 3 {
		t.Errorf("List() = %d rows, want 3", len(evals))
	}
}

func TestService_ListEmpty(t *testing.T) {
	t.Parallel()

	svc := NewService(newMemoryStore(), &mockUsers{}, nil)
	evals, err := svc.List(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if evals == nil || len(evals) != 0 {
		t.Errorf("List() = %v, want empty non-nil slice", evals)
	}
}

func TestService_Finish(t *testing.T) {
	t.Parallel()

	users := &mockUsers{}
	svc := NewService(newMemoryStore(), users, nil)
	if err := svc.Finish(context.Background(), "u1"); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if len(users.marked) != 1 || users.marked[0] != database.TimestampEvaluationFinished {
		t.Errorf("marked = %v", users.marked)
	}

	users.markErr = database.ErrNotFound
	if err := svc.Finish(context.Background(), "u1"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
}
