package recommend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/ai"
)

type mockRetriever struct {
	exists      bool
	pool        []models.BoothSearchResult
	err         error
	threshold   float64
	searchCalls int
}

func (m *mockRetriever) EmbeddingsExist(ctx context.Context) bool {
	return m.exists
}

func (m *mockRetriever) SectorBalancedSearch(ctx context.Context, p models.UserProfile, threshold float64) ([]models.BoothSearchResult, error) {
	m.searchCalls++
	m.threshold = threshold
	return m.pool, m.err
}

type mockCatalog struct {
	catalog *catalog.Catalog
	err     error
}

func (m *mockCatalog) Load(ctx context.Context) (*catalog.Catalog, error) {
	return m.catalog, m.err
}

// scriptedCompleter answers by operation name.
type scriptedCompleter struct {
	mu       sync.Mutex
	replies  map[string]string
	errs     map[string]error
	requests []ai.CompletionRequest
}

func (m *scriptedCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if err := m.errs[req.Operation]; err != nil {
		return "", err
	}
	return m.replies[req.Operation], nil
}

func (m *scriptedCompleter) operations() []string {
	ops := make([]string, len(m.requests))
	for i, r := range m.requests {
		ops[i] = r.Operation
	}
	return ops
}

var _ ai.Completer = (*scriptedCompleter)(nil)

func testCatalog(t *testing.T, n int) *catalog.Catalog {
	t.Helper()
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `{"id":"B%03d","company_name_kor":"회사%d","category":"식품"}`+"\n", i, i)
	}
	cat, _, err := catalog.Parse(strings.NewReader(b.String()), nil)
	if err != nil {
		t.Fatalf("catalog.Parse() error = %v", err)
	}
	return cat
}

func recsJSON(ids ...string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf(`{"id":%q,"rationale":"이유 %d"}`, id, i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func pool(ids ...string) []models.BoothSearchResult {
	out := make([]models.BoothSearchResult, len(ids))
	for i, id := range ids {
		out[i] = models.BoothSearchResult{
			Booth:      models.Booth{ID: id, CompanyNameKor: "회사 " + id},
			Similarity: 0.9 - float64(i)*0.1,
		}
	}
	return out
}

func recIDs(recs []models.Recommendation) string {
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return strings.Join(ids, ",")
}

func TestRecommend_RAGPath(t *testing.T) {
	t.Parallel()

	retriever := &mockRetriever{exists: true, pool: pool("A1", "A2", "A3")}
	llm := &scriptedCompleter{replies: map[string]string{
		"recommend_rag": "```json\n" + recsJSON("A2", "A1", "A2", "ZZ") + "\n```",
	}}
	svc := NewService(retriever, &mockCatalog{err: errors.New("must not be used")}, llm, nil, WithMatchThreshold(0.25))

	recs, err := svc.Recommend(context.Background(), models.UserProfile{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if recIDs(recs) != "A2,A1,ZZ" {
		t.Errorf("Recommend() ids = %s, want A2,A1,ZZ", recIDs(recs))
	}
	if recs[0].Similarity == nil || *recs[0].Similarity != 0.8 {
		t.Errorf("A2 similarity = %v, want 0.8", recs[0].Similarity)
	}
	if recs[2].Similarity == nil || *recs[2].Similarity != 0 {
		t.Errorf("unknown id similarity = %v, want 0", recs[2].Similarity)
	}
	if retriever.threshold != 0.25 {
		t.Errorf("threshold = %v, want 0.25", retriever.threshold)
	}
	if ops := llm.operations(); len(ops) != 1 || ops[0] != "recommend_rag" {
		t.Errorf("llm operations = %v", ops)
	}
	prompt := llm.requests[0].Prompt
	if !strings.Contains(prompt, "[ID: A1] 회사 A1") || !strings.Contains(prompt, "카테고리: N/A") {
		t.Errorf("rag prompt missing candidate block:\n%s", prompt)
	}
}

func TestRecommend_FallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		retriever   *mockRetriever
		ragReply    string
		ragErr      error
		wantSearch  int
		wantLLMCall int
	}{
		{name: "no embeddings", retriever: &mockRetriever{exists: false}, wantSearch: 0, wantLLMCall: 1},
		{name: "search error", retriever: &mockRetriever{exists: true, err: errors.New("db down")}, wantSearch: 1, wantLLMCall: 1},
		{name: "empty pool", retriever: &mockRetriever{exists: true, pool: []models.BoothSearchResult{}}, wantSearch: 1, wantLLMCall: 1},
		{name: "llm error", retriever: &mockRetriever{exists: true, pool: pool("A1")}, ragErr: errors.New("503"), wantSearch: 1, wantLLMCall: 2},
		{name: "malformed reply", retriever: &mockRetriever{exists: true, pool: pool("A1")}, ragReply: "죄송합니다", wantSearch: 1, wantLLMCall: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			llm := &scriptedCompleter{
				replies: map[string]string{
					"recommend_rag":      tt.ragReply,
					"recommend_fallback": recsJSON("B001", "B002"),
				},
				errs: map[string]error{"recommend_rag": tt.ragErr},
			}
			svc := NewService(tt.retriever, &mockCatalog{catalog: testCatalog(t, 3)}, llm, nil)

			recs, err := svc.Recommend(context.Background(), models.UserProfile{})
			if err != nil {
				t.Fatalf("Recommend() error = %v", err)
			}
			if recIDs(recs) != "B001,B002" {
				t.Errorf("Recommend() ids = %s", recIDs(recs))
			}
			if recs[0].Similarity != nil {
				t.Errorf("fallback recommendations carry no similarity, got %v", *recs[0].Similarity)
			}
			last := llm.requests[len(llm.requests)-1]
			if last.Operation != "recommend_fallback" {
				t.Errorf("last operation = %s, want recommend_fallback", last.Operation)
			}
			if !strings.Contains(last.Prompt, `"id": "B003"`) {
				t.Errorf("fallback prompt does not contain the catalog")
			}
			if tt.retriever.searchCalls != tt.wantSearch {
				t.Errorf("vector search called %d times, want %d", tt.retriever.searchCalls, tt.wantSearch)
			}
			if len(llm.requests) != tt.wantLLMCall {
				t.Errorf("LLM called %d times, want %d", len(llm.requests), tt.wantLLMCall)
			}
		})
	}
}

func TestRecommend_Fatal(t *testing.T) {
	t.Parallel()

	llmErr := errors.New("quota")
	tests := []struct {
		name    string
		catalog *mockCatalog
		llm     *scriptedCompleter
		wantErr error
	}{
		{
			name:    "catalog unavailable",
			catalog: &mockCatalog{err: errors.New("no file")},
			llm:     &scriptedCompleter{},
		},
		{
			name:    "fallback llm error",
			catalog: &mockCatalog{},
			llm:     &scriptedCompleter{errs: map[string]error{"recommend_fallback": llmErr}},
			wantErr: llmErr,
		},
		{
			name:    "fallback malformed",
			catalog: &mockCatalog{},
			llm:     &scriptedCompleter{replies: map[string]string{"recommend_fallback": "{not json"}},
			wantErr: ErrMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.catalog.catalog == nil && tt.catalog.err == nil {
				tt.catalog.catalog = testCatalog(t, 2)
			}
			svc := NewService(&mockRetriever{}, tt.catalog, tt.llm, nil)

			recs, err := svc.Recommend(context.Background(), models.UserProfile{})
			if !errors.Is(err, ErrRecommendationFailed) {
				t.Fatalf("Recommend() error = %v, want ErrRecommendationFailed", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Recommend() error = %v, want wrapped %v", err, tt.wantErr)
			}
			if recs != nil {
				t.Errorf("Recommend() recs = %v, want nil", recs)
			}
			fallbacks := 0
			for _, op := range tt.llm.operations() {
				if op == "recommend_fallback" {
					fallbacks++
				}
			}
			if fallbacks > 1 {
				t.Errorf("fallback ran %d times, want at most once", fallbacks)
			}
		})
	}
}

func TestRecommend_CancelledDoesNotFallBack(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	llm := &scriptedCompleter{errs: map[string]error{"recommend_rag": context.Canceled}}
	svc := NewService(&mockRetriever{exists: true, pool: pool("A1")}, &mockCatalog{catalog: testCatalog(t, 1)}, llm, nil)

	_, err := svc.Recommend(ctx, models.UserProfile{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Recommend() error = %v, want context.Canceled", err)
	}
	if ops := llm.operations(); len(ops) != 1 {
		t.Errorf("llm operations = %v, want only the rag call", ops)
	}
}

func TestRecommend_CapsAtTwenty(t *testing.T) {
	t.Parallel()

	ids := make([]string, 25)
	for i := range ids {
		ids[i] = fmt.Sprintf("A%02d", i)
	}
	llm := &scriptedCompleter{replies: map[string]string{"recommend_rag": recsJSON(ids...)}}
	svc := NewService(&mockRetriever{exists: true, pool: pool(ids...)}, &mockCatalog{}, llm, nil)

	recs, err := svc.Recommend(context.Background(), models.UserProfile{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(recs) != MaxRecommendations {
		t.Errorf("len(recs) = %d, want %d", len(recs), MaxRecommendations)
	}
	if recs[19].ID != "A19" {
		t.Errorf("recs[19] = %s, want A19", recs[19].ID)
	}
}

func TestFollowUp(t *testing.T) {
	t.Parallel()

	reply := "```json\n{\"summary\":\"과일을 좋아합니다.\",\"questions\":[\"q1\",\" \",\"q2\",\"q3\",\"q4\",\"q5\"]}\n```"
	llm := &scriptedCompleter{replies: map[string]string{"followup": reply}}
	svc := NewService(&mockRetriever{}, &mockCatalog{}, llm, nil)

	got, err := svc.FollowUp(context.Background(), models.UserProfile{})
	if err != nil {
		t.Fatalf("FollowUp() error = %v", err)
	}
	if got.Summary != "과일을 좋아합니다." {
		t.Errorf("Summary = %q", got.Summary)
	}
	if strings.Join(got.Questions, ",") != "q1,q2,q3,q4" {
		t.Errorf("Questions = %v", got.Questions)
	}
	if !llm.requests[0].JSON {
		t.Error("follow-up request should ask for a JSON object")
	}
}

func TestFollowUp_Errors(t *testing.T) {
	t.Parallel()

	llmErr := errors.New("timeout")
	tests := []struct {
		name    string
		llm     *scriptedCompleter
		wantErr error
	}{
		{name: "llm error", llm: &scriptedCompleter{errs: map[string]error{"followup": llmErr}}, wantErr: llmErr},
		{name: "not json", llm: &scriptedCompleter{replies: map[string]string{"followup": "hello"}}, wantErr: ErrMalformedResponse},
		{name: "no questions", llm: &scriptedCompleter{replies: map[string]string{"followup": `{"summary":"s","questions":[]}`}}, wantErr: ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewService(&mockRetriever{}, &mockCatalog{}, tt.llm, nil)
			_, err := svc.FollowUp(context.Background(), models.UserProfile{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FollowUp() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrFollowUpFailed) {
				t.Errorf("FollowUp() error = %v, want ErrFollowUpFailed", err)
			}
		})
	}
}
