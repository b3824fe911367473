package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/embedding"
)

const testCatalog = `{"id":"A1","company_name_kor":"맛있는 장류","category":"가공식품","company_description":"전통 장","products":"고추장","products_description":""}
{"id":"B2","company_name_kor":"커피로스터","category":"음료","company_description":"스페셜티","products":"원두","products_description":""}
{"id":"C3","company_name_kor":"빵집","category":null,"company_description":"","products":"식빵","products_description":""}
`

type mockSearcher struct {
	gotProfile models.UserProfile
	gotKeyword string
	gotTopK    int
	err        error
}

func (m *mockSearcher) HybridSearch(_ context.Context, p models.UserProfile, keyword string, _ float64, topK int) ([]models.BoothSearchResult, error) {
	m.gotProfile, m.gotKeyword, m.gotTopK = p, keyword, topK
	if m.err != nil {
		return nil, m.err
	}
	return []models.BoothSearchResult{{Booth: models.Booth{ID: "A1"}, Similarity: 0.8}}, nil
}

type mockProfiles struct {
	users map[string]*models.User
}

func (m mockProfiles) Get(_ context.Context, userID string) (*models.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func newBoothRouter(t *testing.T, searcher BoothSearcher) *mux.Router {
	t.Helper()
	c, _, err := catalog.Parse(strings.NewReader(testCatalog), nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	age := 34
	profiles := mockProfiles{users: map[string]*models.User{
		visitorID: {UserID: visitorID, UserProfile: models.UserProfile{Age: &age}},
	}}
	r := mux.NewRouter()
	NewBoothHandler(staticCatalog{catalog: c}, searcher, profiles, 0.3, nil).RegisterRoutes(r.PathPrefix("/booths").Subrouter())
	return r
}

func TestBoothHandler_List(t *testing.T) {
	t.Parallel()

	r := newBoothRouter(t, &mockSearcher{})

	tests := []struct {
		path string
		want int
	}{
		{path: "/booths", want: 3},
		{path: "/booths?category=%EC%9D%8C%EB%A3%8C", want: 1},
		{path: "/booths?category=%EC%97%86%EC%9D%8C", want: 0},
	}
	for _, tt := range tests {
		w := serveAs(r, http.MethodGet, tt.path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tt.path, w.Code)
		}
		if list, _ := decodeBody(t, w)["data"].([]any); len(list) != tt.want {
			t.Errorf("%s: expected %d booths, got %d", tt.path, tt.want, len(list))
		}
	}
}

func TestBoothHandler_Get(t *testing.T) {
	t.Parallel()

	r := newBoothRouter(t, &mockSearcher{})

	w := serveAs(r, http.MethodGet, "/booths/B2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if data, _ := decodeBody(t, w)["data"].(map[string]any); data["company_name_kor"] != "커피로스터" {
		t.Errorf("Unexpected booth %v", data)
	}
	if w := serveAs(r, http.MethodGet, "/booths/Z9", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestBoothHandler_Search(t *testing.T) {
	t.Parallel()

	t.Run("visitor profile is used", func(t *testing.T) {
		t.Parallel()
		searcher := &mockSearcher{}
		r := newBoothRouter(t, searcher)

		w := serveAs(r, http.MethodGet, "/booths/search?q=%EC%BB%A4%ED%94%BC&limit=100", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if searcher.gotKeyword != "커피" {
			t.Errorf("keyword = %q", searcher.gotKeyword)
		}
		if searcher.gotTopK != MaxSearchLimit {
			t.Errorf("topK = %d, want %d", searcher.gotTopK, MaxSearchLimit)
		}
		if searcher.gotProfile.Age == nil || *searcher.gotProfile.Age != 34 {
			t.Error("Expected the visitor's profile to be passed")
		}
	})

	t.Run("admin needs a keyword", func(t *testing.T) {
		t.Parallel()
		r := newBoothRouter(t, &mockSearcher{})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, withSession(newTestRequest(http.MethodGet, "/booths/search", nil), models.AdminUserID, true))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		t.Parallel()
		r := newBoothRouter(t, &mockSearcher{})
		if w := serveAs(r, http.MethodGet, "/booths/search?limit=-1", nil); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("embedding outage", func(t *testing.T) {
		t.Parallel()
		searcher := &mockSearcher{err: &embedding.EmbeddingError{Kind: embedding.ErrRateLimitExceeded, Err: errors.New("429")}}
		r := newBoothRouter(t, searcher)
		if w := serveAs(r, http.MethodGet, "/booths/search?q=tea", nil); w.Code != http.StatusBadGateway {
			t.Errorf("Expected 502, got %d", w.Code)
		}
	})
}
