package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/request"
)

const (
	// DefaultSearchLimit is the number of search results returned when no limit is given
	DefaultSearchLimit = 10
	// MaxSearchLimit caps the limit query parameter
	MaxSearchLimit = 50
	// MaxSearchQueryLength bounds the keyword passed to the embedding model
	MaxSearchQueryLength = 200
)

// CatalogSource returns the loaded booth catalog.
type CatalogSource interface {
	Load(ctx context.Context) (*catalog.Catalog, error)
}

// BoothSearcher runs profile plus keyword vector search.
type BoothSearcher interface {
	HybridSearch(ctx context.Context, p models.UserProfile, keyword string, threshold float64, topK int) ([]models.BoothSearchResult, error)
}

// ProfileSource loads the caller's stored profile.
type ProfileSource interface {
	Get(ctx context.Context, userID string) (*models.User, error)
}

var _ ProfileSource = (*database.UserRepository)(nil)

// BoothHandler serves the booth catalog and booth search.
type BoothHandler struct {
	catalog   CatalogSource
	searcher  BoothSearcher
	profiles  ProfileSource
	threshold float64
	logger    *zap.Logger
}

// NewBoothHandler creates a new booth handler
func NewBoothHandler(source CatalogSource, searcher BoothSearcher, profiles ProfileSource, threshold float64, logger *zap.Logger) *BoothHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BoothHandler{
		catalog:   source,
		searcher:  searcher,
		profiles:  profiles,
		threshold: threshold,
		logger:    logger,
	}
}

// RegisterRoutes registers booth routes
// The router should already have the /booths prefix and the auth middleware.
func (h *BoothHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListBooths).Methods("GET")
	r.HandleFunc("/search", h.SearchBooths).Methods("GET")
	r.HandleFunc("/{id}", h.GetBooth).Methods("GET")
}

// ListBooths returns the catalog, optionally filtered by category
func (h *BoothHandler) ListBooths(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.Load(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, "load catalog", err)
		return
	}

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	booths := c.All()
	if category != "" {
		filtered := make([]models.Booth, 0, len(booths))
		for _, b := range booths {
			if b.CategoryName() == category {
				filtered = append(filtered, b)
			}
		}
		booths = filtered
	}
	respondJSON(w, http.StatusOK, booths)
}

// GetBooth returns one booth
func (h *BoothHandler) GetBooth(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.Load(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, "load catalog", err)
		return
	}
	b, ok := c.Get(mux.Vars(r)["id"])
	if !ok {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Booth not found")
		return
	}
	respondJSON(w, http.StatusOK, b)
}

// SearchBooths blends the caller's profile with the q keyword.
// The admin has no profile and searches by keyword only.
func (h *BoothHandler) SearchBooths(w http.ResponseWriter, r *http.Request) {
	sess := request.SessionFromContext(r)
	if sess == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Session not found in context")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) > MaxSearchQueryLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Search query is too long")
		return
	}
	limit := DefaultSearchLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "limit must be a positive integer")
			return
		}
		limit = min(parsed, MaxSearchLimit)
	}

	var profile models.UserProfile
	if !sess.Admin {
		user, err := h.profiles.Get(r.Context(), sess.UserID)
		if err != nil {
			respondServiceError(w, r, h.logger, "load profile", err)
			return
		}
		profile = user.UserProfile
	}
	if sess.Admin && query == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "q is required")
		return
	}

	results, err := h.searcher.HybridSearch(r.Context(), profile, query, h.threshold, limit)
	if err != nil {
		respondServiceError(w, r, h.logger, "search booths", err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}
