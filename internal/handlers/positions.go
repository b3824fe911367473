package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/middleware"
	"github.com/myeongseok-gwon/coex-search-temp/internal/models"
	"github.com/myeongseok-gwon/coex-search-temp/internal/validation"
)

// PositionStore persists booth floor-map positions.
type PositionStore interface {
	List(ctx context.Context) ([]models.BoothPosition, error)
	Get(ctx context.Context, boothID string) (*models.BoothPosition, error)
	Upsert(ctx context.Context, boothID string, x, y float64) (*models.BoothPosition, error)
	Delete(ctx context.Context, boothID string) error
}

var _ PositionStore = (*database.BoothPositionRepository)(nil)

// PositionHandler serves booth positions. Writes are admin only.
type PositionHandler struct {
	positions PositionStore
	logger    *zap.Logger
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(positions PositionStore, logger *zap.Logger) *PositionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionHandler{positions: positions, logger: logger}
}

// RegisterRoutes registers position routes on a router with the /booth-positions prefix.
func (h *PositionHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListPositions).Methods("GET")
	r.HandleFunc("/{id}", h.GetPosition).Methods("GET")
	r.Handle("/{id}", middleware.RequireAdmin(http.HandlerFunc(h.PutPosition))).Methods("PUT")
	r.Handle("/{id}", middleware.RequireAdmin(http.HandlerFunc(h.DeletePosition))).Methods("DELETE")
}

// PositionRequest places a booth at relative coordinates.
type PositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ListPositions returns every placed booth
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.positions.List(r.Context())
	if err != nil {
		respondServiceError(w, r, h.logger, "list positions", err)
		return
	}
	if positions == nil {
		positions = []models.BoothPosition{}
	}
	respondJSON(w, http.StatusOK, positions)
}

// GetPosition returns one booth position
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	p, err := h.positions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, r, h.logger, "load position", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// PutPosition creates or moves a booth position
func (h *PositionHandler) PutPosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}
	boothID := mux.Vars(r)["id"]
	if err := validation.Struct(models.BoothPosition{BoothID: boothID, X: req.X, Y: req.Y}); err != nil {
		respondServiceError(w, r, h.logger, "save position", err)
		return
	}

	p, err := h.positions.Upsert(r.Context(), boothID, req.X, req.Y)
	if err != nil {
		respondServiceError(w, r, h.logger, "save position", err)
		return
	}
	h.logger.Info("booth_position_saved", zap.String("booth_id", boothID))
	respondJSON(w, http.StatusOK, p)
}

// DeletePosition removes a booth from the floor map
func (h *PositionHandler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	boothID := mux.Vars(r)["id"]
	if err := h.positions.Delete(r.Context(), boothID); err != nil {
		respondServiceError(w, r, h.logger, "delete position", err)
		return
	}
	h.logger.Info("booth_position_deleted", zap.String("booth_id", boothID))
	w.WriteHeader(http.StatusNoContent)
}
