package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description as YAML and JSON. The document is
// read on first request and cached.
type OpenAPIHandler struct {
	openAPIPath string
	baseDir     string

	once     sync.Once
	yamlData []byte
	jsonData []byte
	loadErr  error
}

// NewOpenAPIHandler creates a new OpenAPI handler with path validation
func NewOpenAPIHandler(openAPIPath string) *OpenAPIHandler {
	absPath, _ := filepath.Abs(openAPIPath)
	baseDir, _ := filepath.Abs(filepath.Dir(openAPIPath))

	return &OpenAPIHandler{
		openAPIPath: absPath,
		baseDir:     baseDir,
	}
}

// RegisterRoutes registers OpenAPI routes on the /api/v1 router
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/openapi.json", h.ServeJSON).Methods("GET")
}

// validatePath ensures the file path is within the allowed directory
func (h *OpenAPIHandler) validatePath() error {
	absPath, err := filepath.Abs(filepath.Clean(h.openAPIPath))
	if err != nil {
		return err
	}
	relPath, err := filepath.Rel(h.baseDir, absPath)
	if err != nil {
		return err
	}
	if filepath.IsAbs(relPath) || relPath == ".." || strings.HasPrefix(relPath, "../") {
		return os.ErrPermission
	}
	return nil
}

func (h *OpenAPIHandler) load() error {
	h.once.Do(func() {
		if h.loadErr = h.validatePath(); h.loadErr != nil {
			return
		}
		if h.yamlData, h.loadErr = os.ReadFile(h.openAPIPath); h.loadErr != nil {
			return
		}
		var doc map[string]any
		if h.loadErr = yaml.Unmarshal(h.yamlData, &doc); h.loadErr != nil {
			return
		}
		h.jsonData, h.loadErr = json.Marshal(doc)
	})
	return h.loadErr
}

// ServeYAML serves the OpenAPI spec in YAML format
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "application/x-yaml", func() []byte { return h.yamlData })
}

// ServeJSON serves the OpenAPI spec in JSON format
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "application/json", func() []byte { return h.jsonData })
}

func (h *OpenAPIHandler) serve(w http.ResponseWriter, contentType string, body func() []byte) {
	if err := h.load(); err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			respondJSONError(w, http.StatusNotFound, "Not Found", "OpenAPI specification not found")
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to parse OpenAPI specification")
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(body())
}
