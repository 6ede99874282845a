// Package api provides HTTP API handlers for the pose catalog, cached
// reference landmarks, event hooks and the live session.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/posehold/internal/store"
)

// Catalog defaults for poses created without points or difficulty.
const (
	DefaultPoints     = 100
	DefaultDifficulty = 1.0
)

// PoseHandler handles HTTP requests for pose catalog resources.
type PoseHandler struct {
	store    *store.Store
	onChange func()
}

// NewPoseHandler creates a PoseHandler. onChange, if set, is called after
// every successful write to the catalog.
func NewPoseHandler(s *store.Store, onChange func()) *PoseHandler {
	return &PoseHandler{store: s, onChange: onChange}
}

// ServeHTTP routes /api/poses and /api/poses/{id}.
func (h *PoseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/poses")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createPoseRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	ImagePath  string  `json:"image_path"`
	Points     int     `json:"points"`
	Difficulty float64 `json:"difficulty"`
}

type updatePoseRequest struct {
	Name       string   `json:"name"`
	ImagePath  *string  `json:"image_path"`
	Points     *int     `json:"points"`
	Difficulty *float64 `json:"difficulty"`
}

type poseResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	ImagePath  string  `json:"image_path"`
	Points     int     `json:"points"`
	Difficulty float64 `json:"difficulty"`
	Position   int     `json:"position"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

type listPosesResponse struct {
	Poses []poseResponse `json:"poses"`
}

type errorResponse struct {
	Error string `json:"error"`
}

const timeFormat = "2006-01-02T15:04:05Z07:00"

func toPoseResponse(p *store.Pose) poseResponse {
	return poseResponse{
		ID:         p.ID,
		Name:       p.Name,
		ImagePath:  p.ImagePath,
		Points:     p.Points,
		Difficulty: p.Difficulty,
		Position:   p.Position,
		CreatedAt:  p.CreatedAt.Format(timeFormat),
		UpdatedAt:  p.UpdatedAt.Format(timeFormat),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *PoseHandler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

// list handles GET /api/poses.
func (h *PoseHandler) list(w http.ResponseWriter, r *http.Request) {
	poses, err := h.store.Poses().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list poses")
		return
	}

	response := listPosesResponse{
		Poses: make([]poseResponse, 0, len(poses)),
	}
	for _, p := range poses {
		response.Poses = append(response.Poses, toPoseResponse(p))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/poses/{id}.
func (h *PoseHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}

	writeJSON(w, http.StatusOK, toPoseResponse(p))
}

// create handles POST /api/poses. The id is generated unless given.
func (h *PoseHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Points == 0 {
		req.Points = DefaultPoints
	}
	if req.Difficulty == 0 {
		req.Difficulty = DefaultDifficulty
	}
	if req.Points < 0 || req.Difficulty < 0 {
		writeError(w, http.StatusBadRequest, "Points and difficulty must be positive")
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.New().String()
	} else if _, err := h.store.Poses().GetByID(id); err == nil {
		writeError(w, http.StatusConflict, "Pose already exists")
		return
	}

	p := &store.Pose{
		ID:         id,
		Name:       req.Name,
		ImagePath:  req.ImagePath,
		Points:     req.Points,
		Difficulty: req.Difficulty,
	}
	if err := h.store.Poses().Create(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create pose")
		return
	}

	h.changed()
	writeJSON(w, http.StatusCreated, toPoseResponse(p))
}

// update handles PUT /api/poses/{id}.
func (h *PoseHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Poses().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get pose")
		return
	}

	var req updatePoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.ImagePath != nil {
		p.ImagePath = *req.ImagePath
	}
	if req.Points != nil {
		if *req.Points <= 0 {
			writeError(w, http.StatusBadRequest, "Points must be positive")
			return
		}
		p.Points = *req.Points
	}
	if req.Difficulty != nil {
		if *req.Difficulty <= 0 {
			writeError(w, http.StatusBadRequest, "Difficulty must be positive")
			return
		}
		p.Difficulty = *req.Difficulty
	}

	if err := h.store.Poses().Update(p); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update pose")
		return
	}

	h.changed()
	writeJSON(w, http.StatusOK, toPoseResponse(p))
}

// delete handles DELETE /api/poses/{id}.
func (h *PoseHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Poses().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Pose not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete pose")
		return
	}

	h.changed()
	w.WriteHeader(http.StatusNoContent)
}
