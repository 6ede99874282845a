package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ayusman/posehold/internal/app"
	"github.com/ayusman/posehold/internal/detector"
	"github.com/ayusman/posehold/internal/store"
)

// LandmarksHandler handles the cached reference landmarks of a pose.
// References are keyed by pose id and may exist for poses that only live
// in a sequence file, so the catalog is not consulted.
type LandmarksHandler struct {
	store    *store.Store
	onChange func(poseID string)
}

// NewLandmarksHandler creates a LandmarksHandler with the given store.
// onChange, if set, is called with the pose id after its reference is
// replaced or deleted.
func NewLandmarksHandler(s *store.Store, onChange func(poseID string)) *LandmarksHandler {
	return &LandmarksHandler{store: s, onChange: onChange}
}

func (h *LandmarksHandler) changed(poseID string) {
	if h.onChange != nil {
		h.onChange(poseID)
	}
}

// ServeHTTP handles /api/poses/{id}/landmarks.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/poses/")
	parts := strings.Split(path, "/")

	if len(parts) != 2 || parts[0] == "" || parts[1] != "landmarks" {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	poseID := parts[0]

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, poseID)
	case http.MethodPut:
		h.put(w, r, poseID)
	case http.MethodDelete:
		h.delete(w, r, poseID)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type putLandmarksRequest struct {
	ImagePath string             `json:"image_path"`
	Score     float64            `json:"score"`
	Points    []detector.Point3D `json:"points"`
}

type landmarksResponse struct {
	PoseID     string             `json:"pose_id"`
	ImagePath  string             `json:"image_path"`
	Score      float64            `json:"score"`
	Points     []detector.Point3D `json:"points"`
	DetectedAt string             `json:"detected_at"`
}

func toLandmarksResponse(ref *store.Reference, lm *detector.PoseLandmarks) landmarksResponse {
	return landmarksResponse{
		PoseID:     ref.PoseID,
		ImagePath:  ref.ImagePath,
		Score:      ref.Score,
		Points:     lm.Points[:],
		DetectedAt: ref.DetectedAt.Format(timeFormat),
	}
}

// get handles GET /api/poses/{id}/landmarks.
func (h *LandmarksHandler) get(w http.ResponseWriter, r *http.Request, poseID string) {
	ref, err := h.store.References().Get(poseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No reference for pose")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get reference")
		return
	}

	lm, ok := app.LandmarksFromReference(ref)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Stored reference is incomplete")
		return
	}

	writeJSON(w, http.StatusOK, toLandmarksResponse(ref, lm))
}

// put handles PUT /api/poses/{id}/landmarks, replacing the cached reference.
func (h *LandmarksHandler) put(w http.ResponseWriter, r *http.Request, poseID string) {
	var req putLandmarksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Points) != detector.NumLandmarks {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Expected %d points, got %d", detector.NumLandmarks, len(req.Points)))
		return
	}

	lm := &detector.PoseLandmarks{Score: req.Score}
	copy(lm.Points[:], req.Points)

	ref := app.ReferenceFromLandmarks(poseID, req.ImagePath, lm)
	if err := h.store.References().Save(ref); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save reference")
		return
	}
	h.changed(poseID)

	writeJSON(w, http.StatusOK, toLandmarksResponse(ref, lm))
}

// delete handles DELETE /api/poses/{id}/landmarks. The next time the pose
// becomes active its image is detected again.
func (h *LandmarksHandler) delete(w http.ResponseWriter, r *http.Request, poseID string) {
	if err := h.store.References().Delete(poseID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "No reference for pose")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete reference")
		return
	}
	h.changed(poseID)

	w.WriteHeader(http.StatusNoContent)
}
