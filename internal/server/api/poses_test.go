package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/posehold/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func seedPose(t *testing.T, s *store.Store, id, name string) {
	t.Helper()
	p := &store.Pose{ID: id, Name: name, ImagePath: "poses/" + id + ".jpg", Points: 100, Difficulty: 1.0}
	if err := s.Poses().Create(p); err != nil {
		t.Fatalf("failed to create pose: %v", err)
	}
}

func TestPoseHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	seedPose(t, s, "mountain", "Mountain")
	seedPose(t, s, "tree", "Tree")

	req := httptest.NewRequest(http.MethodGet, "/api/poses", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response listPosesResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(response.Poses) != 2 {
		t.Fatalf("expected 2 poses, got %d", len(response.Poses))
	}
	if response.Poses[0].ID != "mountain" || response.Poses[1].ID != "tree" {
		t.Errorf("poses out of order: %+v", response.Poses)
	}
	if response.Poses[1].Position != 1 {
		t.Errorf("expected position 1, got %d", response.Poses[1].Position)
	}
}

func TestPoseHandler_List_Empty(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/poses", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Body.String() != "{\"poses\":[]}\n" {
		t.Errorf("expected empty list, got %q", rec.Body.String())
	}
}

func TestPoseHandler_Create(t *testing.T) {
	s := newTestStore(t)
	changed := 0
	handler := NewPoseHandler(s, func() { changed++ })

	reqBody := createPoseRequest{
		Name:       "Goddess",
		ImagePath:  "poses/goddess.jpg",
		Points:     150,
		Difficulty: 1.3,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/poses", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response poseResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.ID == "" {
		t.Error("expected non-empty ID in response")
	}
	if response.Points != 150 || response.Difficulty != 1.3 {
		t.Errorf("unexpected rewards: %+v", response)
	}

	created, err := s.Poses().GetByID(response.ID)
	if err != nil {
		t.Fatalf("failed to get created pose: %v", err)
	}
	if created.Name != "Goddess" {
		t.Errorf("stored pose name mismatch: got %q, want 'Goddess'", created.Name)
	}
	if changed != 1 {
		t.Errorf("expected one change notification, got %d", changed)
	}
}

func TestPoseHandler_Create_Defaults(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/poses", bytes.NewReader([]byte(`{"id":"chair","name":"Chair"}`)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response poseResponse
	json.NewDecoder(rec.Body).Decode(&response)
	if response.ID != "chair" {
		t.Errorf("expected given id 'chair', got %q", response.ID)
	}
	if response.Points != DefaultPoints || response.Difficulty != DefaultDifficulty {
		t.Errorf("expected default rewards, got %+v", response)
	}

	// The same id again conflicts.
	req = httptest.NewRequest(http.MethodPost, "/api/poses", bytes.NewReader([]byte(`{"id":"chair","name":"Chair"}`)))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}
}

func TestPoseHandler_Create_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "invalid json"},
		{"missing name", `{"points": 100}`},
		{"negative points", `{"name": "x", "points": -5}`},
		{"negative difficulty", `{"name": "x", "difficulty": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			handler := NewPoseHandler(s, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/poses", bytes.NewReader([]byte(tt.body)))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestPoseHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)
	seedPose(t, s, "mountain", "Mountain")

	req := httptest.NewRequest(http.MethodGet, "/api/poses/mountain", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response poseResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Name != "Mountain" || response.ImagePath != "poses/mountain.jpg" {
		t.Errorf("unexpected pose: %+v", response)
	}
}

func TestPoseHandler_Get_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/poses/non-existent", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPoseHandler_Update(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)
	seedPose(t, s, "mountain", "Mountain")

	req := httptest.NewRequest(http.MethodPut, "/api/poses/mountain",
		bytes.NewReader([]byte(`{"name":"Tadasana","points":110,"difficulty":1.1}`)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	updated, _ := s.Poses().GetByID("mountain")
	if updated.Name != "Tadasana" || updated.Points != 110 || updated.Difficulty != 1.1 {
		t.Errorf("update not persisted: %+v", updated)
	}
	if updated.ImagePath != "poses/mountain.jpg" {
		t.Errorf("image path should be unchanged, got %q", updated.ImagePath)
	}
}

func TestPoseHandler_Update_Invalid(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)
	seedPose(t, s, "mountain", "Mountain")

	for _, body := range []string{`{"points":0}`, `{"difficulty":-2}`, `nope`} {
		req := httptest.NewRequest(http.MethodPut, "/api/poses/mountain", bytes.NewReader([]byte(body)))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected status %d, got %d", body, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestPoseHandler_Update_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/poses/non-existent", bytes.NewReader([]byte(`{"name":"x"}`)))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPoseHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)
	seedPose(t, s, "mountain", "Mountain")

	req := httptest.NewRequest(http.MethodDelete, "/api/poses/mountain", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/poses/mountain", nil)
	rec = httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d after delete, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPoseHandler_Delete_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/poses/non-existent", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestPoseHandler_MethodNotAllowed(t *testing.T) {
	s := newTestStore(t)
	handler := NewPoseHandler(s, nil)

	req := httptest.NewRequest(http.MethodPatch, "/api/poses", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
