package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/posehold/internal/app"
	"github.com/ayusman/posehold/internal/capture"
	"github.com/ayusman/posehold/internal/detector"
	"github.com/ayusman/posehold/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestSession starts a session without a camera. Reference images do
// not exist, so the session only reacts to commands.
func newTestSession(t *testing.T) *app.App {
	t.Helper()
	a, err := app.New(app.Config{Detector: detector.NewMockDetector()})
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(a.Stop)
	return a
}

func TestAPI_PoseWorkflow(t *testing.T) {
	s := newTestStore(t)

	changes := 0
	srv := New(Config{Store: s, OnCatalogChange: func() { changes++ }})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Create a pose
	createBody := `{"name": "Warrior II", "image_path": "poses/warrior.jpg", "points": 150}`
	resp, err := client.Post(ts.URL+"/api/poses", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/poses error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var created struct {
		ID         string  `json:"id"`
		Name       string  `json:"name"`
		Difficulty float64 `json:"difficulty"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	if created.Name != "Warrior II" {
		t.Errorf("created name = %s, want Warrior II", created.Name)
	}
	if created.Difficulty != 1.0 {
		t.Errorf("created difficulty = %v, want 1.0", created.Difficulty)
	}

	// 2. List poses
	resp, _ = client.Get(ts.URL + "/api/poses")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/poses status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var listed struct {
		Poses []struct {
			ID string `json:"id"`
		} `json:"poses"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Poses) != 1 {
		t.Fatalf("len(poses) = %d, want 1", len(listed.Poses))
	}

	// 3. Store reference landmarks for it
	points := make([]detector.Point3D, detector.NumLandmarks)
	for i := range points {
		points[i] = detector.Point3D{X: float64(i) / 100, Y: 0.5}
	}
	body, _ := json.Marshal(map[string]any{"image_path": "poses/warrior.jpg", "score": 0.9, "points": points})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/poses/"+created.ID+"/landmarks", bytes.NewReader(body))
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT landmarks status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	resp, _ = client.Get(ts.URL + "/api/poses/" + created.ID + "/landmarks")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET landmarks status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	resp.Body.Close()

	// 4. Delete the pose, which drops its reference too
	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/api/poses/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()

	// 5. Verify deleted
	resp, _ = client.Get(ts.URL + "/api/poses/" + created.ID)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()

	resp, _ = client.Get(ts.URL + "/api/poses/" + created.ID + "/landmarks")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET landmarks after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
	resp.Body.Close()

	if changes != 2 {
		t.Errorf("catalog change callback ran %d times, want 2", changes)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}

func TestAPI_SessionCommands(t *testing.T) {
	session := newTestSession(t)
	ts := httptest.NewServer(New(Config{Session: session}))
	defer ts.Close()

	do := func(method, path, body string) (*http.Response, map[string]any) {
		t.Helper()
		req, err := http.NewRequest(method, ts.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		var out map[string]any
		json.NewDecoder(resp.Body).Decode(&out)
		return resp, out
	}

	resp, snap := do(http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), snap["target_seconds"])
	assert.Equal(t, "idle", snap["phase"])
	assert.Len(t, snap["hold_options"], 5)

	resp, snap = do(http.MethodPost, "/api/session/next", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), snap["index"])

	resp, snap = do(http.MethodPut, "/api/session/pose", `{"index": 3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), snap["index"])

	resp, _ = do(http.MethodPut, "/api/session/pose", `{"index": 42}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(http.MethodPut, "/api/session/pose", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, snap = do(http.MethodPut, "/api/session/target", `{"seconds": 15}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(15), snap["target_seconds"])

	resp, _ = do(http.MethodPut, "/api/session/target", `{"seconds": 7}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, snap = do(http.MethodPut, "/api/session/enabled", `{"enabled": false}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, snap["enabled"])

	resp, snap = do(http.MethodPost, "/api/session/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), snap["score"])
	assert.Equal(t, float64(3), snap["index"])

	resp, _ = do(http.MethodGet, "/api/session/next", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = do(http.MethodGet, "/api/session/bogus", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_SessionStopped(t *testing.T) {
	a, err := app.New(app.Config{Detector: detector.NewMockDetector()})
	require.NoError(t, err)

	ts := httptest.NewServer(New(Config{Session: a}))
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/session/next", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSessionFeed_PushesChanges(t *testing.T) {
	session := newTestSession(t)
	ts := httptest.NewServer(New(Config{Session: session}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/session/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var first app.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, 0, first.Index)

	require.NoError(t, session.Next(context.Background()))

	// Skip snapshots published before the command landed.
	for {
		var snap app.Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		require.GreaterOrEqual(t, snap.Version, first.Version)
		if snap.Index == 1 {
			break
		}
	}
}

func TestStreamHandler_ServesPreviewFrames(t *testing.T) {
	preview := capture.NewPreview()
	preview.PublishJPEG([]byte("jpeg-1"))

	ts := httptest.NewServer(New(Config{Preview: preview}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/stream", nil)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	buf := make([]byte, 0, 256)
	chunk := make([]byte, 64)
	for !bytes.Contains(buf, []byte("jpeg-1\r\n")) {
		n, err := resp.Body.Read(chunk)
		require.NoError(t, err)
		buf = append(buf, chunk[:n]...)
	}
	assert.Contains(t, string(buf), "Content-Length: 6")
}
