package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/posehold/internal/app"
	"github.com/ayusman/posehold/internal/challenge"
)

// commandTimeout bounds how long a request waits for the session loop.
const commandTimeout = 2 * time.Second

// Session is the controller the session endpoints drive.
type Session interface {
	Snapshot() app.Snapshot
	Next(ctx context.Context) error
	Reset(ctx context.Context) error
	SelectPose(ctx context.Context, index int) error
	SetTarget(ctx context.Context, target time.Duration) error
	SetEnabled(ctx context.Context, enabled bool) error
}

// SessionHandler exposes the live session. Reads come from the latest
// snapshot; writes go through the session loop.
type SessionHandler struct {
	session Session
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(s Session) *SessionHandler {
	return &SessionHandler{session: s}
}

type sessionResponse struct {
	app.Snapshot
	HoldOptions []int `json:"hold_options"`
}

type selectPoseRequest struct {
	Index *int `json:"index"`
}

type setTargetRequest struct {
	Seconds int `json:"seconds"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

// HoldOptions returns the selectable hold targets in seconds.
func HoldOptions() []int {
	out := make([]int, len(challenge.HoldDurations))
	for i, d := range challenge.HoldDurations {
		out[i] = int(d / time.Second)
	}
	return out
}

// ServeHTTP routes /api/session and its command endpoints.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/session")
	action = strings.Trim(action, "/")

	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.writeSnapshot(w)
	case "next":
		h.command(w, r, http.MethodPost, func(ctx context.Context) error {
			return h.session.Next(ctx)
		})
	case "reset":
		h.command(w, r, http.MethodPost, func(ctx context.Context) error {
			return h.session.Reset(ctx)
		})
	case "pose":
		var req selectPoseRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Index == nil {
			writeError(w, http.StatusBadRequest, "index is required")
			return
		}
		h.command(w, r, http.MethodPut, func(ctx context.Context) error {
			return h.session.SelectPose(ctx, *req.Index)
		})
	case "target":
		var req setTargetRequest
		if !decode(w, r, &req) {
			return
		}
		target, err := challenge.HoldSeconds(req.Seconds)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.command(w, r, http.MethodPut, func(ctx context.Context) error {
			return h.session.SetTarget(ctx, target)
		})
	case "enabled":
		var req setEnabledRequest
		if !decode(w, r, &req) {
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.command(w, r, http.MethodPut, func(ctx context.Context) error {
			return h.session.SetEnabled(ctx, *req.Enabled)
		})
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) writeSnapshot(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, sessionResponse{
		Snapshot:    h.session.Snapshot(),
		HoldOptions: HoldOptions(),
	})
}

// decode reads a JSON body for a PUT command. It writes the error response
// and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return false
	}
	return true
}

// command runs fn against the session and answers with the new snapshot.
func (h *SessionHandler) command(w http.ResponseWriter, r *http.Request, method string, fn func(context.Context) error) {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		switch {
		case errors.Is(err, challenge.ErrInvalidTarget), errors.Is(err, challenge.ErrPoseIndexOutOfRange):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrStopped), errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusServiceUnavailable, "Session is not running")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	h.writeSnapshot(w)
}
