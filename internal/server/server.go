// Package server provides the HTTP server for the posehold web UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/posehold/internal/app"
	"github.com/ayusman/posehold/internal/capture"
	"github.com/ayusman/posehold/internal/log"
	"github.com/ayusman/posehold/internal/plugin"
	"github.com/ayusman/posehold/internal/server/api"
	"github.com/ayusman/posehold/internal/store"
)

// shutdownTimeout bounds how long in-flight requests get on shutdown.
const shutdownTimeout = 5 * time.Second

// Session is the live session as seen by the server.
type Session interface {
	api.Session
	NextSnapshot(ctx context.Context, after uint64) (app.Snapshot, error)
}

// Config holds the server configuration. Every collaborator is optional;
// routes whose collaborator is missing are not registered.
type Config struct {
	StaticDir string
	Store     *store.Store
	Session   Session
	Preview   *capture.Preview
	Plugins   *plugin.Manager

	// OnCatalogChange is called after the pose catalog is modified.
	OnCatalogChange func()
	// OnReferenceChange is called with a pose id after its stored
	// reference landmarks are replaced or deleted.
	OnReferenceChange func(poseID string)
}

// Server represents the HTTP server for the posehold application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		poseHandler := api.NewPoseHandler(s.config.Store, s.config.OnCatalogChange)
		landmarksHandler := api.NewLandmarksHandler(s.config.Store, s.config.OnReferenceChange)

		// /api/poses/{id}/landmarks goes to the reference cache.
		poseRouter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/landmarks") {
				landmarksHandler.ServeHTTP(w, r)
				return
			}
			poseHandler.ServeHTTP(w, r)
		})
		s.mux.Handle("/api/poses", poseRouter)
		s.mux.Handle("/api/poses/", poseRouter)

		hookHandler := api.NewHookHandler(s.config.Store, s.config.Plugins)
		s.mux.Handle("/api/hooks", hookHandler)
		s.mux.Handle("/api/hooks/", hookHandler)
	}

	if s.config.Plugins != nil {
		s.mux.Handle("/api/plugins", api.NewPluginsHandler(s.config.Plugins))
	}

	if s.config.Session != nil {
		sessionHandler := api.NewSessionHandler(s.config.Session)
		s.mux.Handle("/api/session", sessionHandler)
		s.mux.Handle("/api/session/", sessionHandler)
		s.mux.Handle("/api/session/ws", NewSessionFeed(s.config.Session))
	}

	if s.config.Preview != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Preview))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Session != nil {
		snap := s.config.Session.Snapshot()
		response["reference_ready"] = snap.ReferenceReady
		if len(snap.Diagnostics) > 0 {
			response["status"] = "degraded"
			response["diagnostics"] = snap.Diagnostics
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Info("web UI listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
