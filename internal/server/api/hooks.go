package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/posehold/internal/plugin"
	"github.com/ayusman/posehold/internal/store"
)

// HookHandler handles HTTP requests for hook bindings.
type HookHandler struct {
	store   *store.Store
	plugins *plugin.Manager
}

// NewHookHandler creates a HookHandler. plugins may be nil, in which case
// plugin names are not checked.
func NewHookHandler(s *store.Store, plugins *plugin.Manager) *HookHandler {
	return &HookHandler{store: s, plugins: plugins}
}

// ServeHTTP routes /api/hooks and /api/hooks/{id}.
func (h *HookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/hooks")
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

type createHookRequest struct {
	Event      string          `json:"event"`
	PluginName string          `json:"plugin_name"`
	Config     json.RawMessage `json:"config"`
}

type updateHookRequest struct {
	Event      string          `json:"event"`
	PluginName string          `json:"plugin_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    *bool           `json:"enabled"`
}

type hookResponse struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	PluginName string          `json:"plugin_name"`
	Config     json.RawMessage `json:"config"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  string          `json:"created_at"`
}

type listHooksResponse struct {
	Hooks []hookResponse `json:"hooks"`
}

func toHookResponse(hk *store.Hook) hookResponse {
	config := hk.Config
	if len(config) == 0 {
		config = json.RawMessage("{}")
	}
	return hookResponse{
		ID:         hk.ID,
		Event:      hk.Event,
		PluginName: hk.PluginName,
		Config:     config,
		Enabled:    hk.Enabled,
		CreatedAt:  hk.CreatedAt.Format(timeFormat),
	}
}

// checkBinding validates an event and plugin pair. It writes the error
// response and returns false when the pair is unusable.
func (h *HookHandler) checkBinding(w http.ResponseWriter, event, pluginName string) bool {
	if !plugin.ValidEvent(event) {
		writeError(w, http.StatusBadRequest, "Unknown event")
		return false
	}
	if h.plugins == nil {
		return true
	}

	p, err := h.plugins.Get(pluginName)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Plugin not found")
		return false
	}
	if !p.Manifest.Handles(event) {
		writeError(w, http.StatusBadRequest, "Plugin does not handle event")
		return false
	}
	return true
}

// list handles GET /api/hooks.
func (h *HookHandler) list(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.store.Hooks().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list hooks")
		return
	}

	response := listHooksResponse{
		Hooks: make([]hookResponse, 0, len(hooks)),
	}
	for _, hk := range hooks {
		response.Hooks = append(response.Hooks, toHookResponse(hk))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/hooks/{id}.
func (h *HookHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get hook")
		return
	}

	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

// create handles POST /api/hooks.
func (h *HookHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Event == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}
	if req.PluginName == "" {
		writeError(w, http.StatusBadRequest, "plugin_name is required")
		return
	}
	if !h.checkBinding(w, req.Event, req.PluginName) {
		return
	}

	config := req.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	hk := &store.Hook{
		ID:         uuid.New().String(),
		Event:      req.Event,
		PluginName: req.PluginName,
		Config:     config,
		Enabled:    true,
	}

	if err := h.store.Hooks().Create(hk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create hook")
		return
	}

	writeJSON(w, http.StatusCreated, toHookResponse(hk))
}

// update handles PUT /api/hooks/{id}.
func (h *HookHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	hk, err := h.store.Hooks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get hook")
		return
	}

	var req updateHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	event, pluginName := hk.Event, hk.PluginName
	if req.Event != "" {
		event = req.Event
	}
	if req.PluginName != "" {
		pluginName = req.PluginName
	}
	if (event != hk.Event || pluginName != hk.PluginName) && !h.checkBinding(w, event, pluginName) {
		return
	}

	hk.Event = event
	hk.PluginName = pluginName
	if req.Config != nil {
		hk.Config = req.Config
	}
	if req.Enabled != nil {
		hk.Enabled = *req.Enabled
	}

	if err := h.store.Hooks().Update(hk); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update hook")
		return
	}

	writeJSON(w, http.StatusOK, toHookResponse(hk))
}

// delete handles DELETE /api/hooks/{id}.
func (h *HookHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Hooks().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Hook not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete hook")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type pluginResponse struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Events       []string        `json:"events"`
	ConfigSchema json.RawMessage `json:"config_schema,omitempty"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

// PluginsHandler lists discovered plugins on GET /api/plugins.
type PluginsHandler struct {
	plugins *plugin.Manager
}

// NewPluginsHandler creates a PluginsHandler.
func NewPluginsHandler(m *plugin.Manager) *PluginsHandler {
	return &PluginsHandler{plugins: m}
}

func (h *PluginsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all := h.plugins.List()
	response := listPluginsResponse{Plugins: make([]pluginResponse, 0, len(all))}
	for _, p := range all {
		response.Plugins = append(response.Plugins, pluginResponse{
			Name:         p.Manifest.Name,
			Version:      p.Manifest.Version,
			Description:  p.Manifest.Description,
			Events:       p.Manifest.Events,
			ConfigSchema: p.Manifest.ConfigSchema,
		})
	}

	writeJSON(w, http.StatusOK, response)
}
