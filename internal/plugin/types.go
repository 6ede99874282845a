// Package plugin discovers and runs event hooks: external executables that
// react to session events such as a completed pose or a level up.
package plugin

import (
	"encoding/json"
	"slices"
	"time"
)

// Session events a hook can subscribe to.
const (
	EventPoseCompleted = "pose-completed"
	EventLevelUp       = "level-up"
)

// Events lists every event a manifest may name.
var Events = []string{EventPoseCompleted, EventLevelUp}

// ValidEvent reports whether name is a known session event.
func ValidEvent(name string) bool {
	return slices.Contains(Events, name)
}

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Events       []string        `json:"events"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Handles reports whether the manifest subscribes to event.
func (m Manifest) Handles(event string) bool {
	return slices.Contains(m.Events, event)
}

// PoseInfo identifies the pose an event refers to.
type PoseInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// Request is the JSON document written to a hook's stdin.
type Request struct {
	Event       string          `json:"event"`
	Pose        PoseInfo        `json:"pose"`
	Points      int             `json:"points,omitempty"`
	Score       int             `json:"score"`
	Level       int             `json:"level"`
	HoldSeconds int             `json:"hold_seconds,omitempty"`
	Time        time.Time       `json:"time"`
	Config      json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
