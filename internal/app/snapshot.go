package app

import (
	"context"
	"maps"
	"slices"

	"github.com/ayusman/posehold/internal/challenge"
)

// Snapshot is a read-only view of the session for renderers.
type Snapshot struct {
	Version uint64 `json:"version"`

	Enabled    bool    `json:"enabled"`
	Matched    bool    `json:"matched"`
	Similarity float64 `json:"similarity"`

	Phase         challenge.Phase `json:"phase"`
	Progress      float64         `json:"progress"`
	HoldSeconds   float64         `json:"hold_seconds"`
	TargetSeconds int             `json:"target_seconds"`

	Score    int                        `json:"score"`
	Level    int                        `json:"level"`
	Index    int                        `json:"index"`
	Pose     challenge.PoseDefinition   `json:"pose"`
	Sequence []challenge.PoseDefinition `json:"sequence"`

	ReferenceReady bool   `json:"reference_ready"`
	ReferenceError string `json:"reference_error,omitempty"`

	// Diagnostics maps a failing source ("camera", "detector") to its last error.
	Diagnostics map[string]string `json:"diagnostics,omitempty"`
}

// publish builds a snapshot of the loop-owned state and wakes waiters.
func (a *App) publish() {
	s := a.state
	snap := &Snapshot{
		Enabled:        s.Enabled,
		Matched:        s.Matched,
		Similarity:     s.Similarity,
		Phase:          s.Timer.Phase,
		Progress:       s.Timer.Progress(),
		HoldSeconds:    s.Timer.Held.Seconds(),
		TargetSeconds:  int(s.Target().Seconds()),
		Score:          s.Score,
		Level:          s.Level,
		Index:          s.Index,
		Pose:           s.Current(),
		Sequence:       s.Sequence.Clone(),
		ReferenceReady: a.refReady,
		ReferenceError: errorString(a.refErr),
	}
	if len(a.diags) > 0 {
		snap.Diagnostics = maps.Clone(a.diags)
	}

	a.mu.Lock()
	a.version++
	snap.Version = a.version
	a.snap.Store(snap)
	close(a.updated)
	a.updated = make(chan struct{})
	a.mu.Unlock()
}

// Snapshot returns the latest published session view.
func (a *App) Snapshot() Snapshot {
	return *a.snap.Load()
}

// NextSnapshot blocks until a snapshot newer than after is published or ctx
// is done.
func (a *App) NextSnapshot(ctx context.Context, after uint64) (Snapshot, error) {
	for {
		a.mu.Lock()
		snap := a.snap.Load()
		updated := a.updated
		a.mu.Unlock()

		if snap.Version > after {
			return *snap, nil
		}

		select {
		case <-ctx.Done():
			return *snap, ctx.Err()
		case <-updated:
		}
	}
}

// DiagnosticSources returns the names of failing sources in sorted order.
func (s Snapshot) DiagnosticSources() []string {
	return slices.Sorted(maps.Keys(s.Diagnostics))
}
