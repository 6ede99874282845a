// Package tray provides a system tray interface for the posehold session.
package tray

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/posehold/internal/app"
	"github.com/ayusman/posehold/internal/challenge"
	"github.com/ayusman/posehold/internal/log"
)

// SnapshotSource is the session view the tray follows.
type SnapshotSource interface {
	NextSnapshot(ctx context.Context, after uint64) (app.Snapshot, error)
}

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onNext   func()
	onReset  func()
	onHold   func(seconds int)
	onOpenUI func()
	onQuit   func()
	mu       sync.RWMutex

	// last is the most recent snapshot, applied again once the menu exists.
	last  app.Snapshot
	ready bool

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuPose   *systray.MenuItem
	menuScore  *systray.MenuItem
	menuStatus *systray.MenuItem
	menuHolds  map[int]*systray.MenuItem
}

// New creates a new Tray instance. The session starts enabled.
func New() *Tray {
	return &Tray{
		last: app.Snapshot{Enabled: true},
	}
}

// OnToggle sets the callback invoked with the requested enabled state.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnNext sets the callback for the "Next pose" item.
func (t *Tray) OnNext(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onNext = fn
}

// OnReset sets the callback for the "Reset" item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnHold sets the callback invoked with a chosen hold target in seconds.
func (t *Tray) OnHold(fn func(seconds int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onHold = fn
}

// OnOpenUI sets the callback for the "Open posehold..." item.
func (t *Tray) OnOpenUI(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenUI = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// Follow applies every new session snapshot to the menu until ctx is done.
func (t *Tray) Follow(ctx context.Context, src SnapshotSource) {
	var version uint64
	for {
		s, err := src.NextSnapshot(ctx, version)
		if err != nil {
			return
		}
		version = s.Version
		t.Update(s)
	}
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("posehold")
	systray.SetTooltip("posehold pose challenge")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleLabel(true), "Pause or resume the session")
	systray.AddSeparator()

	t.menuPose = systray.AddMenuItem("Pose: -", "Current pose")
	t.menuPose.Disable()
	t.menuScore = systray.AddMenuItem(scoreLabel(app.Snapshot{}), "Score and level")
	t.menuScore.Disable()
	t.menuStatus = systray.AddMenuItem("Starting...", "Session status")
	t.menuStatus.Disable()
	systray.AddSeparator()

	menuNext := systray.AddMenuItem("Next pose", "Skip to the next pose")
	menuReset := systray.AddMenuItem("Reset", "Clear score and start over")
	menuHold := systray.AddMenuItem("Hold time", "Seconds to hold each pose")
	t.menuHolds = make(map[int]*systray.MenuItem, len(challenge.HoldDurations))
	for _, d := range challenge.HoldDurations {
		seconds := int(d.Seconds())
		item := menuHold.AddSubMenuItemCheckbox(fmt.Sprintf("%d seconds", seconds), "", false)
		t.menuHolds[seconds] = item
		go t.watchHold(item, seconds)
	}
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open posehold...", "Open the web interface")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit posehold")

	t.ready = true
	last := t.last
	t.mu.Unlock()

	t.Update(last)

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuNext.ClickedCh:
				t.fire(func() func() { return t.onNext })
			case <-menuReset.ClickedCh:
				t.fire(func() func() { return t.onReset })
			case <-menuOpen.ClickedCh:
				t.fire(func() func() { return t.onOpenUI })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	log.Debug("tray exited")
}

func (t *Tray) watchHold(item *systray.MenuItem, seconds int) {
	for range item.ClickedCh {
		t.mu.RLock()
		callback := t.onHold
		t.mu.RUnlock()

		if callback != nil {
			callback(seconds)
		}
	}
}

// fire runs the callback returned by get outside the lock.
func (t *Tray) fire(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleToggle asks for the opposite of the last published enabled state.
// The menu itself changes only when the session publishes the result.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	enabled := !t.last.Enabled
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Update refreshes the menu from a session snapshot. Before the menu exists
// the snapshot is kept and applied once it is built.
func (t *Tray) Update(s app.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = s
	if !t.ready {
		return
	}

	t.menuToggle.SetTitle(toggleLabel(s.Enabled))
	t.menuPose.SetTitle(poseLabel(s))
	t.menuScore.SetTitle(scoreLabel(s))
	t.menuStatus.SetTitle(statusLabel(s))
	for seconds, item := range t.menuHolds {
		if seconds == s.TargetSeconds {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// IsEnabled returns the last published enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last.Enabled
}

func toggleLabel(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Paused"
}

func poseLabel(s app.Snapshot) string {
	if len(s.Sequence) == 0 {
		return "Pose: -"
	}
	return fmt.Sprintf("Pose %d/%d: %s", s.Index+1, len(s.Sequence), s.Pose.Name)
}

func scoreLabel(s app.Snapshot) string {
	return fmt.Sprintf("Score %d  Level %d", s.Score, s.Level)
}

func statusLabel(s app.Snapshot) string {
	if sources := s.DiagnosticSources(); len(sources) > 0 {
		return "Problem: " + strings.Join(sources, ", ")
	}
	if s.ReferenceError != "" {
		return "Reference unavailable"
	}
	if !s.ReferenceReady {
		return "Loading reference..."
	}
	if !s.Enabled {
		return "Paused"
	}
	switch s.Phase {
	case challenge.Holding:
		return fmt.Sprintf("Holding %.1f/%ds", s.HoldSeconds, s.TargetSeconds)
	case challenge.Completed:
		return "Completed"
	}
	if s.Matched {
		return "Matched"
	}
	return fmt.Sprintf("Waiting (%.0f%% similar)", s.Similarity*100)
}
