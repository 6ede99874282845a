// Package app runs a pose challenge session: it captures camera frames,
// detects and compares poses off the session loop, and applies every state
// transition through a single serialized event loop.
package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/posehold/internal/capture"
	"github.com/ayusman/posehold/internal/challenge"
	"github.com/ayusman/posehold/internal/detector"
	"github.com/ayusman/posehold/internal/log"
	"github.com/ayusman/posehold/internal/plugin"
	"github.com/ayusman/posehold/internal/pose"
	"github.com/ayusman/posehold/internal/store"
)

// DefaultTickInterval drives the hold timer at about 10 Hz.
const DefaultTickInterval = 100 * time.Millisecond

// ErrStopped is returned by commands sent to an app that is not running.
var ErrStopped = errors.New("app is not running")

// HookDispatcher receives session events once a transition is committed.
type HookDispatcher interface {
	Dispatch(req plugin.Request)
}

// Settings persists user choices that outlive a session.
type Settings interface {
	SetInt(key string, n int) error
	SetBool(key string, b bool) error
}

// Config holds the collaborators and tunables of an App.
type Config struct {
	// Camera is optional; without one the session only reacts to commands.
	Camera   capture.Camera
	Detector detector.Detector
	Resolver ReferenceResolver
	Matcher  *pose.Matcher

	// Preview, Hooks and Settings are optional.
	Preview  *capture.Preview
	Hooks    HookDispatcher
	Settings Settings

	Sequence     challenge.Sequence
	HoldDuration time.Duration
	AutoAdvance  time.Duration

	FPS          int
	TickInterval time.Duration

	// Now is the clock used to measure time between ticks.
	Now func() time.Time
}

// App owns one challenge session.
type App struct {
	cfg Config

	// state and the fields below it are owned by the loop goroutine.
	state    challenge.State
	gen      uint64
	lastSeq  uint64
	refReady bool
	refErr   error
	resolve  context.CancelFunc
	diags    map[string]string

	cmds    chan command
	frames  chan frameResult
	refs    chan referenceResult
	diagsCh chan diagnostic

	// ref and active are read by the detect worker.
	ref    atomic.Pointer[reference]
	active atomic.Bool

	snap    atomic.Pointer[Snapshot]
	mu      sync.Mutex
	updated chan struct{}
	version uint64

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	stopped   bool
	wg        sync.WaitGroup
}

// New validates cfg and returns a stopped app.
func New(cfg Config) (*App, error) {
	if cfg.HoldDuration == 0 {
		cfg.HoldDuration = challenge.DefaultHoldDuration
	}
	if len(cfg.Sequence) == 0 {
		cfg.Sequence = challenge.DefaultSequence()
	}
	if cfg.Matcher == nil {
		cfg.Matcher = pose.NewMatcher(pose.DefaultThreshold, pose.DefaultTolerance)
	}
	if cfg.Resolver == nil {
		if cfg.Detector == nil {
			return nil, errors.New("app: a detector or resolver is required")
		}
		cfg.Resolver = NewCachedResolver(nil, cfg.Detector)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = capture.DefaultFPS
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	state, err := challenge.NewState(cfg.Sequence, cfg.HoldDuration)
	if err != nil {
		return nil, err
	}
	state.AutoAdvance = cfg.AutoAdvance

	a := &App{
		cfg:     cfg,
		state:   state,
		diags:   make(map[string]string),
		cmds:    make(chan command),
		frames:  make(chan frameResult, 1),
		refs:    make(chan referenceResult, 1),
		diagsCh: make(chan diagnostic, 4),
		updated: make(chan struct{}),
	}
	a.active.Store(state.Enabled)
	a.publish()
	return a, nil
}

// Start opens the camera and starts the session loop. A camera that fails
// to open is reported as a diagnostic and the session runs without frames.
// A stopped app cannot be started again.
func (a *App) Start(ctx context.Context) error {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if a.stopped {
		return ErrStopped
	}
	if a.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})

	cameraOK := false
	if a.cfg.Camera != nil {
		if err := a.cfg.Camera.Open(); err != nil {
			log.Error("failed to open camera", "err", err)
			a.diags[sourceCamera] = err.Error()
		} else {
			a.cfg.Camera.SetFPS(a.cfg.FPS)
			cameraOK = true
		}
	}

	if cameraOK && a.cfg.Detector != nil {
		box := newMailbox()
		a.wg.Add(2)
		go func() {
			defer a.wg.Done()
			a.captureLoop(ctx, box)
		}()
		go func() {
			defer a.wg.Done()
			a.detectLoop(ctx, box)
		}()
	}

	go func() {
		defer close(a.done)
		a.run(ctx)
	}()

	log.Info("session started", "poses", len(a.cfg.Sequence), "hold", a.cfg.HoldDuration, "camera", cameraOK)
	return nil
}

// Stop halts the session and releases the camera and detector.
func (a *App) Stop() {
	a.lifecycle.Lock()
	defer a.lifecycle.Unlock()

	if a.cancel == nil || a.stopped {
		return
	}
	a.stopped = true
	a.cancel()
	<-a.done
	a.wg.Wait()

	if a.cfg.Camera != nil && a.cfg.Camera.IsOpen() {
		if err := a.cfg.Camera.Close(); err != nil {
			log.Warn("error closing camera", "err", err)
		}
	}
	if a.cfg.Detector != nil {
		if err := a.cfg.Detector.Close(); err != nil {
			log.Warn("error closing detector", "err", err)
		}
	}

	log.Info("session stopped")
}

// command runs on the loop goroutine and replies with its error.
type command struct {
	run   func(ctx context.Context) error
	reply chan error
}

// Do applies ev through the session loop and returns its error.
func (a *App) Do(ctx context.Context, ev challenge.Event) error {
	return a.send(ctx, func(ctx context.Context) error { return a.apply(ctx, ev) })
}

// RefreshReference resolves the reference of the active pose again if its
// id is poseID. Use it after the stored landmarks of a pose change.
func (a *App) RefreshReference(ctx context.Context, poseID string) error {
	return a.send(ctx, func(ctx context.Context) error {
		if a.state.Current().ID != poseID {
			return nil
		}
		log.Debug("reference changed", "pose", poseID)
		a.startResolve(ctx)
		a.publish()
		return nil
	})
}

func (a *App) send(ctx context.Context, fn func(context.Context) error) error {
	a.lifecycle.Lock()
	done := a.done
	a.lifecycle.Unlock()
	if done == nil {
		return ErrStopped
	}

	cmd := command{run: fn, reply: make(chan error, 1)}
	select {
	case a.cmds <- cmd:
	case <-done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next moves to the next pose.
func (a *App) Next(ctx context.Context) error {
	return a.Do(ctx, challenge.Next{})
}

// Reset zeroes the score and completed flags.
func (a *App) Reset(ctx context.Context) error {
	return a.Do(ctx, challenge.Reset{})
}

// SelectPose jumps to the pose at index.
func (a *App) SelectPose(ctx context.Context, index int) error {
	return a.Do(ctx, challenge.SelectPose{Index: index})
}

// SetTarget changes the hold target.
func (a *App) SetTarget(ctx context.Context, target time.Duration) error {
	return a.Do(ctx, challenge.SetTarget{Target: target})
}

// SetEnabled pauses or resumes the session.
func (a *App) SetEnabled(ctx context.Context, enabled bool) error {
	return a.Do(ctx, challenge.SetEnabled{Enabled: enabled})
}

// ReplaceSequence swaps the pose sequence, keeping score and level.
func (a *App) ReplaceSequence(ctx context.Context, seq challenge.Sequence) error {
	return a.Do(ctx, challenge.ReplaceSequence{Sequence: seq})
}

// persist stores the user choices carried by ev.
func (a *App) persist(ev challenge.Event) {
	if a.cfg.Settings == nil {
		return
	}
	var err error
	switch e := ev.(type) {
	case challenge.SetTarget:
		err = a.cfg.Settings.SetInt(store.SettingHoldSeconds, int(e.Target/time.Second))
	case challenge.SetEnabled:
		err = a.cfg.Settings.SetBool(store.SettingEnabled, e.Enabled)
	}
	if err != nil {
		log.Warn("failed to save setting", "err", err)
	}
}
