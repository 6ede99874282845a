package app

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posehold/internal/challenge"
	"github.com/ayusman/posehold/internal/detector"
	"github.com/ayusman/posehold/internal/log"
	"github.com/ayusman/posehold/internal/plugin"
)

// Diagnostic sources.
const (
	sourceCamera   = "camera"
	sourceDetector = "detector"
)

// reference is the resolved reference pose for one pose generation.
type reference struct {
	gen  uint64
	pose *detector.PoseLandmarks
}

// frameResult is the match decision for one camera frame.
type frameResult struct {
	seq        uint64
	gen        uint64
	similarity float64
	matched    bool
}

// referenceResult is the outcome of resolving a reference pose.
type referenceResult struct {
	gen  uint64
	pose *detector.PoseLandmarks
	err  error
}

// diagnostic reports that a source started failing (err != nil) or recovered.
type diagnostic struct {
	source string
	err    error
}

// run is the session loop. It is the only goroutine that touches a.state.
//
// Loop inputs:
//  1. ticks advance the hold timer by the measured time since the last tick
//  2. commands from the API, tray and sequence watcher
//  3. frame results from the detect worker, applied in capture order
//  4. reference results from the resolver, applied only for the current pose
func (a *App) run(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.TickInterval)
	defer ticker.Stop()

	a.startResolve(ctx)
	defer a.cancelResolve()

	last := a.cfg.Now()
	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			now := a.cfg.Now()
			elapsed := now.Sub(last)
			last = now
			a.apply(ctx, challenge.Tick{Elapsed: elapsed})

		case cmd := <-a.cmds:
			cmd.reply <- cmd.run(ctx)

		case res := <-a.frames:
			if res.gen != a.gen || res.seq <= a.lastSeq {
				continue
			}
			a.lastSeq = res.seq
			a.apply(ctx, challenge.Frame{Similarity: res.similarity, Matched: res.matched})

		case res := <-a.refs:
			if res.gen != a.gen {
				continue
			}
			a.resolve = nil
			a.refErr = res.err
			if res.err != nil {
				log.Warn("reference pose unavailable", "pose", a.state.Current().ID, "err", res.err)
			} else {
				a.refReady = true
				a.ref.Store(&reference{gen: res.gen, pose: res.pose})
				log.Info("reference pose ready", "pose", a.state.Current().ID)
			}
			a.publish()

		case d := <-a.diagsCh:
			if d.err != nil {
				a.diags[d.source] = d.err.Error()
			} else {
				delete(a.diags, d.source)
			}
			a.publish()
		}
	}
}

// apply reduces ev into the session state and performs the side effects
// the transition asks for.
func (a *App) apply(ctx context.Context, ev challenge.Event) error {
	prev := a.state
	next, out, err := challenge.Reduce(a.state, ev)
	if err != nil {
		return err
	}
	a.state = next
	a.active.Store(next.Enabled)

	// Selecting the active pose again retries a failed reference.
	_, reselect := ev.(challenge.SelectPose)
	retry := reselect && !out.PoseChanged && a.refErr != nil

	if c := out.Completion; c != nil {
		log.Info("pose completed", "pose", c.Pose.ID, "points", c.Points, "score", next.Score)
		a.dispatch(plugin.Request{
			Event:       plugin.EventPoseCompleted,
			Pose:        plugin.PoseInfo{ID: c.Pose.ID, Name: c.Pose.Name, Index: c.Index},
			Points:      c.Points,
			Score:       next.Score,
			Level:       next.Level,
			HoldSeconds: int(c.Target / time.Second),
		})
	}
	if out.LevelUp {
		log.Info("level up", "level", next.Level, "score", next.Score)
		cur := next.Current()
		a.dispatch(plugin.Request{
			Event: plugin.EventLevelUp,
			Pose:  plugin.PoseInfo{ID: cur.ID, Name: cur.Name, Index: next.Index},
			Score: next.Score,
			Level: next.Level,
		})
	}
	if out.PoseChanged {
		log.Debug("pose changed", "index", next.Index, "pose", next.Current().ID)
		a.startResolve(ctx)
	} else if retry {
		log.Debug("retrying reference", "pose", next.Current().ID)
		a.startResolve(ctx)
	}

	if _, ok := ev.(challenge.Tick); !ok {
		a.persist(ev)
	}

	if out.PoseChanged || retry || !reflect.DeepEqual(prev, next) {
		a.publish()
	}
	return nil
}

func (a *App) dispatch(req plugin.Request) {
	if a.cfg.Hooks == nil {
		return
	}
	req.Time = a.cfg.Now()
	a.cfg.Hooks.Dispatch(req)
}

// startResolve invalidates the current reference, cancels any in-flight
// resolution and starts resolving the active pose.
func (a *App) startResolve(ctx context.Context) {
	a.cancelResolve()

	a.gen++
	a.ref.Store(nil)
	a.refReady = false
	a.refErr = nil

	gen := a.gen
	def := a.state.Current()
	rctx, cancel := context.WithCancel(ctx)
	a.resolve = cancel

	go func() {
		defer cancel()
		lm, err := a.cfg.Resolver.Resolve(rctx, def)
		if err == nil && lm == nil {
			err = ErrNoBodyInImage
		}
		if rctx.Err() != nil {
			return
		}
		select {
		case a.refs <- referenceResult{gen: gen, pose: lm, err: err}:
		case <-rctx.Done():
		}
	}()
}

func (a *App) cancelResolve() {
	if a.resolve != nil {
		a.resolve()
		a.resolve = nil
	}
}

// captureLoop reads camera frames at the configured rate, publishes them to
// the preview and hands them to the detect worker.
func (a *App) captureLoop(ctx context.Context, box *mailbox) {
	defer box.drain()

	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.FPS))
	defer ticker.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.cfg.Camera.ReadFrame()
		if err != nil {
			if !failing {
				log.Warn("error reading frame", "err", err)
				failing = true
				a.report(ctx, sourceCamera, err)
			}
			continue
		}
		if failing {
			log.Info("camera recovered")
			failing = false
			a.report(ctx, sourceCamera, nil)
		}

		if a.cfg.Preview != nil {
			if err := a.cfg.Preview.Publish(frame); err != nil {
				log.Debug("preview publish failed", "err", err)
			}
		}
		box.put(frame)
	}
}

// detectLoop runs detection and comparison on the newest frame. Frames
// are skipped while paused or while no reference pose exists.
func (a *App) detectLoop(ctx context.Context, box *mailbox) {
	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-box.ready:
		}

		frame, seq := box.take()
		if frame == nil {
			continue
		}

		ref := a.ref.Load()
		if ref == nil || !a.active.Load() {
			frame.Close()
			continue
		}

		current, err := a.cfg.Detector.Detect(frame)
		frame.Close()
		if err != nil {
			if !failing {
				log.Warn("error detecting pose", "err", err)
				failing = true
				a.report(ctx, sourceDetector, err)
			}
			continue
		}
		if failing {
			log.Info("detector recovered")
			failing = false
			a.report(ctx, sourceDetector, nil)
		}

		res := frameResult{seq: seq, gen: ref.gen}
		if current != nil {
			m := a.cfg.Matcher.Match(current, ref.pose)
			res.similarity, res.matched = m.Similarity, m.Matched
		}

		select {
		case a.frames <- res:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) report(ctx context.Context, source string, err error) {
	select {
	case a.diagsCh <- diagnostic{source: source, err: err}:
	case <-ctx.Done():
	}
}

// mailbox holds the newest captured frame. Putting a frame closes the one it
// replaces, so the detect worker only ever sees the latest.
type mailbox struct {
	mu    sync.Mutex
	frame *gocv.Mat
	seq   uint64
	ready chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (m *mailbox) put(frame *gocv.Mat) {
	m.mu.Lock()
	if m.frame != nil {
		m.frame.Close()
	}
	m.frame = frame
	m.seq++
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

func (m *mailbox) take() (*gocv.Mat, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	frame := m.frame
	m.frame = nil
	return frame, m.seq
}

func (m *mailbox) drain() {
	if frame, _ := m.take(); frame != nil {
		frame.Close()
	}
}

// errorString returns err's message, or "" for nil.
func errorString(err error) string {
	if err == nil || errors.Is(err, context.Canceled) {
		return ""
	}
	return err.Error()
}
