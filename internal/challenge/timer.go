package challenge

import "time"

// Phase is the state of a HoldTimer.
type Phase int

const (
	// Idle means no hold is in progress.
	Idle Phase = iota
	// Holding means the pose is matched and the hold is accumulating.
	Holding
	// Completed means the hold reached its target. It is sticky until Reset.
	Completed
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Holding:
		return "holding"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase as its name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// HoldTimer accumulates how long a matched pose has been held.
//
// Invariant: 0 <= Held <= Target.
type HoldTimer struct {
	Phase  Phase
	Held   time.Duration
	Target time.Duration
}

// NewHoldTimer returns an idle timer with the given target.
func NewHoldTimer(target time.Duration) HoldTimer {
	return HoldTimer{Phase: Idle, Target: target}
}

// Observe applies one frame's match decision.
// Idle→Holding on a match (hold restarts at zero), Holding→Idle on a miss
// (progress is discarded). A completed timer ignores frames.
func (t HoldTimer) Observe(matched bool) HoldTimer {
	switch t.Phase {
	case Idle:
		if matched {
			t.Phase = Holding
			t.Held = 0
		}
	case Holding:
		if !matched {
			t.Phase = Idle
			t.Held = 0
		}
	}
	return t
}

// Advance adds elapsed time to a running hold. The second return value is
// true only on the tick that moves the timer from Holding to Completed.
func (t HoldTimer) Advance(elapsed time.Duration) (HoldTimer, bool) {
	if t.Phase != Holding || elapsed < 0 {
		return t, false
	}

	t.Held += elapsed
	if t.Held >= t.Target {
		t.Held = t.Target
		t.Phase = Completed
		return t, true
	}
	return t, false
}

// Reset returns the timer to Idle with no progress, keeping the target.
func (t HoldTimer) Reset() HoldTimer {
	return NewHoldTimer(t.Target)
}

// Running reports whether a hold is in progress.
func (t HoldTimer) Running() bool {
	return t.Phase == Holding
}

// Progress returns Held/Target clamped to [0, 1].
func (t HoldTimer) Progress() float64 {
	if t.Target <= 0 {
		if t.Phase == Completed {
			return 1
		}
		return 0
	}
	p := float64(t.Held) / float64(t.Target)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
