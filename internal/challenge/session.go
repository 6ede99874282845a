package challenge

import (
	"errors"
	"fmt"
	"time"
)

// ErrPoseIndexOutOfRange is returned when selecting a pose outside the sequence.
var ErrPoseIndexOutOfRange = errors.New("pose index out of range")

// State is the complete state of one challenge session.
type State struct {
	Sequence Sequence
	Index    int
	Timer    HoldTimer
	Score    int
	Level    int

	// Matched and Similarity describe the most recent applied frame.
	Matched    bool
	Similarity float64

	// Enabled is false while the session is paused.
	Enabled bool

	// AutoAdvance moves to the next pose once a completed pose has been
	// shown this long. Zero disables it.
	AutoAdvance time.Duration

	completedFor time.Duration
}

// NewState returns a session at level 1 on the first pose of seq.
func NewState(seq Sequence, target time.Duration) (State, error) {
	if err := seq.Validate(); err != nil {
		return State{}, err
	}
	if !ValidHoldDuration(target) {
		return State{}, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}
	return State{
		Sequence: seq.Clone(),
		Timer:    NewHoldTimer(target),
		Level:    1,
		Enabled:  true,
	}, nil
}

// Current returns the active pose definition.
func (s State) Current() PoseDefinition {
	return s.Sequence[s.Index]
}

// Target returns the hold target.
func (s State) Target() time.Duration {
	return s.Timer.Target
}

// Completed reports whether the active pose has been completed.
func (s State) Completed() bool {
	return s.Timer.Phase == Completed
}

// Completion describes a pose that was just completed.
type Completion struct {
	Index  int
	Pose   PoseDefinition
	Points int
	Target time.Duration
}

// Outcome reports the side effects of a transition that the caller must act on.
type Outcome struct {
	// Completion is set on the Holding→Completed transition.
	Completion *Completion
	// LevelUp is set when advancing past the last pose.
	LevelUp bool
	// PoseChanged is set when the active pose changed and its reference must be re-detected.
	PoseChanged bool
}

// Event is an input to the session state machine.
type Event interface {
	apply(s State) (State, Outcome, error)
}

// Reduce applies ev to s and returns the next state. s is not modified.
// On error the returned state equals s.
func Reduce(s State, ev Event) (State, Outcome, error) {
	next, out, err := ev.apply(s)
	if err != nil {
		return s, Outcome{}, err
	}
	return next, out, nil
}

// Frame is the match decision for one processed camera frame.
// A frame with no detected body arrives as Matched=false.
type Frame struct {
	Similarity float64
	Matched    bool
}

func (e Frame) apply(s State) (State, Outcome, error) {
	if !s.Enabled {
		return s, Outcome{}, nil
	}
	s.Matched = e.Matched
	s.Similarity = e.Similarity
	s.Timer = s.Timer.Observe(e.Matched)
	return s, Outcome{}, nil
}

// Tick advances time by Elapsed.
type Tick struct {
	Elapsed time.Duration
}

func (e Tick) apply(s State) (State, Outcome, error) {
	if !s.Enabled {
		return s, Outcome{}, nil
	}

	if s.Completed() {
		if s.AutoAdvance <= 0 {
			return s, Outcome{}, nil
		}
		s.completedFor += e.Elapsed
		if s.completedFor < s.AutoAdvance {
			return s, Outcome{}, nil
		}
		return advance(s)
	}

	timer, done := s.Timer.Advance(e.Elapsed)
	s.Timer = timer
	if !done {
		return s, Outcome{}, nil
	}

	pose := s.Sequence[s.Index]
	points := Points(pose.Points, pose.Difficulty, s.Timer.Target)

	s.Score += points
	s.Sequence = s.Sequence.Clone()
	s.Sequence[s.Index].Completed = true
	s.completedFor = 0

	pose.Completed = true
	return s, Outcome{Completion: &Completion{
		Index:  s.Index,
		Pose:   pose,
		Points: points,
		Target: s.Timer.Target,
	}}, nil
}

// Next advances to the next pose, wrapping into a new level after the last one.
type Next struct{}

func (Next) apply(s State) (State, Outcome, error) {
	return advance(s)
}

// SelectPose jumps to a pose in the current sequence without escalating the level.
type SelectPose struct {
	Index int
}

func (e SelectPose) apply(s State) (State, Outcome, error) {
	if e.Index < 0 || e.Index >= len(s.Sequence) {
		return s, Outcome{}, fmt.Errorf("%w: %d", ErrPoseIndexOutOfRange, e.Index)
	}
	changed := e.Index != s.Index
	s = resetPose(s)
	s.Index = e.Index
	return s, Outcome{PoseChanged: changed}, nil
}

// Reset zeroes the score and every completed flag and stops the timer.
// Level, pose index and escalated difficulties are kept.
type Reset struct{}

func (Reset) apply(s State) (State, Outcome, error) {
	s.Score = 0
	s.Sequence = s.Sequence.Clone()
	for i := range s.Sequence {
		s.Sequence[i].Completed = false
	}
	s.Timer = s.Timer.Reset()
	s.completedFor = 0
	return s, Outcome{}, nil
}

// SetTarget changes the hold target. Choosing a different target resets the
// timer to Idle even mid-hold; awarded score is kept.
type SetTarget struct {
	Target time.Duration
}

func (e SetTarget) apply(s State) (State, Outcome, error) {
	if !ValidHoldDuration(e.Target) {
		return s, Outcome{}, fmt.Errorf("%w: %s", ErrInvalidTarget, e.Target)
	}
	if e.Target == s.Timer.Target {
		return s, Outcome{}, nil
	}
	s.Timer = NewHoldTimer(e.Target)
	s.completedFor = 0
	return s, Outcome{}, nil
}

// SetEnabled pauses or resumes the session. Pausing drops an in-progress hold.
type SetEnabled struct {
	Enabled bool
}

func (e SetEnabled) apply(s State) (State, Outcome, error) {
	if e.Enabled == s.Enabled {
		return s, Outcome{}, nil
	}
	s.Enabled = e.Enabled
	if !e.Enabled {
		if s.Timer.Running() {
			s.Timer = s.Timer.Reset()
		}
		s.Matched = false
		s.Similarity = 0
	}
	return s, Outcome{}, nil
}

// ReplaceSequence swaps in a new sequence, keeping score and level. The new
// difficulties are escalated to the current level. The pose index is kept
// when still in range and reset to 0 otherwise.
type ReplaceSequence struct {
	Sequence Sequence
}

func (e ReplaceSequence) apply(s State) (State, Outcome, error) {
	if err := e.Sequence.Validate(); err != nil {
		return s, Outcome{}, err
	}
	s = resetPose(s)
	s.Sequence = e.Sequence.Clone()
	m := LevelMultiplier(s.Level)
	for i := range s.Sequence {
		s.Sequence[i].Difficulty *= m
	}
	if s.Index >= len(s.Sequence) {
		s.Index = 0
	}
	return s, Outcome{PoseChanged: true}, nil
}

// resetPose clears the per-pose challenge state.
func resetPose(s State) State {
	s.Timer = s.Timer.Reset()
	s.Matched = false
	s.Similarity = 0
	s.completedFor = 0
	return s
}

// advance moves to the next pose, escalating the level after the last one.
func advance(s State) (State, Outcome, error) {
	s = resetPose(s)

	if s.Index+1 < len(s.Sequence) {
		s.Index++
		return s, Outcome{PoseChanged: true}, nil
	}

	s.Level++
	s.Index = 0
	s.Sequence = s.Sequence.Clone()
	for i := range s.Sequence {
		s.Sequence[i].Completed = false
		s.Sequence[i].Difficulty *= EscalationFactor
	}
	return s, Outcome{LevelUp: true, PoseChanged: true}, nil
}
