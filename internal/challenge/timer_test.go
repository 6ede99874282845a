package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 100 * time.Millisecond

func TestHoldTimer_Observe(t *testing.T) {
	tests := []struct {
		name      string
		start     HoldTimer
		matched   bool
		wantPhase Phase
		wantHeld  time.Duration
	}{
		{"idle stays idle on miss", HoldTimer{Phase: Idle, Target: 5 * time.Second}, false, Idle, 0},
		{"idle starts holding on match", HoldTimer{Phase: Idle, Target: 5 * time.Second}, true, Holding, 0},
		{"holding continues on match", HoldTimer{Phase: Holding, Held: 2 * time.Second, Target: 5 * time.Second}, true, Holding, 2 * time.Second},
		{"holding breaks on miss", HoldTimer{Phase: Holding, Held: 4 * time.Second, Target: 5 * time.Second}, false, Idle, 0},
		{"completed ignores match", HoldTimer{Phase: Completed, Held: 5 * time.Second, Target: 5 * time.Second}, true, Completed, 5 * time.Second},
		{"completed ignores miss", HoldTimer{Phase: Completed, Held: 5 * time.Second, Target: 5 * time.Second}, false, Completed, 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.Observe(tt.matched)
			assert.Equal(t, tt.wantPhase, got.Phase)
			assert.Equal(t, tt.wantHeld, got.Held)
			assert.Equal(t, tt.start.Target, got.Target)
		})
	}
}

func TestHoldTimer_CompletesExactlyOnce(t *testing.T) {
	timer := NewHoldTimer(3 * time.Second).Observe(true)

	completions := 0
	for i := 0; i < 50; i++ {
		var done bool
		timer, done = timer.Advance(tick)
		timer = timer.Observe(true)
		if done {
			completions++
			assert.Equal(t, 29, i, "should complete on the 30th tick")
		}
	}

	assert.Equal(t, 1, completions)
	assert.Equal(t, Completed, timer.Phase)
	assert.Equal(t, 3*time.Second, timer.Held)
}

func TestHoldTimer_HeldNeverExceedsTarget(t *testing.T) {
	timer := NewHoldTimer(3 * time.Second).Observe(true)
	timer, done := timer.Advance(10 * time.Second)

	require.True(t, done)
	assert.Equal(t, timer.Target, timer.Held)
	assert.Equal(t, 1.0, timer.Progress())
}

func TestHoldTimer_BreakResetsProgress(t *testing.T) {
	timer := NewHoldTimer(5 * time.Second).Observe(true)
	for i := 0; i < 40; i++ {
		timer, _ = timer.Advance(tick)
	}
	require.Equal(t, 4*time.Second, timer.Held)

	timer = timer.Observe(false)
	assert.Equal(t, Idle, timer.Phase)
	assert.Equal(t, time.Duration(0), timer.Held)

	// A new match starts again from zero.
	timer = timer.Observe(true)
	timer, _ = timer.Advance(tick)
	assert.Equal(t, tick, timer.Held)
}

func TestHoldTimer_AdvanceWhileIdle(t *testing.T) {
	timer, done := NewHoldTimer(5 * time.Second).Advance(time.Second)
	assert.False(t, done)
	assert.Equal(t, Idle, timer.Phase)
	assert.Equal(t, time.Duration(0), timer.Held)
}

func TestHoldTimer_Progress(t *testing.T) {
	tests := []struct {
		name  string
		timer HoldTimer
		want  float64
	}{
		{"idle", NewHoldTimer(5 * time.Second), 0},
		{"half", HoldTimer{Phase: Holding, Held: 2500 * time.Millisecond, Target: 5 * time.Second}, 0.5},
		{"complete", HoldTimer{Phase: Completed, Held: 5 * time.Second, Target: 5 * time.Second}, 1},
		{"over target clamps", HoldTimer{Phase: Holding, Held: 9 * time.Second, Target: 5 * time.Second}, 1},
		{"zero target", HoldTimer{Phase: Holding}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.timer.Progress(), 1e-12)
		})
	}
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "holding", Holding.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "unknown", Phase(42).String())

	text, err := Holding.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "holding", string(text))
}
