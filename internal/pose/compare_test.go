package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/posehold/internal/detector"
)

func presets() map[string]detector.PoseLandmarks {
	return map[string]detector.PoseLandmarks{
		"standing": detector.StandingLandmarks(),
		"tpose":    detector.TPoseLandmarks(),
		"armsup":   detector.ArmsUpLandmarks(),
		"squat":    detector.SquatLandmarks(),
	}
}

func TestComparator_SelfSimilarity(t *testing.T) {
	c := NewComparator()
	for name, p := range presets() {
		t.Run(name, func(t *testing.T) {
			p := p
			assert.InDelta(t, 1.0, c.Similarity(&p, &p), 1e-9)
		})
	}
}

func TestComparator_Symmetric(t *testing.T) {
	c := NewComparator()
	all := presets()
	for na, a := range all {
		for nb, b := range all {
			a, b := a, b
			t.Run(na+"_"+nb, func(t *testing.T) {
				assert.InDelta(t, c.Similarity(&a, &b), c.Similarity(&b, &a), 1e-12)
			})
		}
	}
}

func TestComparator_Range(t *testing.T) {
	c := NewComparator()
	all := presets()
	for _, a := range all {
		for _, b := range all {
			a, b := a, b
			sim := c.Similarity(&a, &b)
			require.GreaterOrEqual(t, sim, 0.0)
			require.LessOrEqual(t, sim, 1.0)
		}
	}
}

func TestComparator_NilInput(t *testing.T) {
	c := NewComparator()
	p := detector.StandingLandmarks()

	assert.Equal(t, 0.0, c.Similarity(nil, &p))
	assert.Equal(t, 0.0, c.Similarity(&p, nil))
	assert.Equal(t, 0.0, c.Similarity(nil, nil))
}

func TestComparator_ScaleAndTranslationInvariant(t *testing.T) {
	c := NewComparator()
	reference := detector.TPoseLandmarks()
	live := detector.StandingLandmarks()

	want := c.Similarity(&live, &reference)

	tests := []struct {
		name      string
		k, dx, dy float64
	}{
		{"half size", 0.5, 0, 0},
		{"double size shifted", 2, 0.3, -0.2},
		{"tiny far corner", 0.1, 0.85, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moved := live.Transform(tt.k, tt.dx, tt.dy)
			assert.InDelta(t, want, c.Similarity(moved, &reference), 1e-9)
		})
	}
}

func TestComparator_DifferentPosesScoreLower(t *testing.T) {
	c := NewComparator()
	standing := detector.StandingLandmarks()
	tpose := detector.TPoseLandmarks()
	armsUp := detector.ArmsUpLandmarks()

	assert.Less(t, c.Similarity(&standing, &tpose), DefaultThreshold)
	assert.Less(t, c.Similarity(&standing, &armsUp), c.Similarity(&standing, &tpose),
		"arms overhead should be further from standing than arms out")
}

func TestComparator_KnownDeviation(t *testing.T) {
	// Bending only the left elbow from 180° to 90° changes one of eight
	// joints by 90°, so the average deviation is 11.25° and similarity 0.75.
	reference := detector.TPoseLandmarks()
	live := reference
	elbow := live.Points[detector.LeftElbow]
	live.Points[detector.LeftWrist] = detector.Point3D{X: elbow.X, Y: elbow.Y - 0.12}

	diffs := NewComparator().AngleDiffs(&live, &reference)
	assert.InDelta(t, 90, diffs[0], 1e-9)
	for i := 1; i < len(diffs); i++ {
		assert.InDelta(t, 0, diffs[i], 1e-9, Joints[i].Name)
	}

	assert.InDelta(t, 0.75, NewComparator().Similarity(&live, &reference), 1e-9)
}

func TestComparator_FloorsAtZero(t *testing.T) {
	c := &Comparator{Tolerance: 1}
	standing := detector.StandingLandmarks()
	armsUp := detector.ArmsUpLandmarks()

	assert.Equal(t, 0.0, c.Similarity(&standing, &armsUp))
}

func TestComparator_DegenerateLandmarks(t *testing.T) {
	var empty detector.PoseLandmarks
	standing := detector.StandingLandmarks()

	sim := NewComparator().Similarity(&empty, &standing)
	assert.False(t, math.IsNaN(sim))
	assert.GreaterOrEqual(t, sim, 0.0)
	assert.InDelta(t, 1.0, NewComparator().Similarity(&empty, &empty), 1e-12)
}

func TestMatcher(t *testing.T) {
	m := NewMatcher(0, 0)
	require.Equal(t, DefaultThreshold, m.Threshold())

	t.Run("threshold is exclusive", func(t *testing.T) {
		assert.False(t, m.IsMatch(0.8))
		assert.True(t, m.IsMatch(0.8000001))
		assert.False(t, m.IsMatch(0))
	})

	t.Run("identical pose matches", func(t *testing.T) {
		p := detector.SquatLandmarks()
		res := m.Match(&p, &p)
		assert.True(t, res.Matched)
		assert.InDelta(t, 1.0, res.Similarity, 1e-9)
	})

	t.Run("different pose does not match", func(t *testing.T) {
		a := detector.StandingLandmarks()
		b := detector.ArmsUpLandmarks()
		assert.False(t, m.Match(&a, &b).Matched)
	})

	t.Run("no body does not match", func(t *testing.T) {
		ref := detector.TPoseLandmarks()
		res := m.Match(nil, &ref)
		assert.False(t, res.Matched)
		assert.Equal(t, 0.0, res.Similarity)
	})

	t.Run("custom threshold", func(t *testing.T) {
		loose := NewMatcher(0.5, DefaultTolerance)
		assert.True(t, loose.IsMatch(0.6))
	})
}
