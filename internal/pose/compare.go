package pose

import (
	"math"

	"github.com/ayusman/posehold/internal/detector"
)

// Default scoring constants.
const (
	// DefaultTolerance is the average joint-angle deviation, in degrees, at
	// which similarity reaches 0.
	DefaultTolerance = 45.0
	// DefaultThreshold is the similarity a frame must exceed to count as a match.
	DefaultThreshold = 0.8
)

// Joint names a scored joint angle: the angle at B between B→A and B→C.
type Joint struct {
	Name    string
	A, B, C int
}

// Joints are the eight joint angles compared between two poses.
var Joints = [8]Joint{
	{Name: "left_elbow", A: detector.LeftShoulder, B: detector.LeftElbow, C: detector.LeftWrist},
	{Name: "right_elbow", A: detector.RightShoulder, B: detector.RightElbow, C: detector.RightWrist},
	{Name: "left_shoulder", A: detector.LeftElbow, B: detector.LeftShoulder, C: detector.LeftHip},
	{Name: "right_shoulder", A: detector.RightElbow, B: detector.RightShoulder, C: detector.RightHip},
	{Name: "left_knee", A: detector.LeftHip, B: detector.LeftKnee, C: detector.LeftAnkle},
	{Name: "right_knee", A: detector.RightHip, B: detector.RightKnee, C: detector.RightAnkle},
	{Name: "left_hip", A: detector.LeftKnee, B: detector.LeftHip, C: detector.LeftShoulder},
	{Name: "right_hip", A: detector.RightKnee, B: detector.RightHip, C: detector.RightShoulder},
}

// Angle returns the joint angle of j in p.
func (j Joint) Angle(p *detector.PoseLandmarks) float64 {
	return JointAngle(p.Points[j.A], p.Points[j.B], p.Points[j.C])
}

// Comparator scores the similarity of two poses by their joint angles.
type Comparator struct {
	// Tolerance is the average angle deviation in degrees at which similarity is 0.
	Tolerance float64
}

// NewComparator creates a Comparator using DefaultTolerance.
func NewComparator() *Comparator {
	return &Comparator{Tolerance: DefaultTolerance}
}

// AngleDiffs returns the absolute angle difference, in degrees, for each of
// the Joints after normalizing both poses.
func (c *Comparator) AngleDiffs(current, reference *detector.PoseLandmarks) [len(Joints)]float64 {
	var diffs [len(Joints)]float64

	a := current.Normalize()
	b := reference.Normalize()
	for i, j := range Joints {
		diffs[i] = math.Abs(j.Angle(a) - j.Angle(b))
	}
	return diffs
}

// Similarity returns a score in [0, 1] where 1 means the joint angles are
// identical and 0 means the average deviation is at or beyond the tolerance.
// Returns 0 if either pose is nil.
func (c *Comparator) Similarity(current, reference *detector.PoseLandmarks) float64 {
	if current == nil || reference == nil {
		return 0
	}

	tolerance := c.Tolerance
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	var total float64
	for _, d := range c.AngleDiffs(current, reference) {
		total += d
	}
	avgDiff := total / float64(len(Joints))

	return math.Max(0, 1-avgDiff/tolerance)
}

// Matcher thresholds similarity into a per-frame match decision.
type Matcher struct {
	comparator *Comparator
	threshold  float64
}

// Result is the outcome of comparing one frame against the reference.
type Result struct {
	Similarity float64 `json:"similarity"`
	Matched    bool    `json:"matched"`
}

// NewMatcher creates a Matcher. Non-positive arguments fall back to the defaults.
func NewMatcher(threshold, tolerance float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{
		comparator: &Comparator{Tolerance: tolerance},
		threshold:  threshold,
	}
}

// Threshold returns the similarity a frame must exceed to match.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// IsMatch reports whether similarity exceeds the threshold.
func (m *Matcher) IsMatch(similarity float64) bool {
	return similarity > m.threshold
}

// Match compares current against reference. A nil current pose (no body in
// the frame) yields similarity 0 and no match.
func (m *Matcher) Match(current, reference *detector.PoseLandmarks) Result {
	sim := m.comparator.Similarity(current, reference)
	return Result{Similarity: sim, Matched: m.IsMatch(sim)}
}
