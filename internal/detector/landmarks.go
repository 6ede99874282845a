// Package detector provides body pose detection interfaces and types for pose matching.
package detector

import "math"

// Pose landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose           = 0
	LeftEyeInner   = 1
	LeftEye        = 2
	LeftEyeOuter   = 3
	RightEyeInner  = 4
	RightEye       = 5
	RightEyeOuter  = 6
	LeftEar        = 7
	RightEar       = 8
	MouthLeft      = 9
	MouthRight     = 10
	LeftShoulder   = 11
	RightShoulder  = 12
	LeftElbow      = 13
	RightElbow     = 14
	LeftWrist      = 15
	RightWrist     = 16
	LeftPinky      = 17
	RightPinky     = 18
	LeftIndex      = 19
	RightIndex     = 20
	LeftThumb      = 21
	RightThumb     = 22
	LeftHip        = 23
	RightHip       = 24
	LeftKnee       = 25
	RightKnee      = 26
	LeftAnkle      = 27
	RightAnkle     = 28
	LeftHeel       = 29
	RightHeel      = 30
	LeftFootIndex  = 31
	RightFootIndex = 32
	NumLandmarks   = 33
)

// minTorsoLength is the torso length below which the scale is treated as degenerate.
const minTorsoLength = 1e-10

// Point3D represents a landmark position. X and Y are normalized image
// coordinates; Z is relative depth and may be zero when not reported.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Midpoint returns the point halfway between p and q.
func Midpoint(p, q Point3D) Point3D {
	return Point3D{
		X: (p.X + q.X) / 2,
		Y: (p.Y + q.Y) / 2,
		Z: (p.Z + q.Z) / 2,
	}
}

// PoseLandmarks represents the 33 body landmarks detected by MediaPipe for one person.
type PoseLandmarks struct {
	Points [NumLandmarks]Point3D `json:"points"`
	Score  float64               `json:"score"`
}

// distance2D calculates the Euclidean distance between two points in the x/y plane.
func distance2D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// HipCenter returns the midpoint of the left and right hips.
func (p *PoseLandmarks) HipCenter() Point3D {
	return Midpoint(p.Points[LeftHip], p.Points[RightHip])
}

// ShoulderCenter returns the midpoint of the left and right shoulders.
func (p *PoseLandmarks) ShoulderCenter() Point3D {
	return Midpoint(p.Points[LeftShoulder], p.Points[RightShoulder])
}

// TorsoLength returns the x/y distance between the hip center and the shoulder center.
func (p *PoseLandmarks) TorsoLength() float64 {
	return distance2D(p.HipCenter(), p.ShoulderCenter())
}

// Normalize normalizes the pose relative to the hip center and torso length.
// The normalized landmarks have the hip center at origin (0,0,0) and are
// scaled so that the torso length is 1.0. When the torso length is zero
// the scale factor is 1 and only the translation is applied.
// Returns a new PoseLandmarks instance with normalized points.
func (p *PoseLandmarks) Normalize() *PoseLandmarks {
	if p == nil {
		return nil
	}

	normalized := &PoseLandmarks{Score: p.Score}

	origin := p.HipCenter()

	scale := p.TorsoLength()
	if scale < minTorsoLength {
		scale = 1
	}

	for i := 0; i < NumLandmarks; i++ {
		normalized.Points[i] = Point3D{
			X: (p.Points[i].X - origin.X) / scale,
			Y: (p.Points[i].Y - origin.Y) / scale,
			Z: (p.Points[i].Z - origin.Z) / scale,
		}
	}

	return normalized
}

// Transform returns a copy of the pose with every point scaled by k about
// the origin and then shifted by (dx, dy).
func (p *PoseLandmarks) Transform(k, dx, dy float64) *PoseLandmarks {
	if p == nil {
		return nil
	}

	out := &PoseLandmarks{Score: p.Score}
	for i := 0; i < NumLandmarks; i++ {
		out.Points[i] = Point3D{
			X: p.Points[i].X*k + dx,
			Y: p.Points[i].Y*k + dy,
			Z: p.Points[i].Z * k,
		}
	}
	return out
}
