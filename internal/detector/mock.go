package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	pose  *PoseLandmarks
	err   error
	calls int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetPose sets the pose that will be returned by Detect. nil means no body.
func (m *MockDetector) SetPose(pose *PoseLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = pose
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured pose or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*PoseLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.pose == nil {
		return nil, nil
	}
	pose := *m.pose
	return &pose, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// limbs holds the arm and leg joints that differ between the preset poses.
type limbs struct {
	leftElbow, leftWrist, rightElbow, rightWrist Point3D
	leftKnee, leftAnkle, rightKnee, rightAnkle   Point3D
}

// buildPose fills a full landmark set around a fixed head, shoulders and hips.
// Coordinates are image space: x grows to the right, y grows downward. The
// subject faces the camera, so their left side appears on the image right.
func buildPose(l limbs) PoseLandmarks {
	p := PoseLandmarks{Score: 0.95}

	p.Points[Nose] = Point3D{X: 0.50, Y: 0.20}
	p.Points[LeftEyeInner] = Point3D{X: 0.51, Y: 0.19}
	p.Points[LeftEye] = Point3D{X: 0.52, Y: 0.19}
	p.Points[LeftEyeOuter] = Point3D{X: 0.53, Y: 0.19}
	p.Points[RightEyeInner] = Point3D{X: 0.49, Y: 0.19}
	p.Points[RightEye] = Point3D{X: 0.48, Y: 0.19}
	p.Points[RightEyeOuter] = Point3D{X: 0.47, Y: 0.19}
	p.Points[LeftEar] = Point3D{X: 0.54, Y: 0.20}
	p.Points[RightEar] = Point3D{X: 0.46, Y: 0.20}
	p.Points[MouthLeft] = Point3D{X: 0.51, Y: 0.23}
	p.Points[MouthRight] = Point3D{X: 0.49, Y: 0.23}

	p.Points[LeftShoulder] = Point3D{X: 0.55, Y: 0.35}
	p.Points[RightShoulder] = Point3D{X: 0.45, Y: 0.35}
	p.Points[LeftHip] = Point3D{X: 0.53, Y: 0.60}
	p.Points[RightHip] = Point3D{X: 0.47, Y: 0.60}

	p.Points[LeftElbow] = l.leftElbow
	p.Points[LeftWrist] = l.leftWrist
	p.Points[RightElbow] = l.rightElbow
	p.Points[RightWrist] = l.rightWrist
	p.Points[LeftKnee] = l.leftKnee
	p.Points[LeftAnkle] = l.leftAnkle
	p.Points[RightKnee] = l.rightKnee
	p.Points[RightAnkle] = l.rightAnkle

	// Hands and feet trail the wrists and ankles.
	p.Points[LeftPinky] = Point3D{X: l.leftWrist.X + 0.01, Y: l.leftWrist.Y + 0.02}
	p.Points[LeftIndex] = Point3D{X: l.leftWrist.X, Y: l.leftWrist.Y + 0.03}
	p.Points[LeftThumb] = Point3D{X: l.leftWrist.X - 0.01, Y: l.leftWrist.Y + 0.02}
	p.Points[RightPinky] = Point3D{X: l.rightWrist.X - 0.01, Y: l.rightWrist.Y + 0.02}
	p.Points[RightIndex] = Point3D{X: l.rightWrist.X, Y: l.rightWrist.Y + 0.03}
	p.Points[RightThumb] = Point3D{X: l.rightWrist.X + 0.01, Y: l.rightWrist.Y + 0.02}
	p.Points[LeftHeel] = Point3D{X: l.leftAnkle.X, Y: l.leftAnkle.Y + 0.02}
	p.Points[LeftFootIndex] = Point3D{X: l.leftAnkle.X + 0.01, Y: l.leftAnkle.Y + 0.03, Z: -0.05}
	p.Points[RightHeel] = Point3D{X: l.rightAnkle.X, Y: l.rightAnkle.Y + 0.02}
	p.Points[RightFootIndex] = Point3D{X: l.rightAnkle.X - 0.01, Y: l.rightAnkle.Y + 0.03, Z: -0.05}

	return p
}

// straightLegs are the knee and ankle positions of a relaxed standing stance.
func straightLegs(l limbs) limbs {
	l.leftKnee = Point3D{X: 0.53, Y: 0.78}
	l.leftAnkle = Point3D{X: 0.53, Y: 0.95}
	l.rightKnee = Point3D{X: 0.47, Y: 0.78}
	l.rightAnkle = Point3D{X: 0.47, Y: 0.95}
	return l
}

// StandingLandmarks returns a preset pose of a person standing with arms relaxed at the sides.
func StandingLandmarks() PoseLandmarks {
	return buildPose(straightLegs(limbs{
		leftElbow:  Point3D{X: 0.57, Y: 0.47},
		leftWrist:  Point3D{X: 0.58, Y: 0.58},
		rightElbow: Point3D{X: 0.43, Y: 0.47},
		rightWrist: Point3D{X: 0.42, Y: 0.58},
	}))
}

// TPoseLandmarks returns a preset pose with both arms held straight out to the sides.
func TPoseLandmarks() PoseLandmarks {
	return buildPose(straightLegs(limbs{
		leftElbow:  Point3D{X: 0.67, Y: 0.35},
		leftWrist:  Point3D{X: 0.79, Y: 0.35},
		rightElbow: Point3D{X: 0.33, Y: 0.35},
		rightWrist: Point3D{X: 0.21, Y: 0.35},
	}))
}

// ArmsUpLandmarks returns a preset pose with both arms raised straight overhead.
func ArmsUpLandmarks() PoseLandmarks {
	return buildPose(straightLegs(limbs{
		leftElbow:  Point3D{X: 0.57, Y: 0.23},
		leftWrist:  Point3D{X: 0.58, Y: 0.11},
		rightElbow: Point3D{X: 0.43, Y: 0.23},
		rightWrist: Point3D{X: 0.42, Y: 0.11},
	}))
}

// SquatLandmarks returns a preset pose with knees bent outward and hands clasped at the chest.
func SquatLandmarks() PoseLandmarks {
	return buildPose(limbs{
		leftElbow:  Point3D{X: 0.60, Y: 0.45},
		leftWrist:  Point3D{X: 0.52, Y: 0.40},
		rightElbow: Point3D{X: 0.40, Y: 0.45},
		rightWrist: Point3D{X: 0.48, Y: 0.40},
		leftKnee:   Point3D{X: 0.64, Y: 0.70},
		leftAnkle:  Point3D{X: 0.56, Y: 0.86},
		rightKnee:  Point3D{X: 0.36, Y: 0.70},
		rightAnkle: Point3D{X: 0.44, Y: 0.86},
	})
}
