// Package capture reads webcam frames for the pose session and keeps the
// latest preview frame for the web UI.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Capture defaults. Frames the detector cannot keep up with are dropped by
// the session, so DefaultFPS only bounds how fresh the newest frame is.
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned by ReadFrame before Open or after Close.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the device produced no usable frame.
	ErrNoFrame = errors.New("no frame available")
)

// Camera is a frame source for the session. ReadFrame blocks until the
// device delivers a frame; the caller owns the returned Mat.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// videoSource is the part of gocv.VideoCapture the camera uses.
type videoSource interface {
	Read(m *gocv.Mat) bool
	Set(prop gocv.VideoCaptureProperties, param float64)
	Close() error
}

func openDevice(deviceID int) (videoSource, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, err
	}
	return vc, nil
}

// Option configures a camera built by NewCamera.
type Option func(*deviceCamera)

// WithFPS sets the requested capture rate. Values <= 0 are ignored.
func WithFPS(fps int) Option {
	return func(c *deviceCamera) {
		if fps > 0 {
			c.fps = fps
		}
	}
}

// WithResolution sets the requested frame size. Zero values keep the default.
func WithResolution(width, height int) Option {
	return func(c *deviceCamera) {
		if width > 0 && height > 0 {
			c.width, c.height = width, height
		}
	}
}

// deviceCamera reads frames from a local video device.
type deviceCamera struct {
	deviceID      int
	width, height int
	open          func(deviceID int) (videoSource, error)

	mu     sync.Mutex
	source videoSource
	fps    int
}

// NewCamera returns a closed camera for the video device deviceID.
func NewCamera(deviceID int, opts ...Option) Camera {
	c := &deviceCamera{
		deviceID: deviceID,
		width:    DefaultWidth,
		height:   DefaultHeight,
		fps:      DefaultFPS,
		open:     openDevice,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts capture. Opening an open camera is a no-op.
func (c *deviceCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source != nil {
		return nil
	}

	src, err := c.open(c.deviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.deviceID, err)
	}
	src.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	src.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	src.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.source = src
	return nil
}

// Close releases the device. Closing a closed camera returns nil.
func (c *deviceCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source == nil {
		return nil
	}
	err := c.source.Close()
	c.source = nil
	return err
}

func (c *deviceCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.source == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if !c.source.Read(&mat) || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}
	return &mat, nil
}

// SetFPS changes the requested rate, applying it to an open device.
// Values <= 0 are ignored.
func (c *deviceCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.source != nil {
		c.source.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *deviceCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *deviceCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source != nil
}
