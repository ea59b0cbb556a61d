// Package capture provides video frame acquisition using GoCV (OpenCV)
// and pixel-level frame quality analysis.
package capture

import (
	"errors"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// Source defines the interface for video frame sources. A Source exposes a
// readiness flag, its intrinsic pixel dimensions, and the ability to
// synchronously snapshot the current content into a still raster.
type Source interface {
	Open() error
	Close() error
	Ready() bool
	Dimensions() (width, height int)
	Snapshot() (image.Image, error)
}

// cameraSource manages video capture from a camera device using GoCV.
type cameraSource struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	width    int
	height   int
}

// NewCamera creates a new camera Source with the given device ID.
func NewCamera(deviceID int) Source {
	return &cameraSource{
		deviceID: deviceID,
		width:    DefaultWidth,
		height:   DefaultHeight,
	}
}

// Open opens the camera for capturing frames.
// It requests a 1280x720 capture resolution.
func (c *cameraSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return err
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
	capture.Set(gocv.VideoCaptureFPS, DefaultFPS)

	// Record the dimensions the device actually granted
	if w := int(capture.Get(gocv.VideoCaptureFrameWidth)); w > 0 {
		c.width = w
	}
	if h := int(capture.Get(gocv.VideoCaptureFrameHeight)); h > 0 {
		c.height = h
	}

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases the device.
func (c *cameraSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// Ready returns true if the camera is open and able to deliver frames.
func (c *cameraSource) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// Dimensions returns the intrinsic pixel dimensions of captured frames.
func (c *cameraSource) Dimensions() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.width, c.height
}

// Snapshot reads a single frame from the camera as a still image.
func (c *cameraSource) Snapshot() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := c.capture.Read(&mat); !ok {
		return nil, errors.New("failed to read frame from camera")
	}

	if mat.Empty() {
		return nil, errors.New("captured frame is empty")
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	return img, nil
}
