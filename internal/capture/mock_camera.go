package capture

import (
	"fmt"
	"image"
	"sync"
)

// MockSource plays back pre-recorded frames for testing
type MockSource struct {
	frames  []image.Image
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
	openErr error
}

func NewMockSource(frames []image.Image, loop bool) *MockSource {
	return &MockSource{
		frames: frames,
		loop:   loop,
	}
}

func (c *MockSource) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockSource) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

func (c *MockSource) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *MockSource) Dimensions() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return 0, 0
	}
	b := c.frames[0].Bounds()
	return b.Dx(), b.Dy()
}

func (c *MockSource) Snapshot() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if len(c.frames) == 0 {
		return nil, fmt.Errorf("no frames available")
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, fmt.Errorf("no more frames")
		}
	}

	frame := c.frames[c.index]
	c.index++

	return frame, nil
}

// SetFrames replaces the frame sequence
func (c *MockSource) SetFrames(frames []image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// SetOpenError makes the next Open call fail with err
func (c *MockSource) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// Reset restarts playback from the beginning
func (c *MockSource) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}
