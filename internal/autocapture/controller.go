package autocapture

import (
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ayusman/docuscan/internal/detector"
)

// CapturedImage is the controller's output for a completed capture: the full
// frame snapshot and the detected document box within it.
type CapturedImage struct {
	Image image.Image
	Box   detector.Box
}

// candidate is one buffered frame collected during the capturing window.
type candidate struct {
	image     image.Image
	box       detector.Box
	sharpness float64
}

// Controller owns the capture-intent state machine for one capture session:
// the stability counter, the candidate frame buffer, and the transitions
// among statuses. State is only mutated from acquisition ticks and from the
// explicit session actions (ForceCapture, Fail, Reset); a single controller
// must never be shared across concurrent sessions.
type Controller struct {
	cfg   Config
	clock clock.Clock

	mu         sync.Mutex
	status     Status
	stability  int
	candidates []candidate
	windowEnd  time.Time
	lastGood   *candidate
	lastBox    *detector.Box
	result     *CapturedImage
}

// NewController creates a Controller in the searching state. A nil clk uses
// the real wall clock.
func NewController(cfg Config, clk clock.Clock) *Controller {
	if clk == nil {
		clk = clock.New()
	}
	return &Controller{
		cfg:    cfg,
		clock:  clk,
		status: StatusSearching,
	}
}

// Observe feeds one frame's detector output into the state machine and
// returns the resulting status. The frame image is retained only when it is
// a capture candidate.
func (c *Controller) Observe(frame image.Image, detections []detector.Detection, frameWidth, frameHeight int) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Terminal() {
		return c.status
	}

	v := EvaluateFrame(frame, detections, frameWidth, frameHeight, c.cfg)

	if v.Accepted || v.Reason != StatusSearching {
		box := v.Box
		c.lastBox = &box
	} else {
		c.lastBox = nil
	}

	if v.Accepted {
		c.lastGood = &candidate{image: frame, box: v.Box, sharpness: v.Sharpness}
	} else {
		c.lastGood = nil
	}

	if c.status == StatusCapturing {
		if v.Accepted {
			c.candidates = append(c.candidates, candidate{image: frame, box: v.Box, sharpness: v.Sharpness})
		}
		if !c.clock.Now().Before(c.windowEnd) {
			c.resolveWindow()
		}
		return c.status
	}

	if !v.Accepted {
		c.stability = 0
		c.status = v.Reason
		return c.status
	}

	c.stability++
	if c.stability < c.cfg.StabilityThreshold {
		c.status = StatusStabilizing
		return c.status
	}

	// Stability reached
	if c.cfg.Policy == PolicySimple {
		c.result = &CapturedImage{Image: frame, Box: v.Box}
		c.status = StatusSucceeded
		return c.status
	}

	// Open the collection window. The buffer starts from the triggering
	// frame: it passed every gate and must not be lost if detection drops
	// out immediately afterwards.
	c.status = StatusCapturing
	c.candidates = c.candidates[:0]
	c.candidates = append(c.candidates, candidate{image: frame, box: v.Box, sharpness: v.Sharpness})
	c.windowEnd = c.clock.Now().Add(c.cfg.CollectionWindow)
	return c.status
}

// resolveWindow drains the candidate buffer at collection-window expiry.
// Caller must hold c.mu.
func (c *Controller) resolveWindow() {
	if len(c.candidates) == 0 {
		// Detection was lost for the entire window. Recoverable: resume
		// searching with a fresh counter.
		c.stability = 0
		c.status = StatusSearching
		return
	}

	best := c.candidates[0]
	for _, cand := range c.candidates[1:] {
		if cand.sharpness > best.sharpness {
			best = cand
		}
	}

	c.result = &CapturedImage{Image: best.image, Box: best.box}
	c.candidates = nil
	c.status = StatusSucceeded
}

// ForceCapture captures immediately from the most recent accepted frame,
// bypassing the stability wait. It returns false when manual override is
// disabled, the session is already terminal, or the last frame was not
// accepted.
func (c *Controller) ForceCapture() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.ManualOverride || c.status.Terminal() || c.lastGood == nil {
		return false
	}

	c.result = &CapturedImage{Image: c.lastGood.image, Box: c.lastGood.box}
	c.candidates = nil
	c.status = StatusSucceeded
	return true
}

// Fail aborts the session. No-op once terminal.
func (c *Controller) Fail() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Terminal() {
		return
	}
	c.candidates = nil
	c.status = StatusFailed
}

// Reset reinitializes the controller for a new capture attempt, regardless
// of the prior session's terminal state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = StatusSearching
	c.stability = 0
	c.candidates = nil
	c.lastGood = nil
	c.lastBox = nil
	c.result = nil
	c.windowEnd = time.Time{}
}

// LastBox returns the most recent qualifying detection's box, nil while
// searching. Used for on-screen overlay feedback.
func (c *Controller) LastBox() *detector.Box {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastBox == nil {
		return nil
	}
	box := *c.lastBox
	return &box
}

// Status returns the current capture-intent status.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Stability returns the current consecutive-accepted-frame count.
func (c *Controller) Stability() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stability
}

// Result returns the captured image after a successful session.
func (c *Controller) Result() (CapturedImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.result == nil {
		return CapturedImage{}, false
	}
	return *c.result, true
}
