// Package autocapture implements the real-time frame-acceptance logic for
// guided document capture: per-frame evaluation against quality gates, a
// capture-intent state machine with stability debouncing and best-of-N frame
// selection, and the cancelable acquisition loop that drives them.
package autocapture

import (
	"image"
	"math"
	"time"

	"github.com/ayusman/docuscan/internal/capture"
	"github.com/ayusman/docuscan/internal/detector"
)

// Status represents the capture-intent state of a session. The rejection
// statuses double as per-frame verdict reasons.
type Status int

const (
	// StatusSearching means no qualifying document is visible.
	StatusSearching Status = iota
	// StatusBlurred means the document region is out of focus.
	StatusBlurred
	// StatusTooFar means the document covers too little of the frame.
	StatusTooFar
	// StatusUncentered means the document is not centered in the frame.
	StatusUncentered
	// StatusStabilizing means acceptable frames are accumulating toward the
	// stability threshold.
	StatusStabilizing
	// StatusCapturing means the collection window is open and candidate
	// frames are being buffered.
	StatusCapturing
	// StatusSucceeded means a frame has been captured. Terminal.
	StatusSucceeded
	// StatusFailed means the session was aborted. Terminal.
	StatusFailed
)

// String returns the status name used in API responses and feedback events.
func (s Status) String() string {
	switch s {
	case StatusSearching:
		return "searching"
	case StatusBlurred:
		return "blurred"
	case StatusTooFar:
		return "too_far"
	case StatusUncentered:
		return "uncentered"
	case StatusStabilizing:
		return "stabilizing"
	case StatusCapturing:
		return "capturing"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its string name.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// Terminal returns true for statuses that end a capture session.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Guidance returns the user-facing instruction for the status.
func (s Status) Guidance() string {
	switch s {
	case StatusSearching:
		return "Position the document inside the frame"
	case StatusBlurred:
		return "Hold the camera steady to reduce blur"
	case StatusTooFar:
		return "Move the document closer to the camera"
	case StatusUncentered:
		return "Center the document in the frame"
	case StatusStabilizing:
		return "Hold steady"
	case StatusCapturing:
		return "Capturing, hold steady"
	case StatusSucceeded:
		return "Captured"
	case StatusFailed:
		return "Capture failed"
	default:
		return ""
	}
}

// Policy selects how the controller commits to a capture once stability is
// reached.
type Policy int

const (
	// PolicyBestOfN gates acceptance on sharpness and, after stability,
	// buffers candidates for a collection window, keeping the sharpest.
	PolicyBestOfN Policy = iota
	// PolicySimple captures the triggering frame immediately at stability,
	// with no sharpness gate.
	PolicySimple
)

// Config holds the frame-acceptance thresholds and the capture policy.
// All values are fixed at process start.
type Config struct {
	// TargetClasses are the detector class labels accepted as documents.
	TargetClasses []string

	// ConfidenceThreshold is the minimum detector score for a detection to
	// qualify.
	ConfidenceThreshold float64

	// FrameAreaThreshold is the minimum fraction of the frame area the
	// document box must cover.
	FrameAreaThreshold float64

	// CenterThreshold is the maximum offset of the box center from the
	// frame center, as a fraction of the frame dimension per axis.
	CenterThreshold float64

	// StabilityThreshold is the number of consecutive accepted frames
	// required before committing to capture.
	StabilityThreshold int

	// SharpnessThreshold is the minimum acceptable region sharpness
	// (PolicyBestOfN only).
	SharpnessThreshold float64

	// CollectionWindow is the wall-clock duration candidate frames are
	// buffered after stability is reached (PolicyBestOfN only).
	CollectionWindow time.Duration

	// Policy selects the capture commitment strategy.
	Policy Policy

	// ManualOverride allows ForceCapture to bypass the stability wait
	// whenever the most recent frame was accepted. Default off.
	ManualOverride bool
}

// DefaultConfig returns a Config with the standard capture thresholds.
func DefaultConfig() Config {
	return Config{
		TargetClasses:       []string{"id_card", "passport", "driver_license"},
		ConfidenceThreshold: 0.6,
		FrameAreaThreshold:  0.30,
		CenterThreshold:     0.15,
		StabilityThreshold:  5,
		SharpnessThreshold:  12.0,
		CollectionWindow:    700 * time.Millisecond,
		Policy:              PolicyBestOfN,
	}
}

// targetClass reports whether the class label is one of the configured
// document classes.
func (c Config) targetClass(class string) bool {
	for _, t := range c.TargetClasses {
		if t == class {
			return true
		}
	}
	return false
}

// Verdict is the structured result of evaluating one frame.
type Verdict struct {
	// Accepted is true when the frame passed every gate.
	Accepted bool
	// Reason carries the rejection status when Accepted is false.
	Reason Status
	// Box is the qualifying detection's bounding box, when one exists.
	Box detector.Box
	// Sharpness is the region focus score (PolicyBestOfN only).
	Sharpness float64
}

// EvaluateFrame classifies one frame against the acceptance gates.
//
// The first detection whose class qualifies and whose score exceeds the
// confidence threshold is evaluated; with none, the verdict is searching.
// Gates apply in a fixed precedence so the user gets one actionable
// instruction at a time: sharpness (PolicyBestOfN with pixel data), then
// size, then centering.
func EvaluateFrame(frame image.Image, detections []detector.Detection, frameWidth, frameHeight int, cfg Config) Verdict {
	var selected *detector.Detection
	for i := range detections {
		d := &detections[i]
		if cfg.targetClass(d.Class) && d.Score > cfg.ConfidenceThreshold {
			selected = d
			break
		}
	}

	if selected == nil || frameWidth <= 0 || frameHeight <= 0 {
		return Verdict{Reason: StatusSearching}
	}

	box := selected.Box

	var sharpness float64
	if cfg.Policy == PolicyBestOfN && frame != nil {
		sharpness = capture.RegionSharpness(frame, box.Rect())
		if sharpness < cfg.SharpnessThreshold {
			return Verdict{Reason: StatusBlurred, Box: box, Sharpness: sharpness}
		}
	}

	areaRatio := box.Area() / (float64(frameWidth) * float64(frameHeight))
	if areaRatio <= cfg.FrameAreaThreshold {
		return Verdict{Reason: StatusTooFar, Box: box, Sharpness: sharpness}
	}

	centerX, centerY := box.Center()
	offsetX := math.Abs(centerX - float64(frameWidth)/2)
	offsetY := math.Abs(centerY - float64(frameHeight)/2)
	if offsetX >= float64(frameWidth)*cfg.CenterThreshold || offsetY >= float64(frameHeight)*cfg.CenterThreshold {
		return Verdict{Reason: StatusUncentered, Box: box, Sharpness: sharpness}
	}

	return Verdict{Accepted: true, Box: box, Sharpness: sharpness}
}
