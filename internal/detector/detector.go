// Package detector defines the object-detection boundary for document capture.
package detector

import "image"

// Box is an axis-aligned bounding box in source-frame pixel coordinates.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the box area in square pixels.
func (b Box) Area() float64 {
	return b.Width * b.Height
}

// Center returns the box center point.
func (b Box) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Rect converts the box to an image.Rectangle, rounding outward.
func (b Box) Rect() image.Rectangle {
	return image.Rect(int(b.X), int(b.Y), int(b.X+b.Width+0.5), int(b.Y+b.Height+0.5))
}

// Detection is one detector output: a class label, a confidence score in
// [0,1], and a bounding box. Produced fresh for every frame, never mutated.
type Detection struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
	Box   Box     `json:"bbox"`
}

// Detector defines the interface for document detection implementations.
type Detector interface {
	// Detect analyzes a frame and returns detected documents.
	// Returns an empty slice if nothing is detected.
	Detect(frame image.Image) ([]Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for document detection.
type Config struct {
	// MaxDetections is the maximum number of boxes to return (default: 4).
	MaxDetections int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxDetections: 4,
		MinConfidence: 0.3,
	}
}
