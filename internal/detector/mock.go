package detector

import (
	"image"
	"sync"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu         sync.Mutex
	detections []Detection
	sequence   [][]Detection
	index      int
	err        error
	calls      int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections sets the detections that will be returned by every Detect call.
func (m *MockDetector) SetDetections(detections []Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detections = detections
	m.sequence = nil
	m.index = 0
}

// SetSequence sets a per-call sequence of detection results. Once the
// sequence is exhausted, Detect keeps returning the last entry.
func (m *MockDetector) SetSequence(sequence [][]Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = sequence
	m.index = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the number of Detect invocations so far.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured detections or error.
func (m *MockDetector) Detect(frame image.Image) ([]Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	if len(m.sequence) > 0 {
		result := m.sequence[m.index]
		if m.index < len(m.sequence)-1 {
			m.index++
		}
		return result, nil
	}

	return m.detections, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// CenteredCard returns a preset Detection for an ID card filling about half
// of a frame with the given dimensions, centered.
func CenteredCard(frameWidth, frameHeight int) Detection {
	w := float64(frameWidth) * 0.8
	h := float64(frameHeight) * 0.65
	return Detection{
		Class: "id_card",
		Score: 0.95,
		Box: Box{
			X:      (float64(frameWidth) - w) / 2,
			Y:      (float64(frameHeight) - h) / 2,
			Width:  w,
			Height: h,
		},
	}
}

// DistantCard returns a preset Detection for an ID card far from the camera,
// covering roughly a tenth of the frame, off to the top-left corner.
func DistantCard(frameWidth, frameHeight int) Detection {
	return Detection{
		Class: "id_card",
		Score: 0.9,
		Box: Box{
			X:      4,
			Y:      4,
			Width:  float64(frameWidth) * 0.33,
			Height: float64(frameHeight) * 0.3,
		},
	}
}
