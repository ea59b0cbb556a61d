// Package app wires the camera, detector, capture controller, sessions and
// remote analysis into the document capture application.
package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/ayusman/docuscan/internal/analyze"
	"github.com/ayusman/docuscan/internal/autocapture"
	"github.com/ayusman/docuscan/internal/capture"
	"github.com/ayusman/docuscan/internal/detector"
	"github.com/ayusman/docuscan/internal/session"
)

// ErrCaptureActive is returned when a capture is started while another one
// is still running.
var ErrCaptureActive = errors.New("a capture is already active")

// Config holds configuration options for the application.
type Config struct {
	CameraID int
	Capture  autocapture.Config
	OCRURL   string
	FraudURL string
}

// App orchestrates guided document capture: one active camera capture at a
// time, any number of live sessions.
type App struct {
	config   Config
	source   capture.Source
	detector detector.Detector
	sessions *session.Manager
	analyzer *analyze.Client

	mu       sync.Mutex
	loop     *autocapture.Loop
	ctrl     *autocapture.Controller
	onUpdate func(autocapture.Update)
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	a := &App{
		config:   config,
		source:   capture.NewCamera(config.CameraID),
		sessions: session.NewManager(),
		analyzer: analyze.NewClient(config.OCRURL, config.FraudURL),
	}

	// Try the ONNX sidecar first, fall back to the mock detector
	if onnx, err := detector.NewONNXDetector(detector.DefaultConfig()); err == nil {
		a.detector = onnx
		log.Println("Using ONNX document detection")
	} else {
		log.Printf("ONNX detector not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetSource replaces the video source. Intended for tests.
func (a *App) SetSource(s capture.Source) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = s
}

// SetDetector replaces the document detector implementation.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetOnUpdate registers the per-tick feedback consumer (the WebSocket hub).
func (a *App) SetOnUpdate(fn func(autocapture.Update)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onUpdate = fn
}

// Sessions returns the session manager.
func (a *App) Sessions() *session.Manager {
	return a.sessions
}

// Source returns the video source.
func (a *App) Source() capture.Source {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.source
}

// Detector returns the document detector.
func (a *App) Detector() detector.Detector {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.detector
}

// CaptureConfig returns the frame-acceptance configuration.
func (a *App) CaptureConfig() autocapture.Config {
	return a.config.Capture
}

// StartCapture opens the camera and runs the acquisition loop until a frame
// is captured for the given session side, the capture fails, or StopCapture
// is called. The camera is released on every exit path.
func (a *App) StartCapture(sessionID string, side session.Side) error {
	if !side.Valid() {
		return session.ErrInvalidSide
	}

	sess, err := a.sessions.Get(sessionID)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loop != nil {
		return ErrCaptureActive
	}

	// Camera acquisition failures are terminal for the capture attempt;
	// the caller must restart the flow.
	if err := a.source.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	ctrl := autocapture.NewController(a.config.Capture, nil)
	loop := autocapture.NewLoop(autocapture.LoopConfig{
		Source:     a.source,
		Detector:   a.detector,
		Controller: ctrl,
		OnUpdate:   a.publish,
		OnDone: func(captured autocapture.CapturedImage) {
			if err := a.storeCapture(sess, side, captured); err != nil {
				log.Printf("store capture: %v", err)
			}
		},
	})

	a.ctrl = ctrl
	a.loop = loop
	loop.Start()

	// Release the camera on the same path regardless of how the loop ends:
	// terminal status, stop, or failure.
	source := a.source
	go func() {
		loop.Wait()
		if err := source.Close(); err != nil {
			log.Printf("close camera: %v", err)
		}
		a.clearLoop(loop)
	}()

	log.Printf("Capture started for session %s side %s", sessionID, side)
	return nil
}

// StopCapture cancels any active acquisition loop. Safe to call when no
// capture is running.
func (a *App) StopCapture() {
	a.mu.Lock()
	loop := a.loop
	ctrl := a.ctrl
	a.mu.Unlock()

	if loop == nil {
		return
	}

	loop.Stop()
	if ctrl != nil && !ctrl.Status().Terminal() {
		ctrl.Fail()
	}
}

// ForceCapture triggers a manual capture from the last accepted frame.
func (a *App) ForceCapture() bool {
	a.mu.Lock()
	ctrl := a.ctrl
	a.mu.Unlock()

	if ctrl == nil {
		return false
	}
	return ctrl.ForceCapture()
}

// CaptureStatus returns the current controller status, or searching when no
// capture is active.
func (a *App) CaptureStatus() autocapture.Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.ctrl == nil {
		return autocapture.StatusSearching
	}
	return a.ctrl.Status()
}

// ValidateUpload runs the one-shot validator over an uploaded still and, on
// acceptance, crops and stores it as the given session side.
func (a *App) ValidateUpload(sessionID string, side session.Side, img image.Image) (autocapture.ValidationResult, error) {
	sess, err := a.sessions.Get(sessionID)
	if err != nil {
		return autocapture.ValidationResult{}, err
	}

	result, err := autocapture.ValidateImage(a.Detector(), img, a.config.Capture)
	if err != nil {
		return autocapture.ValidationResult{}, err
	}
	if !result.OK {
		return result, nil
	}

	cropped, err := analyze.Crop(img, result.Box)
	if err != nil {
		return autocapture.ValidationResult{}, err
	}
	if err := sess.SetSide(side, cropped, result.Box); err != nil {
		return autocapture.ValidationResult{}, err
	}

	return result, nil
}

// Process runs OCR and fraud analysis for a completed session and attaches
// the report.
func (a *App) Process(ctx context.Context, sessionID string) (*analyze.Report, error) {
	sess, err := a.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}

	front, back, err := sess.Images()
	if err != nil {
		return nil, err
	}

	report, err := a.analyzer.Process(ctx, front, back)
	if err != nil {
		return nil, err
	}

	sess.SetReport(report)
	return report, nil
}

// Close releases the camera and detector.
func (a *App) Close() {
	a.StopCapture()

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.source.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	if a.detector != nil {
		if err := a.detector.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}
}

// storeCapture crops the captured frame and attaches it to the session.
func (a *App) storeCapture(sess *session.Session, side session.Side, captured autocapture.CapturedImage) error {
	cropped, err := analyze.Crop(captured.Image, captured.Box)
	if err != nil {
		return err
	}
	return sess.SetSide(side, cropped, captured.Box)
}

func (a *App) publish(update autocapture.Update) {
	a.mu.Lock()
	fn := a.onUpdate
	a.mu.Unlock()

	if fn != nil {
		fn(update)
	}
}

func (a *App) clearLoop(loop *autocapture.Loop) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loop == loop {
		a.loop = nil
		a.ctrl = nil
	}
}
