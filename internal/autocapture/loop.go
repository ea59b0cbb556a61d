package autocapture

import (
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ayusman/docuscan/internal/capture"
	"github.com/ayusman/docuscan/internal/detector"
)

// DefaultTickInterval is the acquisition cadence, roughly one tick per
// display refresh at 15 FPS.
const DefaultTickInterval = 66 * time.Millisecond

// Update is the per-tick feedback emitted to the surrounding flow.
type Update struct {
	Status   Status        `json:"status"`
	Guidance string        `json:"guidance"`
	Box      *detector.Box `json:"box,omitempty"`
}

// LoopConfig holds the collaborators and timing for an acquisition loop.
type LoopConfig struct {
	Source     capture.Source
	Detector   detector.Detector
	Controller *Controller

	// Interval between ticks. Defaults to DefaultTickInterval.
	Interval time.Duration

	// Clock drives the tick schedule. Defaults to the real clock.
	Clock clock.Clock

	// OnUpdate receives per-tick feedback. Optional.
	OnUpdate func(Update)

	// OnDone receives the captured image when the controller succeeds.
	// Optional.
	OnDone func(CapturedImage)
}

// Loop is the cancelable acquisition loop: one tick per interval, each tick
// pulling a frame from the source, invoking the detector, and feeding the
// result to the controller. Ticks never overlap; the detector call is the
// only suspension point within a tick, so all controller state is mutated in
// arrival order without further synchronization.
type Loop struct {
	cfg LoopConfig

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewLoop creates an acquisition loop from the given configuration.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultTickInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Loop{cfg: cfg}
}

// Start begins ticking in a background goroutine. Starting a running loop is
// a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopCh != nil {
		return
	}

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	l.stopCh = stopCh
	l.doneCh = doneCh

	go func() {
		l.run(stopCh)
		close(doneCh)

		// Invalidate the handle on self-termination (terminal status) so a
		// later Stop is a clean no-op.
		l.mu.Lock()
		if l.stopCh == stopCh {
			l.stopCh = nil
		}
		l.mu.Unlock()
	}()
}

// Stop cancels the loop and waits for the current tick to finish. The stop
// handle is invalidated before the loop can observe it, so a detector call
// in flight at cancellation time cannot resurrect a stale reschedule or
// mutate controller state. Stopping a stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	stopCh := l.stopCh
	doneCh := l.doneCh
	l.stopCh = nil
	l.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	if doneCh != nil {
		<-doneCh
	}
}

// Wait blocks until the loop goroutine has exited, whether it stopped on a
// terminal status or via Stop. Returns immediately if the loop never ran.
func (l *Loop) Wait() {
	l.mu.Lock()
	doneCh := l.doneCh
	l.mu.Unlock()

	if doneCh != nil {
		<-doneCh
	}
}

// Running reports whether the loop is currently active.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopCh != nil
}

func (l *Loop) run(stop <-chan struct{}) {
	ticker := l.cfg.Clock.Ticker(l.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		// Source not ready yet: reschedule without evaluating
		if !l.cfg.Source.Ready() {
			continue
		}

		frame, err := l.cfg.Source.Snapshot()
		if err != nil {
			log.Printf("acquisition: snapshot failed: %v", err)
			continue
		}

		detections, err := l.cfg.Detector.Detect(frame)

		// The detector call is the tick's suspension point. If the loop was
		// stopped while it was in flight, the late result must not feed the
		// controller or reschedule anything.
		select {
		case <-stop:
			return
		default:
		}

		if err != nil {
			// A failed call just delays this tick's feedback; no retry.
			log.Printf("acquisition: detect failed: %v", err)
			continue
		}

		bounds := frame.Bounds()
		status := l.cfg.Controller.Observe(frame, detections, bounds.Dx(), bounds.Dy())

		l.publish(status)

		if status.Terminal() {
			if status == StatusSucceeded {
				if result, ok := l.cfg.Controller.Result(); ok && l.cfg.OnDone != nil {
					l.cfg.OnDone(result)
				}
			}
			return
		}
	}
}

func (l *Loop) publish(status Status) {
	if l.cfg.OnUpdate == nil {
		return
	}

	l.cfg.OnUpdate(Update{
		Status:   status,
		Guidance: status.Guidance(),
		Box:      l.cfg.Controller.LastBox(),
	})
}
