// Package session tracks in-memory document capture sessions. A session
// covers both sides of one document; nothing is persisted beyond it.
package session

import (
	"errors"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/docuscan/internal/analyze"
	"github.com/ayusman/docuscan/internal/detector"
)

// Side identifies a document side within a session.
type Side string

const (
	SideFront Side = "front"
	SideBack  Side = "back"
)

// Valid reports whether s names a known document side.
func (s Side) Valid() bool {
	return s == SideFront || s == SideBack
}

// Errors returned by the session manager.
var (
	ErrNotFound    = errors.New("session not found")
	ErrInvalidSide = errors.New("invalid document side")
	ErrIncomplete  = errors.New("session is missing a document side")
)

// CapturedSide holds one side's cropped document image.
type CapturedSide struct {
	Image      image.Image
	Box        detector.Box
	CapturedAt time.Time
}

// Session is one in-memory document capture flow.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu     sync.Mutex
	sides  map[Side]*CapturedSide
	report *analyze.Report
}

// SetSide stores the cropped image for a document side, replacing any
// earlier capture of the same side.
func (s *Session) SetSide(side Side, img image.Image, box detector.Box) error {
	if !side.Valid() {
		return ErrInvalidSide
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sides[side] = &CapturedSide{
		Image:      img,
		Box:        box,
		CapturedAt: time.Now(),
	}
	// A changed side invalidates any previous analysis
	s.report = nil
	return nil
}

// Side returns the captured image for a document side.
func (s *Session) Side(side Side) (*CapturedSide, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	captured, ok := s.sides[side]
	return captured, ok
}

// Retake discards a captured side so it can be captured again.
func (s *Session) Retake(side Side) error {
	if !side.Valid() {
		return ErrInvalidSide
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sides, side)
	s.report = nil
	return nil
}

// Complete reports whether both document sides have been captured.
func (s *Session) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sides[SideFront] != nil && s.sides[SideBack] != nil
}

// Images returns the front and back images, or ErrIncomplete when a side is
// missing.
func (s *Session) Images() (front, back image.Image, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.sides[SideFront]
	b := s.sides[SideBack]
	if f == nil || b == nil {
		return nil, nil, ErrIncomplete
	}
	return f.Image, b.Image, nil
}

// SetReport attaches the analysis outcome to the session.
func (s *Session) SetReport(report *analyze.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.report = report
}

// Report returns the attached analysis outcome, if any.
func (s *Session) Report() (*analyze.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.report == nil {
		return nil, false
	}
	return s.report, true
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session with a fresh ID.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		sides:     make(map[Side]*CapturedSide),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes a session and its in-memory images.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
