// Package server provides the HTTP server for the document capture flow.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/docuscan/internal/app"
	"github.com/ayusman/docuscan/internal/server/api"
	"github.com/ayusman/docuscan/internal/session"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       *app.App
}

// Server represents the HTTP server for the docuscan application.
type Server struct {
	config   Config
	mux      *http.ServeMux
	feedback *FeedbackHandler
	start    time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App == nil {
		return
	}

	sessionsHandler := api.NewSessionsHandler(s.config.App)
	s.mux.Handle("/api/sessions", sessionsHandler)
	s.mux.Handle("/api/sessions/", sessionsHandler)

	s.mux.HandleFunc("/api/capture/start", s.handleCaptureStart)
	s.mux.HandleFunc("/api/capture/stop", s.handleCaptureStop)
	s.mux.HandleFunc("/api/capture/force", s.handleCaptureForce)
	s.mux.HandleFunc("/api/capture/status", s.handleCaptureStatus)

	// Live guidance feedback over WebSocket
	s.feedback = NewFeedbackHandler()
	s.config.App.SetOnUpdate(s.feedback.Publish)
	s.mux.Handle("/api/feedback", s.feedback)

	// Camera preview stream
	s.mux.Handle("/api/stream", NewStreamHandler(s.config.App.Source()))

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	writeJSON(w, http.StatusOK, response)
}

type captureStartRequest struct {
	SessionID string `json:"session_id"`
	Side      string `json:"side"`
}

// handleCaptureStart handles POST requests to /api/capture/start.
func (s *Server) handleCaptureStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req captureStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	err := s.config.App.StartCapture(req.SessionID, session.Side(req.Side))
	switch {
	case err == session.ErrNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case err == session.ErrInvalidSide:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case err == app.ErrCaptureActive:
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		// Camera acquisition failure: terminal for this attempt
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "capturing"})
	}
}

// handleCaptureStop handles POST requests to /api/capture/stop.
func (s *Server) handleCaptureStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.config.App.StopCapture()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// handleCaptureForce handles POST requests to /api/capture/force, the manual
// capture override.
func (s *Server) handleCaptureForce(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.config.App.ForceCapture() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no accepted frame to capture"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "captured"})
}

// handleCaptureStatus handles GET requests to /api/capture/status.
func (s *Server) handleCaptureStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := s.config.App.CaptureStatus()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   status.String(),
		"guidance": status.Guidance(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
