// Package api provides HTTP API handlers for the document capture flow.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ayusman/docuscan/internal/app"
	"github.com/ayusman/docuscan/internal/detector"
	"github.com/ayusman/docuscan/internal/session"
)

// maxUploadBytes caps uploaded document images at 12 MiB.
const maxUploadBytes = 12 << 20

// SessionsHandler handles HTTP requests for capture session resources.
type SessionsHandler struct {
	app *app.App
}

// NewSessionsHandler creates a new SessionsHandler backed by the application.
func NewSessionsHandler(a *app.App) *SessionsHandler {
	return &SessionsHandler{app: a}
}

// ServeHTTP implements the http.Handler interface and routes requests.
// Expected paths:
//
//	/api/sessions
//	/api/sessions/{id}
//	/api/sessions/{id}/sides/{side}
//	/api/sessions/{id}/process
func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		// Collection endpoint: /api/sessions
		switch r.Method {
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	case len(parts) == 2 && parts[1] == "process":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.process(w, r, id)

	case len(parts) == 3 && parts[1] == "sides":
		side := session.Side(parts[2])
		switch r.Method {
		case http.MethodPost:
			h.upload(w, r, id, side)
		case http.MethodDelete:
			h.retake(w, r, id, side)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}

	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

// Response types

type sessionResponse struct {
	ID        string          `json:"id"`
	CreatedAt string          `json:"created_at"`
	Sides     map[string]bool `json:"sides"`
	Complete  bool            `json:"complete"`
	Processed bool            `json:"processed"`
}

type uploadResponse struct {
	Accepted bool          `json:"accepted"`
	Message  string        `json:"message"`
	Box      *detector.Box `json:"box,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// create handles POST /api/sessions.
func (h *SessionsHandler) create(w http.ResponseWriter, r *http.Request) {
	sess := h.app.Sessions().Create()
	writeJSON(w, http.StatusCreated, h.sessionResponse(sess))
}

// get handles GET /api/sessions/{id}.
func (h *SessionsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := h.app.Sessions().Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, h.sessionResponse(sess))
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.app.Sessions().Get(id); err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	h.app.Sessions().Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// upload handles POST /api/sessions/{id}/sides/{side}: validate an uploaded
// still image and store the cropped document on acceptance.
func (h *SessionsHandler) upload(w http.ResponseWriter, r *http.Request, id string, side session.Side) {
	if !side.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid document side")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing image file")
		return
	}
	defer file.Close()

	img, err := imaging.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Unreadable image")
		return
	}

	result, err := h.app.ValidateUpload(id, side, img)
	if err == session.ErrNotFound {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		log.Printf("validate upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Validation failed")
		return
	}

	if !result.OK {
		// Rejection is user-correctable: report the reason and allow an
		// immediate re-upload
		writeJSON(w, http.StatusUnprocessableEntity, uploadResponse{
			Accepted: false,
			Message:  result.Message(),
		})
		return
	}

	box := result.Box
	writeJSON(w, http.StatusOK, uploadResponse{
		Accepted: true,
		Message:  result.Message(),
		Box:      &box,
	})
}

// retake handles DELETE /api/sessions/{id}/sides/{side}.
func (h *SessionsHandler) retake(w http.ResponseWriter, r *http.Request, id string, side session.Side) {
	sess, err := h.app.Sessions().Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Session not found")
		return
	}

	if err := sess.Retake(side); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid document side")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// process handles POST /api/sessions/{id}/process: run OCR and fraud
// analysis over the captured sides.
func (h *SessionsHandler) process(w http.ResponseWriter, r *http.Request, id string) {
	report, err := h.app.Process(r.Context(), id)
	switch {
	case err == session.ErrNotFound:
		writeError(w, http.StatusNotFound, "Session not found")
	case err == session.ErrIncomplete:
		writeError(w, http.StatusConflict, "Both document sides must be captured first")
	case err != nil:
		// Downstream analysis failure: the message carries every
		// individual reason
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (h *SessionsHandler) sessionResponse(sess *session.Session) sessionResponse {
	_, front := sess.Side(session.SideFront)
	_, back := sess.Side(session.SideBack)
	_, processed := sess.Report()

	return sessionResponse{
		ID:        sess.ID,
		CreatedAt: sess.CreatedAt.UTC().Format(time.RFC3339),
		Sides: map[string]bool{
			string(session.SideFront): front,
			string(session.SideBack):  back,
		},
		Complete:  sess.Complete(),
		Processed: processed,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
