package server

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ayusman/docuscan/internal/capture"
)

// StreamHandler serves MJPEG preview frames from the video source.
type StreamHandler struct {
	source capture.Source
}

// NewStreamHandler creates a new StreamHandler for the given source.
func NewStreamHandler(source capture.Source) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		default:
		}

		if !h.source.Ready() {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		frame, err := h.source.Snapshot()
		if err != nil {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		// Encode as JPEG
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
			continue
		}

		// Write MJPEG frame
		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.Bytes())
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}

		time.Sleep(66 * time.Millisecond) // ~15 FPS
	}
}
