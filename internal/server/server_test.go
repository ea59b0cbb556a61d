package server

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/docuscan/internal/app"
	"github.com/ayusman/docuscan/internal/autocapture"
	"github.com/ayusman/docuscan/internal/capture"
	"github.com/ayusman/docuscan/internal/detector"
	"github.com/ayusman/docuscan/internal/session"
	"github.com/ayusman/docuscan/testdata"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()

	cfg := autocapture.DefaultConfig()
	cfg.TargetClasses = []string{"id_card"}
	cfg.FrameAreaThreshold = 0.55
	cfg.StabilityThreshold = 3
	cfg.Policy = autocapture.PolicySimple

	a := app.New(app.Config{Capture: cfg})
	t.Cleanup(a.Close)

	frame := testdata.CardFrame(100, 100, image.Rect(10, 10, 90, 90), 60)
	a.SetSource(capture.NewMockSource([]image.Image{frame}, true))
	a.SetDetector(detector.NewMockDetector())

	return a
}

func TestServer_Health(t *testing.T) {
	srv := New(Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
}

func TestServer_HealthMethodNotAllowed(t *testing.T) {
	srv := New(Config{})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/health", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestServer_CaptureStartValidation(t *testing.T) {
	a := newTestApp(t)
	srv := New(Config{App: a})

	t.Run("BadBody", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture/start", strings.NewReader("{")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("UnknownSession", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture/start",
			strings.NewReader(`{"session_id":"missing","side":"front"}`)))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("InvalidSide", func(t *testing.T) {
		sess := a.Sessions().Create()
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture/start",
			strings.NewReader(`{"session_id":"`+sess.ID+`","side":"selfie"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestServer_CaptureStopWhenIdle(t *testing.T) {
	srv := New(Config{App: newTestApp(t)})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture/stop", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestServer_CaptureForceWithoutCapture(t *testing.T) {
	srv := New(Config{App: newTestApp(t)})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture/force", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestServer_CaptureStatusIdle(t *testing.T) {
	srv := New(Config{App: newTestApp(t)})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/capture/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status["status"] != "searching" {
		t.Errorf("status = %q, want searching", status["status"])
	}
	if status["guidance"] == "" {
		t.Error("guidance missing from status response")
	}
}

func TestServer_CameraCaptureToSession(t *testing.T) {
	a := newTestApp(t)

	mock := detector.NewMockDetector()
	mock.SetDetections([]detector.Detection{{
		Class: "id_card",
		Score: 0.9,
		Box:   detector.Box{X: 10, Y: 10, Width: 80, Height: 80},
	}})
	a.SetDetector(mock)

	srv := New(Config{App: a})
	sess := a.Sessions().Create()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture/start",
		strings.NewReader(`{"session_id":"`+sess.ID+`","side":"front"}`)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body.String())
	}

	// The loop ticks on the real clock; wait for the capture to land
	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, ok := sess.Side(session.SideFront); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("camera capture never completed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Starting again must work once the previous loop has torn down
	deadline = time.Now().Add(3 * time.Second)
	for {
		rec = httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/capture/start",
			strings.NewReader(`{"session_id":"`+sess.ID+`","side":"back"}`)))
		if rec.Code == http.StatusAccepted {
			break
		}
		if rec.Code != http.StatusConflict {
			t.Fatalf("restart status = %d: %s", rec.Code, rec.Body.String())
		}
		if time.Now().After(deadline) {
			t.Fatal("previous capture never released")
		}
		time.Sleep(10 * time.Millisecond)
	}
	a.StopCapture()
}
