package e2e

import (
	"bytes"
	"encoding/json"
	"image"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/ayusman/docuscan/internal/app"
	"github.com/ayusman/docuscan/internal/autocapture"
	"github.com/ayusman/docuscan/internal/capture"
	"github.com/ayusman/docuscan/internal/detector"
	"github.com/ayusman/docuscan/internal/server"
	"github.com/ayusman/docuscan/testdata"
)

func captureConfig() autocapture.Config {
	cfg := autocapture.DefaultConfig()
	cfg.TargetClasses = []string{"id_card"}
	cfg.FrameAreaThreshold = 0.55
	cfg.StabilityThreshold = 3
	return cfg
}

func cardDetections() []detector.Detection {
	return []detector.Detection{{
		Class: "id_card",
		Score: 0.9,
		Box:   detector.Box{X: 10, Y: 10, Width: 80, Height: 80},
	}}
}

func uploadSide(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", "upload.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	frame := testdata.CardFrame(100, 100, image.Rect(10, 10, 90, 90), 60)
	if err := imaging.Encode(part, frame, imaging.JPEG); err != nil {
		t.Fatalf("encode upload: %v", err)
	}
	writer.Close()

	resp, err := client.Post(url, writer.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("upload error = %v", err)
	}
	return resp
}

func TestE2E_UploadAndProcessWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	analysis := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ocr":
			w.Write([]byte(`{"fields":{"name":"JANE DOE","number":"X123"},"text":"JANE DOE X123"}`))
		case "/fraud":
			w.Write([]byte(`{"authentic":true,"score":0.97}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer analysis.Close()

	application := app.New(app.Config{
		Capture:  captureConfig(),
		OCRURL:   analysis.URL + "/ocr",
		FraudURL: analysis.URL + "/fraud",
	})
	defer application.Close()

	mock := detector.NewMockDetector()
	mock.SetDetections(cardDetections())
	application.SetDetector(mock)

	srv := server.New(server.Config{App: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	var sessionID string
	t.Run("CreateSession", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/sessions", "application/json", nil)
		if err != nil {
			t.Fatalf("create session error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}

		var created struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if created.ID == "" {
			t.Fatal("created session has no id")
		}
		sessionID = created.ID
	})

	t.Run("UploadBothSides", func(t *testing.T) {
		for _, side := range []string{"front", "back"} {
			resp := uploadSide(t, client, ts.URL+"/api/sessions/"+sessionID+"/sides/"+side)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("upload %s status = %d", side, resp.StatusCode)
			}

			var upload struct {
				Accepted bool `json:"accepted"`
			}
			json.NewDecoder(resp.Body).Decode(&upload)
			resp.Body.Close()

			if !upload.Accepted {
				t.Fatalf("upload %s rejected", side)
			}
		}
	})

	t.Run("Process", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/sessions/"+sessionID+"/process", "application/json", nil)
		if err != nil {
			t.Fatalf("process error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var report struct {
			OCR struct {
				Fields map[string]string `json:"fields"`
			} `json:"ocr"`
			FrontFraud struct {
				Authentic bool    `json:"authentic"`
				Score     float64 `json:"score"`
			} `json:"front_fraud"`
			BackFraud struct {
				Authentic bool `json:"authentic"`
			} `json:"back_fraud"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			t.Fatalf("decode report: %v", err)
		}

		if report.OCR.Fields["name"] != "JANE DOE" {
			t.Errorf("ocr name = %q, want JANE DOE", report.OCR.Fields["name"])
		}
		if !report.FrontFraud.Authentic || !report.BackFraud.Authentic {
			t.Errorf("fraud report = %+v, want both sides authentic", report)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, _ := client.Get(ts.URL + "/api/health")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after session operations")
		}
		resp.Body.Close()
	})
}

func TestE2E_CameraCaptureWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := captureConfig()
	cfg.Policy = autocapture.PolicySimple

	application := app.New(app.Config{Capture: cfg})
	defer application.Close()

	frame := testdata.CardFrame(100, 100, image.Rect(10, 10, 90, 90), 60)
	application.SetSource(capture.NewMockSource([]image.Image{frame}, true))

	mock := detector.NewMockDetector()
	mock.SetDetections(cardDetections())
	application.SetDetector(mock)

	srv := server.New(server.Config{App: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	sess := application.Sessions().Create()

	resp, err := client.Post(
		ts.URL+"/api/capture/start",
		"application/json",
		strings.NewReader(`{"session_id":"`+sess.ID+`","side":"front"}`),
	)
	if err != nil {
		t.Fatalf("start capture error = %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}
	resp.Body.Close()

	deadline := time.Now().Add(3 * time.Second)
	for {
		getResp, err := client.Get(ts.URL + "/api/sessions/" + sess.ID)
		if err != nil {
			t.Fatalf("get session error = %v", err)
		}

		var status struct {
			Sides map[string]bool `json:"sides"`
		}
		json.NewDecoder(getResp.Body).Decode(&status)
		getResp.Body.Close()

		if status.Sides["front"] {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("camera capture never completed")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestE2E_RejectedUploadKeepsSessionIncomplete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	application := app.New(app.Config{Capture: captureConfig()})
	defer application.Close()

	mock := detector.NewMockDetector()
	mock.SetDetections([]detector.Detection{{
		Class: "id_card",
		Score: 0.9,
		Box:   detector.Box{X: 2, Y: 2, Width: 33, Height: 30},
	}})
	application.SetDetector(mock)

	srv := server.New(server.Config{App: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()
	sess := application.Sessions().Create()

	resp := uploadSide(t, client, ts.URL+"/api/sessions/"+sess.ID+"/sides/front")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("upload status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}

	var upload struct {
		Accepted bool   `json:"accepted"`
		Message  string `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&upload)
	if upload.Accepted || upload.Message == "" {
		t.Errorf("upload response = %+v, want rejection with guidance", upload)
	}

	processResp, err := client.Post(ts.URL+"/api/sessions/"+sess.ID+"/process", "application/json", nil)
	if err != nil {
		t.Fatalf("process error = %v", err)
	}
	defer processResp.Body.Close()

	if processResp.StatusCode != http.StatusConflict {
		t.Errorf("process status = %d, want %d", processResp.StatusCode, http.StatusConflict)
	}
}
