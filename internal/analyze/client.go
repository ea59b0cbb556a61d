package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// OCRResult holds the text extraction response for a document side.
type OCRResult struct {
	Fields map[string]string `json:"fields"`
	Text   string            `json:"text"`
}

// FraudResult holds the authenticity analysis response for a document side.
type FraudResult struct {
	Authentic bool     `json:"authentic"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons,omitempty"`
}

// Report is the combined outcome for a completed two-sided capture.
type Report struct {
	OCR        *OCRResult   `json:"ocr"`
	FrontFraud *FraudResult `json:"front_fraud"`
	BackFraud  *FraudResult `json:"back_fraud"`
}

// Client calls the remote OCR and fraud-analysis endpoints. Each endpoint is
// called at most once per document side; there is no retry policy.
type Client struct {
	ocrURL     string
	fraudURL   string
	httpClient *http.Client
}

// NewClient creates a Client for the given endpoint URLs.
func NewClient(ocrURL, fraudURL string) *Client {
	return &Client{
		ocrURL:   ocrURL,
		fraudURL: fraudURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ExtractText submits a cropped document image to the OCR endpoint.
func (c *Client) ExtractText(ctx context.Context, img image.Image) (*OCRResult, error) {
	var result OCRResult
	if err := c.submit(ctx, c.ocrURL, img, &result); err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	return &result, nil
}

// CheckFraud submits a cropped document image to the fraud-analysis endpoint.
func (c *Client) CheckFraud(ctx context.Context, img image.Image) (*FraudResult, error) {
	var result FraudResult
	if err := c.submit(ctx, c.fraudURL, img, &result); err != nil {
		return nil, fmt.Errorf("fraud: %w", err)
	}
	return &result, nil
}

// Process runs the full analysis for a completed capture: OCR over the front
// side and fraud analysis over each side, all in parallel. It succeeds only
// if every call succeeds; otherwise the returned error concatenates every
// individual failure reason.
func (c *Client) Process(ctx context.Context, front, back image.Image) (*Report, error) {
	if front == nil || back == nil {
		return nil, fmt.Errorf("process: both document sides are required")
	}

	report := &Report{}
	errs := make([]string, 3)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		ocr, err := c.ExtractText(ctx, front)
		if err != nil {
			errs[0] = err.Error()
			return
		}
		report.OCR = ocr
	}()

	go func() {
		defer wg.Done()
		fraud, err := c.CheckFraud(ctx, front)
		if err != nil {
			errs[1] = err.Error()
			return
		}
		report.FrontFraud = fraud
	}()

	go func() {
		defer wg.Done()
		fraud, err := c.CheckFraud(ctx, back)
		if err != nil {
			errs[2] = err.Error()
			return
		}
		report.BackFraud = fraud
	}()

	wg.Wait()

	var failures []string
	for _, e := range errs {
		if e != "" {
			failures = append(failures, e)
		}
	}
	if len(failures) > 0 {
		return nil, fmt.Errorf("process: %s", strings.Join(failures, "; "))
	}

	return report, nil
}

// submit posts the image as a multipart form and decodes the JSON response.
func (c *Client) submit(ctx context.Context, url string, img image.Image, out interface{}) error {
	if img == nil {
		return fmt.Errorf("nil image")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", "document.jpg")
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if err := imaging.Encode(part, img, imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
