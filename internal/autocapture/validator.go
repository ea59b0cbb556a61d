package autocapture

import (
	"fmt"
	"image"

	"github.com/ayusman/docuscan/internal/detector"
)

// ValidationResult is the one-shot verdict for an uploaded still image.
type ValidationResult struct {
	OK     bool
	Reason Status
	Box    detector.Box
}

// Message returns the user-facing rejection reason for the result.
func (r ValidationResult) Message() string {
	if r.OK {
		return "Document accepted"
	}
	switch r.Reason {
	case StatusSearching:
		return "No document was found in the image"
	case StatusTooFar:
		return "The document is too small, upload a closer photo"
	case StatusUncentered:
		return "The document is not centered, upload a straighter photo"
	default:
		return "The image could not be validated"
	}
}

// ValidateImage runs the detector once over an uploaded still image and
// applies the size and centering gates. The sharpness gate and the
// stability protocol do not apply: there is no frame stream to stabilize
// over. No state machine, no buffering, no retries.
func ValidateImage(det detector.Detector, img image.Image, cfg Config) (ValidationResult, error) {
	if img == nil {
		return ValidationResult{}, fmt.Errorf("validate image: nil image")
	}

	detections, err := det.Detect(img)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("validate image: %w", err)
	}

	// A single still has no stability window, so the sharpness gate is
	// forced off regardless of the configured policy.
	still := cfg
	still.Policy = PolicySimple

	bounds := img.Bounds()
	v := EvaluateFrame(nil, detections, bounds.Dx(), bounds.Dy(), still)
	if !v.Accepted {
		return ValidationResult{Reason: v.Reason, Box: v.Box}, nil
	}

	return ValidationResult{OK: true, Box: v.Box}, nil
}
