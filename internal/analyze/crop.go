// Package analyze crops captured documents and forwards them to the remote
// OCR and fraud-analysis services.
package analyze

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ayusman/docuscan/internal/detector"
)

// Crop extracts the detected document region from a captured frame. The box
// is clipped to the frame bounds before cropping.
func Crop(frame image.Image, box detector.Box) (image.Image, error) {
	if frame == nil {
		return nil, fmt.Errorf("crop: nil frame")
	}

	rect := box.Rect().Intersect(frame.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("crop: box %+v is outside the frame", box)
	}

	return imaging.Crop(frame, rect), nil
}
