// Package testdata provides synthetic frame builders for tests. Frames are
// generated rather than embedded so tests need no binary assets and no
// OpenCV runtime.
package testdata

import (
	"image"
	"image/color"
)

// FlatFrame returns a uniform gray frame.
func FlatFrame(width, height int, gray uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{gray, gray, gray, 255})
		}
	}
	return img
}

// CheckerFrame returns a frame filled with a one-pixel checkerboard whose
// two gray levels are separated by amplitude. Sharpness grows with
// amplitude, so frames of different amplitudes rank deterministically.
func CheckerFrame(width, height int, amplitude uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	low := uint8(128 - int(amplitude)/2)
	high := uint8(128 + int(amplitude)/2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := low
			if (x+y)%2 == 0 {
				v = high
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// CardFrame returns a flat gray frame with a checkerboard "document" patch
// covering card. The patch is the only sharp region of the frame.
func CardFrame(width, height int, card image.Rectangle, amplitude uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	low := uint8(128 - int(amplitude)/2)
	high := uint8(128 + int(amplitude)/2)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(90)
			if (image.Point{x, y}).In(card) {
				v = low
				if (x+y)%2 == 0 {
					v = high
				}
			}
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}
