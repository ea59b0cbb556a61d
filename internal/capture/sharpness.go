package capture

import "image"

// Luminance weights (ITU-R BT.601)
const (
	lumaRed   = 0.299
	lumaGreen = 0.587
	lumaBlue  = 0.114
)

// Sharpness computes a focus-quality score for the whole image.
// See RegionSharpness.
func Sharpness(img image.Image) float64 {
	return RegionSharpness(img, img.Bounds())
}

// RegionSharpness computes a variance-of-Laplacian proxy for focus quality
// over the given region of the image. Higher values mean more high-frequency
// detail, i.e. a sharper image.
//
// Algorithm:
// 1. Convert each pixel to luminance (0.299R + 0.587G + 0.114B)
// 2. For every interior pixel, compute the discrete Laplacian
//    4*L(x,y) - L(x-1,y) - L(x+1,y) - L(x,y-1) - L(x,y+1)
// 3. Accumulate the squared responses
// 4. Return the mean over all interior pixels
//
// Returns 0 when the region has no interior pixels (width or height < 3).
// The computation is pure and deterministic.
func RegionSharpness(img image.Image, region image.Rectangle) float64 {
	region = region.Intersect(img.Bounds())
	w := region.Dx()
	h := region.Dy()

	if w < 3 || h < 3 {
		return 0
	}

	// Build the luminance plane for the region
	luma := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(region.Min.X+x, region.Min.Y+y).RGBA()
			// RGBA returns 16-bit components; scale to 8-bit range
			luma[y*w+x] = lumaRed*float64(r>>8) + lumaGreen*float64(g>>8) + lumaBlue*float64(b>>8)
		}
	}

	var sum float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := luma[y*w+x]
			lap := 4*center - luma[y*w+x-1] - luma[y*w+x+1] - luma[(y-1)*w+x] - luma[(y+1)*w+x]
			sum += lap * lap
		}
	}

	interior := float64((w - 2) * (h - 2))
	return sum / interior
}
