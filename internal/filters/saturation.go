package filters

import (
	"fmt"
	"math"

	"github.com/sgino209/tracxpoint-imgenhance/internal/colorspace"
	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

// AdjustSaturation scales HSV saturation by factor, clamped to [0, 1].
// A factor of 1 reproduces the input exactly; grayscale input is copied.
func AdjustSaturation(img *raster.Image, factor float64) (*raster.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor < 0 {
		return nil, fmt.Errorf("%w: saturation factor must be >= 0, got %v", raster.ErrInvalidParameter, factor)
	}
	if factor == 1 || img.Format() == raster.Grayscale {
		return img.Clone(), nil
	}

	hsv := colorspace.ToHSV(img)
	for i, s := range hsv.S {
		hsv.S[i] = math.Min(1, s*factor)
	}
	return colorspace.FromHSV(hsv, img), nil
}

// ShiftHue colorizes img: every pixel's hue is replaced by hueDegrees while
// saturation and value are kept. The original hue is discarded entirely, so
// this is not a rotation. Alpha passes through; grayscale input has no hue
// to replace and is copied.
func ShiftHue(img *raster.Image, hueDegrees float64) (*raster.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(hueDegrees) || math.IsInf(hueDegrees, 0) {
		return nil, fmt.Errorf("%w: hue must be finite, got %v", raster.ErrInvalidParameter, hueDegrees)
	}
	if img.Format() == raster.Grayscale {
		return img.Clone(), nil
	}

	hue := NormalizeHue(hueDegrees)
	hsv := colorspace.ToHSV(img)
	for i := range hsv.H {
		hsv.H[i] = hue
	}
	return colorspace.FromHSV(hsv, img), nil
}

// NormalizeHue wraps degrees into [0, 360).
func NormalizeHue(degrees float64) float64 {
	h := math.Mod(degrees, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}
