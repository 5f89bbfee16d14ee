package filters

import (
	"fmt"
	"math"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

// GammaTable precomputes out = maxVal*(k/maxVal)^(1/gamma) for every k in
// [0, maxVal]. Entries are rounded to the nearest code value.
func GammaTable(maxVal int, gamma float64) ([]float64, error) {
	invGamma, err := inverseGamma(gamma)
	if err != nil {
		return nil, err
	}
	if maxVal <= 0 {
		return nil, fmt.Errorf("%w: gamma table size %d", raster.ErrInvalidParameter, maxVal)
	}

	m := float64(maxVal)
	table := make([]float64, maxVal+1)
	for k := range table {
		v := math.Pow(float64(k)/m, invGamma) * m
		table[k] = math.Round(math.Max(0, math.Min(m, v)))
	}
	return table, nil
}

func inverseGamma(gamma float64) (float64, error) {
	if math.IsNaN(gamma) || gamma <= 0 {
		return 0, fmt.Errorf("%w: gamma must be > 0, got %v", raster.ErrInvalidParameter, gamma)
	}
	invGamma := 1 / gamma
	if math.IsInf(invGamma, 0) || math.IsNaN(invGamma) {
		return 0, fmt.Errorf("%w: gamma %v has no usable inverse", raster.ErrInvalidParameter, gamma)
	}
	return invGamma, nil
}

// ApplyGamma remaps every color sample with out = max*(v/max)^(1/gamma).
// 8-bit images go through a lookup table built once for the call; 16-bit and
// float images are normalized to [0, 1], exponentiated and rescaled by max.
// Alpha is left alone.
func ApplyGamma(img *raster.Image, gamma float64) (*raster.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	invGamma, err := inverseGamma(gamma)
	if err != nil {
		return nil, err
	}

	out := img.Clone()
	cc := img.ColorChannels()

	switch img.Depth {
	case raster.Depth8:
		lut, err := GammaTable(255, gamma)
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(out.Pix); i += img.Channels {
			for c := 0; c < cc; c++ {
				out.Pix[i+c] = lut[int(raster.Depth8.Quantize(img.Pix[i+c]))]
			}
		}
	case raster.Depth16, raster.DepthFloat:
		gain := img.Max()
		for i := 0; i < len(out.Pix); i += img.Channels {
			for c := 0; c < cc; c++ {
				norm := math.Max(0, math.Min(1, img.Pix[i+c]/gain))
				out.Pix[i+c] = img.Depth.Quantize(math.Pow(norm, invGamma) * gain)
			}
		}
	default:
		return nil, fmt.Errorf("%w: gamma correction for %s", raster.ErrUnsupportedFormat, img.Depth)
	}
	return out, nil
}
