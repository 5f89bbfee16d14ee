package filters

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

type DenoiseMode string

const (
	DenoiseMedian    DenoiseMode = "median"
	DenoiseBilateral DenoiseMode = "bilateral"
	DenoiseNone      DenoiseMode = "none"
)

func ParseDenoiseMode(s string) (DenoiseMode, error) {
	switch DenoiseMode(strings.ToLower(s)) {
	case DenoiseMedian:
		return DenoiseMedian, nil
	case DenoiseBilateral:
		return DenoiseBilateral, nil
	case DenoiseNone:
		return DenoiseNone, nil
	}
	return "", fmt.Errorf("%w: unknown denoise mode %q (valid: median, bilateral, none)", raster.ErrInvalidParameter, s)
}

func ValidDenoiseModes() []DenoiseMode {
	return []DenoiseMode{DenoiseMedian, DenoiseBilateral, DenoiseNone}
}

type DenoiseOptions struct {
	Mode              DenoiseMode
	MedianKernel      int
	BilateralDiameter int
	SigmaColor        float64 // on the 8-bit scale regardless of depth
	SigmaSpace        float64
}

func DefaultDenoiseOptions() DenoiseOptions {
	return DenoiseOptions{
		Mode:              DenoiseBilateral,
		MedianKernel:      5,
		BilateralDiameter: 9,
		SigmaColor:        75,
		SigmaSpace:        75,
	}
}

func (o DenoiseOptions) Validate() error {
	switch o.Mode {
	case DenoiseMedian:
		return checkOddKernel("median kernel", o.MedianKernel)
	case DenoiseBilateral:
		return checkBilateral(o.BilateralDiameter, o.SigmaColor, o.SigmaSpace)
	case DenoiseNone:
		return nil
	}
	return fmt.Errorf("%w: unknown denoise mode %q (valid: median, bilateral, none)", raster.ErrInvalidParameter, o.Mode)
}

func checkOddKernel(name string, k int) error {
	if k <= 0 || k%2 == 0 {
		return fmt.Errorf("%w: %s must be a positive odd number, got %d", raster.ErrInvalidParameter, name, k)
	}
	return nil
}

func checkBilateral(d int, sigmaColor, sigmaSpace float64) error {
	if d <= 0 {
		return fmt.Errorf("%w: bilateral diameter must be positive, got %d", raster.ErrInvalidParameter, d)
	}
	if !(sigmaColor > 0) || !(sigmaSpace > 0) || math.IsInf(sigmaColor, 0) || math.IsInf(sigmaSpace, 0) {
		return fmt.Errorf("%w: bilateral sigmas must be positive, got %v/%v", raster.ErrInvalidParameter, sigmaColor, sigmaSpace)
	}
	return nil
}

// Denoise runs the spatial filter selected by opts.Mode.
func Denoise(img *raster.Image, opts DenoiseOptions) (*raster.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	switch opts.Mode {
	case DenoiseMedian:
		return Median(img, opts.MedianKernel)
	case DenoiseBilateral:
		return Bilateral(img, opts.BilateralDiameter, opts.SigmaColor, opts.SigmaSpace)
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img.Clone(), nil
}

// Median replaces each color sample with the median of its ksize x ksize
// neighbourhood, edges replicated.
func Median(img *raster.Image, ksize int) (*raster.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if err := checkOddKernel("median kernel", ksize); err != nil {
		return nil, err
	}

	out := img.Clone()
	r := ksize / 2
	window := make([]float64, 0, ksize*ksize)
	for c := 0; c < img.ColorChannels(); c++ {
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				window = window[:0]
				for dy := -r; dy <= r; dy++ {
					sy := raster.Replicate(y+dy, img.Height)
					for dx := -r; dx <= r; dx++ {
						window = append(window, img.At(raster.Replicate(x+dx, img.Width), sy, c))
					}
				}
				sort.Float64s(window)
				out.Set(x, y, c, window[len(window)/2])
			}
		}
	}
	return out, nil
}

// Bilateral smooths while preserving edges: each neighbour inside a disc of
// diameter d is weighted by its spatial distance and by the L1 distance of
// its color to the center sample. Color differences are measured on the
// 8-bit scale so sigmaColor means the same thing for every depth.
func Bilateral(img *raster.Image, d int, sigmaColor, sigmaSpace float64) (*raster.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if err := checkBilateral(d, sigmaColor, sigmaSpace); err != nil {
		return nil, err
	}

	radius := d / 2
	spaceCoeff := -0.5 / (sigmaSpace * sigmaSpace)
	colorCoeff := -0.5 / (sigmaColor * sigmaColor)
	toByte := 255 / img.Max()

	type tap struct {
		dx, dy int
		w      float64
	}
	var taps []tap
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			r2 := float64(dx*dx + dy*dy)
			if math.Sqrt(r2) > float64(radius) {
				continue
			}
			taps = append(taps, tap{dx, dy, math.Exp(r2 * spaceCoeff)})
		}
	}

	cc := img.ColorChannels()
	out := img.Clone()
	sum := make([]float64, cc)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			center := img.Offset(x, y)
			for c := range sum {
				sum[c] = 0
			}
			wsum := 0.0
			for _, t := range taps {
				o := img.Offset(raster.Reflect(x+t.dx, img.Width), raster.Reflect(y+t.dy, img.Height))
				diff := 0.0
				for c := 0; c < cc; c++ {
					diff += math.Abs(img.Pix[o+c] - img.Pix[center+c])
				}
				diff *= toByte
				w := t.w * math.Exp(diff*diff*colorCoeff)
				for c := 0; c < cc; c++ {
					sum[c] += w * img.Pix[o+c]
				}
				wsum += w
			}
			for c := 0; c < cc; c++ {
				out.Pix[center+c] = img.Depth.Quantize(sum[c] / wsum)
			}
		}
	}
	return out, nil
}
