package filters

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

// Kernel is a square convolution kernel stored row-major.
type Kernel struct {
	Size    int
	Weights []float64
}

// DefaultSharpenKernel is the four-connected high-pass: 5 in the middle, -1 on
// the direct neighbours, 0 in the corners.
func DefaultSharpenKernel() Kernel {
	return Kernel{
		Size: 3,
		Weights: []float64{
			0, -1, 0,
			-1, 5, -1,
			0, -1, 0,
		},
	}
}

func (k Kernel) Validate() error {
	if err := checkOddKernel("convolution kernel size", k.Size); err != nil {
		return err
	}
	if len(k.Weights) != k.Size*k.Size {
		return fmt.Errorf("%w: %d weights for a %dx%d kernel", raster.ErrInvalidParameter, len(k.Weights), k.Size, k.Size)
	}
	for _, v := range k.Weights {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite kernel weight", raster.ErrInvalidParameter)
		}
	}
	return nil
}

// String formats the weights as a comma separated list, the form ParseKernel reads.
func (k Kernel) String() string {
	parts := make([]string, len(k.Weights))
	for i, v := range k.Weights {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// ParseKernel reads n*n comma separated weights, n odd.
func ParseKernel(s string) (Kernel, error) {
	fields := strings.Split(s, ",")
	weights := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Kernel{}, fmt.Errorf("%w: kernel weight %q", raster.ErrInvalidParameter, f)
		}
		weights = append(weights, v)
	}
	size := int(math.Round(math.Sqrt(float64(len(weights)))))
	k := Kernel{Size: size, Weights: weights}
	if err := k.Validate(); err != nil {
		return Kernel{}, err
	}
	return k, nil
}

// Sharpen applies DefaultSharpenKernel.
func Sharpen(img *raster.Image) (*raster.Image, error) {
	return Convolve(img, DefaultSharpenKernel())
}

// Convolve filters every color channel independently with k, mirroring at
// the borders and clamping to the range of the bit depth.
func Convolve(img *raster.Image, k Kernel) (*raster.Image, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if err := k.Validate(); err != nil {
		return nil, err
	}

	r := k.Size / 2
	out := img.Clone()
	for c := 0; c < img.ColorChannels(); c++ {
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				acc := 0.0
				for ky := 0; ky < k.Size; ky++ {
					sy := raster.Reflect(y+ky-r, img.Height)
					for kx := 0; kx < k.Size; kx++ {
						wt := k.Weights[ky*k.Size+kx]
						if wt == 0 {
							continue
						}
						acc += wt * img.At(raster.Reflect(x+kx-r, img.Width), sy, c)
					}
				}
				out.Set(x, y, c, img.Depth.Quantize(acc))
			}
		}
	}
	return out, nil
}
