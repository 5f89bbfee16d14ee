package filters

import (
	"fmt"
	"math"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

type TemporalOptions struct {
	WindowSize   int     // frames considered around the target, odd
	Strength     float64 // h; larger values average more aggressively
	TemplateSize int     // patch compared between candidates, odd
	SearchSize   int     // neighbourhood searched in every frame, odd
}

func DefaultTemporalOptions() TemporalOptions {
	return TemporalOptions{
		WindowSize:   3,
		Strength:     10,
		TemplateSize: 7,
		SearchSize:   21,
	}
}

func (o TemporalOptions) Validate() error {
	if err := checkOddKernel("temporal window", o.WindowSize); err != nil {
		return err
	}
	if err := checkOddKernel("template window", o.TemplateSize); err != nil {
		return err
	}
	if err := checkOddKernel("search window", o.SearchSize); err != nil {
		return err
	}
	if !(o.Strength > 0) || math.IsInf(o.Strength, 0) {
		return fmt.Errorf("%w: temporal strength must be positive, got %v", raster.ErrInvalidParameter, o.Strength)
	}
	return nil
}

// DenoiseTemporal denoises frames[target] with non-local means over the
// symmetric window of neighbouring frames. The window is cut at the ends of
// the sequence, so a single frame degrades to spatial non-local means.
// Patch distances are measured on the 8-bit scale and averaged over the
// patch and the color channels; a candidate weighs exp(-d/h^2).
//
// For every frame and search offset the per-pixel squared differences are
// computed once and summed over templates with an integral image, so the
// cost does not grow with the template size.
func DenoiseTemporal(frames []*raster.Image, target int, opts TemporalOptions) (*raster.Image, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: empty frame sequence", raster.ErrInvalidInput)
	}
	if target < 0 || target >= len(frames) {
		return nil, fmt.Errorf("%w: target frame %d outside [0, %d)", raster.ErrInvalidInput, target, len(frames))
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ref := frames[target]
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	half := opts.WindowSize / 2
	first, last := maxInt(target-half, 0), minInt(target+half, len(frames)-1)
	window := frames[first : last+1]
	for i, f := range window {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("frame %d: %w", first+i, err)
		}
		if !f.SameShape(ref) {
			return nil, fmt.Errorf("%w: frame %d is %dx%dx%d %s, target is %dx%dx%d %s", raster.ErrInvalidInput,
				first+i, f.Width, f.Height, f.Channels, f.Depth, ref.Width, ref.Height, ref.Channels, ref.Depth)
		}
	}

	w, h := ref.Width, ref.Height
	cc := ref.ColorChannels()
	t, tr, sr := opts.TemplateSize, opts.TemplateSize/2, opts.SearchSize/2
	toByte := 255 / ref.Max()
	norm := toByte * toByte / float64(t*t*cc)
	h2 := opts.Strength * opts.Strength

	// Padded coordinates u, v map to pixel u-tr, v-tr.
	pw, ph := w+2*tr, h+2*tr
	refX, refY := reflectTable(-tr, pw, w), reflectTable(-tr, ph, h)
	diff := make([]float64, pw*ph)
	integral := make([]float64, (pw+1)*(ph+1))

	sum := make([]float64, w*h*cc)
	wsum := make([]float64, w*h)

	for _, f := range window {
		for dy := -sr; dy <= sr; dy++ {
			candY := reflectTable(dy-tr, ph, h)
			for dx := -sr; dx <= sr; dx++ {
				candX := reflectTable(dx-tr, pw, w)

				for v := 0; v < ph; v++ {
					for u := 0; u < pw; u++ {
						ro := ref.Offset(refX[u], refY[v])
						fo := f.Offset(candX[u], candY[v])
						d := 0.0
						for c := 0; c < cc; c++ {
							e := f.Pix[fo+c] - ref.Pix[ro+c]
							d += e * e
						}
						diff[v*pw+u] = d
					}
				}
				integrate(integral, diff, pw, ph)

				stride := pw + 1
				for y := 0; y < h; y++ {
					top, bottom := y*stride, (y+t)*stride
					for x := 0; x < w; x++ {
						ssd := integral[bottom+x+t] - integral[top+x+t] - integral[bottom+x] + integral[top+x]
						wt := math.Exp(-math.Max(ssd, 0) * norm / h2)

						fo := f.Offset(candX[x+tr], candY[y+tr])
						i := y*w + x
						for c := 0; c < cc; c++ {
							sum[i*cc+c] += wt * f.Pix[fo+c]
						}
						wsum[i] += wt
					}
				}
			}
		}
	}

	out := ref.Clone()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			o := out.Offset(x, y)
			for c := 0; c < cc; c++ {
				out.Pix[o+c] = ref.Depth.Quantize(sum[i*cc+c] / wsum[i])
			}
		}
	}
	return out, nil
}

// reflectTable maps the n positions starting at from to reflected indices in [0, size).
func reflectTable(from, n, size int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = raster.Reflect(from+i, size)
	}
	return idx
}

// integrate fills dst, a (w+1)x(h+1) summed-area table of src with a zero
// first row and column.
func integrate(dst, src []float64, w, h int) {
	stride := w + 1
	for u := 0; u <= w; u++ {
		dst[u] = 0
	}
	for v := 0; v < h; v++ {
		row := 0.0
		dst[(v+1)*stride] = 0
		for u := 0; u < w; u++ {
			row += src[v*w+u]
			dst[(v+1)*stride+u+1] = dst[v*stride+u+1] + row
		}
	}
}
