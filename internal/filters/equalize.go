package filters

import (
	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

func histogram(p *raster.Plane) []int {
	hist := make([]int, p.Depth.Levels())
	for _, v := range p.Pix {
		hist[p.Bin(v)]++
	}
	return hist
}

// Equalize stretches the cumulative histogram of p over the full range.
// The darkest occupied level maps to 0; a plane with a single level is
// returned unchanged.
func Equalize(p *raster.Plane) *raster.Plane {
	hist := histogram(p)
	levels := len(hist)
	total := len(p.Pix)

	first := 0
	for first < levels && hist[first] == 0 {
		first++
	}
	out := raster.NewPlane(p.Width, p.Height, p.Depth)
	if first == levels || hist[first] == total {
		for i, v := range p.Pix {
			out.Pix[i] = p.FromBin(float64(p.Bin(v)))
		}
		return out
	}

	scale := float64(levels-1) / float64(total-hist[first])
	lut := make([]float64, levels)
	sum := 0
	for i := first + 1; i < levels; i++ {
		sum += hist[i]
		lut[i] = float64(int(float64(sum)*scale + 0.5))
	}

	for i, v := range p.Pix {
		out.Pix[i] = p.FromBin(lut[p.Bin(v)])
	}
	return out
}
