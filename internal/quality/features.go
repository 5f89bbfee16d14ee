package quality

import (
	"math"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

const (
	// NumFeatures is the length of a feature vector: 18 per scale, two scales.
	NumFeatures = 36

	windowRadius = 3
	windowSigma  = 7.0 / 6.0
	stabilizer   = 1.0
)

// pairOffsets pairs every MSCN coefficient with its horizontal, vertical,
// main-diagonal and anti-diagonal neighbour.
var pairOffsets = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}}

func gaussianWindow() []float64 {
	w := make([]float64, 2*windowRadius+1)
	sum := 0.0
	for i := range w {
		d := float64(i - windowRadius)
		w[i] = math.Exp(-d * d / (2 * windowSigma * windowSigma))
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// blur convolves src with the separable window, mirroring at the borders.
func blur(src []float64, width, height int, window []float64) []float64 {
	r := len(window) / 2
	tmp := make([]float64, len(src))
	for y := 0; y < height; y++ {
		row := src[y*width : (y+1)*width]
		for x := 0; x < width; x++ {
			acc := 0.0
			for k, wt := range window {
				acc += wt * row[raster.Reflect(x+k-r, width)]
			}
			tmp[y*width+x] = acc
		}
	}
	dst := make([]float64, len(src))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			acc := 0.0
			for k, wt := range window {
				acc += wt * tmp[raster.Reflect(y+k-r, height)*width+x]
			}
			dst[y*width+x] = acc
		}
	}
	return dst
}

// mscn returns the mean-subtracted contrast-normalized coefficients of a
// luminance plane on the 8-bit scale.
func mscn(lum []float64, width, height int) []float64 {
	window := gaussianWindow()
	sq := make([]float64, len(lum))
	for i, v := range lum {
		sq[i] = v * v
	}
	mu := blur(lum, width, height, window)
	muSq := blur(sq, width, height, window)

	out := make([]float64, len(lum))
	for i, v := range lum {
		sigma := math.Sqrt(math.Abs(muSq[i] - mu[i]*mu[i]))
		out[i] = (v - mu[i]) / (sigma + stabilizer)
	}
	return out
}

// pairwise multiplies every coefficient with its neighbour at (dx, dy),
// dropping the pairs that fall outside the plane.
func pairwise(coeff []float64, width, height, dx, dy int) []float64 {
	x0, x1 := 0, width
	if dx > 0 {
		x1 -= dx
	} else {
		x0 -= dx
	}
	y1 := height - dy
	out := make([]float64, 0, max(x1-x0, 0)*max(y1, 0))
	for y := 0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			out = append(out, coeff[y*width+x]*coeff[(y+dy)*width+x+dx])
		}
	}
	return out
}

// scaleFeatures computes the 18 statistics of one scale: the GGD fit of the
// MSCN coefficients and an AGGD fit for each of the four neighbour products.
func scaleFeatures(lum []float64, width, height int) []float64 {
	coeff := mscn(lum, width, height)
	alpha, variance := fitGGD(coeff)
	feats := make([]float64, 0, NumFeatures/2)
	feats = append(feats, alpha, variance)
	for _, off := range pairOffsets {
		feats = append(feats, fitAGGD(pairwise(coeff, width, height, off[0], off[1])).features()...)
	}
	return feats
}
