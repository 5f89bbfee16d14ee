package colorspace

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

// HSV holds whole-image hue (degrees, [0, 360)), saturation and value ([0, 1]) planes.
type HSV struct {
	Width  int
	Height int
	H      []float64
	S      []float64
	V      []float64
}

// ToHSV converts the color channels of img plane by plane. Grayscale images
// produce zero saturation and hue.
func ToHSV(img *raster.Image) *HSV {
	n := img.Width * img.Height
	hsv := &HSV{
		Width:  img.Width,
		Height: img.Height,
		H:      make([]float64, n),
		S:      make([]float64, n),
		V:      make([]float64, n),
	}
	max := img.Max()
	for i := 0; i < n; i++ {
		o := i * img.Channels
		if img.Channels == 1 {
			hsv.V[i] = img.Pix[o] / max
			continue
		}
		c := colorful.Color{R: img.Pix[o] / max, G: img.Pix[o+1] / max, B: img.Pix[o+2] / max}
		hsv.H[i], hsv.S[i], hsv.V[i] = c.Hsv()
	}
	return hsv
}

// FromHSV writes hsv back into a new image shaped like like, carrying its alpha.
func FromHSV(hsv *HSV, like *raster.Image) *raster.Image {
	out := like.NewLike()
	max := out.Max()
	for i := range hsv.V {
		o := i * out.Channels
		if out.Channels == 1 {
			out.Pix[o] = out.Depth.Quantize(hsv.V[i] * max)
			continue
		}
		c := colorful.Hsv(hsv.H[i], hsv.S[i], hsv.V[i])
		out.Pix[o] = out.Depth.Quantize(c.R * max)
		out.Pix[o+1] = out.Depth.Quantize(c.G * max)
		out.Pix[o+2] = out.Depth.Quantize(c.B * max)
	}
	out.CopyAlpha(like)
	return out
}
