// Package colorspace splits images into a lightness plane and chroma so that
// contrast operations can touch lightness without shifting color.
//
// Color images go through CIE L*a*b* (D65). The lightness plane is expressed
// on the image's own sample scale (L*/100 * Max) so that histogram code can
// treat it like any other channel. Chroma stays in float64 and is never
// quantized; integer images are rounded to the nearest sample value only
// when FromPerceptual writes the merged result. An 8-bit image therefore
// round-trips within one code value, usually exactly.
package colorspace

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

type Perceptual struct {
	Format    raster.PixelFormat
	Lightness *raster.Plane

	channels int
	depth    raster.Depth
	chromaA  []float64
	chromaB  []float64
	alpha    []float64
}

// ToPerceptual splits img. For grayscale input the lightness plane is the
// image itself and there is no chroma.
func ToPerceptual(img *raster.Image) (*Perceptual, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}

	p := &Perceptual{
		Format:   img.Format(),
		channels: img.Channels,
		depth:    img.Depth,
	}
	if p.Format == raster.Grayscale {
		p.Lightness = img.Channel(0)
		return p, nil
	}

	n := img.Width * img.Height
	max := img.Max()
	p.Lightness = raster.NewPlane(img.Width, img.Height, img.Depth)
	p.chromaA = make([]float64, n)
	p.chromaB = make([]float64, n)
	if img.HasAlpha() {
		p.alpha = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		o := i * img.Channels
		c := colorful.Color{R: img.Pix[o] / max, G: img.Pix[o+1] / max, B: img.Pix[o+2] / max}
		l, a, b := c.Lab()
		p.Lightness.Pix[i] = l * max
		p.chromaA[i] = a
		p.chromaB[i] = b
		if p.alpha != nil {
			p.alpha[i] = img.Pix[o+3]
		}
	}
	return p, nil
}

// FromPerceptual merges the (possibly replaced) lightness plane with the
// original chroma.
func FromPerceptual(p *Perceptual) (*raster.Image, error) {
	if p == nil || p.Lightness == nil {
		return nil, fmt.Errorf("%w: missing lightness plane", raster.ErrInvalidInput)
	}
	l := p.Lightness
	n := l.Width * l.Height
	if len(l.Pix) != n || (p.chromaA != nil && len(p.chromaA) != n) {
		return nil, fmt.Errorf("%w: lightness plane %dx%d does not match chroma", raster.ErrInvalidInput, l.Width, l.Height)
	}

	out := raster.New(l.Width, l.Height, p.channels, p.depth)
	if p.Format == raster.Grayscale {
		for i, v := range l.Pix {
			out.Pix[i] = p.depth.Quantize(v)
		}
		return out, nil
	}

	max := out.Max()
	for i := 0; i < n; i++ {
		c := colorful.Lab(l.Pix[i]/max, p.chromaA[i], p.chromaB[i]).Clamped()
		o := i * out.Channels
		out.Pix[o] = p.depth.Quantize(c.R * max)
		out.Pix[o+1] = p.depth.Quantize(c.G * max)
		out.Pix[o+2] = p.depth.Quantize(c.B * max)
		if p.alpha != nil {
			out.Pix[o+3] = p.alpha[i]
		}
	}
	return out, nil
}
