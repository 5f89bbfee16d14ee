package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// FromImage converts a decoded image into an Image. 16-bit sources stay 16-bit,
// everything else becomes 8-bit. A fourth channel is added only when some pixel
// is not fully opaque.
func FromImage(img image.Image) (*Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: zero dimensions %dx%d", ErrInvalidInput, w, h)
	}

	switch src := img.(type) {
	case *image.Gray:
		out := New(w, h, 1, Depth8)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[y*w+x] = float64(src.GrayAt(x+bounds.Min.X, y+bounds.Min.Y).Y)
			}
		}
		return out, nil
	case *image.Gray16:
		out := New(w, h, 1, Depth16)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				out.Pix[y*w+x] = float64(src.Gray16At(x+bounds.Min.X, y+bounds.Min.Y).Y)
			}
		}
		return out, nil
	case *image.NRGBA64, *image.RGBA64:
		work := image.NewNRGBA64(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				work.Set(x, y, src.At(x+bounds.Min.X, y+bounds.Min.Y))
			}
		}
		return fromNRGBA64(work), nil
	}

	return fromNRGBA(imaging.Clone(img)), nil
}

func fromNRGBA(src *image.NRGBA) *Image {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	channels := 3
	for i := 3; i < len(src.Pix); i += 4 {
		if src.Pix[i] != 0xff {
			channels = 4
			break
		}
	}
	out := New(w, h, channels, Depth8)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.NRGBAAt(x, y)
			o := out.Offset(x, y)
			out.Pix[o] = float64(c.R)
			out.Pix[o+1] = float64(c.G)
			out.Pix[o+2] = float64(c.B)
			if channels == 4 {
				out.Pix[o+3] = float64(c.A)
			}
		}
	}
	return out
}

func fromNRGBA64(src *image.NRGBA64) *Image {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	channels := 3
	for y := 0; y < h && channels == 3; y++ {
		for x := 0; x < w; x++ {
			if src.NRGBA64At(x, y).A != 0xffff {
				channels = 4
				break
			}
		}
	}
	out := New(w, h, channels, Depth16)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.NRGBA64At(x, y)
			o := out.Offset(x, y)
			out.Pix[o] = float64(c.R)
			out.Pix[o+1] = float64(c.G)
			out.Pix[o+2] = float64(c.B)
			if channels == 4 {
				out.Pix[o+3] = float64(c.A)
			}
		}
	}
	return out
}

// ToImage converts back to the standard library image types. 8-bit images become
// *image.Gray or *image.NRGBA, 16-bit and float images *image.Gray16 or *image.NRGBA64.
func ToImage(m *Image) (image.Image, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, m.Width, m.Height)

	if m.Depth == Depth8 {
		if m.Channels == 1 {
			out := image.NewGray(rect)
			for i, v := range m.Pix {
				out.Pix[i] = uint8(Depth8.Quantize(v))
			}
			return out, nil
		}
		out := image.NewNRGBA(rect)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				o := m.Offset(x, y)
				a := uint8(255)
				if m.HasAlpha() {
					a = uint8(Depth8.Quantize(m.Pix[o+3]))
				}
				out.SetNRGBA(x, y, color.NRGBA{
					uint8(Depth8.Quantize(m.Pix[o])),
					uint8(Depth8.Quantize(m.Pix[o+1])),
					uint8(Depth8.Quantize(m.Pix[o+2])),
					a,
				})
			}
		}
		return out, nil
	}

	to16 := func(v float64) uint16 {
		if m.Depth == DepthFloat {
			v = math.Round(DepthFloat.Quantize(v) * 65535)
		}
		return uint16(Depth16.Quantize(v))
	}
	if m.Channels == 1 {
		out := image.NewGray16(rect)
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				out.SetGray16(x, y, color.Gray16{to16(m.Pix[y*m.Width+x])})
			}
		}
		return out, nil
	}
	out := image.NewNRGBA64(rect)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			o := m.Offset(x, y)
			a := uint16(0xffff)
			if m.HasAlpha() {
				a = to16(m.Pix[o+3])
			}
			out.SetNRGBA64(x, y, color.NRGBA64{to16(m.Pix[o]), to16(m.Pix[o+1]), to16(m.Pix[o+2]), a})
		}
	}
	return out, nil
}

// Luminance returns the BT.601 luma of the color channels on the image's own scale.
func (m *Image) Luminance() *Plane {
	if m.Channels == 1 {
		return m.Channel(0)
	}
	p := NewPlane(m.Width, m.Height, m.Depth)
	for i := range p.Pix {
		o := i * m.Channels
		p.Pix[i] = 0.299*m.Pix[o] + 0.587*m.Pix[o+1] + 0.114*m.Pix[o+2]
	}
	return p
}
