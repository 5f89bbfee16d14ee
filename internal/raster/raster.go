// Package raster holds the dense sample grid every enhancement stage works on.
//
// Samples are stored as float64 regardless of bit depth. Integer depths keep
// whole numbers in [0, Max] between stages; DepthFloat keeps values in [0, 1].
package raster

import (
	"fmt"
	"math"
)

type Depth int

const (
	Depth8     Depth = 8
	Depth16    Depth = 16
	DepthFloat Depth = -32
)

func (d Depth) Valid() bool {
	switch d {
	case Depth8, Depth16, DepthFloat:
		return true
	}
	return false
}

// Max is the largest representable sample value.
func (d Depth) Max() float64 {
	switch d {
	case Depth8:
		return 255
	case Depth16:
		return 65535
	}
	return 1
}

func (d Depth) Integer() bool {
	return d == Depth8 || d == Depth16
}

// Levels is the number of histogram bins used for this depth.
func (d Depth) Levels() int {
	if d == Depth16 {
		return 65536
	}
	return 256
}

func (d Depth) String() string {
	switch d {
	case Depth8:
		return "uint8"
	case Depth16:
		return "uint16"
	case DepthFloat:
		return "float"
	}
	return fmt.Sprintf("depth(%d)", int(d))
}

// Quantize clamps v to the valid range and rounds it for integer depths.
func (d Depth) Quantize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	m := d.Max()
	if v < 0 {
		v = 0
	} else if v > m {
		v = m
	}
	if d.Integer() {
		return math.Round(v)
	}
	return v
}

type PixelFormat int

const (
	Grayscale PixelFormat = iota
	Color
)

func (f PixelFormat) String() string {
	if f == Grayscale {
		return "grayscale"
	}
	return "color"
}

// Image is an interleaved grid of Width*Height*Channels samples.
// Channels is 1 (gray), 3 (RGB) or 4 (RGB + alpha).
type Image struct {
	Width    int
	Height   int
	Channels int
	Depth    Depth
	Pix      []float64
}

func New(width, height, channels int, depth Depth) *Image {
	return &Image{
		Width:    width,
		Height:   height,
		Channels: channels,
		Depth:    depth,
		Pix:      make([]float64, width*height*channels),
	}
}

// Validate reports whether the image is something the stages can consume.
func (m *Image) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: zero dimensions %dx%d", ErrInvalidInput, m.Width, m.Height)
	}
	switch m.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("%w: %d channels", ErrInvalidInput, m.Channels)
	}
	if !m.Depth.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, m.Depth)
	}
	if len(m.Pix) != m.Width*m.Height*m.Channels {
		return fmt.Errorf("%w: %d samples for %dx%dx%d", ErrInvalidInput, len(m.Pix), m.Width, m.Height, m.Channels)
	}
	return nil
}

func (m *Image) Format() PixelFormat {
	if m.Channels == 1 {
		return Grayscale
	}
	return Color
}

func (m *Image) HasAlpha() bool {
	return m.Channels == 4
}

// ColorChannels is the number of leading channels that carry color, alpha excluded.
func (m *Image) ColorChannels() int {
	if m.Channels == 4 {
		return 3
	}
	return m.Channels
}

func (m *Image) Max() float64 {
	return m.Depth.Max()
}

func (m *Image) Offset(x, y int) int {
	return (y*m.Width + x) * m.Channels
}

func (m *Image) At(x, y, c int) float64 {
	return m.Pix[m.Offset(x, y)+c]
}

func (m *Image) Set(x, y, c int, v float64) {
	m.Pix[m.Offset(x, y)+c] = v
}

func (m *Image) Clone() *Image {
	out := *m
	out.Pix = make([]float64, len(m.Pix))
	copy(out.Pix, m.Pix)
	return &out
}

// NewLike allocates a zeroed image with the same shape and depth.
func (m *Image) NewLike() *Image {
	return New(m.Width, m.Height, m.Channels, m.Depth)
}

func (m *Image) SameShape(o *Image) bool {
	return m.Width == o.Width && m.Height == o.Height && m.Channels == o.Channels && m.Depth == o.Depth
}

// CopyAlpha copies the alpha channel of src into m when both carry one.
func (m *Image) CopyAlpha(src *Image) {
	if !m.HasAlpha() || !src.HasAlpha() {
		return
	}
	for i := 3; i < len(m.Pix); i += 4 {
		m.Pix[i] = src.Pix[i]
	}
}

// Channel extracts channel c as a plane.
func (m *Image) Channel(c int) *Plane {
	p := NewPlane(m.Width, m.Height, m.Depth)
	for i := range p.Pix {
		p.Pix[i] = m.Pix[i*m.Channels+c]
	}
	return p
}

// SetChannel writes p into channel c.
func (m *Image) SetChannel(c int, p *Plane) {
	for i, v := range p.Pix {
		m.Pix[i*m.Channels+c] = v
	}
}
