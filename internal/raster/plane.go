package raster

// Plane is a single-channel grid sharing the depth conventions of Image.
type Plane struct {
	Width  int
	Height int
	Depth  Depth
	Pix    []float64
}

func NewPlane(width, height int, depth Depth) *Plane {
	return &Plane{
		Width:  width,
		Height: height,
		Depth:  depth,
		Pix:    make([]float64, width*height),
	}
}

func (p *Plane) At(x, y int) float64 {
	return p.Pix[y*p.Width+x]
}

func (p *Plane) Set(x, y int, v float64) {
	p.Pix[y*p.Width+x] = v
}

func (p *Plane) Max() float64 {
	return p.Depth.Max()
}

func (p *Plane) Clone() *Plane {
	out := *p
	out.Pix = make([]float64, len(p.Pix))
	copy(out.Pix, p.Pix)
	return &out
}

// Bin maps a sample to its histogram bin in [0, Levels).
func (p *Plane) Bin(v float64) int {
	levels := p.Depth.Levels()
	b := int(v*float64(levels-1)/p.Max() + 0.5)
	if b < 0 {
		return 0
	}
	if b >= levels {
		return levels - 1
	}
	return b
}

// FromBin maps a (possibly fractional) bin position back to a sample value.
func (p *Plane) FromBin(b float64) float64 {
	return p.Depth.Quantize(b * p.Max() / float64(p.Depth.Levels()-1))
}

// Reflect maps i into [0, n) mirroring around the edge samples (gfedcb|abcdefgh|gfedcba).
func Reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

// Replicate maps i into [0, n) repeating the edge samples (aaaa|abcdefgh|hhhh).
func Replicate(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
