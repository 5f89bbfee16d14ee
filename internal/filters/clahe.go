package filters

import (
	"fmt"
	"math"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

type CLAHEOptions struct {
	TileCols  int
	TileRows  int
	ClipLimit float64 // multiple of the mean bin height; 0 disables clipping
}

func DefaultCLAHEOptions() CLAHEOptions {
	return CLAHEOptions{TileCols: 8, TileRows: 8, ClipLimit: 2.0}
}

func (o CLAHEOptions) Validate() error {
	if o.TileCols <= 0 || o.TileRows <= 0 {
		return fmt.Errorf("%w: tile grid %dx%d", raster.ErrInvalidParameter, o.TileCols, o.TileRows)
	}
	if math.IsNaN(o.ClipLimit) || math.IsInf(o.ClipLimit, 0) || o.ClipLimit < 0 {
		return fmt.Errorf("%w: clip limit %v", raster.ErrInvalidParameter, o.ClipLimit)
	}
	return nil
}

// CLAHE equalizes each tile of p with a clipped histogram and blends the
// per-tile mappings bilinearly between tile centers. When the plane is
// smaller than the grid, the grid shrinks to one tile per pixel.
func CLAHE(p *raster.Plane, opts CLAHEOptions) (*raster.Plane, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	w, h := p.Width, p.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: zero dimensions %dx%d", raster.ErrInvalidInput, w, h)
	}

	tilesX, tilesY := minInt(opts.TileCols, w), minInt(opts.TileRows, h)
	levels := p.Depth.Levels()

	bins := make([]int, len(p.Pix))
	for i, v := range p.Pix {
		bins[i] = p.Bin(v)
	}

	luts := make([][]uint16, tilesX*tilesY)
	hist := make([]int, levels)
	for ty := 0; ty < tilesY; ty++ {
		y0, y1 := ty*h/tilesY, (ty+1)*h/tilesY
		for tx := 0; tx < tilesX; tx++ {
			x0, x1 := tx*w/tilesX, (tx+1)*w/tilesX

			for i := range hist {
				hist[i] = 0
			}
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[bins[y*w+x]]++
				}
			}
			area := (x1 - x0) * (y1 - y0)
			if opts.ClipLimit > 0 {
				clipHistogram(hist, maxInt(int(opts.ClipLimit*float64(area)/float64(levels)), 1))
			}

			lut := make([]uint16, levels)
			scale := float64(levels-1) / float64(area)
			sum := 0
			for i := range hist {
				sum += hist[i]
				lut[i] = uint16(minInt(int(math.Round(float64(sum)*scale)), levels-1))
			}
			luts[ty*tilesX+tx] = lut
		}
	}

	tileW := float64(w) / float64(tilesX)
	tileH := float64(h) / float64(tilesY)
	out := raster.NewPlane(w, h, p.Depth)
	for y := 0; y < h; y++ {
		tyf := (float64(y)+0.5)/tileH - 0.5
		ty1 := int(math.Floor(tyf))
		ya := tyf - float64(ty1)
		ty2 := ty1 + 1
		if ty1 < 0 {
			ty1 = 0
		}
		if ty2 >= tilesY {
			ty2 = tilesY - 1
		}
		for x := 0; x < w; x++ {
			txf := (float64(x)+0.5)/tileW - 0.5
			tx1 := int(math.Floor(txf))
			xa := txf - float64(tx1)
			tx2 := tx1 + 1
			if tx1 < 0 {
				tx1 = 0
			}
			if tx2 >= tilesX {
				tx2 = tilesX - 1
			}

			b := bins[y*w+x]
			top := float64(luts[ty1*tilesX+tx1][b])*(1-xa) + float64(luts[ty1*tilesX+tx2][b])*xa
			bottom := float64(luts[ty2*tilesX+tx1][b])*(1-xa) + float64(luts[ty2*tilesX+tx2][b])*xa
			out.Pix[y*w+x] = p.FromBin(math.Round(top*(1-ya) + bottom*ya))
		}
	}
	return out, nil
}

// clipHistogram caps every bin at limit and spreads the excess evenly, the
// remainder one count at a time across the range.
func clipHistogram(hist []int, limit int) {
	clipped := 0
	for i, v := range hist {
		if v > limit {
			clipped += v - limit
			hist[i] = limit
		}
	}

	levels := len(hist)
	batch := clipped / levels
	residual := clipped - batch*levels
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := maxInt(levels/residual, 1)
		for i := 0; i < levels && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}
}
