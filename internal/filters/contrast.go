package filters

import (
	"fmt"

	"github.com/sgino209/tracxpoint-imgenhance/internal/colorspace"
	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

type ContrastOptions struct {
	Adaptive bool
	Global   bool
	CLAHE    CLAHEOptions
}

func DefaultContrastOptions() ContrastOptions {
	return ContrastOptions{
		Adaptive: true,
		Global:   true,
		CLAHE:    DefaultCLAHEOptions(),
	}
}

// EnhanceContrast equalizes the lightness plane only, adaptive pass first,
// and merges it back with the untouched chroma.
func EnhanceContrast(img *raster.Image, opts ContrastOptions) (*raster.Image, error) {
	if opts.Adaptive {
		if err := opts.CLAHE.Validate(); err != nil {
			return nil, err
		}
	}
	p, err := colorspace.ToPerceptual(img)
	if err != nil {
		return nil, err
	}

	if opts.Adaptive {
		l, err := CLAHE(p.Lightness, opts.CLAHE)
		if err != nil {
			return nil, fmt.Errorf("clahe: %w", err)
		}
		p.Lightness = l
	}
	if opts.Global {
		p.Lightness = Equalize(p.Lightness)
	}

	return colorspace.FromPerceptual(p)
}
