package pipeline

import (
	"fmt"
	"math"

	"github.com/sgino209/tracxpoint-imgenhance/internal/filters"
	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

// Config is the full parameter set of one enhancement run. It is a value
// type; stages receive copies and never write to it.
type Config struct {
	Gamma float64

	AdaptiveEqualize bool
	GlobalEqualize   bool
	TileCols         int
	TileRows         int
	ClipLimit        float64

	DenoiseMode       filters.DenoiseMode
	MedianKernel      int
	BilateralDiameter int
	SigmaColor        float64
	SigmaSpace        float64

	TemporalWindow   int
	TemporalStrength float64
	TemplateSize     int
	SearchSize       int

	SharpenKernel filters.Kernel

	Saturation float64
	Colorize   bool
	Hue        float64
}

// DefaultGamma brightens almost every sample to white or black. It is kept
// as shipped by the capture tool this pipeline reproduces; pass a gamma
// around 1-2.5 for a conventional correction.
const DefaultGamma = 0.001

func DefaultConfig() Config {
	clahe := filters.DefaultCLAHEOptions()
	denoise := filters.DefaultDenoiseOptions()
	temporal := filters.DefaultTemporalOptions()
	return Config{
		Gamma: DefaultGamma,

		AdaptiveEqualize: true,
		GlobalEqualize:   true,
		TileCols:         clahe.TileCols,
		TileRows:         clahe.TileRows,
		ClipLimit:        clahe.ClipLimit,

		DenoiseMode:       denoise.Mode,
		MedianKernel:      denoise.MedianKernel,
		BilateralDiameter: denoise.BilateralDiameter,
		SigmaColor:        denoise.SigmaColor,
		SigmaSpace:        denoise.SigmaSpace,

		TemporalWindow:   temporal.WindowSize,
		TemporalStrength: temporal.Strength,
		TemplateSize:     temporal.TemplateSize,
		SearchSize:       temporal.SearchSize,

		SharpenKernel: filters.DefaultSharpenKernel(),

		Saturation: 3.0,
		Hue:        0,
	}
}

func (c Config) Contrast() filters.ContrastOptions {
	return filters.ContrastOptions{
		Adaptive: c.AdaptiveEqualize,
		Global:   c.GlobalEqualize,
		CLAHE: filters.CLAHEOptions{
			TileCols:  c.TileCols,
			TileRows:  c.TileRows,
			ClipLimit: c.ClipLimit,
		},
	}
}

func (c Config) Denoise() filters.DenoiseOptions {
	return filters.DenoiseOptions{
		Mode:              c.DenoiseMode,
		MedianKernel:      c.MedianKernel,
		BilateralDiameter: c.BilateralDiameter,
		SigmaColor:        c.SigmaColor,
		SigmaSpace:        c.SigmaSpace,
	}
}

func (c Config) Temporal() filters.TemporalOptions {
	return filters.TemporalOptions{
		WindowSize:   c.TemporalWindow,
		Strength:     c.TemporalStrength,
		TemplateSize: c.TemplateSize,
		SearchSize:   c.SearchSize,
	}
}

// Validate checks every parameter a run may use, so that a bad value fails
// before any stage has started.
func (c Config) Validate() error {
	if math.IsNaN(c.Gamma) || c.Gamma <= 0 || math.IsInf(1/c.Gamma, 0) {
		return fmt.Errorf("%w: gamma must be > 0, got %v", raster.ErrInvalidParameter, c.Gamma)
	}
	if c.AdaptiveEqualize {
		if err := c.Contrast().CLAHE.Validate(); err != nil {
			return err
		}
	}
	if err := c.Denoise().Validate(); err != nil {
		return err
	}
	if err := c.Temporal().Validate(); err != nil {
		return err
	}
	if err := c.SharpenKernel.Validate(); err != nil {
		return err
	}
	if math.IsNaN(c.Saturation) || math.IsInf(c.Saturation, 0) || c.Saturation < 0 {
		return fmt.Errorf("%w: saturation factor must be >= 0, got %v", raster.ErrInvalidParameter, c.Saturation)
	}
	if math.IsNaN(c.Hue) || math.IsInf(c.Hue, 0) {
		return fmt.Errorf("%w: hue must be finite, got %v", raster.ErrInvalidParameter, c.Hue)
	}
	return nil
}
