package pipeline

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sgino209/tracxpoint-imgenhance/internal/filters"
	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

type stage struct {
	name string
	run  func(*raster.Image) (*raster.Image, error)
}

func toneStages(cfg Config) []stage {
	return []stage{
		{"tone", func(m *raster.Image) (*raster.Image, error) { return filters.ApplyGamma(m, cfg.Gamma) }},
		{"contrast", func(m *raster.Image) (*raster.Image, error) { return filters.EnhanceContrast(m, cfg.Contrast()) }},
	}
}

func finishStages(cfg Config) []stage {
	s := []stage{
		{"sharpen", func(m *raster.Image) (*raster.Image, error) { return filters.Convolve(m, cfg.SharpenKernel) }},
		{"saturation", func(m *raster.Image) (*raster.Image, error) { return filters.AdjustSaturation(m, cfg.Saturation) }},
	}
	if cfg.Colorize {
		s = append(s, stage{"colorize", func(m *raster.Image) (*raster.Image, error) { return filters.ShiftHue(m, cfg.Hue) }})
	}
	return s
}

// Run enhances img: tone curve, lightness contrast, spatial denoise,
// sharpening, saturation and, when enabled, colorize. img is not modified.
func Run(img *raster.Image, cfg Config) (*raster.Image, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}

	stages := toneStages(cfg)
	stages = append(stages, stage{"denoise", func(m *raster.Image) (*raster.Image, error) {
		return filters.Denoise(m, cfg.Denoise())
	}})
	stages = append(stages, finishStages(cfg)...)
	return runStages(img, stages)
}

// RunTemporal enhances frames[target] like Run, except that the denoise
// stage is temporal non-local means over the neighbouring frames. Only the
// frames inside the temporal window are processed.
func RunTemporal(frames []*raster.Image, target int, cfg Config) (*raster.Image, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: empty frame sequence", raster.ErrInvalidInput)
	}
	if target < 0 || target >= len(frames) {
		return nil, fmt.Errorf("%w: target frame %d outside [0, %d)", raster.ErrInvalidInput, target, len(frames))
	}

	half := cfg.TemporalWindow / 2
	first, last := max(target-half, 0), min(target+half, len(frames)-1)
	window := make([]*raster.Image, 0, last-first+1)
	for i := first; i <= last; i++ {
		if err := frames[i].Validate(); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out, err := runStages(frames[i], toneStages(cfg))
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		window = append(window, out)
	}

	denoise := stage{"temporal-denoise", func(*raster.Image) (*raster.Image, error) {
		return filters.DenoiseTemporal(window, target-first, cfg.Temporal())
	}}
	return runStages(window[target-first], append([]stage{denoise}, finishStages(cfg)...))
}

func runStages(img *raster.Image, stages []stage) (*raster.Image, error) {
	cur := img
	for _, s := range stages {
		start := time.Now()
		next, err := s.run(cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		log.Debug().
			Str("stage", s.name).
			Int("width", next.Width).
			Int("height", next.Height).
			Int("channels", next.Channels).
			Stringer("depth", next.Depth).
			Dur("elapsed", time.Since(start)).
			Msg("Stage complete")
		cur = next
	}
	return cur, nil
}
