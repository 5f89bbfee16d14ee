// Package imgenhance enhances sensor images (tone curve, lightness contrast,
// denoising, sharpening and saturation) and rates them with a no-reference
// quality score.
package imgenhance

import (
	"fmt"
	"image"

	"github.com/sgino209/tracxpoint-imgenhance/internal/filters"
	"github.com/sgino209/tracxpoint-imgenhance/internal/pipeline"
	"github.com/sgino209/tracxpoint-imgenhance/internal/quality"
	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
	"github.com/sgino209/tracxpoint-imgenhance/internal/report"
)

type Config = pipeline.Config

type DenoiseMode = filters.DenoiseMode

const (
	DenoiseMedian    DenoiseMode = filters.DenoiseMedian
	DenoiseBilateral DenoiseMode = filters.DenoiseBilateral
	DenoiseNone      DenoiseMode = filters.DenoiseNone
)

var (
	ErrInvalidInput      = raster.ErrInvalidInput
	ErrInvalidParameter  = raster.ErrInvalidParameter
	ErrUnsupportedFormat = raster.ErrUnsupportedFormat
)

type Options struct {
	Config      Config
	Score       bool
	ComparePath string
}

type Result = pipeline.Result

func DefaultConfig() Config {
	return pipeline.DefaultConfig()
}

func DefaultOptions() Options {
	return Options{
		Config: DefaultConfig(),
	}
}

// Process enhances the image file at inputPath and writes it to outputPath.
func Process(inputPath, outputPath string, opts Options) (Result, error) {
	pipelineOpts := pipeline.Options{
		Config:        opts.Config,
		Score:         opts.Score,
		ComparePath:   opts.ComparePath,
		CompareLayout: report.LayoutSideBySide,
	}
	return pipeline.Process(inputPath, outputPath, pipelineOpts)
}

// Enhance runs the enhancement pipeline on a decoded image. 16-bit images
// come back as 16-bit, everything else as 8-bit.
func Enhance(img image.Image, cfg Config) (image.Image, error) {
	m, err := raster.FromImage(img)
	if err != nil {
		return nil, err
	}
	out, err := pipeline.Run(m, cfg)
	if err != nil {
		return nil, err
	}
	return raster.ToImage(out)
}

// EnhanceSequence enhances frames[target], denoising it against its
// neighbours in the sequence.
func EnhanceSequence(frames []image.Image, target int, cfg Config) (image.Image, error) {
	ms := make([]*raster.Image, len(frames))
	for i, f := range frames {
		m, err := raster.FromImage(f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		ms[i] = m
	}
	out, err := pipeline.RunTemporal(ms, target, cfg)
	if err != nil {
		return nil, err
	}
	return raster.ToImage(out)
}

// Score rates img; lower is better. Scores are only comparable with each
// other, there is no fixed scale.
func Score(img image.Image) (float64, error) {
	m, err := raster.FromImage(img)
	if err != nil {
		return 0, err
	}
	s, err := quality.NewScorer()
	if err != nil {
		return 0, err
	}
	return s.Score(m)
}

func DenoiseModes() []DenoiseMode {
	return filters.ValidDenoiseModes()
}
