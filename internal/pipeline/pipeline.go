// Package pipeline runs the enhancement stages in their fixed order and
// drives them over files: single images, frame sequences and batches.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/tiff"

	"github.com/sgino209/tracxpoint-imgenhance/internal/quality"
	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
	"github.com/sgino209/tracxpoint-imgenhance/internal/report"
)

type Processor struct {
	inputPath string
	original  *raster.Image
	image     *raster.Image
}

type Options struct {
	Config Config
	// Score measures input and output quality. A scoring failure is logged
	// and leaves Result.Scored false; it never fails the enhancement.
	Score bool
	// ComparePath, when set, receives a before/after sheet.
	ComparePath   string
	CompareLayout report.Layout
}

func DefaultOptions() Options {
	return Options{
		Config:        DefaultConfig(),
		CompareLayout: report.LayoutSideBySide,
	}
}

type Result struct {
	Input       string
	Output      string
	InputScore  float64
	OutputScore float64
	Scored      bool
	Elapsed     time.Duration
}

func New(inputPath string) *Processor {
	return &Processor{
		inputPath: inputPath,
	}
}

// NewFromImage wraps an already decoded image.
func NewFromImage(img *raster.Image) *Processor {
	return &Processor{original: img, image: img}
}

func (p *Processor) Load() error {
	if _, err := os.Stat(p.inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", p.inputPath)
	}

	img, err := imaging.Open(p.inputPath, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	m, err := raster.FromImage(img)
	if err != nil {
		return err
	}
	p.original = m
	p.image = m
	return nil
}

func (p *Processor) Enhance(cfg Config) error {
	if p.image == nil {
		return fmt.Errorf("no image loaded")
	}

	out, err := Run(p.image, cfg)
	if err != nil {
		return err
	}
	p.image = out
	return nil
}

// Score rates the current image; ScoreOriginal rates the image as loaded.
func (p *Processor) Score() (float64, error) {
	return scoreImage(p.image)
}

func (p *Processor) ScoreOriginal() (float64, error) {
	return scoreImage(p.original)
}

func scoreImage(img *raster.Image) (float64, error) {
	if img == nil {
		return 0, fmt.Errorf("no image loaded")
	}
	s, err := quality.NewScorer()
	if err != nil {
		return 0, err
	}
	return s.Score(img)
}

// Compare writes a sheet with the loaded image next to the current one.
// Captions carry the scores when scores is non-nil.
func (p *Processor) Compare(path string, layout report.Layout, scores *[2]float64) error {
	if p.image == nil {
		return fmt.Errorf("no image loaded")
	}
	before, err := raster.ToImage(p.original)
	if err != nil {
		return err
	}
	after, err := raster.ToImage(p.image)
	if err != nil {
		return err
	}

	captions := [2]string{"input", "output"}
	if scores != nil {
		captions = [2]string{report.Caption("input", scores[0]), report.Caption("output", scores[1])}
	}
	sheet, err := report.Compose(before, after, captions, layout)
	if err != nil {
		return err
	}
	if err := imaging.Save(sheet, path); err != nil {
		return fmt.Errorf("failed to save comparison: %w", err)
	}
	return nil
}

// Save encodes the current image by file extension. TIFF output keeps 16-bit
// samples and is deflate compressed.
func (p *Processor) Save(outputPath string) error {
	if p.image == nil {
		return fmt.Errorf("no image to save")
	}
	img, err := raster.ToImage(p.image)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".tif", ".tiff":
		f, err := os.Create(outputPath) //nolint:gosec // output path is chosen by the caller
		if err != nil {
			return fmt.Errorf("failed to save image: %w", err)
		}
		if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to save image: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to save image: %w", err)
		}
	default:
		if err := imaging.Save(img, outputPath); err != nil {
			return fmt.Errorf("failed to save image: %w", err)
		}
	}
	return nil
}

func (p *Processor) Image() *raster.Image {
	return p.image
}

func Process(inputPath, outputPath string, opts Options) (Result, error) {
	return process(inputPath, func(*Result) string { return outputPath }, opts)
}

// process loads, enhances, optionally scores and saves one file. name picks
// the output path once scores are known.
func process(inputPath string, name func(*Result) string, opts Options) (Result, error) {
	start := time.Now()
	res := Result{Input: inputPath}
	proc := New(inputPath)

	if err := proc.Load(); err != nil {
		return res, fmt.Errorf("load: %w", err)
	}

	if err := proc.Enhance(opts.Config); err != nil {
		return res, fmt.Errorf("enhance: %w", err)
	}

	if opts.Score {
		in, errIn := proc.ScoreOriginal()
		out, errOut := proc.Score()
		if err := errors.Join(errIn, errOut); err != nil {
			log.Warn().Err(err).Str("input", inputPath).Msg("Quality scoring skipped")
		} else {
			res.InputScore, res.OutputScore, res.Scored = in, out, true
		}
	}

	res.Output = name(&res)
	if err := proc.Save(res.Output); err != nil {
		return res, fmt.Errorf("save: %w", err)
	}

	if opts.ComparePath != "" {
		var scores *[2]float64
		if res.Scored {
			scores = &[2]float64{res.InputScore, res.OutputScore}
		}
		layout := opts.CompareLayout
		if layout == "" {
			layout = report.LayoutSideBySide
		}
		if err := proc.Compare(opts.ComparePath, layout, scores); err != nil {
			return res, fmt.Errorf("compare: %w", err)
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}
