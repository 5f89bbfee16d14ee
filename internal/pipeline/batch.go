package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

type BatchOptions struct {
	OutputDir string
	// Workers bounds the number of images processed at once; 0 uses GOMAXPROCS.
	Workers int
	// ScoreInName appends the output quality score to every file name,
	// e.g. frame_iqa12.34.png. It implies Options.Score.
	ScoreInName bool
	// Ext is the output extension including the dot; empty keeps the input's.
	Ext string
}

type BatchResult struct {
	Result
	Err error
}

// OutputName is the path an input is written to. The score of res is part of
// the name only when ScoreInName is set and res was scored.
func OutputName(input string, bopts BatchOptions, res *Result) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if bopts.Ext != "" {
		ext = bopts.Ext
	}
	if bopts.ScoreInName && res != nil && res.Scored {
		stem = fmt.Sprintf("%s_iqa%.2f", stem, res.OutputScore)
	}
	return filepath.Join(bopts.OutputDir, stem+ext)
}

// ProcessBatch enhances every input concurrently. A failing image is
// recorded in its BatchResult and does not stop the others; the returned
// error is only set when the batch itself could not run or ctx was cancelled.
func ProcessBatch(ctx context.Context, inputs []string, opts Options, bopts BatchOptions) ([]BatchResult, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	seen := make(map[string]string, len(inputs))
	for _, in := range inputs {
		out := OutputName(in, bopts, nil)
		if prev, ok := seen[out]; ok {
			return nil, fmt.Errorf("%w: %s and %s would both be written to %s", raster.ErrInvalidInput, prev, in, out)
		}
		seen[out] = in
	}
	if bopts.OutputDir != "" {
		if err := os.MkdirAll(bopts.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	if bopts.ScoreInName {
		opts.Score = true
	}
	// one sheet per image would overwrite a shared path
	opts.ComparePath = ""

	workers := bopts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	log.Info().
		Int("images", len(inputs)).
		Int("workers", workers).
		Str("output_dir", bopts.OutputDir).
		Msg("Starting batch")

	results := make([]BatchResult, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := process(in, func(r *Result) string { return OutputName(in, bopts, r) }, opts)
			results[i] = BatchResult{Result: res, Err: err}
			if err != nil {
				log.Warn().Err(err).Str("input", in).Msg("Image failed")
				return nil
			}
			log.Info().
				Str("input", in).
				Str("output", res.Output).
				Dur("elapsed", res.Elapsed).
				Msg("Image enhanced")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch: %w", err)
	}
	return results, nil
}
