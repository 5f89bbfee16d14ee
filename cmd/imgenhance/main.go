package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sgino209/tracxpoint-imgenhance/internal/pipeline"
	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
	"github.com/sgino209/tracxpoint-imgenhance/internal/report"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "imgenhance",
	Short: "Enhance sensor images and rate their quality",
	Long: `imgenhance runs captured frames through a fixed enhancement pipeline:
gamma tone curve, adaptive and global lightness equalization, denoising,
sharpening and saturation. It also computes a no-reference quality score
(lower is better) to compare inputs with outputs.

Every pipeline parameter can be set with a flag or in a YAML file passed
with --config; flags win over the file. Run "imgenhance params" for the list.`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRunE: setupLogging,
	SilenceUsage:      true,
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance",
	Short: "Enhance a single image",
	Long:  `Enhance a single image and optionally score it and write a comparison sheet.`,
	RunE:  runEnhance,
}

var sequenceCmd = &cobra.Command{
	Use:   "sequence FRAME...",
	Short: "Enhance one frame of a sequence with temporal denoising",
	Long: `Enhance the frame at --target, denoising it with non-local means over the
neighbouring frames given in order on the command line.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSequence,
}

var scoreCmd = &cobra.Command{
	Use:   "score IMAGE...",
	Short: "Print the quality score of images (lower is better)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScore,
}

var batchCmd = &cobra.Command{
	Use:   "batch IMAGE...",
	Short: "Enhance many images concurrently",
	Long:  `Enhance every image given on the command line into an output directory.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBatch,
}

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List pipeline parameters and their defaults",
	RunE:  runParams,
}

var (
	configPath  string
	verbose     bool
	inputPath   string
	outputPath  string
	withScore   bool
	comparePath string
	layout      string
	target      int
	workers     int
	scoreInName bool
	outputExt   string
	asYAML      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML file with pipeline parameters")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every pipeline stage")

	enhanceCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input image file (required)")
	enhanceCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output image file (required)")
	enhanceCmd.Flags().BoolVarP(&withScore, "score", "s", false, "Print input and output quality scores")
	enhanceCmd.Flags().StringVar(&comparePath, "compare", "", "Write a before/after comparison sheet to this file")
	enhanceCmd.Flags().StringVar(&layout, "layout", string(report.LayoutSideBySide), "Comparison layout: side_by_side, stacked")
	enhanceCmd.MarkFlagRequired("input")
	enhanceCmd.MarkFlagRequired("output")
	pipeline.BindFlags(enhanceCmd.Flags())

	sequenceCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output image file (required)")
	sequenceCmd.Flags().IntVarP(&target, "target", "t", 0, "Index of the frame to enhance")
	sequenceCmd.MarkFlagRequired("output")
	pipeline.BindFlags(sequenceCmd.Flags())

	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output directory (required)")
	batchCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Images processed at once (0: one per CPU)")
	batchCmd.Flags().BoolVar(&scoreInName, "score-name", false, "Append the output quality score to file names")
	batchCmd.Flags().StringVar(&outputExt, "ext", "", "Output extension, e.g. .png (default: keep the input's)")
	batchCmd.MarkFlagRequired("output")
	pipeline.BindFlags(batchCmd.Flags())

	paramsCmd.Flags().BoolVar(&asYAML, "yaml", false, "Print the effective configuration as a YAML config file")

	rootCmd.AddCommand(enhanceCmd)
	rootCmd.AddCommand(sequenceCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(paramsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	return nil
}

// loadConfig layers defaults, the --config file and the command's flags.
func loadConfig(cmd *cobra.Command) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if configPath != "" {
		if err := pipeline.LoadConfig(configPath, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := pipeline.ApplyFlags(cmd.Flags(), &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func parseLayout(s string) (report.Layout, error) {
	for _, l := range report.ValidLayouts() {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layout: %s (valid: side_by_side, stacked)", s)
}

func runEnhance(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	l, err := parseLayout(layout)
	if err != nil {
		return err
	}

	start := time.Now()
	fmt.Printf("Processing: %s\n", inputPath)

	opts := pipeline.Options{
		Config:        cfg,
		Score:         withScore || comparePath != "",
		ComparePath:   comparePath,
		CompareLayout: l,
	}

	res, err := pipeline.Process(inputPath, outputPath, opts)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	if withScore && res.Scored {
		fmt.Printf("Quality (lower=better): input %.2f, output %.2f\n", res.InputScore, res.OutputScore)
	}
	fmt.Printf("Done: %s (%dms)\n", outputPath, time.Since(start).Milliseconds())
	return nil
}

func runSequence(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	frames := make([]*raster.Image, len(args))
	for i, path := range args {
		proc := pipeline.New(path)
		if err := proc.Load(); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		frames[i] = proc.Image()
	}

	fmt.Printf("Processing: frame %d of %d\n", target, len(frames))
	out, err := pipeline.RunTemporal(frames, target, cfg)
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	if err := pipeline.NewFromImage(out).Save(outputPath); err != nil {
		return err
	}

	fmt.Printf("Done: %s (%dms)\n", outputPath, time.Since(start).Milliseconds())
	return nil
}

func runScore(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		proc := pipeline.New(path)
		if err := proc.Load(); err != nil {
			fmt.Printf("%s: FAILED: %v\n", path, err)
			failed++
			continue
		}
		score, err := proc.Score()
		if err != nil {
			fmt.Printf("%s: FAILED: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("%s: %.2f\n", path, score)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images could not be scored", failed, len(args))
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	opts := pipeline.Options{Config: cfg}
	bopts := pipeline.BatchOptions{
		OutputDir:   outputPath,
		Workers:     workers,
		ScoreInName: scoreInName,
		Ext:         outputExt,
	}

	results, err := pipeline.ProcessBatch(ctx, args, opts, bopts)
	if err != nil && results == nil {
		return err
	}

	processed := 0
	for i, r := range results {
		if r.Err != nil {
			fmt.Printf("[%d] %s FAILED: %v\n", i+1, args[i], r.Err)
			continue
		}
		if r.Output == "" {
			continue
		}
		fmt.Printf("[%d] %s -> %s (%dms)\n", i+1, r.Input, r.Output, r.Elapsed.Milliseconds())
		processed++
	}

	fmt.Printf("\nBatch complete: %d of %d images processed (%dms)\n", processed, len(args), time.Since(start).Milliseconds())
	return err
}

func runParams(cmd *cobra.Command, args []string) error {
	cfg := pipeline.DefaultConfig()
	if configPath != "" {
		if err := pipeline.LoadConfig(configPath, &cfg); err != nil {
			return err
		}
	}

	if asYAML {
		data, err := pipeline.EncodeConfig(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tVALUE\tDEFAULT\tDESCRIPTION")
	for _, p := range pipeline.Params() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Kind, p.Get(&cfg), p.Default(), p.Usage)
	}
	return w.Flush()
}
