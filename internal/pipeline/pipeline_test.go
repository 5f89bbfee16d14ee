package pipeline

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
	"github.com/sgino209/tracxpoint-imgenhance/internal/report"
)

// createTestImage is a color gradient with fixed-seed noise.
func createTestImage(width, height int) *image.NRGBA {
	r := rand.New(rand.NewSource(int64(width*1000 + height)))
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			n := r.Intn(21) - 10
			img.Set(x, y, color.NRGBA{
				R: uint8(clampInt((x*255)/max(width, 1) + n)),  //nolint:gosec // clamped to a byte
				G: uint8(clampInt((y*255)/max(height, 1) + n)), //nolint:gosec // clamped to a byte
				B: uint8(clampInt(128 + n)),                    //nolint:gosec // clamped to a byte
				A: 255,
			})
		}
	}
	return img
}

func clampInt(v int) int {
	return min(max(v, 0), 255)
}

func saveTestImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	f, err := os.Create(path) //nolint:gosec // test file path is controlled
	if err != nil {
		t.Fatalf("failed to create test image: %v", err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
}

func TestNew(t *testing.T) {
	proc := New("/path/to/image.png")
	if proc == nil {
		t.Fatal("New() returned nil")
	}
	if proc.inputPath != "/path/to/image.png" {
		t.Errorf("New() inputPath = %q, want %q", proc.inputPath, "/path/to/image.png")
	}
}

func TestProcessor_Load(t *testing.T) {
	tmpDir := t.TempDir()
	testImagePath := filepath.Join(tmpDir, "test.png")
	saveTestImage(t, createTestImage(100, 100), testImagePath)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"valid image", testImagePath, false},
		{"non-existent file", "/nonexistent/image.png", true},
		{"invalid path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := New(tt.path)
			err := proc.Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && proc.image == nil {
				t.Error("Load() did not set image")
			}
		})
	}
}

func TestProcessor_WithoutLoad(t *testing.T) {
	proc := New("/path/to/image.png")
	if proc.Image() != nil {
		t.Error("Image() should return nil before Load()")
	}
	if err := proc.Enhance(DefaultConfig()); err == nil {
		t.Error("Enhance() should fail without Load()")
	}
	if _, err := proc.Score(); err == nil {
		t.Error("Score() should fail without Load()")
	}
	if err := proc.Save(filepath.Join(t.TempDir(), "out.png")); err == nil {
		t.Error("Save() should fail without Load()")
	}
	if err := proc.Compare(filepath.Join(t.TempDir(), "sheet.png"), report.LayoutStacked, nil); err == nil {
		t.Error("Compare() should fail without Load()")
	}
}

func TestProcessor_EnhanceKeepsOriginal(t *testing.T) {
	tmpDir := t.TempDir()
	testImagePath := filepath.Join(tmpDir, "test.png")
	saveTestImage(t, createTestImage(40, 30), testImagePath)

	proc := New(testImagePath)
	require.NoError(t, proc.Load())
	before := append([]float64(nil), proc.Image().Pix...)

	require.NoError(t, proc.Enhance(DefaultConfig()))
	assert.Equal(t, before, proc.original.Pix)
	assert.Equal(t, 40, proc.Image().Width)
	assert.Equal(t, 30, proc.Image().Height)
}

func TestProcessor_SaveFormats(t *testing.T) {
	tmpDir := t.TempDir()

	src := image.NewNRGBA64(image.Rect(0, 0, 24, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 24; x++ {
			v := uint16(x*2500 + y*300) //nolint:gosec // below 65535
			src.SetNRGBA64(x, y, color.NRGBA64{R: v, G: 65535 - v, B: 30000, A: 65535})
		}
	}
	in := filepath.Join(tmpDir, "deep.png")
	saveTestImage(t, src, in)

	tests := []struct {
		name      string
		out       string
		wantDepth raster.Depth
	}{
		{"tiff keeps 16 bit", "out.tif", raster.Depth16},
		{"png keeps 16 bit", "out.png", raster.Depth16},
		{"jpeg is 8 bit", "out.jpg", raster.Depth8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := New(in)
			require.NoError(t, proc.Load())
			require.Equal(t, raster.Depth16, proc.Image().Depth)

			cfg := DefaultConfig()
			cfg.Gamma = 1.8
			require.NoError(t, proc.Enhance(cfg))

			out := filepath.Join(tmpDir, tt.out)
			require.NoError(t, proc.Save(out))

			back := New(out)
			require.NoError(t, back.Load())
			assert.Equal(t, tt.wantDepth, back.Image().Depth)
			assert.Equal(t, 24, back.Image().Width)
			assert.Equal(t, 16, back.Image().Height)
			assert.Equal(t, 3, back.Image().Channels)
		})
	}
}

func TestProcess(t *testing.T) {
	tmpDir := t.TempDir()
	testImagePath := filepath.Join(tmpDir, "test.png")
	outputPath := filepath.Join(tmpDir, "output.png")
	comparePath := filepath.Join(tmpDir, "compare.png")
	saveTestImage(t, createTestImage(100, 100), testImagePath)

	opts := DefaultOptions()
	opts.Score = true
	opts.ComparePath = comparePath

	res, err := Process(testImagePath, outputPath, opts)
	require.NoError(t, err)
	assert.Equal(t, outputPath, res.Output)
	assert.True(t, res.Scored)
	assert.False(t, math.IsNaN(res.InputScore))
	assert.False(t, math.IsNaN(res.OutputScore))

	if _, err := os.Stat(outputPath); os.IsNotExist(err) {
		t.Error("Process() did not create output file")
	}
	sheet, err := imaging.Open(comparePath)
	require.NoError(t, err)
	w, h := report.Specs[report.LayoutSideBySide].Size(report.LayoutSideBySide)
	assert.Equal(t, image.Rect(0, 0, w, h), sheet.Bounds())
}

func TestProcessTooSmallToScore(t *testing.T) {
	tmpDir := t.TempDir()
	testImagePath := filepath.Join(tmpDir, "tiny.png")
	outputPath := filepath.Join(tmpDir, "tiny_out.png")
	saveTestImage(t, createTestImage(4, 4), testImagePath)

	opts := DefaultOptions()
	opts.Score = true
	res, err := Process(testImagePath, outputPath, opts)
	require.NoError(t, err)
	assert.False(t, res.Scored)
	_, err = os.Stat(outputPath)
	assert.NoError(t, err)
}

func TestProcessWithInvalidInput(t *testing.T) {
	_, err := Process("/nonexistent/image.png", filepath.Join(t.TempDir(), "output.png"), DefaultOptions())
	if err == nil {
		t.Error("Process() should fail with invalid input")
	}
}

func TestProcessWithInvalidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	testImagePath := filepath.Join(tmpDir, "test.png")
	saveTestImage(t, createTestImage(10, 10), testImagePath)

	opts := DefaultOptions()
	opts.Config.Gamma = 0
	_, err := Process(testImagePath, filepath.Join(tmpDir, "out.png"), opts)
	require.ErrorIs(t, err, raster.ErrInvalidParameter)
}
