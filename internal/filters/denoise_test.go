package filters

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

// noisyPatch is a uniform gray level plus fixed-seed gaussian noise.
func noisyPatch(w, h, channels int, sigma float64, seed int64) *raster.Image {
	r := rand.New(rand.NewSource(seed))
	img := raster.New(w, h, channels, raster.Depth8)
	for i := range img.Pix {
		img.Pix[i] = raster.Depth8.Quantize(128 + r.NormFloat64()*sigma)
	}
	return img
}

func colorStdDev(img *raster.Image) float64 {
	var samples []float64
	for i := 0; i < len(img.Pix); i += img.Channels {
		samples = append(samples, img.Pix[i:i+img.ColorChannels()]...)
	}
	return stat.StdDev(samples, nil)
}

func TestDenoiseDoesNotIncreaseNoise(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		opts     DenoiseOptions
	}{
		{"median 3 gray", 1, DenoiseOptions{Mode: DenoiseMedian, MedianKernel: 3}},
		{"median 5 color", 3, DenoiseOptions{Mode: DenoiseMedian, MedianKernel: 5}},
		{"bilateral gray", 1, DefaultDenoiseOptions()},
		{"bilateral color", 3, DefaultDenoiseOptions()},
		{"bilateral small", 3, DenoiseOptions{Mode: DenoiseBilateral, BilateralDiameter: 3, SigmaColor: 40, SigmaSpace: 2}},
		{"none", 3, DenoiseOptions{Mode: DenoiseNone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := noisyPatch(32, 32, tt.channels, 20, 11)
			out, err := Denoise(img, tt.opts)
			require.NoError(t, err)
			require.True(t, out.SameShape(img))
			assert.LessOrEqual(t, colorStdDev(out), colorStdDev(img))
		})
	}
}

func TestDenoiseNoneIsCopy(t *testing.T) {
	img := noisyPatch(8, 8, 3, 10, 1)
	out, err := Denoise(img, DenoiseOptions{Mode: DenoiseNone})
	require.NoError(t, err)
	assert.Equal(t, img.Pix, out.Pix)
	out.Pix[0] = -1
	assert.NotEqual(t, img.Pix[0], out.Pix[0])
}

func TestDenoiseInvalid(t *testing.T) {
	img := noisyPatch(8, 8, 1, 10, 1)

	tests := []struct {
		name string
		opts DenoiseOptions
	}{
		{"unknown mode", DenoiseOptions{Mode: "gaussian"}},
		{"even median kernel", DenoiseOptions{Mode: DenoiseMedian, MedianKernel: 4}},
		{"zero median kernel", DenoiseOptions{Mode: DenoiseMedian}},
		{"zero diameter", DenoiseOptions{Mode: DenoiseBilateral, SigmaColor: 1, SigmaSpace: 1}},
		{"zero sigma", DenoiseOptions{Mode: DenoiseBilateral, BilateralDiameter: 5, SigmaSpace: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Denoise(img, tt.opts)
			require.ErrorIs(t, err, raster.ErrInvalidParameter)
		})
	}
}

func TestParseDenoiseMode(t *testing.T) {
	for _, m := range ValidDenoiseModes() {
		got, err := ParseDenoiseMode(string(m))
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	got, err := ParseDenoiseMode("Median")
	require.NoError(t, err)
	assert.Equal(t, DenoiseMedian, got)

	_, err = ParseDenoiseMode("nlmeans")
	require.ErrorIs(t, err, raster.ErrInvalidParameter)
}

func TestMedianRemovesImpulse(t *testing.T) {
	img := raster.New(5, 5, 1, raster.Depth8)
	for i := range img.Pix {
		img.Pix[i] = 50
	}
	img.Set(2, 2, 0, 255)

	out, err := Median(img, 3)
	require.NoError(t, err)
	assert.Equal(t, 50.0, out.At(2, 2, 0))
}

func TestBilateralPreservesEdge(t *testing.T) {
	img := raster.New(10, 4, 1, raster.Depth8)
	for y := 0; y < 4; y++ {
		for x := 0; x < 10; x++ {
			if x >= 5 {
				img.Set(x, y, 0, 200)
			} else {
				img.Set(x, y, 0, 20)
			}
		}
	}
	out, err := Bilateral(img, 5, 30, 5)
	require.NoError(t, err)
	assert.Equal(t, 20.0, out.At(4, 1, 0))
	assert.Equal(t, 200.0, out.At(5, 1, 0))
}

func TestDenoiseKeepsAlpha(t *testing.T) {
	img := noisyPatch(6, 6, 4, 10, 2)
	out, err := Denoise(img, DefaultDenoiseOptions())
	require.NoError(t, err)
	for i := 3; i < len(img.Pix); i += 4 {
		assert.Equal(t, img.Pix[i], out.Pix[i])
	}
}

func smallTemporalOptions() TemporalOptions {
	return TemporalOptions{WindowSize: 3, Strength: 30, TemplateSize: 3, SearchSize: 7}
}

func TestDenoiseTemporal(t *testing.T) {
	frames := []*raster.Image{
		noisyPatch(20, 20, 3, 20, 1),
		noisyPatch(20, 20, 3, 20, 2),
		noisyPatch(20, 20, 3, 20, 3),
	}
	out, err := DenoiseTemporal(frames, 1, smallTemporalOptions())
	require.NoError(t, err)
	require.True(t, out.SameShape(frames[1]))
	assert.Less(t, colorStdDev(out), colorStdDev(frames[1]))
}

func TestDenoiseTemporalSingleFrame(t *testing.T) {
	frame := noisyPatch(16, 16, 1, 20, 4)
	out, err := DenoiseTemporal([]*raster.Image{frame}, 0, smallTemporalOptions())
	require.NoError(t, err)
	assert.Less(t, colorStdDev(out), colorStdDev(frame))
}

func TestDenoiseTemporalWindowAtSequenceEnd(t *testing.T) {
	frames := []*raster.Image{
		noisyPatch(12, 12, 1, 20, 5),
		noisyPatch(12, 12, 1, 20, 6),
	}
	out, err := DenoiseTemporal(frames, 1, TemporalOptions{WindowSize: 5, Strength: 10, TemplateSize: 3, SearchSize: 5})
	require.NoError(t, err)
	assert.True(t, out.SameShape(frames[1]))
}

func TestDenoiseTemporalErrors(t *testing.T) {
	frame := noisyPatch(8, 8, 1, 5, 1)

	_, err := DenoiseTemporal(nil, 0, DefaultTemporalOptions())
	require.ErrorIs(t, err, raster.ErrInvalidInput)

	_, err = DenoiseTemporal([]*raster.Image{frame}, 3, DefaultTemporalOptions())
	require.ErrorIs(t, err, raster.ErrInvalidInput)

	_, err = DenoiseTemporal([]*raster.Image{frame, noisyPatch(9, 8, 1, 5, 2)}, 0, DefaultTemporalOptions())
	require.ErrorIs(t, err, raster.ErrInvalidInput)

	bad := DefaultTemporalOptions()
	bad.WindowSize = 2
	_, err = DenoiseTemporal([]*raster.Image{frame}, 0, bad)
	require.ErrorIs(t, err, raster.ErrInvalidParameter)

	bad = DefaultTemporalOptions()
	bad.Strength = 0
	_, err = DenoiseTemporal([]*raster.Image{frame}, 0, bad)
	require.ErrorIs(t, err, raster.ErrInvalidParameter)
}

// bruteForceTemporal is the direct non-local means sum: every template is
// compared sample by sample.
func bruteForceTemporal(frames []*raster.Image, target int, opts TemporalOptions) *raster.Image {
	ref := frames[target]
	half := opts.WindowSize / 2
	window := frames[max(target-half, 0) : min(target+half, len(frames)-1)+1]
	w, h, cc := ref.Width, ref.Height, ref.ColorChannels()
	tr, sr := opts.TemplateSize/2, opts.SearchSize/2
	toByte := 255 / ref.Max()
	norm := toByte * toByte / float64(opts.TemplateSize*opts.TemplateSize*cc)
	sample := func(img *raster.Image, x, y, c int) float64 {
		return img.At(raster.Reflect(x, w), raster.Reflect(y, h), c)
	}

	out := ref.Clone()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sum := make([]float64, cc)
			wsum := 0.0
			for _, f := range window {
				for sy := y - sr; sy <= y+sr; sy++ {
					for sx := x - sr; sx <= x+sr; sx++ {
						ssd := 0.0
						for ty := -tr; ty <= tr; ty++ {
							for tx := -tr; tx <= tr; tx++ {
								for c := 0; c < cc; c++ {
									d := sample(f, sx+tx, sy+ty, c) - sample(ref, x+tx, y+ty, c)
									ssd += d * d
								}
							}
						}
						wt := math.Exp(-ssd * norm / (opts.Strength * opts.Strength))
						for c := range sum {
							sum[c] += wt * sample(f, sx, sy, c)
						}
						wsum += wt
					}
				}
			}
			for c := range sum {
				out.Set(x, y, c, ref.Depth.Quantize(sum[c]/wsum))
			}
		}
	}
	return out
}

func TestDenoiseTemporalMatchesDirectSum(t *testing.T) {
	tests := []struct {
		name     string
		w, h     int
		channels int
		frames   int
		target   int
		opts     TemporalOptions
	}{
		{"three color frames", 9, 7, 3, 3, 1, TemporalOptions{WindowSize: 3, Strength: 30, TemplateSize: 3, SearchSize: 5}},
		{"alpha at sequence start", 6, 8, 4, 2, 0, TemporalOptions{WindowSize: 3, Strength: 15, TemplateSize: 5, SearchSize: 3}},
		{"search larger than frame", 4, 3, 3, 1, 0, TemporalOptions{WindowSize: 1, Strength: 20, TemplateSize: 3, SearchSize: 9}},
		{"single column", 1, 5, 1, 2, 1, TemporalOptions{WindowSize: 3, Strength: 25, TemplateSize: 3, SearchSize: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := make([]*raster.Image, tt.frames)
			for i := range frames {
				frames[i] = randomImage(tt.w, tt.h, tt.channels, raster.DepthFloat, int64(40+i))
			}
			got, err := DenoiseTemporal(frames, tt.target, tt.opts)
			require.NoError(t, err)
			want := bruteForceTemporal(frames, tt.target, tt.opts)
			require.Len(t, got.Pix, len(want.Pix))
			for i := range want.Pix {
				require.InDelta(t, want.Pix[i], got.Pix[i], 1e-9, "sample %d", i)
			}
		})
	}
}

func BenchmarkBilateral(b *testing.B) {
	img := noisyPatch(128, 128, 3, 20, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Bilateral(img, 9, 75, 75)
	}
}

func BenchmarkDenoiseTemporal(b *testing.B) {
	frames := []*raster.Image{
		noisyPatch(64, 64, 3, 20, 1),
		noisyPatch(64, 64, 3, 20, 2),
		noisyPatch(64, 64, 3, 20, 3),
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = DenoiseTemporal(frames, 1, DefaultTemporalOptions())
	}
}
