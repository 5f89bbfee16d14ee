package filters

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

func randomImage(w, h, channels int, depth raster.Depth, seed int64) *raster.Image {
	r := rand.New(rand.NewSource(seed))
	img := raster.New(w, h, channels, depth)
	for i := range img.Pix {
		if depth.Integer() {
			img.Pix[i] = float64(r.Intn(int(depth.Max()) + 1))
		} else {
			img.Pix[i] = r.Float64()
		}
	}
	return img
}

func TestGammaTable(t *testing.T) {
	identity, err := GammaTable(255, 1)
	require.NoError(t, err)
	require.Len(t, identity, 256)
	for k, v := range identity {
		assert.Equal(t, float64(k), v)
	}

	bright, err := GammaTable(255, 2.2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, bright[0])
	assert.Equal(t, 255.0, bright[255])
	assert.Greater(t, bright[64], 64.0)
	for k := 1; k < len(bright); k++ {
		assert.GreaterOrEqual(t, bright[k], bright[k-1])
	}
}

func TestApplyGammaRoundTrip8Bit(t *testing.T) {
	img := randomImage(32, 32, 3, raster.Depth8, 7)

	for _, g := range []float64{1.5, 2.2} {
		once, err := ApplyGamma(img, g)
		require.NoError(t, err)
		back, err := ApplyGamma(once, 1/g)
		require.NoError(t, err)
		for i := range img.Pix {
			require.InDelta(t, img.Pix[i], back.Pix[i], 2, "gamma %v sample %d", g, i)
		}
	}
}

func TestApplyGammaInvalid(t *testing.T) {
	img := randomImage(4, 4, 1, raster.Depth8, 1)

	tests := []struct {
		name  string
		gamma float64
	}{
		{"zero", 0},
		{"negative", -2},
		{"nan", math.NaN()},
		{"denormal with infinite inverse", math.SmallestNonzeroFloat64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyGamma(img, tt.gamma)
			require.ErrorIs(t, err, raster.ErrInvalidParameter)
		})
	}
}

func TestApplyGammaUnsupportedDepth(t *testing.T) {
	img := raster.New(2, 2, 1, raster.Depth(24))
	_, err := ApplyGamma(img, 2)
	require.ErrorIs(t, err, raster.ErrUnsupportedFormat)
}

func TestApplyGammaHighDepth(t *testing.T) {
	img16 := raster.New(1, 1, 1, raster.Depth16)
	img16.Pix[0] = 65535 * 0.25
	out, err := ApplyGamma(img16, 2)
	require.NoError(t, err)
	assert.Equal(t, raster.Depth16, out.Depth)
	assert.Equal(t, math.Round(65535*0.5), out.Pix[0])

	imgF := raster.New(1, 1, 3, raster.DepthFloat)
	imgF.Pix[0], imgF.Pix[1], imgF.Pix[2] = 0.25, 0.81, 1
	outF, err := ApplyGamma(imgF, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, outF.Pix[0], 1e-12)
	assert.InDelta(t, 0.9, outF.Pix[1], 1e-12)
	assert.InDelta(t, 1, outF.Pix[2], 1e-12)
}

func TestApplyGammaKeepsAlpha(t *testing.T) {
	img := randomImage(6, 6, 4, raster.Depth8, 3)
	out, err := ApplyGamma(img, 0.5)
	require.NoError(t, err)
	for i := 3; i < len(img.Pix); i += 4 {
		assert.Equal(t, img.Pix[i], out.Pix[i])
	}
}

func TestApplyGammaDefaultIsNearBinary(t *testing.T) {
	img := raster.New(3, 1, 1, raster.Depth8)
	copy(img.Pix, []float64{128, 254, 255})
	out, err := ApplyGamma(img, 0.001)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 5, 255}, out.Pix)
}

func BenchmarkApplyGamma(b *testing.B) {
	img := randomImage(256, 256, 3, raster.Depth8, 1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ApplyGamma(img, 2.2)
	}
}
