package quality

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/rand"
	"sync"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	priorScenes = 48
	sceneDisks  = 3000
	minRadius   = 2.0

	shrinkage = 0.1
	ridge     = 1e-4
)

// Scene draws a dead-leaves image: opaque gray disks with uniformly
// distributed levels and radii following a 1/r³ law, layered until they
// cover the canvas. Scenes are fully determined by seed.
func Scene(seed int64, width, height int) image.Image {
	r := rand.New(rand.NewSource(seed))
	dc := gg.NewContext(width, height)

	bg := r.Float64()
	dc.SetRGB(bg, bg, bg)
	dc.Clear()

	maxRadius := float64(max(width, height)) / 4
	k := 1 - (minRadius*minRadius)/(maxRadius*maxRadius)
	for i := 0; i < sceneDisks; i++ {
		radius := minRadius / math.Sqrt(1-r.Float64()*k)
		level := r.Float64()
		dc.SetRGB(level, level, level)
		dc.DrawCircle(r.Float64()*float64(width), r.Float64()*float64(height), radius)
		dc.Fill()
	}
	return dc.Image()
}

// Model is a multivariate Gaussian over feature vectors. Distances are
// measured on standardized features against a correlation matrix shrunk
// toward the identity.
type Model struct {
	mean   []float64
	spread []float64
	chol   mat.Cholesky
}

// TrainModel fits a Model to samples, one feature vector per row.
func TrainModel(samples [][]float64) (*Model, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("need at least 2 samples to fit a model, got %d", len(samples))
	}
	n := len(samples[0])
	data := mat.NewDense(len(samples), n, nil)
	for i, s := range samples {
		if len(s) != n {
			return nil, fmt.Errorf("sample %d has %d features, want %d", i, len(s), n)
		}
		data.SetRow(i, s)
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, data, nil)

	m := &Model{mean: make([]float64, n), spread: make([]float64, n)}
	sd := make([]float64, n)
	for j := 0; j < n; j++ {
		m.mean[j] = stat.Mean(mat.Col(nil, j, data), nil)
		sd[j] = math.Sqrt(cov.At(j, j))
		m.spread[j] = math.Max(sd[j], spreadFloor(m.mean[j]))
	}

	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		corr.SetSym(i, i, 1+ridge)
		for j := i + 1; j < n; j++ {
			c := 0.0
			if sd[i] >= spreadFloor(m.mean[i]) && sd[j] >= spreadFloor(m.mean[j]) {
				c = (1 - shrinkage) * cov.At(i, j) / (sd[i] * sd[j])
			}
			corr.SetSym(i, j, c)
		}
	}
	if ok := m.chol.Factorize(corr); !ok {
		return nil, errors.New("feature correlation is not positive definite")
	}
	return m, nil
}

// spreadFloor keeps a feature that barely varies over the training scenes
// from turning rounding noise into a large distance.
func spreadFloor(mean float64) float64 {
	return 1e-2*math.Abs(mean) + 1e-6
}

// Distance is the Mahalanobis distance of x to the model.
func (m *Model) Distance(x []float64) (float64, error) {
	if len(x) != len(m.mean) {
		return 0, fmt.Errorf("got %d features, model has %d", len(x), len(m.mean))
	}
	z := mat.NewVecDense(len(x), nil)
	for i, v := range x {
		z.SetVec(i, (v-m.mean[i])/m.spread[i])
	}
	var w mat.VecDense
	if err := m.chol.SolveVecTo(&w, z); err != nil {
		return 0, err
	}
	return math.Sqrt(math.Max(0, mat.Dot(z, &w))), nil
}

// DefaultModel is fitted once per process on deterministic dead-leaves
// scenes at the reference resolution.
var DefaultModel = sync.OnceValues(func() (*Model, error) {
	samples := make([][]float64, priorScenes)
	for i := range samples {
		f, err := imageFeatures(Scene(int64(i+1), ReferenceWidth, ReferenceHeight))
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", i+1, err)
		}
		samples[i] = f
	}
	return TrainModel(samples)
})
