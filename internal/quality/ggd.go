package quality

import (
	"math"
	"sync"
)

// The shape parameter of both fits is searched on a fixed grid.
const (
	alphaMin  = 0.2
	alphaMax  = 10.0
	alphaStep = 0.001
)

type shapeTable struct {
	alpha []float64
	ggd   []float64 // Γ(1/a)Γ(3/a)/Γ(2/a)²
	aggd  []float64 // Γ(2/a)²/(Γ(1/a)Γ(3/a))
}

var shapes = sync.OnceValue(func() *shapeTable {
	n := int(math.Round((alphaMax-alphaMin)/alphaStep)) + 1
	t := &shapeTable{
		alpha: make([]float64, n),
		ggd:   make([]float64, n),
		aggd:  make([]float64, n),
	}
	for i := range t.alpha {
		a := alphaMin + float64(i)*alphaStep
		g1, g2, g3 := math.Gamma(1/a), math.Gamma(2/a), math.Gamma(3/a)
		t.alpha[i] = a
		t.ggd[i] = g1 * g3 / (g2 * g2)
		t.aggd[i] = g2 * g2 / (g1 * g3)
	}
	return t
})

func closest(alpha, table []float64, target float64) float64 {
	best, bestDiff := alpha[len(alpha)-1], math.Inf(1)
	for i, v := range table {
		if d := math.Abs(v - target); d < bestDiff {
			best, bestDiff = alpha[i], d
		}
	}
	return best
}

// fitGGD estimates the shape and variance of a zero-mean generalized
// Gaussian by moment matching. A degenerate sample (all zeros) reports the
// largest shape on the grid and zero variance.
func fitGGD(x []float64) (alpha, variance float64) {
	var sumSq, sumAbs float64
	for _, v := range x {
		sumSq += v * v
		sumAbs += math.Abs(v)
	}
	n := float64(len(x))
	variance = sumSq / n
	meanAbs := sumAbs / n
	if meanAbs == 0 {
		return alphaMax, 0
	}
	t := shapes()
	return closest(t.alpha, t.ggd, variance/(meanAbs*meanAbs)), variance
}

// aggdFit holds the four parameters of an asymmetric generalized Gaussian.
type aggdFit struct {
	alpha    float64
	mean     float64
	leftVar  float64
	rightVar float64
}

func (f aggdFit) features() []float64 {
	return []float64{f.alpha, f.mean, f.leftVar, f.rightVar}
}

// fitAGGD estimates the parameters of an asymmetric generalized Gaussian
// from its left (negative) and right (positive) halves.
func fitAGGD(x []float64) aggdFit {
	const eps = 1e-12

	var leftSq, rightSq, sumSq, sumAbs float64
	var nLeft, nRight int
	for _, v := range x {
		switch {
		case v < 0:
			leftSq += v * v
			nLeft++
		case v > 0:
			rightSq += v * v
			nRight++
		}
		sumSq += v * v
		sumAbs += math.Abs(v)
	}
	if sumSq == 0 {
		return aggdFit{alpha: alphaMax}
	}

	var leftStd, rightStd float64
	if nLeft > 0 {
		leftStd = math.Sqrt(leftSq / float64(nLeft))
	}
	if nRight > 0 {
		rightStd = math.Sqrt(rightSq / float64(nRight))
	}

	n := float64(len(x))
	gammaHat := leftStd / (rightStd + eps)
	rHat := (sumAbs / n) * (sumAbs / n) / (sumSq / n)
	g2 := gammaHat * gammaHat
	rNorm := rHat * (g2*gammaHat + 1) * (gammaHat + 1) / ((g2 + 1) * (g2 + 1))

	t := shapes()
	alpha := closest(t.alpha, t.aggd, rNorm)
	g1, g2a, g3 := math.Gamma(1/alpha), math.Gamma(2/alpha), math.Gamma(3/alpha)
	mean := (rightStd - leftStd) * (g2a / g1) * math.Sqrt(g1/g3)

	return aggdFit{
		alpha:    alpha,
		mean:     mean,
		leftVar:  leftStd * leftStd,
		rightVar: rightStd * rightStd,
	}
}
