// Package quality scores images without a reference, BRISQUE style: local
// luminance is normalized by its neighbourhood mean and contrast, the
// resulting coefficients and their neighbour products are fitted with
// generalized Gaussians at two scales, and the fitted parameters are compared
// with the statistics of natural-looking scenes. Lower scores are better.
package quality

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/sgino209/tracxpoint-imgenhance/internal/raster"
)

const (
	ReferenceWidth  = 380
	ReferenceHeight = 507

	// MinDimension is the smallest width or height that can be scored.
	MinDimension = 8
)

type Scorer struct {
	model *Model
}

// NewScorer returns a scorer backed by DefaultModel.
func NewScorer() (*Scorer, error) {
	m, err := DefaultModel()
	if err != nil {
		return nil, fmt.Errorf("quality model: %w", err)
	}
	return &Scorer{model: m}, nil
}

func NewScorerWithModel(m *Model) *Scorer {
	return &Scorer{model: m}
}

// Score returns the distance of img's statistics to the model. The image is
// only read.
func (s *Scorer) Score(img *raster.Image) (float64, error) {
	f, err := Features(img)
	if err != nil {
		return 0, err
	}
	d, err := s.model.Distance(f)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("%w: quality score is not finite", raster.ErrInvalidInput)
	}
	return d, nil
}

// Features extracts the feature vector of img after resizing it to the
// reference resolution.
func Features(img *raster.Image) ([]float64, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	if img.Width < MinDimension || img.Height < MinDimension {
		return nil, fmt.Errorf("%w: %dx%d is too small to score, need at least %dx%d",
			raster.ErrInvalidInput, img.Width, img.Height, MinDimension, MinDimension)
	}
	std, err := raster.ToImage(img)
	if err != nil {
		return nil, err
	}
	return imageFeatures(std)
}

func imageFeatures(img image.Image) ([]float64, error) {
	gray := imaging.Grayscale(img)
	full := imaging.Resize(gray, ReferenceWidth, ReferenceHeight, imaging.CatmullRom)
	half := imaging.Resize(full, ReferenceWidth/2, ReferenceHeight/2, imaging.CatmullRom)

	feats := make([]float64, 0, NumFeatures)
	for _, scale := range []*image.NRGBA{full, half} {
		w, h := scale.Bounds().Dx(), scale.Bounds().Dy()
		feats = append(feats, scaleFeatures(luminance(scale), w, h)...)
	}
	return feats, nil
}

// luminance reads the gray level of an image produced by imaging.Grayscale.
func luminance(img *image.NRGBA) []float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			out[y*w+x] = float64(row[x*4])
		}
	}
	return out
}
