// Package filters implements the individual enhancement stages: tone curve,
// contrast equalization, spatial and temporal denoising, sharpening and the
// HSV adjustments. Every stage takes a *raster.Image and returns a new one of
// the same shape and depth; alpha is never touched.
package filters

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
