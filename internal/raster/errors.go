package raster

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrUnsupportedFormat = errors.New("unsupported format")
)
