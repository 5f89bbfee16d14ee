// Package report draws before/after comparison sheets.
package report

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

type Layout string

const (
	LayoutSideBySide Layout = "side_by_side"
	LayoutStacked    Layout = "stacked"
)

// Spec sizes a sheet: every image is fitted into a Panel-sized box, boxes
// are separated by Margin and each has a Caption-high label strip under it.
type Spec struct {
	Panel   [2]int
	Margin  int
	Caption int
}

var Specs = map[Layout]Spec{
	LayoutSideBySide: {
		Panel:   [2]int{640, 480},
		Margin:  24,
		Caption: 32,
	},
	LayoutStacked: {
		Panel:   [2]int{800, 450},
		Margin:  24,
		Caption: 32,
	},
}

func GetSpec(layout Layout) (Spec, error) {
	spec, ok := Specs[layout]
	if !ok {
		return Spec{}, fmt.Errorf("unknown layout: %s", layout)
	}
	return spec, nil
}

func ValidLayouts() []Layout {
	return []Layout{LayoutSideBySide, LayoutStacked}
}

// Size is the pixel size of a sheet drawn with spec.
func (s Spec) Size(layout Layout) (int, int) {
	cellW, cellH := s.Panel[0], s.Panel[1]+s.Caption
	if layout == LayoutStacked {
		return cellW + 2*s.Margin, 2*cellH + 3*s.Margin
	}
	return 2*cellW + 3*s.Margin, cellH + 2*s.Margin
}

// Caption formats a panel label with its quality score.
func Caption(label string, score float64) string {
	return fmt.Sprintf("%s - quality %.2f (lower=better)", label, score)
}

// Compose places before and after next to each other (or one above the
// other) on a light sheet, each with its caption underneath.
func Compose(before, after image.Image, captions [2]string, layout Layout) (image.Image, error) {
	spec, err := GetSpec(layout)
	if err != nil {
		return nil, err
	}
	if before == nil || after == nil {
		return nil, fmt.Errorf("compose: missing image")
	}

	totalW, totalH := spec.Size(layout)
	sheet := imaging.New(totalW, totalH, color.RGBA{252, 252, 250, 255})

	for i, img := range []image.Image{before, after} {
		x, y := spec.Margin, spec.Margin
		if layout == LayoutStacked {
			y += i * (spec.Panel[1] + spec.Caption + spec.Margin)
		} else {
			x += i * (spec.Panel[0] + spec.Margin)
		}
		sheet = imaging.Overlay(sheet, panel(img, captions[i], spec), image.Pt(x, y), 1.0)
	}
	return sheet, nil
}

func panel(img image.Image, caption string, spec Spec) image.Image {
	w, h := spec.Panel[0], spec.Panel[1]
	radius := 5.0
	borderColor := color.RGBA{60, 60, 60, 200}

	fitted := imaging.Fit(img, w, h, imaging.Lanczos)
	fw, fh := fitted.Bounds().Dx(), fitted.Bounds().Dy()
	ox, oy := float64(w-fw)/2, float64(h-fh)/2

	dc := gg.NewContext(w, h+spec.Caption)
	dc.SetColor(color.Transparent)
	dc.Clear()

	dc.DrawRoundedRectangle(ox, oy, float64(fw), float64(fh), radius)
	dc.Clip()
	dc.DrawImage(fitted, int(ox), int(oy))
	dc.ResetClip()

	dc.DrawRoundedRectangle(ox+0.5, oy+0.5, float64(fw)-1.0, float64(fh)-1.0, radius)
	dc.SetColor(borderColor)
	dc.SetLineWidth(1.5)
	dc.Stroke()

	if caption != "" {
		dc.SetRGB(0.15, 0.15, 0.15)
		dc.DrawStringAnchored(caption, float64(w)/2, float64(h)+float64(spec.Caption)/2, 0.5, 0.5)
	}
	return dc.Image()
}
