package imaging

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var annotationColor = color.RGBA{0, 255, 0, 255}

const boxThickness = 2

// DrawDetection draws the bounding rectangle and its confidence label onto
// the frame in place.
func DrawDetection(f *Frame, r Rect, confidence float64) {
	drawRect(f, r)
	drawLabel(f, r.X, r.Y-5, fmt.Sprintf("%.2f", confidence))
}

func drawRect(f *Frame, r Rect) {
	for t := 0; t < boxThickness; t++ {
		x1, y1 := r.X+t, r.Y+t
		x2, y2 := r.X+r.W-1-t, r.Y+r.H-1-t
		for x := x1; x <= x2; x++ {
			setIfInside(f, x, y1)
			setIfInside(f, x, y2)
		}
		for y := y1; y <= y2; y++ {
			setIfInside(f, x1, y)
			setIfInside(f, x2, y)
		}
	}
}

func setIfInside(f *Frame, x, y int) {
	if x >= 0 && x < f.Width && y >= 0 && y < f.Height {
		f.SetRGB(x, y, annotationColor.R, annotationColor.G, annotationColor.B)
	}
}

// drawLabel renders small text with the basicfont face, rasterized through
// an RGBA view of the region so the drawer can blend, then copied back.
func drawLabel(f *Frame, x, y int, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()
	ascent := face.Metrics().Ascent.Ceil()

	x0 := clampInt(x, 0, f.Width)
	y0 := clampInt(y-ascent, 0, f.Height)
	x1 := clampInt(x+width, 0, f.Width)
	y1 := clampInt(y-ascent+height, 0, f.Height)
	if x0 >= x1 || y0 >= y1 {
		return
	}

	region := f.Crop(Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}).ToRGBA()
	d := font.Drawer{
		Dst:  region,
		Src:  image.NewUniform(annotationColor),
		Face: face,
		Dot:  fixed.P(x-x0, y-y0),
	}
	d.DrawString(text)

	for yy := y0; yy < y1; yy++ {
		for xx := x0; xx < x1; xx++ {
			c := region.RGBAAt(xx-x0, yy-y0)
			f.SetRGB(xx, yy, c.R, c.G, c.B)
		}
	}
}
