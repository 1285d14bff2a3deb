package imaging

import (
	"image"
	"image/color"
)

// Frame is a decoded image in canonical interleaved RGB order. Every
// downstream stage assumes this ordering. A frame is owned by the pipeline
// run that created it and never shared across jobs.
type Frame struct {
	Width  int
	Height int
	Pix    []uint8 // len == Width*Height*3, row-major RGB
}

func NewFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pix: make([]uint8, width*height*3)}
}

// FromImage converts any decoded image to a canonical RGB frame, collapsing
// alpha and grayscale sources to three channels.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(bl >> 8)
			i += 3
		}
	}
	return f
}

// ToRGBA converts the frame back to an image for encoding.
func (f *Frame) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	i := 0
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			img.SetRGBA(x, y, color.RGBA{f.Pix[i], f.Pix[i+1], f.Pix[i+2], 255})
			i += 3
		}
	}
	return img
}

func (f *Frame) Clone() *Frame {
	c := NewFrame(f.Width, f.Height)
	copy(c.Pix, f.Pix)
	return c
}

func (f *Frame) Empty() bool {
	return f == nil || f.Width == 0 || f.Height == 0
}

// RGB returns the pixel at (x, y).
func (f *Frame) RGB(x, y int) (uint8, uint8, uint8) {
	i := (y*f.Width + x) * 3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetRGB sets the pixel at (x, y).
func (f *Frame) SetRGB(x, y int, r, g, b uint8) {
	i := (y*f.Width + x) * 3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = r, g, b
}

// Rect is a pixel rectangle inside a frame.
type Rect struct {
	X, Y, W, H int
}

// ClampRect clamps a raw box to the frame bounds. The second return is false
// for degenerate boxes (zero or negative extent after clamping), which the
// pipeline discards.
func ClampRect(x, y, w, h, frameW, frameH int) (Rect, bool) {
	x1, y1 := max(0, x), max(0, y)
	x2, y2 := min(frameW, x+w), min(frameH, y+h)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}, false
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}, true
}

// Crop copies the sub-region r of the frame. r must lie within bounds.
func (f *Frame) Crop(r Rect) *Frame {
	c := NewFrame(r.W, r.H)
	for y := 0; y < r.H; y++ {
		src := ((r.Y+y)*f.Width + r.X) * 3
		dst := y * r.W * 3
		copy(c.Pix[dst:dst+r.W*3], f.Pix[src:src+r.W*3])
	}
	return c
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
