package imaging

import "math"

// Gray returns the 8-bit luminance plane (ITU-R BT.601 weights, the same
// coefficients the detection stack was tuned against).
func (f *Frame) Gray() []uint8 {
	n := f.Width * f.Height
	gray := make([]uint8, n)
	for i := 0; i < n; i++ {
		r := float64(f.Pix[i*3])
		g := float64(f.Pix[i*3+1])
		b := float64(f.Pix[i*3+2])
		gray[i] = uint8(math.Round(0.299*r + 0.587*g + 0.114*b))
	}
	return gray
}

// MeanStd returns the mean and population standard deviation of a plane.
func MeanStd(plane []uint8) (float64, float64) {
	if len(plane) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range plane {
		sum += float64(v)
	}
	mean := sum / float64(len(plane))

	var sq float64
	for _, v := range plane {
		d := float64(v) - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(plane)))
}

// ChannelMeans returns the per-channel means of the frame.
func (f *Frame) ChannelMeans() (float64, float64, float64) {
	n := f.Width * f.Height
	if n == 0 {
		return 0, 0, 0
	}
	var r, g, b float64
	for i := 0; i < n; i++ {
		r += float64(f.Pix[i*3])
		g += float64(f.Pix[i*3+1])
		b += float64(f.Pix[i*3+2])
	}
	fn := float64(n)
	return r / fn, g / fn, b / fn
}

// colorDiff measures grayscale-likeness: the mean over pixels of
// |r-g| + |g-b| + |b-r|. Low values mean the image carries almost no color.
func (f *Frame) colorDiff() float64 {
	n := f.Width * f.Height
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		r := float64(f.Pix[i*3])
		g := float64(f.Pix[i*3+1])
		b := float64(f.Pix[i*3+2])
		sum += math.Abs(r-g) + math.Abs(g-b) + math.Abs(b-r)
	}
	return sum / float64(n)
}

// LaplacianVar measures focus as the variance of a 3x3 Laplacian response
// over the luminance plane, with reflected borders.
func LaplacianVar(gray []uint8, width, height int) float64 {
	if width == 0 || height == 0 {
		return 0
	}
	at := func(x, y int) float64 {
		x = reflect101(x, width)
		y = reflect101(y, height)
		return float64(gray[y*width+x])
	}

	n := width * height
	lap := make([]float64, n)
	var sum float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			lap[y*width+x] = v
			sum += v
		}
	}
	mean := sum / float64(n)

	var sq float64
	for _, v := range lap {
		d := v - mean
		sq += d * d
	}
	return sq / float64(n)
}

// reflect101 mirrors an out-of-range index without repeating the edge sample.
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
