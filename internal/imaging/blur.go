package imaging

import "math"

// gaussianBlur blurs all three channels with a separable Gaussian kernel.
// Kernel radius is derived from sigma (3σ each side), borders reflected.
func gaussianBlur(f *Frame, sigma float64) *Frame {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for i := -radius; i <= radius; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		kernel[i+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	w, h := f.Width, f.Height
	tmp := make([]float64, w*h*3)

	// Horizontal pass.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b float64
			for k := -radius; k <= radius; k++ {
				xi := reflect101(x+k, w)
				i := (y*w + xi) * 3
				kv := kernel[k+radius]
				r += kv * float64(f.Pix[i])
				g += kv * float64(f.Pix[i+1])
				b += kv * float64(f.Pix[i+2])
			}
			i := (y*w + x) * 3
			tmp[i], tmp[i+1], tmp[i+2] = r, g, b
		}
	}

	// Vertical pass.
	out := NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var r, g, b float64
			for k := -radius; k <= radius; k++ {
				yi := reflect101(y+k, h)
				i := (yi*w + x) * 3
				kv := kernel[k+radius]
				r += kv * tmp[i]
				g += kv * tmp[i+1]
				b += kv * tmp[i+2]
			}
			i := (y*w + x) * 3
			out.Pix[i] = satUint8(r)
			out.Pix[i+1] = satUint8(g)
			out.Pix[i+2] = satUint8(b)
		}
	}
	return out
}
