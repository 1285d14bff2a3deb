package imaging

import "math"

// Adaptive enhancement. The stages run in a fixed order because each stage's
// trigger depends on statistics of the frame as it stood when measured; the
// thresholds below were tuned against the production camera fleet and the
// regime boundaries must not drift.
//
// Channel normalization (grayscale/RGBA → RGB) happens at decode time: every
// Frame is already canonical 3-channel RGB when it reaches Enhance.

const (
	grayLikeColorDiff = 12.0
	castStrengthMin   = 5.0
	darkMean          = 80.0
	flatStd           = 20.0
	veryDarkMean      = 60.0
	focusMin          = 60.0
	localContrastStd  = 25.0
	localContrastMean = 70.0
	unsharpSigma      = 2.0
	claheClipLimit    = 2.5
	claheTiles        = 8
	epsilon           = 1e-6
)

// entryStats are measured once on the incoming frame; the brightness regime
// and the local-contrast trigger key off these, not off intermediate states.
type entryStats struct {
	mean float64
	std  float64
}

type enhanceStage struct {
	name  string
	apply func(f *Frame, st entryStats) *Frame
}

var enhanceStages = []enhanceStage{
	{"grayscale_boost", boostLowSaturation},
	{"color_cast", correctColorCast},
	{"brightness_contrast", correctBrightness},
	{"sharpness", sharpen},
	{"local_contrast", localContrast},
}

// Enhance normalizes brightness, contrast, color cast and sharpness of a
// frame. It never fails and never mutates its input; it is safe to call
// concurrently on independent frames.
func Enhance(f *Frame) *Frame {
	if f.Empty() {
		return f
	}
	mean, std := MeanStd(f.Gray())
	st := entryStats{mean: mean, std: std}

	out := f.Clone()
	for _, stage := range enhanceStages {
		out = stage.apply(out, st)
	}
	return out
}

// boostLowSaturation lifts lightness and chroma on near-grayscale frames,
// counteracting washed-out low-light captures.
func boostLowSaturation(f *Frame, _ entryStats) *Frame {
	if f.colorDiff() >= grayLikeColorDiff {
		return f
	}
	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		r, g, b := f.Pix[i*3], f.Pix[i*3+1], f.Pix[i*3+2]
		l, a, bb := rgbToLab(r, g, b)
		r, g, b = labToRGB(math.Min(l+20, 255), math.Min(a+5, 255), math.Min(bb+5, 255))

		h, s, v := rgbToHSV(r, g, b)
		r, g, b = hsvToRGB(h, math.Min(s+40, 255), v)
		f.Pix[i*3], f.Pix[i*3+1], f.Pix[i*3+2] = r, g, b
	}
	return f
}

// correctColorCast applies a per-channel gain pulling each channel mean
// toward the grand mean when the spread across channel means is significant.
func correctColorCast(f *Frame, _ entryStats) *Frame {
	mr, mg, mb := f.ChannelMeans()
	grand := (mr + mg + mb) / 3

	// Std of the three channel means.
	dr, dg, db := mr-grand, mg-grand, mb-grand
	castStrength := math.Sqrt((dr*dr + dg*dg + db*db) / 3)
	if castStrength <= castStrengthMin {
		return f
	}

	rGain := grand / (mr + epsilon)
	gGain := grand / (mg + epsilon)
	bGain := grand / (mb + epsilon)

	n := f.Width * f.Height
	for i := 0; i < n; i++ {
		f.Pix[i*3] = satUint8(float64(f.Pix[i*3]) * rGain)
		f.Pix[i*3+1] = satUint8(float64(f.Pix[i*3+1]) * gGain)
		f.Pix[i*3+2] = satUint8(float64(f.Pix[i*3+2]) * bGain)
	}
	return f
}

// correctBrightness applies a linear gain/offset in one of two regimes.
// Dark or flat frames (mean < 80 or std < 20) get the aggressive slope;
// everything else gets the gentle correction toward mid-gray.
func correctBrightness(f *Frame, st entryStats) *Frame {
	var alpha, beta float64
	if st.mean < darkMean || st.std < flatStd {
		alpha = 1.4 + (100-st.mean)/150
		if st.mean < veryDarkMean {
			beta = 50
		} else {
			beta = 30
		}
	} else {
		alpha = 1.0 + (100-st.mean)/200
		beta = (128 - st.mean) * 0.4
	}

	for i := range f.Pix {
		f.Pix[i] = satUint8(math.Abs(alpha*float64(f.Pix[i]) + beta))
	}
	return f
}

// sharpen applies unsharp masking when the corrected frame still measures
// out of focus.
func sharpen(f *Frame, _ entryStats) *Frame {
	if LaplacianVar(f.Gray(), f.Width, f.Height) >= focusMin {
		return f
	}
	blurred := gaussianBlur(f, unsharpSigma)
	for i := range f.Pix {
		f.Pix[i] = satUint8(1.7*float64(f.Pix[i]) - 0.7*float64(blurred.Pix[i]))
	}
	return f
}

// localContrast equalizes the luminance channel with CLAHE on frames that
// entered flat or dark, leaving chroma untouched.
func localContrast(f *Frame, st entryStats) *Frame {
	if st.std >= localContrastStd && st.mean >= localContrastMean {
		return f
	}

	n := f.Width * f.Height
	lplane := make([]uint8, n)
	aplane := make([]float64, n)
	bplane := make([]float64, n)
	for i := 0; i < n; i++ {
		l, a, bb := rgbToLab(f.Pix[i*3], f.Pix[i*3+1], f.Pix[i*3+2])
		lplane[i] = satUint8(l)
		aplane[i] = a
		bplane[i] = bb
	}

	lplane = claheEqualize(lplane, f.Width, f.Height, claheClipLimit, claheTiles, claheTiles)

	for i := 0; i < n; i++ {
		r, g, b := labToRGB(float64(lplane[i]), aplane[i], bplane[i])
		f.Pix[i*3], f.Pix[i*3+1], f.Pix[i*3+2] = r, g, b
	}
	return f
}
