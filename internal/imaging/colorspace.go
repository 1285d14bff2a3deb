package imaging

import "math"

// 8-bit colorspace conversions used by the enhancer. Lab follows the 8-bit
// convention L∈[0,255], a and b offset by 128; HSV keeps S and V in [0,255].

func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	maxc := math.Max(rf, math.Max(gf, bf))
	minc := math.Min(rf, math.Min(gf, bf))
	v = maxc
	d := maxc - minc
	if maxc > 0 {
		s = d / maxc
	}
	if d > 0 {
		switch maxc {
		case rf:
			h = 60 * math.Mod((gf-bf)/d, 6)
		case gf:
			h = 60 * ((bf-rf)/d + 2)
		default:
			h = 60 * ((rf-gf)/d + 4)
		}
		if h < 0 {
			h += 360
		}
	}
	return h, s * 255, v * 255
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	sf := clamp01(s / 255)
	vf := clamp01(v / 255)
	c := vf * sf
	hp := math.Mod(h, 360) / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var rf, gf, bf float64
	switch {
	case hp < 1:
		rf, gf, bf = c, x, 0
	case hp < 2:
		rf, gf, bf = x, c, 0
	case hp < 3:
		rf, gf, bf = 0, c, x
	case hp < 4:
		rf, gf, bf = 0, x, c
	case hp < 5:
		rf, gf, bf = x, 0, c
	default:
		rf, gf, bf = c, 0, x
	}
	m := vf - c
	return satUint8((rf + m) * 255), satUint8((gf + m) * 255), satUint8((bf + m) * 255)
}

// sRGB (D65) to CIELAB, scaled to 8-bit ranges.
func rgbToLab(r, g, b uint8) (l, a, bb float64) {
	rl := srgbLinear(float64(r) / 255)
	gl := srgbLinear(float64(g) / 255)
	bl := srgbLinear(float64(b) / 255)

	x := (0.412453*rl + 0.357580*gl + 0.180423*bl) / 0.950456
	y := 0.212671*rl + 0.715160*gl + 0.072169*bl
	z := (0.019334*rl + 0.119193*gl + 0.950227*bl) / 1.088754

	fx, fy, fz := labF(x), labF(y), labF(z)
	l = (116*fy - 16) * 255 / 100
	a = 500*(fx-fy) + 128
	bb = 200*(fy-fz) + 128
	return l, a, bb
}

func labToRGB(l, a, bb float64) (uint8, uint8, uint8) {
	ls := l * 100 / 255
	fy := (ls + 16) / 116
	fx := fy + (a-128)/500
	fz := fy - (bb-128)/200

	x := labFInv(fx) * 0.950456
	y := labFInv(fy)
	z := labFInv(fz) * 1.088754

	rl := 3.240479*x - 1.537150*y - 0.498535*z
	gl := -0.969256*x + 1.875992*y + 0.041556*z
	bl := 0.055648*x - 0.204043*y + 1.057311*z

	return satUint8(srgbGamma(rl) * 255), satUint8(srgbGamma(gl) * 255), satUint8(srgbGamma(bl) * 255)
}

func srgbLinear(c float64) float64 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

func srgbGamma(c float64) float64 {
	if c <= 0 {
		return 0
	}
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*math.Pow(c, 1/2.4) - 0.055
}

func labF(t float64) float64 {
	if t > 0.008856 {
		return math.Cbrt(t)
	}
	return 7.787*t + 16.0/116
}

func labFInv(t float64) float64 {
	if t > 0.206893 {
		return t * t * t
	}
	return (t - 16.0/116) / 7.787
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func satUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math.Round(v))
}
