package imaging

import "math"

// claheEqualize applies contrast-limited adaptive histogram equalization to a
// single 8-bit plane: per-tile clipped histograms with excess redistributed,
// then bilinear interpolation between neighboring tile mappings.
func claheEqualize(plane []uint8, width, height int, clipLimit float64, tilesX, tilesY int) []uint8 {
	if width == 0 || height == 0 {
		return plane
	}

	tileW := (width + tilesX - 1) / tilesX
	tileH := (height + tilesY - 1) / tilesY

	// Per-tile lookup tables.
	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := min(x0+tileW, width), min(y0+tileH, height)

			var hist [256]int
			area := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[plane[y*width+x]]++
					area++
				}
			}
			if area == 0 {
				continue
			}

			clip := int(math.Max(clipLimit*float64(area)/256, 1))
			excess := 0
			for i := 0; i < 256; i++ {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			// Redistribute clipped mass evenly.
			share := excess / 256
			rem := excess % 256
			for i := 0; i < 256; i++ {
				hist[i] += share
				if i < rem {
					hist[i]++
				}
			}

			scale := 255.0 / float64(area)
			cdf := 0
			lut := &luts[ty*tilesX+tx]
			for i := 0; i < 256; i++ {
				cdf += hist[i]
				lut[i] = satUint8(float64(cdf) * scale)
			}
		}
	}

	// Bilinear interpolation between the four surrounding tile mappings.
	out := make([]uint8, len(plane))
	for y := 0; y < height; y++ {
		fy := (float64(y)-float64(tileH)/2 + 0.5) / float64(tileH)
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := ty0 + 1
		ty0 = clampInt(ty0, 0, tilesY-1)
		ty1 = clampInt(ty1, 0, tilesY-1)

		for x := 0; x < width; x++ {
			fx := (float64(x)-float64(tileW)/2 + 0.5) / float64(tileW)
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := tx0 + 1
			tx0 = clampInt(tx0, 0, tilesX-1)
			tx1 = clampInt(tx1, 0, tilesX-1)

			v := plane[y*width+x]
			top := (1-wx)*float64(luts[ty0*tilesX+tx0][v]) + wx*float64(luts[ty0*tilesX+tx1][v])
			bot := (1-wx)*float64(luts[ty1*tilesX+tx0][v]) + wx*float64(luts[ty1*tilesX+tx1][v])
			out[y*width+x] = satUint8((1-wy)*top + wy*bot)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
