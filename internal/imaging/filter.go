package imaging

// Heuristic gate behind the primary detector. It only rejects crops that are
// very unlikely to be real faces; a clearly valid detection must never be
// suppressed, so false negatives are the acceptable failure mode.

const (
	minCropSide     = 20
	minLuminance    = 30.0
	maxLuminance    = 220.0
	flatCropStd     = 10.0
	flatCropMinConf = 0.35
)

// LikelyFace reports whether a detector crop plausibly contains a face.
// Same (crop, confidence) input always yields the same answer.
func LikelyFace(crop *Frame, confidence float64) bool {
	if crop.Empty() {
		return false
	}
	if crop.Width < minCropSide || crop.Height < minCropSide {
		return false
	}

	mean, std := MeanStd(crop.Gray())

	// Near-black or near-white regions are glare, shadows or occluders.
	if mean < minLuminance || mean > maxLuminance {
		return false
	}

	// Flat, low-texture regions are only rejected when the detector itself
	// was unsure; a high-confidence flat detection still passes.
	if std < flatCropStd && confidence < flatCropMinConf {
		return false
	}

	return true
}
