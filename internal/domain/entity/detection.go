package entity

// RawDetection is one candidate box as returned by the detection model,
// before clamping and heuristic filtering. Coordinates are pixels in the
// frame the model was given.
type RawDetection struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// DetectedFace is an accepted detection. Bbox is the clamped pixel rectangle
// [x, y, width, height]; this is the shape stored in faces_data and returned
// to clients.
type DetectedFace struct {
	Bbox       [4]int  `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// DetectionResult is the outcome of one pipeline run.
type DetectionResult struct {
	Faces []DetectedFace
}

// Count is always derived from the face sequence, never stored alongside it.
func (r DetectionResult) Count() int {
	return len(r.Faces)
}
