package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DetectionRecord is the row persisted per processed image. ID is a pure
// function of the original URL, so re-processing the same image hits the
// same row (upsert) and the same storage key.
type DetectionRecord struct {
	ID                string
	OriginalImageURL  string
	AnnotatedImageURL string
	FaceCount         int
	DeviceIMEI        string
	CustomerID        string
	CaptureDatetime   time.Time
	FacesData         []DetectedFace
}

// HashURL returns the deterministic 16-hex-character record id for a URL.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:16]
}

// NewDetectionRecord builds a record with the hashed id filled in.
func NewDetectionRecord(originalURL, annotatedURL string, faces []DetectedFace, imei, customerID string, capturedAt time.Time) *DetectionRecord {
	return &DetectionRecord{
		ID:                HashURL(originalURL),
		OriginalImageURL:  originalURL,
		AnnotatedImageURL: annotatedURL,
		FaceCount:         len(faces),
		DeviceIMEI:        imei,
		CustomerID:        customerID,
		CaptureDatetime:   capturedAt,
		FacesData:         faces,
	}
}
