package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashURL(t *testing.T) {
	url := "https://cdn.example.com/350612079150221_20251023_143254.jpg"

	h1 := HashURL(url)
	h2 := HashURL(url)
	assert.Equal(t, h1, h2, "id must be a pure function of the URL")
	assert.Len(t, h1, 16)
	assert.Regexp(t, "^[0-9a-f]{16}$", h1)

	assert.NotEqual(t, h1, HashURL(url+"?v=2"))
}

func TestNewDetectionRecord(t *testing.T) {
	faces := []DetectedFace{
		{Bbox: [4]int{120, 80, 60, 60}, Confidence: 0.97},
		{Bbox: [4]int{250, 100, 58, 58}, Confidence: 0.92},
	}
	capturedAt := time.Date(2025, 10, 23, 14, 32, 54, 0, time.UTC)

	rec := NewDetectionRecord(
		"https://cdn.example.com/a.jpg", "https://bucket.s3.us-east-1.amazonaws.com/k.jpg",
		faces, "350612079150221", "cust-42", capturedAt,
	)

	assert.Equal(t, HashURL("https://cdn.example.com/a.jpg"), rec.ID)
	assert.Equal(t, 2, rec.FaceCount)
	assert.Equal(t, faces, rec.FacesData)
}

func TestDetectionResultCount(t *testing.T) {
	var r DetectionResult
	assert.Equal(t, 0, r.Count())

	r.Faces = append(r.Faces, DetectedFace{Bbox: [4]int{1, 2, 3, 4}, Confidence: 0.5})
	assert.Equal(t, 1, r.Count())
}

func TestRelayMessageWireFormat(t *testing.T) {
	msg := NewRelayMessage("sess-9", 2,
		"https://bucket.s3.us-east-1.amazonaws.com/k.jpg",
		"https://cdn.example.com/a.jpg", "5m ago")

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "relay_message", decoded["action"])
	assert.Equal(t, "sess-9", decoded["target_session"])

	misc, ok := decoded["misc"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "face_count", misc["action"])
	assert.Equal(t, float64(2), misc["count"])
	assert.Equal(t, "5m ago", misc["time_passed"])
}

func TestDetectedFaceJSONShape(t *testing.T) {
	data, err := json.Marshal(DetectedFace{Bbox: [4]int{120, 80, 60, 60}, Confidence: 0.97})
	require.NoError(t, err)
	assert.JSONEq(t, `{"bbox":[120,80,60,60],"confidence":0.97}`, string(data))
}
