package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimePassed(t *testing.T) {
	start := time.Date(2025, 10, 23, 14, 32, 54, 0, time.UTC)

	cases := []struct {
		seconds int
		want    string
	}{
		{0, "0s ago"},
		{59, "59s ago"},
		{60, "1m ago"},
		{3599, "59m ago"},
		{3600, "1h ago"},
		{86399, "23h ago"},
		{86400, "1d ago"},
		{3 * 86400, "3d ago"},
	}

	for _, tc := range cases {
		got := TimePassed(start, start.Add(time.Duration(tc.seconds)*time.Second))
		assert.Equal(t, tc.want, got, "after %d seconds", tc.seconds)
	}
}

func TestParseCaptureTime(t *testing.T) {
	got, err := ParseCaptureTime("20251023143254")
	assert.NoError(t, err)

	// Filename timestamps are camera-local UTC+3.
	assert.True(t, got.Equal(time.Date(2025, 10, 23, 11, 32, 54, 0, time.UTC)))

	_, err = ParseCaptureTime("20251340256199")
	assert.Error(t, err)
}

func TestTimePassedZoneIndependent(t *testing.T) {
	// The fixed UTC+3 reference must not shift the elapsed duration when the
	// inputs arrive in different zones.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second).In(time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, "1m ago", TimePassed(start, end))
}
