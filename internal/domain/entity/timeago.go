package entity

import (
	"fmt"
	"time"
)

// Capture timestamps embedded in device filenames are local to the camera
// fleet's deployment zone (UTC+3); elapsed time is computed there.
var captureZone = time.FixedZone("UTC+3", 3*60*60)

// ParseCaptureTime parses a yyyymmddhhmmss filename timestamp in the
// fleet's capture zone.
func ParseCaptureTime(s string) (time.Time, error) {
	return time.ParseInLocation("20060102150405", s, captureZone)
}

// TimePassed renders the elapsed time between start and end as a short
// human-readable string: "42s ago", "5m ago", "3h ago", "2d ago".
func TimePassed(start, end time.Time) string {
	seconds := int(end.In(captureZone).Sub(start.In(captureZone)).Seconds())

	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds ago", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm ago", seconds/60)
	case seconds < 86400:
		return fmt.Sprintf("%dh ago", seconds/3600)
	default:
		return fmt.Sprintf("%dd ago", seconds/86400)
	}
}
