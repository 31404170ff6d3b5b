package location

import (
	"fmt"
	"time"
)

// ReadableDuration formats d for display.
// With includeHours it returns HH:MM:SS. Without, it returns MM:SS for
// durations under one hour and ok=false beyond that, so callers can show a
// coarser label instead.
func ReadableDuration(d time.Duration, includeHours bool) (s string, ok bool) {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	minutes := int64(d/time.Minute) % 60
	seconds := int64(d/time.Second) % 60

	if includeHours {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds), true
	}
	if d < time.Hour {
		return fmt.Sprintf("%02d:%02d", minutes, seconds), true
	}
	return "", false
}
