package domain

import "time"

// WayPoint is a fix promoted into a persisted track.
// Way-points are immutable once appended; the owning Track is the only holder.
type WayPoint struct {
	Latitude        float64
	Longitude       float64
	Altitude        float64
	Accuracy        float64
	Provider        Provider
	Time            time.Time
	ElapsedRealtime time.Duration

	// StopOver marks a way-point that represents a stationary period.
	// It is decided by the recording client, not by this service.
	StopOver bool

	// DistanceToPrevious is the great-circle distance in meters from the
	// previous way-point of the track. Zero for the first way-point.
	DistanceToPrevious float64
}
