package domain

import (
	"fmt"
	"time"
)

// Provider names the source of a fix.
type Provider string

// Well-known providers. Any other non-empty tag is accepted as-is.
const (
	ProviderGPS     Provider = "gps"
	ProviderNetwork Provider = "network"
)

// Fix is a single raw location observation from a provider.
// It is the input of the location arbiter and is never persisted directly:
// it is either promoted to a WayPoint or discarded.
type Fix struct {
	Provider  Provider
	Latitude  float64
	Longitude float64
	Altitude  float64
	// Accuracy is the estimated horizontal accuracy radius in meters.
	Accuracy float64
	// Time is the wall-clock time of the observation.
	Time time.Time
	// ElapsedRealtime is the monotonic time since boot of the clock that
	// observed the fix. Staleness math uses this, never Time.
	ElapsedRealtime time.Duration
}

// Validate checks that the fix carries a usable position.
func (f Fix) Validate() error {
	if f.Provider == "" {
		return fmt.Errorf("%w: provider is required", ErrValidation)
	}
	if f.Latitude < -90 || f.Latitude > 90 {
		return fmt.Errorf("%w: latitude must be within [-90, 90]", ErrValidation)
	}
	if f.Longitude < -180 || f.Longitude > 180 {
		return fmt.Errorf("%w: longitude must be within [-180, 180]", ErrValidation)
	}
	if f.Accuracy < 0 {
		return fmt.Errorf("%w: accuracy must not be negative", ErrValidation)
	}
	if f.Time.IsZero() {
		return fmt.Errorf("%w: time is required", ErrValidation)
	}
	return nil
}

// WayPoint promotes the fix into a way-point.
func (f Fix) WayPoint(stopOver bool) WayPoint {
	return WayPoint{
		Latitude:        f.Latitude,
		Longitude:       f.Longitude,
		Altitude:        f.Altitude,
		Accuracy:        f.Accuracy,
		Provider:        f.Provider,
		Time:            f.Time,
		ElapsedRealtime: f.ElapsedRealtime,
		StopOver:        stopOver,
	}
}
