// Package domain contains the core data types for the Trackbook service:
// fixes, way-points and tracks, plus the sentinel errors shared by every
// other internal package (location, export, repo, service, handler).
package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// CurrentFormatVersion is the format version of tracks recorded by this
// service. Tracks with version 1 or lower lack reliable elevation data.
const CurrentFormatVersion = 2

// NoStepCount is the StepCount sentinel for "no pedometer data".
const NoStepCount = -1

// trackNameLayout is the default name of a track, derived from its start.
const trackNameLayout = "2006-01-02-15-04-05"

// Track is an ordered sequence of way-points plus summary statistics.
// Way-points are kept in insertion order, which is chronological order.
// A track is mutated only through Append while recording; once Finalize has
// been called it no longer changes.
type Track struct {
	ID        uuid.UUID
	Name      string
	WayPoints []WayPoint

	RecordingStart time.Time
	RecordingStop  *time.Time // nil while recording

	// StepCount is NoStepCount when the recording device has no pedometer.
	StepCount float64

	// Distance is the accumulated way-point to way-point distance in meters.
	Distance float64

	// PositiveElevation is the sum of all climbs in meters (>= 0).
	// NegativeElevation is the sum of all descents in meters (<= 0).
	PositiveElevation float64
	NegativeElevation float64

	MinAltitude float64
	MaxAltitude float64

	FormatVersion int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTrack returns an empty, open track starting at start.
func NewTrack(start time.Time) Track {
	return Track{
		ID:             uuid.New(),
		Name:           DefaultTrackName(start),
		WayPoints:      []WayPoint{},
		RecordingStart: start,
		StepCount:      NoStepCount,
		FormatVersion:  CurrentFormatVersion,
	}
}

// DefaultTrackName formats start as yyyy-MM-dd-HH-mm-ss in UTC.
func DefaultTrackName(start time.Time) string {
	return start.UTC().Format(trackNameLayout)
}

// Closed reports whether the track has been finalized.
func (t *Track) Closed() bool {
	return t.RecordingStop != nil
}

// Size returns the number of way-points.
func (t *Track) Size() int {
	return len(t.WayPoints)
}

// LastWayPoint returns the most recent way-point, if any.
func (t *Track) LastWayPoint() (WayPoint, bool) {
	if len(t.WayPoints) == 0 {
		return WayPoint{}, false
	}
	return t.WayPoints[len(t.WayPoints)-1], true
}

// Append adds wp at the end of the track and updates the summary statistics.
// It returns the way-point as stored, with DistanceToPrevious filled in.
//
// Returns ErrTrackClosed if the track is finalized and ErrOutOfOrder if wp is
// older than the last way-point. Filtering such fixes is the recorder's job;
// Append only refuses to break the ordering invariant.
func (t *Track) Append(wp WayPoint) (WayPoint, error) {
	if t.Closed() {
		return WayPoint{}, ErrTrackClosed
	}

	wp.DistanceToPrevious = 0
	last, ok := t.LastWayPoint()
	if ok {
		if wp.Time.Before(last.Time) {
			return WayPoint{}, ErrOutOfOrder
		}
		wp.DistanceToPrevious = DistanceMeters(last.Latitude, last.Longitude, wp.Latitude, wp.Longitude)
		t.Distance += wp.DistanceToPrevious

		climb := wp.Altitude - last.Altitude
		if climb > 0 {
			t.PositiveElevation += climb
		} else {
			t.NegativeElevation += climb
		}
		t.MinAltitude = min(t.MinAltitude, wp.Altitude)
		t.MaxAltitude = max(t.MaxAltitude, wp.Altitude)
	} else {
		t.MinAltitude = wp.Altitude
		t.MaxAltitude = wp.Altitude
	}

	t.WayPoints = append(t.WayPoints, wp)
	return wp, nil
}

// Finalize closes the track at stop, freezing its statistics.
// Returns ErrTrackClosed if already finalized and ErrValidation if stop
// precedes the start of the recording or its last way-point.
func (t *Track) Finalize(stop time.Time) error {
	if t.Closed() {
		return ErrTrackClosed
	}
	if stop.Before(t.RecordingStart) {
		return fmt.Errorf("%w: recording stop must not be before recording start", ErrValidation)
	}
	if last, ok := t.LastWayPoint(); ok && stop.Before(last.Time) {
		return fmt.Errorf("%w: recording stop must not be before the last way-point", ErrValidation)
	}
	t.RecordingStop = &stop
	return nil
}

// Duration returns the length of the recording. For an open track it is the
// time between the start and the last way-point.
func (t *Track) Duration() time.Duration {
	if t.RecordingStop != nil {
		return t.RecordingStop.Sub(t.RecordingStart)
	}
	if last, ok := t.LastWayPoint(); ok {
		return last.Time.Sub(t.RecordingStart)
	}
	return 0
}

// HasElevation reports whether the elevation statistics are meaningful.
func (t *Track) HasElevation() bool {
	return t.FormatVersion > 1 && t.MinAltitude > 0
}

// HasStepCount reports whether pedometer data was recorded.
func (t *Track) HasStepCount() bool {
	return t.StepCount != NoStepCount
}

// Snapshot returns a deep copy that shares no memory with t.
func (t *Track) Snapshot() Track {
	c := *t
	c.WayPoints = slices.Clone(t.WayPoints)
	if c.WayPoints == nil {
		c.WayPoints = []WayPoint{}
	}
	if t.RecordingStop != nil {
		stop := *t.RecordingStop
		c.RecordingStop = &stop
	}
	return c
}
