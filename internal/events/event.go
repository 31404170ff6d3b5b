// Package events carries recording events from the recorder to live
// subscribers (websocket clients, other instances via Redis) and to Kafka.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trackbook/backend/internal/domain"
)

// Type names what happened to a track.
type Type string

const (
	TrackStarted   Type = "track.started"
	WayPointAdded  Type = "waypoint.added"
	TrackFinalized Type = "track.finalized"
	TrackDeleted   Type = "track.deleted"
)

// Event is the wire form of a recording event. It is built from track
// snapshots and never references recorder state.
type Event struct {
	Type     Type          `json:"type"`
	TrackID  uuid.UUID     `json:"track_id"`
	At       time.Time     `json:"at"`
	WayPoint *WayPoint     `json:"way_point,omitempty"`
	Track    *TrackSummary `json:"track,omitempty"`
}

// WayPoint is the event form of a domain.WayPoint.
type WayPoint struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Altitude           float64   `json:"altitude"`
	Accuracy           float64   `json:"accuracy"`
	Provider           string    `json:"provider"`
	Time               time.Time `json:"time"`
	StopOver           bool      `json:"stop_over"`
	DistanceToPrevious float64   `json:"distance_to_previous_m"`
}

// TrackSummary is the event form of a track's statistics.
type TrackSummary struct {
	Name           string     `json:"name"`
	WayPoints      int        `json:"way_points"`
	Distance       float64    `json:"distance_m"`
	DurationMillis int64      `json:"duration_ms"`
	RecordingStart time.Time  `json:"recording_start"`
	RecordingStop  *time.Time `json:"recording_stop"`
}

// Publisher delivers events to one sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Started builds a TrackStarted event.
func Started(t domain.Track, at time.Time) Event {
	return Event{Type: TrackStarted, TrackID: t.ID, At: at, Track: summarize(t)}
}

// Appended builds a WayPointAdded event for wp, the newest way-point of t.
func Appended(t domain.Track, wp domain.WayPoint, at time.Time) Event {
	return Event{
		Type:    WayPointAdded,
		TrackID: t.ID,
		At:      at,
		WayPoint: &WayPoint{
			Latitude:           wp.Latitude,
			Longitude:          wp.Longitude,
			Altitude:           wp.Altitude,
			Accuracy:           wp.Accuracy,
			Provider:           string(wp.Provider),
			Time:               wp.Time,
			StopOver:           wp.StopOver,
			DistanceToPrevious: wp.DistanceToPrevious,
		},
		Track: summarize(t),
	}
}

// Finalized builds a TrackFinalized event.
func Finalized(t domain.Track, at time.Time) Event {
	return Event{Type: TrackFinalized, TrackID: t.ID, At: at, Track: summarize(t)}
}

// Deleted builds a TrackDeleted event.
func Deleted(id uuid.UUID, at time.Time) Event {
	return Event{Type: TrackDeleted, TrackID: id, At: at}
}

func summarize(t domain.Track) *TrackSummary {
	s := &TrackSummary{
		Name:           t.Name,
		WayPoints:      t.Size(),
		Distance:       t.Distance,
		DurationMillis: t.Duration().Milliseconds(),
		RecordingStart: t.RecordingStart,
	}
	if t.RecordingStop != nil {
		stop := *t.RecordingStop
		s.RecordingStop = &stop
	}
	return s
}
