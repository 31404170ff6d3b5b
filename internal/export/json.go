package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trackbook/backend/internal/domain"
)

// JSONDateLayout is the format of every date field in a JSON export
// (M/d/yy hh:mm a), always rendered in UTC.
const JSONDateLayout = "1/2/06 03:04 PM"

// JSONExtension is the file extension of JSON exports.
const JSONExtension = ".json"

// jsonTrack is the JSON export schema. Field names are an external contract.
type jsonTrack struct {
	ID                uuid.UUID      `json:"id"`
	Name              string         `json:"name"`
	FormatVersion     int            `json:"track_format_version"`
	RecordingStart    string         `json:"recording_start"`
	RecordingStop     *string        `json:"recording_stop"`
	DurationMillis    int64          `json:"duration_ms"`
	StepCount         float64        `json:"step_count"`
	Distance          float64        `json:"distance_m"`
	PositiveElevation float64        `json:"positive_elevation_m"`
	NegativeElevation float64        `json:"negative_elevation_m"`
	MinAltitude       float64        `json:"min_altitude_m"`
	MaxAltitude       float64        `json:"max_altitude_m"`
	WayPoints         []jsonWayPoint `json:"way_points"`
}

type jsonWayPoint struct {
	Latitude              float64 `json:"latitude"`
	Longitude             float64 `json:"longitude"`
	Altitude              float64 `json:"altitude"`
	Accuracy              float64 `json:"accuracy"`
	Provider              string  `json:"provider"`
	TimeMillis            int64   `json:"time"`
	ElapsedRealtimeMillis int64   `json:"elapsed_realtime_ms"`
	StopOver              bool    `json:"stop_over"`
	DistanceToPreviousM   float64 `json:"distance_to_previous_m"`
}

// JSON renders t as an indented JSON document.
func JSON(t domain.Track) ([]byte, error) {
	doc := jsonTrack{
		ID:                t.ID,
		Name:              t.Name,
		FormatVersion:     t.FormatVersion,
		RecordingStart:    formatJSONDate(t.RecordingStart),
		DurationMillis:    t.Duration().Milliseconds(),
		StepCount:         t.StepCount,
		Distance:          t.Distance,
		PositiveElevation: t.PositiveElevation,
		NegativeElevation: t.NegativeElevation,
		MinAltitude:       t.MinAltitude,
		MaxAltitude:       t.MaxAltitude,
		WayPoints:         make([]jsonWayPoint, 0, len(t.WayPoints)),
	}
	if t.RecordingStop != nil {
		stop := formatJSONDate(*t.RecordingStop)
		doc.RecordingStop = &stop
	}
	for _, wp := range t.WayPoints {
		doc.WayPoints = append(doc.WayPoints, jsonWayPoint{
			Latitude:              wp.Latitude,
			Longitude:             wp.Longitude,
			Altitude:              wp.Altitude,
			Accuracy:              wp.Accuracy,
			Provider:              string(wp.Provider),
			TimeMillis:            wp.Time.UnixMilli(),
			ElapsedRealtimeMillis: wp.ElapsedRealtime.Milliseconds(),
			StopOver:              wp.StopOver,
			DistanceToPreviousM:   wp.DistanceToPrevious,
		})
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export.JSON: %w", err)
	}
	return append(out, '\n'), nil
}

// JSONFileName returns name with the JSON extension. The name is always
// supplied by the caller; there is no implicit default.
func JSONFileName(name string) string {
	return name + JSONExtension
}

func formatJSONDate(t time.Time) string {
	return t.UTC().Format(JSONDateLayout)
}
