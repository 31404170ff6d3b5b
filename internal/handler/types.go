package handler

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/service"
)

// Request and response bodies. Field names and JSON tags match the schemas
// in spec/openapi.yaml.

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// StartTrackRequest is the optional body of POST /tracks.
type StartTrackRequest struct {
	RecordingStart *time.Time `json:"recording_start,omitempty"`
}

// FixRequest is the body of POST /tracks/{id}/fixes. Time defaults to the
// server clock when omitted.
type FixRequest struct {
	Provider  string     `json:"provider"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Altitude  float64    `json:"altitude"`
	Accuracy  float64    `json:"accuracy"`
	Time      *time.Time `json:"time,omitempty"`
	StopOver  bool       `json:"stop_over"`
}

type StopTrackRequest struct {
	RecordingStop *time.Time `json:"recording_stop,omitempty"`
}

// ExportRequest is the optional body of POST /tracks/{id}/export.
type ExportRequest struct {
	Format string  `json:"format,omitempty"`
	Name   *string `json:"name,omitempty"`
	Async  bool    `json:"async,omitempty"`
}

type WayPoint struct {
	Latitude            float64   `json:"latitude"`
	Longitude           float64   `json:"longitude"`
	Altitude            float64   `json:"altitude"`
	Accuracy            float64   `json:"accuracy"`
	Provider            string    `json:"provider"`
	Time                time.Time `json:"time"`
	ElapsedRealtimeMs   int64     `json:"elapsed_realtime_ms"`
	StopOver            bool      `json:"stop_over"`
	DistanceToPreviousM float64   `json:"distance_to_previous_m"`
}

// TrackSummary is a track without its way-points, as listed by GET /tracks.
type TrackSummary struct {
	Id                 openapi_types.UUID `json:"id"`
	Name               string             `json:"name"`
	RecordingStart     time.Time          `json:"recording_start"`
	RecordingStop      *time.Time         `json:"recording_stop"`
	Recording          bool               `json:"recording"`
	DurationMs         int64              `json:"duration_ms"`
	StepCount          float64            `json:"step_count"`
	DistanceM          float64            `json:"distance_m"`
	PositiveElevationM float64            `json:"positive_elevation_m"`
	NegativeElevationM float64            `json:"negative_elevation_m"`
	MinAltitudeM       float64            `json:"min_altitude_m"`
	MaxAltitudeM       float64            `json:"max_altitude_m"`
	FormatVersion      int                `json:"track_format_version"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type Track struct {
	TrackSummary
	WayPoints []WayPoint `json:"way_points"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type TrackList struct {
	Data       []TrackSummary `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

type FixDecision struct {
	Accepted bool      `json:"accepted"`
	Reason   string    `json:"reason"`
	WayPoint *WayPoint `json:"way_point,omitempty"`
}

type Statistics struct {
	TrackId           openapi_types.UUID `json:"track_id"`
	Name              string             `json:"name"`
	Units             string             `json:"units"`
	Distance          string             `json:"distance"`
	Duration          string             `json:"duration"`
	WayPoints         int                `json:"way_points"`
	StepCount         string             `json:"step_count,omitempty"`
	PositiveElevation string             `json:"positive_elevation,omitempty"`
	NegativeElevation string             `json:"negative_elevation,omitempty"`
	MaxAltitude       string             `json:"max_altitude,omitempty"`
	MinAltitude       string             `json:"min_altitude,omitempty"`
	RecordingStart    time.Time          `json:"recording_start"`
	RecordingStop     *time.Time         `json:"recording_stop"`
	Recording         bool               `json:"recording"`
}

type ExportFile struct {
	FileName string `json:"file_name"`
	Path     string `json:"path"`
	Bytes    int    `json:"bytes"`
	Replaced bool   `json:"replaced"`
}

type ExportAccepted struct {
	Status string `json:"status"`
}

type Fix struct {
	Provider          string    `json:"provider"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Altitude          float64   `json:"altitude"`
	Accuracy          float64   `json:"accuracy"`
	Time              time.Time `json:"time"`
	ElapsedRealtimeMs int64     `json:"elapsed_realtime_ms"`
}

// Location is the body of GET /location. Fix is null before the first fix.
type Location struct {
	Fix         *Fix   `json:"fix"`
	IsCurrent   bool   `json:"is_current"`
	AgeMs       int64  `json:"age_ms"`
	ReadableAge string `json:"readable_age,omitempty"`
}

// ---- conversions ------------------------------------------------------------

func wayPointToResponse(wp domain.WayPoint) WayPoint {
	return WayPoint{
		Latitude:            wp.Latitude,
		Longitude:           wp.Longitude,
		Altitude:            wp.Altitude,
		Accuracy:            wp.Accuracy,
		Provider:            string(wp.Provider),
		Time:                wp.Time.UTC(),
		ElapsedRealtimeMs:   wp.ElapsedRealtime.Milliseconds(),
		StopOver:            wp.StopOver,
		DistanceToPreviousM: wp.DistanceToPrevious,
	}
}

// trackToSummary converts a domain.Track without its way-points.
func trackToSummary(t domain.Track) TrackSummary {
	return TrackSummary{
		Id:                 t.ID,
		Name:               t.Name,
		RecordingStart:     t.RecordingStart,
		RecordingStop:      t.RecordingStop,
		Recording:          !t.Closed(),
		DurationMs:         t.Duration().Milliseconds(),
		StepCount:          t.StepCount,
		DistanceM:          t.Distance,
		PositiveElevationM: t.PositiveElevation,
		NegativeElevationM: t.NegativeElevation,
		MinAltitudeM:       t.MinAltitude,
		MaxAltitudeM:       t.MaxAltitude,
		FormatVersion:      t.FormatVersion,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func trackToResponse(t domain.Track) Track {
	wps := make([]WayPoint, len(t.WayPoints))
	for i, wp := range t.WayPoints {
		wps[i] = wayPointToResponse(wp)
	}
	return Track{TrackSummary: trackToSummary(t), WayPoints: wps}
}

func statisticsToResponse(s service.Statistics) Statistics {
	return Statistics{
		TrackId:           s.TrackID,
		Name:              s.Name,
		Units:             string(s.Units),
		Distance:          s.Distance,
		Duration:          s.Duration,
		WayPoints:         s.WayPoints,
		StepCount:         s.StepCount,
		PositiveElevation: s.PositiveElevation,
		NegativeElevation: s.NegativeElevation,
		MaxAltitude:       s.MaxAltitude,
		MinAltitude:       s.MinAltitude,
		RecordingStart:    s.RecordingStart,
		RecordingStop:     s.RecordingStop,
		Recording:         s.Recording,
	}
}

func locationToResponse(c service.CurrentLocation) Location {
	if c.Fix == nil {
		return Location{}
	}
	return Location{
		Fix: &Fix{
			Provider:          string(c.Fix.Provider),
			Latitude:          c.Fix.Latitude,
			Longitude:         c.Fix.Longitude,
			Altitude:          c.Fix.Altitude,
			Accuracy:          c.Fix.Accuracy,
			Time:              c.Fix.Time.UTC(),
			ElapsedRealtimeMs: c.Fix.ElapsedRealtime.Milliseconds(),
		},
		IsCurrent:   c.IsCurrent,
		AgeMs:       c.Age.Milliseconds(),
		ReadableAge: c.ReadableAge,
	}
}
