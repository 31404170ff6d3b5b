package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/units"
)

// StartTrack handles POST /tracks.
// The body is optional; recording_start defaults to now.
func (s *Server) StartTrack(w http.ResponseWriter, r *http.Request) {
	var body StartTrackRequest
	if !decodeBody(w, r, &body, true) {
		return
	}

	var start time.Time
	if body.RecordingStart != nil {
		start = *body.RecordingStart
	}

	created, err := s.recorder.Start(r.Context(), start)
	if err != nil {
		s.writeError(w, r, err, "track")
		return
	}
	writeJSON(w, http.StatusCreated, trackToResponse(created))
}

// ListTracks handles GET /tracks.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTracks(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	if !queryParam(w, r, "page", &page) || !queryParam(w, r, "limit", &limit) {
		return
	}

	params := domain.NewPaginationParams(page, limit)
	result, err := s.tracks.ListPaged(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err, "track")
		return
	}

	data := make([]TrackSummary, len(result.Tracks))
	for i, t := range result.Tracks {
		data[i] = trackToSummary(t)
	}
	writeJSON(w, http.StatusOK, TrackList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(result.Total),
		},
	})
}

// GetTrack handles GET /tracks/{id}.
func (s *Server) GetTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}

	t, err := s.tracks.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err, "track")
		return
	}
	writeJSON(w, http.StatusOK, trackToResponse(t))
}

// DeleteTrack handles DELETE /tracks/{id}.
func (s *Server) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}

	if err := s.tracks.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err, "track")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetStatistics handles GET /tracks/{id}/statistics.
// ?units=imperial switches the formatted values from the metric default.
func (s *Server) GetStatistics(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	var system *string
	if !queryParam(w, r, "units", &system) {
		return
	}

	sys := units.Metric
	if system != nil {
		sys = units.Parse(*system)
	}

	stats, err := s.tracks.Statistics(r.Context(), id, sys)
	if err != nil {
		s.writeError(w, r, err, "track")
		return
	}
	writeJSON(w, http.StatusOK, statisticsToResponse(stats))
}
