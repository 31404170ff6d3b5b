package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/trackbook/backend/internal/domain"
)

// SubmitFix handles POST /tracks/{id}/fixes.
// A fix the arbiter rejects is still a 200; the body says why.
func (s *Server) SubmitFix(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}

	var body FixRequest
	if !decodeBody(w, r, &body, false) {
		return
	}
	fix, msg := requestToFix(body)
	if msg != "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(msg))
		return
	}

	decision, err := s.recorder.Submit(r.Context(), id, fix, body.StopOver)
	if err != nil {
		s.writeError(w, r, err, "track")
		return
	}

	resp := FixDecision{Accepted: decision.Accepted, Reason: decision.Reason}
	if decision.WayPoint != nil {
		wp := wayPointToResponse(*decision.WayPoint)
		resp.WayPoint = &wp
	}
	writeJSON(w, http.StatusOK, resp)
}

// StopTrack handles POST /tracks/{id}/stop.
// The body is optional; recording_stop defaults to now.
func (s *Server) StopTrack(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}

	var body StopTrackRequest
	if !decodeBody(w, r, &body, true) {
		return
	}
	var stop time.Time
	if body.RecordingStop != nil {
		stop = *body.RecordingStop
	}

	final, err := s.recorder.Stop(r.Context(), id, stop)
	if err != nil {
		s.writeError(w, r, err, "track")
		return
	}
	writeJSON(w, http.StatusOK, trackToResponse(final))
}

// requestToFix converts the request body into a domain.Fix. It returns a
// message when a required coordinate is missing; range checks are left to
// domain.Fix.Validate.
func requestToFix(body FixRequest) (domain.Fix, string) {
	if body.Latitude == nil {
		return domain.Fix{}, "latitude is required"
	}
	if body.Longitude == nil {
		return domain.Fix{}, "longitude is required"
	}
	fix := domain.Fix{
		Provider:  domain.Provider(body.Provider),
		Latitude:  *body.Latitude,
		Longitude: *body.Longitude,
		Altitude:  body.Altitude,
		Accuracy:  body.Accuracy,
		Time:      time.Now(),
	}
	if body.Time != nil {
		fix.Time = *body.Time
	}
	return fix, ""
}
