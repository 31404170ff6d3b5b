package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkordes/trackbook/backend/internal/service"
)

// GetExport handles GET /tracks/{id}/export.
// Use ?format=json to receive the JSON document; default is GPX.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	var format *string
	if !queryParam(w, r, "format", &format) {
		return
	}
	f, err := service.ParseFormat(deref(format))
	if err != nil {
		s.writeError(w, r, err, "track")
		return
	}

	doc, err := s.exports.Render(r.Context(), id, f)
	if err != nil {
		s.writeError(w, r, err, "track")
		return
	}

	w.Header().Set("Content-Type", doc.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

// WriteExport handles POST /tracks/{id}/export.
// The file is written into the export directory. With "async": true the
// write continues after the response and 202 is returned; the outcome is
// only logged.
func (s *Server) WriteExport(w http.ResponseWriter, r *http.Request) {
	id, ok := trackID(w, r)
	if !ok {
		return
	}
	var body ExportRequest
	if !decodeBody(w, r, &body, true) {
		return
	}
	f, err := service.ParseFormat(body.Format)
	if err != nil {
		s.writeError(w, r, err, "track")
		return
	}
	name := deref(body.Name)

	if !body.Async {
		res, err := s.exports.Write(r.Context(), id, f, name)
		if err != nil {
			s.writeError(w, r, err, "track")
			return
		}
		writeJSON(w, http.StatusCreated, ExportFile{FileName: res.FileName, Path: res.Path, Bytes: res.Bytes, Replaced: res.Replaced})
		return
	}

	// Report a missing track now rather than only in the log.
	if err := s.tracks.Exists(r.Context(), id); err != nil {
		s.writeError(w, r, err, "track")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	done := s.exports.WriteAsync(ctx, id, f, name)
	go func() {
		if res := <-done; res.Err != nil {
			s.logger.ErrorContext(ctx, "async export failed", "track_id", id, "format", f, "error", res.Err)
		}
	}()
	writeJSON(w, http.StatusAccepted, ExportAccepted{Status: "accepted"})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
