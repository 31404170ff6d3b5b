package handler

import (
	"net/http"

	"github.com/pkordes/trackbook/backend/spec"
)

// GetHealth handles GET /healthz.
// It returns HTTP 200 with {"status":"ok"} when the server is running.
func (s *Server) GetHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// GetOpenAPI handles GET /openapi.yaml by serving the embedded document.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(spec.OpenAPI)
}

// GetLocation handles GET /location.
// The fix is null until the recorder has seen one.
func (s *Server) GetLocation(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, locationToResponse(s.recorder.Current()))
}
