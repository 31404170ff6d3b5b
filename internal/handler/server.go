// Package handler implements the HTTP handlers for the Trackbook API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, track.go, recording.go, etc.) but all share the same
// Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/events"
	"github.com/pkordes/trackbook/backend/internal/service"
	"github.com/pkordes/trackbook/backend/internal/units"
)

// Recorder defines the recording operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type Recorder interface {
	Start(ctx context.Context, start time.Time) (domain.Track, error)
	Submit(ctx context.Context, trackID uuid.UUID, fix domain.Fix, stopOver bool) (service.Decision, error)
	Stop(ctx context.Context, trackID uuid.UUID, stop time.Time) (domain.Track, error)
	Current() service.CurrentLocation
}

// TrackServicer defines the read and delete operations on stored tracks.
type TrackServicer interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Track, error)
	Exists(ctx context.Context, id uuid.UUID) error
	ListPaged(ctx context.Context, p domain.PaginationParams) (domain.TrackPage, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Statistics(ctx context.Context, id uuid.UUID, sys units.System) (service.Statistics, error)
}

// Exporter renders tracks and writes export files.
type Exporter interface {
	Render(ctx context.Context, id uuid.UUID, f service.Format) (service.Rendered, error)
	Write(ctx context.Context, id uuid.UUID, f service.Format, name string) (service.ExportResult, error)
	WriteAsync(ctx context.Context, id uuid.UUID, f service.Format, name string) <-chan service.ExportResult
}

// Subscriber hands out per-track event streams for websocket clients.
type Subscriber interface {
	Register(trackID uuid.UUID) *events.Client
	Unregister(c *events.Client)
}

// Server serves every API endpoint. Wire it in main.go via Routes.
type Server struct {
	recorder Recorder
	tracks   TrackServicer
	exports  Exporter
	hub      Subscriber
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer constructs the Server with all its dependencies.
func NewServer(recorder Recorder, tracks TrackServicer, exports Exporter, hub Subscriber, logger *slog.Logger) *Server {
	return &Server{
		recorder: recorder,
		tracks:   tracks,
		exports:  exports,
		hub:      hub,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS middleware for browser
			// clients; recording devices send no Origin header.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil, slog.Default())
}

// Routes returns the chi router for all API endpoints.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)
	r.Get("/location", s.GetLocation)

	r.Route("/tracks", func(r chi.Router) {
		r.Post("/", s.StartTrack)
		r.Get("/", s.ListTracks)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetTrack)
			r.Delete("/", s.DeleteTrack)
			r.Post("/fixes", s.SubmitFix)
			r.Post("/stop", s.StopTrack)
			r.Get("/statistics", s.GetStatistics)
			r.Get("/export", s.GetExport)
			r.Post("/export", s.WriteExport)
			r.Get("/ws", s.StreamTrack)
		})
	})

	return r
}
