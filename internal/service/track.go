package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/events"
	"github.com/pkordes/trackbook/backend/internal/location"
	"github.com/pkordes/trackbook/backend/internal/repo"
	"github.com/pkordes/trackbook/backend/internal/units"
)

// trackForgetter is the part of Recorder that TrackService needs.
type trackForgetter interface {
	Forget(trackID uuid.UUID)
}

// Statistics are the display values of a track, formatted in one unit system.
// Elevation fields are empty when the track has no reliable elevation data and
// StepCount is empty without pedometer data.
type Statistics struct {
	TrackID           uuid.UUID
	Name              string
	Units             units.System
	Distance          string
	Duration          string
	WayPoints         int
	StepCount         string
	PositiveElevation string
	NegativeElevation string
	MaxAltitude       string
	MinAltitude       string
	RecordingStart    time.Time
	RecordingStop     *time.Time
	Recording         bool
}

// TrackService implements read and delete operations on stored tracks.
type TrackService struct {
	repo     repo.TrackRepo
	recorder trackForgetter
	events   events.Publisher
	logger   *slog.Logger
}

// NewTrackService constructs a TrackService. Deleted tracks are dropped from
// the recorder and announced on p.
func NewTrackService(r repo.TrackRepo, recorder trackForgetter, p events.Publisher, logger *slog.Logger) *TrackService {
	return &TrackService{repo: r, recorder: recorder, events: p, logger: logger}
}

// GetByID returns a single track with all of its way-points.
func (s *TrackService) GetByID(ctx context.Context, id uuid.UUID) (domain.Track, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Track{}, fmt.Errorf("service.TrackService.GetByID: %w", err)
	}
	return t, nil
}

// Exists returns domain.ErrNotFound unless the track id exists. Way-points
// are not loaded.
func (s *TrackService) Exists(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("service.TrackService.Exists: %w", err)
	}
	if !ok {
		return fmt.Errorf("service.TrackService.Exists: %w", domain.ErrNotFound)
	}
	return nil
}

// ListPaged returns one page of track summaries.
func (s *TrackService) ListPaged(ctx context.Context, p domain.PaginationParams) (domain.TrackPage, error) {
	page, err := s.repo.ListPaged(ctx, p)
	if err != nil {
		return domain.TrackPage{}, fmt.Errorf("service.TrackService.ListPaged: %w", err)
	}
	return page, nil
}

// Delete removes a track. A track that is still recording stops recording.
func (s *TrackService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TrackService.Delete: %w", err)
	}
	s.recorder.Forget(id)
	if err := s.events.Publish(ctx, events.Deleted(id, time.Now())); err != nil {
		s.logger.WarnContext(ctx, "event publish failed", "type", events.TrackDeleted, "track_id", id, "error", err)
	}
	s.logger.InfoContext(ctx, "track deleted", "track_id", id)
	return nil
}

// Statistics returns the display statistics of a track in system sys.
func (s *TrackService) Statistics(ctx context.Context, id uuid.UUID, sys units.System) (Statistics, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Statistics{}, fmt.Errorf("service.TrackService.Statistics: %w", err)
	}

	duration, _ := location.ReadableDuration(t.Duration(), true)
	st := Statistics{
		TrackID:        t.ID,
		Name:           t.Name,
		Units:          sys,
		Distance:       units.Distance(t.Distance, sys),
		Duration:       duration,
		WayPoints:      t.Size(),
		RecordingStart: t.RecordingStart,
		RecordingStop:  t.RecordingStop,
		Recording:      !t.Closed(),
	}
	if t.HasStepCount() {
		st.StepCount = fmt.Sprintf("%.0f", t.StepCount)
	}
	if t.HasElevation() {
		st.PositiveElevation = units.Altitude(t.PositiveElevation, sys)
		st.NegativeElevation = units.Altitude(t.NegativeElevation, sys)
		st.MaxAltitude = units.Altitude(t.MaxAltitude, sys)
		st.MinAltitude = units.Altitude(t.MinAltitude, sys)
	}
	return st, nil
}
