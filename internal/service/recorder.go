// Package service contains the business logic for the Trackbook API.
// Services validate inputs, enforce recording rules, and orchestrate repo
// calls and event publishing. No SQL lives here; services depend on repo
// interfaces, not implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/events"
	"github.com/pkordes/trackbook/backend/internal/location"
	"github.com/pkordes/trackbook/backend/internal/observability"
	"github.com/pkordes/trackbook/backend/internal/repo"
)

// Decision is the outcome of submitting a fix to a recording track.
type Decision struct {
	Accepted bool
	// Reason is one of the observability.Fix* decision labels.
	Reason string
	// WayPoint is the stored way-point when Accepted.
	WayPoint *domain.WayPoint
}

// CurrentLocation is the best fix seen by the recorder across all tracks.
type CurrentLocation struct {
	Fix         *domain.Fix // nil before the first fix
	IsCurrent   bool
	Age         time.Duration
	ReadableAge string
}

// Recorder is the single writer of recording tracks. It holds every open
// track in memory, runs each submitted fix through the location arbiter and
// persists accepted fixes as way-points.
//
// One mutex serializes Start, Submit and Stop. Events are built from copies
// under the lock and published after it is released, so a slow sink never
// blocks other tracks.
type Recorder struct {
	repo    repo.TrackRepo
	arbiter *location.Arbiter
	events  events.Publisher
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	active map[uuid.UUID]*activeTrack
	best   *domain.Fix
}

type activeTrack struct {
	track domain.Track
	// best is the fix the track's last way-point was made from. nil until
	// the first fix after start or resume.
	best *domain.Fix
}

// NewRecorder constructs a Recorder.
func NewRecorder(r repo.TrackRepo, a *location.Arbiter, p events.Publisher, logger *slog.Logger) *Recorder {
	return &Recorder{
		repo:    r,
		arbiter: a,
		events:  p,
		logger:  logger,
		now:     time.Now,
		active:  map[uuid.UUID]*activeTrack{},
	}
}

// Resume loads every unfinalized track from the database so recording can
// continue after a restart. Held fixes are not restored: their elapsed
// realtime belongs to the previous process clock.
func (r *Recorder) Resume(ctx context.Context) (int, error) {
	open, err := r.repo.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("service.Recorder.Resume: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range open {
		if _, ok := r.active[t.ID]; !ok {
			r.active[t.ID] = &activeTrack{track: t}
		}
	}
	observability.SetActiveTracks(len(r.active))
	return len(open), nil
}

// Start creates, persists and registers a new recording track. A zero start
// means now.
func (r *Recorder) Start(ctx context.Context, start time.Time) (domain.Track, error) {
	if start.IsZero() {
		start = r.now()
	}

	created, err := r.repo.Create(ctx, domain.NewTrack(start))
	if err != nil {
		return domain.Track{}, fmt.Errorf("service.Recorder.Start: %w", err)
	}

	r.mu.Lock()
	r.active[created.ID] = &activeTrack{track: created}
	observability.SetActiveTracks(len(r.active))
	r.mu.Unlock()

	r.publish(ctx, events.Started(created, r.now()))
	r.logger.InfoContext(ctx, "recording started", "track_id", created.ID, "name", created.Name)
	return created.Snapshot(), nil
}

// Submit offers fix to the recording track trackID.
//
// A fix without elapsed realtime is stamped with the arbiter clock. Fixes the
// arbiter rejects, and fixes older than the last way-point, are reported as a
// rejected Decision rather than an error. Returns domain.ErrValidation for an
// unusable fix, domain.ErrNotFound for an unknown track and
// domain.ErrTrackClosed for a finalized one.
func (r *Recorder) Submit(ctx context.Context, trackID uuid.UUID, fix domain.Fix, stopOver bool) (Decision, error) {
	if err := fix.Validate(); err != nil {
		return Decision{}, fmt.Errorf("service.Recorder.Submit: %w", err)
	}
	if fix.ElapsedRealtime == 0 {
		fix.ElapsedRealtime = r.arbiter.Now()
	}

	r.mu.Lock()
	d, ev, err := r.submitLocked(ctx, trackID, fix, stopOver)
	r.mu.Unlock()
	if err != nil {
		return Decision{}, fmt.Errorf("service.Recorder.Submit: %w", err)
	}
	if ev != nil {
		r.publish(ctx, *ev)
	}
	return d, nil
}

// submitLocked runs fix through the arbiter and persists it. The returned
// event is non-nil for an accepted fix. Callers hold r.mu.
func (r *Recorder) submitLocked(ctx context.Context, trackID uuid.UUID, fix domain.Fix, stopOver bool) (Decision, *events.Event, error) {
	at, err := r.lookup(ctx, trackID)
	if err != nil {
		return Decision{}, nil, err
	}

	if !r.arbiter.IsBetterLocation(&fix, at.best) {
		return r.reject(ctx, trackID, observability.FixRejectedWorse), nil, nil
	}

	prev := at.track
	wp, err := at.track.Append(fix.WayPoint(stopOver))
	if errors.Is(err, domain.ErrOutOfOrder) {
		return r.reject(ctx, trackID, observability.FixRejectedOutOfOrder), nil, nil
	}
	if err != nil {
		return Decision{}, nil, err
	}

	if err := r.repo.AppendWayPoint(ctx, at.track); err != nil {
		at.track = prev
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted or finalized behind the recorder's back.
			r.forget(trackID)
		}
		return Decision{}, nil, err
	}

	held := fix
	at.best = &held
	// Only stored fixes become the process-wide location.
	if r.arbiter.IsBetterLocation(&fix, r.best) {
		best := fix
		r.best = &best
	}
	observability.RecordFix(observability.FixAccepted)
	ev := events.Appended(at.track, wp, r.now())

	r.logger.DebugContext(ctx, "fix accepted",
		"track_id", trackID, "provider", fix.Provider, "accuracy", fix.Accuracy, "way_points", at.track.Size())
	return Decision{Accepted: true, Reason: observability.FixAccepted, WayPoint: &wp}, &ev, nil
}

// Stop finalizes the recording track trackID at stop (zero means now),
// persists it and stops accepting fixes for it.
func (r *Recorder) Stop(ctx context.Context, trackID uuid.UUID, stop time.Time) (domain.Track, error) {
	if stop.IsZero() {
		stop = r.now()
	}

	r.mu.Lock()
	final, err := r.stopLocked(ctx, trackID, stop)
	r.mu.Unlock()
	if err != nil {
		return domain.Track{}, fmt.Errorf("service.Recorder.Stop: %w", err)
	}

	r.publish(ctx, events.Finalized(final, r.now()))
	r.logger.InfoContext(ctx, "recording finalized",
		"track_id", trackID, "way_points", final.Size(), "distance_m", final.Distance)
	return final, nil
}

// stopLocked finalizes and persists trackID. Callers hold r.mu.
func (r *Recorder) stopLocked(ctx context.Context, trackID uuid.UUID, stop time.Time) (domain.Track, error) {
	at, err := r.lookup(ctx, trackID)
	if err != nil {
		return domain.Track{}, err
	}

	final := at.track.Snapshot()
	if err := final.Finalize(stop); err != nil {
		return domain.Track{}, err
	}
	if err := r.repo.Finalize(ctx, final); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.forget(trackID)
		}
		return domain.Track{}, err
	}
	r.forget(trackID)
	return final, nil
}

// Forget drops trackID from the set of recording tracks without touching
// the database. It is used after a track has been deleted.
func (r *Recorder) Forget(trackID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forget(trackID)
}

// Recording reports whether trackID is currently recording on this instance.
func (r *Recorder) Recording(trackID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[trackID]
	return ok
}

// Current returns the best fix seen so far with its freshness.
func (r *Recorder) Current() CurrentLocation {
	r.mu.Lock()
	var best *domain.Fix
	if r.best != nil {
		held := *r.best
		best = &held
	}
	r.mu.Unlock()

	if best == nil {
		return CurrentLocation{}
	}
	age := r.arbiter.Age(best)
	readable, ok := location.ReadableDuration(age, false)
	if !ok {
		readable, _ = location.ReadableDuration(age, true)
	}
	return CurrentLocation{
		Fix:         best,
		IsCurrent:   r.arbiter.IsCurrent(best),
		Age:         age,
		ReadableAge: readable,
	}
}

// ---- helpers ----------------------------------------------------------------

// lookup returns the active track trackID. A track that is open in the
// database but unknown here (started before a restart or on another
// instance) is adopted. Callers hold r.mu.
func (r *Recorder) lookup(ctx context.Context, trackID uuid.UUID) (*activeTrack, error) {
	if at, ok := r.active[trackID]; ok {
		return at, nil
	}

	t, err := r.repo.GetByID(ctx, trackID)
	if err != nil {
		return nil, err
	}
	if t.Closed() {
		return nil, domain.ErrTrackClosed
	}
	at := &activeTrack{track: t}
	r.active[trackID] = at
	observability.SetActiveTracks(len(r.active))
	return at, nil
}

// forget removes trackID from the active set. Callers hold r.mu.
func (r *Recorder) forget(trackID uuid.UUID) {
	delete(r.active, trackID)
	observability.SetActiveTracks(len(r.active))
}

func (r *Recorder) reject(ctx context.Context, trackID uuid.UUID, reason string) Decision {
	observability.RecordFix(reason)
	r.logger.DebugContext(ctx, "fix rejected", "track_id", trackID, "reason", reason)
	return Decision{Accepted: false, Reason: reason}
}

// publish hands ev to the event sink. Failures are logged and never fail
// the recording operation.
func (r *Recorder) publish(ctx context.Context, ev events.Event) {
	if err := r.events.Publish(ctx, ev); err != nil {
		r.logger.WarnContext(ctx, "event publish failed", "type", ev.Type, "track_id", ev.TrackID, "error", err)
	}
}
