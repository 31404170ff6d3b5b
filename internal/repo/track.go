package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/trackbook/backend/internal/domain"
)

// TrackRepo defines the persistence operations for Tracks and their way-points.
// The service layer depends on this interface, not the concrete Postgres
// implementation, so the recorder can be unit-tested with a mock.
type TrackRepo interface {
	// Create inserts the track row and returns the persisted record with
	// created_at and updated_at populated. Way-points are added with
	// AppendWayPoint.
	Create(ctx context.Context, t domain.Track) (domain.Track, error)

	// GetByID retrieves a track and all of its way-points in order.
	// Returns domain.ErrNotFound if no track with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Track, error)

	// Exists reports whether a track with that ID exists without loading
	// its way-points.
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// ListPaged returns one page of track summaries, most recent recording
	// first, plus the total number of tracks. Way-points are not loaded.
	ListPaged(ctx context.Context, p domain.PaginationParams) (domain.TrackPage, error)

	// ListOpen returns every track that has not been finalized, with
	// way-points, so a restarted recorder can resume them.
	ListOpen(ctx context.Context) ([]domain.Track, error)

	// AppendWayPoint persists the last way-point of t together with t's
	// updated statistics. Returns domain.ErrNotFound if the track does not
	// exist or is already finalized.
	AppendWayPoint(ctx context.Context, t domain.Track) error

	// Finalize stores t's recording stop. Returns domain.ErrNotFound if the
	// track does not exist or is already finalized.
	Finalize(ctx context.Context, t domain.Track) error

	// Delete removes a track and its way-points.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTrackRepo is the Postgres implementation of TrackRepo.
type pgTrackRepo struct {
	db db
}

// NewTrackRepo constructs a TrackRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx or a pgxmock pool.
func NewTrackRepo(db db) TrackRepo {
	return &pgTrackRepo{db: db}
}

const trackColumns = `id, name, recording_start, recording_stop, step_count, distance_m,
		       positive_elevation_m, negative_elevation_m, min_altitude_m, max_altitude_m,
		       format_version, created_at, updated_at`

// Create inserts a new track row and returns the full persisted record.
func (r *pgTrackRepo) Create(ctx context.Context, t domain.Track) (domain.Track, error) {
	const q = `
		INSERT INTO tracks (id, name, recording_start, recording_stop, step_count, distance_m,
		                    positive_elevation_m, negative_elevation_m, min_altitude_m,
		                    max_altitude_m, format_version)
		VALUES (@id, @name, @recording_start, @recording_stop, @step_count, @distance_m,
		        @positive_elevation_m, @negative_elevation_m, @min_altitude_m,
		        @max_altitude_m, @format_version)
		RETURNING ` + trackColumns

	args := pgx.NamedArgs{
		"id":                   t.ID,
		"name":                 t.Name,
		"recording_start":      t.RecordingStart,
		"recording_stop":       t.RecordingStop, // nil becomes NULL
		"step_count":           t.StepCount,
		"distance_m":           t.Distance,
		"positive_elevation_m": t.PositiveElevation,
		"negative_elevation_m": t.NegativeElevation,
		"min_altitude_m":       t.MinAltitude,
		"max_altitude_m":       t.MaxAltitude,
		"format_version":       t.FormatVersion,
	}

	result, err := scanTrack(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Track{}, fmt.Errorf("repo.TrackRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a track by primary key, way-points included.
func (r *pgTrackRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Track, error) {
	const q = `
		SELECT ` + trackColumns + `
		FROM tracks
		WHERE id = @id`

	t, err := scanTrack(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Track{}, fmt.Errorf("repo.TrackRepo.GetByID: %w", err)
	}
	if t.WayPoints, err = r.wayPoints(ctx, id); err != nil {
		return domain.Track{}, fmt.Errorf("repo.TrackRepo.GetByID: %w", err)
	}
	return t, nil
}

// Exists reports whether a track row with that ID exists.
func (r *pgTrackRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM tracks WHERE id = @id)`

	var ok bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}).Scan(&ok); err != nil {
		return false, fmt.Errorf("repo.TrackRepo.Exists: %w", err)
	}
	return ok, nil
}

// ListPaged returns one page of tracks ordered by recording_start descending.
func (r *pgTrackRepo) ListPaged(ctx context.Context, p domain.PaginationParams) (domain.TrackPage, error) {
	const countQ = `SELECT count(*) FROM tracks`
	const q = `
		SELECT ` + trackColumns + `
		FROM tracks
		ORDER BY recording_start DESC, id
		LIMIT @limit OFFSET @offset`

	var total int64
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return domain.TrackPage{}, fmt.Errorf("repo.TrackRepo.ListPaged: count: %w", err)
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return domain.TrackPage{}, fmt.Errorf("repo.TrackRepo.ListPaged: %w", err)
	}
	tracks, err := collectTracks(rows)
	if err != nil {
		return domain.TrackPage{}, fmt.Errorf("repo.TrackRepo.ListPaged: %w", err)
	}
	return domain.TrackPage{Tracks: tracks, Total: total}, nil
}

// ListOpen returns all unfinalized tracks, oldest first, with way-points.
func (r *pgTrackRepo) ListOpen(ctx context.Context) ([]domain.Track, error) {
	const q = `
		SELECT ` + trackColumns + `
		FROM tracks
		WHERE recording_stop IS NULL
		ORDER BY recording_start`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.TrackRepo.ListOpen: %w", err)
	}
	tracks, err := collectTracks(rows)
	if err != nil {
		return nil, fmt.Errorf("repo.TrackRepo.ListOpen: %w", err)
	}
	for i := range tracks {
		if tracks[i].WayPoints, err = r.wayPoints(ctx, tracks[i].ID); err != nil {
			return nil, fmt.Errorf("repo.TrackRepo.ListOpen: %w", err)
		}
	}
	return tracks, nil
}

// AppendWayPoint updates the track statistics and inserts the new way-point in
// a single statement. The insert selects from the update, so nothing is
// written when the track is missing or closed.
func (r *pgTrackRepo) AppendWayPoint(ctx context.Context, t domain.Track) error {
	wp, ok := t.LastWayPoint()
	if !ok {
		return fmt.Errorf("repo.TrackRepo.AppendWayPoint: %w: track has no way-points", domain.ErrValidation)
	}

	const q = `
		WITH t AS (
			UPDATE tracks
			SET distance_m           = @distance_m,
			    positive_elevation_m = @positive_elevation_m,
			    negative_elevation_m = @negative_elevation_m,
			    min_altitude_m       = @min_altitude_m,
			    max_altitude_m       = @max_altitude_m,
			    updated_at           = now()
			WHERE id = @id AND recording_stop IS NULL
			RETURNING id
		)
		INSERT INTO way_points (track_id, seq, latitude, longitude, altitude, accuracy, provider,
		                        recorded_at, elapsed_realtime_ms, stop_over, distance_to_previous_m)
		SELECT t.id, @seq::int, @latitude::float8, @longitude::float8, @altitude::float8,
		       @accuracy::float8, @provider::text, @recorded_at::timestamptz,
		       @elapsed_realtime_ms::bigint, @stop_over::boolean, @distance_to_previous_m::float8
		FROM t`

	args := pgx.NamedArgs{
		"id":                     t.ID,
		"distance_m":             t.Distance,
		"positive_elevation_m":   t.PositiveElevation,
		"negative_elevation_m":   t.NegativeElevation,
		"min_altitude_m":         t.MinAltitude,
		"max_altitude_m":         t.MaxAltitude,
		"seq":                    t.Size() - 1,
		"latitude":               wp.Latitude,
		"longitude":              wp.Longitude,
		"altitude":               wp.Altitude,
		"accuracy":               wp.Accuracy,
		"provider":               string(wp.Provider),
		"recorded_at":            wp.Time,
		"elapsed_realtime_ms":    wp.ElapsedRealtime.Milliseconds(),
		"stop_over":              wp.StopOver,
		"distance_to_previous_m": wp.DistanceToPrevious,
	}

	tag, err := r.db.Exec(ctx, q, args)
	if err != nil {
		return fmt.Errorf("repo.TrackRepo.AppendWayPoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TrackRepo.AppendWayPoint: %w", domain.ErrNotFound)
	}
	return nil
}

// Finalize writes the recording stop of an open track.
func (r *pgTrackRepo) Finalize(ctx context.Context, t domain.Track) error {
	if t.RecordingStop == nil {
		return fmt.Errorf("repo.TrackRepo.Finalize: %w: recording stop is required", domain.ErrValidation)
	}

	const q = `
		UPDATE tracks
		SET recording_stop = @recording_stop,
		    updated_at     = now()
		WHERE id = @id AND recording_stop IS NULL`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": t.ID, "recording_stop": *t.RecordingStop})
	if err != nil {
		return fmt.Errorf("repo.TrackRepo.Finalize: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TrackRepo.Finalize: %w", domain.ErrNotFound)
	}
	return nil
}

// Delete removes a track by primary key. way_points rows cascade.
func (r *pgTrackRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM tracks WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TrackRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TrackRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// ---- helpers ----------------------------------------------------------------

// wayPoints loads the way-points of one track in sequence order.
func (r *pgTrackRepo) wayPoints(ctx context.Context, trackID uuid.UUID) ([]domain.WayPoint, error) {
	const q = `
		SELECT latitude, longitude, altitude, accuracy, provider, recorded_at,
		       elapsed_realtime_ms, stop_over, distance_to_previous_m
		FROM way_points
		WHERE track_id = @track_id
		ORDER BY seq`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"track_id": trackID})
	if err != nil {
		return nil, fmt.Errorf("way points: %w", err)
	}
	defer rows.Close()

	wps := []domain.WayPoint{}
	for rows.Next() {
		var (
			wp        domain.WayPoint
			provider  string
			elapsedMS int64
		)
		if err := rows.Scan(&wp.Latitude, &wp.Longitude, &wp.Altitude, &wp.Accuracy, &provider,
			&wp.Time, &elapsedMS, &wp.StopOver, &wp.DistanceToPrevious); err != nil {
			return nil, fmt.Errorf("way points: scan: %w", err)
		}
		wp.Provider = domain.Provider(provider)
		wp.ElapsedRealtime = time.Duration(elapsedMS) * time.Millisecond
		wps = append(wps, wp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("way points: rows: %w", err)
	}
	return wps, nil
}

// collectTracks scans and closes rows of trackColumns.
func collectTracks(rows pgx.Rows) ([]domain.Track, error) {
	defer rows.Close()

	tracks := []domain.Track{}
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return tracks, nil
}

// scanTrack maps a single row of trackColumns into a domain.Track.
// It handles the UUID and nullable recording_stop conversions.
func scanTrack(s scanner) (domain.Track, error) {
	var (
		t    domain.Track
		id   pgtype.UUID
		stop pgtype.Timestamptz
	)

	err := s.Scan(&id, &t.Name, &t.RecordingStart, &stop, &t.StepCount, &t.Distance,
		&t.PositiveElevation, &t.NegativeElevation, &t.MinAltitude, &t.MaxAltitude,
		&t.FormatVersion, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Track{}, domain.ErrNotFound
		}
		return domain.Track{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	if stop.Valid {
		st := stop.Time
		t.RecordingStop = &st
	}
	t.WayPoints = []domain.WayPoint{}
	return t, nil
}
