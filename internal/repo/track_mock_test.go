package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/repo"
)

// These tests drive the repo against pgxmock and need no database.

var trackCols = []string{
	"id", "name", "recording_start", "recording_stop", "step_count", "distance_m",
	"positive_elevation_m", "negative_elevation_m", "min_altitude_m", "max_altitude_m",
	"format_version", "created_at", "updated_at",
}

var wayPointCols = []string{
	"latitude", "longitude", "altitude", "accuracy", "provider", "recorded_at",
	"elapsed_realtime_ms", "stop_over", "distance_to_previous_m",
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, repo.TrackRepo) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err, "mock pool")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unmet expectations")
		mock.Close()
	})
	return mock, repo.NewTrackRepo(mock)
}

func TestTrackRepoMock_GetByID(t *testing.T) {
	mock, r := newMockRepo(t)
	id := uuid.MustParse("6f1c2b7e-4a4d-4b8e-9a53-0c1d2e3f4a5b")
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	stop := start.Add(time.Hour)

	mock.ExpectQuery(`SELECT id, name, recording_start`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(trackCols).
			AddRow(id.String(), "morning", start, stop, float64(-1), 1301.7, 6.0, -2.0, 34.0, 40.0, 2, start, stop))
	mock.ExpectQuery(`FROM way_points`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(wayPointCols).
			AddRow(52.5, 13.4, 34.0, 4.0, "gps", start, int64(3_600_000), false, 0.0).
			AddRow(52.51, 13.41, 40.0, 6.0, "network", start.Add(time.Minute), int64(3_660_000), true, 1301.7))

	got, err := r.GetByID(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "morning", got.Name)
	require.NotNil(t, got.RecordingStop)
	assert.True(t, got.RecordingStop.Equal(stop))
	require.Len(t, got.WayPoints, 2)
	assert.Equal(t, domain.ProviderNetwork, got.WayPoints[1].Provider)
	assert.Equal(t, time.Hour+time.Minute, got.WayPoints[1].ElapsedRealtime)
	assert.True(t, got.WayPoints[1].StopOver)
}

func TestTrackRepoMock_GetByID_NotFound(t *testing.T) {
	mock, r := newMockRepo(t)

	id := uuid.New()

	mock.ExpectQuery(`FROM tracks`).WithArgs(id).WillReturnError(pgx.ErrNoRows)

	_, err := r.GetByID(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTrackRepoMock_GetByID_OpenTrack(t *testing.T) {
	mock, r := newMockRepo(t)
	id := uuid.New()
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM tracks`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(trackCols).
			AddRow(id.String(), "open", start, nil, float64(-1), 0.0, 0.0, 0.0, 0.0, 0.0, 2, start, start))
	mock.ExpectQuery(`FROM way_points`).WithArgs(id).WillReturnRows(pgxmock.NewRows(wayPointCols))

	got, err := r.GetByID(context.Background(), id)

	require.NoError(t, err)
	assert.Nil(t, got.RecordingStop)
	assert.False(t, got.Closed())
	assert.Empty(t, got.WayPoints)
}

func TestTrackRepoMock_Exists(t *testing.T) {
	mock, r := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := r.Exists(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Exists(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrackRepoMock_ListPaged(t *testing.T) {
	mock, r := newMockRepo(t)
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT count\(\*\) FROM tracks`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))
	mock.ExpectQuery(`ORDER BY recording_start DESC`).
		WithArgs(2, 2).
		WillReturnRows(pgxmock.NewRows(trackCols).
			AddRow(uuid.NewString(), "third", start, nil, float64(-1), 0.0, 0.0, 0.0, 0.0, 0.0, 2, start, start))

	page, err := r.ListPaged(context.Background(), domain.PaginationParams{Page: 2, Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Tracks, 1)
	assert.Equal(t, "third", page.Tracks[0].Name)
}

// appendArgs lists the AppendWayPoint arguments in the order they appear in
// the statement.
func appendArgs(t domain.Track) []any {
	wp, _ := t.LastWayPoint()
	return []any{
		t.Distance, t.PositiveElevation, t.NegativeElevation, t.MinAltitude, t.MaxAltitude,
		t.ID, t.Size() - 1,
		wp.Latitude, wp.Longitude, wp.Altitude, wp.Accuracy, string(wp.Provider), wp.Time,
		wp.ElapsedRealtime.Milliseconds(), wp.StopOver, wp.DistanceToPrevious,
	}
}

func appendableTrack(t *testing.T) domain.Track {
	t.Helper()
	start := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	tr := domain.NewTrack(start)
	_, err := tr.Append(domain.WayPoint{
		Latitude: 52.5, Longitude: 13.4, Altitude: 34, Accuracy: 4,
		Provider: domain.ProviderGPS, Time: start.Add(time.Minute), ElapsedRealtime: time.Hour,
	})
	require.NoError(t, err)
	return tr
}

func TestTrackRepoMock_AppendWayPoint(t *testing.T) {
	mock, r := newMockRepo(t)
	tr := appendableTrack(t)

	mock.ExpectExec(`WITH t AS \(\s*UPDATE tracks`).
		WithArgs(appendArgs(tr)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.AppendWayPoint(context.Background(), tr))
}

func TestTrackRepoMock_AppendWayPoint_NoRowsMeansNotFound(t *testing.T) {
	mock, r := newMockRepo(t)
	tr := appendableTrack(t)

	mock.ExpectExec(`INSERT INTO way_points`).
		WithArgs(appendArgs(tr)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := r.AppendWayPoint(context.Background(), tr)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTrackRepoMock_AppendWayPoint_EmptyTrack(t *testing.T) {
	_, r := newMockRepo(t)

	err := r.AppendWayPoint(context.Background(), domain.NewTrack(time.Now()))

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTrackRepoMock_Finalize(t *testing.T) {
	mock, r := newMockRepo(t)
	tr := domain.NewTrack(time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	stop := tr.RecordingStart.Add(time.Hour)
	require.NoError(t, tr.Finalize(stop))

	mock.ExpectExec(`UPDATE tracks`).
		WithArgs(stop, tr.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, r.Finalize(context.Background(), tr))
}

func TestTrackRepoMock_Finalize_RequiresStop(t *testing.T) {
	_, r := newMockRepo(t)

	err := r.Finalize(context.Background(), domain.NewTrack(time.Now()))

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTrackRepoMock_Delete_NotFound(t *testing.T) {
	mock, r := newMockRepo(t)
	id := uuid.New()

	mock.ExpectExec(`DELETE FROM tracks`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := r.Delete(context.Background(), id)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
