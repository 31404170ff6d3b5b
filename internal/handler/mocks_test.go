package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/events"
	"github.com/pkordes/trackbook/backend/internal/handler"
	"github.com/pkordes/trackbook/backend/internal/service"
	"github.com/pkordes/trackbook/backend/internal/units"
)

// mockRecorder is a test double for handler.Recorder.
// Set only the method fields your test needs.
type mockRecorder struct {
	start   func(ctx context.Context, start time.Time) (domain.Track, error)
	submit  func(ctx context.Context, id uuid.UUID, fix domain.Fix, stopOver bool) (service.Decision, error)
	stop    func(ctx context.Context, id uuid.UUID, stop time.Time) (domain.Track, error)
	current func() service.CurrentLocation
}

func (m *mockRecorder) Start(ctx context.Context, start time.Time) (domain.Track, error) {
	return m.start(ctx, start)
}
func (m *mockRecorder) Submit(ctx context.Context, id uuid.UUID, fix domain.Fix, stopOver bool) (service.Decision, error) {
	return m.submit(ctx, id, fix, stopOver)
}
func (m *mockRecorder) Stop(ctx context.Context, id uuid.UUID, stop time.Time) (domain.Track, error) {
	return m.stop(ctx, id, stop)
}
func (m *mockRecorder) Current() service.CurrentLocation {
	return m.current()
}

// mockTrackServicer is a test double for handler.TrackServicer.
type mockTrackServicer struct {
	getByID    func(ctx context.Context, id uuid.UUID) (domain.Track, error)
	exists     func(ctx context.Context, id uuid.UUID) error
	listPaged  func(ctx context.Context, p domain.PaginationParams) (domain.TrackPage, error)
	delete     func(ctx context.Context, id uuid.UUID) error
	statistics func(ctx context.Context, id uuid.UUID, sys units.System) (service.Statistics, error)
}

func (m *mockTrackServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Track, error) {
	return m.getByID(ctx, id)
}
func (m *mockTrackServicer) Exists(ctx context.Context, id uuid.UUID) error {
	return m.exists(ctx, id)
}
func (m *mockTrackServicer) ListPaged(ctx context.Context, p domain.PaginationParams) (domain.TrackPage, error) {
	return m.listPaged(ctx, p)
}
func (m *mockTrackServicer) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockTrackServicer) Statistics(ctx context.Context, id uuid.UUID, sys units.System) (service.Statistics, error) {
	return m.statistics(ctx, id, sys)
}

// mockExporter is a test double for handler.Exporter.
type mockExporter struct {
	render     func(ctx context.Context, id uuid.UUID, f service.Format) (service.Rendered, error)
	write      func(ctx context.Context, id uuid.UUID, f service.Format, name string) (service.ExportResult, error)
	writeAsync func(ctx context.Context, id uuid.UUID, f service.Format, name string) <-chan service.ExportResult
}

func (m *mockExporter) Render(ctx context.Context, id uuid.UUID, f service.Format) (service.Rendered, error) {
	return m.render(ctx, id, f)
}
func (m *mockExporter) Write(ctx context.Context, id uuid.UUID, f service.Format, name string) (service.ExportResult, error) {
	return m.write(ctx, id, f, name)
}
func (m *mockExporter) WriteAsync(ctx context.Context, id uuid.UUID, f service.Format, name string) <-chan service.ExportResult {
	return m.writeAsync(ctx, id, f, name)
}

// compile-time checks: the mocks and the real services must satisfy the
// handler interfaces.
var (
	_ handler.Recorder      = (*mockRecorder)(nil)
	_ handler.TrackServicer = (*mockTrackServicer)(nil)
	_ handler.Exporter      = (*mockExporter)(nil)
	_ handler.Subscriber    = (*events.Hub)(nil)
	_ handler.Recorder      = (*service.Recorder)(nil)
	_ handler.TrackServicer = (*service.TrackService)(nil)
	_ handler.Exporter      = (*service.ExportService)(nil)
)

// ---- helpers ---------------------------------------------------------------

// deps groups the doubles a test wires into the Server. Nil fields stay nil.
type deps struct {
	recorder *mockRecorder
	tracks   *mockTrackServicer
	exports  *mockExporter
	hub      handler.Subscriber
}

// newHTTPHandler wires a Server with the given doubles into its chi router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(d deps) http.Handler {
	var (
		rec handler.Recorder
		trk handler.TrackServicer
		exp handler.Exporter
	)
	if d.recorder != nil {
		rec = d.recorder
	}
	if d.tracks != nil {
		trk = d.tracks
	}
	if d.exports != nil {
		exp = d.exports
	}
	return handler.NewServer(rec, trk, exp, d.hub, discardLogger()).Routes()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var start = time.Date(2025, 6, 1, 8, 14, 30, 0, time.UTC)

// trackFixture returns an open track with two way-points.
func trackFixture(t *testing.T) domain.Track {
	t.Helper()
	tr := domain.NewTrack(start)
	tr.CreatedAt = start
	tr.UpdatedAt = start
	_, err := tr.Append(domain.WayPoint{Latitude: 52.5, Longitude: 13.4, Altitude: 34, Accuracy: 4, Provider: domain.ProviderGPS, Time: start.Add(time.Minute), ElapsedRealtime: time.Hour})
	require.NoError(t, err)
	_, err = tr.Append(domain.WayPoint{Latitude: 52.51, Longitude: 13.41, Altitude: 40, Accuracy: 6, Provider: domain.ProviderNetwork, Time: start.Add(2 * time.Minute), ElapsedRealtime: time.Hour + time.Minute})
	require.NoError(t, err)
	return tr
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeError(t *testing.T, body io.Reader) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}
