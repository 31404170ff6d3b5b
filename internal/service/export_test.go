package service_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/service"
)

func newExportService(t *testing.T, tr domain.Track) (*service.ExportService, string) {
	t.Helper()
	dir := t.TempDir()
	return service.NewExportService(repoWith(tr), dir, 7*24*time.Hour, discardLogger()), dir
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]service.Format{"": service.FormatGPX, "GPX": service.FormatGPX, " json ": service.FormatJSON} {
		got, err := service.ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := service.ParseFormat("kml")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFormat_ContentType(t *testing.T) {
	assert.Equal(t, "application/gpx+xml", service.FormatGPX.ContentType())
	assert.Equal(t, "application/json", service.FormatJSON.ContentType())
}

func TestExportService_Render(t *testing.T) {
	tr := recordedTrack(t)
	svc, _ := newExportService(t, tr)

	gpx, err := svc.Render(context.Background(), tr.ID, service.FormatGPX)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01-08-00-00.gpx", gpx.FileName)
	assert.Equal(t, 2, strings.Count(string(gpx.Data), "<trkpt "))

	js, err := svc.Render(context.Background(), tr.ID, service.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, tr.Name+".json", js.FileName)
	assert.Contains(t, string(js.Data), `"track_format_version": 2`)
}

func TestExportService_Render_NotFound(t *testing.T) {
	svc, _ := newExportService(t, recordedTrack(t))

	_, err := svc.Render(context.Background(), uuid.New(), service.FormatGPX)

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExportService_Write(t *testing.T) {
	tr := recordedTrack(t)
	svc, dir := newExportService(t, tr)

	res, err := svc.Write(context.Background(), tr.ID, service.FormatJSON, "morning-ride")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "morning-ride.json"), res.Path)
	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Len(t, data, res.Bytes)
}

func TestExportService_Write_ReportsReplaced(t *testing.T) {
	tr := recordedTrack(t)
	svc, _ := newExportService(t, tr)

	first, err := svc.Write(context.Background(), tr.ID, service.FormatGPX, "")
	require.NoError(t, err)
	second, err := svc.Write(context.Background(), tr.ID, service.FormatGPX, "")
	require.NoError(t, err)

	assert.False(t, first.Replaced)
	assert.True(t, second.Replaced)
	assert.Equal(t, first.Path, second.Path)
}

func TestExportService_Write_ExplicitExtensionNotDoubled(t *testing.T) {
	tr := recordedTrack(t)
	svc, _ := newExportService(t, tr)

	res, err := svc.Write(context.Background(), tr.ID, service.FormatGPX, "ride.gpx")

	require.NoError(t, err)
	assert.Equal(t, "ride.gpx", res.FileName)
}

func TestExportService_Write_RejectsEscapingName(t *testing.T) {
	tr := recordedTrack(t)
	svc, dir := newExportService(t, tr)

	_, err := svc.Write(context.Background(), tr.ID, service.FormatGPX, "../evil")

	assert.ErrorIs(t, err, domain.ErrValidation)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExportService_WriteAsync(t *testing.T) {
	tr := recordedTrack(t)
	svc, _ := newExportService(t, tr)

	ch := svc.WriteAsync(context.Background(), tr.ID, service.FormatGPX, "")

	select {
	case res, ok := <-ch:
		require.True(t, ok)
		require.NoError(t, res.Err)
		assert.FileExists(t, res.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for export")
	}
	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after the result")
}

func TestExportService_WriteAsync_Error(t *testing.T) {
	svc, _ := newExportService(t, recordedTrack(t))

	res := <-svc.WriteAsync(context.Background(), uuid.New(), service.FormatGPX, "")

	assert.ErrorIs(t, res.Err, domain.ErrNotFound)
}

func TestExportService_Prune(t *testing.T) {
	svc, dir := newExportService(t, recordedTrack(t))
	oldJSON := filepath.Join(dir, "old.json")
	oldGPX := filepath.Join(dir, "old.gpx")
	past := time.Now().Add(-8 * 24 * time.Hour)
	for _, p := range []string{oldJSON, oldGPX} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(p, past, past))
	}

	n, err := svc.Prune(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, oldJSON)
	assert.FileExists(t, oldGPX, "GPX exports outlive the retention period")
}

func TestExportService_Prune_DisabledWithoutRetention(t *testing.T) {
	dir := t.TempDir()
	svc := service.NewExportService(repoWith(recordedTrack(t)), dir, 0, discardLogger())
	old := filepath.Join(dir, "old.json")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	past := time.Now().Add(-365 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	n, err := svc.Prune(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.FileExists(t, old)
}
