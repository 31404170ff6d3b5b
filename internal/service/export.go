package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/export"
	"github.com/pkordes/trackbook/backend/internal/observability"
	"github.com/pkordes/trackbook/backend/internal/repo"
)

// Format is an export document format.
type Format string

const (
	FormatGPX  Format = "gpx"
	FormatJSON Format = "json"
)

// ParseFormat returns the Format named s. An empty s means GPX.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatGPX:
		return FormatGPX, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", domain.ErrValidation, s)
}

// ContentType returns the media type of documents in format f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "application/gpx+xml"
}

// Rendered is an export document held in memory.
type Rendered struct {
	Format   Format
	FileName string
	Data     []byte
}

// ExportResult is the outcome of writing an export file.
type ExportResult struct {
	Path     string
	FileName string
	Bytes    int
	// Replaced reports that a file of the same name was overwritten.
	Replaced bool
	Err      error
}

// ExportService renders tracks as GPX or JSON and manages the export directory.
type ExportService struct {
	repo      repo.TrackRepo
	dir       string
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService writing into dir. JSON
// documents older than retention are removed by Prune; GPX exports are kept.
// Zero retention disables pruning.
func NewExportService(r repo.TrackRepo, dir string, retention time.Duration, logger *slog.Logger) *ExportService {
	return &ExportService{repo: r, dir: dir, retention: retention, logger: logger, now: time.Now}
}

// Render loads track id and serializes it in format f.
func (s *ExportService) Render(ctx context.Context, id uuid.UUID, f Format) (Rendered, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Rendered{}, fmt.Errorf("service.ExportService.Render: %w", err)
	}
	out, err := s.render(t, f, "")
	if err != nil {
		return Rendered{}, fmt.Errorf("service.ExportService.Render: %w", err)
	}
	return out, nil
}

// Write renders track id and writes it into the export directory. name is the
// file stem; when empty, GPX files are named after the recording start and
// JSON files after the track name. A failed write leaves no partial file.
func (s *ExportService) Write(ctx context.Context, id uuid.UUID, f Format, name string) (ExportResult, error) {
	started := s.now()

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return ExportResult{}, fmt.Errorf("service.ExportService.Write: %w", err)
	}
	out, err := s.render(t, f, name)
	if err != nil {
		observability.RecordExport(string(f), "error", s.now().Sub(started))
		return ExportResult{}, fmt.Errorf("service.ExportService.Write: %w", err)
	}

	replaced := export.Exists(s.dir, out.FileName)
	path, err := export.WriteFile(s.dir, out.FileName, out.Data)
	if err != nil {
		observability.RecordExport(string(f), "error", s.now().Sub(started))
		return ExportResult{}, fmt.Errorf("service.ExportService.Write: %w", err)
	}
	observability.RecordExport(string(f), "ok", s.now().Sub(started))

	s.logger.InfoContext(ctx, "track exported",
		"track_id", id, "format", f, "path", path, "bytes", len(out.Data), "replaced", replaced)
	return ExportResult{Path: path, FileName: out.FileName, Bytes: len(out.Data), Replaced: replaced}, nil
}

// WriteAsync runs Write on its own goroutine. The returned channel receives
// exactly one result and is then closed.
func (s *ExportService) WriteAsync(ctx context.Context, id uuid.UUID, f Format, name string) <-chan ExportResult {
	ch := make(chan ExportResult, 1)
	go func() {
		defer close(ch)
		res, err := s.Write(ctx, id, f, name)
		if err != nil {
			res.Err = err
		}
		ch <- res
	}()
	return ch
}

// Prune removes JSON export files older than the retention period.
func (s *ExportService) Prune(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	n, err := export.Prune(s.dir, export.JSONExtension, s.retention, s.now())
	observability.RecordPruned(n)
	if err != nil {
		return n, fmt.Errorf("service.ExportService.Prune: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired exports pruned", "dir", s.dir, "removed", n)
	}
	return n, nil
}

// RunPruner calls Prune every interval until ctx is done.
func (s *ExportService) RunPruner(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Prune(ctx); err != nil {
				s.logger.WarnContext(ctx, "export prune failed", "error", err)
			}
		}
	}
}

func (s *ExportService) render(t domain.Track, f Format, name string) (Rendered, error) {
	switch f {
	case FormatGPX:
		fileName := export.GPXFileName(t.RecordingStart)
		if name != "" {
			fileName = strings.TrimSuffix(name, export.GPXExtension) + export.GPXExtension
		}
		return Rendered{Format: f, FileName: fileName, Data: []byte(export.GPX(t))}, nil
	case FormatJSON:
		if name == "" {
			name = t.Name
		}
		data, err := export.JSON(t)
		if err != nil {
			return Rendered{}, err
		}
		return Rendered{Format: f, FileName: export.JSONFileName(strings.TrimSuffix(name, export.JSONExtension)), Data: data}, nil
	}
	return Rendered{}, fmt.Errorf("%w: unknown export format %q", domain.ErrValidation, f)
}
