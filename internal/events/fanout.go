package events

import (
	"context"
	"log/slog"

	"github.com/pkordes/trackbook/backend/internal/observability"
)

// Sink is a named publisher inside a Fanout. The name labels logs and metrics.
type Sink struct {
	Name      string
	Publisher Publisher
}

// Fanout publishes every event to all of its sinks in order. A failing sink
// is logged and counted but does not stop the others, and Publish never
// returns an error: recording must not fail because a subscriber is down.
type Fanout struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewFanout returns a Fanout over sinks. Sinks with a nil Publisher are skipped.
func NewFanout(logger *slog.Logger, sinks ...Sink) *Fanout {
	f := &Fanout{logger: logger}
	for _, s := range sinks {
		if s.Publisher != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Publish implements Publisher.
func (f *Fanout) Publish(ctx context.Context, ev Event) error {
	for _, s := range f.sinks {
		if err := s.Publisher.Publish(ctx, ev); err != nil {
			observability.RecordPublishFailure(s.Name)
			f.logger.WarnContext(ctx, "event publish failed",
				"sink", s.Name, "type", ev.Type, "track_id", ev.TrackID, "error", err)
		}
	}
	return nil
}
