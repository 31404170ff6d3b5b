package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/trackbook/backend/internal/domain"
	"github.com/pkordes/trackbook/backend/internal/events"
	"github.com/pkordes/trackbook/backend/internal/repo"
)

// mockTrackRepo is a hand-written test double for repo.TrackRepo.
// Each method is a function field: set only the ones your test needs.
type mockTrackRepo struct {
	create         func(ctx context.Context, t domain.Track) (domain.Track, error)
	getByID        func(ctx context.Context, id uuid.UUID) (domain.Track, error)
	exists         func(ctx context.Context, id uuid.UUID) (bool, error)
	listPaged      func(ctx context.Context, p domain.PaginationParams) (domain.TrackPage, error)
	listOpen       func(ctx context.Context) ([]domain.Track, error)
	appendWayPoint func(ctx context.Context, t domain.Track) error
	finalize       func(ctx context.Context, t domain.Track) error
	delete         func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTrackRepo) Create(ctx context.Context, t domain.Track) (domain.Track, error) {
	return m.create(ctx, t)
}
func (m *mockTrackRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Track, error) {
	return m.getByID(ctx, id)
}
func (m *mockTrackRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.exists(ctx, id)
}
func (m *mockTrackRepo) ListPaged(ctx context.Context, p domain.PaginationParams) (domain.TrackPage, error) {
	return m.listPaged(ctx, p)
}
func (m *mockTrackRepo) ListOpen(ctx context.Context) ([]domain.Track, error) {
	return m.listOpen(ctx)
}
func (m *mockTrackRepo) AppendWayPoint(ctx context.Context, t domain.Track) error {
	return m.appendWayPoint(ctx, t)
}
func (m *mockTrackRepo) Finalize(ctx context.Context, t domain.Track) error {
	return m.finalize(ctx, t)
}
func (m *mockTrackRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockTrackRepo must satisfy repo.TrackRepo.
var _ repo.TrackRepo = (*mockTrackRepo)(nil)

// memRepo returns a mockTrackRepo backed by a map, for tests that exercise
// the recorder end to end rather than individual repo calls.
func memRepo() (*mockTrackRepo, map[uuid.UUID]domain.Track) {
	var mu sync.Mutex
	store := map[uuid.UUID]domain.Track{}
	m := &mockTrackRepo{
		create: func(_ context.Context, t domain.Track) (domain.Track, error) {
			mu.Lock()
			defer mu.Unlock()
			store[t.ID] = t.Snapshot()
			return t, nil
		},
		getByID: func(_ context.Context, id uuid.UUID) (domain.Track, error) {
			mu.Lock()
			defer mu.Unlock()
			t, ok := store[id]
			if !ok {
				return domain.Track{}, domain.ErrNotFound
			}
			return t.Snapshot(), nil
		},
		exists: func(_ context.Context, id uuid.UUID) (bool, error) {
			mu.Lock()
			defer mu.Unlock()
			_, ok := store[id]
			return ok, nil
		},
		appendWayPoint: func(_ context.Context, t domain.Track) error {
			mu.Lock()
			defer mu.Unlock()
			stored, ok := store[t.ID]
			if !ok || stored.Closed() {
				return domain.ErrNotFound
			}
			store[t.ID] = t.Snapshot()
			return nil
		},
		finalize: func(_ context.Context, t domain.Track) error {
			mu.Lock()
			defer mu.Unlock()
			stored, ok := store[t.ID]
			if !ok || stored.Closed() {
				return domain.ErrNotFound
			}
			store[t.ID] = t.Snapshot()
			return nil
		},
		delete: func(_ context.Context, id uuid.UUID) error {
			mu.Lock()
			defer mu.Unlock()
			if _, ok := store[id]; !ok {
				return domain.ErrNotFound
			}
			delete(store, id)
			return nil
		},
	}
	return m, store
}

// mockPublisher records published events.
type mockPublisher struct {
	mu  sync.Mutex
	got []events.Event
	err error
}

func (m *mockPublisher) Publish(_ context.Context, ev events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.got = append(m.got, ev)
	return m.err
}

func (m *mockPublisher) types() []events.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]events.Type, 0, len(m.got))
	for _, ev := range m.got {
		out = append(out, ev.Type)
	}
	return out
}

var _ events.Publisher = (*mockPublisher)(nil)

// gatedPublisher holds way-point events of one track until release is
// closed. entered receives once when such an event arrives.
type gatedPublisher struct {
	mu      sync.Mutex
	blocked uuid.UUID
	entered chan struct{}
	release chan struct{}
}

func (g *gatedPublisher) block(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocked = id
}

func (g *gatedPublisher) Publish(_ context.Context, ev events.Event) error {
	g.mu.Lock()
	hold := ev.Type == events.WayPointAdded && ev.TrackID == g.blocked
	g.mu.Unlock()
	if hold {
		g.entered <- struct{}{}
		<-g.release
	}
	return nil
}

var _ events.Publisher = (*gatedPublisher)(nil)

// mockForgetter records the IDs passed to Forget.
type mockForgetter struct {
	forgotten []uuid.UUID
}

func (m *mockForgetter) Forget(id uuid.UUID) {
	m.forgotten = append(m.forgotten, id)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
