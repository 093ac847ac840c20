package live

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/livescore/models"
	"github.com/Dosada05/livescore/repositories"
	"github.com/stretchr/testify/require"
)

var kickoff = time.Date(2025, 8, 16, 15, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingQueue struct {
	mu     sync.Mutex
	deltas []Delta
}

func (q *recordingQueue) Enqueue(d Delta) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deltas = append(q.deltas, d)
}

func (q *recordingQueue) all() []Delta {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Delta, len(q.deltas))
	copy(out, q.deltas)
	return out
}

func newMatch(id string, status models.MatchStatus) *models.Match {
	m := &models.Match{
		ID:          id,
		LeagueID:    "epl",
		SeasonID:    "2025",
		HomeTeam:    models.TeamRef{ID: "ars", Name: "Arsenal"},
		AwayTeam:    models.TeamRef{ID: "che", Name: "Chelsea"},
		Status:      status,
		Events:      []models.MatchEvent{},
		ScheduledAt: kickoff,
	}
	if status == models.StatusLive {
		zero := 0
		m.Minute = &zero
	}
	return m
}

func newTestMachine(t *testing.T, matches ...*models.Match) (*Machine, *repositories.MemoryStore, *recordingQueue) {
	t.Helper()
	store := repositories.NewMemoryStore()
	for _, m := range matches {
		store.PutMatch(m)
	}
	queue := &recordingQueue{}
	return NewMachine(store, queue, discardLogger(), nil), store, queue
}

// newDispatchedMachine wires a machine to a hub through a running dispatcher.
func newDispatchedMachine(ctx context.Context, t *testing.T, matches ...*models.Match) (*Machine, *Hub) {
	t.Helper()
	var machine *Machine
	hub := NewHub(SnapshotFunc(func(ctx context.Context, id string) (*models.Match, error) {
		return machine.Snapshot(ctx, id)
	}), discardLogger(), nil)
	dispatcher := NewDispatcher(hub, 2, 64, discardLogger())
	machine, _, _ = newTestMachine(t, matches...)
	machine.queue = dispatcher
	go func() { _ = dispatcher.Run(ctx) }()
	return machine, hub
}

func goal(minute int, side models.Side, scorer string) models.MatchEvent {
	return models.MatchEvent{Minute: minute, Side: side, Detail: models.Goal{Scorer: models.Player{Name: scorer}}}
}

func yellow(minute int, side models.Side, player string) models.MatchEvent {
	return models.MatchEvent{Minute: minute, Side: side, Detail: models.YellowCard{Player: models.Player{Name: player}}}
}

func intPtr(v int) *int { return &v }

// recv waits for the next frame of s.
func recv(t *testing.T, s *Session) Frame {
	t.Helper()
	select {
	case f := <-s.Outbox():
		return f
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for frame")
		return Frame{}
	}
}

// requireNoFrame asserts that nothing is queued for s.
func requireNoFrame(t *testing.T, s *Session) {
	t.Helper()
	select {
	case f := <-s.Outbox():
		require.FailNowf(t, "unexpected frame", "%+v", f)
	default:
	}
}
