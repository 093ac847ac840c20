package standings

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dosada05/livescore/models"
	"github.com/Dosada05/livescore/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	*repositories.MemoryStore
	lists   atomic.Int32
	listErr error
	gate    chan struct{}
}

func (s *countingStore) ListMatches(ctx context.Context, f models.MatchFilter) ([]*models.Match, error) {
	s.lists.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryStore.ListMatches(ctx, f)
}

func newEngine(t *testing.T, matches ...*models.Match) (*Engine, *countingStore) {
	t.Helper()
	mem := repositories.NewMemoryStore()
	for _, m := range matches {
		mem.PutMatch(m)
	}
	store := &countingStore{MemoryStore: mem}
	return NewEngine(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store
}

func TestEngine_StandingsMemoized(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, finished("m1", "ars", "che", 1, 0))

	rows, err := engine.Standings(ctx, "epl", "2025")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ars", rows[0].TeamID)

	// Callers get their own copy.
	rows[0].Points = 100
	again, err := engine.Standings(ctx, "epl", "2025")
	require.NoError(t, err)
	assert.Equal(t, 3, again[0].Points)
	assert.Equal(t, int32(1), store.lists.Load())

	store.PutMatch(finished("m2", "che", "ars", 3, 0))
	stale, err := engine.Standings(ctx, "epl", "2025")
	require.NoError(t, err)
	assert.Equal(t, "ars", stale[0].TeamID)

	engine.Invalidate("epl", "2025")
	fresh, err := engine.Standings(ctx, "epl", "2025")
	require.NoError(t, err)
	assert.Equal(t, "che", fresh[0].TeamID)
	assert.Equal(t, int32(2), store.lists.Load())
}

func TestEngine_ConcurrentReadsShareOneComputation(t *testing.T) {
	engine, store := newEngine(t, finished("m1", "ars", "che", 1, 0))
	store.gate = make(chan struct{})

	const readers = 8
	var wg sync.WaitGroup
	results := make([][]models.StandingRow, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := engine.Standings(context.Background(), "epl", "2025")
			assert.NoError(t, err)
			results[i] = rows
		}()
	}

	require.Eventually(t, func() bool { return store.lists.Load() == 1 }, time.Second, time.Millisecond)
	close(store.gate)
	wg.Wait()

	assert.Equal(t, int32(1), store.lists.Load())
	for _, rows := range results {
		assert.Len(t, rows, 2)
	}
}

func TestEngine_StandingsError(t *testing.T) {
	engine, store := newEngine(t)
	store.listErr = errors.New("db down")

	_, err := engine.Standings(context.Background(), "epl", "2025")
	assert.ErrorIs(t, err, store.listErr)

	store.listErr = nil
	rows, err := engine.Standings(context.Background(), "epl", "2025")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEngine_RecomputeSkipsUnchangedTable(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, finished("m1", "ars", "che", 2, 2))
	at := time.Date(2025, 8, 17, 12, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return at }

	wrote, err := engine.Recompute(ctx, "epl", "2025")
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, 1, store.TableWrites())

	stored, err := store.ListStandings(ctx, "epl", "2025")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, at, stored[0].UpdatedAt)
	assert.Equal(t, "2025", stored[0].SeasonID)

	wrote, err = engine.Recompute(ctx, "epl", "2025")
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, 1, store.TableWrites())

	store.PutMatch(finished("m2", "che", "ars", 1, 0))
	wrote, err = engine.Recompute(ctx, "epl", "2025")
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Equal(t, 2, store.TableWrites())
}

func TestEngine_Rounds(t *testing.T) {
	ctx := context.Background()
	r1 := weeklyRound(1)
	engine, store := newEngine(t, scheduled("a", r1.StartDate), scheduled("b", r1.StartDate.Add(-time.Hour)))
	store.AddRound(r1)

	groups, err := engine.Rounds(ctx, "epl", "2025")
	assert.ErrorIs(t, err, ErrAmbiguousRoundAssignment)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Matches, 1)
	assert.Equal(t, "a", groups[0].Matches[0].ID)
}

func TestRefresher_CoalescesTriggers(t *testing.T) {
	engine, store := newEngine(t, finished("m1", "ars", "che", 1, 0))
	refresher := NewRefresher(engine, engine.logger)

	refresher.Trigger("epl", "2025")
	refresher.Trigger("epl", "2025")
	refresher.Trigger("epl", "2024")
	assert.Equal(t, 2, refresher.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- refresher.Run(ctx) }()

	require.Eventually(t, func() bool {
		return refresher.Pending() == 0 && store.TableWrites() == 1
	}, 2*time.Second, 5*time.Millisecond)

	stored, err := store.ListStandings(context.Background(), "epl", "2025")
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	// The empty 2024 table matches the empty stored one, so nothing is written.
	empty, err := store.ListStandings(context.Background(), "epl", "2024")
	require.NoError(t, err)
	assert.Empty(t, empty)

	cancel()
	require.NoError(t, <-done)
}
