package standings

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/livescore/models"
	"golang.org/x/sync/singleflight"
)

// Store is the read and write surface the engine needs.
type Store interface {
	ListMatches(ctx context.Context, filter models.MatchFilter) ([]*models.Match, error)
	ListRounds(ctx context.Context, leagueID, seasonID string) ([]models.Round, error)
	ListStandings(ctx context.Context, leagueID, seasonID string) ([]models.StandingRow, error)
	ReplaceStandings(ctx context.Context, leagueID, seasonID string, rows []models.StandingRow) error
}

type seasonKey struct {
	leagueID string
	seasonID string
}

type memoEntry struct {
	gen  uint64
	rows []models.StandingRow
}

// Engine serves standings and round groupings. Tables are memoized per league
// season and generation; Invalidate bumps the generation so the next read
// recomputes.
type Engine struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	gens  map[seasonKey]uint64
	memo  map[seasonKey]memoEntry
	group singleflight.Group
}

func NewEngine(store Store, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		logger: logger,
		now:    time.Now,
		gens:   make(map[seasonKey]uint64),
		memo:   make(map[seasonKey]memoEntry),
	}
}

// Standings returns the table of a league season computed from its finished
// matches.
func (e *Engine) Standings(ctx context.Context, leagueID, seasonID string) ([]models.StandingRow, error) {
	key := seasonKey{leagueID, seasonID}

	e.mu.Lock()
	gen := e.gens[key]
	if m, ok := e.memo[key]; ok && m.gen == gen {
		e.mu.Unlock()
		return copyRows(m.rows), nil
	}
	e.mu.Unlock()

	sfKey := fmt.Sprintf("%s/%s/%d", leagueID, seasonID, gen)
	v, err, _ := e.group.Do(sfKey, func() (any, error) {
		rows, err := e.compute(ctx, leagueID, seasonID)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		// A newer generation may have been issued while computing.
		if e.gens[key] == gen {
			e.memo[key] = memoEntry{gen: gen, rows: rows}
		}
		e.mu.Unlock()
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return copyRows(v.([]models.StandingRow)), nil
}

// Invalidate discards the memoized table of a league season.
func (e *Engine) Invalidate(leagueID, seasonID string) {
	key := seasonKey{leagueID, seasonID}
	e.mu.Lock()
	e.gens[key]++
	delete(e.memo, key)
	e.mu.Unlock()
}

// Rounds groups the league season's matches by round. On an ambiguous
// assignment the partial grouping is returned along with the error.
func (e *Engine) Rounds(ctx context.Context, leagueID, seasonID string) ([]models.RoundGroup, error) {
	rounds, err := e.store.ListRounds(ctx, leagueID, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	ms, err := e.store.ListMatches(ctx, models.MatchFilter{LeagueID: &leagueID, SeasonID: &seasonID})
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return GroupIntoRounds(ms, rounds)
}

// Recompute rebuilds the table and persists it when it differs from the
// stored one. It reports whether a write happened.
func (e *Engine) Recompute(ctx context.Context, leagueID, seasonID string) (bool, error) {
	e.Invalidate(leagueID, seasonID)
	rows, err := e.Standings(ctx, leagueID, seasonID)
	if err != nil {
		return false, err
	}

	stored, err := e.store.ListStandings(ctx, leagueID, seasonID)
	if err != nil {
		return false, fmt.Errorf("list standings: %w", err)
	}
	if Equal(rows, stored) {
		return false, nil
	}

	at := e.now().UTC()
	for i := range rows {
		rows[i].UpdatedAt = at
	}
	if err := e.store.ReplaceStandings(ctx, leagueID, seasonID, rows); err != nil {
		return false, fmt.Errorf("replace standings: %w", err)
	}
	e.logger.Info("standings updated",
		slog.String("league_id", leagueID),
		slog.String("season_id", seasonID),
		slog.Int("teams", len(rows)),
	)
	return true, nil
}

func (e *Engine) compute(ctx context.Context, leagueID, seasonID string) ([]models.StandingRow, error) {
	ms, err := e.store.ListMatches(ctx, models.MatchFilter{
		LeagueID: &leagueID,
		SeasonID: &seasonID,
		Statuses: []models.MatchStatus{models.StatusFinished},
	})
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	rows := ComputeTable(ms)
	for i := range rows {
		rows[i].LeagueID, rows[i].SeasonID = leagueID, seasonID
	}
	return rows, nil
}

func copyRows(rows []models.StandingRow) []models.StandingRow {
	out := make([]models.StandingRow, len(rows))
	copy(out, rows)
	return out
}
