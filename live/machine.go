package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Dosada05/livescore/models"
)

// MatchStore is the durable source of truth for matches.
type MatchStore interface {
	LoadMatch(ctx context.Context, id string) (*models.Match, error)
	SaveMatch(ctx context.Context, m *models.Match) error
}

// DeltaQueue receives committed deltas. The machine never talks to
// subscribers directly.
type DeltaQueue interface {
	Enqueue(d Delta)
}

// Machine owns the authoritative state of in-play matches and serializes
// every mutation per match. Matches that are not in play are read through
// from the store and dropped again after the commit.
type Machine struct {
	store   MatchStore
	queue   DeltaQueue
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time

	mu      sync.Mutex
	matches map[string]*matchEntry
}

type matchEntry struct {
	mu      sync.Mutex
	match   *models.Match
	evicted bool
}

func NewMachine(store MatchStore, queue DeltaQueue, logger *slog.Logger, metrics *Metrics) *Machine {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Machine{
		store:   store,
		queue:   queue,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
		matches: make(map[string]*matchEntry),
	}
}

// Apply validates cmd against the current state of the match and commits it.
// On success the new state is persisted, one delta is enqueued and a copy of
// the committed match is returned. On failure nothing changes.
func (m *Machine) Apply(ctx context.Context, matchID string, cmd Command) (*models.Match, error) {
	e, err := m.lock(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer e.mu.Unlock()
	start := time.Now()

	current := e.match
	next := current.Clone()
	changes, err := apply(next, cmd)
	if err != nil {
		m.metrics.Rejections.WithLabelValues(cmd.Name(), Reason(err)).Inc()
		if !resident(current.Status) {
			m.evict(matchID, e)
		}
		return nil, err
	}

	next.Version = current.Version + 1
	next.UpdatedAt = m.now().UTC()
	if err := m.store.SaveMatch(ctx, next); err != nil {
		// The store may now disagree with memory; reload on next access.
		m.evict(matchID, e)
		m.metrics.Rejections.WithLabelValues(cmd.Name(), "store").Inc()
		return nil, fmt.Errorf("save match %s: %w", matchID, err)
	}
	e.match = next

	m.queue.Enqueue(Delta{
		MatchID:     matchID,
		Version:     next.Version,
		Command:     cmd.Name(),
		Changes:     changes,
		Snapshot:    next.Clone(),
		CommittedAt: next.UpdatedAt,
	})

	if !resident(next.Status) {
		m.evict(matchID, e)
	}
	m.metrics.Commits.WithLabelValues(cmd.Name()).Inc()
	m.metrics.CommitDuration.Observe(time.Since(start).Seconds())

	m.logger.Debug("match mutation committed",
		slog.String("match_id", matchID),
		slog.String("command", cmd.Name()),
		slog.Int64("version", next.Version),
		slog.String("status", string(next.Status)),
	)
	return next.Clone(), nil
}

func (m *Machine) ApplyScoreUpdate(ctx context.Context, matchID string, home, away int) (*models.Match, error) {
	return m.Apply(ctx, matchID, ScoreUpdate{Home: home, Away: away})
}

func (m *Machine) AppendEvent(ctx context.Context, matchID string, ev models.MatchEvent) (*models.Match, error) {
	return m.Apply(ctx, matchID, AppendEvent{Event: ev})
}

func (m *Machine) TransitionStatus(ctx context.Context, matchID string, status models.MatchStatus, minute *int) (*models.Match, error) {
	return m.Apply(ctx, matchID, StatusChange{Status: status, Minute: minute})
}

func (m *Machine) UpdateClock(ctx context.Context, matchID string, minute int) (*models.Match, error) {
	return m.Apply(ctx, matchID, ClockUpdate{Minute: minute})
}

// Snapshot returns the current state of the match and its version.
func (m *Machine) Snapshot(ctx context.Context, matchID string) (*models.Match, error) {
	m.mu.Lock()
	e := m.matches[matchID]
	m.mu.Unlock()

	if e != nil {
		e.mu.Lock()
		if !e.evicted && e.match != nil {
			snap := e.match.Clone()
			e.mu.Unlock()
			return snap, nil
		}
		e.mu.Unlock()
	}

	match, err := m.store.LoadMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load match %s: %w", matchID, err)
	}
	return match, nil
}

// Resident returns the number of matches currently held in memory.
func (m *Machine) Resident() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.matches)
}

// lock returns the locked entry for matchID, loading it from the store when
// it is not resident.
func (m *Machine) lock(ctx context.Context, matchID string) (*matchEntry, error) {
	for {
		m.mu.Lock()
		e, ok := m.matches[matchID]
		if !ok {
			e = &matchEntry{}
			m.matches[matchID] = e
			m.metrics.ResidentMatch.Set(float64(len(m.matches)))
		}
		m.mu.Unlock()

		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			continue
		}
		if e.match == nil {
			loaded, err := m.store.LoadMatch(ctx, matchID)
			if err != nil {
				m.evict(matchID, e)
				e.mu.Unlock()
				return nil, fmt.Errorf("load match %s: %w", matchID, err)
			}
			e.match = loaded
		}
		return e, nil
	}
}

// evict must be called with e.mu held.
func (m *Machine) evict(matchID string, e *matchEntry) {
	e.evicted = true
	m.mu.Lock()
	if m.matches[matchID] == e {
		delete(m.matches, matchID)
	}
	m.metrics.ResidentMatch.Set(float64(len(m.matches)))
	m.mu.Unlock()
}

func resident(s models.MatchStatus) bool {
	return s.InPlay()
}
