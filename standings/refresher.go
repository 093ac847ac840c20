package standings

import (
	"context"
	"log/slog"
	"sync"
)

// Refresher persists standings in the background after matches finish.
// Triggers for the same league season coalesce while a refresh is pending.
type Refresher struct {
	engine *Engine
	logger *slog.Logger

	mu      sync.Mutex
	pending map[seasonKey]struct{}
	order   []seasonKey
	wake    chan struct{}
}

func NewRefresher(engine *Engine, logger *slog.Logger) *Refresher {
	return &Refresher{
		engine:  engine,
		logger:  logger,
		pending: make(map[seasonKey]struct{}),
		wake:    make(chan struct{}, 1),
	}
}

// Trigger schedules a refresh of a league season. It never blocks.
func (r *Refresher) Trigger(leagueID, seasonID string) {
	key := seasonKey{leagueID, seasonID}
	r.mu.Lock()
	if _, ok := r.pending[key]; !ok {
		r.pending[key] = struct{}{}
		r.order = append(r.order, key)
	}
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of league seasons waiting for a refresh.
func (r *Refresher) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Run processes triggers until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.wake:
		}
		for {
			key, ok := r.next()
			if !ok {
				break
			}
			if _, err := r.engine.Recompute(ctx, key.leagueID, key.seasonID); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.Error("standings refresh failed",
					slog.String("league_id", key.leagueID),
					slog.String("season_id", key.seasonID),
					slog.Any("error", err),
				)
			}
		}
	}
}

func (r *Refresher) next() (seasonKey, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		return seasonKey{}, false
	}
	key := r.order[0]
	r.order = r.order[1:]
	delete(r.pending, key)
	return key, true
}
