package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Dosada05/livescore/models"
)

// SnapshotSource provides the current state of a match.
type SnapshotSource interface {
	Snapshot(ctx context.Context, matchID string) (*models.Match, error)
}

// SnapshotFunc adapts a function to SnapshotSource.
type SnapshotFunc func(ctx context.Context, matchID string) (*models.Match, error)

func (f SnapshotFunc) Snapshot(ctx context.Context, matchID string) (*models.Match, error) {
	return f(ctx, matchID)
}

// Hub is the topic registry: one topic per followed match, created on the
// first subscribe and released when its last subscriber leaves. Topics hold
// sessions; sessions only remember match identifiers.
type Hub struct {
	source  SnapshotSource
	logger  *slog.Logger
	metrics *Metrics

	mu       sync.RWMutex
	topics   map[string]*topic
	sessions map[*Session]struct{}
}

type topic struct {
	matchID  string
	sessions map[*Session]struct{}
}

func NewHub(source SnapshotSource, logger *slog.Logger, metrics *Metrics) *Hub {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Hub{
		source:   source,
		logger:   logger,
		metrics:  metrics,
		topics:   make(map[string]*topic),
		sessions: make(map[*Session]struct{}),
	}
}

// Register tracks a newly connected session.
func (h *Hub) Register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()
	h.metrics.Sessions.Set(float64(n))
	h.logger.Debug("session registered", slog.String("session_id", s.ID), slog.Int("sessions", n))
}

// Subscribe adds s to the topic of matchID and queues the current snapshot.
func (h *Hub) Subscribe(ctx context.Context, s *Session, matchID string) error {
	return h.subscribe(ctx, s, matchID, 0, false)
}

// Resume re-follows every match in versions. A match whose version is
// unchanged gets no frame; any other gets a full snapshot.
func (h *Hub) Resume(ctx context.Context, s *Session, versions map[string]int64) error {
	var errs []error
	for matchID, known := range versions {
		if err := h.subscribe(ctx, s, matchID, known, true); err != nil {
			if errors.Is(err, ErrSessionOverflow) || errors.Is(err, ErrSessionClosed) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Hub) subscribe(ctx context.Context, s *Session, matchID string, known int64, haveKnown bool) error {
	h.mu.Lock()
	// beginSync and close serialize on the session lock, so either Drop sees
	// this topic or the session is already closed here.
	if !s.beginSync(matchID) {
		h.mu.Unlock()
		return ErrSessionClosed
	}
	t, ok := h.topics[matchID]
	if !ok {
		t = &topic{matchID: matchID, sessions: make(map[*Session]struct{})}
		h.topics[matchID] = t
		h.metrics.Topics.Set(float64(len(h.topics)))
	}
	t.sessions[s] = struct{}{}
	h.mu.Unlock()

	// Registered before reading the snapshot: any later commit reaches the
	// session, and anything the snapshot already covers is dropped by version.
	snap, err := h.source.Snapshot(ctx, matchID)
	if err != nil {
		h.Unsubscribe(s, matchID)
		return err
	}
	if err := s.completeSync(snap, known, haveKnown); err != nil {
		h.Drop(s, err)
		return err
	}

	h.logger.Debug("session subscribed",
		slog.String("session_id", s.ID),
		slog.String("match_id", matchID),
		slog.Int64("version", snap.Version),
	)
	return nil
}

// Unsubscribe removes s from the topic of matchID.
func (h *Hub) Unsubscribe(s *Session, matchID string) {
	s.forget(matchID)
	h.mu.Lock()
	h.removeLocked(s, matchID)
	h.mu.Unlock()
}

// Drop closes s and removes it from every topic. reason is nil for a normal
// disconnect.
func (h *Hub) Drop(s *Session, reason error) {
	ids, first := s.close(reason)

	h.mu.Lock()
	for _, id := range ids {
		h.removeLocked(s, id)
	}
	delete(h.sessions, s)
	n := len(h.sessions)
	h.mu.Unlock()

	if !first {
		return
	}
	h.metrics.Sessions.Set(float64(n))
	if errors.Is(reason, ErrSessionOverflow) {
		h.metrics.Overflows.Inc()
		h.logger.Warn("session dropped", slog.String("session_id", s.ID), slog.Any("error", reason))
		return
	}
	h.logger.Debug("session closed", slog.String("session_id", s.ID), slog.Int("topics", len(ids)))
}

func (h *Hub) removeLocked(s *Session, matchID string) {
	t, ok := h.topics[matchID]
	if !ok {
		return
	}
	delete(t.sessions, s)
	if len(t.sessions) == 0 {
		delete(h.topics, matchID)
		h.metrics.Topics.Set(float64(len(h.topics)))
	}
}

// Subscribers returns the number of sessions following matchID.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if t, ok := h.topics[matchID]; ok {
		return len(t.sessions)
	}
	return 0
}

// TopicCount returns the number of live topics.
func (h *Hub) TopicCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics)
}

// SessionCount returns the number of registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// deliver fans d out to the topic's sessions. Slow sessions are dropped, never
// waited on.
func (h *Hub) deliver(d Delta) {
	h.mu.RLock()
	t, ok := h.topics[d.MatchID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Session, 0, len(t.sessions))
	for s := range t.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		if err := s.deliver(d); err != nil {
			h.Drop(s, err)
		}
	}
}
