package live

import (
	"sort"
	"sync"

	"github.com/Dosada05/livescore/models"
	"github.com/google/uuid"
)

// DefaultSessionBuffer is the outbound frame bound used when none is given.
const DefaultSessionBuffer = 256

// Session is one subscriber connection. It remembers, per subscribed match,
// the last version it has queued so duplicates are dropped and gaps force a
// resync.
type Session struct {
	ID string

	send chan Frame
	done chan struct{}

	mu      sync.Mutex
	topics  map[string]*cursor
	closed  bool
	reason  error
	metrics *Metrics
}

type cursor struct {
	version int64
	syncing bool
	pending []Delta
}

func NewSession(bufferSize int, metrics *Metrics) *Session {
	if bufferSize <= 0 {
		bufferSize = DefaultSessionBuffer
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Session{
		ID:      uuid.NewString(),
		send:    make(chan Frame, bufferSize),
		done:    make(chan struct{}),
		topics:  make(map[string]*cursor),
		metrics: metrics,
	}
}

// Outbox yields frames in the order they must be written.
func (s *Session) Outbox() <-chan Frame { return s.send }

// Done is closed once the session is torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns why the session was closed; nil for a normal close.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Topics returns the subscribed match identifiers in sorted order.
func (s *Session) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topicIDsLocked()
}

// Version returns the last version queued for matchID.
func (s *Session) Version(matchID string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.topics[matchID]
	if !ok || c.syncing {
		return 0, false
	}
	return c.version, true
}

// Notify queues a control frame. It reports ErrSessionOverflow when the
// outbound buffer is full.
func (s *Session) Notify(f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if !s.pushLocked(f) {
		return ErrSessionOverflow
	}
	return nil
}

// beginSync marks matchID as awaiting a snapshot. Deltas arriving meanwhile
// are held back until the snapshot is installed.
func (s *Session) beginSync(matchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.topics[matchID] = &cursor{syncing: true}
	return true
}

// completeSync installs snap for its match. When known equals the snapshot
// version the client is already current and no frame is sent.
func (s *Session) completeSync(snap *models.Match, known int64, haveKnown bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	c, ok := s.topics[snap.ID]
	if !ok || !c.syncing {
		return nil
	}

	c.syncing = false
	c.version = snap.Version
	if !haveKnown || known != snap.Version {
		if !s.pushLocked(snapshotFrame(snap)) {
			return ErrSessionOverflow
		}
	}

	pending := c.pending
	c.pending = nil
	for _, d := range pending {
		if err := s.advanceLocked(c, d); err != nil {
			return err
		}
	}
	return nil
}

// deliver queues d if the session still follows its match. It never blocks.
func (s *Session) deliver(d Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	c, ok := s.topics[d.MatchID]
	if !ok {
		return nil
	}
	if c.syncing {
		if len(c.pending) >= cap(s.send) {
			return ErrSessionOverflow
		}
		c.pending = append(c.pending, d)
		return nil
	}
	return s.advanceLocked(c, d)
}

func (s *Session) advanceLocked(c *cursor, d Delta) error {
	var f Frame
	switch {
	case d.Version <= c.version:
		return nil
	case d.Version == c.version+1:
		f = deltaFrame(d)
	default:
		// Missed at least one version: the delta alone would be wrong.
		f = snapshotFrame(d.Snapshot)
		s.metrics.Resyncs.Inc()
	}
	if !s.pushLocked(f) {
		return ErrSessionOverflow
	}
	c.version = d.Version
	return nil
}

func (s *Session) pushLocked(f Frame) bool {
	select {
	case s.send <- f:
		s.metrics.Delivered.Inc()
		return true
	default:
		return false
	}
}

func (s *Session) forget(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.topics, matchID)
}

// close tears the session down and returns the topics it followed. Only the
// first call has an effect.
func (s *Session) close(reason error) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	s.closed = true
	s.reason = reason
	ids := s.topicIDsLocked()
	s.topics = make(map[string]*cursor)
	close(s.done)
	return ids, true
}

func (s *Session) topicIDsLocked() []string {
	ids := make([]string, 0, len(s.topics))
	for id := range s.topics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
