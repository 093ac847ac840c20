package live

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultDispatchWorkers = 4
	DefaultQueueSize       = 1024
)

// Dispatcher moves committed deltas from the machine to the hub. Each match
// hashes to one shard, so deltas of a match are delivered in commit order
// while different matches fan out in parallel.
type Dispatcher struct {
	hub    *Hub
	shards []chan Delta
	logger *slog.Logger

	stopOnce sync.Once
	stopped  chan struct{}
}

func NewDispatcher(hub *Hub, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultDispatchWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	shards := make([]chan Delta, workers)
	for i := range shards {
		shards[i] = make(chan Delta, queueSize)
	}
	return &Dispatcher{
		hub:     hub,
		shards:  shards,
		logger:  logger,
		stopped: make(chan struct{}),
	}
}

// Enqueue hands d to its shard. It blocks only while the shard queue is full
// and returns immediately once the dispatcher has stopped.
func (d *Dispatcher) Enqueue(delta Delta) {
	select {
	case d.shards[d.shardFor(delta.MatchID)] <- delta:
	case <-d.stopped:
	}
}

// Run delivers deltas until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.stopOnce.Do(func() { close(d.stopped) })

	g, ctx := errgroup.WithContext(ctx)
	for i, shard := range d.shards {
		g.Go(func() error {
			d.logger.Debug("dispatch shard started", slog.Int("shard", i))
			for {
				select {
				case <-ctx.Done():
					return nil
				case delta := <-shard:
					d.hub.deliver(delta)
				}
			}
		})
	}
	return g.Wait()
}

func (d *Dispatcher) shardFor(matchID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(matchID))
	return int(h.Sum32() % uint32(len(d.shards)))
}
