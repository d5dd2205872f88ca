// Package worker runs chat turns so that each session is served serially
// while different sessions proceed in parallel.
package worker

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
)

var (
	// ErrQueueFull is returned when the session's shard cannot take more work.
	ErrQueueFull = errors.New("worker: queue full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker: pool stopped")
)

// job is one queued turn.
type job struct {
	ctx  context.Context
	fn   func(context.Context)
	done chan struct{}
}

// Pool owns a fixed set of shards, each drained by a single goroutine.
type Pool struct {
	shards []chan job
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a pool with the given worker count and per-worker queue size.
func NewPool(workers int, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	shards := make([]chan job, workers)
	for i := range shards {
		shards[i] = make(chan job, queueSize)
	}
	return &Pool{shards: shards}
}

// Start launches one goroutine per shard.
func (p *Pool) Start() {
	for i, shard := range p.shards {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range shard {
				p.run(i, j)
			}
		}()
	}
}

// Stop closes the queues and waits for queued work to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, shard := range p.shards {
		close(shard)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues fn on the shard owning sessionID and blocks until it has
// run or ctx is done. It never blocks on a full queue.
func (p *Pool) Submit(ctx context.Context, sessionID string, fn func(context.Context)) error {
	j := job{ctx: ctx, fn: fn, done: make(chan struct{})}

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return ErrStopped
	}
	select {
	case p.shards[p.shardFor(sessionID)] <- j:
	default:
		p.mu.RUnlock()
		return ErrQueueFull
	}
	p.mu.RUnlock()

	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) shardFor(sessionID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return int(h.Sum32() % uint32(len(p.shards)))
}

func (p *Pool) run(shard int, j job) {
	defer close(j.done)
	if err := j.ctx.Err(); err != nil {
		slog.Debug("worker: skipping abandoned turn", "shard", shard, "error", err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker: turn panicked", "shard", shard, "panic", r)
		}
	}()
	j.fn(j.ctx)
}
