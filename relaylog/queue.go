// Package relaylog implements the bounded single-producer/single-consumer
// hand-off the core pipeline pushes decoded events into: one downstream
// shard per queue, backed by a Go buffered channel rather than the
// ring-buffer-plus-waker machinery the queue was originally built from, and
// exposing both a non-blocking push (for callers that want
// backpressure signaled rather than waited on) and a context-aware blocking
// push.
package relaylog

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultCapacity is the queue capacity used when NewQueue or NewManager is
// given a capacity <= 0.
const DefaultCapacity = 5120

// Queue is a bounded SPSC hand-off: one pipeline goroutine pushes, one
// downstream consumer goroutine pops. The zero value is not usable;
// construct with NewQueue.
type Queue struct {
	ch  chan interface{}
	cap int
}

// NewQueue returns a Queue that holds at most capacity entries before Push
// blocks and TryPush reports NeedsCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan interface{}, capacity), cap: capacity}
}

// TryPush attempts to enqueue v without blocking. It reports false
// (NeedsCapacity, in spec terms) if the queue is currently full.
func (q *Queue) TryPush(v interface{}) bool {
	select {
	case q.ch <- v:
		return true
	default:
		return false
	}
}

// Push enqueues v, blocking until there is room or ctx is done.
func (q *Queue) Push(ctx context.Context, v interface{}) error {
	select {
	case q.ch <- v:
		return nil
	default:
	}
	select {
	case q.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop removes and returns the oldest entry, blocking until one is available
// or ctx is done.
func (q *Queue) Pop(ctx context.Context) (interface{}, error) {
	select {
	case v := <-q.ch:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryPop removes and returns the oldest entry without blocking. ok is false
// if the queue is currently empty.
func (q *Queue) TryPop() (v interface{}, ok bool) {
	select {
	case v = <-q.ch:
		return v, true
	default:
		return nil, false
	}
}

// Len reports the number of entries currently queued. Because it reads
// len(chan) it is a snapshot, not a guarantee, under concurrent access.
func (q *Queue) Len() int { return len(q.ch) }

// Cap reports the queue's configured capacity.
func (q *Queue) Cap() int { return q.cap }

// IsFull reports whether the queue is at capacity.
func (q *Queue) IsFull() bool { return len(q.ch) >= q.cap }

// Manager owns one Queue per downstream shard, identified by an arbitrary
// shard id (e.g. a binlog-reader or replica id), creating queues lazily on
// first access.
type Manager struct {
	mu              sync.Mutex
	queues          map[uint64]*Queue
	defaultCapacity int
	log             *logrus.Entry
}

// NewManager returns an empty Manager whose queues, created by GetOrCreate,
// all hold capacity entries (DefaultCapacity if capacity <= 0).
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		queues:          make(map[uint64]*Queue),
		defaultCapacity: capacity,
		log:             logrus.WithField("component", "relaylog"),
	}
}

// GetOrCreate returns the queue for shardID, creating it at the Manager's
// default capacity if this is the first request for that shard.
func (m *Manager) GetOrCreate(shardID uint64) *Queue {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queues[shardID]
	if !ok {
		q = NewQueue(m.defaultCapacity)
		m.queues[shardID] = q
		m.log.WithField("shard", shardID).Debug("relay queue created")
	}
	return q
}

// Remove discards the queue for shardID, if any. Entries still queued are
// dropped; callers that need to drain first should Pop until empty before
// calling Remove.
func (m *Manager) Remove(shardID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.queues, shardID)
}

// Shards returns the ids of all currently tracked shards.
func (m *Manager) Shards() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uint64, 0, len(m.queues))
	for id := range m.queues {
		ids = append(ids, id)
	}
	return ids
}
