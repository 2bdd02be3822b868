// Package queue buffers correlated builds for the background store writer.
package queue

import (
	"context"
	"io"
	"sync"
	"time"

	"fortdoc/internal/core/ports"
)

var _ ports.WriteQueuePort = (*MemoryQueue)(nil)

// MemoryQueue is a bounded in-memory queue. Enqueue never blocks: when the
// queue is full the oldest build is evicted, since every later build of the
// same tree supersedes it.
type MemoryQueue struct {
	ch      chan ports.WriteRequest
	mu      sync.RWMutex
	closed  bool
	evicted int
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan ports.WriteRequest, capacity)}
}

func (q *MemoryQueue) Enqueue(req ports.WriteRequest) ports.EnqueueResult {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ports.EnqueueDropped
	}
	if req.QueuedAt.IsZero() {
		req.QueuedAt = time.Now()
	}
	select {
	case q.ch <- req:
		return ports.EnqueueAccepted
	default:
	}

	// Full. Enqueue holds the write lock, so after one receive there is
	// room unless a consumer raced us to it, which also leaves room.
	select {
	case <-q.ch:
		q.evicted++
	default:
	}
	select {
	case q.ch <- req:
		return ports.EnqueueReplaced
	default:
		return ports.EnqueueDropped
	}
}

// DequeueBatch waits up to wait for a first request, then takes whatever
// else is queued up to maxItems. It returns io.EOF once the queue is
// closed and drained.
func (q *MemoryQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]ports.WriteRequest, error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	batch := make([]ports.WriteRequest, 0, maxItems)

	first, err := q.first(ctx, wait)
	if err != nil || first == nil {
		return nil, err
	}
	batch = append(batch, *first)

	for len(batch) < maxItems {
		select {
		case req, ok := <-q.ch:
			if !ok {
				return batch, io.EOF
			}
			batch = append(batch, req)
		default:
			return batch, nil
		}
	}
	return batch, nil
}

func (q *MemoryQueue) first(ctx context.Context, wait time.Duration) (*ports.WriteRequest, error) {
	select {
	case req, ok := <-q.ch:
		if !ok {
			return nil, io.EOF
		}
		return &req, nil
	default:
	}
	if wait <= 0 {
		return nil, nil
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case req, ok := <-q.ch:
		if !ok {
			return nil, io.EOF
		}
		return &req, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.C:
		return nil, nil
	}
}

// Latest returns the most recently queued request of batch for each
// project key, in first-seen key order.
func Latest(batch []ports.WriteRequest) []ports.WriteRequest {
	index := make(map[string]int, len(batch))
	var out []ports.WriteRequest
	for _, req := range batch {
		if i, ok := index[req.ProjectKey]; ok {
			out[i] = req
			continue
		}
		index[req.ProjectKey] = len(out)
		out = append(out, req)
	}
	return out
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

func (q *MemoryQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}

// Evicted counts the builds discarded to make room.
func (q *MemoryQueue) Evicted() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.evicted
}
