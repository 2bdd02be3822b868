package queue

import (
	"context"
	"io"
	"testing"
	"time"

	"fortdoc/internal/core/ports"
	"fortdoc/internal/engine/project"
)

func request(key, name string) ports.WriteRequest {
	return ports.WriteRequest{ProjectKey: key, Project: project.New(name, nil)}
}

func TestMemoryQueue_EnqueueDequeue(t *testing.T) {
	q := NewMemoryQueue(2)
	t.Cleanup(func() { _ = q.Close() })

	if got := q.Enqueue(request("p", "first")); got != ports.EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if got := q.Enqueue(request("p", "second")); got != ports.EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}

	batch, err := q.DequeueBatch(context.Background(), 2, time.Millisecond)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 items, got %d", len(batch))
	}
	if batch[0].Project.Name != "first" || batch[1].Project.Name != "second" {
		t.Fatalf("unexpected order: %s, %s", batch[0].Project.Name, batch[1].Project.Name)
	}
	if batch[0].QueuedAt.IsZero() {
		t.Fatal("expected QueuedAt to be stamped")
	}
}

func TestMemoryQueue_FullQueueEvictsOldest(t *testing.T) {
	q := NewMemoryQueue(1)
	t.Cleanup(func() { _ = q.Close() })

	if got := q.Enqueue(request("p", "old")); got != ports.EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if got := q.Enqueue(request("p", "new")); got != ports.EnqueueReplaced {
		t.Fatalf("expected enqueue replaced, got %s", got)
	}
	if q.Evicted() != 1 {
		t.Fatalf("evicted = %d, want 1", q.Evicted())
	}

	batch, err := q.DequeueBatch(context.Background(), 4, 0)
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	if len(batch) != 1 || batch[0].Project.Name != "new" {
		t.Fatalf("expected only the newest build, got %d items", len(batch))
	}
}

func TestMemoryQueue_EmptyWaitTimesOut(t *testing.T) {
	q := NewMemoryQueue(1)
	t.Cleanup(func() { _ = q.Close() })

	start := time.Now()
	batch, err := q.DequeueBatch(context.Background(), 1, 20*time.Millisecond)
	if err != nil || batch != nil {
		t.Fatalf("expected empty result, got %v, %v", batch, err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("returned before the wait elapsed")
	}
}

func TestMemoryQueue_CloseReturnsEOFWhenDrained(t *testing.T) {
	q := NewMemoryQueue(1)
	if got := q.Enqueue(request("p", "a")); got != ports.EnqueueAccepted {
		t.Fatalf("expected enqueue accepted, got %s", got)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := q.Enqueue(request("p", "b")); got != ports.EnqueueDropped {
		t.Fatalf("expected enqueue dropped after close, got %s", got)
	}

	batch, err := q.DequeueBatch(context.Background(), 2, 0)
	if len(batch) != 1 {
		t.Fatalf("expected 1 item after close, got %d", len(batch))
	}
	if err != io.EOF {
		t.Fatalf("expected io.EOF with final drained batch, got %v", err)
	}

	batch, err = q.DequeueBatch(context.Background(), 1, 0)
	if err != io.EOF {
		t.Fatalf("expected io.EOF on empty closed queue, got %v", err)
	}
	if len(batch) != 0 {
		t.Fatalf("expected 0 items, got %d", len(batch))
	}
}

func TestLatest(t *testing.T) {
	batch := []ports.WriteRequest{
		request("a", "a1"),
		request("b", "b1"),
		request("a", "a2"),
	}
	got := Latest(batch)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Project.Name != "a2" || got[1].Project.Name != "b1" {
		t.Fatalf("got %s, %s; want a2, b1", got[0].Project.Name, got[1].Project.Name)
	}
}
