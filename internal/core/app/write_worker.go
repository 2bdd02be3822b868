package app

import (
	"context"
	"errors"
	"io"
	"time"

	"fortdoc/internal/core/ports"
	"fortdoc/internal/data/queue"
)

const (
	writeBatchSize     = 8
	writeFlushInterval = 100 * time.Millisecond
	drainTimeout       = 10 * time.Second
)

// startWriteWorker moves symbol store writes off the rebuild path. Builds
// queued while the store is busy are coalesced to the newest one.
func (a *App) startWriteWorker() {
	if a == nil || a.symbolStore == nil || a.workerCancel != nil {
		return
	}
	a.writeQueue = queue.NewMemoryQueue(a.Config.DB.QueueCapacity)
	ctx, cancel := context.WithCancel(context.Background())
	a.workerCancel = cancel
	a.workerDone = make(chan struct{})
	go a.runWriteWorker(ctx)
}

func (a *App) runWriteWorker(ctx context.Context) {
	defer close(a.workerDone)

	for {
		batch, err := a.writeQueue.DequeueBatch(ctx, writeBatchSize, writeFlushInterval)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil && !errors.Is(err, io.EOF) {
			a.logger.Warn("write queue dequeue failed", "error", err)
			continue
		}
		if len(batch) > 0 {
			if applyErr := a.applyWriteBatch(ctx, batch); applyErr != nil {
				a.logger.Warn("symbol store write failed", "error", applyErr, "builds", len(batch))
			}
		}
		if errors.Is(err, io.EOF) {
			return
		}
	}
}

func (a *App) enqueueWrite(ctx context.Context, req ports.WriteRequest) error {
	if a.writeQueue == nil {
		return a.applyWriteRequest(ctx, req)
	}
	switch result := a.writeQueue.Enqueue(req); result {
	case ports.EnqueueAccepted:
		return nil
	case ports.EnqueueReplaced:
		a.logger.Debug("superseded a queued build", "project", req.ProjectKey)
		return nil
	default:
		a.logger.Debug("write queue closed, storing synchronously", "project", req.ProjectKey)
		return a.applyWriteRequest(ctx, req)
	}
}

// applyWriteBatch stores only the newest build per project of batch.
func (a *App) applyWriteBatch(ctx context.Context, batch []ports.WriteRequest) error {
	var firstErr error
	for _, req := range queue.Latest(batch) {
		if err := a.applyWriteRequest(ctx, req); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (a *App) applyWriteRequest(ctx context.Context, req ports.WriteRequest) error {
	if a.symbolStore == nil {
		return nil
	}
	// A cancelled worker still finishes the write it started.
	ctx = context.WithoutCancel(ctx)
	run, err := a.symbolStore.SaveRun(ctx, req.ProjectKey, req.Project, req.Sessions)
	if err != nil {
		return err
	}
	a.logger.Debug("stored build", "run", run.ID, "project", run.ProjectKey, "queued_for", time.Since(req.QueuedAt))

	if keep := a.Config.DB.KeepRuns; keep > 0 {
		deleted, err := a.symbolStore.Prune(ctx, req.ProjectKey, keep)
		if err != nil {
			return err
		}
		if deleted > 0 {
			a.logger.Debug("pruned stored runs", "project", req.ProjectKey, "deleted", deleted)
		}
	}
	return nil
}

func (a *App) stopWriteWorker(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if a.workerCancel != nil {
		a.workerCancel()
		a.workerCancel = nil
	}
	if a.workerDone != nil {
		select {
		case <-a.workerDone:
		case <-ctx.Done():
			return ctx.Err()
		}
		a.workerDone = nil
	}
	if a.writeQueue == nil {
		return nil
	}
	if err := a.writeQueue.Close(); err != nil {
		return err
	}
	if err := a.drainWriteQueue(ctx); err != nil {
		return err
	}
	a.writeQueue = nil
	return nil
}

func (a *App) drainWriteQueue(ctx context.Context) error {
	for {
		batch, err := a.writeQueue.DequeueBatch(ctx, writeBatchSize, 0)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if len(batch) > 0 {
			if applyErr := a.applyWriteBatch(ctx, batch); applyErr != nil {
				return applyErr
			}
		}
		if len(batch) == 0 || errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// Close flushes queued writes and closes the symbol store.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, drainTimeout)
		defer cancel()
	}
	if err := a.stopWriteWorker(ctx); err != nil {
		return err
	}
	if a.symbolStore != nil {
		if err := a.symbolStore.Close(); err != nil {
			return err
		}
		a.symbolStore = nil
	}
	return nil
}
