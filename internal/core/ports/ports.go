// Package ports holds the interfaces between the build orchestration and
// its storage adapters.
package ports

import (
	"context"
	"time"

	"fortdoc/internal/data/symbols"
	"fortdoc/internal/engine/crosswalk"
	"fortdoc/internal/engine/project"
)

// SymbolStore persists correlated builds.
type SymbolStore interface {
	SaveRun(ctx context.Context, projectKey string, p *project.Project, sessions []crosswalk.IOSession) (symbols.Run, error)
	Prune(ctx context.Context, projectKey string, keep int) (int64, error)
	Close() error
}

// WriteRequest is one correlated build waiting to be stored. The project
// is read-only once queued.
type WriteRequest struct {
	ProjectKey string
	Project    *project.Project
	Sessions   []crosswalk.IOSession
	QueuedAt   time.Time
}

type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	// EnqueueReplaced means the oldest queued build was discarded to make
	// room; a newer build of the same tree supersedes it.
	EnqueueReplaced EnqueueResult = "replaced"
	EnqueueDropped  EnqueueResult = "dropped"
)

// WriteQueuePort buffers write requests between a build and the store.
type WriteQueuePort interface {
	Enqueue(req WriteRequest) EnqueueResult
	DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]WriteRequest, error)
	Close() error
}
