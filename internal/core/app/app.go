// # internal/core/app/app.go

// Package app runs the documentation build: discovery, parsing,
// correlation, cross walking, outputs and the watch loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fortdoc/internal/core/config"
	"fortdoc/internal/core/errors"
	"fortdoc/internal/core/ports"
	"fortdoc/internal/data/externals"
	"fortdoc/internal/data/symbols"
	"fortdoc/internal/engine/correlate"
	"fortdoc/internal/engine/crosswalk"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/parser"
	"fortdoc/internal/engine/project"
	"fortdoc/internal/shared/observability"
)

// Build is the result of one full pass over the sources. It is read-only
// once returned.
type Build struct {
	Project   *project.Project
	Index     *crosswalk.Index
	CrossWalk []*crosswalk.Result
	Sessions  []crosswalk.IOSession
	Duration  time.Duration
}

type App struct {
	Config *config.Config
	Parser *parser.Parser
	logger *slog.Logger

	symbolStore  ports.SymbolStore
	writeQueue   ports.WriteQueuePort
	workerCancel context.CancelFunc
	workerDone   chan struct{}

	lastMu sync.RWMutex
	last   *Build

	updateMu sync.RWMutex
	onUpdate func(*Build)
}

// New prepares an App for cfg. The symbol store is opened when cfg.DB is
// enabled.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{
		Config: cfg,
		Parser: parser.New(cfg.ParserSettings(), logger),
		logger: logger,
	}
	if cfg.DB.Enabled {
		store, err := symbols.Open(cfg.DB.Path)
		if err != nil {
			return nil, errors.AddContext(err, errors.CtxOperation, "open_symbol_store")
		}
		a.symbolStore = store
	}
	return a, nil
}

// NewWithStore is New with a caller-provided store, used by tests and by
// callers sharing one store between apps.
func NewWithStore(cfg *config.Config, logger *slog.Logger, store ports.SymbolStore) (*App, error) {
	a, err := New(cfg, logger)
	if err != nil {
		return nil, err
	}
	if a.symbolStore != nil {
		_ = a.symbolStore.Close()
	}
	a.symbolStore = store
	return a, nil
}

func (a *App) SetUpdateHandler(handler func(*Build)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(b *Build) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(b)
	}
}

// Last returns the most recent successful build, or nil.
func (a *App) Last() *Build {
	a.lastMu.RLock()
	defer a.lastMu.RUnlock()
	return a.last
}

// Build runs one full pass over the configured sources.
func (a *App) Build(ctx context.Context) (*Build, error) {
	ctx, span := observability.Tracer.Start(ctx, "app.Build")
	defer span.End()
	start := time.Now()

	opts := a.Config.ProjectOptions()
	sources, err := project.Discover(opts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.AddContext(err, errors.CtxOperation, "discover")
	}
	if len(sources) == 0 {
		a.logger.Warn("no Fortran sources found", "src_dirs", strings.Join(opts.SrcDirs, ","))
	}
	span.SetAttributes(attribute.Int("sources", len(sources)))

	stubs, err := a.loadExternals()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	p, err := project.Load(ctx, a.Config.Project.Name, a.Parser, sources, opts, a.logger)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	copts := a.Config.CorrelateOptions()
	copts.Externals = stubs
	if err := correlate.Run(ctx, p, copts, a.logger); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.AddContext(err, errors.CtxOperation, "correlate")
	}

	units := crosswalk.Units(p)
	b := &Build{
		Project:   p,
		Index:     crosswalk.BuildIndex(p),
		CrossWalk: crosswalk.Run(p, a.logger),
		Sessions:  crosswalk.MasterList(units),
		Duration:  time.Since(start),
	}
	recordSessions(units, len(b.Sessions))

	span.AddEvent("build.done", trace.WithAttributes(
		attribute.Int("files", len(p.Files)),
		attribute.Int("warnings", len(p.Warnings)),
	))
	a.logger.Info("build finished",
		"project", p.Name,
		"files", len(p.Files),
		"modules", len(p.Modules),
		"procedures", len(p.Procedures),
		"warnings", len(p.Warnings),
		"duration", b.Duration,
		"heap_mb", heapMB(),
	)

	a.lastMu.Lock()
	a.last = b
	a.lastMu.Unlock()
	return b, nil
}

// loadExternals reads the module metadata files named in the config. A
// missing file is skipped with a warning since it is usually produced by a
// build that has not run yet.
func (a *App) loadExternals() ([]*model.ExternalModule, error) {
	var out []*model.ExternalModule
	for _, path := range a.Config.Externals.Metadata {
		mods, err := externals.Load(path)
		if err != nil {
			if errors.IsCode(err, errors.CodeNotFound) {
				a.logger.Warn("module metadata not found", "path", path)
				continue
			}
			return nil, errors.AddContext(err, errors.CtxPath, path)
		}
		a.logger.Debug("loaded module metadata", "path", path, "modules", len(mods))
		out = append(out, mods...)
	}
	return out, nil
}

func recordSessions(units []model.Entity, total int) {
	open := 0
	for _, u := range units {
		if ex := model.ExecOf(u); ex != nil {
			open += ex.Stragglers
		}
	}
	closed := total - open
	if closed < 0 {
		closed = 0
	}
	observability.IOSessionsTotal.WithLabelValues("closed").Add(float64(closed))
	observability.IOSessionsTotal.WithLabelValues("open").Add(float64(open))
}

// Persist stores b in the symbol store, through the write queue when the
// background writer runs. Without a store it does nothing.
func (a *App) Persist(ctx context.Context, b *Build) error {
	if a.symbolStore == nil || b == nil {
		return nil
	}
	return a.enqueueWrite(ctx, ports.WriteRequest{
		ProjectKey: a.Config.Project.Name,
		Project:    b.Project,
		Sessions:   b.Sessions,
	})
}

// Run builds once, writes the outputs and persists the build.
func (a *App) Run(ctx context.Context) (*Build, error) {
	b, err := a.Build(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := a.WriteOutputs(b); err != nil {
		return b, fmt.Errorf("write outputs: %w", err)
	}
	if err := a.Persist(ctx, b); err != nil {
		return b, fmt.Errorf("persist build: %w", err)
	}
	a.emitUpdate(b)
	return b, nil
}

// heapMB is the live heap in MiB, logged after every build.
func heapMB() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc >> 20
}
