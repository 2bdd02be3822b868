package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortdoc/internal/core/config"
	fderrors "fortdoc/internal/core/errors"
	"fortdoc/internal/core/ports"
	"fortdoc/internal/data/symbols"
	"fortdoc/internal/engine/crosswalk"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/project"
)

const solverSrc = `module solver
  !! Linear solvers.
  implicit none
  type :: system_t
    integer :: n = 0
  end type system_t
contains
  subroutine solve(s)
    type(system_t) :: s
    open (12, file="matrix.dat")
    read (12, *) s%n
    close (12)
  end subroutine solve
end module solver
`

const mainSrc = `program main
  use solver
  type(system_t) :: sys
  call solve(sys)
end program main
`

func writeSources(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func testConfig(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	writeSources(t, filepath.Join(root, "src"), files)
	cfg := config.Default()
	cfg.Project.Name = "demo"
	cfg.Project.SrcDirs = []string{filepath.Join(root, "src")}
	cfg.Output.Dir = filepath.Join(root, "doc")
	cfg.DB.Path = filepath.Join(root, "data", "fortdoc.db")
	return cfg
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
	assert.True(t, fderrors.IsCode(err, fderrors.CodeValidationError))
}

func TestRun_BuildsAndWritesOutputs(t *testing.T) {
	cfg := testConfig(t, map[string]string{"solver.f90": solverSrc, "main.f90": mainSrc})
	a, err := New(cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	var updates int
	a.SetUpdateHandler(func(*Build) { updates++ })

	b, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, updates)
	assert.Same(t, b, a.Last())
	assert.Len(t, b.Project.Files, 2)
	require.Len(t, b.Project.Modules, 1)
	require.Len(t, b.Project.Programs, 1)

	prog := b.Project.Programs[0]
	require.Len(t, prog.Calls, 1)
	assert.True(t, prog.Calls[0].Resolved())

	ty, ok := b.Index.TypeOf("sys")
	require.True(t, ok)
	assert.Equal(t, "system_t", ty)
	def, ok := b.Index.Default("system_t", "n")
	require.True(t, ok)
	assert.Equal(t, "0", def)

	for _, name := range []string{cfg.Output.JSON, cfg.Output.IOJSON, cfg.Output.Modules} {
		_, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		assert.NoError(t, err, name)
	}

	found := a.Find("SOLVE")
	require.Len(t, found, 1)
	assert.Equal(t, model.KindProcedure, found[0].Kind())
	assert.Len(t, a.Find("solver", model.KindType), 0)

	sessions := a.IOSessions(`"matrix.dat"`)
	require.Len(t, sessions, 1)
	assert.Equal(t, "solver::solve", sessions[0].Path)
	assert.Len(t, a.IOSessions(""), 1)
}

func TestBuild_UsesModuleMetadataFromEarlierBuild(t *testing.T) {
	libCfg := testConfig(t, map[string]string{"solver.f90": solverSrc})
	lib, err := New(libCfg, nil)
	require.NoError(t, err)
	_, err = lib.Run(context.Background())
	require.NoError(t, err)
	metadata := libCfg.OutputPath(libCfg.Output.Modules)

	appCfg := testConfig(t, map[string]string{"main.f90": mainSrc})
	appCfg.Externals.Metadata = []string{metadata, filepath.Join(t.TempDir(), "missing.msgpack")}
	app, err := New(appCfg, nil)
	require.NoError(t, err)

	b, err := app.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, b.Project.ExternalModules, 1)
	prog := b.Project.Programs[0]
	assert.Same(t, model.Entity(b.Project.ExternalModules[0]), prog.Uses[0].Module)
	for _, w := range b.Project.Warnings {
		assert.False(t, fderrors.IsCode(w, fderrors.CodeResolution), "unexpected warning %v", w)
	}
}

func TestBuild_StructuralErrorFailsWithoutForce(t *testing.T) {
	broken := "module broken\ncontains\ncontains\nend module broken\n"
	cfg := testConfig(t, map[string]string{"broken.f90": broken, "solver.f90": solverSrc})
	a, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = a.Build(context.Background())
	require.Error(t, err)
	assert.True(t, fderrors.IsCode(err, fderrors.CodeStructural))
	assert.Nil(t, a.Last())

	cfg.Parse.Force = true
	a, err = New(cfg, nil)
	require.NoError(t, err)
	b, err := a.Build(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, b.Project.Warnings)
}

func TestRun_PersistsToSymbolStore(t *testing.T) {
	cfg := testConfig(t, map[string]string{"solver.f90": solverSrc, "main.f90": mainSrc})
	cfg.DB.Enabled = true
	cfg.DB.KeepRuns = 1
	a, err := New(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = a.Run(ctx)
	require.NoError(t, err)
	_, err = a.Run(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Close(ctx))

	store, err := symbols.Open(cfg.DB.Path)
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.Runs(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Files)
}

type recordingStore struct {
	mu     sync.Mutex
	saved  []string
	pruned int
}

var _ ports.SymbolStore = (*recordingStore)(nil)

func (s *recordingStore) SaveRun(_ context.Context, key string, p *project.Project, _ []crosswalk.IOSession) (symbols.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, p.Name)
	return symbols.Run{ID: p.Name, ProjectKey: key}, nil
}

func (s *recordingStore) Prune(context.Context, string, int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruned++
	return 0, nil
}

func (s *recordingStore) Close() error { return nil }

func (s *recordingStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

func TestWriteWorker_CoalescesAndDrains(t *testing.T) {
	cfg := config.Default()
	cfg.DB.QueueCapacity = 1
	cfg.DB.KeepRuns = 3
	store := &recordingStore{}
	a, err := NewWithStore(cfg, nil, store)
	require.NoError(t, err)

	a.startWriteWorker()
	a.startWriteWorker()
	ctx := context.Background()
	for _, name := range []string{"b1", "b2", "b3"} {
		require.NoError(t, a.Persist(ctx, &Build{Project: project.New(name, nil)}))
	}
	require.NoError(t, a.Close(ctx))

	saved := store.names()
	require.NotEmpty(t, saved)
	assert.Equal(t, "b3", saved[len(saved)-1])
	assert.LessOrEqual(t, len(saved), 3)
	assert.Equal(t, len(saved), store.pruned)
}

func TestPersist_WithoutStoreIsNoop(t *testing.T) {
	a, err := New(config.Default(), nil)
	require.NoError(t, err)
	require.NoError(t, a.Persist(context.Background(), &Build{Project: project.New("x", nil)}))
}

func TestWatch_RebuildsOnChange(t *testing.T) {
	cfg := testConfig(t, map[string]string{"solver.f90": solverSrc})
	cfg.Watch.Debounce = 50 * time.Millisecond
	cfg.Watch.MaxRebuildsPerSecond = 100
	a, err := New(cfg, nil)
	require.NoError(t, err)

	builds := make(chan *Build, 4)
	a.SetUpdateHandler(func(b *Build) { builds <- b })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx) }()
	time.Sleep(200 * time.Millisecond)

	writeSources(t, cfg.Project.SrcDirs[0], map[string]string{"main.f90": mainSrc})

	select {
	case b := <-builds:
		assert.Len(t, b.Project.Files, 2)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for rebuild")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
	require.NoError(t, a.Close(context.Background()))
}

func TestRebuildLimiter(t *testing.T) {
	l := rebuildLimiter(10)
	assert.True(t, l.Allow(), "first rebuild")
	assert.False(t, l.Allow(), "second rebuild within 100ms")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	unlimited := rebuildLimiter(0)
	for i := range 5 {
		assert.True(t, unlimited.Allow(), "rebuild %d", i)
	}
}
