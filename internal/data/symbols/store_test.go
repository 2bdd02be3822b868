package symbols

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fortdoc/internal/engine/correlate"
	"fortdoc/internal/engine/crosswalk"
	"fortdoc/internal/engine/parser"
	"fortdoc/internal/engine/project"
	"fortdoc/internal/engine/reader"
)

const src = `module io_mod
  type :: rec_t
    integer :: id = 0
  end type rec_t
contains
  subroutine dump(r)
    type(rec_t) :: r
    open (7, file="dump.txt")
    write (7, *) r%id
    close (7)
    call helper()
    call nowhere()
  end subroutine dump
  subroutine helper()
  end subroutine helper
end module io_mod
`

func loadProject(t *testing.T) *project.Project {
	t.Helper()
	ps := parser.New(parser.DefaultSettings(), nil)
	res, err := ps.Parse("io_mod.f90", reader.New(src, ps.Settings().Reader), false)
	require.NoError(t, err)
	p := project.New("demo", nil)
	p.AddFile(res.File)
	require.NoError(t, correlate.Run(context.Background(), p, correlate.DefaultOptions(), nil))
	return p
}

func TestStore_SaveRunAndQuery(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "fortdoc.db"))
	require.NoError(t, err)
	defer store.Close()

	p := loadProject(t)
	sessions := crosswalk.MasterList(crosswalk.Units(p))
	run, err := store.SaveRun(ctx, "", p, sessions)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "default", run.ProjectKey)
	assert.Equal(t, 1, run.Files)
	assert.Equal(t, 1, run.Modules)

	runs, err := store.Runs(ctx, "default")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	dump, err := store.Entities(ctx, run.ID, "DUMP")
	require.NoError(t, err)
	require.Len(t, dump, 1)
	assert.Equal(t, "proc", dump[0].Kind)
	assert.Equal(t, "io_mod.f90", dump[0].File)

	types, err := store.Entities(ctx, run.ID, "", "type")
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "rec_t", types[0].Name)

	calls, err := store.Calls(ctx, run.ID, false)
	require.NoError(t, err)
	assert.Len(t, calls, 2)
	unresolved, err := store.Calls(ctx, run.ID, true)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "nowhere", unresolved[0].Chain)

	ops, err := store.IOOperations(ctx, run.ID, "dump.txt")
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, []string{"open", "write", "close"}, []string{ops[0].Kind, ops[1].Kind, ops[2].Kind})
	assert.Equal(t, "7", ops[0].Unit)
}

func TestStore_Prune(t *testing.T) {
	ctx := context.Background()
	store, err := Open(filepath.Join(t.TempDir(), "fortdoc.db"))
	require.NoError(t, err)
	defer store.Close()

	p := loadProject(t)
	var last Run
	for i := 0; i < 3; i++ {
		last, err = store.SaveRun(ctx, "demo", p, nil)
		require.NoError(t, err)
	}
	deleted, err := store.Prune(ctx, "demo", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	runs, err := store.Runs(ctx, "demo")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, last.ID, runs[0].ID)

	ents, err := store.Entities(ctx, last.ID, "helper")
	require.NoError(t, err)
	assert.Len(t, ents, 1)
}

func TestOpen_RejectsDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	_, err = Open("  ")
	require.Error(t, err)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fortdoc.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	var version int
	require.NoError(t, store.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version))
	assert.Equal(t, SchemaVersion, version)
}
