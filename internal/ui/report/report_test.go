package report

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fderrors "fortdoc/internal/core/errors"
	"fortdoc/internal/engine/correlate"
	"fortdoc/internal/engine/crosswalk"
	"fortdoc/internal/engine/parser"
	"fortdoc/internal/engine/project"
	"fortdoc/internal/engine/reader"
)

const src = `module shapes
  !! Geometric shapes.
  use missing_mod
  implicit none
  type :: circle
    real :: r = 1.0
  contains
    procedure :: area
  end type circle
contains
  function area(self) result(a)
    class(circle) :: self
    real :: a
    a = 3.14 * self%r**2
  end function area
  subroutine dump(c)
    type(circle) :: c
    open (10, file="shapes.dat")
    write (10, *) c%r
    close (10)
    call c%area()
    call nowhere()
  end subroutine dump
end module shapes
`

func correlated(t *testing.T) *project.Project {
	t.Helper()
	ps := parser.New(parser.DefaultSettings(), nil)
	res, err := ps.Parse("shapes.f90", reader.New(src, ps.Settings().Reader), false)
	require.NoError(t, err)
	p := project.New("demo", nil)
	p.AddFile(res.File)
	require.NoError(t, correlate.Run(context.Background(), p, correlate.DefaultOptions(), nil))
	return p
}

func TestExport(t *testing.T) {
	p := correlated(t)
	doc := Export(p, crosswalk.BuildIndex(p), nil)
	require.Len(t, doc.Files, 1)
	require.Len(t, doc.Files[0].Entities, 1)

	mod := doc.Files[0].Entities[0]
	assert.Equal(t, "shapes", mod.Name)
	assert.Equal(t, []string{"Geometric shapes."}, mod.Doc)
	require.Len(t, mod.Uses, 1)
	assert.False(t, mod.Uses[0].Resolved)

	var dump *Entity
	for _, c := range mod.Children {
		if c.Name == "dump" {
			dump = c
		}
	}
	require.NotNil(t, dump)
	assert.Equal(t, "shapes::dump", dump.Path)
	require.Len(t, dump.Calls, 2)
	assert.Equal(t, "c%area", dump.Calls[0].Chain)
	assert.Equal(t, "shapes::circle::area", dump.Calls[0].Target)
	assert.Empty(t, dump.Calls[1].Target)
	assert.NotEmpty(t, doc.Warnings)
}

func TestWriteJSON(t *testing.T) {
	p := correlated(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "out", "io.json")
	require.NoError(t, WriteJSON(path, IOReport(p)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Contains(t, decoded, "shapes::dump")
	assert.Contains(t, decoded["shapes::dump"], "shapes.dat")

	require.NoError(t, WriteJSON(filepath.Join(dir, "project.json"), Export(p, nil, crosswalk.Run(p, nil))))
}

func TestWriteModuleGraph(t *testing.T) {
	p := correlated(t)
	dir := filepath.Join(t.TempDir(), "docs", "graphs")
	path := filepath.Join(dir, "modules.dot")

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))
	require.NoError(t, WriteModuleGraph(path, p))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ModuleGraph(p), string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file left behind")
	assert.Equal(t, "modules.dot", entries[0].Name())
}

func TestPrintSummary(t *testing.T) {
	color.NoColor = true
	p := correlated(t)
	sessions := crosswalk.MasterList(crosswalk.Units(p))
	s := NewSummary(p, sessions, 1500*time.Millisecond)

	assert.Equal(t, 1, s.Modules)
	assert.Equal(t, 1, s.IOSessions)
	assert.Equal(t, []string{"missing_mod"}, s.UnresolvedUses)
	assert.Equal(t, 1, s.UnresolvedCalls)
	assert.NotEmpty(t, s.Warnings[fderrors.CodeResolution])

	var buf bytes.Buffer
	PrintSummary(&buf, s)
	out := buf.String()
	assert.Contains(t, out, "demo: 1 files in 1.5s")
	assert.Contains(t, out, "FOUND 1 UNRESOLVED MODULES")
	assert.Contains(t, out, "missing_mod")
	assert.Contains(t, out, "RESOLUTION_WARNING")
}

const cycleSrc = `module alpha
  use beta
end module alpha
module beta
  use alpha
end module beta
module gamma
  use alpha
end module gamma
program top
  use gamma
  use iso_fortran_env
end program top
`

func TestModuleGraph(t *testing.T) {
	ps := parser.New(parser.DefaultSettings(), nil)
	res, err := ps.Parse("cycle.f90", reader.New(cycleSrc, ps.Settings().Reader), false)
	require.NoError(t, err)
	p := project.New("cyc", nil)
	p.AddFile(res.File)
	require.NoError(t, correlate.Run(context.Background(), p, correlate.DefaultOptions(), nil))

	dot := ModuleGraph(p)
	assert.Contains(t, dot, "digraph modules {")
	assert.Contains(t, dot, `"module:alpha" [label="alpha", shape=box, fillcolor="mistyrose"`)
	assert.Contains(t, dot, `"module:beta" [label="beta", shape=box, fillcolor="mistyrose"`)
	assert.Contains(t, dot, `"module:gamma" [label="gamma", shape=box, color="darkslategrey"]`)
	assert.Contains(t, dot, `"program:top" [label="top", shape=ellipse`)
	assert.Contains(t, dot, `"module:alpha" -> "module:beta" [color="red", penwidth=3.0];`)
	assert.Contains(t, dot, `"module:gamma" -> "module:alpha" [color="forestgreen"];`)
	assert.Contains(t, dot, `"program:top" -> "missing:iso_fortran_env" [color="grey", style=dashed];`)
	assert.Equal(t, dot, ModuleGraph(p), "output must be deterministic")
}
