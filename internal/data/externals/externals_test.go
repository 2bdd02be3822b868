package externals

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fderrors "fortdoc/internal/core/errors"
	"fortdoc/internal/engine/correlate"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/parser"
	"fortdoc/internal/engine/project"
	"fortdoc/internal/engine/reader"
)

const libSrc = `module vec
  implicit none
  private
  public :: vec3, norm, origin
  type :: vec3
    real :: x, y, z
  contains
    procedure :: length
  end type vec3
  type(vec3) :: origin
contains
  function norm(v) result(n)
    type(vec3) :: v
    real :: n
    n = 0.0
  end function norm
  function length(self) result(l)
    class(vec3) :: self
    real :: l
    l = 0.0
  end function length
  subroutine hidden_helper()
  end subroutine hidden_helper
end module vec
`

const appSrc = `program app
  use vec, only: origin, size => norm
  call origin%length()
end program app
`

func build(t *testing.T, src string, opts correlate.Options) *project.Project {
	t.Helper()
	ps := parser.New(parser.DefaultSettings(), nil)
	res, err := ps.Parse("src.f90", reader.New(src, ps.Settings().Reader), false)
	require.NoError(t, err)
	p := project.New("t", nil)
	p.AddFile(res.File)
	require.NoError(t, correlate.Run(context.Background(), p, opts, nil))
	return p
}

func TestFromModules(t *testing.T) {
	lib := build(t, libSrc, correlate.DefaultOptions())
	f := FromModules("lib", lib.Modules, "https://docs.example.org/lib/")
	require.Len(t, f.Modules, 1)
	m := f.Modules[0]
	assert.Equal(t, "https://docs.example.org/lib/module/vec.html", m.URL)

	var procs []string
	for _, s := range m.Procs {
		procs = append(procs, s.Name)
	}
	assert.Equal(t, []string{"norm"}, procs)
	require.Len(t, m.Types, 1)
	assert.Len(t, m.Types[0].Components, 3)
	require.Len(t, m.Types[0].Bindings, 1)
	assert.Equal(t, KindBinding, m.Types[0].Bindings[0].Kind)
	require.Len(t, m.Vars, 1)
	assert.Equal(t, "vec3", m.Vars[0].TypeName)
}

func TestWriteLoadAndResolve(t *testing.T) {
	lib := build(t, libSrc, correlate.DefaultOptions())
	path := filepath.Join(t.TempDir(), "out", "modules.msgpack")
	require.NoError(t, Write(path, FromModules("lib", lib.Modules, "")))

	mods, err := Load(path)
	require.NoError(t, err)
	require.Len(t, mods, 1)
	vec := mods[0]
	assert.Equal(t, "vec", vec.Name)

	origin, ok := vec.Public.Local(model.Vars, "origin")
	require.True(t, ok)
	ov := origin.(*model.Variable)
	require.NotNil(t, ov.Proto)
	typ, ok := ov.Proto.Target.(*model.Type)
	require.True(t, ok, "variable stub not linked to the type stub")
	assert.Same(t, vec, typ.Parent)

	opts := correlate.DefaultOptions()
	opts.Externals = mods
	app := build(t, appSrc, opts)
	prog := app.Programs[0]
	assert.Same(t, model.Entity(vec), prog.Uses[0].Module)

	size, ok := prog.Symbols.Lookup(model.Procs, "size")
	require.True(t, ok)
	assert.Equal(t, "norm", size.Base().Name)
	_, ok = prog.Symbols.Lookup(model.Procs, "norm")
	assert.False(t, ok)

	require.Len(t, prog.Calls, 1)
	bp, ok := prog.Calls[0].Target.(*model.BoundProcedure)
	require.True(t, ok, "call through external type not resolved")
	assert.Equal(t, "length", bp.Name)
	for _, w := range app.Warnings {
		assert.False(t, fderrors.IsCode(w, fderrors.CodeResolution), "unexpected warning %v", w)
	}
}

func TestReadErrors(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.msgpack"))
	require.Error(t, err)
	assert.True(t, fderrors.IsCode(err, fderrors.CodeNotFound))

	path := filepath.Join(t.TempDir(), "old.msgpack")
	require.NoError(t, Write(path, &File{Schema: schemaVersion + 1}))
	_, err = Read(path)
	assert.True(t, fderrors.IsCode(err, fderrors.CodeNotSupported))
}
