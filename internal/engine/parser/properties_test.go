package parser

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/reader"
)

const interfaceArgSrc = `module solvers
  implicit none
  abstract interface
    function rhs(t) result(dy)
      real, intent(in) :: t
      real :: dy
    end function rhs
  end interface
contains
  !! Integrate f from a to b.
  subroutine integrate(f, a, b, n)
    interface
      function f(x) result(y)
        real, intent(in) :: x
        real :: y
      end function f
    end interface
    real, intent(in) :: a, b
    integer :: n
    n = 0
  end subroutine integrate
end module solvers
`

const legacySrc = `program legacy
  real :: x
  common /blk/ x, i
  namelist /cfg/ x
  call step(x)
end program legacy

subroutine step(v)
  real :: v
  common /blk/ y, j
  v = v + 1
end subroutine step
`

var propertySources = []struct {
	name string
	src  string
}{
	{"module", shapesSrc},
	{"interface args", interfaceArgSrc},
	{"common blocks", legacySrc},
}

// snapshot flattens a parse tree into one line per entity, in walk order.
func snapshot(f *model.SourceFile) []string {
	var out []string
	model.Walk(f, func(e model.Entity) bool {
		n := e.Base()
		line := fmt.Sprintf("%s %s %s %d+%d %q", e.Kind(), model.Path(e), n.Permission, n.Line, n.NumLines, n.Doc)
		if v, ok := e.(*model.Variable); ok {
			line += " " + v.FullDeclaration() + " = " + v.Initial
		}
		if ex := model.ExecOf(e); ex != nil {
			for _, c := range ex.Calls {
				line += " call:" + strings.Join(c.Chain, "%")
			}
			line += fmt.Sprintf(" members:%v", ex.MemberAccess)
		}
		out = append(out, line)
		return true
	})
	return out
}

func TestParseIsIdempotent(t *testing.T) {
	for _, tt := range propertySources {
		t.Run(tt.name, func(t *testing.T) {
			p := New(DefaultSettings(), nil)
			var snaps [][]string
			for range 2 {
				res, err := p.Parse("same.f90", reader.New(tt.src, p.Settings().Reader), false)
				if err != nil {
					t.Fatalf("parse: %v", err)
				}
				snaps = append(snaps, snapshot(res.File))
			}
			fresh := mustParse(t, tt.src)
			if !reflect.DeepEqual(snaps[0], snaps[1]) {
				t.Errorf("second parse with the same parser differs:\n%v\n%v", snaps[0], snaps[1])
			}
			if got := snapshot(fresh); len(got) != len(snaps[0]) {
				t.Errorf("fresh parser found %d entities, want %d", len(got), len(snaps[0]))
			}
		})
	}
}

func TestFullDeclarationReparses(t *testing.T) {
	tests := []struct {
		decl string
		name string
	}{
		{"integer :: i", "i"},
		{"integer(4) :: i4", "i4"},
		{"integer(kind=c_int) :: ci", "ci"},
		{"real*8 :: d", "d"},
		{"real(kind=dp), save :: r", "r"},
		{"double precision :: dbl", "dbl"},
		{"logical :: flag", "flag"},
		{"character :: c1", "c1"},
		{"character*20 :: c20", "c20"},
		{"character(len=10) :: s10", "s10"},
		{"character(len=:), allocatable :: sdyn", "sdyn"},
		{"character(kind=ucs4, len=5) :: wide", "wide"},
		{"character(8, ascii) :: pos", "pos"},
		{"type(point), pointer :: pt", "pt"},
		{"class(shape), allocatable :: sh", "sh"},
		{"integer, parameter :: n = 4", "n"},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			first := declared(t, tt.decl, tt.name)
			rendered := first.FullDeclaration() + " :: " + tt.name
			if first.Initial != "" {
				rendered += " = " + first.Initial
			}
			second := declared(t, rendered, tt.name)
			if first.VarType != second.VarType || first.KindParam != second.KindParam || first.StrLen != second.StrLen {
				t.Errorf("%q -> %q: got (%s, kind=%q, len=%q), want (%s, kind=%q, len=%q)",
					tt.decl, rendered,
					second.VarType, second.KindParam, second.StrLen,
					first.VarType, first.KindParam, first.StrLen)
			}
			if second.FullDeclaration() != first.FullDeclaration() {
				t.Errorf("declaration %q rendered again as %q", first.FullDeclaration(), second.FullDeclaration())
			}
			if first.Parameter != second.Parameter {
				t.Errorf("parameter = %v after round trip", second.Parameter)
			}
		})
	}
}

func declared(t *testing.T, decl, name string) *model.Variable {
	t.Helper()
	file := mustParse(t, "module decls\n  "+decl+"\nend module decls\n")
	for _, v := range file.Modules[0].Variables {
		if v.Name == name {
			return v
		}
	}
	t.Fatalf("variable %s not declared by %q", name, decl)
	return nil
}

func TestEveryEntityHasOneOwner(t *testing.T) {
	for _, tt := range propertySources {
		t.Run(tt.name, func(t *testing.T) {
			assertSingleOwnership(t, mustParse(t, tt.src))
		})
	}
}

func TestInterfaceArgMovesToProcedure(t *testing.T) {
	file := mustParse(t, interfaceArgSrc)
	m := file.Modules[0]
	p := routine(t, &m.Body, "integrate")
	if len(p.Args) != 4 {
		t.Fatalf("args = %d", len(p.Args))
	}
	f, ok := p.Args[0].(*model.Procedure)
	if !ok || f.Name != "f" {
		t.Fatalf("first arg = %#v, want the interface function f", p.Args[0])
	}
	if f.Parent != model.Entity(p) {
		t.Errorf("f owned by %s, want integrate", model.Path(f.Parent))
	}
	if len(p.Interfaces) != 0 {
		t.Errorf("interface for f still listed in integrate: %d", len(p.Interfaces))
	}
	if len(m.AbsInterfaces) != 1 || m.AbsInterfaces[0].Procedure.Parent != model.Entity(m.AbsInterfaces[0]) {
		t.Errorf("abstract interface not owned by its wrapper: %+v", m.AbsInterfaces)
	}
	if got := model.Path(f.Args[0]); got != "solvers::integrate::f::x" {
		t.Errorf("path of x = %q", got)
	}
}

// assertSingleOwnership checks that Walk reaches every entity exactly once,
// that each one is listed by its parent, and that no declaration list holds
// an entity owned elsewhere.
func assertSingleOwnership(t *testing.T, f *model.SourceFile) {
	t.Helper()
	seen := make(map[model.Entity]int)
	model.Walk(f, func(e model.Entity) bool {
		seen[e]++
		return true
	})
	for e, n := range seen {
		if n != 1 {
			t.Errorf("%s reached %d times", model.Path(e), n)
		}
		if e == model.Entity(f) {
			continue
		}
		parent := e.Base().Parent
		if parent == nil || seen[parent] == 0 {
			t.Errorf("%s has no owner in the tree", model.Path(e))
			continue
		}
		listed := 0
		for _, c := range model.Children(parent) {
			if c == e {
				listed++
			}
		}
		if listed != 1 {
			t.Errorf("%s listed %d times by %s", model.Path(e), listed, model.Path(parent))
		}
	}
	for e := range seen {
		for _, m := range declaredMembers(e) {
			if seen[m] == 0 {
				t.Errorf("%s lists %s %q owned by %v", model.Path(e), m.Kind(), m.Base().Name, m.Base().Parent)
			}
		}
	}
}

func declaredMembers(e model.Entity) []model.Entity {
	var out []model.Entity
	if b := model.BodyOf(e); b != nil {
		out = appendEntities(out, b.Variables)
		out = appendEntities(out, b.Types)
		out = appendEntities(out, b.Interfaces)
		out = appendEntities(out, b.AbsInterfaces)
		out = appendEntities(out, b.Functions)
		out = appendEntities(out, b.Subroutines)
		out = appendEntities(out, b.ModProcedures)
		out = appendEntities(out, b.Common)
		out = appendEntities(out, b.Enums)
		out = appendEntities(out, b.Namelists)
	}
	switch v := e.(type) {
	case *model.Procedure:
		out = append(out, v.Args...)
	case *model.Common:
		out = appendEntities(out, v.Variables)
	case *model.Type:
		out = appendEntities(out, v.Variables)
		out = appendEntities(out, v.BoundProcs)
	}
	return out
}

func appendEntities[T model.Entity](out []model.Entity, xs []T) []model.Entity {
	for _, x := range xs {
		out = append(out, x)
	}
	return out
}

func TestStringLiteralsAreOpaque(t *testing.T) {
	tests := []struct {
		name    string
		stmt    string
		calls   [][]string
		members int
	}{
		{"call argument", `call log_msg('a%b(c,d)')`, [][]string{{"log_msg"}}, 0},
		{"print", `print *, "x%y(1), z(2)"`, nil, 0},
		{"function argument", `n = count_of("p,q(r)") + 1`, [][]string{{"count_of"}}, 0},
		{"doubled quote", `call log_msg('it''s f(x)%y')`, [][]string{{"log_msg"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := mustParse(t, "program lit\n  integer :: n\n  "+tt.stmt+"\nend program lit\n")
			prog := file.Programs[0]
			var chains [][]string
			for _, c := range prog.Calls {
				chains = append(chains, c.Chain)
			}
			if !reflect.DeepEqual(chains, tt.calls) {
				t.Errorf("calls = %v, want %v", chains, tt.calls)
			}
			if len(prog.MemberAccess) != tt.members {
				t.Errorf("member accesses = %v", prog.MemberAccess)
			}
		})
	}
}

func TestQuotedFilenameKeepsPunctuation(t *testing.T) {
	file := mustParse(t, `subroutine dump()
  open(10, file='a,b(1)%c.txt', status="replace")
  write(10, '(a)') 'done, (really)'
  close(10)
end subroutine dump
`)
	p := file.Subroutines[0]
	got, ok := p.IO["a,b(1)%c.txt"]
	if !ok {
		t.Fatalf("expected the whole quoted name as key, got %v", p.IO)
	}
	if got.Summary.Unit != "10" {
		t.Errorf("unit = %q", got.Summary.Unit)
	}
	if len(p.Calls) != 0 || len(p.MemberAccess) != 0 {
		t.Errorf("calls = %v, member accesses = %v", p.Calls, p.MemberAccess)
	}
}
