package model

import "testing"

func newModule(name string) *Module {
	m := &Module{Node: Node{Name: name, Permission: Public}}
	m.Symbols = NewSymbolTable(nil)
	return m
}

func TestChildrenOwnership(t *testing.T) {
	file := &SourceFile{Node: Node{Name: "a.f90"}}
	mod := newModule("geometry")
	mod.Parent = file
	file.Modules = append(file.Modules, mod)

	base := &Type{Node: Node{Name: "shape", Parent: mod}}
	comp := &Variable{Node: Node{Name: "area", Parent: base}, VarType: "real"}
	base.Variables = append(base.Variables, comp)
	child := &Type{Node: Node{Name: "circle", Parent: mod}, Extends: base}
	child.InheritedVars = []*Variable{comp}
	mod.Types = append(mod.Types, base, child)

	if got := Children(child); len(got) != 0 {
		t.Fatalf("inherited component reported as owned: %v", got)
	}
	kids := Children(base)
	if len(kids) != 1 || kids[0] != comp {
		t.Fatalf("expected area owned by shape, got %v", kids)
	}

	seen := map[Entity]int{}
	Walk(file, func(e Entity) bool {
		seen[e]++
		return true
	})
	for e, n := range seen {
		if n != 1 {
			t.Errorf("%s visited %d times", Path(e), n)
		}
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 entities, got %d", len(seen))
	}
}

func TestPathAndSourceFile(t *testing.T) {
	file := &SourceFile{Node: Node{Name: "a.f90"}}
	mod := newModule("m")
	mod.Parent = file
	proc := &Procedure{Node: Node{Name: "run", Parent: mod}}
	arg := &Variable{Node: Node{Name: "n", Parent: proc}}

	if got := Path(arg); got != "m::run::n" {
		t.Errorf("Path = %q", got)
	}
	if SourceFileOf(arg) != file {
		t.Error("SourceFileOf did not reach the file")
	}
}

func TestSymbolTableLookup(t *testing.T) {
	outer := NewSymbolTable(nil)
	inner := NewSymbolTable(outer)
	a := &Variable{Node: Node{Name: "A"}}
	b := &Variable{Node: Node{Name: "b"}}
	shadow := &Variable{Node: Node{Name: "a"}}

	outer.Set(Vars, "A", a)
	outer.Set(Vars, "b", b)
	inner.Set(Vars, "a", shadow)

	if e, ok := inner.Lookup(Vars, "a"); !ok || e != shadow {
		t.Errorf("inner scope should shadow outer")
	}
	if e, ok := inner.Lookup(Vars, "B"); !ok || e != b {
		t.Errorf("lookup should fall back to outer scope and ignore case")
	}
	if _, ok := inner.Local(Vars, "b"); ok {
		t.Errorf("Local must not consult the outer scope")
	}
	if _, ok := inner.Lookup(Procs, "a"); ok {
		t.Errorf("categories must not leak into each other")
	}
	flat := inner.Flatten(Vars)
	if len(flat) != 2 || flat["a"] != shadow {
		t.Errorf("Flatten = %v", flat)
	}
}

func TestVariableDeclarations(t *testing.T) {
	tests := []struct {
		name string
		v    Variable
		typ  string
		decl string
	}{
		{
			name: "kind and dimension",
			v:    Variable{VarType: "real", KindParam: "dp", Dimension: "(:)", Attribs: []string{"allocatable"}},
			typ:  "real(kind=dp)",
			decl: "real(kind=dp), allocatable, dimension(:)",
		},
		{
			name: "character",
			v:    Variable{VarType: "character", StrLen: "*", Parameter: true},
			typ:  "character(len=*)",
			decl: "character(len=*), parameter",
		},
		{
			name: "class proto",
			v:    Variable{VarType: "class", Proto: &Proto{Name: "shape"}},
			typ:  "class(shape)",
			decl: "class(shape)",
		},
		{
			name: "coarray",
			v:    Variable{VarType: "integer", Dimension: "[*]"},
			typ:  "integer",
			decl: "integer, codimension[*]",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.FullType(); got != tt.typ {
				t.Errorf("FullType = %q, want %q", got, tt.typ)
			}
			if got := tt.v.FullDeclaration(); got != tt.decl {
				t.Errorf("FullDeclaration = %q, want %q", got, tt.decl)
			}
		})
	}
}

func TestMetaValueInherits(t *testing.T) {
	mod := newModule("m")
	mod.Meta = map[string]string{"author": "someone"}
	proc := &Procedure{Node: Node{Name: "p", Parent: mod}}
	if v, ok := MetaValue(proc, "author"); !ok || v != "someone" {
		t.Errorf("MetaValue = %q, %v", v, ok)
	}
	if _, ok := MetaValue(proc, "version"); ok {
		t.Error("unexpected version")
	}
}

func TestShown(t *testing.T) {
	vs := []*Variable{
		{Node: Node{Name: "a"}},
		{Node: Node{Name: "b", Hidden: true}},
	}
	if got := Shown(vs); len(got) != 1 || got[0].Name != "a" {
		t.Errorf("Shown = %v", got)
	}
}

func TestParseKind(t *testing.T) {
	for k := KindSourceFile; k <= KindExternalModule; k++ {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", k.String(), got, ok, k)
		}
	}
	if k, ok := ParseKind("TYPE"); !ok || k != KindType {
		t.Errorf("ParseKind is case sensitive: %v, %v", k, ok)
	}
	if _, ok := ParseKind("widget"); ok {
		t.Error("ParseKind accepted an unknown kind")
	}
}
