// # internal/data/externals/externals.go

// Package externals saves the export tables of a project's modules and
// loads them back as external module stand-ins, so that another project
// USEing those modules can resolve the imported names.
package externals

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	fderrors "fortdoc/internal/core/errors"
	"fortdoc/internal/engine/model"
)

// Bump when the File layout changes; older files are rejected.
const schemaVersion uint16 = 1

// Symbol kinds.
const (
	KindSubroutine   = "subroutine"
	KindFunction     = "function"
	KindInterface    = "interface"
	KindAbsInterface = "absinterface"
	KindType         = "type"
	KindVariable     = "variable"
	KindBinding      = "boundprocedure"
)

type File struct {
	Schema  uint16
	Project string
	Modules []Module
}

type Module struct {
	Name          string
	URL           string
	Procs         []Symbol
	Types         []Symbol
	Vars          []Symbol
	AbsInterfaces []Symbol
}

// Symbol is one exported name. Name is the exported name, which differs
// from Entity when the module re-exports a renamed import.
type Symbol struct {
	Name       string
	Entity     string
	Kind       string
	Permission string
	VarType    string   `msgpack:",omitempty"`
	TypeName   string   `msgpack:",omitempty"`
	Generic    bool     `msgpack:",omitempty"`
	Deferred   bool     `msgpack:",omitempty"`
	Components []Symbol `msgpack:",omitempty"`
	Bindings   []Symbol `msgpack:",omitempty"`
}

// FromModules builds the metadata file for modules. urlPrefix, when set,
// is joined with the module name to form each module's documentation URL.
func FromModules(project string, modules []*model.Module, urlPrefix string) *File {
	f := &File{Schema: schemaVersion, Project: project}
	for _, m := range modules {
		if m.Public == nil {
			continue
		}
		em := Module{Name: m.Name}
		if urlPrefix != "" {
			em.URL = strings.TrimRight(urlPrefix, "/") + "/module/" + m.Key() + ".html"
		}
		em.Procs = symbolsOf(m.Public, model.Procs)
		em.Types = symbolsOf(m.Public, model.Types)
		em.Vars = symbolsOf(m.Public, model.Vars)
		em.AbsInterfaces = symbolsOf(m.Public, model.AbsInterfaces)
		f.Modules = append(f.Modules, em)
	}
	sort.Slice(f.Modules, func(i, j int) bool { return f.Modules[i].Name < f.Modules[j].Name })
	return f
}

func symbolsOf(st *model.SymbolTable, c model.Category) []Symbol {
	var out []Symbol
	for _, name := range st.Names(c) {
		e, _ := st.Local(c, name)
		out = append(out, symbolOf(name, e))
	}
	return out
}

func symbolOf(name string, e model.Entity) Symbol {
	s := Symbol{Name: name, Entity: e.Base().Name, Permission: e.Base().Permission}
	switch v := e.(type) {
	case *model.Procedure:
		s.Kind = KindSubroutine
		if v.ProcKind == model.Function {
			s.Kind = KindFunction
		}
	case *model.Interface:
		s.Kind = KindInterface
		s.Generic = v.Generic
		if v.Abstract {
			s.Kind = KindAbsInterface
		}
	case *model.Type:
		s.Kind = KindType
		for _, c := range v.AllVariables() {
			if c.Permission != model.Private {
				s.Components = append(s.Components, symbolOf(c.Name, c))
			}
		}
		for _, bp := range v.AllBoundProcs() {
			if bp.Permission != model.Private {
				s.Bindings = append(s.Bindings, symbolOf(bp.Name, bp))
			}
		}
	case *model.Variable:
		s.Kind = KindVariable
		s.VarType = v.VarType
		s.TypeName = v.TypeName()
	case *model.BoundProcedure:
		s.Kind = KindBinding
		s.Generic = v.Generic
		s.Deferred = v.Deferred
	default:
		s.Kind = e.Kind().String()
	}
	return s
}

// Write encodes f to path through a temporary file renamed into place.
func Write(path string, f *File) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create module metadata directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if err := msgpack.NewEncoder(tmp).Encode(f); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode module metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Read decodes a metadata file written by Write.
func Read(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fderrors.Wrap(err, fderrors.CodeNotFound, "module metadata "+path)
		}
		return nil, err
	}
	defer fh.Close()

	var f File
	if err := msgpack.NewDecoder(fh).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode module metadata %q: %w", path, err)
	}
	if f.Schema != schemaVersion {
		return nil, fderrors.Newf(fderrors.CodeNotSupported, "module metadata %s has schema %d, want %d", path, f.Schema, schemaVersion)
	}
	return &f, nil
}

// Load reads path and returns its modules as stand-ins.
func Load(path string) ([]*model.ExternalModule, error) {
	f, err := Read(path)
	if err != nil {
		return nil, err
	}
	return f.Stubs(), nil
}

// Stubs turns every module of f into an ExternalModule whose export table
// points at placeholder entities owned by the module.
func (f *File) Stubs() []*model.ExternalModule {
	out := make([]*model.ExternalModule, 0, len(f.Modules))
	for _, m := range f.Modules {
		ext := &model.ExternalModule{
			Node:   model.Node{Name: m.Name, Permission: model.Public},
			URL:    m.URL,
			Public: model.NewSymbolTable(nil),
		}
		b := stubBuilder{ext: ext, types: make(map[string]*model.Type), entities: make(map[string]model.Entity)}
		// Types first so that variables can point at them.
		for _, s := range m.Types {
			ext.Public.Set(model.Types, s.Name, b.entity(s))
		}
		for _, s := range m.AbsInterfaces {
			ext.Public.Set(model.AbsInterfaces, s.Name, b.entity(s))
		}
		for _, s := range m.Procs {
			ext.Public.Set(model.Procs, s.Name, b.entity(s))
		}
		for _, s := range m.Vars {
			ext.Public.Set(model.Vars, s.Name, b.entity(s))
		}
		out = append(out, ext)
	}
	return out
}

type stubBuilder struct {
	ext      *model.ExternalModule
	types    map[string]*model.Type
	entities map[string]model.Entity
}

// entity returns the stub for s, sharing one stub between the names that
// export the same entity.
func (b *stubBuilder) entity(s Symbol) model.Entity {
	key := s.Kind + ":" + strings.ToLower(s.Entity)
	if e, ok := b.entities[key]; ok {
		return e
	}
	e := b.build(s, b.ext)
	b.entities[key] = e
	b.ext.Stubs = append(b.ext.Stubs, e)
	return e
}

func (b *stubBuilder) build(s Symbol, parent model.Entity) model.Entity {
	node := model.Node{Name: s.Entity, Permission: s.Permission, Parent: parent, Scope: parent}
	switch s.Kind {
	case KindSubroutine:
		return &model.Procedure{Node: node, ProcKind: model.Subroutine, External: true}
	case KindFunction:
		return &model.Procedure{Node: node, ProcKind: model.Function, External: true}
	case KindInterface, KindAbsInterface:
		return &model.Interface{Node: node, Generic: s.Generic, Abstract: s.Kind == KindAbsInterface}
	case KindType:
		t := &model.Type{Node: node}
		b.types[strings.ToLower(s.Entity)] = t
		for _, c := range s.Components {
			if v, ok := b.build(c, t).(*model.Variable); ok {
				t.Variables = append(t.Variables, v)
			}
		}
		for _, c := range s.Bindings {
			if bp, ok := b.build(c, t).(*model.BoundProcedure); ok {
				t.BoundProcs = append(t.BoundProcs, bp)
			}
		}
		return t
	case KindBinding:
		return &model.BoundProcedure{Node: node, Generic: s.Generic, Deferred: s.Deferred}
	}
	v := &model.Variable{Node: node, VarType: s.VarType}
	if v.VarType == "" {
		v.VarType = model.ImplicitType(s.Entity)
	}
	if s.TypeName != "" {
		v.Proto = &model.Proto{Name: s.TypeName}
		if t, ok := b.types[strings.ToLower(s.TypeName)]; ok {
			v.Proto.Target = t
		}
	}
	return v
}
