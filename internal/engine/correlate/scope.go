package correlate

import (
	"slices"

	"fortdoc/internal/engine/model"
)

// enclosingTable returns the symbol table of the nearest unit up the scope
// chain of e, excluding e itself.
func enclosingTable(e model.Entity) *model.SymbolTable {
	for cur := e.Base().Scope; cur != nil; cur = cur.Base().Scope {
		if b := model.BodyOf(cur); b != nil && b.Symbols != nil {
			return b.Symbols
		}
	}
	return nil
}

// tableOf returns the table names are looked up in from inside e.
func tableOf(e model.Entity) *model.SymbolTable {
	if b := model.BodyOf(e); b != nil && b.Symbols != nil {
		return b.Symbols
	}
	return enclosingTable(e)
}

func lookup(st *model.SymbolTable, c model.Category, name string) model.Entity {
	if st == nil {
		return nil
	}
	e, _ := st.Lookup(c, name)
	return e
}

// localTable builds the table of the names e declares itself.
func localTable(e model.Entity, outer *model.SymbolTable) *model.SymbolTable {
	st := model.NewSymbolTable(outer)
	body := model.BodyOf(e)

	for _, r := range body.Routines() {
		st.Set(model.Procs, r.Name, r)
	}
	for _, i := range body.Interfaces {
		if !i.Abstract {
			st.Set(model.Procs, i.Name, i)
		}
		if i.Generic {
			for _, r := range i.Routines() {
				st.Set(model.Procs, r.Name, r)
			}
		}
	}
	for _, i := range body.AbsInterfaces {
		st.Set(model.AbsInterfaces, i.Name, i)
	}
	for _, t := range body.Types {
		st.Set(model.Types, t.Name, t)
	}
	for _, v := range body.Variables {
		st.Set(model.Vars, v.Name, v)
	}

	switch v := e.(type) {
	case *model.Module, *model.Submodule:
		// procedure pointers and dummy procedures
		for _, vr := range body.Variables {
			if vr.VarType == "procedure" {
				st.Set(model.Procs, vr.Name, vr)
			}
		}
	case *model.Procedure:
		for _, a := range v.Args {
			switch arg := a.(type) {
			case *model.Variable:
				st.Set(model.Vars, arg.Name, arg)
			case *model.Procedure:
				st.Set(model.Procs, arg.Name, arg)
			}
		}
		if v.RetVar != nil {
			st.Set(model.Vars, v.RetVar.Name, v.RetVar)
		}
	}
	return st
}

func exported(e model.Entity) bool {
	p := e.Base().Permission
	return p == model.Public || p == model.Protected
}

// publicSymbols is the initial export table of a module: its own public
// and protected procedures, types, variables and abstract interfaces.
func publicSymbols(local *model.SymbolTable) *model.SymbolTable {
	return local.Filter(func(_ string, e model.Entity) bool { return exported(e) })
}

// reexport merges entities imported by a module into its export table when
// the module is public by default or names them public.
func reexport(m *model.Module, used *model.SymbolTable) {
	for _, c := range model.Categories {
		for name, e := range used.Entries(c) {
			if m.Permission == model.Public || slices.Contains(m.PublicList, name) {
				m.Public.Set(c, name, e)
			}
		}
	}
}

// labelIn looks up one call-chain segment from inside ctx, a code unit or
// a derived type. Variables win over types, types over procedures.
func labelIn(ctx model.Entity, label string) model.Entity {
	if t, ok := ctx.(*model.Type); ok {
		if v := t.Component(label); v != nil {
			return v
		}
		seen := map[*model.Type]bool{t: true}
		for base := t.Extends; base != nil && !seen[base]; base = base.Extends {
			seen[base] = true
			if base.Key() == label {
				return base
			}
		}
		st := tableOf(t)
		if e := lookup(st, model.Types, label); e != nil {
			return e
		}
		for _, bp := range t.AllBoundProcs() {
			if bp.Key() == label {
				return bp
			}
		}
		return lookup(st, model.Procs, label)
	}

	st := tableOf(ctx)
	for _, c := range []model.Category{model.Vars, model.Types, model.Procs} {
		if e := lookup(st, c, label); e != nil {
			return e
		}
	}
	return nil
}

// typeOf returns the derived type named by a type/class declaration, looked
// up from where the declaration was made.
func typeOf(v *model.Variable) *model.Type {
	name := v.TypeName()
	if name == "" {
		return nil
	}
	if t, ok := v.Proto.Target.(*model.Type); ok {
		return t
	}
	t, _ := lookup(tableOf(v), model.Types, name).(*model.Type)
	return t
}

// chainItem walks a call chain such as a%b%c through the types of the
// intermediate segments and returns the entity named by the last segment.
func chainItem(from model.Entity, chain []string) model.Entity {
	ctx := from
	for _, label := range chain[:len(chain)-1] {
		var next model.Entity
		switch item := labelIn(ctx, label).(type) {
		case *model.Procedure:
			if item.RetVar != nil {
				if t := typeOf(item.RetVar); t != nil {
					next = t
				}
			}
		case *model.Type:
			next = item
		case *model.Variable:
			if t := typeOf(item); t != nil {
				next = t
			}
		}
		if next == nil {
			return nil
		}
		ctx = next
	}
	return labelIn(ctx, chain[len(chain)-1])
}
