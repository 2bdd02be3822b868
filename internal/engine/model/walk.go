package model

import "strings"

// Children returns the entities e owns, in declaration order.
func Children(e Entity) []Entity {
	var out []Entity
	add := func(xs ...Entity) {
		for _, x := range xs {
			if x != nil && x.Base().Parent == e {
				out = append(out, x)
			}
		}
	}
	addBody := func(b *Body) {
		add(each(b.Variables)...)
		add(each(b.Types)...)
		add(each(b.Interfaces)...)
		add(each(b.AbsInterfaces)...)
		add(each(b.Functions)...)
		add(each(b.Subroutines)...)
		add(each(b.ModProcedures)...)
		add(each(b.Common)...)
		add(each(b.Enums)...)
		add(each(b.Namelists)...)
	}

	switch v := e.(type) {
	case *SourceFile:
		add(each(v.Modules)...)
		add(each(v.Submodules)...)
		add(each(v.Functions)...)
		add(each(v.Subroutines)...)
		add(each(v.Programs)...)
		add(each(v.BlockData)...)
	case *Module:
		addBody(&v.Body)
	case *Submodule:
		addBody(&v.Body)
	case *Program:
		addBody(&v.Body)
	case *BlockData:
		addBody(&v.Body)
	case *Procedure:
		add(v.Args...)
		if v.RetVar != nil {
			add(v.RetVar)
		}
		addBody(&v.Body)
	case *Interface:
		add(each(v.Functions)...)
		add(each(v.Subroutines)...)
		add(each(v.ModProcs)...)
		if v.Procedure != nil {
			add(v.Procedure)
		}
	case *Type:
		add(each(v.Parameters)...)
		add(each(v.Variables)...)
		add(each(v.InheritedProcs)...)
		add(each(v.BoundProcs)...)
		add(each(v.FinalProcs)...)
	case *Enum:
		add(each(v.Variables)...)
	case *Common:
		add(each(v.Variables)...)
	case *ExternalModule:
		add(v.Stubs...)
	}
	return out
}

func each[T Entity](xs []T) []Entity {
	out := make([]Entity, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// Walk visits e and everything it owns depth first. Returning false from fn
// skips the entity's children.
func Walk(e Entity, fn func(Entity) bool) {
	if !fn(e) {
		return
	}
	for _, c := range Children(e) {
		Walk(c, fn)
	}
}

// Shown drops hidden entities.
func Shown[T Entity](xs []T) []T {
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if !x.Base().Hidden {
			out = append(out, x)
		}
	}
	return out
}

// Find returns the first owned child named name, optionally of kind k.
func Find(e Entity, name string, kinds ...Kind) Entity {
	for _, c := range Children(e) {
		if !strings.EqualFold(c.Base().Name, name) {
			continue
		}
		if len(kinds) == 0 {
			return c
		}
		for _, k := range kinds {
			if c.Kind() == k {
				return c
			}
		}
	}
	return nil
}
