package correlate

import (
	"strings"

	"fortdoc/internal/engine/model"
)

// types resolves base types, orders the unit's types so that every base
// type is correlated before its extensions, and correlates them. A type
// whose extension chain loops back on itself keeps no base.
func (c *correlator) types(list []*model.Type, st *model.SymbolTable) {
	if len(list) == 0 {
		return
	}
	index := make(map[*model.Type]int, len(list))
	for i, t := range list {
		index[t] = i
	}
	bases := make([]*model.Type, len(list))
	for i, t := range list {
		if t.ExtendsName == "" {
			continue
		}
		if base, ok := lookup(st, model.Types, t.ExtendsName).(*model.Type); ok {
			bases[i] = base
		}
	}
	topo := Toposort(len(list), func(i int) []int {
		if j, ok := index[bases[i]]; ok {
			return []int{j}
		}
		return nil
	})

	cyclic := make(map[*model.Type]bool, len(topo.Members))
	for _, id := range topo.Members {
		t := list[id]
		cyclic[t] = true
		c.warn(t, t.ExtendsName, "circular extension of derived type %s by %s", t.Name, t.ExtendsName)
	}
	for i, t := range list {
		if !cyclic[t] {
			t.Extends = bases[i]
		}
	}
	for _, id := range topo.Order {
		c.dtype(list[id], st, false)
	}
	for _, id := range topo.Members {
		c.dtype(list[id], st, true)
	}
	for _, id := range topo.Blocked {
		c.dtype(list[id], st, false)
	}
}

// dtype correlates one derived type: component prototypes, inherited
// public components, inherited bindings, finalizers and the constructor.
// A cyclic type has already been warned about and keeps no base.
func (c *correlator) dtype(t *model.Type, st *model.SymbolTable, cyclic bool) {
	t.NumLinesAll = t.NumLines

	for _, v := range t.Parameters {
		variable(v, st)
	}
	for _, v := range t.Variables {
		variable(v, st)
	}
	if t.ExtendsName != "" && t.Extends == nil && !cyclic {
		c.warn(t, t.ExtendsName, "could not find base type %q of derived type %s (in %s)",
			t.ExtendsName, t.Name, t.File)
	}

	t.InheritedVars = nil
	t.InheritedProcs = nil
	if t.Extends != nil {
		for _, v := range t.Extends.AllVariables() {
			if v.Permission == model.Public {
				t.InheritedVars = append(t.InheritedVars, v)
			}
		}
	}

	for _, bp := range t.BoundProcs {
		if !bp.Generic {
			boundProcedure(bp, t, st)
		}
	}

	var overridden []*model.BoundProcedure
	if t.Extends != nil {
		for _, bp := range t.Extends.AllBoundProcs() {
			if bp.Permission == model.Private {
				continue
			}
			local := localBinding(t, bp.Key())
			switch {
			case local == nil && bp.Generic:
				t.InheritedProcs = append(t.InheritedProcs, bp.CopyFor(t))
			case local == nil:
				t.InheritedProcs = append(t.InheritedProcs, bp)
			case bp.Generic:
				overridden = append(overridden, bp)
			}
		}
	}
	for _, bp := range t.AllBoundProcs() {
		for _, base := range overridden {
			if base.Key() == bp.Key() && bp.Parent == t {
				bp.Bindings = append(append([]model.Binding(nil), base.Bindings...), bp.Bindings...)
				break
			}
		}
		if bp.Generic {
			boundProcedure(bp, t, st)
		}
	}

	for _, fp := range t.FinalProcs {
		fp.Procedure = lookup(st, model.Procs, fp.Name)
	}

	if ctor := lookup(st, model.Procs, t.Name); ctor != nil {
		t.Constructor = ctor
		ctor.Base().Permission = t.Permission
		t.NumLines += ctor.Base().NumLines
	}

	for _, fp := range t.FinalProcs {
		if fp.Procedure != nil {
			t.NumLinesAll += fp.Procedure.Base().NumLines
		}
	}
	for _, bp := range t.AllBoundProcs() {
		t.NumLinesAll += bindingLines(bp)
	}

	c.sortType(t)
}

func localBinding(t *model.Type, key string) *model.BoundProcedure {
	for _, bp := range t.BoundProcs {
		if bp.Key() == key {
			return bp
		}
	}
	return nil
}

// boundProcedure resolves the interface prototype and the bindings of a
// type-bound procedure. Generic bindings name other bindings of the type;
// specific ones name procedures.
func boundProcedure(bp *model.BoundProcedure, t *model.Type, st *model.SymbolTable) {
	if bp.ProtoName != "" {
		if p := lookup(st, model.Procs, bp.ProtoName); p != nil {
			bp.Proto = p
		} else if a := lookup(st, model.AbsInterfaces, bp.ProtoName); a != nil {
			bp.Proto = a
		}
	}

	switch {
	case bp.Generic:
		byName := make(map[string]*model.BoundProcedure)
		for _, other := range t.AllBoundProcs() {
			byName[other.Key()] = other
		}
		for i, b := range bp.Bindings {
			if target, ok := byName[strings.ToLower(b.Name)]; ok {
				bp.Bindings[i].Target = target
			}
		}
	case !bp.Deferred:
		for i, b := range bp.Bindings {
			target := lookup(st, model.Procs, b.Name)
			if target == nil {
				continue
			}
			bp.Bindings[i].Target = target
			if p, ok := target.(*model.Procedure); ok {
				p.Binding = bp
			}
		}
	}
}

// bindingLines counts the lines of the procedures a binding resolves to.
func bindingLines(bp *model.BoundProcedure) int {
	n := 0
	for _, b := range bp.Bindings {
		if p, ok := b.Target.(*model.Procedure); ok {
			n += p.NumLines
		}
	}
	return n
}
