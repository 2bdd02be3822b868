package correlate

import (
	"strings"

	"fortdoc/internal/engine/model"
)

// unit correlates a module, submodule, program, block data or procedure and
// everything it contains.
func (c *correlator) unit(e model.Entity) {
	body := model.BodyOf(e)
	if body == nil {
		return
	}

	outer := enclosingTable(e)
	if _, ok := e.(*model.BlockData); ok {
		outer = nil
	}
	if s, ok := e.(*model.Submodule); ok {
		outer = c.submoduleScope(s)
	}
	st := localTable(e, outer)
	body.Symbols = st

	mod := moduleOf(e)
	if mod != nil {
		mod.Public = publicSymbols(st)
		c.linkModuleProcedures(e, st)
	}

	for _, u := range body.Uses {
		if u.Module == nil {
			continue
		}
		used := usedEntities(publicTable(u.Module), u.Spec)
		if mod != nil {
			reexport(mod, used)
		}
		for _, cat := range model.Categories {
			st.Merge(cat, used.Entries(cat))
		}
	}

	c.types(body.Types, st)

	if ex := model.ExecOf(e); ex != nil {
		c.calls(e, ex)
	}

	if s, ok := e.(*model.Submodule); ok {
		c.ancestry(s)
	}

	for _, f := range body.Functions {
		c.unit(f)
	}
	for _, s := range body.Subroutines {
		c.unit(s)
	}
	for _, i := range body.Interfaces {
		c.iface(i, st)
	}
	for _, i := range body.AbsInterfaces {
		c.iface(i, st)
	}
	for _, v := range body.Variables {
		variable(v, st)
	}
	for _, cb := range body.Common {
		c.common(cb, body, st)
	}
	for _, mp := range body.ModProcedures {
		c.unit(mp)
	}
	for _, nl := range body.Namelists {
		namelist(nl, st)
	}
	if p, ok := e.(*model.Procedure); ok && p.ProcKind != model.ModuleProcedure {
		for _, a := range p.Args {
			if v, ok := a.(*model.Variable); ok {
				variable(v, st)
			}
		}
		if p.RetVar != nil {
			variable(p.RetVar, st)
		}
	}

	c.sortBody(body)
}

func moduleOf(e model.Entity) *model.Module {
	switch v := e.(type) {
	case *model.Module:
		return v
	case *model.Submodule:
		return &v.Module
	}
	return nil
}

// submoduleScope registers s as a descendant and returns the table its
// names fall back to: the parent submodule's, else the ancestor module's.
func (c *correlator) submoduleScope(s *model.Submodule) *model.SymbolTable {
	switch {
	case s.ParentSubmodule != nil:
		s.ParentSubmodule.Descendants = append(s.ParentSubmodule.Descendants, s)
		return s.ParentSubmodule.Symbols
	case s.Ancestor != nil:
		if m, ok := s.Ancestor.(*model.Module); ok {
			m.Descendants = append(m.Descendants, s)
			return m.Symbols
		}
	}
	return nil
}

// ancestry lists the ancestor module then each parent submodule, outermost
// first.
func (c *correlator) ancestry(s *model.Submodule) {
	var chain []model.Entity
	seen := map[*model.Submodule]bool{s: true}
	item := s
	for item.ParentSubmoduleName != "" {
		parent := item.ParentSubmodule
		if parent == nil {
			c.warn(s, item.ParentSubmoduleName, "unknown parent submodule %q of submodule %s",
				item.ParentSubmoduleName, item.Name)
			break
		}
		if seen[parent] {
			break
		}
		seen[parent] = true
		item = parent
		chain = append([]model.Entity{item}, chain...)
	}
	if item.Ancestor != nil {
		chain = append([]model.Entity{item.Ancestor}, chain...)
	}
	s.Ancestry = chain
}

// linkModuleProcedures pairs separate module procedures with the interface
// that declares them and copies the declared signature onto MODULE
// PROCEDURE implementations.
func (c *correlator) linkModuleProcedures(e model.Entity, st *model.SymbolTable) {
	for _, proc := range model.BodyOf(e).Routines() {
		if !proc.IsModule {
			continue
		}
		var decl *model.Procedure
		switch intr := declaration(st, proc).(type) {
		case *model.Interface:
			if intr.Generic || intr.Procedure == nil {
				continue
			}
			proc.Implements = intr
			intr.Procedure.Implements = proc
			decl = intr.Procedure
		case *model.Procedure:
			parent, ok := intr.Parent.(*model.Interface)
			if !ok || !parent.Generic {
				continue
			}
			proc.Implements = intr
			intr.Implements = proc
			decl = intr
		default:
			continue
		}
		if proc.ProcKind == model.ModuleProcedure {
			proc.Attribs = decl.Attribs
			proc.Args = decl.Args
			proc.ArgNames = decl.ArgNames
			if decl.RetVar != nil {
				proc.RetVar = decl.RetVar
			}
		}
	}
}

// declaration finds the nearest procedure entry named like proc that is not
// proc itself.
func declaration(st *model.SymbolTable, proc *model.Procedure) model.Entity {
	for cur := st; cur != nil; cur = cur.Outer {
		if e, ok := cur.Local(model.Procs, proc.Name); ok && e != model.Entity(proc) {
			return e
		}
	}
	return nil
}

// calls resolves each recorded call chain. Chains ending in a variable or a
// type are structure constructors or array references, not calls, and are
// dropped; unresolved chains keep their names.
func (c *correlator) calls(e model.Entity, ex *model.Exec) {
	kept := ex.Calls[:0]
	for _, call := range ex.Calls {
		if len(call.Chain) == 0 {
			continue
		}
		item := chainItem(e, call.Chain)
		switch item.(type) {
		case *model.Variable, *model.Type:
			continue
		case nil:
			c.logger.Debug("unresolved call", "entity", model.Path(e), "call", strings.Join(call.Chain, "%"))
		default:
			call.Target = item
		}
		kept = append(kept, call)
	}
	ex.Calls = kept
}

// iface resolves generic interface members and correlates the procedures
// declared in the block.
func (c *correlator) iface(i *model.Interface, st *model.SymbolTable) {
	if !i.Generic {
		if i.Procedure != nil {
			c.unit(i.Procedure)
		}
		return
	}
	refs := i.ModProcs[:0]
	for _, ref := range i.ModProcs {
		switch proc := lookup(st, model.Procs, ref.Name).(type) {
		case nil:
			c.warn(i, ref.Name, "could not find interface procedure %q of %s", ref.Name, model.Path(i))
		case *model.Variable:
			i.ProcPointers = append(i.ProcPointers, proc)
			continue
		default:
			ref.Procedure = proc
		}
		refs = append(refs, ref)
	}
	i.ModProcs = refs
	for _, r := range i.Routines() {
		c.unit(r)
	}
	c.sortInterface(i)
}

// variable resolves the prototype of type, class and procedure declarations.
func variable(v *model.Variable, st *model.SymbolTable) {
	if v.Proto == nil || v.Proto.Name == "" || v.Proto.Name == "*" {
		return
	}
	switch v.VarType {
	case "type", "class":
		if t := lookup(st, model.Types, v.Proto.Name); t != nil {
			v.Proto.Target = t
		}
	case "procedure":
		if p := lookup(st, model.Procs, v.Proto.Name); p != nil {
			v.Proto.Target = p
		} else if a := lookup(st, model.AbsInterfaces, v.Proto.Name); a != nil {
			v.Proto.Target = a
		}
	}
}

// common resolves the names of a common block. Variables declared in the
// same unit move into the block; undeclared names become implicitly typed
// members.
func (c *correlator) common(cb *model.Common, body *model.Body, st *model.SymbolTable) {
	cb.Variables = cb.Variables[:0]
	for _, name := range cb.VarNames {
		if v, ok := lookup(st, model.Vars, name).(*model.Variable); ok {
			for i, own := range body.Variables {
				if own == v {
					body.Variables = append(body.Variables[:i], body.Variables[i+1:]...)
					v.Parent = cb
					break
				}
			}
			cb.Variables = append(cb.Variables, v)
			continue
		}
		cb.Variables = append(cb.Variables, &model.Variable{
			Node: model.Node{
				Name:       name,
				Permission: cb.Permission,
				Parent:     cb,
				Scope:      cb,
				File:       cb.File,
				Line:       cb.Line,
			},
			VarType:  model.ImplicitType(name),
			Implicit: true,
		})
	}
	c.sortVariables(cb.Variables)
}

func namelist(nl *model.Namelist, st *model.SymbolTable) {
	nl.Variables = make([]*model.Variable, len(nl.VarNames))
	for i, name := range nl.VarNames {
		if v, ok := lookup(st, model.Vars, name).(*model.Variable); ok {
			nl.Variables[i] = v
		}
	}
}
