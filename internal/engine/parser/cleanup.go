package parser

import (
	"sort"
	"strconv"
	"strings"

	"fortdoc/internal/core/errors"
	"fortdoc/internal/engine/model"
)

// cleanup runs once a unit's END has been read.
func (b *builder) cleanup(u *unit) error {
	u.ent.Base().NumLines = u.lines
	if p, ok := u.ent.(*model.Procedure); ok && p.ProcKind == model.Function {
		resolveRetVar(u, p)
	}
	if u.exec != nil {
		b.finishIO(u)
	}
	if u.body != nil {
		b.processAttribs(u)
		vars := u.body.Variables[:0]
		for _, v := range u.body.Variables {
			if !hasAttrib(v.Attribs, "external") {
				vars = append(vars, v)
			}
		}
		u.body.Variables = vars
	}
	switch e := u.ent.(type) {
	case *model.Procedure:
		resolveArgs(u, e)
	case *model.Type:
		for _, name := range e.ParamNames {
			if v := takeVariable(&e.Variables, name); v != nil {
				e.Parameters = append(e.Parameters, v)
			}
		}
	case *model.Enum:
		return b.enumValues(e)
	}
	return nil
}

func resolveRetVar(u *unit, p *model.Procedure) {
	if v := takeVariable(&u.body.Variables, p.ResultName); v != nil {
		p.RetVar = v
		return
	}
	if p.RetVar != nil {
		return
	}
	p.RetVar = implicitVariable(p, p.ResultName)
}

// resolveArgs turns argument names into the declarations made for them:
// a variable, a procedure from a specific interface, or an implicitly
// typed variable.
func resolveArgs(u *unit, p *model.Procedure) {
	for _, name := range p.ArgNames {
		if name == "*" {
			p.Args = append(p.Args, &model.Variable{
				Node:    model.Node{Name: "*", Permission: p.Permission, Parent: p, Scope: p, File: p.File, Line: p.Line},
				VarType: "*",
			})
			continue
		}
		if v := takeVariable(&u.body.Variables, name); v != nil {
			p.Args = append(p.Args, v)
			continue
		}
		if proc := takeInterfaceProc(&u.body.Interfaces, name); proc != nil {
			proc.Parent, proc.Scope = p, p
			p.Args = append(p.Args, proc)
			continue
		}
		p.Args = append(p.Args, implicitVariable(p, name))
	}
}

func implicitVariable(p *model.Procedure, name string) *model.Variable {
	return &model.Variable{
		Node:     model.Node{Name: name, Permission: p.Permission, Parent: p, Scope: p, File: p.File, Line: p.Line},
		VarType:  model.ImplicitType(name),
		Implicit: true,
	}
}

func takeVariable(list *[]*model.Variable, name string) *model.Variable {
	for i, v := range *list {
		if strings.EqualFold(v.Name, name) {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return v
		}
	}
	return nil
}

func takeInterfaceProc(list *[]*model.Interface, name string) *model.Procedure {
	for i, intr := range *list {
		if intr.Generic || intr.Abstract || intr.Procedure == nil {
			continue
		}
		if strings.EqualFold(intr.Procedure.Name, name) {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return intr.Procedure
		}
	}
	return nil
}

func hasAttrib(attribs []string, name string) bool {
	for _, a := range attribs {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

func isPermission(attr string) bool {
	switch attr {
	case model.Public, model.Private, model.Protected:
		return true
	}
	return false
}

func bindArgs(attr string) string {
	i, j := strings.IndexByte(attr, '('), strings.LastIndexByte(attr, ')')
	if i < 0 || j < i {
		return ""
	}
	return strings.TrimSpace(attr[i+1 : j])
}

// processAttribs applies attribute statements to the entities they name.
func (b *builder) processAttribs(u *unit) {
	take := func(name string) []string {
		key := attrKey(name)
		attrs := u.attrs[key]
		delete(u.attrs, key)
		return attrs
	}
	body := u.body
	for _, p := range body.Routines() {
		for _, a := range take(p.Name) {
			switch {
			case isPermission(a):
				p.Permission = a
			case strings.HasPrefix(a, "bind"):
				p.BindC = bindArgs(a)
			default:
				p.Attribs = append(p.Attribs, a)
			}
		}
	}
	for _, t := range body.Types {
		for _, a := range take(t.Name) {
			if isPermission(a) {
				t.Permission = a
			} else {
				t.Attribs = append(t.Attribs, a)
			}
		}
	}
	for _, list := range [][]*model.Interface{body.Interfaces, body.AbsInterfaces} {
		for _, intr := range list {
			for _, a := range take(intr.Name) {
				p := intr.Procedure
				switch {
				case isPermission(a):
					intr.Permission = a
					if p != nil {
						p.Permission = a
					}
				case p == nil:
				case strings.HasPrefix(a, "bind"):
					p.BindC = bindArgs(a)
				default:
					p.Attribs = append(p.Attribs, a)
				}
			}
		}
	}
	for _, v := range body.Variables {
		variableAttribs(v, take(v.Name))
		if init, ok := u.params[v.Key()]; ok {
			v.Initial = init
			v.Parameter = true
		}
	}

	mod := publicListOwner(u.ent)
	for _, name := range u.attrOrder {
		attrs, ok := u.attrs[name]
		if !ok {
			continue
		}
		b.logger.Debug("attributes for undeclared name", "unit", u.ent.Base().Name, "name", name, "attribs", attrs)
		if mod != nil && hasAttrib(attrs, model.Public) {
			mod.PublicList = append(mod.PublicList, name)
		}
	}
	if mod != nil {
		mod.PublicList = append(mod.PublicList, publicNames(body)...)
		sort.Strings(mod.PublicList)
		mod.PublicList = dedupe(mod.PublicList)
	}
}

func variableAttribs(v *model.Variable, attrs []string) {
	for _, a := range attrs {
		switch {
		case isPermission(a):
			v.Permission = a
		case a == "optional":
			v.Optional = true
		case a == "parameter":
			v.Parameter = true
		case strings.HasPrefix(a, "intent("):
			v.Intent = strings.TrimSuffix(a[len("intent("):], ")")
		case strings.HasPrefix(a, "dimension("):
			v.Dimension = a[len("dimension"):]
		case strings.HasPrefix(a, "pointer("), strings.HasPrefix(a, "allocatable("):
			if m := dimRE.FindStringSubmatch(a); m != nil {
				v.Attribs = append(v.Attribs, a[:strings.IndexByte(a, '(')])
				v.Dimension = m[1]
				continue
			}
			v.Attribs = append(v.Attribs, a)
		default:
			v.Attribs = append(v.Attribs, a)
		}
	}
}

func publicListOwner(e model.Entity) *model.Module {
	switch v := e.(type) {
	case *model.Module:
		return v
	case *model.Submodule:
		return &v.Module
	}
	return nil
}

func publicNames(body *model.Body) []string {
	var out []string
	add := func(n *model.Node) {
		if n.Permission == model.Public || n.Permission == model.Protected {
			out = append(out, n.Key())
		}
	}
	for _, p := range body.Routines() {
		add(&p.Node)
	}
	for _, t := range body.Types {
		add(&t.Node)
	}
	for _, i := range body.Interfaces {
		add(&i.Node)
	}
	for _, i := range body.AbsInterfaces {
		add(&i.Node)
	}
	for _, v := range body.Variables {
		add(&v.Node)
	}
	for _, e := range body.Enums {
		for _, v := range e.Variables {
			add(&v.Node)
		}
	}
	return out
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

// enumValues assigns each enumerator its value, counting up from the
// previous one when none is given.
func (b *builder) enumValues(e *model.Enum) error {
	prev := -1
	for _, v := range e.Variables {
		if v.Initial == "" {
			prev++
			v.Initial = strconv.Itoa(prev)
			continue
		}
		n, err := strconv.Atoi(removeKindSuffix(strings.TrimSpace(v.Initial)))
		if err != nil {
			return errors.AddContext(errors.AddContext(
				errors.Newf(errors.CodeLiteral, "enumerator %s has non-integer value %q", v.Name, v.Initial),
				errors.CtxPath, b.path), errors.CtxLine, v.Line)
		}
		prev = n
		v.Initial = strconv.Itoa(n)
	}
	return nil
}

// finishIO closes the unit's I/O tracking and stores its summary.
func (b *builder) finishIO(u *unit) {
	stragglers := u.tracker.Finalize()
	if len(stragglers) > 0 {
		b.warnings = append(b.warnings, errors.AddContext(
			errors.Newf(errors.CodeIOTracker, "%d file sessions left open in %s", len(stragglers), describe(u.ent)),
			errors.CtxPath, b.path))
	}
	u.exec.IO = u.tracker.Summarize()
	u.exec.IOStats = u.tracker.Stats()
	u.exec.Stragglers = len(stragglers)
}
