package parser

import (
	"regexp"
	"strings"

	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/reader"
)

var procAttrRE = regexp.MustCompile(`(?i)\b(impure|pure|elemental|non_recursive|recursive|module)\b`)

func (b *builder) module(u *unit, name string, l reader.Line) error {
	m := &model.Module{Node: model.Node{Name: name, Permission: model.Public}}
	if _, err := b.child(u, m, l); err != nil {
		return err
	}
	file := u.ent.(*model.SourceFile)
	file.Modules = append(file.Modules, m)
	return nil
}

func (b *builder) submodule(u *unit, m []string, l reader.Line) error {
	s := &model.Submodule{AncestorName: m[1], ParentSubmoduleName: m[2]}
	s.Name, s.Permission = m[3], model.Private
	if _, err := b.child(u, s, l); err != nil {
		return err
	}
	file := u.ent.(*model.SourceFile)
	file.Submodules = append(file.Submodules, s)
	return nil
}

func (b *builder) program(u *unit, name string, l reader.Line) error {
	p := &model.Program{Node: model.Node{Name: name, Permission: model.Public}}
	if _, err := b.child(u, p, l); err != nil {
		return err
	}
	file := u.ent.(*model.SourceFile)
	file.Programs = append(file.Programs, p)
	return nil
}

func (b *builder) blockData(u *unit, name string, l reader.Line) error {
	bd := &model.BlockData{Node: model.Node{Name: name, Permission: model.Public}}
	if _, err := b.child(u, bd, l); err != nil {
		return err
	}
	file := u.ent.(*model.SourceFile)
	file.BlockData = append(file.BlockData, bd)
	return nil
}

func (b *builder) subroutine(u *unit, m []string, l reader.Line) error {
	p := &model.Procedure{Node: model.Node{Name: m[2]}, ProcKind: model.Subroutine}
	procAttribs(p, m[1])
	p.ArgNames = argNames(m[3])
	if m[4] != "" {
		p.BindC = b.bindC(m[4])
	}
	if _, err := b.child(u, p, l); err != nil {
		return err
	}
	addProcedure(u, p)
	return nil
}

func (b *builder) function(u *unit, m []string, l reader.Line) error {
	p := &model.Procedure{Node: model.Node{Name: m[2]}, ProcKind: model.Function}
	prefix := spaceRE.ReplaceAllString(procAttribs(p, m[1]), "")
	p.ArgNames = argNames(m[3])
	p.ResultName = p.Name
	if rm := resultRE.FindStringSubmatch(m[4]); rm != nil {
		p.ResultName = rm[1]
	}
	if bm := bindRE.FindStringSubmatch(m[4]); bm != nil {
		p.BindC = b.bindC(bm[1])
	}
	if prefix != "" {
		pt, err := b.p.patterns.parseType(prefix, b.lits)
		if err != nil {
			return b.structural(u, l, "%v", err)
		}
		p.RetVar = &model.Variable{
			Node:      model.Node{Name: p.ResultName, Permission: model.Public, Parent: p, Scope: p, File: b.path, Line: l.Number},
			VarType:   pt.vartype,
			KindParam: pt.kind,
			StrLen:    pt.strlen,
			Proto:     pt.proto,
		}
	}
	if _, err := b.child(u, p, l); err != nil {
		return err
	}
	addProcedure(u, p)
	return nil
}

// moduleProcedure opens the implementation of a separate module procedure.
func (b *builder) moduleProcedure(u *unit, names string, l reader.Line) error {
	name := names
	if i := strings.IndexAny(name, " (,"); i > 0 {
		name = name[:i]
	}
	p := &model.Procedure{Node: model.Node{Name: name}, ProcKind: model.ModuleProcedure, IsModule: true}
	if _, err := b.child(u, p, l); err != nil {
		return err
	}
	u.body.ModProcedures = append(u.body.ModProcedures, p)
	return nil
}

func (b *builder) moduleProcRefs(u *unit, intr *model.Interface, names string, l reader.Line) {
	doc := b.readDoc()
	for _, name := range splitNames(names) {
		intr.ModProcs = append(intr.ModProcs, &model.ModuleProcRef{Node: model.Node{
			Name:       name,
			Permission: intr.Permission,
			Parent:     intr,
			Scope:      intr,
			Doc:        doc,
			File:       b.path,
			Line:       l.Number,
		}})
	}
}

func addProcedure(u *unit, p *model.Procedure) {
	switch v := u.ent.(type) {
	case *model.SourceFile:
		if p.ProcKind == model.Function {
			v.Functions = append(v.Functions, p)
		} else {
			v.Subroutines = append(v.Subroutines, p)
		}
	case *model.Interface:
		if p.ProcKind == model.Function {
			v.Functions = append(v.Functions, p)
		} else {
			v.Subroutines = append(v.Subroutines, p)
		}
	default:
		if p.ProcKind == model.Function {
			u.body.Functions = append(u.body.Functions, p)
		} else {
			u.body.Subroutines = append(u.body.Subroutines, p)
		}
	}
}

// procAttribs moves prefix keywords into p and returns what is left, which
// for functions is the result type.
func procAttribs(p *model.Procedure, prefix string) string {
	if prefix == "" {
		return ""
	}
	for _, m := range procAttrRE.FindAllString(prefix, -1) {
		attr := strings.ToLower(m)
		if attr == "module" {
			p.IsModule = true
			continue
		}
		p.Attribs = append(p.Attribs, attr)
	}
	return strings.TrimSpace(procAttrRE.ReplaceAllString(prefix, ""))
}

func argNames(group string) []string {
	group = strings.TrimSpace(group)
	if len(group) < 2 {
		return nil
	}
	var out []string
	for _, a := range commaSplitRE.Split(group[1:len(group)-1], -1) {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// bindC keeps the text of a bind(...) specifier up to its closing paren.
func (b *builder) bindC(s string) string {
	depth := 0
scan:
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				s = s[:i]
				break scan
			}
			depth--
		}
	}
	return strings.TrimSpace(restoreStrings(s, b.lits))
}

func (b *builder) derivedType(u *unit, m []string, l reader.Line) error {
	t := &model.Type{Node: model.Node{Name: m[2], Permission: u.childPerm}}
	if attrs := strings.TrimPrefix(strings.TrimSpace(m[1]), ","); attrs != "" {
		for _, a := range splitNames(attrs) {
			la := strings.ToLower(a)
			switch {
			case extendsRE.MatchString(a):
				t.ExtendsName = extendsRE.FindStringSubmatch(a)[1]
			case la == model.Public || la == model.Private:
				t.Permission = la
			default:
				t.Attribs = append(t.Attribs, restoreStrings(a, b.lits))
			}
		}
	}
	if m[3] != "" {
		for _, name := range splitNames(strings.Trim(m[3], "()")) {
			t.ParamNames = append(t.ParamNames, strings.Trim(name, "() "))
		}
	}
	if _, err := b.child(u, t, l); err != nil {
		return err
	}
	u.body.Types = append(u.body.Types, t)
	return nil
}

// interfaceBlock parses an interface. Generic interfaces are kept whole;
// specific and abstract ones become one wrapper per declared procedure.
func (b *builder) interfaceBlock(u *unit, m []string, l reader.Line) (bool, error) {
	intr := &model.Interface{
		Node:     model.Node{Name: strings.TrimSpace(m[2]), Permission: u.childPerm},
		Abstract: m[1] != "",
	}
	intr.Generic = intr.Name != ""
	if intr.Generic && intr.Abstract {
		if _, err := b.fail(u, l, "generic ABSTRACT INTERFACE"); err != nil {
			return false, err
		}
		intr.Generic = false
	}
	if _, err := b.child(u, intr, l); err != nil {
		return false, err
	}
	if intr.Generic {
		u.body.Interfaces = append(u.body.Interfaces, intr)
		return false, nil
	}
	for _, p := range intr.Routines() {
		w := &model.Interface{
			Node: model.Node{
				Name:       p.Name,
				Permission: intr.Permission,
				Parent:     u.ent,
				Scope:      u.ent,
				Doc:        intr.Doc,
				Meta:       intr.Meta,
				File:       b.path,
				Line:       p.Line,
				NumLines:   p.NumLines,
			},
			Abstract:  intr.Abstract,
			Procedure: p,
		}
		p.Parent, p.Scope = w, u.ent
		if intr.Abstract {
			u.body.AbsInterfaces = append(u.body.AbsInterfaces, w)
		} else {
			u.body.Interfaces = append(u.body.Interfaces, w)
		}
	}
	return false, nil
}

func (b *builder) enum(u *unit, l reader.Line) error {
	e := &model.Enum{Node: model.Node{Permission: u.childPerm}}
	if _, err := b.child(u, e, l); err != nil {
		return err
	}
	u.body.Enums = append(u.body.Enums, e)
	return nil
}
