package parser

import (
	"strings"

	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/reader"
)

// variables handles a type declaration statement.
func (b *builder) variables(u *unit, line string, l reader.Line) (bool, error) {
	var dest *[]*model.Variable
	switch e := u.ent.(type) {
	case *model.Type:
		dest = &e.Variables
	case *model.Enum:
		dest = &e.Variables
	case *model.Interface:
		// Declarations belong to the procedures of the block.
		b.readDoc()
		return false, nil
	case *model.SourceFile:
		return b.fail(u, l, "unexpected variable declaration")
	default:
		dest = &u.body.Variables
	}
	vars, err := b.lineToVariables(u, line, l)
	if err != nil {
		return b.fail(u, l, "%v", err)
	}
	*dest = append(*dest, vars...)
	return false, nil
}

func (b *builder) lineToVariables(u *unit, line string, l reader.Line) ([]*model.Variable, error) {
	pt, err := b.p.patterns.parseType(line, b.lits)
	if err != nil {
		return nil, err
	}
	var attrs, decl string
	if m := attribSplitRE.FindStringSubmatch(pt.rest); m != nil {
		attrs, decl = m[1], m[2]
	} else {
		decl = attribSplit2.FindStringSubmatch(pt.rest)[2]
	}

	perm := u.childPerm
	var (
		intent              string
		optional, parameter bool
		attribs             []string
	)
	for _, a := range splitNames(attrs) {
		la := strings.ToLower(spaceRE.ReplaceAllString(a, ""))
		switch {
		case la == model.Public, la == model.Private, la == model.Protected:
			perm = la
		case la == "optional":
			optional = true
		case la == "parameter":
			parameter = true
		case la == "intent(in)", la == "intent(out)", la == "intent(inout)":
			intent = la[len("intent(") : len(la)-1]
		default:
			attribs = append(attribs, restoreStrings(a, b.lits))
		}
	}

	doc := b.readDoc()
	meta, doc := readMeta(doc)
	var out []*model.Variable
	for _, d := range parenSplit(',', decl) {
		d = spaceRE.ReplaceAllString(d, "")
		if d == "" {
			continue
		}
		v := &model.Variable{
			Node: model.Node{
				Permission: perm,
				Parent:     u.ent,
				Scope:      u.ent,
				Doc:        doc,
				Meta:       meta,
				File:       b.path,
				Line:       l.Number,
			},
			VarType:   pt.vartype,
			KindParam: pt.kind,
			StrLen:    pt.strlen,
			Intent:    intent,
			Optional:  optional,
			Parameter: parameter,
			Attribs:   append([]string(nil), attribs...),
		}
		if pt.proto != nil {
			proto := *pt.proto
			v.Proto = &proto
		}
		parts := parenSplit('=', d)
		name := parts[0]
		if len(parts) > 1 {
			init := strings.Join(parts[1:], "=")
			if strings.HasPrefix(init, ">") {
				v.Points = true
				init = init[1:]
			}
			v.Initial = restoreStrings(commaNoSpace.ReplaceAllString(init, ", $1"), b.lits)
		}
		if i := strings.IndexAny(name, "([*"); i > 0 {
			name, v.Dimension = name[:i], name[i:]
		}
		if strings.HasPrefix(v.Dimension, "*") {
			// Old style character length override, name*len(dims).
			length := v.Dimension[1:]
			v.Dimension = ""
			if len(length) > 1 && !strings.HasPrefix(length, "(") {
				if i := strings.IndexAny(length[1:], "(["); i >= 0 {
					length, v.Dimension = length[:i+1], length[i+1:]
				}
			}
			v.StrLen = strings.Trim(length, "()")
		}
		v.Name = name
		out = append(out, v)
	}
	return out, nil
}

func (b *builder) boundProcedures(u *unit, t *model.Type, line string, m []string, l reader.Line) {
	generic := strings.EqualFold(m[1], "generic")
	perm := u.childPerm
	var (
		deferred bool
		attribs  []string
	)
	for _, a := range splitNames(m[3]) {
		switch la := strings.ToLower(a); la {
		case model.Public, model.Private:
			perm = la
		case "deferred":
			deferred = true
		default:
			attribs = append(attribs, a)
		}
	}
	proto := strings.TrimSpace(strings.Trim(m[2], "() "))
	doc := b.readDoc()

	add := func(name string, bindings []string) {
		bp := &model.BoundProcedure{
			Node: model.Node{
				Name:       strings.TrimSpace(name),
				Permission: perm,
				Parent:     t,
				Scope:      t,
				File:       b.path,
				Line:       l.Number,
			},
			Generic:   generic,
			Deferred:  deferred,
			Attribs:   append([]string(nil), attribs...),
			ProtoName: proto,
		}
		for _, target := range bindings {
			bp.Bindings = append(bp.Bindings, model.Binding{Name: target})
		}
		if doc != nil {
			bp.Meta, bp.Doc = readMeta(doc)
			doc = nil
		}
		t.BoundProcs = append(t.BoundProcs, bp)
	}

	if generic {
		parts := pointsToRE.Split(m[4], 2)
		var targets []string
		if len(parts) == 2 {
			targets = splitNames(parts[1])
		}
		add(parts[0], targets)
		return
	}
	for _, item := range splitNames(m[4]) {
		parts := pointsToRE.Split(item, 2)
		name := strings.TrimSpace(parts[0])
		targets := []string{name}
		if len(parts) == 2 {
			targets = splitNames(parts[1])
		}
		add(name, targets)
	}
}

func (b *builder) finalProcs(t *model.Type, names string, l reader.Line) {
	list := splitNames(names)
	doc := b.readDoc()
	for i, name := range list {
		fp := &model.FinalProc{Node: model.Node{
			Name:       name,
			Permission: model.Public,
			Parent:     t,
			Scope:      t,
			File:       b.path,
			Line:       l.Number,
		}}
		if i == len(list)-1 {
			fp.Meta, fp.Doc = readMeta(doc)
		}
		t.FinalProcs = append(t.FinalProcs, fp)
	}
}

// common handles COMMON statements, which may declare several blocks
// sharing the statement's documentation.
func (b *builder) common(u *unit, line string, m []string, l reader.Line) {
	rest := strings.TrimSpace(line[len("common"):])
	doc := b.readDoc()
	meta, doc := readMeta(doc)
	add := func(name, vars string) {
		c := &model.Common{Node: model.Node{
			Name:       name,
			Permission: u.childPerm,
			Parent:     u.ent,
			Scope:      u.ent,
			Doc:        doc,
			Meta:       meta,
			File:       b.path,
			Line:       l.Number,
		}}
		for _, v := range splitNames(strings.Trim(strings.TrimSpace(vars), ",")) {
			c.VarNames = append(c.VarNames, strings.ToLower(v))
		}
		u.body.Common = append(u.body.Common, c)
	}

	groups := commonSplit.FindAllStringSubmatchIndex(rest, -1)
	if len(groups) == 0 {
		add("", rest)
		return
	}
	if lead := strings.Trim(strings.TrimSpace(rest[:groups[0][0]]), ","); lead != "" {
		add("", lead)
	}
	for i, g := range groups {
		end := len(rest)
		if i+1 < len(groups) {
			end = groups[i+1][0]
		}
		name := strings.TrimSpace(strings.Trim(rest[g[2]:g[3]], "/ "))
		add(name, rest[g[1]:end])
	}
}

func (b *builder) namelist(u *unit, m []string, l reader.Line) {
	nl := &model.Namelist{Node: model.Node{
		Name:       m[1],
		Permission: u.childPerm,
		Parent:     u.ent,
		Scope:      u.ent,
		File:       b.path,
		Line:       l.Number,
	}}
	for _, v := range splitNames(m[2]) {
		nl.VarNames = append(nl.VarNames, strings.ToLower(v))
	}
	nl.Meta, nl.Doc = readMeta(b.readDoc())
	u.body.Namelists = append(u.body.Namelists, nl)
}
