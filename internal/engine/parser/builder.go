package parser

import (
	"fmt"
	"log/slog"
	"strings"

	"fortdoc/internal/core/errors"
	"fortdoc/internal/engine/iotrack"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/reader"
)

// builder walks one file. It is not safe for concurrent use.
type builder struct {
	p      *Parser
	src    reader.Source
	path   string
	docPfx string
	// lits are the literals masked out of the statement being dispatched.
	lits     []string
	warnings []error
	logger   *slog.Logger
}

// unit is the parse state of one open construct.
type unit struct {
	ent       model.Entity
	body      *model.Body
	exec      *model.Exec
	tracker   *iotrack.Tracker
	attrs     map[string][]string
	attrOrder []string
	params    map[string]string
	childPerm string
	contains  bool
	blocks    int
	assoc     associations
	lines     int
	members   map[string]bool
	others    map[string]bool
}

func (b *builder) newUnit(e model.Entity) *unit {
	u := &unit{
		ent:       e,
		body:      model.BodyOf(e),
		exec:      model.ExecOf(e),
		childPerm: e.Base().Permission,
	}
	switch e.(type) {
	case *model.SourceFile:
	case *model.Type:
		u.childPerm = model.Public
		u.lines = 1
	default:
		u.lines = 1
	}
	if u.body != nil {
		u.attrs = make(map[string][]string)
		u.params = make(map[string]string)
	}
	if u.exec != nil {
		u.tracker = iotrack.New(b.logger.With("unit", e.Base().Name))
		u.members = make(map[string]bool)
		u.others = make(map[string]bool)
	}
	return u
}

func (u *unit) addAttr(name, attr string) {
	name = attrKey(name)
	if _, ok := u.attrs[name]; !ok {
		u.attrOrder = append(u.attrOrder, name)
	}
	u.attrs[name] = append(u.attrs[name], attr)
}

func attrKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}

// run consumes lines until the unit's END statement.
func (b *builder) run(u *unit) error {
	last := reader.Line{}
	for {
		l, ok := b.src.Next()
		if !ok {
			break
		}
		last = l
		done, err := b.statement(u, l)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	if _, ok := u.ent.(*model.SourceFile); ok {
		u.ent.Base().NumLines = u.lines
		return nil
	}
	return errors.Structural(b.path, last.Number, "file ended while still nested in %s", describe(u.ent))
}

// fail reports a structural problem. In debug mode it is logged and parsing
// continues with the next statement.
func (b *builder) fail(u *unit, l reader.Line, format string, args ...interface{}) (bool, error) {
	msg := fmt.Sprintf(format, args...)
	if _, ok := u.ent.(*model.SourceFile); !ok {
		msg += " in " + describe(u.ent)
	}
	err := errors.Structural(b.path, l.Number, "%s: %s", msg, l.Text)
	if b.p.settings.Debug {
		b.logger.Error("structural error", "line", l.Number, "error", msg, "statement", l.Text)
		b.warnings = append(b.warnings, err)
		return false, nil
	}
	return false, err
}

func (b *builder) structural(u *unit, l reader.Line, format string, args ...interface{}) error {
	_, err := b.fail(u, l, format, args...)
	return err
}

// child parses the construct opened by l into e. The parent is charged for
// the lines of the child.
func (b *builder) child(parent *unit, e model.Entity, l reader.Line) (*unit, error) {
	n := e.Base()
	n.Parent, n.Scope = parent.ent, parent.ent
	n.File, n.Line = b.path, l.Number
	if n.Permission == "" {
		n.Permission = parent.childPerm
	}
	n.Doc = b.readDoc()
	cu := b.newUnit(e)
	if err := b.run(cu); err != nil {
		return nil, err
	}
	n.Meta, n.Doc = readMeta(n.Doc)
	parent.lines += cu.lines - 1
	return cu, nil
}

func (b *builder) warn(err error, msg string, args ...any) {
	b.warnings = append(b.warnings, err)
	b.logger.Warn(msg, args...)
}

func describe(e model.Entity) string {
	name := e.Base().Name
	if name == "" {
		return e.Kind().String()
	}
	return fmt.Sprintf("%s '%s'", e.Kind(), name)
}

// readDoc consumes the doc comment lines that directly follow.
func (b *builder) readDoc() []string {
	var doc []string
	for {
		l, ok := b.src.Next()
		if !ok {
			return doc
		}
		if !strings.HasPrefix(l.Text, b.docPfx) {
			b.src.PushBack(l)
			return doc
		}
		doc = append(doc, l.Text[len(b.docPfx):])
	}
}

// statement dispatches one line. done reports the unit's END.
func (b *builder) statement(u *unit, l reader.Line) (done bool, err error) {
	if strings.HasPrefix(l.Text, b.docPfx) {
		n := u.ent.Base()
		n.Doc = append(n.Doc, l.Text[len(b.docPfx):])
		return false, nil
	}
	if strings.TrimSpace(l.Text) != "" {
		u.lines++
	}

	line, lits := maskStrings(l.Text)
	b.lits = lits
	lower := strings.ToLower(line)
	if b.p.settings.Lower {
		line = lower
	}

	_, isFile := u.ent.(*model.SourceFile)
	typ, isType := u.ent.(*model.Type)
	intr, isInterface := u.ent.(*model.Interface)

	if lower == "contains" {
		switch {
		case !u.contains && canContain(u.ent):
			u.contains = true
			if isType {
				u.childPerm = model.Public
			}
		case u.contains:
			return b.fail(u, l, "multiple CONTAINS statements present")
		default:
			return b.fail(u, l, "unexpected CONTAINS statement")
		}
		return false, nil
	}
	switch lower {
	case model.Public, model.Private, model.Protected:
		u.childPerm = lower
		if !isType {
			u.ent.Base().Permission = lower
		}
		return false, nil
	case "sequence":
		if isType {
			typ.Sequence = true
		}
		return false, nil
	}
	if formatRE.MatchString(line) {
		return false, nil
	}
	if m := attribRE.FindStringSubmatch(line); m != nil && u.blocks == 0 {
		return b.attribute(u, l, m, isFile)
	}
	if m := endRE.FindStringSubmatch(line); m != nil {
		if isFile {
			return b.fail(u, l, "END statement outside of any nesting")
		}
		switch strings.ToLower(m[1]) {
		case "block":
			u.blocks--
		case "associate":
			u.assoc.pop()
		default:
			if u.blocks == 0 {
				return true, b.cleanup(u)
			}
		}
		return false, nil
	}
	if m := modprocRE.FindStringSubmatch(line); m != nil && (m[1] != "" || isInterface) {
		if isInterface {
			b.moduleProcRefs(u, intr, m[2], l)
			return false, nil
		}
		if !isModule(u.ent) || !u.contains {
			return b.fail(u, l, "unexpected MODULE PROCEDURE")
		}
		return false, b.moduleProcedure(u, strings.TrimSpace(m[2]), l)
	}
	if m := blockDataRE.FindStringSubmatch(line); m != nil {
		if !isFile {
			return b.fail(u, l, "unexpected BLOCK DATA")
		}
		return false, b.blockData(u, m[1], l)
	}
	if blockRE.MatchString(line) {
		u.blocks++
		return false, nil
	}
	if m := associateRE.FindStringSubmatch(line); m != nil {
		if u.exec != nil {
			b.addCalls(u, line, l.Number)
		}
		if segs := stripParen(m[2], 0); len(segs) > 0 {
			u.assoc.push(parenSplit(',', segs[0]))
		}
		return false, nil
	}
	if m := moduleRE.FindStringSubmatch(line); m != nil {
		if !isFile {
			return b.fail(u, l, "unexpected MODULE")
		}
		return false, b.module(u, m[1], l)
	}
	if m := submoduleRE.FindStringSubmatch(line); m != nil {
		if !isFile {
			return b.fail(u, l, "unexpected SUBMODULE")
		}
		return false, b.submodule(u, m, l)
	}
	if m := programRE.FindStringSubmatch(line); m != nil {
		if !isFile {
			return b.fail(u, l, "unexpected PROGRAM")
		}
		if err := b.program(u, m[1], l); err != nil {
			return false, err
		}
		if f := u.ent.(*model.SourceFile); len(f.Programs) > 1 {
			return b.fail(u, l, "multiple PROGRAM units in same source file")
		}
		return false, nil
	}
	if m := subroutineRE.FindStringSubmatch(line); m != nil {
		switch {
		case isCodeUnit(u.ent) && !u.contains, !canHoldProcedures(u.ent):
			return b.fail(u, l, "unexpected SUBROUTINE")
		}
		return false, b.subroutine(u, m, l)
	}
	if m := namelistRE.FindStringSubmatch(line); m != nil {
		if !isCodeUnit(u.ent) {
			return b.fail(u, l, "unexpected NAMELIST")
		}
		b.namelist(u, m, l)
		return false, nil
	}
	if m := functionRE.FindStringSubmatch(line); m != nil {
		switch {
		case isCodeUnit(u.ent) && !u.contains, !canHoldProcedures(u.ent):
			return b.fail(u, l, "unexpected FUNCTION")
		}
		return false, b.function(u, m, l)
	}
	if m := matchType(line); m != nil && u.blocks == 0 {
		if u.body == nil {
			return b.fail(u, l, "unexpected derived TYPE")
		}
		return false, b.derivedType(u, m, l)
	}
	if m := interfaceRE.FindStringSubmatch(line); m != nil && u.blocks == 0 {
		if !isCodeUnit(u.ent) {
			return b.fail(u, l, "unexpected INTERFACE")
		}
		return b.interfaceBlock(u, m, l)
	}
	if enumRE.MatchString(line) && u.blocks == 0 {
		if !isCodeUnit(u.ent) {
			return b.fail(u, l, "unexpected ENUM")
		}
		return false, b.enum(u, l)
	}
	if m := boundprocRE.FindStringSubmatch(line); m != nil && u.contains {
		if !isType {
			return b.fail(u, l, "unexpected type-bound procedure")
		}
		b.boundProcedures(u, typ, line, m, l)
		return false, nil
	}
	if m := commonRE.FindStringSubmatch(line); m != nil {
		if u.body == nil {
			return b.fail(u, l, "unexpected COMMON statement")
		}
		b.common(u, line, m, l)
		return false, nil
	}
	if m := finalRE.FindStringSubmatch(line); m != nil && u.contains {
		if !isType {
			return b.fail(u, l, "unexpected finalization procedure")
		}
		b.finalProcs(typ, m[1], l)
		return false, nil
	}
	if b.p.patterns.matchVariable(line) && u.blocks == 0 {
		return b.variables(u, line, l)
	}
	if m := useRE.FindStringSubmatch(line); m != nil {
		if u.body == nil {
			return b.fail(u, l, "unexpected USE statement")
		}
		u.body.Uses = append(u.body.Uses, &model.Use{Name: m[1], Spec: m[2], Line: l.Number})
		return false, nil
	}

	if u.exec == nil {
		// Outside executable units a function reference is too easily
		// misidentified to be worth an error; a CALL is not.
		if !callRE.MatchString(line) && subcallRE.MatchString(line) {
			return b.fail(u, l, "unexpected procedure call")
		}
		return false, nil
	}
	if arithGotoRE.MatchString(line) {
		return false, nil
	}
	u.tracker.HandleStatement(restoreStrings(line, b.lits), l.Number)
	if callRE.MatchString(line) || subcallRE.MatchString(line) {
		b.addCalls(u, line, l.Number)
	} else {
		b.memberAccess(u, line)
	}
	return false, nil
}

// attribute buffers an attribute statement until cleanup.
func (b *builder) attribute(u *unit, l reader.Line, m []string, isFile bool) (bool, error) {
	attr := strings.ReplaceAll(strings.ToLower(m[1]), " ", "")
	if strings.HasPrefix(attr, "bind") {
		attr = strings.ReplaceAll(attr, ",", ", ")
	}
	if u.attrs == nil {
		if attr == "data" && isFile {
			return false, nil
		}
		return b.fail(u, l, "unexpected %s statement", strings.ToUpper(attr))
	}
	switch attr {
	case "data":
	case "dimension", "allocatable", "pointer":
		for _, name := range parenSplit(',', m[2]) {
			name = strings.ToLower(strings.TrimSpace(name))
			dims := ""
			if i := strings.IndexByte(name, '('); i >= 0 {
				name, dims = strings.TrimSpace(name[:i]), name[i:]
			}
			u.addAttr(name, attr+dims)
		}
	default:
		stmt := m[2]
		if attr == "parameter" && len(stmt) >= 2 {
			stmt = strings.TrimSpace(stmt[1 : len(stmt)-1])
		}
		attr = restoreStrings(attr, b.lits)
		for _, name := range parenSplit(',', stmt) {
			if attr == "parameter" {
				parts := parenSplit('=', name)
				name = parts[0]
				if len(parts) > 1 {
					key := strings.ToLower(strings.TrimSpace(name))
					u.params[key] = restoreStrings(strings.TrimSpace(parts[1]), b.lits)
				}
			}
			u.addAttr(strings.ToLower(strings.TrimSpace(name)), attr)
		}
	}
	return false, nil
}

func canContain(e model.Entity) bool {
	switch e.(type) {
	case *model.Module, *model.Submodule, *model.Program, *model.Procedure, *model.Type:
		return true
	}
	return false
}

// isCodeUnit covers the units whose procedures must follow CONTAINS.
func isCodeUnit(e model.Entity) bool {
	switch e.(type) {
	case *model.Module, *model.Submodule, *model.Program, *model.Procedure:
		return true
	}
	return false
}

func canHoldProcedures(e model.Entity) bool {
	switch e.(type) {
	case *model.SourceFile, *model.Interface:
		return true
	}
	return isCodeUnit(e)
}

func isModule(e model.Entity) bool {
	switch e.(type) {
	case *model.Module, *model.Submodule:
		return true
	}
	return false
}
