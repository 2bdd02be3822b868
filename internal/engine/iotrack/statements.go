package iotrack

import (
	"regexp"
	"strings"
)

var (
	ioStmtRE   = regexp.MustCompile(`(?i)^(open|read|write|rewind|backspace|close)\s*\(`)
	bareUnitRE = regexp.MustCompile(`(?i)^(rewind|backspace)\s+(\w+)\s*$`)
	reclRE     = regexp.MustCompile(`(?i)recl\s*=\s*(\d+)`)
	fmtRE      = regexp.MustCompile(`(?i)\bfmt\s*=`)
	fileRE     = regexp.MustCompile(`(?i)\bfile\s*=`)

	ifThenRE     = regexp.MustCompile(`(?i)^if\s*\((.+?)\)\s*then$`)
	elseIfRE     = regexp.MustCompile(`(?i)^else\s*if\s*\((.+?)\)\s*then$`)
	elseRE       = regexp.MustCompile(`(?i)^else$`)
	selectCaseRE = regexp.MustCompile(`(?i)^select\s*case\s*\((.+?)\)`)
	caseRE       = regexp.MustCompile(`(?i)^case\s*\((.+?)\)`)
	caseDefRE    = regexp.MustCompile(`(?i)^case\s+default\b`)
	endIfRE      = regexp.MustCompile(`(?i)^end\s*if\b`)
	endSelectRE  = regexp.MustCompile(`(?i)^end\s*select\b`)
	labelRE      = regexp.MustCompile(`^(?:\d+\s+|\w+\s*:\s*)`)
)

// HandleStatement feeds one executable statement, with string literals
// already restored, through the control-flow and I/O recognizers.
func (t *Tracker) HandleStatement(raw string, line int) {
	stmt := strings.TrimSpace(raw)
	if m := labelRE.FindString(stmt); m != "" {
		stmt = strings.TrimSpace(stmt[len(m):])
	}
	t.controlFlow(stmt, line)
	t.ioStatement(stmt, line)
}

func (t *Tracker) controlFlow(stmt string, line int) {
	switch {
	case ifThenRE.MatchString(stmt):
		m := ifThenRE.FindStringSubmatch(stmt)
		t.PushCondition("if ("+m[1]+")", line)
	case elseIfRE.MatchString(stmt):
		m := elseIfRE.FindStringSubmatch(stmt)
		t.PopCondition()
		t.PushCondition("elseif ("+m[1]+")", line)
	case elseRE.MatchString(stmt):
		t.PopCondition()
		t.PushCondition("else", line)
	case selectCaseRE.MatchString(stmt):
		m := selectCaseRE.FindStringSubmatch(stmt)
		t.PushCondition("select case ("+m[1]+")", line)
	case caseDefRE.MatchString(stmt):
		t.popCase()
		t.PushCondition("case default", line)
	case caseRE.MatchString(stmt):
		m := caseRE.FindStringSubmatch(stmt)
		t.popCase()
		t.PushCondition("case ("+m[1]+")", line)
	case endIfRE.MatchString(stmt):
		t.PopCondition()
	case endSelectRE.MatchString(stmt):
		for {
			top, ok := t.top()
			if !ok {
				break
			}
			t.PopCondition()
			if top.Type == "select" {
				break
			}
		}
	}
}

func (t *Tracker) popCase() {
	if top, ok := t.top(); ok && top.Type == "case" {
		t.PopCondition()
	}
}

func (t *Tracker) ioStatement(stmt string, line int) {
	if m := bareUnitRE.FindStringSubmatch(stmt); m != nil {
		t.Record(m[2], strings.ToLower(m[1]), stmt, line)
		return
	}
	m := ioStmtRE.FindStringSubmatch(stmt)
	if m == nil {
		return
	}
	unit := unitOf(stmt)
	switch strings.ToLower(m[1]) {
	case KindOpen:
		t.Start(unit, FilenameExpr(stmt), line)
		if r := reclRE.FindStringSubmatch(stmt); r != nil {
			t.Record(unit, KindMeta, "Record length: "+r[1], line)
		}
		t.Record(unit, KindOpen, stmt, line)
	case KindRead:
		if f := specifierValue(stmt, fmtRE); f != "" {
			t.Record(unit, KindMeta, "Format: "+f, line)
		}
		t.Record(unit, KindRead, stmt, line)
	case KindWrite:
		if f := specifierValue(stmt, fmtRE); f != "" {
			t.RecordOrCreate(unit, KindMeta, "Format: "+f, line)
		}
		t.RecordOrCreate(unit, KindWrite, stmt, line)
	case KindRewind:
		t.Record(unit, KindRewind, stmt, line)
	case KindBackspace:
		t.Record(unit, KindBackspace, stmt, line)
	case KindClose:
		t.Close(unit, stmt, line)
	}
}

// unitOf returns the unit of an I/O statement: the unit= or newunit=
// specifier when present, otherwise the first positional item.
func unitOf(stmt string) string {
	items := controlList(stmt)
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "unit", "newunit":
			return strings.TrimSpace(value)
		}
	}
	if len(items) == 0 || strings.Contains(items[0], "=") {
		return ""
	}
	return items[0]
}

// controlList splits the parenthesised control list following the
// statement keyword at its top-level commas.
func controlList(stmt string) []string {
	open := strings.IndexByte(stmt, '(')
	if open < 0 {
		return nil
	}
	var items []string
	var b strings.Builder
	depth := 0
	var quote byte
	flush := func() {
		if item := strings.TrimSpace(b.String()); item != "" {
			items = append(items, item)
		}
		b.Reset()
	}
	for i := open + 1; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				flush()
				return items
			}
			depth--
		case c == ',' && depth == 0:
			flush()
			continue
		}
		b.WriteByte(c)
	}
	flush()
	return items
}

// FilenameExpr returns the expression following file= in a control list.
func FilenameExpr(stmt string) string {
	return specifierValue(stmt, fileRE)
}

// specifierValue returns the value of a keyword specifier, ending at the
// next top-level comma or at the parenthesis closing the control list.
func specifierValue(stmt string, key *regexp.Regexp) string {
	loc := key.FindStringIndex(stmt)
	if loc == nil {
		return ""
	}
	var b strings.Builder
	depth := 0
	var quote byte
	for i := loc[1]; i < len(stmt); i++ {
		c := stmt[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			if depth == 0 {
				return strings.TrimSpace(b.String())
			}
			depth--
		case c == ',' && depth == 0:
			return strings.TrimSpace(b.String())
		}
		b.WriteByte(c)
	}
	return strings.TrimSpace(b.String())
}
