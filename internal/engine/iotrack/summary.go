package iotrack

import (
	"regexp"
	"slices"
	"strings"
)

// Columns is one distinct column signature and how often it occurred.
type Columns struct {
	Columns []string `json:"columns"`
	Rows    int      `json:"rows"`
}

type Summary struct {
	Unit         string    `json:"unit"`
	Headers      []string  `json:"headers"`
	IndexReads   []string  `json:"index_reads"`
	DataReads    []Columns `json:"data_reads"`
	HeaderWrites []string  `json:"header_writes"`
	DataWrites   []Columns `json:"data_writes"`
}

// FileIO is the summary and raw timeline for one normalized file key.
type FileIO struct {
	Summary  Summary     `json:"summary"`
	Timeline []Operation `json:"timeline"`
}

// Report maps normalized file keys to their I/O.
type Report map[string]FileIO

var wrapperRE = regexp.MustCompile(`(?i)^(?:trim|adjustl)\s*\(\s*(.+)\s*\)$`)

var headerNames = []string{"titldum", "header"}

// NormalizeKey collapses TRIM/ADJUSTL wrappers and // concatenation so that
// "TRIM(ADJUSTL(dir))//name" and "name" share a key. It is a textual
// heuristic and does not evaluate expressions.
func NormalizeKey(fname string) string {
	f := strings.Trim(strings.TrimSpace(fname), `"'`)
	if f == "" {
		return UnknownFile
	}
	if i := strings.LastIndex(f, "//"); i >= 0 {
		f = strings.TrimSpace(f[i+2:])
		f = strings.Trim(f, `"'`)
	}
	if m := wrapperRE.FindStringSubmatch(f); m != nil {
		return NormalizeKey(m[1])
	}
	if f == "" {
		return UnknownFile
	}
	return f
}

func sessionKey(s *Session) string {
	key := NormalizeKey(s.File)
	if key == UnknownFile && s.Unit != "" {
		key = "unit_" + s.Unit
	}
	return key
}

type signature struct {
	cols  []string
	count int
}

type builder struct {
	summary    Summary
	dataReads  []*signature
	dataWrites []*signature
	timeline   []Operation
}

// Summarize classifies every archived session. Call Finalize first so that
// unclosed sessions are included.
func (t *Tracker) Summarize() Report {
	byKey := make(map[string]*builder)
	var order []string
	for _, sess := range t.completed {
		key := sessionKey(sess)
		b, ok := byKey[key]
		if !ok {
			b = &builder{summary: Summary{Unit: sess.Unit}}
			byKey[key] = b
			order = append(order, key)
		}
		b.timeline = append(b.timeline, sess.Operations...)
		for _, op := range sess.Operations {
			if op.Kind != KindRead && op.Kind != KindWrite {
				continue
			}
			cols, ok := ColumnList(op.Raw)
			if !ok {
				continue
			}
			b.classify(op.Kind, cols)
		}
	}

	report := make(Report, len(order))
	for _, key := range order {
		report[key] = byKey[key].finish()
	}
	return report
}

func (b *builder) classify(kind string, cols []string) {
	if kind == KindRead {
		if len(cols) == 1 {
			single := cols[0]
			switch {
			case single == "i":
				b.summary.IndexReads = appendUnique(b.summary.IndexReads, single)
			case slices.Contains(headerNames, strings.ToLower(single)):
				b.summary.Headers = appendUnique(b.summary.Headers, single)
			case strings.ContainsAny(single, "(%"):
				b.dataReads = addSignature(b.dataReads, cols)
			default:
				b.summary.Headers = appendUnique(b.summary.Headers, single)
			}
			return
		}
		b.dataReads = addSignature(b.dataReads, cols)
		return
	}
	if len(cols) == 1 && slices.Contains(headerNames, strings.ToLower(cols[0])) {
		b.summary.HeaderWrites = appendUnique(b.summary.HeaderWrites, cols[0])
		return
	}
	b.dataWrites = addSignature(b.dataWrites, cols)
}

func (b *builder) finish() FileIO {
	s := b.summary
	s.Headers = nonNil(s.Headers)
	s.IndexReads = nonNil(s.IndexReads)
	s.HeaderWrites = nonNil(s.HeaderWrites)
	s.DataReads = collapse(b.dataReads)
	s.DataWrites = collapse(b.dataWrites)
	timeline := b.timeline
	if timeline == nil {
		timeline = []Operation{}
	}
	return FileIO{Summary: s, Timeline: timeline}
}

func addSignature(sigs []*signature, cols []string) []*signature {
	for _, s := range sigs {
		if slices.Equal(s.cols, cols) {
			s.count++
			return sigs
		}
	}
	return append(sigs, &signature{cols: cols, count: 1})
}

func collapse(sigs []*signature) []Columns {
	out := make([]Columns, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, Columns{Columns: s.cols, Rows: s.count})
	}
	return out
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// ColumnList returns the I/O list following the control list of a READ or
// WRITE statement, split on top-level commas with one layer of enclosing
// parentheses removed from each item.
func ColumnList(raw string) ([]string, bool) {
	depth := 0
	end := -1
	var quote byte
	for i := 0; i < len(raw) && end < 0; i++ {
		c := raw[i]
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
			depth--
			if depth == 0 {
				end = i
			}
		}
	}
	if end < 0 || end+1 >= len(raw) {
		return nil, false
	}
	rest := strings.TrimSpace(raw[end+1:])
	if rest == "" {
		return nil, false
	}

	var cols []string
	var buf strings.Builder
	depth = 0
	quote = 0
	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case c == ',' && depth == 0:
			cols = append(cols, buf.String())
			buf.Reset()
			continue
		}
		buf.WriteByte(c)
	}
	if strings.TrimSpace(buf.String()) != "" {
		cols = append(cols, buf.String())
	}

	clean := make([]string, 0, len(cols))
	for _, c := range cols {
		c = strings.TrimSpace(c)
		if strings.HasPrefix(c, "(") && strings.HasSuffix(c, ")") {
			c = strings.TrimSpace(c[1 : len(c)-1])
		}
		clean = append(clean, c)
	}
	return clean, len(clean) > 0
}
