// Package reader turns raw Fortran source into logical statements.
//
// Each emitted Line is one statement with continuations joined, comments
// removed and labels kept. Documentation comments survive as separate lines
// of the form "!" + docmark + text, always placed after the statement they
// document, so consumers can read them with a single look-ahead.
package reader

import (
	"os"
	"strings"
)

// Line is one logical source line.
type Line struct {
	Text   string
	Number int
}

// Source is the contract the parser consumes.
type Source interface {
	Next() (Line, bool)
	PushBack(Line)
}

// Options control how physical lines are decoded.
type Options struct {
	Fixed            bool
	FixedLengthLimit bool
	Docmark          string
	Predocmark       string
	DocmarkAlt       string
	PredocmarkAlt    string
}

// DefaultOptions returns free-form options with the usual doc markers.
func DefaultOptions() Options {
	return Options{
		FixedLengthLimit: true,
		Docmark:          "!",
		Predocmark:       ">",
		DocmarkAlt:       "*",
		PredocmarkAlt:    "|",
	}
}

// Reader iterates over decoded statements. It is not safe for concurrent use.
type Reader struct {
	lines  []Line
	pos    int
	pushed []Line
}

// Open reads and decodes a file.
func Open(path string, opts Options) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(string(data), opts), nil
}

// New decodes src eagerly.
func New(src string, opts Options) *Reader {
	d := newDecoder(opts)
	physical := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	if opts.Fixed {
		physical = fixedToFree(physical, opts.FixedLengthLimit)
	}
	for i, raw := range physical {
		d.feed(raw, i+1)
	}
	d.flush()
	return &Reader{lines: d.out}
}

func (r *Reader) Next() (Line, bool) {
	if n := len(r.pushed); n > 0 {
		l := r.pushed[n-1]
		r.pushed = r.pushed[:n-1]
		return l, true
	}
	if r.pos >= len(r.lines) {
		return Line{}, false
	}
	l := r.lines[r.pos]
	r.pos++
	return l, true
}

// PushBack re-queues l so the next call to Next returns it.
func (r *Reader) PushBack(l Line) {
	r.pushed = append(r.pushed, l)
}

// Lines returns every decoded line without consuming the reader.
func (r *Reader) Lines() []Line {
	out := make([]Line, len(r.lines))
	copy(out, r.lines)
	return out
}

type docMode int

const (
	docNone docMode = iota
	docAfter
	docBefore
)

type decoder struct {
	opts Options
	out  []Line

	stmt      strings.Builder
	stmtLine  int
	continued bool
	quote     byte

	mode     docMode
	predoc   []Line
	trailing []Line
}

func newDecoder(opts Options) *decoder {
	def := DefaultOptions()
	if opts.Docmark == "" {
		opts.Docmark = def.Docmark
	}
	if opts.Predocmark == "" {
		opts.Predocmark = def.Predocmark
	}
	if opts.DocmarkAlt == "" {
		opts.DocmarkAlt = def.DocmarkAlt
	}
	if opts.PredocmarkAlt == "" {
		opts.PredocmarkAlt = def.PredocmarkAlt
	}
	return &decoder{opts: opts}
}

func (d *decoder) docLine(text string, number int) Line {
	return Line{Text: "!" + d.opts.Docmark + text, Number: number}
}

func (d *decoder) feed(raw string, number int) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		d.mode = docNone
		return
	}

	if strings.HasPrefix(trimmed, "!") && d.quote == 0 {
		d.comment(trimmed, number)
		return
	}
	d.mode = docNone

	if d.continued {
		trimmed = strings.TrimPrefix(trimmed, "&")
		if d.quote == 0 {
			trimmed = strings.TrimLeft(trimmed, " \t")
		}
	} else {
		d.stmtLine = number
	}

	code, comment, quote := splitComment(trimmed, d.quote)
	d.quote = quote
	if comment != "" {
		if doc, ok := strings.CutPrefix(comment, "!"+d.opts.Docmark); ok {
			d.trailing = append(d.trailing, d.docLine(doc, number))
		}
	}

	code = strings.TrimRight(code, " \t")
	if strings.HasSuffix(code, "&") {
		d.stmt.WriteString(strings.TrimSuffix(code, "&"))
		d.continued = true
		return
	}
	d.stmt.WriteString(code)
	d.continued = false
	d.quote = 0
	d.emit()
}

func (d *decoder) comment(trimmed string, number int) {
	body := trimmed[1:]
	switch {
	case strings.HasPrefix(body, d.opts.Docmark):
		d.mode = docNone
		d.trailing = append(d.trailing, d.docLine(body[len(d.opts.Docmark):], number))
	case strings.HasPrefix(body, d.opts.DocmarkAlt):
		d.mode = docAfter
		d.trailing = append(d.trailing, d.docLine(body[len(d.opts.DocmarkAlt):], number))
	case strings.HasPrefix(body, d.opts.Predocmark):
		d.mode = docNone
		d.predoc = append(d.predoc, d.docLine(body[len(d.opts.Predocmark):], number))
	case strings.HasPrefix(body, d.opts.PredocmarkAlt):
		d.mode = docBefore
		d.predoc = append(d.predoc, d.docLine(body[len(d.opts.PredocmarkAlt):], number))
	case d.mode == docAfter:
		d.trailing = append(d.trailing, d.docLine(body, number))
	case d.mode == docBefore:
		d.predoc = append(d.predoc, d.docLine(body, number))
	}
	// Outside a continued statement, trailing docs belong to whatever came before.
	if !d.continued && len(d.trailing) > 0 {
		d.out = append(d.out, d.trailing...)
		d.trailing = d.trailing[:0]
	}
}

func (d *decoder) emit() {
	text := d.stmt.String()
	d.stmt.Reset()
	for _, part := range splitStatements(text) {
		if part = strings.TrimSpace(part); part != "" {
			d.out = append(d.out, Line{Text: part, Number: d.stmtLine})
		}
	}
	d.out = append(d.out, d.predoc...)
	d.out = append(d.out, d.trailing...)
	d.predoc = d.predoc[:0]
	d.trailing = d.trailing[:0]
}

func (d *decoder) flush() {
	if d.stmt.Len() > 0 {
		d.continued = false
		d.emit()
	}
	d.out = append(d.out, d.trailing...)
	d.trailing = nil
}

// splitComment separates code from a trailing "!" comment. quote is the
// string delimiter still open from a previous continuation line, or 0.
func splitComment(s string, quote byte) (code, comment string, open byte) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				if i+1 < len(s) && s[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '!':
			return s[:i], strings.TrimSpace(s[i:]), 0
		}
	}
	return s, "", quote
}

func splitStatements(s string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ';':
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
