// Package iotrack records file I/O performed by a Fortran procedure.
//
// A Tracker follows OPEN, READ, WRITE, REWIND, BACKSPACE and CLOSE statements
// per logical unit, together with the IF / SELECT CASE context they run in,
// and summarizes each file into header, index and data reads and writes.
package iotrack

import (
	"log/slog"
	"strings"
)

// Operation kinds.
const (
	KindOpen      = "open"
	KindRead      = "read"
	KindWrite     = "write"
	KindRewind    = "rewind"
	KindBackspace = "backspace"
	KindClose     = "close"
	KindMeta      = "meta"
)

// UnknownFile is the key used for sessions whose file expression is missing.
const UnknownFile = "<unknown>"

// Condition is the innermost control construct active when an operation ran.
type Condition struct {
	Text string `json:"text"`
	Type string `json:"type"`
	Line int    `json:"line"`
}

type Operation struct {
	Kind      string     `json:"kind"`
	Raw       string     `json:"raw"`
	Line      int        `json:"line"`
	Condition *Condition `json:"condition"`
}

// Session is the life of one unit between OPEN and CLOSE.
type Session struct {
	Unit       string
	File       string
	Line       int
	Closed     bool
	Operations []Operation
}

func (s *Session) add(kind, raw string, line int, cond *Condition) {
	s.Operations = append(s.Operations, Operation{
		Kind:      kind,
		Raw:       strings.TrimSpace(raw),
		Line:      line,
		Condition: cond,
	})
}

// Tracker is owned by a single procedure while it is being parsed.
type Tracker struct {
	open       map[string]*Session
	openOrder  []string
	completed  []*Session
	files      map[string]map[string]struct{}
	stragglers []*Session
	conditions []Condition
	logger     *slog.Logger
}

func New(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		open:   make(map[string]*Session),
		files:  make(map[string]map[string]struct{}),
		logger: logger,
	}
}

// Start opens a session on unit, archiving a session already open there.
func (t *Tracker) Start(unit, file string, line int) {
	if old, ok := t.open[unit]; ok {
		t.archive(unit, old)
	}
	t.open[unit] = &Session{Unit: unit, File: file, Line: line}
	t.openOrder = append(t.openOrder, unit)
	if file != "" {
		key := NormalizeKey(file)
		if t.files[key] == nil {
			t.files[key] = make(map[string]struct{})
		}
		t.files[key][unit] = struct{}{}
	}
}

// Record appends an operation to the session open on unit; it is a no-op
// for units that were never opened.
func (t *Tracker) Record(unit, kind, raw string, line int) {
	if sess, ok := t.open[unit]; ok {
		sess.add(kind, raw, line, t.Current())
	}
}

// RecordOrCreate is Record, except that an unopened unit gets an implicit
// session named unit_<N>. Pre-connected units are commonly written to
// without an OPEN.
func (t *Tracker) RecordOrCreate(unit, kind, raw string, line int) {
	if unit == "" {
		return
	}
	sess, ok := t.open[unit]
	if !ok {
		sess = &Session{Unit: unit, File: "unit_" + unit, Line: line}
		t.open[unit] = sess
		t.openOrder = append(t.openOrder, unit)
	}
	sess.add(kind, raw, line, t.Current())
}

// Close records the close operation and archives the session.
func (t *Tracker) Close(unit, raw string, line int) {
	sess, ok := t.open[unit]
	if !ok {
		return
	}
	sess.add(KindClose, raw, line, t.Current())
	sess.Closed = true
	t.archive(unit, sess)
}

func (t *Tracker) archive(unit string, sess *Session) {
	delete(t.open, unit)
	for i, u := range t.openOrder {
		if u == unit {
			t.openOrder = append(t.openOrder[:i], t.openOrder[i+1:]...)
			break
		}
	}
	t.completed = append(t.completed, sess)
}

// Finalize archives every still-open session as a straggler and returns them.
func (t *Tracker) Finalize() []*Session {
	if len(t.openOrder) == 0 {
		return nil
	}
	var stragglers []*Session
	for _, unit := range append([]string(nil), t.openOrder...) {
		sess := t.open[unit]
		stragglers = append(stragglers, sess)
		t.archive(unit, sess)
	}
	t.stragglers = append(t.stragglers, stragglers...)
	pairs := make([]string, 0, len(stragglers))
	for _, s := range stragglers {
		pairs = append(pairs, s.Unit+":"+s.File)
	}
	t.logger.Warn("unclosed io sessions", "sessions", pairs)
	return stragglers
}

// Stragglers returns the sessions Finalize had to close.
func (t *Tracker) Stragglers() []*Session {
	return t.stragglers
}

// Sessions returns archived sessions in archive order.
func (t *Tracker) Sessions() []*Session {
	return t.completed
}

// Units returns the units that opened the normalized file key, as a set.
func (t *Tracker) Units(file string) map[string]struct{} {
	return t.files[file]
}

// PushCondition enters a control construct.
func (t *Tracker) PushCondition(text string, line int) {
	text = strings.TrimSpace(text)
	t.conditions = append(t.conditions, Condition{Text: text, Type: conditionType(text), Line: line})
}

// PopCondition leaves the innermost control construct.
func (t *Tracker) PopCondition() {
	if n := len(t.conditions); n > 0 {
		t.conditions = t.conditions[:n-1]
	}
}

// Current returns a copy of the innermost condition, or nil.
func (t *Tracker) Current() *Condition {
	n := len(t.conditions)
	if n == 0 {
		return nil
	}
	c := t.conditions[n-1]
	return &c
}

// Depth is the number of active control constructs.
func (t *Tracker) Depth() int {
	return len(t.conditions)
}

func (t *Tracker) top() (Condition, bool) {
	n := len(t.conditions)
	if n == 0 {
		return Condition{}, false
	}
	return t.conditions[n-1], true
}

func conditionType(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.HasPrefix(lower, "if"):
		return "if"
	case strings.HasPrefix(lower, "select"):
		return "select"
	case strings.HasPrefix(lower, "case"):
		return "case"
	case strings.HasPrefix(lower, "else"):
		return "else"
	case strings.HasPrefix(lower, "do"):
		return "do"
	}
	return "unknown"
}
