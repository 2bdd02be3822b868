package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	fderrors "fortdoc/internal/core/errors"
	"fortdoc/internal/engine/crosswalk"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/project"
)

// Warnings listed per code before the rest are elided.
const maxListed = 5

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	warnColor   = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed, color.Bold)
)

// Summary is the terminal view of one build.
type Summary struct {
	Project         string
	Files           int
	Modules         int
	Submodules      int
	Procedures      int
	Programs        int
	Types           int
	Lines           project.LineStats
	IOSessions      int
	OpenSessions    int
	UnresolvedUses  []string
	UnresolvedCalls int
	Warnings        map[fderrors.ErrorCode][]string
	Duration        time.Duration
}

func NewSummary(p *project.Project, sessions []crosswalk.IOSession, took time.Duration) Summary {
	s := Summary{
		Project:    p.Name,
		Files:      len(p.Files),
		Modules:    len(p.Modules),
		Submodules: len(p.Submodules),
		Procedures: len(p.Procedures),
		Programs:   len(p.Programs),
		Types:      len(p.Types),
		Lines:      p.Stats,
		IOSessions: len(sessions),
		Warnings:   make(map[fderrors.ErrorCode][]string),
		Duration:   took,
	}

	unresolved := make(map[string]struct{})
	for _, f := range p.Files {
		model.Walk(f, func(e model.Entity) bool {
			if body := model.BodyOf(e); body != nil {
				for _, u := range body.Uses {
					if u.Module == nil {
						unresolved[strings.ToLower(u.Name)] = struct{}{}
					}
				}
			}
			if ex := model.ExecOf(e); ex != nil {
				s.OpenSessions += ex.Stragglers
				for _, c := range ex.Calls {
					if !c.Resolved() {
						s.UnresolvedCalls++
					}
				}
			}
			return true
		})
	}
	for name := range unresolved {
		s.UnresolvedUses = append(s.UnresolvedUses, name)
	}
	sort.Strings(s.UnresolvedUses)

	for _, w := range p.Warnings {
		code, ok := fderrors.CodeOf(w)
		if !ok {
			code = fderrors.CodeInternal
		}
		s.Warnings[code] = append(s.Warnings[code], w.Error())
	}
	return s
}

// WarningCount totals the warnings of every code.
func (s Summary) WarningCount() int {
	n := 0
	for _, ws := range s.Warnings {
		n += len(ws)
	}
	return n
}

// PrintSummary writes s to w. Colour follows color.NoColor.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintln(w, strings.Repeat("-", 40))
	headerColor.Fprintf(w, "%s: %d files in %v\n", s.Project, s.Files, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "   modules %d, submodules %d, programs %d, procedures %d, types %d\n",
		s.Modules, s.Submodules, s.Programs, s.Procedures, s.Types)
	fmt.Fprintf(w, "   lines: files %d, modules %d, procedures %d, types %d\n",
		s.Lines.Files, s.Lines.Modules, s.Lines.Procedures, s.Lines.TypesAll)

	if s.IOSessions > 0 {
		fmt.Fprintf(w, "   I/O sessions: %d", s.IOSessions)
		if s.OpenSessions > 0 {
			warnColor.Fprintf(w, " (%d never closed)", s.OpenSessions)
		}
		fmt.Fprintln(w)
	}

	if len(s.UnresolvedUses) > 0 {
		warnColor.Fprintf(w, "FOUND %d UNRESOLVED MODULES:\n", len(s.UnresolvedUses))
		fmt.Fprintf(w, "   %s\n", strings.Join(s.UnresolvedUses, ", "))
	} else {
		okColor.Fprintln(w, "All used modules resolved.")
	}
	if s.UnresolvedCalls > 0 {
		warnColor.Fprintf(w, "%d calls could not be resolved.\n", s.UnresolvedCalls)
	}

	codes := make([]string, 0, len(s.Warnings))
	for code := range s.Warnings {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)
	for _, code := range codes {
		ws := s.Warnings[fderrors.ErrorCode(code)]
		c := warnColor
		if code == string(fderrors.CodeStructural) || code == string(fderrors.CodeLiteral) {
			c = errColor
		}
		c.Fprintf(w, "%d %s:\n", len(ws), code)
		for i, msg := range ws {
			if i == maxListed {
				fmt.Fprintf(w, "   ... %d more\n", len(ws)-maxListed)
				break
			}
			fmt.Fprintf(w, "   %s\n", msg)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 40))
}
