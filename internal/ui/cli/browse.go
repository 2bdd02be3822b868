// # internal/ui/cli/browse.go

// Package cli holds the terminal entity browser.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fortdoc/internal/core/app"
	"fortdoc/internal/engine/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#93C5FD")).
			Bold(true)
)

type item struct {
	title, desc string
	entity      model.Entity
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + " " + i.desc }

type panelMode int

const (
	panelEntities panelMode = iota
	panelWarnings
)

type browser struct {
	entityList  list.Model
	warningList list.Model
	mode        panelMode

	project    string
	fileCount  int
	modules    int
	warnings   int
	lastUpdate time.Time

	selected         model.Entity
	hasDetails       bool
	sourceJumpStatus string
}

type updateMsg struct {
	build *app.Build
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

func newBrowser() browser {
	entityList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	entityList.Title = "Entities"
	entityList.SetShowStatusBar(false)
	entityList.SetFilteringEnabled(true)

	warningList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	warningList.Title = "Warnings"
	warningList.SetShowStatusBar(false)
	warningList.SetFilteringEnabled(true)

	return browser{
		entityList:  entityList,
		warningList: warningList,
		mode:        panelEntities,
		lastUpdate:  time.Now(),
	}
}

func (m browser) Init() tea.Cmd {
	return nil
}

func (m browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.entityList.SetSize(width, height)
		m.warningList.SetSize(width, height)
	case updateMsg:
		m = m.applyBuild(msg.build)
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Source jump failed: %v", msg.err))
		} else {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Opened source: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	if m.mode == panelEntities {
		m.entityList, cmd = m.entityList.Update(msg)
	} else {
		m.warningList, cmd = m.warningList.Update(msg)
	}
	return m, cmd
}

func (m browser) applyBuild(b *app.Build) browser {
	if b == nil {
		return m
	}
	p := b.Project
	m.project = p.Name
	m.fileCount = len(p.Files)
	m.modules = len(p.Modules)
	m.warnings = len(p.Warnings)
	m.lastUpdate = time.Now()
	// Entities from the previous build are stale.
	m.selected = nil
	m.hasDetails = false

	var entities []model.Entity
	entities = append(entities, shown(p.Modules)...)
	entities = append(entities, shown(p.Submodules)...)
	entities = append(entities, shown(p.Programs)...)
	entities = append(entities, shown(p.Procedures)...)
	entities = append(entities, shown(p.Types)...)
	entities = append(entities, shown(p.AbsInterfaces)...)
	items := make([]list.Item, 0, len(entities))
	for _, e := range entities {
		items = append(items, entityItem(e))
	}
	m.entityList.SetItems(items)

	warnings := make([]list.Item, 0, len(p.Warnings))
	for _, w := range p.Warnings {
		title, desc, _ := strings.Cut(w.Error(), ": ")
		warnings = append(warnings, item{title: title, desc: desc})
	}
	m.warningList.SetItems(warnings)
	return m
}

func shown[T model.Entity](xs []T) []model.Entity {
	out := make([]model.Entity, 0, len(xs))
	for _, x := range xs {
		if !x.Base().Hidden {
			out = append(out, x)
		}
	}
	return out
}

func entityItem(e model.Entity) item {
	desc := e.Kind().String() + "  " + model.Path(e)
	if f := model.SourceFileOf(e); f != nil {
		desc += fmt.Sprintf("  %s:%d", f.Path, e.Base().Line)
	}
	if doc := firstDocLine(e); doc != "" {
		desc += "  " + doc
	}
	return item{title: e.Base().Name, desc: desc, entity: e}
}

func firstDocLine(e model.Entity) string {
	for _, l := range e.Base().Doc {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}

func (m browser) View() string {
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d modules",
		m.lastUpdate.Format("15:04:05"), m.fileCount, m.modules))

	summary := successStyle.Render("No warnings")
	if m.warnings > 0 {
		summary = warningStyle.Render(fmt.Sprintf("%d warnings", m.warnings))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("fortdoc: "+m.project), status, summary)
	help := statusStyle.Render("tab: switch panel | enter: details | esc: back | o: open source | q: quit")

	body := m.warningList.View()
	if m.mode == panelEntities {
		body = m.entityList.View()
		if m.hasDetails {
			body = renderDetails(m.selected)
		}
	}
	if m.sourceJumpStatus != "" {
		body += "\n\n" + m.sourceJumpStatus
	}
	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func renderDetails(e model.Entity) string {
	n := e.Base()
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(e.Kind().String()), model.Path(e))
	if f := model.SourceFileOf(e); f != nil {
		fmt.Fprintf(&b, "%s %s:%d (%d lines)\n", labelStyle.Render("source"), f.Path, n.Line, n.NumLines)
	}
	if n.Permission != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("permission"), n.Permission)
	}
	if len(n.Doc) > 0 {
		b.WriteString("\n" + strings.Join(n.Doc, "\n") + "\n")
	}

	if body := model.BodyOf(e); body != nil && len(body.Uses) > 0 {
		b.WriteString("\n" + labelStyle.Render("uses") + "\n")
		for _, u := range body.Uses {
			state := "resolved"
			if u.Module == nil {
				state = warningStyle.Render("unresolved")
			}
			fmt.Fprintf(&b, "   %s (%s)\n", u.Name, state)
		}
	}
	if ex := model.ExecOf(e); ex != nil && len(ex.Calls) > 0 {
		b.WriteString("\n" + labelStyle.Render("calls") + "\n")
		for _, c := range ex.Calls {
			target := warningStyle.Render("unresolved")
			if c.Target != nil {
				target = model.Path(c.Target)
			}
			fmt.Fprintf(&b, "   %s -> %s\n", strings.Join(c.Chain, "%"), target)
		}
	}

	children := shown(model.Children(e))
	if len(children) > 0 {
		b.WriteString("\n" + labelStyle.Render("contains") + "\n")
		for _, c := range children {
			fmt.Fprintf(&b, "   %-10s %s\n", c.Kind().String(), c.Base().Name)
		}
	}
	return b.String()
}
