package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"fortdoc/internal/core/app"
	"fortdoc/internal/engine/correlate"
	"fortdoc/internal/engine/model"
	"fortdoc/internal/engine/parser"
	"fortdoc/internal/engine/project"
	"fortdoc/internal/engine/reader"
)

const src = `module shapes
  !! Geometric shapes.
  use missing_mod
  implicit none
  type :: circle
    real :: r = 1.0
  end type circle
contains
  function area(c) result(a)
    type(circle) :: c
    real :: a
    a = 3.14 * c%r**2
  end function area
end module shapes
`

func testBuild(t *testing.T) *app.Build {
	t.Helper()
	ps := parser.New(parser.DefaultSettings(), nil)
	res, err := ps.Parse("shapes.f90", reader.New(src, ps.Settings().Reader), false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p := project.New("demo", nil)
	p.AddFile(res.File)
	if err := correlate.Run(context.Background(), p, correlate.DefaultOptions(), nil); err != nil {
		t.Fatalf("correlate: %v", err)
	}
	return &app.Build{Project: p}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m browser, msg tea.Msg) (browser, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	state, ok := updated.(browser)
	if !ok {
		t.Fatalf("expected browser type, got %T", updated)
	}
	return state, cmd
}

func TestBrowser_BuildAndPanelFlow(t *testing.T) {
	m := newBrowser()
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = send(t, m, updateMsg{build: testBuild(t)})

	if m.project != "demo" || m.fileCount != 1 || m.modules != 1 {
		t.Fatalf("unexpected header state: %+v", m)
	}
	items := m.entityList.Items()
	if len(items) < 3 {
		t.Fatalf("expected module, type and procedure items, got %d", len(items))
	}
	first := items[0].(item)
	if first.title != "shapes" || first.entity.Kind() != model.KindModule {
		t.Fatalf("expected the module first, got %q (%v)", first.title, first.entity.Kind())
	}
	if !strings.Contains(first.desc, "shapes.f90:1") || !strings.Contains(first.desc, "Geometric shapes.") {
		t.Fatalf("module description missing source or doc: %q", first.desc)
	}
	if len(m.warningList.Items()) == 0 {
		t.Fatal("expected the unresolved use to be listed as a warning")
	}

	m, _ = send(t, m, key("tab"))
	if m.mode != panelWarnings {
		t.Fatalf("expected warnings panel after tab, got %v", m.mode)
	}
	m, _ = send(t, m, key("tab"))
	if m.mode != panelEntities {
		t.Fatalf("expected entities panel after second tab, got %v", m.mode)
	}
}

func TestBrowser_DetailsAndSourceJump(t *testing.T) {
	m := newBrowser()
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = send(t, m, updateMsg{build: testBuild(t)})

	m, _ = send(t, m, key("enter"))
	if !m.hasDetails || m.selected == nil {
		t.Fatal("expected details after enter")
	}
	view := m.View()
	for _, want := range []string{"shapes.f90:1", "missing_mod", "unresolved", "circle", "area"} {
		if !strings.Contains(view, want) {
			t.Fatalf("details view missing %q:\n%s", want, view)
		}
	}

	target, ok := selectedSourceTarget(m)
	if !ok || target.file != "shapes.f90" || target.line != 1 {
		t.Fatalf("unexpected source target %+v (ok=%v)", target, ok)
	}
	if _, cmd := send(t, m, key("o")); cmd == nil {
		t.Fatal("expected a command for source jump")
	}

	m, _ = send(t, m, sourceJumpResultMsg{target: "shapes.f90:1"})
	if !strings.Contains(m.sourceJumpStatus, "Opened source") {
		t.Fatalf("unexpected jump status %q", m.sourceJumpStatus)
	}

	m, _ = send(t, m, key("esc"))
	if m.hasDetails {
		t.Fatal("expected esc to close details")
	}
}

func TestBrowser_NewBuildClearsDetails(t *testing.T) {
	m := newBrowser()
	m, _ = send(t, m, updateMsg{build: testBuild(t)})
	m, _ = send(t, m, key("enter"))
	m, _ = send(t, m, updateMsg{build: testBuild(t)})
	if m.hasDetails || m.selected != nil {
		t.Fatal("expected a new build to drop the stale selection")
	}
	m, _ = send(t, m, updateMsg{})
	if m.project != "demo" {
		t.Fatal("expected an empty update to keep the previous state")
	}
}

func TestBrowser_Quit(t *testing.T) {
	_, cmd := send(t, newBrowser(), key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}
