package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"fortdoc/internal/engine/model"
)

func handleKeyActions(msg tea.KeyMsg, m browser) (tea.Model, tea.Cmd) {
	filtering := m.entityList.FilterState() == list.Filtering || m.warningList.FilterState() == list.Filtering
	if !filtering {
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.mode == panelWarnings {
				m.mode = panelEntities
			} else {
				m.mode = panelWarnings
			}
			return m, nil
		}
	}

	if m.mode != panelEntities {
		var cmd tea.Cmd
		m.warningList, cmd = m.warningList.Update(msg)
		return m, cmd
	}

	if !filtering {
		switch msg.String() {
		case "enter":
			return openDetails(m), nil
		case "esc", "backspace":
			if m.hasDetails {
				m.hasDetails = false
				m.selected = nil
				return m, nil
			}
		case "o":
			target, ok := selectedSourceTarget(m)
			if !ok {
				m.sourceJumpStatus = statusStyle.Render("No source target available.")
				return m, nil
			}
			return m, jumpToSourceCmd(target)
		}
	}

	var cmd tea.Cmd
	m.entityList, cmd = m.entityList.Update(msg)
	return m, cmd
}

func openDetails(m browser) browser {
	it, ok := m.entityList.SelectedItem().(item)
	if !ok || it.entity == nil {
		return m
	}
	m.selected = it.entity
	m.hasDetails = true
	m.sourceJumpStatus = ""
	return m
}

type sourceTarget struct {
	file string
	line int
}

func selectedSourceTarget(m browser) (sourceTarget, bool) {
	e := m.selected
	if e == nil {
		it, ok := m.entityList.SelectedItem().(item)
		if !ok {
			return sourceTarget{}, false
		}
		e = it.entity
	}
	if e == nil {
		return sourceTarget{}, false
	}
	f := model.SourceFileOf(e)
	if f == nil || f.Path == "" {
		return sourceTarget{}, false
	}
	line := e.Base().Line
	if line < 1 {
		line = 1
	}
	return sourceTarget{file: f.Path, line: line}, true
}

func jumpToSourceCmd(target sourceTarget) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	args := []string{target.file}
	if strings.Contains(editor, "vim") || strings.Contains(editor, "nvim") || editor == "vi" || strings.HasSuffix(editor, "/vi") {
		args = []string{fmt.Sprintf("+%d", target.line), target.file}
	}
	cmd := exec.Command(editor, args...)
	label := fmt.Sprintf("%s:%d", target.file, target.line)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sourceJumpResultMsg{target: label, err: err}
	})
}
