package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// handleKeyPress routes a key to the active section.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	p := m.nav.current().pane
	if p == nil {
		return m.handleQueryKeys(msg)
	}
	if m.searchActive {
		return m.handleSearchKeys(p, msg)
	}
	return m.handleTableKeys(p, msg)
}

// handleSearchKeys handles keys while the inline filter bar is active. The
// filter is applied on every keystroke.
func (m Model) handleSearchKeys(p *pane, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchActive = false
		m.searchInput.Blur()
		return m, nil

	case "esc":
		m.searchActive = false
		m.searchInput.Blur()
		p.view.SetFilter(m.searchPrev)
		return m, nil

	default:
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		p.view.SetFilter(m.searchInput.Value())
		return m, cmd
	}
}

// handleTableKeys handles navigation, sorting and selection in a domain
// table.
func (m Model) handleTableKeys(p *pane, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pageSize := max(m.bodyHeight()-3, 1)

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "tab":
		return m.activate(m.nav.offset(1))
	case "shift+tab":
		return m.activate(m.nav.offset(-1))

	case "r":
		load := m.loadPane(p)
		spin := m.startSpinner()
		return m, tea.Batch(load, spin)

	case "/":
		m.searchActive = true
		m.searchPrev = p.view.Filter()
		m.searchInput.SetValue(p.view.Filter())
		m.searchInput.CursorEnd()
		cmd := m.searchInput.Focus()
		return m, cmd

	case "up", "k":
		p.view.MoveCursor(-1)
	case "down", "j":
		p.view.MoveCursor(1)
	case "pgup", "ctrl+u":
		p.view.MoveCursor(-pageSize)
	case "pgdown", "ctrl+d":
		p.view.MoveCursor(pageSize)
	case "home", "g":
		p.view.SetCursor(0)
	case "end", "G":
		p.view.SetCursor(len(p.view.Rows()) - 1)

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		p.view.ToggleSortIndex(int(msg.Runes[0] - '1'))

	case "enter":
		if !p.view.Config().Selectable {
			return m, nil
		}
		r, ok := p.view.CursorRecord()
		if !ok {
			return m, nil
		}
		return m.selectRecord(p, p.view.ID(r))

	case "esc":
		if p.detail.open {
			return m.closeDetail(p), nil
		}
		p.view.SetFilter("")

	case "J", "shift+down":
		if p.detail.open {
			_, panel := splitWidths(m.width)
			n := len(p.detailLines(panel-2, m.spinner()))
			p.detail.scroll = clampScroll(p.detail.scroll+1, n, m.bodyHeight()-1)
		}
	case "K", "shift+up":
		if p.detail.open && p.detail.scroll > 0 {
			p.detail.scroll--
		}
	}
	return m, nil
}

// handleQueryKeys handles the query console. Printable keys go to the
// input; everything else drives the console.
func (m Model) handleQueryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		return m.activate(m.nav.offset(1))
	case "shift+tab":
		return m.activate(m.nav.offset(-1))

	case "enter":
		run := m.runQuery()
		spin := m.startSpinner()
		return m, tea.Batch(run, spin)

	case "ctrl+t":
		m.query.tooling = !m.query.tooling
		return m, nil

	case "ctrl+l":
		m.query.output = ""
		m.query.failed = false
		m.query.scroll = 0
		return m, nil

	case "up", "pgup":
		step := 1
		if msg.String() == "pgup" {
			step = max(m.bodyHeight()-4, 1)
		}
		m.query.scroll = max(m.query.scroll-step, 0)
		return m, nil

	case "down", "pgdown":
		step := 1
		if msg.String() == "pgdown" {
			step = max(m.bodyHeight()-4, 1)
		}
		n := len(m.queryOutputLines(m.width))
		m.query.scroll = clampScroll(m.query.scroll+step, n, m.bodyHeight()-3)
		return m, nil

	default:
		var cmd tea.Cmd
		m.query.input, cmd = m.query.input.Update(msg)
		return m, cmd
	}
}
