package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wesm/suitedash/internal/tableview"
)

// Monochrome theme - adaptive for light and dark terminals
var (
	bgBase = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}

	titleBarStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Underline(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"}).
			Background(lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#333333"}).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase)

	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Underline(true)

	labelStyle = lipgloss.NewStyle().
			Bold(true)

	normalStyle = lipgloss.NewStyle().
			Background(bgBase)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Background(bgBase)
)

const queryPrompt = "SOQL> "

// bodyHeight is the space between the title bar and the status line.
func (m Model) bodyHeight() int {
	return max(m.height-2, 1)
}

func (m Model) spinner() string {
	return spinnerFrames[m.spinnerFrame%len(spinnerFrames)]
}

// headerView renders the title bar with one tab per section.
func (m Model) headerView() string {
	title := "suitedash"
	if m.version != "" {
		title += " " + m.version
	}

	var tabs strings.Builder
	for i, s := range m.nav.sections {
		if i == m.nav.active {
			tabs.WriteString(activeTabStyle.Render(s.title))
		} else {
			tabs.WriteString(tabStyle.Render(s.title))
		}
	}

	left := titleBarStyle.Render(title)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(tabs.String())
	if gap < 1 {
		return tableview.PadRight(left+tabs.String(), m.width)
	}
	return left + tabs.String() + titleBarStyle.UnsetPadding().Render(strings.Repeat(" ", gap))
}

// bodyView renders the active section.
func (m Model) bodyView() string {
	h := m.bodyHeight()
	p := m.nav.current().pane
	if p == nil {
		return m.queryView(m.width, h)
	}
	return m.paneView(p, m.width, h)
}

// paneView renders a domain table, split with its detail panel when a
// record is selected.
func (m Model) paneView(p *pane, width, height int) string {
	if !p.detail.open || width < 40 {
		return p.view.Render(width, height)
	}

	tableWidth, panelWidth := splitWidths(width)
	table := strings.Split(p.view.Render(tableWidth, height), "\n")
	panel := m.detailPanel(p, panelWidth, height)

	sep := separatorStyle.Render("│")
	lines := make([]string, height)
	for i := range lines {
		lines[i] = table[i] + sep + panel[i]
	}
	return strings.Join(lines, "\n")
}

// splitWidths divides width between the table and the detail panel, leaving
// one column for the separator.
func splitWidths(width int) (table, panel int) {
	table = width * 55 / 100
	return table, width - table - 1
}

// detailPanel renders exactly height lines of width cells.
func (m Model) detailPanel(p *pane, width, height int) []string {
	title := "Home"
	if p.fetchesDetail() {
		title = "Builder"
	}
	header := labelStyle.Render(tableview.PadRight(fmt.Sprintf(" %s %s", title, p.detail.id), width-9)) +
		statusStyle.Render("esc close")

	body := p.detailLines(width-2, m.spinner())
	scroll := clampScroll(p.detail.scroll, len(body), height-1)

	lines := make([]string, 0, height)
	lines = append(lines, tableview.PadRight(header, width))
	for _, l := range body[scroll:] {
		if len(lines) == height {
			break
		}
		style := normalStyle
		if p.detail.err != nil {
			style = errorStyle
		}
		lines = append(lines, style.Render(tableview.PadRight(" "+l, width)))
	}
	for len(lines) < height {
		lines = append(lines, normalStyle.Render(strings.Repeat(" ", max(width, 0))))
	}
	return lines
}

// queryOutputLines is the console output wrapped to width.
func (m Model) queryOutputLines(width int) []string {
	if m.query.running {
		return []string{m.spinner() + " Running..."}
	}
	if m.query.output == "" {
		return nil
	}
	return wrapText(m.query.output, width)
}

// queryView renders the query console: prompt, mode line, separator and
// the scrollable output.
func (m Model) queryView(width, height int) string {
	mode := "REST API"
	if m.query.tooling {
		mode = "Tooling API"
	}

	lines := []string{
		tableview.PadRight(m.query.input.View(), width),
		statusStyle.Render(tableview.PadRight(fmt.Sprintf("Mode: %s (ctrl+t to switch)", mode), width)),
		separatorStyle.Render(strings.Repeat("─", max(width, 0))),
	}

	out := m.queryOutputLines(width)
	visible := height - len(lines)
	scroll := clampScroll(m.query.scroll, len(out), visible)
	for i, l := range out[scroll:] {
		if len(lines) == height {
			break
		}
		style := normalStyle
		switch {
		case m.query.running:
			style = loadingStyle
		case m.query.failed && i+scroll == 0:
			style = errorStyle
		}
		lines = append(lines, style.Render(tableview.PadRight(l, width)))
	}
	for len(lines) < height {
		lines = append(lines, normalStyle.Render(strings.Repeat(" ", max(width, 0))))
	}
	return strings.Join(lines[:height], "\n")
}

// footerView renders the status line: the filter bar when it is active,
// key hints otherwise.
func (m Model) footerView() string {
	if m.searchActive {
		return tableview.PadRight(m.searchInput.View(), m.width)
	}

	var hints string
	p := m.nav.current().pane
	switch {
	case p == nil:
		hints = "enter run │ ctrl+t api │ ↑/↓ scroll │ ctrl+l clear │ tab section │ ctrl+c quit"
	case p.detail.open:
		hints = "↑/↓ move │ enter open │ J/K scroll detail │ esc close │ 1-9 sort │ / filter │ r reload │ q quit"
	case p.view.Config().Selectable:
		hints = "↑/↓ move │ enter open │ 1-9 sort │ / filter │ r reload │ tab section │ q quit"
	default:
		hints = "↑/↓ move │ 1-9 sort │ / filter │ r reload │ tab section │ q quit"
	}
	return statusStyle.Render(tableview.PadRight(" "+hints, m.width))
}

// clampScroll limits scroll so that the last page of n lines stays full.
func clampScroll(scroll, n, visible int) int {
	return max(min(scroll, n-visible), 0)
}
