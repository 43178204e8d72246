package tableview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wesm/suitedash/internal/records"
)

// Monochrome theme, adaptive for light and dark terminals.
var (
	bgBase   = lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}
	bgAlt    = lipgloss.AdaptiveColor{Light: "#f0f0f0", Dark: "#181818"}
	bgCursor = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#282828"}

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	separatorStyle = lipgloss.NewStyle().
			Faint(true).
			Background(bgBase)

	cursorRowStyle = lipgloss.NewStyle().
			Background(bgCursor)

	// The row whose detail panel is open.
	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Background(bgBase)

	normalRowStyle = lipgloss.NewStyle().
			Background(bgBase)

	altRowStyle = lipgloss.NewStyle().
			Background(bgAlt)

	selectedIndicatorStyle = lipgloss.NewStyle().
				Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#999999"}).
			Background(bgBase).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Background(bgBase)

	loadingStyle = lipgloss.NewStyle().
			Italic(true).
			Background(bgBase)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#000000"}).
			Background(lipgloss.AdaptiveColor{Light: "#e8d44d", Dark: "#e8d44d"}).
			Bold(true)
)

const (
	indicatorWidth = 3
	minFlexWidth   = 6
)

// SortIndicator returns the header suffix for column: an arrow on the active
// sort column, nothing elsewhere.
func (v *View) SortIndicator(column string) string {
	if v.sort.Column != column || column == "" {
		return ""
	}
	if v.sort.Dir == Desc {
		return "↓"
	}
	return "↑"
}

// Footer returns the count line shown under the table.
func (v *View) Footer() string {
	return fmt.Sprintf("Showing %d of %d %s", len(v.rows), len(v.all), v.cfg.Noun)
}

// EmptyMessage is shown instead of the table when the snapshot is empty.
func (v *View) EmptyMessage() string {
	return fmt.Sprintf("No %s found.", v.cfg.Noun)
}

// columnWidths assigns each column its fixed width and splits what is left
// among the flexible ones.
func (v *View) columnWidths(width int) []int {
	cols := v.cfg.Columns
	widths := make([]int, len(cols))
	if len(cols) == 0 {
		return widths
	}
	avail := width - indicatorWidth - (len(cols) - 1)

	fixed, flex := 0, 0
	for i, c := range cols {
		if c.Width > 0 {
			widths[i] = c.Width
			fixed += c.Width
		} else {
			flex++
		}
	}
	if flex == 0 {
		return widths
	}
	share := (avail - fixed) / flex
	if share < minFlexWidth {
		share = minFlexWidth
	}
	extra := avail - fixed - share*flex
	for i, c := range cols {
		if c.Width > 0 {
			continue
		}
		widths[i] = share
		if extra > 0 {
			widths[i]++
			extra--
		}
	}
	return widths
}

func (v *View) cell(r records.Record, c Column) string {
	if c.Value != nil {
		if s := c.Value(r); s != "" {
			return s
		}
		return records.Placeholder
	}
	return r.Display(c.Key)
}

// Render draws the table into exactly height lines of width cells. An error
// replaces the table; an empty snapshot shows a message and no footer.
func (v *View) Render(width, height int) string {
	if height < 1 {
		height = 1
	}
	var lines []string

	switch {
	case v.err != nil:
		lines = append(lines, errorStyle.Render(PadRight(fmt.Sprintf("Error: %v", v.err), width)))
	case v.loading && !v.loaded:
		lines = append(lines, loadingStyle.Render(PadRight(fmt.Sprintf("Loading %s...", v.cfg.Noun), width)))
	case len(v.all) == 0:
		lines = append(lines, normalRowStyle.Render(PadRight(v.EmptyMessage(), width)))
	default:
		lines = v.renderTable(width, height)
	}

	for len(lines) < height {
		lines = append(lines, normalRowStyle.Render(strings.Repeat(" ", max(width, 0))))
	}
	return strings.Join(lines[:height], "\n")
}

func (v *View) renderTable(width, height int) []string {
	widths := v.columnWidths(width)
	lines := make([]string, 0, height)

	header := make([]string, len(v.cfg.Columns))
	for i, c := range v.cfg.Columns {
		header[i] = PadRight(TruncateRunes(c.Label+v.SortIndicator(c.Key), widths[i]), widths[i])
	}
	lines = append(lines, tableHeaderStyle.Render(PadRight(strings.Repeat(" ", indicatorWidth)+strings.Join(header, " "), width)))
	lines = append(lines, separatorStyle.Render(strings.Repeat("─", max(width, 0))))

	// header, separator and footer
	pageSize := height - 3
	if pageSize < 1 {
		pageSize = 1
	}
	start := v.scrollStart(pageSize)
	end := min(start+pageSize, len(v.rows))

	if len(v.rows) == 0 {
		lines = append(lines, normalRowStyle.Render(PadRight(fmt.Sprintf("   No %s match %q", v.cfg.Noun, strings.TrimSpace(v.filter)), width)))
	}

	for i := start; i < end; i++ {
		r := v.rows[i]
		isCursor := i == v.cursor
		isSelected := v.selected != "" && v.ID(r) == v.selected

		var ind string
		switch {
		case isCursor && isSelected:
			ind = selectedIndicatorStyle.Render("▶● ")
		case isCursor:
			ind = cursorRowStyle.Render("▶  ")
		case isSelected:
			ind = selectedIndicatorStyle.Render(" ● ")
		default:
			ind = "   "
		}

		cells := make([]string, len(v.cfg.Columns))
		for j, c := range v.cfg.Columns {
			// Pad before highlighting so escape codes do not shift columns.
			s := PadRight(TruncateRunes(v.cell(r, c), widths[j]), widths[j])
			if containsField(v.cfg.SearchFields, c.Key) {
				s = applyHighlight(s, v.filter)
			}
			cells[j] = s
		}

		var style lipgloss.Style
		switch {
		case isCursor:
			style = cursorRowStyle
		case isSelected:
			style = selectedRowStyle
		case i%2 == 0:
			style = normalRowStyle
		default:
			style = altRowStyle
		}
		lines = append(lines, ind+style.Render(PadRight(strings.Join(cells, " "), width-indicatorWidth)))
	}

	for len(lines) < height-1 {
		lines = append(lines, normalRowStyle.Render(strings.Repeat(" ", max(width, 0))))
	}

	footer := v.Footer()
	if f := strings.TrimSpace(v.filter); f != "" {
		footer += fmt.Sprintf(" | filter: %q", f)
	}
	if v.loading {
		footer += " | refreshing..."
	}
	lines = append(lines, footerStyle.Render(PadRight(footer, width-2)))
	return lines
}

// scrollStart keeps the cursor inside a page of pageSize rows.
func (v *View) scrollStart(pageSize int) int {
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+pageSize {
		v.offset = v.cursor - pageSize + 1
	}
	if v.offset > len(v.rows)-pageSize {
		v.offset = max(len(v.rows)-pageSize, 0)
	}
	return v.offset
}

func containsField(fields []string, key string) bool {
	for _, f := range fields {
		if f == key {
			return true
		}
	}
	return false
}
