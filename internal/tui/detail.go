package tui

import (
	"fmt"
	"strings"

	"github.com/wesm/suitedash/internal/records"
	"github.com/wesm/suitedash/internal/tableview"
)

// detailField is one labeled line of a detail panel.
type detailField struct {
	label string
	key   string
	value func(records.Record) string // optional display override
}

func (f detailField) render(r records.Record) string {
	if f.value != nil {
		if s := f.value(r); s != "" {
			return s
		}
		return records.Placeholder
	}
	return r.Display(f.key)
}

// detailState is the detail panel of a selectable pane.
type detailState struct {
	open      bool
	id        string
	loading   bool
	err       error
	builder   *records.BuilderDetail
	requestID uint64
	scroll    int
}

// fetches reports whether the pane loads its detail from the backend rather
// than from the loaded record.
func (p *pane) fetchesDetail() bool {
	return p.domain == records.Builders
}

// detailLines renders the panel body for a pane as plain lines of at most
// width cells. spinner is the current spinner frame.
func (p *pane) detailLines(width int, spinner string) []string {
	if p.domain == records.Homes {
		return homeDetailLines(p.view, p.detail.id, width)
	}

	d := p.detail
	switch {
	case d.loading:
		return []string{spinner + " Loading builder..."}
	case d.err != nil:
		return wrapText(fmt.Sprintf("Error: %v", d.err), width)
	case d.builder == nil:
		return nil
	}
	return builderDetailLines(d.builder, width)
}

func homeDetailLines(v *tableview.View, id string, width int) []string {
	r, ok := v.Lookup(id)
	if !ok {
		return []string{"Home not found."}
	}
	lines := []string{sectionTitleStyle.Render("Home Details"), ""}
	return append(lines, fieldLines(homeDetailFields, r, width)...)
}

func builderDetailLines(d *records.BuilderDetail, width int) []string {
	lines := []string{sectionTitleStyle.Render("Builder Information"), ""}
	if d.BuilderInfo == nil {
		lines = append(lines, "Builder not found.")
	} else {
		lines = append(lines, fieldLines(builderInfoFields, d.BuilderInfo, width)...)
	}

	lines = append(lines, "", sectionTitleStyle.Render(fmt.Sprintf("Divisions (%d)", d.TotalSize)), "")
	if len(d.Divisions) == 0 {
		return append(lines, "No divisions found for this builder.")
	}
	return append(lines, divisionTable(d.Divisions, width)...)
}

// fieldLines renders "Label: value" pairs, wrapping long values under the
// value column.
func fieldLines(fields []detailField, r records.Record, width int) []string {
	labelWidth := 0
	for _, f := range fields {
		labelWidth = max(labelWidth, len(f.label)+1)
	}
	valueWidth := max(width-labelWidth-1, 10)

	var lines []string
	for _, f := range fields {
		wrapped := wrapText(f.render(r), valueWidth)
		for i, w := range wrapped {
			label := ""
			if i == 0 {
				label = f.label + ":"
			}
			lines = append(lines, labelStyle.Render(tableview.PadRight(label, labelWidth))+" "+w)
		}
	}
	return lines
}

func divisionTable(divs []records.Record, width int) []string {
	widths := make([]int, len(divisionColumns))
	fixed, gaps := 0, len(divisionColumns)-1
	for i, c := range divisionColumns {
		widths[i] = c.Width
		fixed += c.Width
	}
	widths[0] = max(width-fixed-gaps, 8)

	cells := func(get func(c tableview.Column) string) string {
		parts := make([]string, len(divisionColumns))
		for i, c := range divisionColumns {
			parts[i] = tableview.PadRight(tableview.TruncateRunes(get(c), widths[i]), widths[i])
		}
		return strings.Join(parts, " ")
	}

	lines := []string{
		labelStyle.Render(cells(func(c tableview.Column) string { return c.Label })),
		strings.Repeat("─", max(width, 0)),
	}
	for _, d := range divs {
		lines = append(lines, cells(func(c tableview.Column) string { return d.Display(c.Key) }))
	}
	return lines
}
