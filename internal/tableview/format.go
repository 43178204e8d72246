package tableview

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// PadRight pads s with spaces to fill width terminal cells, truncating when
// it is wider. ANSI sequences and full-width characters are measured
// correctly.
func PadRight(s string, width int) string {
	if width <= 0 {
		return ""
	}
	sw := lipgloss.Width(s)
	if sw >= width {
		return ansi.Truncate(s, width, "")
	}
	return s + strings.Repeat(" ", width-sw)
}

// TruncateRunes truncates s to fit within maxWidth terminal cells, replacing
// line breaks and tabs so a value can never break the row layout.
func TruncateRunes(s string, maxWidth int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\t", " ")

	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// applyHighlight wraps every case-insensitive occurrence of term in text with
// highlightStyle. It works on runes so that case folding which changes byte
// length cannot misalign the match offsets.
func applyHighlight(text, term string) string {
	term = strings.TrimSpace(term)
	if term == "" || text == "" {
		return text
	}
	textRunes := []rune(text)
	lowerRunes := []rune(strings.ToLower(text))
	termRunes := []rune(strings.ToLower(term))
	if len(lowerRunes) != len(textRunes) {
		return text
	}

	var sb strings.Builder
	prev := 0
	n := len(termRunes)
	for i := 0; i <= len(lowerRunes)-n; i++ {
		if !runesEqual(lowerRunes[i:i+n], termRunes) {
			continue
		}
		sb.WriteString(string(textRunes[prev:i]))
		sb.WriteString(highlightStyle.Render(string(textRunes[i : i+n])))
		prev = i + n
		i += n - 1
	}
	if prev == 0 {
		return text
	}
	sb.WriteString(string(textRunes[prev:]))
	return sb.String()
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
