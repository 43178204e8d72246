package tui

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mattn/go-runewidth"
)

// queryErrorMarker prefixes the output of a failed query.
const queryErrorMarker = "Error"

// PrettyBody renders a response body for display. Valid JSON is indented
// with two spaces; anything else is returned verbatim.
func PrettyBody(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}

// FormatQueryResult renders the outcome of a query console run. Non-2xx
// statuses render the body under an error marker instead of as a result;
// a JSON string body is shown unquoted.
func FormatQueryResult(status int, body []byte) (text string, failed bool) {
	if status < 200 || status >= 300 {
		var msg string
		if err := json.Unmarshal(bytes.TrimSpace(body), &msg); err == nil {
			return queryErrorMarker + "\n" + msg, true
		}
		return queryErrorMarker + "\n" + PrettyBody(body), true
	}
	return PrettyBody(body), false
}

// wrapText wraps text to fit within width terminal cells, preferring to
// break at spaces. Full-width characters are measured with runewidth.
func wrapText(text string, width int) []string {
	if width <= 0 {
		width = 80
	}

	var result []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.ReplaceAll(line, "\t", "    ")
		line = strings.TrimRight(line, "\r")
		if runewidth.StringWidth(line) <= width {
			result = append(result, line)
			continue
		}

		runes := []rune(line)
		for len(runes) > 0 {
			currentWidth := 0
			breakAt := 0
			lastSpace := -1

			for i, r := range runes {
				rw := runewidth.RuneWidth(r)
				if currentWidth+rw > width {
					break
				}
				currentWidth += rw
				breakAt = i + 1
				if r == ' ' {
					lastSpace = i
				}
			}

			if lastSpace > breakAt/2 && breakAt < len(runes) {
				breakAt = lastSpace
			}
			if breakAt == 0 {
				breakAt = 1
			}

			result = append(result, string(runes[:breakAt]))
			runes = runes[breakAt:]

			for len(runes) > 0 && runes[0] == ' ' {
				runes = runes[1:]
			}
		}
	}
	return result
}
