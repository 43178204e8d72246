package tui

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/wesm/suitedash/internal/records"
	"github.com/wesm/suitedash/internal/remote"
)

// colorProfileMu serializes tests that mutate the global lipgloss color profile.
var colorProfileMu sync.Mutex

// forceColorProfile sets lipgloss to ANSI color output for tests that assert
// on styled output, restoring the original profile via t.Cleanup.
func forceColorProfile(t *testing.T) {
	t.Helper()
	colorProfileMu.Lock()
	orig := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.ANSI)
	t.Cleanup(func() {
		lipgloss.SetColorProfile(orig)
		colorProfileMu.Unlock()
	})
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

// mockBackend is an in-memory Backend. Function fields override the
// canned data.
type mockBackend struct {
	mu sync.Mutex

	lists   map[string][]records.Record
	listErr map[string]error
	detail  *records.BuilderDetail
	query   *remote.QueryResponse

	ListFunc   func(domain string) ([]records.Record, error)
	DetailFunc func(id string) (*records.BuilderDetail, error)
	QueryFunc  func(soql string, tooling bool) (*remote.QueryResponse, error)
	ReportErr  error

	listCalls   []string
	detailCalls []string
	queryCalls  []string
	reports     []records.ErrorReport
}

func (b *mockBackend) ListRecords(_ context.Context, domain string) ([]records.Record, int, error) {
	b.mu.Lock()
	b.listCalls = append(b.listCalls, domain)
	fn, recs, err := b.ListFunc, b.lists[domain], b.listErr[domain]
	b.mu.Unlock()

	if fn != nil {
		recs, err = fn(domain)
	}
	return recs, len(recs), err
}

func (b *mockBackend) BuilderDetail(_ context.Context, id string) (*records.BuilderDetail, error) {
	b.mu.Lock()
	b.detailCalls = append(b.detailCalls, id)
	fn, d := b.DetailFunc, b.detail
	b.mu.Unlock()

	if fn != nil {
		return fn(id)
	}
	if d == nil {
		d = &records.BuilderDetail{Divisions: []records.Record{}}
	}
	return d, nil
}

func (b *mockBackend) RunQuery(_ context.Context, soql string, tooling bool) (*remote.QueryResponse, error) {
	b.mu.Lock()
	b.queryCalls = append(b.queryCalls, soql)
	fn, resp := b.QueryFunc, b.query
	b.mu.Unlock()

	if fn != nil {
		return fn(soql, tooling)
	}
	if resp == nil {
		resp = &remote.QueryResponse{Status: 200, Body: []byte(`{}`)}
	}
	return resp, nil
}

func (b *mockBackend) ReportError(_ context.Context, report records.ErrorReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports = append(b.reports, report)
	return b.ReportErr
}

func (b *mockBackend) calls() (lists, details, queries []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.listCalls...),
		append([]string(nil), b.detailCalls...),
		append([]string(nil), b.queryCalls...)
}

func (b *mockBackend) reported() []records.ErrorReport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]records.ErrorReport(nil), b.reports...)
}

func scenarioBuilders() []records.Record {
	return []records.Record{
		{"Id": "1", "Name": "Acme", "City": "Reno", "State": "NV"},
		{"Id": "2", "Name": "Zenith", "City": "Reno", "State": "NV"},
	}
}

func testHomes() []records.Record {
	return []records.Record{
		{"Id": "h1", "Name": "Lot 12", "Address": "12 Sage Ct", "Community": "Sagebrush", "Builder": "Acme", "Battery": true, "SystemSize": 7.2},
		{"Id": "h2", "Name": "Lot 14", "Address": "14 Sage Ct", "Community": "Sagebrush", "Builder": "Acme", "Battery": false},
	}
}

func newTestBackend() *mockBackend {
	return &mockBackend{lists: map[string][]records.Record{
		records.Homes:    testHomes(),
		records.Builders: scenarioBuilders(),
	}}
}

// newTestModel returns a sized model whose initial Homes load has been
// applied.
func newTestModel(t *testing.T, b *mockBackend) Model {
	t.Helper()
	m := New(b, Options{Version: "test", UserAgent: "suitedash/test (linux/amd64)"})
	m.now = func() time.Time { return time.Date(2025, 10, 2, 10, 0, 0, 0, time.UTC) }
	m, _ = sendMsg(t, m, tea.WindowSizeMsg{Width: 100, Height: 24})
	return settle(t, m, m.Init())
}

// sendKey sends a key message to the model and returns the updated concrete Model.
func sendKey(t *testing.T, m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(k)
	return newM.(Model), cmd
}

// sendMsg sends any tea.Msg through Update and returns the concrete Model.
func sendMsg(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	newM, cmd := m.Update(msg)
	return newM.(Model), cmd
}

// cmdWait bounds how long collect waits on one command. Timers such as the
// spinner and the cursor blink are dropped.
const cmdWait = 200 * time.Millisecond

// collect runs cmd, flattening batches, and returns the messages produced.
func collect(t *testing.T, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	var msg tea.Msg
	select {
	case msg = <-ch:
	case <-time.After(cmdWait):
		return nil
	}

	switch msg := msg.(type) {
	case nil, spinnerTickMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(t, c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

// settle runs cmd and feeds every resulting message back through Update
// until nothing is left.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		var next []tea.Cmd
		for _, msg := range collect(t, cmd) {
			var c tea.Cmd
			m, c = sendMsg(t, m, msg)
			next = append(next, c)
		}
		cmd = tea.Batch(next...)
	}
	return m
}

// press sends k and settles the commands it returns.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	m, cmd := sendKey(t, m, k)
	return settle(t, m, cmd)
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func typeText(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyEnter() tea.KeyMsg    { return tea.KeyMsg{Type: tea.KeyEnter} }
func keyEsc() tea.KeyMsg      { return tea.KeyMsg{Type: tea.KeyEscape} }
func keyTab() tea.KeyMsg      { return tea.KeyMsg{Type: tea.KeyTab} }
func keyShiftTab() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyShiftTab} }
func keyDown() tea.KeyMsg     { return tea.KeyMsg{Type: tea.KeyDown} }

// gotoSection presses tab until title is active.
func gotoSection(t *testing.T, m Model, title string) Model {
	t.Helper()
	for i := 0; i < len(m.nav.sections); i++ {
		if m.nav.current().title == title {
			return m
		}
		m = press(t, m, keyTab())
	}
	t.Fatalf("section %q not found", title)
	return m
}

// renderPlain renders the full screen without escape codes.
func renderPlain(m Model) string {
	return stripANSI(m.View())
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func assertNotContains(t *testing.T, out string, unwanted ...string) {
	t.Helper()
	for _, w := range unwanted {
		if strings.Contains(out, w) {
			t.Errorf("output unexpectedly contains %q:\n%s", w, out)
		}
	}
}
