// Package tui provides the terminal dashboard for suitedash.
package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wesm/suitedash/internal/records"
	"github.com/wesm/suitedash/internal/remote"
)

// Backend is the fetch boundary the dashboard reads through.
// *remote.Client implements it.
type Backend interface {
	Reporter
	ListRecords(ctx context.Context, domain string) ([]records.Record, int, error)
	BuilderDetail(ctx context.Context, id string) (*records.BuilderDetail, error)
	RunQuery(ctx context.Context, soql string, tooling bool) (*remote.QueryResponse, error)
}

// Options configuration for the TUI.
type Options struct {
	Version      string
	UserAgent    string // sent with error reports
	DefaultQuery string // pre-filled in the query console
	Logger       *slog.Logger
}

// queryConsole is the state of the Query section.
type queryConsole struct {
	input     textinput.Model
	tooling   bool
	running   bool
	output    string
	failed    bool
	scroll    int
	requestID uint64
}

// Model is the main TUI model following the Elm architecture.
type Model struct {
	backend Backend
	nav     navShell

	version   string
	userAgent string
	logger    *slog.Logger
	now       func() time.Time

	// Terminal dimensions
	width  int
	height int

	// Inline filter bar for the active table
	searchActive bool
	searchInput  textinput.Model
	searchPrev   string // filter to restore when the bar is cancelled

	query queryConsole

	spinnerFrame  int
	spinnerActive bool

	quitting bool
}

// New creates a new TUI model. Homes is the initial section and is loaded
// by Init.
func New(backend Backend, opts Options) Model {
	search := textinput.New()
	search.Prompt = "/"
	search.Placeholder = "filter"
	search.CharLimit = 200
	search.Width = 40

	soql := textinput.New()
	soql.Prompt = queryPrompt
	soql.Placeholder = "SELECT Id, Name FROM Account LIMIT 10"
	soql.CharLimit = 4000
	soql.SetValue(opts.DefaultQuery)

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return Model{
		backend:       backend,
		nav:           newNavShell(defaultSections(), 0),
		version:       opts.Version,
		userAgent:     opts.UserAgent,
		logger:        logger,
		now:           time.Now,
		searchInput:   search,
		query:         queryConsole{input: soql},
		spinnerActive: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	var load tea.Cmd
	if p := m.nav.activate(m.nav.active); p != nil {
		load = m.loadPane(p)
	}
	return tea.Batch(load, spinnerTick())
}

// recordsLoadedMsg is sent when a domain list load finishes.
type recordsLoadedMsg struct {
	domain    string
	records   []records.Record
	err       error
	requestID uint64 // To detect stale responses
}

// detailLoadedMsg is sent when a builder detail fetch finishes.
type detailLoadedMsg struct {
	domain    string
	detail    *records.BuilderDetail
	err       error
	requestID uint64
}

// queryDoneMsg is sent when a query console run finishes.
type queryDoneMsg struct {
	resp      *remote.QueryResponse
	err       error
	requestID uint64
}

// spinnerTickMsg advances the loading spinner animation.
type spinnerTickMsg struct{}

// spinnerFrames are the Braille dot animation frames for the loading spinner.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is how fast the spinner animates.
const spinnerInterval = 80 * time.Millisecond

// loadPane starts a full reload of p's domain. Overlapping loads are allowed;
// only the newest response is applied.
func (m Model) loadPane(p *pane) tea.Cmd {
	p.requestID++
	p.view.SetLoading()
	requestID, domain, backend := p.requestID, p.domain, m.backend

	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = recordsLoadedMsg{domain: domain, err: recoverError(r), requestID: requestID}
			}
		}()

		recs, _, err := backend.ListRecords(context.Background(), domain)
		return recordsLoadedMsg{domain: domain, records: recs, err: err, requestID: requestID}
	}
}

// loadDetail fetches the builder detail for p's current selection.
func (m Model) loadDetail(p *pane) tea.Cmd {
	requestID, domain, id, backend := p.detail.requestID, p.domain, p.detail.id, m.backend

	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = detailLoadedMsg{domain: domain, err: recoverError(r), requestID: requestID}
			}
		}()

		detail, err := backend.BuilderDetail(context.Background(), id)
		return detailLoadedMsg{domain: domain, detail: detail, err: err, requestID: requestID}
	}
}

// runQuery submits the console text to the generic query endpoint.
func (m *Model) runQuery() tea.Cmd {
	m.query.requestID++
	m.query.running = true
	m.query.output = ""
	m.query.failed = false
	m.query.scroll = 0
	requestID, soql, tooling, backend := m.query.requestID, m.query.input.Value(), m.query.tooling, m.backend

	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = queryDoneMsg{err: recoverError(r), requestID: requestID}
			}
		}()

		resp, err := backend.RunQuery(context.Background(), soql, tooling)
		return queryDoneMsg{resp: resp, err: err, requestID: requestID}
	}
}

// spinnerTick returns a command that fires a spinnerTickMsg after the spinner interval.
func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already
// active, and marks it as active. Call this when loading begins.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// busy reports whether anything is waiting on the backend.
func (m Model) busy() bool {
	if m.query.running {
		return true
	}
	for _, s := range m.nav.sections {
		if s.pane != nil && (s.pane.view.Loading() || s.pane.detail.loading) {
			return true
		}
	}
	return false
}

func (m Model) paneFor(domain string) *pane {
	for _, s := range m.nav.sections {
		if s.pane != nil && s.pane.domain == domain {
			return s.pane
		}
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		m.query.input.Width = max(m.width-len(queryPrompt)-2, 10)
		return m, nil

	case recordsLoadedMsg:
		p := m.paneFor(msg.domain)
		// Ignore stale responses from previous loads
		if p == nil || msg.requestID != p.requestID {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Warn("load failed", "domain", msg.domain, "error", msg.err)
			p.view.SetError(msg.err)
			return m, m.reportFailure(msg.err)
		}
		p.view.SetRecords(msg.records)
		m.logger.Debug("loaded", "domain", msg.domain, "records", len(msg.records))
		return m, nil

	case detailLoadedMsg:
		p := m.paneFor(msg.domain)
		if p == nil || !p.detail.open || msg.requestID != p.detail.requestID {
			return m, nil
		}
		p.detail.loading = false
		if msg.err != nil {
			m.logger.Warn("detail failed", "domain", msg.domain, "id", p.detail.id, "error", msg.err)
			p.detail.err = msg.err
			return m, m.reportFailure(msg.err)
		}
		p.detail.builder = msg.detail
		return m, nil

	case queryDoneMsg:
		if msg.requestID != m.query.requestID {
			return m, nil
		}
		m.query.running = false
		if msg.err != nil {
			m.query.output = queryErrorMarker + "\n" + msg.err.Error()
			m.query.failed = true
			return m, m.reportFailure(msg.err)
		}
		m.query.output, m.query.failed = FormatQueryResult(msg.resp.Status, msg.resp.Body)
		return m, nil

	case spinnerTickMsg:
		if !m.busy() {
			m.spinnerActive = false
			return m, nil
		}
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, spinnerTick()
	}

	return m, nil
}

// activate switches to section i and reloads its table.
func (m Model) activate(i int) (tea.Model, tea.Cmd) {
	m.searchActive = false
	m.searchInput.Blur()
	p := m.nav.activate(i)
	if p == nil {
		cmd := m.query.input.Focus()
		return m, cmd
	}
	m.query.input.Blur()
	load := m.loadPane(p)
	spin := m.startSpinner()
	return m, tea.Batch(load, spin)
}

// selectRecord opens the detail panel for id. Builders fetch their detail;
// homes render from the loaded record.
func (m Model) selectRecord(p *pane, id string) (tea.Model, tea.Cmd) {
	p.view.Select(id)
	p.detail = detailState{open: true, id: id, requestID: p.detail.requestID + 1}
	if !p.fetchesDetail() {
		return m, nil
	}
	p.detail.loading = true
	load := m.loadDetail(p)
	spin := m.startSpinner()
	return m, tea.Batch(load, spin)
}

// closeDetail collapses the split view. An in-flight detail fetch is
// invalidated.
func (m Model) closeDetail(p *pane) Model {
	p.view.Close()
	p.detail = detailState{requestID: p.detail.requestID + 1}
	return m
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}
	return m.headerView() + "\n" + m.bodyView() + "\n" + m.footerView()
}
