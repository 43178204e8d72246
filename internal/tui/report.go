package tui

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wesm/suitedash/internal/records"
)

// reportTimeout bounds a single error report.
const reportTimeout = 5 * time.Second

// Reporter receives client-side failure reports.
type Reporter interface {
	ReportError(ctx context.Context, report records.ErrorReport) error
}

// panicError is a panic recovered inside an async command.
type panicError struct {
	value any
	stack string
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func recoverError(r any) error {
	return &panicError{value: r, stack: string(debug.Stack())}
}

// UserAgent identifies the dashboard in error reports and backend requests.
func UserAgent(version string) string {
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("suitedash/%s (%s/%s)", version, runtime.GOOS, runtime.GOARCH)
}

// NewReport builds a report for err. Panics carry their stack.
func NewReport(err error, kind, userAgent string, now time.Time) records.ErrorReport {
	report := records.ErrorReport{
		Message:   err.Error(),
		Timestamp: now.UTC().Format(time.RFC3339),
		UserAgent: userAgent,
		Type:      kind,
	}
	var pe *panicError
	if errors.As(err, &pe) {
		report.Stack = pe.stack
	}
	return report
}

// reportFailure forwards recovered panics to the backend. Ordinary load
// errors are already shown inline and are not reported. The report's own
// failure is only logged.
func (m Model) reportFailure(err error) tea.Cmd {
	var pe *panicError
	if !errors.As(err, &pe) || m.backend == nil {
		return nil
	}
	report := NewReport(err, "panic", m.userAgent, m.now())
	backend, logger := m.backend, m.logger

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		if err := backend.ReportError(ctx, report); err != nil {
			logger.Debug("error report failed", "error", err)
		}
		return nil
	}
}

// ReportCrash sends a report for a failure that ended the program.
func ReportCrash(ctx context.Context, r Reporter, err error, userAgent string) error {
	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()
	return r.ReportError(ctx, NewReport(err, "crash", userAgent, time.Now()))
}
