package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wesm/suitedash/internal/fileutil"
	"github.com/wesm/suitedash/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal dashboard",
	Long: `Open the terminal dashboard against the backend named by
[dashboard] backend_url in config.toml.

Sections: Homes, Builders, Communities, Plan Types, Query.
Every section switch reloads its data from the backend.

Navigation:
  Tab/Shift+Tab  Switch section
  ↑/k, ↓/j       Move up/down
  PgUp/PgDn      Page up/down
  1-9            Sort by column (again to reverse)
  /              Filter rows (Esc cancels)
  Enter          Open detail (Homes, Builders)
  Esc            Close detail / clear filter
  J/K            Scroll detail
  r              Reload
  q              Quit

Query section:
  Enter          Run SOQL
  Ctrl+T         Toggle REST / Tooling API
  Ctrl+L         Clear output

Logs are written to [dashboard] log_file (default: <home>/dashboard.log).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newBackendClient()
		if err != nil {
			return err
		}

		// stderr belongs to the terminal UI
		logPath := cfg.Dashboard.LogFile
		if logPath == "" {
			logPath = filepath.Join(cfg.HomeDir, "dashboard.log")
		}
		logFile, err := fileutil.SecureOpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer logFile.Close()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		tuiLogger := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: level}))

		userAgent := tui.UserAgent(Version)
		model := tui.New(client, tui.Options{
			Version:      Version,
			UserAgent:    userAgent,
			DefaultQuery: cfg.Dashboard.DefaultQuery,
			Logger:       tuiLogger,
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

		if _, err := p.Run(); err != nil {
			if ctxErr := cmd.Context().Err(); ctxErr != nil {
				return ctxErr
			}
			tuiLogger.Error("dashboard exited", "error", err)
			if rerr := tui.ReportCrash(context.Background(), client, err, userAgent); rerr != nil {
				tuiLogger.Debug("crash report failed", "error", rerr)
			}
			return fmt.Errorf("run tui: %w", err)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
