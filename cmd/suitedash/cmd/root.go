package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesm/suitedash/internal/config"
	"github.com/wesm/suitedash/internal/remote"
	"github.com/wesm/suitedash/internal/tui"
)

var (
	cfgFile string
	homeDir string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "suitedash",
	Short: "Salesforce-backed operations dashboard",
	Long: `suitedash serves a thin proxy in front of a Salesforce org and browses
its homes, builders, communities, and plan types from the terminal.

Run 'suitedash serve' next to the Salesforce credentials, then point
'suitedash tui' (or 'suitedash query' / 'suitedash mcp') at it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" {
			return nil
		}

		// Set up logging
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		// --home is passed through so it influences where config.toml is
		// loaded from, like SUITEDASH_HOME.
		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Ensure home directory exists on first use
		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create home directory %s: %w", cfg.HomeDir, err)
		}

		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// newBackendClient returns a client for the backend named in [dashboard].
func newBackendClient() (*remote.Client, error) {
	client, err := remote.New(remote.Config{
		URL:           cfg.Dashboard.BackendURL,
		APIKey:        cfg.Dashboard.APIKey,
		AllowInsecure: cfg.Dashboard.AllowInsecure,
		Timeout:       cfg.Dashboard.Timeout(),
		UserAgent:     tui.UserAgent(Version),
	})
	if err != nil {
		return nil, fmt.Errorf("configure backend client: %w", err)
	}
	return client, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.suitedash/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides SUITEDASH_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
