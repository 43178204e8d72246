package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/wesm/suitedash/internal/api"
	"github.com/wesm/suitedash/internal/salesforce"
	"github.com/wesm/suitedash/internal/scheduler"
)

// tokenWarmJob is the scheduler job that keeps a fresh Salesforce token.
const tokenWarmJob = "salesforce-token"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Salesforce proxy API",
	Long: `Run the suitedash backend: an HTTP API that authenticates to Salesforce
with the JWT bearer flow and serves the dashboard's record domains.

Endpoints:
  GET  /api/health            Liveness (no auth)
  GET  /api/sf/{domain}       homes, builders, communities, plantypes
  GET  /api/sf/builders/{id}  Builder with divisions
  POST /api/sf/query          {"soql": "...", "tooling": false}
  GET  /api/sf/test           Runs default_test_soql
  GET  /api/sf/status         Token warmer status
  POST /api/log-error         Client error reports

Configure credentials in config.toml:
  [salesforce]
  login_url = "https://test.salesforce.com"
  client_id = "3MVG9..."
  username = "integration@example.com"
  jwt_key_path = "~/.suitedash/server.key"
  warm_schedule = "*/20 * * * *"   # optional token warmer (cron format)

Use Ctrl+C to stop the server gracefully.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate security posture before doing any work
	if err := cfg.Server.ValidateSecure(); err != nil {
		return err
	}

	sf, err := salesforce.NewClient(cfg.Salesforce, salesforce.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("configure salesforce: %w", err)
	}

	sched := scheduler.New().WithLogger(logger)
	if spec := cfg.Salesforce.WarmSchedule; spec != "" {
		if err := sched.AddJob(tokenWarmJob, spec, warmToken(sf)); err != nil {
			return fmt.Errorf("schedule token warmer: %w", err)
		}
	}
	sched.Start()

	apiServer := api.NewServer(cfg, sf, sched, logger)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("API server shutdown error", "error", err)
		}

		select {
		case <-sched.Stop().Done():
		case <-time.After(30 * time.Second):
			logger.Warn("scheduler shutdown timed out")
		}
		return nil
	})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "suitedash backend started\n")
	fmt.Fprintf(out, "  API server: http://%s\n", net.JoinHostPort(cfg.Server.BindAddr, strconv.Itoa(cfg.Server.APIPort)))
	fmt.Fprintf(out, "  Salesforce: %s as %s\n", cfg.Salesforce.LoginURL, cfg.Salesforce.Username)
	for _, status := range sched.Status() {
		fmt.Fprintf(out, "  %s: next run at %s\n", status.Name, status.NextRun.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop.")

	return g.Wait()
}

// tokenRefresher mints a fresh access token, discarding any cached one.
type tokenRefresher interface {
	Refresh() (*oauth2.Token, error)
}

// warmToken returns the scheduler job that mints a fresh Salesforce token.
func warmToken(r tokenRefresher) scheduler.JobFunc {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.Refresh(); err != nil {
			return fmt.Errorf("refresh salesforce token: %w", err)
		}
		return nil
	}
}
