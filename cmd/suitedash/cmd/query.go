package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wesm/suitedash/internal/remote"
	"github.com/wesm/suitedash/internal/tui"
)

var (
	queryTooling bool
	queryJQ      string
	queryRaw     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [soql]",
	Short: "Run a SOQL query through the backend",
	Long: `Run a SOQL query through the backend's /api/sf/query endpoint and print
the JSON response. Without an argument, [dashboard] default_query is used.

Output is indented on a terminal and compact otherwise. --jq filters the
response with a jq expression before printing.

Examples:
  suitedash query "SELECT Id, Name FROM Account LIMIT 5"
  suitedash query "SELECT Id FROM ApexClass" --tooling
  suitedash query "SELECT Name FROM Account" --jq '.records[].Name' -r`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		soql := cfg.Dashboard.DefaultQuery
		if len(args) > 0 {
			soql = args[0]
		}
		if strings.TrimSpace(soql) == "" {
			return errors.New("no query given and [dashboard] default_query is not set")
		}

		client, err := newBackendClient()
		if err != nil {
			return err
		}

		resp, err := client.RunQuery(cmd.Context(), soql, queryTooling)
		if err != nil {
			return fmt.Errorf("run query: %w", err)
		}
		if !resp.OK() {
			return &remote.APIError{Status: resp.Status, Body: remote.BodyText(resp.Body)}
		}

		return writeQueryOutput(cmd.OutOrStdout(), resp.Body, queryJQ, queryRaw, isTerminal(os.Stdout))
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().BoolVar(&queryTooling, "tooling", false, "Use the Tooling API")
	queryCmd.Flags().StringVar(&queryJQ, "jq", "", "Filter the response with a jq expression")
	queryCmd.Flags().BoolVarP(&queryRaw, "raw-output", "r", false, "Print string jq results without JSON quotes (like jq -r)")
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// writeQueryOutput prints body, filtered through expr when set. Each jq
// result goes on its own line.
func writeQueryOutput(w io.Writer, body []byte, expr string, raw, pretty bool) error {
	if strings.TrimSpace(expr) == "" {
		if raw {
			return errors.New("--raw-output requires --jq")
		}
		if pretty {
			_, err := fmt.Fprintln(w, strings.TrimRight(tui.PrettyBody(body), "\n"))
			return err
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, body); err != nil {
			_, err = w.Write(body)
			return err
		}
		_, err := fmt.Fprintln(w, buf.String())
		return err
	}

	results, err := evalJQ(body, expr)
	if err != nil {
		return err
	}
	for _, v := range results {
		line, err := encodeJQValue(v, raw, pretty)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func evalJQ(body []byte, expr string) ([]any, error) {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	parsed, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("compile jq expression: %w", err)
	}

	var results []any
	iter := code.Run(payload)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, fmt.Errorf("jq filter failed: %w", err)
		}
		results = append(results, v)
	}
	return results, nil
}

func encodeJQValue(v any, raw, pretty bool) (string, error) {
	if s, ok := v.(string); ok && raw {
		return s, nil
	}
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", fmt.Errorf("encode jq result: %w", err)
	}
	return string(data), nil
}
