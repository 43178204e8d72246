package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wesm/suitedash/internal/records"
	"github.com/wesm/suitedash/internal/remote"
	"github.com/wesm/suitedash/internal/salesforce"
	"github.com/wesm/suitedash/internal/tableview"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type handlers struct {
	backend Backend
}

// listResult is the list_records payload. Total is the server-reported
// size; Matched counts records after filtering and before paging.
type listResult struct {
	Domain  string           `json:"domain"`
	Total   int              `json:"total"`
	Matched int              `json:"matched"`
	Records []records.Record `json:"records"`
}

func (h *handlers) listRecords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	domain, _ := args["domain"].(string)
	if err := records.ValidateDomain(domain); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	recs, total, err := h.backend.ListRecords(ctx, domain)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list %s failed: %v", domain, err)), nil
	}

	// The table view gives the same filter and sort semantics as the
	// dashboard, searching every field present in the data.
	view := tableview.New(tableview.Config{SearchFields: fieldNames(recs)})
	view.SetRecords(recs)
	if f, ok := args["filter"].(string); ok {
		view.SetFilter(f)
	}
	if col, ok := args["sort"].(string); ok && col != "" {
		view.ToggleSort(col)
		if desc, _ := args["desc"].(bool); desc {
			view.ToggleSort(col)
		}
	}

	rows := view.Rows()
	limit := limitArg(args, "limit", defaultLimit)
	offset := min(limitArg(args, "offset", 0), len(rows))
	end := min(offset+limit, len(rows))

	return jsonResult(listResult{
		Domain:  domain,
		Total:   total,
		Matched: len(rows),
		Records: rows[offset:end],
	})
}

func (h *handlers) getBuilder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	id, _ := args["id"].(string)
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	if !salesforce.ValidID(id) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid id %q: expected a 15 or 18 character Salesforce id", id)), nil
	}

	detail, err := h.backend.BuilderDetail(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get builder failed: %v", err)), nil
	}
	return jsonResult(detail)
}

func (h *handlers) runQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	soql, _ := args["soql"].(string)
	if strings.TrimSpace(soql) == "" {
		return mcp.NewToolResultError("soql parameter is required"), nil
	}
	tooling, _ := args["tooling"].(bool)

	resp, err := h.backend.RunQuery(ctx, soql, tooling)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	if !resp.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("query failed (%d): %s", resp.Status, remote.BodyText(resp.Body))), nil
	}
	return mcp.NewToolResultText(string(resp.Body)), nil
}

// fieldNames returns every top-level key across recs, sorted.
func fieldNames(recs []records.Record) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range recs {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	slices.Sort(names)
	return names
}

// limitArg extracts a non-negative integer limit from a map, with a default.
// JSON numbers arrive as float64. Clamps to maxLimit to prevent excessive
// result sets.
func limitArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok {
		return def
	}
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) || v > float64(maxLimit) {
		return maxLimit
	}
	return int(v)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
