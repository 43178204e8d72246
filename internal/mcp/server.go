// Package mcp exposes the suitedash backend to MCP clients over stdio.
package mcp

import (
	"context"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wesm/suitedash/internal/records"
	"github.com/wesm/suitedash/internal/remote"
)

// Tool name constants.
const (
	ToolListRecords = "list_records"
	ToolGetBuilder  = "get_builder"
	ToolRunQuery    = "run_query"
)

// Backend is the subset of the dashboard client the tools call.
// *remote.Client implements it.
type Backend interface {
	ListRecords(ctx context.Context, domain string) ([]records.Record, int, error)
	BuilderDetail(ctx context.Context, id string) (*records.BuilderDetail, error)
	RunQuery(ctx context.Context, soql string, tooling bool) (*remote.QueryResponse, error)
}

// NewServer registers the suitedash tools on a new MCP server.
func NewServer(backend Backend, version string) *server.MCPServer {
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"suitedash",
		version,
		server.WithToolCapabilities(false),
	)

	h := &handlers{backend: backend}

	s.AddTool(listRecordsTool(), h.listRecords)
	s.AddTool(getBuilderTool(), h.getBuilder)
	s.AddTool(runQueryTool(), h.runQuery)
	return s
}

// Serve creates an MCP server with the dashboard tools and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, backend Backend, version string) error {
	stdio := server.NewStdioServer(NewServer(backend, version))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func listRecordsTool() mcp.Tool {
	return mcp.NewTool(ToolListRecords,
		mcp.WithDescription("List every record of a dashboard domain. The optional filter is a case-insensitive substring match over all fields."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("domain",
			mcp.Required(),
			mcp.Description("Record domain"),
			mcp.Enum(records.DomainKeys...),
		),
		mcp.WithString("filter",
			mcp.Description("Only records with a field containing this text"),
		),
		mcp.WithString("sort",
			mcp.Description("Field to sort by (ascending unless desc is set)"),
		),
		mcp.WithBoolean("desc",
			mcp.Description("Sort descending"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum records to return (default 100)"),
		),
		mcp.WithNumber("offset",
			mcp.Description("Number of records to skip (default 0)"),
		),
	)
}

func getBuilderTool() mcp.Tool {
	return mcp.NewTool(ToolGetBuilder,
		mcp.WithDescription("Get a builder's account details and its divisions by Salesforce id."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("15 or 18 character Salesforce account id"),
		),
	)
}

func runQueryTool() mcp.Tool {
	return mcp.NewTool(ToolRunQuery,
		mcp.WithDescription("Run a SOQL query through the backend. Returns the raw Salesforce response."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("soql",
			mcp.Required(),
			mcp.Description("SOQL statement (e.g. 'SELECT Id, Name FROM Account LIMIT 10')"),
		),
		mcp.WithBoolean("tooling",
			mcp.Description("Use the Tooling API instead of the REST query endpoint"),
		),
	)
}
