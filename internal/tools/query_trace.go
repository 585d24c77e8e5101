package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/warden-mcp/warden/internal/index"
	"github.com/warden-mcp/warden/internal/trace"
)

// defaultQueryLimit caps query_trace results when the caller gives none.
const defaultQueryLimit = 50

// QueryTraceTool handles the query_trace MCP tool. It answers "what has
// been mutated, by which intent?" from the derived sqlite index, which
// is rebuilt from the JSONL ledger on every call — the ledger stays the
// source of truth.
type QueryTraceTool struct {
	ledger *trace.Ledger
	idx    *index.Store
}

// NewQueryTraceTool creates a QueryTraceTool with its ledger and index.
func NewQueryTraceTool(ledger *trace.Ledger, idx *index.Store) *QueryTraceTool {
	return &QueryTraceTool{ledger: ledger, idx: idx}
}

// Definition returns the MCP tool definition for registration.
func (t *QueryTraceTool) Definition() mcp.Tool {
	return mcp.NewTool("query_trace",
		mcp.WithDescription(
			"Query the audit ledger of completed mutations. Filter by "+
				"intent_id and/or an exact workspace-relative path. Returns "+
				"records in append order plus aggregate counts.",
		),
		mcp.WithString("intent_id",
			mcp.Description("Only records bound to this intent"),
		),
		mcp.WithString("path",
			mcp.Description("Only records that touched this exact workspace-relative path"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum records to return (default %d)", defaultQueryLimit)),
		),
	)
}

// Handle rebuilds the index from the ledger and runs the query.
func (t *QueryTraceTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	records, err := t.ledger.ReadAll()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reading ledger: %v", err)), nil
	}
	if err := t.idx.Rebuild(records); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("rebuilding index: %v", err)), nil
	}

	limit := int(req.GetFloat("limit", defaultQueryLimit))
	entries, err := t.idx.Query(index.QueryOptions{
		IntentID: req.GetString("intent_id", ""),
		Path:     req.GetString("path", ""),
		Limit:    limit,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("querying index: %v", err)), nil
	}

	stats, err := t.idx.GetStats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("computing stats: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Trace query — %d of %d records\n\n", len(entries), stats.TotalRecords)
	if len(entries) == 0 {
		sb.WriteString("_No matching records._\n")
	}
	for _, e := range entries {
		paths := "(no attributed files)"
		if len(e.Paths) > 0 {
			paths = strings.Join(e.Paths, ", ")
		}
		fmt.Fprintf(&sb, "- %s %s %s [%s] %s\n", e.Timestamp, e.IntentID, e.Tool, e.MutationClass, paths)
	}
	sb.WriteString("\n## Totals by class\n\n")
	for class, n := range stats.RecordsByClass {
		fmt.Fprintf(&sb, "- %s: %d\n", class, n)
	}

	return mcp.NewToolResultText(sb.String()), nil
}
