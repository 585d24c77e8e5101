// Package resources implements MCP resource handlers for the
// governance surface.
//
// Resources provide read-only data the host can consume for context.
// They use URI-based addressing (warden://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/warden-mcp/warden/internal/intent"
	"github.com/warden-mcp/warden/internal/trace"
)

// traceTailLines is how many recent ledger lines the trace resource serves.
const traceTailLines = 100

// Handler manages the warden resource endpoints.
type Handler struct {
	store  intent.Store
	ledger *trace.Ledger
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(store intent.Store, ledger *trace.Ledger) *Handler {
	return &Handler{store: store, ledger: ledger}
}

// RegistryResource returns the MCP resource definition for the intent
// registry.
func (h *Handler) RegistryResource() mcp.Resource {
	return mcp.NewResource(
		"warden://registry",
		"Intent Registry",
		mcp.WithResourceDescription("The declared intents the agent may bind to, as JSON"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleRegistry serves the parsed registry as JSON.
func (h *Handler) HandleRegistry(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	intents, err := h.store.List()
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	data, err := json.MarshalIndent(intents, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling registry: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// TraceResource returns the MCP resource definition for the trace
// ledger tail.
func (h *Handler) TraceResource() mcp.Resource {
	return mcp.NewResource(
		"warden://trace",
		"Trace Ledger Tail",
		mcp.WithResourceDescription("The most recent audit records of completed mutations, as JSONL"),
		mcp.WithMIMEType("application/jsonl"),
	)
}

// HandleTrace serves the last lines of the ledger verbatim.
func (h *Handler) HandleTrace(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	lines, err := h.ledger.Tail(traceTailLines)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}

	text := ""
	if len(lines) > 0 {
		text = strings.Join(lines, "\n") + "\n"
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/jsonl",
			Text:     text,
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
