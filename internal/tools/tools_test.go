package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/warden-mcp/warden/internal/engine"
	"github.com/warden-mcp/warden/internal/index"
	"github.com/warden-mcp/warden/internal/intent"
	"github.com/warden-mcp/warden/internal/trace"
	"github.com/warden-mcp/warden/internal/workspace"
)

// --- Test helpers ---

const testRegistry = `active_intents:
  - id: INT-001
    name: Weather endpoint
    status: IN_PROGRESS
    owned_scope:
      - "src/api/**"
`

// setupSession builds a governed workspace with one intent and a fresh
// session engine over it.
func setupSession(t *testing.T) (string, *engine.Engine, intent.Store) {
	t.Helper()
	root := t.TempDir()

	p := workspace.RegistryPath(root)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(p, []byte(testRegistry), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	store := intent.NewFileStore(root)
	ledger := trace.NewLedger(root)
	return root, engine.New(root, store, ledger, "test-model"), store
}

// isErrorResult checks if the result is a tool error.
func isErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// --- SelectIntentTool ---

func TestSelectIntentTool_Success(t *testing.T) {
	_, e, _ := setupSession(t)
	tool := NewSelectIntentTool(e)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"intent_id": "INT-001"}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("expected success, got error: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "<id>INT-001</id>") {
		t.Errorf("result should contain the intent context XML: %s", text)
	}
	if e.ActiveIntentID() != "INT-001" {
		t.Error("handshake should bind the intent")
	}
}

func TestSelectIntentTool_UnknownID(t *testing.T) {
	_, e, _ := setupSession(t)
	tool := NewSelectIntentTool(e)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"intent_id": "INT-404"}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Fatal("unknown id should be a tool error")
	}
	text := getResultText(result)
	if !strings.Contains(text, "INTENT_NOT_FOUND") || !strings.Contains(text, "INT-404") {
		t.Errorf("error should carry the token and offered id: %s", text)
	}
}

func TestSelectIntentTool_MissingID(t *testing.T) {
	_, e, _ := setupSession(t)
	tool := NewSelectIntentTool(e)

	result, err := tool.Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if !isErrorResult(result) {
		t.Error("missing intent_id should be a tool error")
	}
}

// --- PreHookTool / PostHookTool ---

// decodeDecision parses the pre_tool_hook payload.
func decodeDecision(t *testing.T, result *mcp.CallToolResult) engine.Decision {
	t.Helper()
	var d engine.Decision
	if err := json.Unmarshal([]byte(getResultText(result)), &d); err != nil {
		t.Fatalf("decision payload is not JSON: %v", err)
	}
	return d
}

func TestPreHookTool_BlocksWithoutIntent(t *testing.T) {
	_, e, _ := setupSession(t)
	tool := NewPreHookTool(e)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"tool":        "write_to_file",
		"params_json": `{"path":"src/api/weather.ts"}`,
	}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	d := decodeDecision(t, result)
	if d.Allowed {
		t.Fatal("should be blocked before the handshake")
	}
	if !strings.Contains(d.Reason, "INTENT_REQUIRED") {
		t.Errorf("reason = %s", d.Reason)
	}
}

func TestPreHookTool_AllowsInScope(t *testing.T) {
	_, e, _ := setupSession(t)
	e.SelectIntent("INT-001")
	tool := NewPreHookTool(e)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"tool":        "write_to_file",
		"params_json": `{"path":"src/api/weather.ts"}`,
	}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if d := decodeDecision(t, result); !d.Allowed {
		t.Errorf("in-scope write should be allowed: %s", d.Reason)
	}
}

func TestPreHookTool_MalformedParamsBlock(t *testing.T) {
	_, e, _ := setupSession(t)
	e.SelectIntent("INT-001")
	tool := NewPreHookTool(e)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"tool":        "write_to_file",
		"params_json": `not json`,
	}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if d := decodeDecision(t, result); d.Allowed {
		t.Error("malformed params must fail closed")
	}
}

func TestPostHookTool_AppendsRecord(t *testing.T) {
	root, e, _ := setupSession(t)
	e.SelectIntent("INT-001")

	pre := NewPreHookTool(e)
	preReq := mcp.CallToolRequest{}
	preReq.Params.Arguments = map[string]interface{}{
		"tool":        "write_to_file",
		"params_json": `{"path":"src/api/weather.ts"}`,
	}
	if result, err := pre.Handle(context.Background(), preReq); err != nil || !decodeDecision(t, result).Allowed {
		t.Fatalf("pre-hook should allow: %v", err)
	}

	// The host's tool writes the file.
	target := filepath.Join(root, "src", "api", "weather.ts")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(target, []byte("export class WeatherService {}"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	post := NewPostHookTool(e)
	postReq := mcp.CallToolRequest{}
	postReq.Params.Arguments = map[string]interface{}{
		"tool":        "write_to_file",
		"params_json": `{"path":"src/api/weather.ts"}`,
		"elapsed_ms":  float64(17),
	}
	result, err := post.Handle(context.Background(), postReq)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("post-hook should succeed: %s", getResultText(result))
	}

	records, err := trace.NewLedger(root).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 || records[0].MutationClass != trace.ClassIntentEvolution {
		t.Errorf("expected one INTENT_EVOLUTION record, got %+v", records)
	}
}

// --- ListIntentsTool ---

func TestListIntentsTool(t *testing.T) {
	_, _, store := setupSession(t)
	tool := NewListIntentsTool(store)

	result, err := tool.Handle(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := getResultText(result)
	if !strings.Contains(text, "INT-001") || !strings.Contains(text, "src/api/**") {
		t.Errorf("listing should include id and scope: %s", text)
	}
}

// --- QueryTraceTool ---

func TestQueryTraceTool(t *testing.T) {
	root, e, _ := setupSession(t)
	e.SelectIntent("INT-001")

	// Record one mutation through the engine.
	params := map[string]any{"path": "src/api/weather.ts"}
	if d := e.PreHook("write_to_file", params); !d.Allowed {
		t.Fatalf("pre-hook should allow: %s", d.Reason)
	}
	target := filepath.Join(root, "src", "api", "weather.ts")
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.WriteFile(target, []byte("const x = 1"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := e.PostHook("write_to_file", params, 3); err != nil {
		t.Fatalf("PostHook failed: %v", err)
	}

	idx, err := index.Open(root)
	if err != nil {
		t.Fatalf("index.Open failed: %v", err)
	}
	defer idx.Close()

	tool := NewQueryTraceTool(trace.NewLedger(root), idx)
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"intent_id": "INT-001"}

	result, err := tool.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if isErrorResult(result) {
		t.Fatalf("query should succeed: %s", getResultText(result))
	}
	text := getResultText(result)
	if !strings.Contains(text, "src/api/weather.ts") || !strings.Contains(text, "AST_REFACTOR") {
		t.Errorf("query output missing record details: %s", text)
	}
}
