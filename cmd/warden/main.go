// Warden: deterministic governance middleware for AI coding agents.
//
// Warden sits between a language-model agent and its file-mutating
// tools. Before any mutation the agent must bind to a declared intent;
// every mutation is gated on scope membership and freshness, and every
// completed mutation is recorded in an append-only audit ledger under
// <workspace>/.orchestration/.
//
// Usage:
//
//	warden serve     # Start the MCP server (stdio transport)
//	warden verify    # Audit the trace ledger against the registry
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	"github.com/warden-mcp/warden/internal/intent"
	wardenserver "github.com/warden-mcp/warden/internal/server"
	"github.com/warden-mcp/warden/internal/trace"
	"github.com/warden-mcp/warden/internal/workspace"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "verify":
		if err := runVerify(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("warden v%s\n", wardenserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runServe starts the MCP server for one agent session.
func runServe() error {
	root, err := workspace.FindRoot()
	if err != nil {
		return fmt.Errorf("locating workspace: %w", err)
	}

	// The contributing model id is supplied by the host environment;
	// trace records fall back to "unknown" without it.
	model := os.Getenv("WARDEN_MODEL_ID")

	s, cleanup, err := wardenserver.New(root, model)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

// runVerify audits the ledger offline: every record must parse, resolve
// its intent, and stay inside that intent's owned scope.
func runVerify() error {
	root, err := workspace.FindRoot()
	if err != nil {
		return fmt.Errorf("locating workspace: %w", err)
	}

	records, err := trace.NewLedger(root).ReadAll()
	if err != nil {
		return fmt.Errorf("reading ledger: %w", err)
	}

	result, err := trace.Audit(records, intent.NewFileStore(root))
	if err != nil {
		return fmt.Errorf("auditing ledger: %w", err)
	}

	if !result.Pass {
		fmt.Fprintf(os.Stderr, "FAIL: record %d: %s\n", result.FirstBrokenIndex, result.Message)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "OK: %d records audited, all in scope and resolvable\n", result.RecordCount)
	return nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Warden v%s — governance middleware for AI coding agents

Usage:
  warden serve     Start the MCP server (stdio transport)
  warden verify    Audit the trace ledger against the intent registry
  warden version   Print the version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "warden": {
        "command": "warden",
        "args": ["serve"]
      }
    }
  }

The workspace root is found by walking up from the current directory
to the nearest .orchestration/ sidecar; a new sidecar is created in
the current directory on first use.
`, wardenserver.Version)
}
