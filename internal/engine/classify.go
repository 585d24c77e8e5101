package engine

import (
	"regexp"

	"github.com/warden-mcp/warden/internal/trace"
)

// Mutation classification: a written file is INTENT_EVOLUTION when its
// content introduces new public surface, AST_REFACTOR otherwise. The
// marker set below is deliberately small and regex-based; richer
// AST-level classification is left to downstream consumers of the
// ledger.

// marker is one named heuristic in the classification table.
type marker struct {
	name string
	re   *regexp.Regexp
}

// evolutionMarkers are matched against the post-write content. Any hit
// classifies the mutation as INTENT_EVOLUTION.
var evolutionMarkers = []marker{
	// Exported top-level symbol (JS/TS module surface).
	{"exported-symbol", regexp.MustCompile(`(?m)^[ \t]*export\s+(?:default\s+)?(?:abstract\s+)?(?:async\s+)?(?:function|class|const|let|var|interface|type|enum)\b`)},

	// New class declaration (TS/Java/Python/C# style).
	{"class-declaration", regexp.MustCompile(`(?m)^[ \t]*(?:public\s+|private\s+|abstract\s+|final\s+)*class\s+[A-Za-z_][A-Za-z0-9_]*`)},

	// New named type declaration (Go/TS style).
	{"type-declaration", regexp.MustCompile(`(?m)^[ \t]*(?:type|interface|enum)\s+[A-Za-z_][A-Za-z0-9_]*`)},

	// HTTP route registration.
	{"route-registration", regexp.MustCompile(`(?i)\b(?:app|router|server|mux|r)\s*\.\s*(?:get|post|put|patch|delete|handle|handleFunc)\s*\(\s*["` + "`" + `']`)},

	// Database migration keywords.
	{"db-migration", regexp.MustCompile(`(?i)\b(?:create|alter|drop)\s+table\b|\badd\s+column\b|\bcreate\s+(?:unique\s+)?index\b`)},
}

// Classify assigns a mutation class to written content.
func Classify(content string) trace.MutationClass {
	for _, m := range evolutionMarkers {
		if m.re.MatchString(content) {
			return trace.ClassIntentEvolution
		}
	}
	return trace.ClassASTRefactor
}
