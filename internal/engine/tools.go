package engine

// Tool classification for the pre-hook gate. New governed tools are
// added here (and, if they carry a target path, in pathBearing and
// rawPath) — no other component changes.

// safeTools are read-only discovery tools, always allowed without an
// intent.
var safeTools = map[string]bool{
	"read_file":                  true,
	"list_files":                 true,
	"list_code_definition_names": true,
	"search_files":               true,
	"browser_action":             true,
	"ask_followup_question":      true,
	"attempt_completion":         true,
}

// mutatingTools are gated on an active intent. All but execute_command
// carry a single target path in params.
var mutatingTools = map[string]bool{
	"write_to_file":      true,
	"apply_diff":         true,
	"insert_content":     true,
	"search_and_replace": true,
	"execute_command":    true,
}

// IsSafe reports whether a tool is in the always-allowed set.
func IsSafe(tool string) bool {
	return safeTools[tool]
}

// IsMutating reports whether a tool is in the gated set. Unknown tools
// are treated as mutating — an unclassified tool must not bypass the
// gate.
func IsMutating(tool string) bool {
	return mutatingTools[tool] || !safeTools[tool]
}

// pathBearing reports whether the gate can attribute the tool's effect
// to a single target path. execute_command (and any unknown tool whose
// params carry no path) may touch arbitrary paths; those are admitted
// with an intent and recorded as unattributed mutations.
func pathBearing(tool string, params map[string]any) bool {
	if tool == "execute_command" {
		return false
	}
	if mutatingTools[tool] {
		return true
	}
	// Unknown tool: gate on a path only when one is present.
	_, ok := params["path"]
	return ok
}

// rawPath extracts the target path parameter, which may be absent or of
// the wrong type — both surface as PATH_INVALID upstream.
func rawPath(params map[string]any) (string, bool) {
	v, ok := params["path"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
