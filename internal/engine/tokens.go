package engine

// Stable uppercase tokens carried in block reasons and handshake errors.
// Hosts and the LLM match on these verbatim, so they never change.
const (
	TokenIntentRequired     = "INTENT_REQUIRED"
	TokenIntentNotFound     = "INTENT_NOT_FOUND"
	TokenScopeViolation     = "SCOPE_VIOLATION"
	TokenStaleFile          = "STALE_FILE"
	TokenPathInvalid        = "PATH_INVALID"
	TokenRegistryUnreadable = "REGISTRY_UNREADABLE"
	TokenInternalError      = "INTERNAL_ERROR"
)
