package trace

import (
	"fmt"
	"time"

	"github.com/warden-mcp/warden/internal/intent"
	"github.com/warden-mcp/warden/internal/scope"
)

// AuditResult is the machine-readable outcome of an offline ledger audit.
type AuditResult struct {
	Pass             bool   `json:"pass"`
	RecordCount      int    `json:"record_count"`
	FirstBrokenIndex int    `json:"first_broken_index"` // 1-based; -1 when passing
	Message          string `json:"message,omitempty"`
}

// Audit re-checks the ledger's universal guarantees after the fact:
// every record is structurally valid with a parseable UTC timestamp,
// every intent_id resolves in the registry, and every recorded file path
// lies inside its intent's owned scope. It reports the first violating
// record rather than failing the call — an audit gap is a finding, not
// an error.
func Audit(records []Record, store intent.Store) (AuditResult, error) {
	result := AuditResult{
		Pass:             true,
		RecordCount:      len(records),
		FirstBrokenIndex: -1,
	}

	fail := func(i int, format string, args ...any) AuditResult {
		result.Pass = false
		result.FirstBrokenIndex = i + 1
		result.Message = fmt.Sprintf(format, args...)
		return result
	}

	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return fail(i, "%v", err), nil
		}
		ts, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err != nil {
			return fail(i, "record %s: invalid timestamp: %v", rec.ID, err), nil
		}
		if _, offset := ts.Zone(); offset != 0 {
			return fail(i, "record %s: timestamp %s is not UTC", rec.ID, rec.Timestamp), nil
		}

		in, err := store.GetIntent(rec.IntentID)
		if err != nil {
			return AuditResult{}, fmt.Errorf("resolving intent %s: %w", rec.IntentID, err)
		}
		if in == nil {
			return fail(i, "record %s: intent %s not in registry", rec.ID, rec.IntentID), nil
		}

		for _, fe := range rec.Files {
			if !scope.InScope(fe.RelativePath, in.OwnedScope) {
				return fail(i, "record %s: path %s outside scope of %s %v",
					rec.ID, fe.RelativePath, in.ID, in.OwnedScope), nil
			}
		}
	}

	return result, nil
}
