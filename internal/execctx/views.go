package execctx

import (
	"strings"
	"time"
)

// capabilityMarkers advertise what consumers may rely on; fixed for a given
// schema version.
var capabilityMarkers = []string{
	"child_derivation",
	"scoped_cleanup",
	"isolation_diagnostics",
}

// CorrelationID returns a deterministic, log-friendly identifier built from
// the first 8 characters of each identity field, colon-separated. It is for
// log correlation only, never a lookup key.
func (c *Context) CorrelationID() string {
	return strings.Join([]string{
		idSegment(c.userID),
		idSegment(c.threadID),
		idSegment(c.runID),
		idSegment(c.requestID),
	}, ":")
}

func idSegment(id string) string {
	runes := []rune(id)
	if len(runes) > 8 {
		return string(runes[:8])
	}
	return id
}

// ToMap returns a flat serializable view of the context. The attached
// resource is never included (it may carry credentials); only its presence is
// flagged. All maps in the view are copies.
func (c *Context) ToMap() map[string]any {
	merged := mergeMaps(c.audit, c.working)

	// The key set is fixed; optional fields appear as empty strings so
	// consumers can rely on a stable shape.
	return map[string]any{
		"user_id":           c.userID,
		"thread_id":         c.threadID,
		"run_id":            c.runID,
		"request_id":        c.requestID,
		"connection_id":     c.connectionID,
		"parent_request_id": c.parentRequestID,
		"created_at":        c.createdAt.Format(time.RFC3339Nano),
		"operation_depth":   c.depth,
		"working_map":       deepCopyMap(c.working),
		"audit_map":         deepCopyMap(c.audit),
		"merged_metadata":   merged,
		"has_resource":      c.resource != nil,
		"schema_version":    schemaVersion,
		"capabilities":      append([]string(nil), capabilityMarkers...),
	}
}

// AuditTrail returns the compliance projection of the context: identities,
// hierarchy position, presence flags, the audit map, and elapsed age.
func (c *Context) AuditTrail() map[string]any {
	trail := map[string]any{
		"correlation_id":  c.CorrelationID(),
		"user_id":         c.userID,
		"thread_id":       c.threadID,
		"run_id":          c.runID,
		"request_id":      c.requestID,
		"operation_depth": c.depth,
		"has_resource":    c.resource != nil,
		"has_connection":  c.connectionID != "",
		"audit_map":       deepCopyMap(c.audit),
		"age_seconds":     time.Since(c.createdAt).Seconds(),
	}
	if c.parentRequestID != "" {
		trail["parent_request_id"] = c.parentRequestID
	}
	return trail
}
