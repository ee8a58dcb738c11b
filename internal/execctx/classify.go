package execctx

import "strings"

// Keyword table for the legacy single-map construction path. Exact audit keys
// are checked before the token scans, so "operation_depth" lands in the audit
// bucket even though "operation" is a working token. Unmatched keys default
// to the working bucket.
var (
	auditExactKeys = map[string]struct{}{
		"parent_request_id": {},
		"operation_depth":   {},
		"client_ip":         {},
		"source_ip":         {},
		"user_agent":        {},
		"correlation_id":    {},
	}

	auditTokens = []string{"audit", "compliance", "trace", "log"}

	workingTokens = []string{"agent", "operation", "workflow", "execution", "state"}
)

// classifyMetadata splits one merged legacy metadata map into working and
// audit buckets. Pure and deterministic: classification depends only on key
// names, never on value shapes. Returned maps share nothing with the input.
func classifyMetadata(merged map[string]any) (working, audit map[string]any) {
	working = make(map[string]any)
	audit = make(map[string]any)

	for key, value := range merged {
		lower := strings.ToLower(key)
		if _, exact := auditExactKeys[lower]; exact {
			audit[key] = deepCopyValue(value)
			continue
		}
		if containsAny(lower, auditTokens) {
			audit[key] = deepCopyValue(value)
			continue
		}
		if containsAny(lower, workingTokens) {
			working[key] = deepCopyValue(value)
			continue
		}
		working[key] = deepCopyValue(value)
	}
	return working, audit
}

func containsAny(s string, tokens []string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
