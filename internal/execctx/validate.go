package execctx

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/netra-systems/zen-sub165/internal/idgen"
	"github.com/netra-systems/zen-sub165/internal/logging"
)

// defaultTruncateLen bounds offending values echoed in errors when no config
// is in play (with-style operations on a bare Context).
const defaultTruncateLen = 32

// shortValueLen is the length below which deny-prefix patterns apply. Longer
// values are almost certainly real generated ids, and prefix checks on them
// produce false positives ("test_" is a legitimate start of a long hash).
const shortValueLen = 20

// reservedKeys are the entity's own field names. Neither metadata map may
// shadow them.
var reservedKeys = map[string]struct{}{
	"user_id":           {},
	"thread_id":         {},
	"run_id":            {},
	"request_id":        {},
	"connection_id":     {},
	"created_at":        {},
	"working_map":       {},
	"audit_map":         {},
	"cleanup_actions":   {},
	"attached_resource": {},
}

// placeholderExact is the case-insensitive deny-set for identity fields.
var placeholderExact = map[string]struct{}{
	"placeholder": {},
	"test":        {},
	"testing":     {},
	"dummy":       {},
	"default":     {},
	"example":     {},
	"sample":      {},
	"none":        {},
	"null":        {},
	"nil":         {},
	"undefined":   {},
	"unknown":     {},
	"anonymous":   {},
	"temp":        {},
	"changeme":    {},
	"todo":        {},
	"tbd":         {},
	"xxx":         {},
	"foo":         {},
	"bar":         {},
}

// placeholderPrefixes apply only to short values. testOnlyPrefix is the one
// prefix suppressed in dev/test environments, where test fixtures are
// expected to flow through.
var placeholderPrefixes = []string{
	"test_",
	"test-",
	"dummy_",
	"fake_",
	"mock_",
	"placeholder_",
	"temp_",
	"sample_",
}

const testOnlyPrefix = "test_"

// structuredIDPattern matches the recognized structured id shape:
// a short lowercase role prefix, an underscore, then hex/uuid segments.
var structuredIDPattern = regexp.MustCompile(`^[a-z][a-z0-9]{0,11}_[0-9a-fA-F][0-9a-fA-F-]{7,}(?:_[0-9a-zA-Z-]+)*$`)

// Environment answers whether execution happens in a test/dev environment.
// config.Environment satisfies it.
type Environment interface {
	IsDevOrTest() bool
}

// validator performs the pure construction-time checks. Format and
// cross-field mismatches are warnings only: multiple legitimate id schemes
// coexist in the fleet, and rejecting them would break real traffic.
type validator struct {
	env         Environment
	logger      *logging.Logger
	truncateLen int
}

// requireIdentity checks that an identity field is present and not a
// placeholder token.
func (v *validator) requireIdentity(field, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return newInvalid(ErrMissingField, field, "", v.truncateLen, "value is empty or whitespace")
	}

	lower := strings.ToLower(trimmed)
	if _, denied := placeholderExact[lower]; denied {
		return newInvalid(ErrPlaceholderValue, field, trimmed, v.truncateLen, "value is a known placeholder token")
	}

	if len(trimmed) < shortValueLen {
		for _, prefix := range placeholderPrefixes {
			if prefix == testOnlyPrefix && v.env != nil && v.env.IsDevOrTest() {
				continue
			}
			if strings.HasPrefix(lower, prefix) {
				return newInvalid(ErrPlaceholderValue, field, trimmed, v.truncateLen,
					"short value starts with placeholder prefix %q", prefix)
			}
		}
	}

	return nil
}

// checkRequestIDFormat warns when a request id matches neither the canonical
// random shape nor the recognized structured shape. Never an error.
func (v *validator) checkRequestIDFormat(requestID string) {
	if isCanonicalID(requestID) || structuredIDPattern.MatchString(requestID) {
		return
	}
	validationWarnings.WithLabelValues("request_id_format").Inc()
	v.logger.Warn("request id format mismatch",
		zap.String("request_id", truncate(requestID, v.truncateLen)))
}

// isCanonicalID reports whether the value is a bare uuid or a
// prefix-underscore-uuid produced by idgen.
func isCanonicalID(id string) bool {
	if _, err := uuid.Parse(id); err == nil {
		return true
	}
	if i := strings.Index(id, "_"); i > 0 {
		if _, err := uuid.Parse(id[i+1:]); err == nil {
			return true
		}
	}
	return false
}

// runThreadStrategy is one named way a run id may encode its thread id.
type runThreadStrategy struct {
	name  string
	match func(runID, threadCore string) bool
}

// runThreadStrategies enumerate the known encodings, checked in order. New id
// schemes get a new entry here; control flow never changes.
var runThreadStrategies = []runThreadStrategy{
	{
		name: "exact",
		match: func(runID, threadCore string) bool {
			return runID == idgen.RunPrefix+threadCore
		},
	},
	{
		name: "substring",
		match: func(runID, threadCore string) bool {
			return strings.Contains(runID, threadCore)
		},
	},
	{
		name: "prefix",
		match: func(runID, threadCore string) bool {
			return strings.HasPrefix(strings.TrimPrefix(runID, idgen.RunPrefix), threadCore[:min(8, len(threadCore))])
		},
	},
}

// checkRunThreadConsistency warns when a run id produced under the known
// generation convention does not encode its thread id. Best effort: ids from
// other schemes are skipped entirely.
func (v *validator) checkRunThreadConsistency(runID, threadID string) {
	if !strings.HasPrefix(threadID, idgen.ThreadPrefix) || !strings.HasPrefix(runID, idgen.RunPrefix) {
		return
	}
	core := idgen.ThreadCore(threadID)
	if core == "" {
		return
	}
	for _, s := range runThreadStrategies {
		if s.match(runID, core) {
			return
		}
	}
	validationWarnings.WithLabelValues("run_thread_consistency").Inc()
	v.logger.Warn("run id does not encode thread id under known convention",
		zap.String("run_id", truncate(runID, v.truncateLen)),
		zap.String("thread_id", truncate(threadID, v.truncateLen)))
}

// validateMetadata checks one caller-provided metadata map and returns a deep
// copy, so the caller's original stays safely reusable. A nil map yields an
// empty owned map.
func (v *validator) validateMetadata(mapName string, m map[string]any) (map[string]any, error) {
	if m == nil {
		return make(map[string]any), nil
	}
	for key := range m {
		if strings.TrimSpace(key) == "" {
			return nil, newInvalid(ErrInvalidMetadata, mapName, key, v.truncateLen, "blank metadata key")
		}
		if _, reserved := reservedKeys[strings.ToLower(key)]; reserved {
			return nil, newInvalid(ErrReservedKey, mapName, key, v.truncateLen,
				"key %q collides with a context field", key)
		}
	}
	return deepCopyMap(m), nil
}

// checkReservedKey guards single-entry with-style writes on a bare Context.
func checkReservedKey(mapName, key string) error {
	if strings.TrimSpace(key) == "" {
		return newInvalid(ErrInvalidMetadata, mapName, key, defaultTruncateLen, "blank metadata key")
	}
	if _, reserved := reservedKeys[strings.ToLower(key)]; reserved {
		return newInvalid(ErrReservedKey, mapName, key, defaultTruncateLen,
			"key %q collides with a context field", key)
	}
	return nil
}
