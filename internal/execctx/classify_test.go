package execctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyMetadata(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		bucket string
	}{
		{"audit token", "audit_trace", "audit"},
		{"compliance token", "compliance_flag", "audit"},
		{"trace token", "trace_parent", "audit"},
		{"log token", "log_level", "audit"},
		{"exact parent key", "parent_request_id", "audit"},
		{"exact depth key wins over operation token", "operation_depth", "audit"},
		{"exact client ip", "client_ip", "audit"},
		{"exact user agent", "user_agent", "audit"},
		{"agent token", "agent_type", "working"},
		{"operation token", "operation_name", "working"},
		{"workflow token", "workflow_stage", "working"},
		{"execution token", "execution_mode", "working"},
		{"state token", "state_snapshot", "working"},
		{"unmatched defaults to working", "favorite_color", "working"},
		{"case insensitive", "AUDIT_LOG", "audit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			working, audit := classifyMetadata(map[string]any{tt.key: "v"})
			if tt.bucket == "audit" {
				assert.Contains(t, audit, tt.key)
				assert.NotContains(t, working, tt.key)
			} else {
				assert.Contains(t, working, tt.key)
				assert.NotContains(t, audit, tt.key)
			}
		})
	}
}

func TestClassifyMetadata_Deterministic(t *testing.T) {
	merged := map[string]any{
		"agent_type":  "x",
		"audit_trace": "y",
		"misc":        "z",
	}
	w1, a1 := classifyMetadata(merged)
	w2, a2 := classifyMetadata(merged)
	assert.Equal(t, w1, w2)
	assert.Equal(t, a1, a2)
}

func TestClassifyMetadata_DoesNotAliasInput(t *testing.T) {
	merged := map[string]any{"agent_state": map[string]any{"k": "v"}}
	working, _ := classifyMetadata(merged)

	merged["agent_state"].(map[string]any)["k"] = "mutated"
	assert.Equal(t, "v", working["agent_state"].(map[string]any)["k"])
}

func TestClassifyMetadata_EmptyInput(t *testing.T) {
	working, audit := classifyMetadata(nil)
	assert.Empty(t, working)
	assert.Empty(t, audit)
}
