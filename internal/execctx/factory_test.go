package execctx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netra-systems/zen-sub165/internal/idgen"
)

// stubGenerator mints predictable ids and can be told to fail.
type stubGenerator struct {
	seq        int
	requestErr error
	sessionErr error
}

func (g *stubGenerator) NewRequestID() (string, error) {
	if g.requestErr != nil {
		return "", g.requestErr
	}
	g.seq++
	return fmt.Sprintf("req_%08d-0000-4000-8000-000000000000", g.seq), nil
}

func (g *stubGenerator) SessionIDs(userID, operation string) (idgen.SessionIDs, error) {
	if g.sessionErr != nil {
		return idgen.SessionIDs{}, g.sessionErr
	}
	requestID, err := g.NewRequestID()
	if err != nil {
		return idgen.SessionIDs{}, err
	}
	return idgen.SessionIDs{
		ThreadID:  "thread_stub-core",
		RunID:     "run_stub-core_0000",
		RequestID: requestID,
	}, nil
}

func TestNew_AutoGeneratesRequestID(t *testing.T) {
	f := newTestFactory(t)
	c := mustContext(t, f, baseParams())

	assert.True(t, strings.HasPrefix(c.RequestID(), idgen.RequestPrefix))
}

func TestNew_TrimsIdentityFields(t *testing.T) {
	f := newTestFactory(t)
	p := Params{
		UserID:   "  alice-7f3a  ",
		ThreadID: "\tconv-41c2\n",
		RunID:    " exec-98aa ",
	}
	c := mustContext(t, f, p)

	assert.Equal(t, "alice-7f3a", c.UserID())
	assert.Equal(t, "conv-41c2", c.ThreadID())
	assert.Equal(t, "exec-98aa", c.RunID())
}

func TestNew_SeedsAuditMap(t *testing.T) {
	f := newTestFactory(t)
	c := mustContext(t, f, baseParams())

	audit := c.Audit()
	assert.Equal(t, "2026-02-14T10:30:00Z", audit["context_created_at"])
	assert.Equal(t, schemaVersion, audit["schema_version"])
	assert.Equal(t, true, audit["isolation_verified"])
	assert.Equal(t, 0, audit["depth"])
	assert.NotContains(t, audit, "parent_request_id")
}

func TestNew_MetadataIsolatedFromCaller(t *testing.T) {
	f := newTestFactory(t)
	p := baseParams()
	p.Working = map[string]any{"agent_type": "planner", "nested": map[string]any{"k": "v"}}
	p.Audit = map[string]any{"audit_note": "initial"}
	c := mustContext(t, f, p)

	// Mutating the caller's maps after construction must not reach the entity.
	p.Working["agent_type"] = "mutated"
	p.Working["nested"].(map[string]any)["k"] = "mutated"
	p.Audit["audit_note"] = "mutated"

	v, _ := c.WorkingValue("agent_type")
	assert.Equal(t, "planner", v)
	nested, _ := c.WorkingValue("nested")
	assert.Equal(t, "v", nested.(map[string]any)["k"])
	a, _ := c.AuditValue("audit_note")
	assert.Equal(t, "initial", a)
}

func TestFromTransport_HarvestsAllowListedHeaders(t *testing.T) {
	f := newTestFactory(t)
	headers := http.Header{}
	headers.Set("Origin", "https://app.example.com")
	headers.Set("Content-Type", "application/json")
	headers.Set("X-Trace-Id", "trace-123")
	headers.Set("Traceparent", "00-abc-def-01")
	headers.Set("X-Forwarded-For", "192.0.2.7")
	headers.Set("X-Secret-Token", "must-not-appear")
	headers.Set("Authorization", "Bearer must-not-appear")

	c, err := f.FromTransport(baseParams(), headers)
	require.NoError(t, err)

	audit := c.Audit()
	assert.Equal(t, "https://app.example.com", audit["origin"])
	assert.Equal(t, "application/json", audit["content_type"])
	assert.Equal(t, "trace-123", audit["trace_id"])
	assert.Equal(t, "00-abc-def-01", audit["traceparent"])
	assert.Equal(t, "192.0.2.7", audit["client_ip"])

	serialized := fmt.Sprintf("%v", audit)
	assert.NotContains(t, serialized, "must-not-appear")
}

func TestFromTransport_NoHeadersBehavesLikeNew(t *testing.T) {
	f := newTestFactory(t)
	p := baseParams()
	p.RequestID = "req-fixed01"

	plain := mustContext(t, f, p)
	transported, err := f.FromTransport(p, nil)
	require.NoError(t, err)

	assert.True(t, plain.Equal(transported))
}

func TestNewDeterministicSession(t *testing.T) {
	f := newTestFactory(t)

	a, err := f.NewDeterministicSession("alice-7f3a", "summarize")
	require.NoError(t, err)
	b, err := f.NewDeterministicSession("alice-7f3a", "summarize")
	require.NoError(t, err)

	assert.Equal(t, a.ThreadID(), b.ThreadID())
	assert.Equal(t, a.RunID(), b.RunID())
	assert.NotEqual(t, a.RequestID(), b.RequestID())

	op, ok := a.WorkingValue("operation")
	require.True(t, ok)
	assert.Equal(t, "summarize", op)
}

func TestNewDeterministicSession_BlankOperation(t *testing.T) {
	f := newTestFactory(t)
	_, err := f.NewDeterministicSession("alice-7f3a", "   ")
	require.ErrorIs(t, err, ErrBlankOperation)
}

func TestNewDeterministicSession_WrapsGeneratorFailure(t *testing.T) {
	boom := errors.New("entropy exhausted")
	f := NewFactory(Options{
		Generator: &stubGenerator{sessionErr: boom},
		Clock:     testClock,
	})

	_, err := f.NewDeterministicSession("alice-7f3a", "summarize")
	require.ErrorIs(t, err, ErrIDGeneration)
	var ice *InvalidContextError
	require.ErrorAs(t, err, &ice)
	// The raw generator error is wrapped, not leaked as-is.
	assert.NotErrorIs(t, err, boom)
	assert.Contains(t, ice.Reason, "entropy exhausted")
}

func TestFromLegacyMetadata_Classification(t *testing.T) {
	f := newTestFactory(t)

	c, err := f.FromLegacyMetadata(baseParams(), map[string]any{
		"agent_type":  "x",
		"audit_trace": "y",
	})
	require.NoError(t, err)

	working := c.Working()
	v, ok := working["agent_type"]
	require.True(t, ok)
	assert.Equal(t, "x", v)
	assert.NotContains(t, working, "audit_trace")

	audit := c.Audit()
	assert.Equal(t, "y", audit["audit_trace"])
	assert.Equal(t, 0, audit["depth"])
	assert.NotContains(t, audit, "parent_request_id")
	assert.Equal(t, 0, c.Depth())
	assert.Empty(t, c.ParentRequestID())
}

func TestFromLegacyMetadata_EquivalentToNew(t *testing.T) {
	f := newTestFactory(t)
	p := baseParams()
	p.RequestID = "req-fixed01"

	viaLegacy, err := f.FromLegacyMetadata(p, map[string]any{
		"agent_type":  "x",
		"audit_trace": "y",
	})
	require.NoError(t, err)

	direct := p
	direct.Working = map[string]any{"agent_type": "x"}
	direct.Audit = map[string]any{"audit_trace": "y"}
	viaNew, err := f.New(direct)
	require.NoError(t, err)

	assert.True(t, viaLegacy.Equal(viaNew))
}

func TestFromLegacyMetadata_ReservedKeyStillRejected(t *testing.T) {
	f := newTestFactory(t)
	_, err := f.FromLegacyMetadata(baseParams(), map[string]any{"user_id": "x"})
	require.ErrorIs(t, err, ErrReservedKey)
}

func TestRequestIDGenerationFailureWrapped(t *testing.T) {
	f := NewFactory(Options{
		Generator: &stubGenerator{requestErr: errors.New("rng down")},
		Clock:     testClock,
	})
	_, err := f.New(baseParams())
	require.ErrorIs(t, err, ErrIDGeneration)
}
