package execctx

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/netra-systems/zen-sub165/internal/config"
	"github.com/netra-systems/zen-sub165/internal/idgen"
	"github.com/netra-systems/zen-sub165/internal/isolation"
	"github.com/netra-systems/zen-sub165/internal/logging"
)

// Params carries caller-supplied fields for context construction. RequestID
// may be empty; the factory generates one. Working and Audit are never
// aliased: the factory deep-copies both.
type Params struct {
	UserID       string
	ThreadID     string
	RunID        string
	RequestID    string
	ConnectionID string

	Working map[string]any
	Audit   map[string]any
}

// Options configures a Factory. Every field has a usable default; Registry is
// optional and enables isolation verification.
type Options struct {
	Config    *config.Config
	Logger    *logging.Logger
	Generator idgen.Generator
	Registry  *isolation.Registry

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Factory is the single construction entry point for execution contexts.
// Every path routes through the same validator.
type Factory struct {
	cfg      config.ContextConfig
	env      Environment
	logger   *logging.Logger
	gen      idgen.Generator
	registry *isolation.Registry
	now      func() time.Time

	v *validator
}

// NewFactory creates a factory, filling in defaults for unset options.
func NewFactory(opts Options) *Factory {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	gen := opts.Generator
	if gen == nil {
		gen = idgen.NewUUIDGenerator()
	}
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	f := &Factory{
		cfg:      cfg.Context,
		env:      cfg.Environment,
		logger:   logger.Named("execctx"),
		gen:      gen,
		registry: opts.Registry,
		now:      now,
	}
	f.v = &validator{
		env:         f.env,
		logger:      f.logger,
		truncateLen: f.cfg.ValueTruncateLen,
	}
	return f
}

// New constructs a root context from plain parameters.
func (f *Factory) New(p Params) (*Context, error) {
	c, err := f.build(p, "plain")
	if err != nil {
		return nil, err
	}
	return c, nil
}

// transportAuditHeaders is the bounded allow-list of diagnostic headers
// harvested into the audit map. Anything not listed here is dropped.
var transportAuditHeaders = map[string]string{
	"Origin":           "origin",
	"Content-Type":     "content_type",
	"User-Agent":       "user_agent",
	"Traceparent":      "traceparent",
	"X-Request-Id":     "transport_request_id",
	"X-Trace-Id":       "trace_id",
	"X-Span-Id":        "span_id",
	"X-Correlation-Id": "transport_correlation_id",
	"X-Forwarded-For":  "client_ip",
}

// FromTransport constructs a root context from plain parameters plus
// transport headers. A fixed allow-list of diagnostic headers lands in the
// audit map; unknown headers are dropped.
func (f *Factory) FromTransport(p Params, headers http.Header) (*Context, error) {
	if len(headers) > 0 {
		harvested := make(map[string]any)
		for header, auditKey := range transportAuditHeaders {
			if value := headers.Get(header); value != "" {
				harvested[auditKey] = value
			}
		}
		if len(harvested) > 0 {
			p.Audit = mergeMaps(p.Audit, harvested)
		}
	}
	return f.build(p, "transport")
}

// NewDeterministicSession constructs a root context for a (user, operation)
// tuple, deriving the remaining identifiers from the generator under one
// fixed convention. Identical tuples always map to the same thread and run
// ids; distinct tuples never collide. Generator failures come back as a
// typed error, never raw.
func (f *Factory) NewDeterministicSession(userID, operation string) (*Context, error) {
	if strings.TrimSpace(operation) == "" {
		return nil, newInvalid(ErrBlankOperation, "operation_name", operation, f.cfg.ValueTruncateLen,
			"value is empty or whitespace")
	}

	ids, err := f.gen.SessionIDs(strings.TrimSpace(userID), strings.TrimSpace(operation))
	if err != nil {
		return nil, newInvalid(ErrIDGeneration, "session_ids", "", f.cfg.ValueTruncateLen,
			"generator rejected (user, operation) tuple: %v", err)
	}

	return f.build(Params{
		UserID:    userID,
		ThreadID:  ids.ThreadID,
		RunID:     ids.RunID,
		RequestID: ids.RequestID,
		Working:   map[string]any{"operation": operation},
	}, "session")
}

// FromLegacyMetadata constructs a root context from a single merged metadata
// map, classified into working and audit buckets by the fixed keyword table.
// Classified entries overlay anything already present in p. For equivalent
// inputs this path is behaviorally indistinguishable from New.
func (f *Factory) FromLegacyMetadata(p Params, merged map[string]any) (*Context, error) {
	working, audit := classifyMetadata(merged)
	p.Working = mergeMaps(p.Working, working)
	p.Audit = mergeMaps(p.Audit, audit)
	return f.build(p, "legacy")
}

// build is the shared construction path: trim, generate missing request id,
// validate, deep-copy metadata, seed the audit map.
func (f *Factory) build(p Params, path string) (*Context, error) {
	userID := strings.TrimSpace(p.UserID)
	threadID := strings.TrimSpace(p.ThreadID)
	runID := strings.TrimSpace(p.RunID)
	requestID := strings.TrimSpace(p.RequestID)

	if requestID == "" {
		generated, err := f.gen.NewRequestID()
		if err != nil {
			return nil, newInvalid(ErrIDGeneration, "request_id", "", f.cfg.ValueTruncateLen,
				"could not generate request id: %v", err)
		}
		requestID = generated
	}

	for _, check := range []struct{ field, value string }{
		{"user_id", userID},
		{"thread_id", threadID},
		{"run_id", runID},
		{"request_id", requestID},
	} {
		if err := f.v.requireIdentity(check.field, check.value); err != nil {
			return nil, err
		}
	}

	f.v.checkRequestIDFormat(requestID)
	f.v.checkRunThreadConsistency(runID, threadID)

	working, err := f.v.validateMetadata("working_map", p.Working)
	if err != nil {
		return nil, err
	}
	audit, err := f.v.validateMetadata("audit_map", p.Audit)
	if err != nil {
		return nil, err
	}

	createdAt := f.now().UTC()
	seedAudit(audit, createdAt)

	c := &Context{
		userID:       userID,
		threadID:     threadID,
		runID:        runID,
		requestID:    requestID,
		connectionID: strings.TrimSpace(p.ConnectionID),
		createdAt:    createdAt,
		working:      working,
		audit:        audit,
	}

	contextsCreated.WithLabelValues(path).Inc()
	f.logger.Debug("context created",
		zap.String("path", path),
		zap.String("correlation_id", c.CorrelationID()))
	return c, nil
}

// DeriveChild produces a new, independently-owned context one hierarchy level
// below parent. Identity carries over; metadata is deep-copied and overlaid;
// the attached resource and connection id carry over by reference. The parent
// is never modified.
func (f *Factory) DeriveChild(parent *Context, operation string, extraWorking, extraAudit map[string]any) (*Context, error) {
	if parent == nil {
		return nil, newInvalid(ErrMissingField, "parent", "", f.cfg.ValueTruncateLen, "parent context is nil")
	}
	if strings.TrimSpace(operation) == "" {
		return nil, newInvalid(ErrBlankOperation, "operation_name", operation, f.cfg.ValueTruncateLen,
			"value is empty or whitespace")
	}
	if parent.depth >= f.cfg.MaxOperationDepth {
		return nil, newInvalid(ErrDepthExceeded, "operation_depth", "", f.cfg.ValueTruncateLen,
			"parent depth %d has reached the limit of %d", parent.depth, f.cfg.MaxOperationDepth)
	}

	extraW, err := f.v.validateMetadata("working_map", extraWorking)
	if err != nil {
		return nil, err
	}
	extraA, err := f.v.validateMetadata("audit_map", extraAudit)
	if err != nil {
		return nil, err
	}

	requestID, err := f.gen.NewRequestID()
	if err != nil {
		return nil, newInvalid(ErrIDGeneration, "request_id", "", f.cfg.ValueTruncateLen,
			"could not generate request id: %v", err)
	}

	operation = strings.TrimSpace(operation)
	depth := parent.depth + 1
	derivedAt := f.now().UTC()

	working := deepCopyMap(parent.working)
	if parentOp, ok := parent.working["operation"]; ok {
		working["parent_operation"] = deepCopyValue(parentOp)
	}
	working["operation"] = operation
	working["depth"] = depth
	for k, v := range extraW {
		working[k] = v
	}

	audit := deepCopyMap(parent.audit)
	audit["parent_request_id"] = parent.requestID
	audit["operation"] = operation
	audit["depth"] = depth
	audit["derived_at"] = derivedAt.Format(time.RFC3339Nano)
	for k, v := range extraA {
		audit[k] = v
	}

	child := &Context{
		userID:          parent.userID,
		threadID:        parent.threadID,
		runID:           parent.runID,
		requestID:       requestID,
		connectionID:    parent.connectionID,
		createdAt:       derivedAt,
		working:         working,
		audit:           audit,
		depth:           depth,
		parentRequestID: parent.requestID,
		resource:        parent.resource,
	}

	childDerivations.Inc()
	f.logger.Debug("child context derived",
		zap.String("operation", operation),
		zap.Int("depth", depth),
		zap.String("parent_request_id", parent.requestID))
	return child, nil
}

// VerifyIsolation checks the context against the factory's isolation
// registry. A nil registry disables the check.
func (f *Factory) VerifyIsolation(c *Context) error {
	return VerifyIsolation(f.registry, c)
}

// VerifyIsolation fails when either metadata map or the attached resource
// shares identity with state registered as intentionally shared. Best-effort
// diagnostic: a nil error is not proof of isolation.
func VerifyIsolation(reg *isolation.Registry, c *Context) error {
	if reg == nil || c == nil {
		return nil
	}
	if reg.IsShared(c.working) {
		isolationViolations.Inc()
		return &IsolationError{Subject: "working_map", RequestID: c.requestID}
	}
	if reg.IsShared(c.audit) {
		isolationViolations.Inc()
		return &IsolationError{Subject: "audit_map", RequestID: c.requestID}
	}
	if c.resource != nil && reg.IsShared(c.resource) {
		isolationViolations.Inc()
		return &IsolationError{Subject: "resource", RequestID: c.requestID}
	}
	return nil
}

// seedAudit stamps the compliance fields every root context starts with.
// Derived contexts inherit these from the parent and overlay their own
// depth and parent linkage in DeriveChild.
func seedAudit(audit map[string]any, createdAt time.Time) {
	audit["context_created_at"] = createdAt.Format(time.RFC3339Nano)
	audit["schema_version"] = schemaVersion
	audit["isolation_verified"] = true
	audit["depth"] = 0
}
