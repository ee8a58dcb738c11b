package execctx

import (
	"context"
	"reflect"
	"time"
)

// schemaVersion marks the audit-map layout this package writes.
const schemaVersion = "2"

// CleanupFunc is one teardown action registered against a context. It runs
// during scope exit; a returned error is logged, never propagated.
type CleanupFunc func(ctx context.Context) error

// Resource is an externally-owned handle a context borrows for its lifetime.
// The scope releases it exactly once on exit; this package never creates one.
type Resource interface {
	Release(ctx context.Context) error
}

// Context is one in-flight unit of work for one user. It is immutable: there
// are no public mutators, and every with-style operation or derivation
// returns a new instance whose metadata maps are deep copies.
type Context struct {
	userID       string
	threadID     string
	runID        string
	requestID    string
	connectionID string

	createdAt time.Time

	working map[string]any
	audit   map[string]any

	depth           int
	parentRequestID string

	cleanups []CleanupFunc
	resource Resource
}

// Identity accessors.

func (c *Context) UserID() string          { return c.userID }
func (c *Context) ThreadID() string        { return c.threadID }
func (c *Context) RunID() string           { return c.runID }
func (c *Context) RequestID() string       { return c.requestID }
func (c *Context) ConnectionID() string    { return c.connectionID }
func (c *Context) CreatedAt() time.Time    { return c.createdAt }
func (c *Context) Depth() int              { return c.depth }
func (c *Context) ParentRequestID() string { return c.parentRequestID }

// IsRoot reports whether this context has no parent.
func (c *Context) IsRoot() bool { return c.depth == 0 }

// HasResource reports whether a resource is attached.
func (c *Context) HasResource() bool { return c.resource != nil }

// Resource returns the attached resource, or nil.
func (c *Context) Resource() Resource { return c.resource }

// Working returns a deep copy of the business-owned metadata map. Mutating
// the returned map never affects the context.
func (c *Context) Working() map[string]any { return deepCopyMap(c.working) }

// Audit returns a deep copy of the compliance/trace metadata map.
func (c *Context) Audit() map[string]any { return deepCopyMap(c.audit) }

// WorkingValue looks up one key in the working map.
func (c *Context) WorkingValue(key string) (any, bool) {
	v, ok := c.working[key]
	if !ok {
		return nil, false
	}
	return deepCopyValue(v), true
}

// AuditValue looks up one key in the audit map.
func (c *Context) AuditValue(key string) (any, bool) {
	v, ok := c.audit[key]
	if !ok {
		return nil, false
	}
	return deepCopyValue(v), true
}

// CleanupCount returns how many cleanup actions this instance owns.
func (c *Context) CleanupCount() int { return len(c.cleanups) }

// clone returns a copy owning its own maps and cleanup slice.
func (c *Context) clone() *Context {
	dup := *c
	dup.working = deepCopyMap(c.working)
	dup.audit = deepCopyMap(c.audit)
	dup.cleanups = make([]CleanupFunc, len(c.cleanups))
	copy(dup.cleanups, c.cleanups)
	return &dup
}

// WithResource returns a copy of the context with the resource attached. The
// handle moves by reference; the copy is its exclusive owner from the
// caller's point of view.
func (c *Context) WithResource(r Resource) *Context {
	dup := c.clone()
	dup.resource = r
	return dup
}

// WithConnectionID returns a copy with the transport routing key set.
func (c *Context) WithConnectionID(id string) *Context {
	dup := c.clone()
	dup.connectionID = id
	return dup
}

// WithCleanup returns a copy with one more cleanup action appended. Actions
// run in reverse registration order at scope exit.
func (c *Context) WithCleanup(fn CleanupFunc) *Context {
	dup := c.clone()
	if fn != nil {
		dup.cleanups = append(dup.cleanups, fn)
	}
	return dup
}

// WithWorkingValue returns a copy with one working-map entry set. Reserved
// keys are rejected.
func (c *Context) WithWorkingValue(key string, value any) (*Context, error) {
	if err := checkReservedKey("working_map", key); err != nil {
		return nil, err
	}
	dup := c.clone()
	dup.working[key] = deepCopyValue(value)
	return dup, nil
}

// WithAuditValue returns a copy with one audit-map entry set. Reserved keys
// are rejected.
func (c *Context) WithAuditValue(key string, value any) (*Context, error) {
	if err := checkReservedKey("audit_map", key); err != nil {
		return nil, err
	}
	dup := c.clone()
	dup.audit[key] = deepCopyValue(value)
	return dup, nil
}

// Equal compares two contexts by value. Cleanup actions are excluded, and
// attached resources are compared by presence only.
func (c *Context) Equal(other *Context) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.userID == other.userID &&
		c.threadID == other.threadID &&
		c.runID == other.runID &&
		c.requestID == other.requestID &&
		c.connectionID == other.connectionID &&
		c.createdAt.Equal(other.createdAt) &&
		c.depth == other.depth &&
		c.parentRequestID == other.parentRequestID &&
		c.HasResource() == other.HasResource() &&
		reflect.DeepEqual(c.working, other.working) &&
		reflect.DeepEqual(c.audit, other.audit)
}
