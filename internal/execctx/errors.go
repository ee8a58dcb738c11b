package execctx

import (
	"errors"
	"fmt"
)

// Sentinel categories for construction and derivation failures. Match with
// errors.Is; the concrete error is always an *InvalidContextError.
var (
	ErrMissingField     = errors.New("missing required field")
	ErrPlaceholderValue = errors.New("placeholder value not allowed")
	ErrReservedKey      = errors.New("reserved key in metadata")
	ErrInvalidMetadata  = errors.New("invalid metadata map")
	ErrDepthExceeded    = errors.New("operation depth limit exceeded")
	ErrBlankOperation   = errors.New("operation name must not be blank")
	ErrIDGeneration     = errors.New("identifier generation failed")
)

// InvalidContextError reports a validation failure at construction or
// derivation time. Value is truncated so oversized or sensitive identifiers
// are not echoed wholesale into logs.
type InvalidContextError struct {
	Field  string
	Value  string
	Reason string
	kind   error
}

func (e *InvalidContextError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid context: field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid context: field %q: %s (value %q)", e.Field, e.Reason, e.Value)
}

func (e *InvalidContextError) Unwrap() error {
	return e.kind
}

// newInvalid builds an InvalidContextError with the given category sentinel.
func newInvalid(kind error, field, value string, truncateLen int, format string, args ...any) *InvalidContextError {
	return &InvalidContextError{
		Field:  field,
		Value:  truncate(value, truncateLen),
		Reason: fmt.Sprintf(format, args...),
		kind:   kind,
	}
}

// truncate shortens s to at most n runes. Slicing on rune boundaries keeps
// multibyte identifiers intact in error messages.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// IsolationError reports a detected sharing violation. Absence of this error
// is not a guarantee of isolation; the registry only knows identities that
// were explicitly registered.
type IsolationError struct {
	Subject   string // "working_map", "audit_map", or "resource"
	RequestID string
}

func (e *IsolationError) Error() string {
	return fmt.Sprintf("isolation violation: %s of context %s shares identity with registered shared state", e.Subject, e.RequestID)
}
