// Package execctx implements the per-request user execution context: an
// immutable value object carrying one user's identity, metadata, and cleanup
// obligations for one in-flight unit of work.
//
// Isolation is the point. Two concurrent requests must never observe the same
// backing map, so every construction, derivation, and with-style operation
// deep-copies metadata instead of aliasing it. Correctness comes from never
// sharing mutable structures, not from locking.
//
// Construction always goes through a Factory, which validates identity fields
// against placeholder deny-lists and routes metadata through reserved-key
// checks. A Scope guarantees that cleanup actions run in reverse registration
// order on every exit path, and an isolation.Registry provides best-effort
// detection of accidental sharing.
package execctx
