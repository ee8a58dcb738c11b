package execctx

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/netra-systems/zen-sub165/internal/logging"
)

var tracer = otel.Tracer("github.com/netra-systems/zen-sub165/internal/execctx")

// Scope guarantees teardown on every exit path of one unit of work: cleanup
// actions run in strict reverse registration order, then the attached
// resource is released. Cleanup failures are logged and counted, never
// propagated: a bad cleanup action must not mask the real outcome or block
// the actions after it. The in-scope error (or panic) propagates unchanged
// after teardown completes.
type Scope struct {
	c        *Context
	logger   *logging.Logger
	deferred []CleanupFunc
}

// NewScope wraps a context for scoped execution. A nil logger falls back to
// a no-op logger.
func NewScope(c *Context, logger *logging.Logger) *Scope {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scope{
		c:      c,
		logger: logger.Named("scope").With(zap.String("correlation_id", c.CorrelationID())),
	}
}

// Context returns the entity this scope manages.
func (s *Scope) Context() *Context { return s.c }

// Defer registers an additional cleanup action for this scope. Actions run
// after the entity's own cleanup actions are accounted for, in reverse
// registration order overall.
func (s *Scope) Defer(fn CleanupFunc) {
	if fn != nil {
		s.deferred = append(s.deferred, fn)
	}
}

// Run executes fn with the scoped context. Teardown is installed with defer,
// so it fires on normal return, on error, on panic, and under
// cancellation-driven unwind alike. Panics propagate unchanged after
// teardown.
func (s *Scope) Run(ctx context.Context, fn func(context.Context, *Context) error) (err error) {
	ctx, span := tracer.Start(ctx, "execctx.scope",
		trace.WithAttributes(
			attribute.String("context.correlation_id", s.c.CorrelationID()),
			attribute.Int("context.operation_depth", s.c.Depth()),
		))
	defer span.End()
	defer s.teardown(ctx, span)

	err = fn(ctx, s.c)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// teardown runs every cleanup action in strict reverse registration order,
// then releases the attached resource. It uses a context detached from
// cancellation: teardown must finish even when the request's context is
// already dead.
func (s *Scope) teardown(ctx context.Context, span trace.Span) {
	ctx = context.WithoutCancel(ctx)

	// Entity-held actions were registered before scope-level defers, so the
	// combined reverse order is: scope defers backwards, then entity actions
	// backwards.
	actions := make([]CleanupFunc, 0, len(s.c.cleanups)+len(s.deferred))
	actions = append(actions, s.c.cleanups...)
	actions = append(actions, s.deferred...)

	for i := len(actions) - 1; i >= 0; i-- {
		if cleanupErr := runCleanup(ctx, actions[i]); cleanupErr != nil {
			cleanupActions.WithLabelValues("error").Inc()
			span.AddEvent("cleanup action failed")
			s.logger.Error("cleanup action failed",
				zap.Int("position", i),
				zap.Error(cleanupErr))
		} else {
			cleanupActions.WithLabelValues("success").Inc()
		}
	}

	if s.c.resource != nil {
		if releaseErr := releaseResource(ctx, s.c.resource); releaseErr != nil {
			resourceReleases.WithLabelValues("error").Inc()
			span.AddEvent("resource release failed")
			s.logger.Error("resource release failed", zap.Error(releaseErr))
		} else {
			resourceReleases.WithLabelValues("success").Inc()
		}
	}
}

// runCleanup isolates one action so a panicking cleanup cannot skip the rest.
func runCleanup(ctx context.Context, fn CleanupFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup action panicked: %v", r)
		}
	}()
	return fn(ctx)
}

func releaseResource(ctx context.Context, r Resource) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("resource release panicked: %v", rec)
		}
	}()
	return r.Release(ctx)
}
