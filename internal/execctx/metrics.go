// Prometheus metrics for context lifecycle health monitoring.
package execctx

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// contextsCreated counts contexts by construction path.
	// Labels: path (plain, transport, session, legacy)
	contextsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zen",
			Subsystem: "execctx",
			Name:      "contexts_created_total",
			Help:      "Total number of execution contexts created by construction path",
		},
		[]string{"path"},
	)

	// childDerivations counts successful child derivations.
	childDerivations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zen",
			Subsystem: "execctx",
			Name:      "child_derivations_total",
			Help:      "Total number of child context derivations",
		},
	)

	// cleanupActions counts cleanup action executions.
	// Labels: result (success, error)
	cleanupActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zen",
			Subsystem: "execctx",
			Name:      "cleanup_actions_total",
			Help:      "Total number of cleanup actions run at scope exit",
		},
		[]string{"result"},
	)

	// resourceReleases counts attached-resource releases.
	// Labels: result (success, error)
	resourceReleases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zen",
			Subsystem: "execctx",
			Name:      "resource_releases_total",
			Help:      "Total number of attached resource releases at scope exit",
		},
		[]string{"result"},
	)

	// isolationViolations counts detected sharing violations.
	isolationViolations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "zen",
			Subsystem: "execctx",
			Name:      "isolation_violations_total",
			Help:      "Total number of detected isolation violations",
		},
	)

	// validationWarnings counts warning-only validator findings.
	// Labels: check (request_id_format, run_thread_consistency)
	validationWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zen",
			Subsystem: "execctx",
			Name:      "validation_warnings_total",
			Help:      "Total number of warning-only validation findings",
		},
		[]string{"check"},
	)
)
