// Package metrics defines the Prometheus collectors exposed at /metrics,
// tracking the publish protocol's health (§4.E) the way the domain stack
// wiring in SPEC_FULL calls for.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// PublishAttemptsTotal counts every publish-begin/publish-commit
	// call, labeled by step and outcome, so operators can see stale-
	// fingerprint churn under concurrent publishers (spec §4.E).
	PublishAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repod_publish_attempts_total",
		Help: "Publish coordinator calls by step and outcome.",
	}, []string{"step", "outcome"})

	// CatalogConflictsTotal is the counter for serialization failures the
	// catalog store classifies as apierror.CatalogConflict (spec §4.C). It
	// is registered by Registry, but no code path in repod increments it.
	CatalogConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "repod_catalog_conflicts_total",
		Help: "Serializable-transaction conflicts, by operation.",
	}, []string{"operation"})

	// IndexBytes observes the size of every generated Packages/Release
	// index (spec §4.D), by kind.
	IndexBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "repod_index_bytes",
		Help:    "Size in bytes of generated index files.",
		Buckets: prometheus.ExponentialBuckets(256, 4, 12),
	}, []string{"kind"})
)

// Registry returns a fresh registry with repod's collectors registered,
// for wiring into an HTTP /metrics handler.
func Registry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(PublishAttemptsTotal, CatalogConflictsTotal, IndexBytes)
	return reg
}
