// Package metrics provides Prometheus metrics recording for internal packages.
// This package exists to avoid import cycles between the repository and cache
// packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// hydratedEntities tracks how many entities each hydration loaded
	hydratedEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workspace_engine_hydrated_entities",
			Help: "Number of entities loaded by the last cache hydration",
		},
		[]string{"entity"},
	)

	// cacheOps tracks cache repository operations
	cacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_engine_cache_operations_total",
			Help: "Total number of cache repository operations",
		},
		[]string{"entity", "operation"},
	)

	// storeWriteFailures tracks failed store propagations
	storeWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_engine_store_write_failures_total",
			Help: "Total number of failed store write propagations",
		},
		[]string{"entity", "mode"},
	)

	// integrityViolations tracks polymorphic rows with no specialization
	integrityViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workspace_engine_data_integrity_violations_total",
			Help: "Total number of data integrity violations detected at the store read boundary",
		},
		[]string{"entity"},
	)
)

// RecordHydration records the entity count of a hydration pass
func RecordHydration(entity string, count int) {
	hydratedEntities.WithLabelValues(entity).Set(float64(count))
}

// RecordCacheOp records a cache repository operation
func RecordCacheOp(entity, operation string) {
	cacheOps.WithLabelValues(entity, operation).Inc()
}

// RecordStoreWriteFailure records a failed store propagation.
// Mode is "awaited" or "detached".
func RecordStoreWriteFailure(entity, mode string) {
	storeWriteFailures.WithLabelValues(entity, mode).Inc()
}

// RecordIntegrityViolation records a detected data integrity violation
func RecordIntegrityViolation(entity string) {
	integrityViolations.WithLabelValues(entity).Inc()
}
