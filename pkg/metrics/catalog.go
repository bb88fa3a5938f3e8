package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "basketwise"

// CatalogMetrics tracks product resolution outcomes.
type CatalogMetrics struct {
	resolutions *prometheus.CounterVec
	conflicts   prometheus.Counter
	lockWaits   *prometheus.CounterVec
}

// NewCatalogMetrics registers catalog metrics. A nil registerer yields a no-op recorder.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	resolutions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_resolutions_total",
		Help:      "Product resolutions by match strategy and outcome.",
	}, []string{"matched_by", "outcome"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_resolution_conflicts_total",
		Help:      "Resolutions retried after a unique index conflict.",
	})
	lockWaits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "catalog_resolution_lock_total",
		Help:      "Resolution lock acquisitions by result.",
	}, []string{"result"})
	reg.MustRegister(resolutions, conflicts, lockWaits)
	return &CatalogMetrics{resolutions: resolutions, conflicts: conflicts, lockWaits: lockWaits}
}

// IncResolution counts one finished resolution. outcome is created, updated or matched.
func (c *CatalogMetrics) IncResolution(matchedBy, outcome string) {
	if c == nil || c.resolutions == nil {
		return
	}
	c.resolutions.WithLabelValues(normalizeLabel(matchedBy), normalizeLabel(outcome)).Inc()
}

// IncConflict counts a retry caused by a concurrent insert.
func (c *CatalogMetrics) IncConflict() {
	if c == nil || c.conflicts == nil {
		return
	}
	c.conflicts.Inc()
}

// IncLock counts a lock attempt result: acquired, timeout or error.
func (c *CatalogMetrics) IncLock(result string) {
	if c == nil || c.lockWaits == nil {
		return
	}
	c.lockWaits.WithLabelValues(normalizeLabel(result)).Inc()
}

// CartMetrics tracks basket comparisons.
type CartMetrics struct {
	duration prometheus.Histogram
	branches prometheus.Histogram
	failures *prometheus.CounterVec
}

// NewCartMetrics registers cart metrics. A nil registerer yields a no-op recorder.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cart_calculation_duration_seconds",
		Help:      "Time spent computing a basket comparison.",
		Buckets:   prometheus.DefBuckets,
	})
	branches := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "cart_calculation_branches",
		Help:      "Branches considered per basket comparison.",
		Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_calculation_failures_total",
		Help:      "Failed basket comparisons by error code.",
	}, []string{"code"})
	reg.MustRegister(duration, branches, failures)
	return &CartMetrics{duration: duration, branches: branches, failures: failures}
}

// Observe records a successful comparison.
func (c *CartMetrics) Observe(elapsed time.Duration, branchCount int) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.Observe(elapsed.Seconds())
	c.branches.Observe(float64(branchCount))
}

// IncFailure counts a failed comparison.
func (c *CartMetrics) IncFailure(code string) {
	if c == nil || c.failures == nil {
		return
	}
	c.failures.WithLabelValues(normalizeLabel(code)).Inc()
}
