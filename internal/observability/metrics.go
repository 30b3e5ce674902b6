package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	rowsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconcile_service",
		Subsystem: "normalize",
		Name:      "rows_total",
		Help:      "Import rows processed by the normalizer, by vendor and outcome.",
	}, []string{"vendor", "outcome"})

	candidatesCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconcile_service",
		Subsystem: "match",
		Name:      "candidates_total",
		Help:      "Match candidates produced, split by matched and unmatched.",
	}, []string{"verdict"})

	applyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reconcile_service",
		Subsystem: "apply",
		Name:      "decisions_total",
		Help:      "Applied reconciliation decisions by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(rowsCounter, candidatesCounter, applyCounter)
}

// RecordNormalized updates the per-vendor row counters for one import.
func RecordNormalized(vendor string, accepted, rejected, skipped int) {
	rowsCounter.WithLabelValues(vendor, "accepted").Add(float64(accepted))
	rowsCounter.WithLabelValues(vendor, "rejected").Add(float64(rejected))
	rowsCounter.WithLabelValues(vendor, "skipped").Add(float64(skipped))
}

// RecordMatches updates the matched/unmatched candidate counters.
func RecordMatches(matched, unmatched int) {
	candidatesCounter.WithLabelValues("matched").Add(float64(matched))
	candidatesCounter.WithLabelValues("unmatched").Add(float64(unmatched))
}

// RecordApplyOutcome updates the per-outcome apply counters for a batch.
func RecordApplyOutcome(inserted, replaced, combined, ignored, failed int) {
	applyCounter.WithLabelValues("inserted").Add(float64(inserted))
	applyCounter.WithLabelValues("replaced").Add(float64(replaced))
	applyCounter.WithLabelValues("combined").Add(float64(combined))
	applyCounter.WithLabelValues("ignored").Add(float64(ignored))
	applyCounter.WithLabelValues("failed").Add(float64(failed))
}
