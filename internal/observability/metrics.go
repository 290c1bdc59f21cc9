package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Row outcomes reported on holiday_pay_import_rows_total.
const (
	OutcomeImported = "imported"
	OutcomeWarned   = "warned"
	// OutcomeConflict counts rows that passed validation but were dropped by
	// the insert because a concurrent import stored the same pair first.
	OutcomeConflict = "conflict"
)

var (
	importRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holiday_pay_import_rows_total",
			Help: "Rows processed by the payout request importer, by request type and outcome.",
		},
		[]string{"request_type", "outcome"},
	)

	imports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "holiday_pay_imports_total",
			Help: "Import calls by final status.",
		},
		[]string{"status"},
	)

	importDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "holiday_pay_import_duration_seconds",
			Help:    "Wall time of a full import call.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)
)

// ObserveImportRows adds n rows with the given outcome for requestType
// ("weekly" or "historic"). Zero is a no-op.
func ObserveImportRows(requestType, outcome string, n int) {
	if n <= 0 {
		return
	}
	importRows.WithLabelValues(requestType, outcome).Add(float64(n))
}

// ObserveImport records the status ("ok", "replay", "missing_header",
// "error") and duration of one import call.
func ObserveImport(status string, took time.Duration) {
	imports.WithLabelValues(status).Inc()
	importDuration.Observe(took.Seconds())
}
