// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application. The degraded-case
// counters mirror the pipeline's data-quality taxonomy: malformed records,
// join mismatches and duplicate timestamps degrade, they never abort a run.
type Metrics struct {
	// Fetch metrics
	MarketsFetched      prometheus.Counter
	ObservationsFetched prometheus.Counter
	FetchErrors         *prometheus.CounterVec

	// Normalization metrics
	MarketsNormalized prometheus.Counter
	MalformedRecords  *prometheus.CounterVec

	// Alignment metrics
	ObservationsAligned prometheus.Counter
	JoinUnmatched       prometheus.Counter
	JoinFanOut          prometheus.Counter
	DuplicateTimestamps prometheus.Counter

	// Feature metrics
	FeatureRowsComputed prometheus.Counter
	InstrumentGroups    prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	StageDuration     *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulPipeline prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "polymarket_feature_lab"
	}

	return &Metrics{
		// Fetch metrics
		MarketsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "markets_fetched_total",
			Help:      "Total number of markets fetched from the CLOB API",
		}),
		ObservationsFetched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "observations_fetched_total",
			Help:      "Total number of price observations fetched",
		}),
		FetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Total number of fetch errors by endpoint",
		}, []string{"endpoint"}),

		// Normalization metrics
		MarketsNormalized: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "markets_normalized_total",
			Help:      "Total number of market records flattened",
		}),
		MalformedRecords: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "normalization",
			Name:      "malformed_records_total",
			Help:      "Total number of records degraded to sentinel values by source",
		}, []string{"source"}),

		// Alignment metrics
		ObservationsAligned: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "observations_aligned_total",
			Help:      "Total number of observations carried into the aligned table",
		}),
		JoinUnmatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "join_unmatched_total",
			Help:      "Total number of observations with no metadata match",
		}),
		JoinFanOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "join_fanout_total",
			Help:      "Total number of extra rows produced by multi-match join keys",
		}),
		DuplicateTimestamps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alignment",
			Name:      "duplicate_timestamps_total",
			Help:      "Total number of same-instrument duplicate timestamps dropped keep-last",
		}),

		// Feature metrics
		FeatureRowsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "rows_computed_total",
			Help:      "Total number of feature rows computed",
		}),
		InstrumentGroups: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "instrument_groups",
			Help:      "Number of instrument groups in the last pipeline run",
		}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"status"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "End-to-end pipeline run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Per-stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		// Health metrics
		LastSuccessfulPipeline: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of the last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
