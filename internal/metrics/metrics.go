package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Analysis outcome labels.
const (
	OutcomeComplete     = "complete"
	OutcomeInsufficient = "insufficient_data"
)

var (
	ingestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel_analysis",
			Name:      "ingests_total",
			Help:      "Total number of telemetry batches ingested.",
		},
	)

	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel_analysis",
			Name:      "analyses_total",
			Help:      "Total number of analysis requests handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sentinel_analysis",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)

	threatReportsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sentinel_analysis",
			Name:      "threat_reports_total",
			Help:      "Total number of accepted threat-intelligence reports.",
		},
	)

	forensicReportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sentinel_analysis",
			Name:      "forensic_reports_total",
			Help:      "Total number of forensic report requests, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	telemetryStoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sentinel_analysis",
			Name:      "telemetry_store_size",
			Help:      "Current number of batches held by the telemetry ledger.",
		},
	)

	threatStoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sentinel_analysis",
			Name:      "threat_store_size",
			Help:      "Current number of threats held by the intelligence store.",
		},
	)
)

// Register attaches all collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		ingestsTotal,
		analysesTotal,
		analysisDurationSeconds,
		threatReportsTotal,
		forensicReportsTotal,
		telemetryStoreSize,
		threatStoreSize,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveIngest records a stored batch and the resulting ledger size.
func ObserveIngest(storeSize int) {
	ingestsTotal.Inc()
	telemetryStoreSize.Set(float64(storeSize))
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	if outcome != OutcomeInsufficient {
		outcome = OutcomeComplete
	}
	analysesTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveThreatReport records an accepted threat report and the store size.
func ObserveThreatReport(storeSize int) {
	threatReportsTotal.Inc()
	threatStoreSize.Set(float64(storeSize))
}

// ObserveForensicReport records a forensic report request outcome.
func ObserveForensicReport(found bool) {
	outcome := "success"
	if !found {
		outcome = "not_found"
	}
	forensicReportsTotal.WithLabelValues(outcome).Inc()
}
