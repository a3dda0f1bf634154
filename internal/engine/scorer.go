package engine

import "github.com/sentinelstack/sentinel-analysis/internal/models"

// DefaultExpectedBatchesPerHour is the baseline upload density a healthy
// device is expected to sustain.
const DefaultExpectedBatchesPerHour = 6.0

// Scoring terms in tenths. Accumulating in tenths keeps the strict level
// comparisons exact at the 0.3 and 0.5 boundaries, where summing 0.1+0.2 as
// floats would drift just above 0.3. The anomaly term caps at 0.3 and the
// density term adds 0.2, so the maximum achievable score is 0.5 while the
// HIGH and CRITICAL thresholds sit above it; the upstream formula is
// preserved as-is rather than rebalanced.
const (
	anomalyTenthsPerFinding = 1
	anomalyTenthsCeiling    = 3
	densityShortfallTenths  = 2
)

// Assessment is the scorer's verdict for one device window.
type Assessment struct {
	Score           float64
	Level           models.ThreatLevel
	Confidence      float64
	Recommendations []string
}

// ThreatScorer combines anomaly findings and upload-density expectations
// into a bounded additive score. Scoring is deterministic: the same inputs
// always produce the same assessment.
type ThreatScorer struct {
	expectedPerHour float64
}

// NewThreatScorer constructs a scorer. A non-positive rate falls back to the
// default six-batches-per-hour baseline.
func NewThreatScorer(expectedPerHour float64) *ThreatScorer {
	if expectedPerHour <= 0 {
		expectedPerHour = DefaultExpectedBatchesPerHour
	}
	return &ThreatScorer{expectedPerHour: expectedPerHour}
}

// Score evaluates the two additive terms in fixed order: the capped anomaly
// contribution, then the density shortfall against the expected upload rate.
// Neither term short-circuits the other.
func (s *ThreatScorer) Score(anomalies []string, batchCount int, timeRangeHours float64, totalSamples int) Assessment {
	tenths := 0

	if len(anomalies) > 0 {
		contribution := len(anomalies) * anomalyTenthsPerFinding
		if contribution > anomalyTenthsCeiling {
			contribution = anomalyTenthsCeiling
		}
		tenths += contribution
	}

	// Missing uploads can indicate interference with the device.
	if float64(batchCount) < timeRangeHours*s.expectedPerHour {
		tenths += densityShortfallTenths
	}

	score := float64(tenths) / 10.0
	level := levelForScore(score)

	confidence := float64(totalSamples) / 10000.0
	if confidence > 0.95 {
		confidence = 0.95
	}

	return Assessment{
		Score:           score,
		Level:           level,
		Confidence:      confidence,
		Recommendations: recommendations(anomalies, batchCount, level),
	}
}

// levelForScore maps a score onto a categorical level using strict
// comparisons, first match wins.
func levelForScore(score float64) models.ThreatLevel {
	switch {
	case score > 0.7:
		return models.ThreatLevelCritical
	case score > 0.5:
		return models.ThreatLevelHigh
	case score > 0.3:
		return models.ThreatLevelModerate
	default:
		return models.ThreatLevelLow
	}
}

func recommendations(anomalies []string, batchCount int, level models.ThreatLevel) []string {
	recs := make([]string, 0, 4)
	if len(anomalies) > 0 {
		recs = append(recs, "Investigate telemetry gaps for possible interference")
	}
	if batchCount < 10 {
		recs = append(recs, "Continue baseline collection for improved accuracy")
	}
	if level == models.ThreatLevelHigh || level == models.ThreatLevelCritical {
		recs = append(recs, "Enable enhanced monitoring mode")
		recs = append(recs, "Review device for surveillance indicators")
	}
	if len(recs) == 0 {
		return []string{"Continue normal operation"}
	}
	return recs
}
