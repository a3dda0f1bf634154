package engine

import (
	"fmt"
	"math"

	"github.com/sentinelstack/sentinel-analysis/internal/models"
)

// DefaultSigmaThreshold is the fixed outlier cutoff in standard deviations.
const DefaultSigmaThreshold = 3.0

// IntervalDetector flags statistical outliers in the spacing between
// consecutive telemetry batches. The input sequence is taken in insertion
// order; it is not re-sorted by batch time.
type IntervalDetector struct {
	sigma float64
}

// NewIntervalDetector constructs a detector. A non-positive sigma falls back
// to the default three-standard-deviation cutoff.
func NewIntervalDetector(sigma float64) *IntervalDetector {
	if sigma <= 0 {
		sigma = DefaultSigmaThreshold
	}
	return &IntervalDetector{sigma: sigma}
}

// Detect computes the gap between each consecutive batch pair (start of the
// later minus end of the earlier) and returns one indicator per gap whose
// distance from the mean exceeds sigma standard deviations. Fewer than two
// batches yield no gaps and therefore no indicators. When every gap is
// identical the standard deviation is zero and the strict comparison flags
// nothing; no division is involved, so the zero case needs no special
// handling.
func (d *IntervalDetector) Detect(batches []models.TelemetryBatch) []string {
	if len(batches) < 2 {
		return nil
	}

	gaps := make([]float64, 0, len(batches)-1)
	for i := 1; i < len(batches); i++ {
		gaps = append(gaps, batches[i].BatchStart-batches[i-1].BatchEnd)
	}

	mean := 0.0
	for _, gap := range gaps {
		mean += gap
	}
	mean /= float64(len(gaps))

	variance := 0.0
	for _, gap := range gaps {
		variance += math.Pow(gap-mean, 2)
	}
	variance /= float64(len(gaps))
	stdDev := math.Sqrt(variance)

	var indicators []string
	for i, gap := range gaps {
		if math.Abs(gap-mean) > d.sigma*stdDev {
			indicators = append(indicators, fmt.Sprintf("Unusual gap in telemetry at batch %d", i))
		}
	}
	return indicators
}
