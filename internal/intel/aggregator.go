package intel

import (
	"time"

	"github.com/sentinelstack/sentinel-analysis/internal/models"
	"github.com/sentinelstack/sentinel-analysis/internal/store"
)

// DefaultThreatCapacity bounds the shared threat database.
const DefaultThreatCapacity = 1000

// LedgerStats is the ledger view the aggregator needs for anonymized
// network-wide statistics.
type LedgerStats interface {
	Len() int
	DistinctDevices() int
	TotalSamples() int
	CountReceivedSince(since time.Time) int
}

// Aggregator maintains the bounded store of externally reported threats and
// assembles the shared intelligence snapshot. Reports are stored as
// submitted; confidence values are not clamped and levels are not rederived.
type Aggregator struct {
	threats *store.Bounded[models.ThreatReport]
	ledger  LedgerStats
	now     func() time.Time
}

// NewAggregator creates an aggregator with the given threat capacity. now
// may be nil, defaulting to the system clock.
func NewAggregator(capacity int, ledger LedgerStats, now func() time.Time) *Aggregator {
	if capacity <= 0 {
		capacity = DefaultThreatCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{
		threats: store.NewBounded[models.ThreatReport](capacity),
		ledger:  ledger,
		now:     now,
	}
}

// Report stamps the submission time and stores the threat, returning its
// position (the store length after eviction).
func (a *Aggregator) Report(report models.ThreatReport) int {
	report.ReportedAt = a.now()
	return a.threats.Append(report)
}

// ThreatCount reports how many threats are currently tracked.
func (a *Aggregator) ThreatCount() int {
	return a.threats.Len()
}

// Snapshot assembles the anonymized network view: distinct-device and batch
// totals from the full ledger, recent-activity counts, and the complete
// threat store. The global level is a fixed constant, not derived from the
// stored threats.
func (a *Aggregator) Snapshot() models.NetworkSnapshot {
	now := a.now()

	return models.NetworkSnapshot{
		NetworkStatus: "operational",
		Statistics: models.NetworkStatistics{
			TotalDevices:    a.ledger.DistinctDevices(),
			TotalBatches:    a.ledger.Len(),
			TotalSamples:    a.ledger.TotalSamples(),
			BatchesLastHour: a.ledger.CountReceivedSince(now.Add(-time.Hour)),
			BatchesLastDay:  a.ledger.CountReceivedSince(now.Add(-24 * time.Hour)),
		},
		GlobalThreatLevel: models.ThreatLevelLow,
		KnownThreats:      a.threats.Snapshot(),
		GeneratedAt:       now,
	}
}
