package store

import (
	"time"

	"github.com/sentinelstack/sentinel-analysis/internal/models"
)

// DefaultTelemetryCapacity bounds the rolling batch ledger.
const DefaultTelemetryCapacity = 10000

// TelemetryLedger is the shared rolling store of telemetry batches. Inserted
// batches are immutable; they leave the ledger only through oldest-first
// eviction once the capacity is exceeded.
type TelemetryLedger struct {
	batches *Bounded[models.TelemetryBatch]
	now     func() time.Time
}

// NewTelemetryLedger creates a ledger with the given capacity. now may be
// nil, in which case the system clock stamps received times.
func NewTelemetryLedger(capacity int, now func() time.Time) *TelemetryLedger {
	if capacity <= 0 {
		capacity = DefaultTelemetryCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &TelemetryLedger{
		batches: NewBounded[models.TelemetryBatch](capacity),
		now:     now,
	}
}

// Insert stamps the batch with the ledger clock and appends it, returning
// the stored batch and its position (the store length after eviction).
// Inserts never fail.
func (l *TelemetryLedger) Insert(batch models.TelemetryBatch) (models.TelemetryBatch, int) {
	batch.ReceivedAt = l.now()
	position := l.batches.Append(batch)
	return batch, position
}

// QueryByDeviceSince returns the device's batches received strictly after
// since, in insertion order. Unknown devices yield an empty sequence.
func (l *TelemetryLedger) QueryByDeviceSince(deviceID string, since time.Time) []models.TelemetryBatch {
	return l.batches.Select(func(b models.TelemetryBatch) bool {
		return b.DeviceID == deviceID && b.ReceivedAt.After(since)
	})
}

// QueryAllByDevice returns every stored batch for the device regardless of
// age, in insertion order.
func (l *TelemetryLedger) QueryAllByDevice(deviceID string) []models.TelemetryBatch {
	return l.batches.Select(func(b models.TelemetryBatch) bool {
		return b.DeviceID == deviceID
	})
}

// Len reports how many batches the ledger currently holds.
func (l *TelemetryLedger) Len() int {
	return l.batches.Len()
}

// DistinctDevices counts the distinct device identifiers across the full
// ledger, independent of any per-device time filtering.
func (l *TelemetryLedger) DistinctDevices() int {
	seen := make(map[string]struct{})
	l.batches.Range(func(b models.TelemetryBatch) {
		seen[b.DeviceID] = struct{}{}
	})
	return len(seen)
}

// TotalSamples sums the sample counts across all stored batches.
func (l *TelemetryLedger) TotalSamples() int {
	total := 0
	l.batches.Range(func(b models.TelemetryBatch) {
		total += b.SampleCount
	})
	return total
}

// CountReceivedSince counts batches received strictly after since.
func (l *TelemetryLedger) CountReceivedSince(since time.Time) int {
	count := 0
	l.batches.Range(func(b models.TelemetryBatch) {
		if b.ReceivedAt.After(since) {
			count++
		}
	})
	return count
}
