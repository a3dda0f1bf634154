package models

import "time"

// TelemetryBatch is one encrypted upload from an edge device. The payload is
// opaque ciphertext; the engine stores and counts it but never decodes it.
// BatchStart and BatchEnd are caller-supplied epoch seconds and are not
// validated, so BatchEnd may precede BatchStart.
type TelemetryBatch struct {
	DeviceID    string
	Payload     []byte
	BatchStart  float64
	BatchEnd    float64
	SampleCount int
	ReceivedAt  time.Time
}

// IngestReceipt confirms a stored batch. BatchID is the ledger position after
// any eviction, which equals the current store size.
type IngestReceipt struct {
	BatchID       int
	StoredBatches int
	ReceivedAt    time.Time
}

// AnalysisPeriod describes the window an analysis covered.
type AnalysisPeriod struct {
	Hours           float64
	BatchesAnalyzed int
	TotalSamples    int
}

// AnalysisResult is the derived threat assessment for one device window.
// It is computed on demand and never persisted.
type AnalysisResult struct {
	ThreatLevel     ThreatLevel
	ThreatScore     float64
	Confidence      float64
	Indicators      []string
	Recommendations []string
	Period          AnalysisPeriod
	CreatedAt       time.Time
}

// Analysis outcome statuses.
const (
	AnalysisStatusComplete         = "complete"
	AnalysisStatusInsufficientData = "insufficient_data"
)

// AnalysisOutcome distinguishes a computed assessment from the
// insufficient-data case, which is a successful status rather than an error.
type AnalysisOutcome struct {
	Status         string
	Message        string
	Recommendation string
	Result         *AnalysisResult
}

// HealthStatus reports store occupancy for liveness checks.
type HealthStatus struct {
	Status           string
	TelemetryBatches int
	ThreatsTracked   int
	Timestamp        time.Time
}
