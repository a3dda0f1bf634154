package models

import "time"

// ThreatLevel buckets a threat score into a categorical severity.
type ThreatLevel string

const (
	ThreatLevelLow      ThreatLevel = "LOW"
	ThreatLevelModerate ThreatLevel = "MODERATE"
	ThreatLevelHigh     ThreatLevel = "HIGH"
	ThreatLevelCritical ThreatLevel = "CRITICAL"
)

// ThreatReport is an externally reported threat. Level and Confidence are
// caller-supplied and stored as-is; Confidence is not clamped to [0,1].
// Timestamp is the caller's clock, ReportedAt is assigned at insertion.
type ThreatReport struct {
	Level           ThreatLevel
	Confidence      float64
	Indicators      []string
	Recommendations []string
	Timestamp       float64
	ReportedAt      time.Time
}

// ThreatAck confirms an accepted threat report. Distributed is always true;
// no real network distribution occurs.
type ThreatAck struct {
	ThreatID    int
	Distributed bool
}

// NetworkStatistics aggregates anonymized activity across the full ledger.
type NetworkStatistics struct {
	TotalDevices    int
	TotalBatches    int
	TotalSamples    int
	BatchesLastHour int
	BatchesLastDay  int
}

// NetworkSnapshot is the shared threat-intelligence view. GlobalThreatLevel
// is a fixed constant, not derived from the stored threats.
type NetworkSnapshot struct {
	NetworkStatus     string
	Statistics        NetworkStatistics
	GlobalThreatLevel ThreatLevel
	KnownThreats      []ThreatReport
	GeneratedAt       time.Time
}
