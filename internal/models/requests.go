package models

import "time"

// AnalysisRequest asks for a threat assessment over a device's recent window.
// TimeRangeHours of zero means the configured default window.
type AnalysisRequest struct {
	DeviceID       string
	TimeRangeHours float64
}

// ForensicPeriod bounds the telemetry covered by a forensic report.
// DurationHours is surfaced raw and may be negative when batch timestamps
// are malformed.
type ForensicPeriod struct {
	Start         time.Time
	End           time.Time
	DurationHours float64
}

// DataIntegrity summarises the evidence base of a forensic report.
type DataIntegrity struct {
	TotalBatches   int
	TotalSamples   int
	Encryption     string
	ChainOfCustody string
}

// ForensicFindings carries analysis placeholders; the forensic endpoint does
// not run the anomaly detector, so these are always empty.
type ForensicFindings struct {
	SurveillanceIndicators []string
	InterferenceEvents     []string
	AnomalousPatterns      []string
}

// LegalCertification is the fixed admissibility block attached to reports.
type LegalCertification struct {
	Admissible        bool
	Standard          string
	IntegrityVerified bool
}

// ForensicReport is the structured per-device evidence summary.
type ForensicReport struct {
	ReportID    string
	ReportType  string
	GeneratedAt time.Time
	DeviceID    string
	Period      ForensicPeriod
	Integrity   DataIntegrity
	Findings    ForensicFindings
	Legal       LegalCertification
}
