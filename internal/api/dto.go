package api

import (
	"github.com/sentinelstack/sentinel-analysis/internal/models"
	"github.com/sentinelstack/sentinel-analysis/internal/utils"
)

// Wire types for the JSON API. Timestamps travel as float epoch seconds
// except forensic period bounds, which are RFC 3339 strings.

type uploadRequest struct {
	DeviceID      string  `json:"device_id"`
	EncryptedData string  `json:"encrypted_data"`
	BatchStart    float64 `json:"batch_start"`
	BatchEnd      float64 `json:"batch_end"`
	SampleCount   int     `json:"sample_count"`
}

type uploadResponse struct {
	Status        string  `json:"status"`
	BatchID       int     `json:"batch_id"`
	ReceivedAt    float64 `json:"received_at"`
	BatchesStored int     `json:"batches_stored"`
}

type analysisRequest struct {
	DeviceID       string  `json:"device_id"`
	TimeRangeHours float64 `json:"time_range_hours"`
}

type analysisPeriod struct {
	Hours           float64 `json:"hours"`
	BatchesAnalyzed int     `json:"batches_analyzed"`
	TotalSamples    int     `json:"total_samples"`
}

type analysisResponse struct {
	Status          string         `json:"status"`
	ThreatLevel     string         `json:"threat_level"`
	ThreatScore     float64        `json:"threat_score"`
	Confidence      float64        `json:"confidence"`
	Period          analysisPeriod `json:"analysis_period"`
	Indicators      []string       `json:"indicators"`
	Recommendations []string       `json:"recommendations"`
	Timestamp       float64        `json:"timestamp"`
}

type insufficientDataResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

type threatReportRequest struct {
	ThreatLevel     string   `json:"threat_level"`
	Confidence      float64  `json:"confidence"`
	Indicators      []string `json:"indicators"`
	Recommendations []string `json:"recommendations"`
	Timestamp       float64  `json:"timestamp"`
}

type threatAckResponse struct {
	Status               string `json:"status"`
	ThreatID             int    `json:"threat_id"`
	DistributedToNetwork bool   `json:"distributed_to_network"`
}

type knownThreat struct {
	ThreatLevel     string   `json:"threat_level"`
	Confidence      float64  `json:"confidence"`
	Indicators      []string `json:"indicators"`
	Recommendations []string `json:"recommendations"`
	ReportedAt      float64  `json:"reported_at"`
	Timestamp       float64  `json:"timestamp"`
}

type networkStatistics struct {
	TotalDevices    int `json:"total_devices"`
	TotalBatches    int `json:"total_batches"`
	TotalSamples    int `json:"total_samples"`
	BatchesLastHour int `json:"batches_last_hour"`
	BatchesLastDay  int `json:"batches_last_day"`
}

type globalThreatsResponse struct {
	NetworkStatus     string            `json:"network_status"`
	Statistics        networkStatistics `json:"statistics"`
	GlobalThreatLevel string            `json:"global_threat_level"`
	KnownThreats      []knownThreat     `json:"known_threats"`
	Timestamp         float64           `json:"timestamp"`
}

type forensicRequest struct {
	DeviceID string `json:"device_id"`
}

type forensicPeriod struct {
	Start         string  `json:"start"`
	End           string  `json:"end"`
	DurationHours float64 `json:"duration_hours"`
}

type dataIntegrity struct {
	TotalBatches   int    `json:"total_batches"`
	TotalSamples   int    `json:"total_samples"`
	Encryption     string `json:"encryption"`
	ChainOfCustody string `json:"chain_of_custody"`
}

type forensicFindings struct {
	SurveillanceIndicators []string `json:"surveillance_indicators"`
	InterferenceEvents     []string `json:"interference_events"`
	AnomalousPatterns      []string `json:"anomalous_patterns"`
}

type legalCertification struct {
	Admissible        bool   `json:"admissible"`
	Standard          string `json:"standard"`
	IntegrityVerified bool   `json:"integrity_verified"`
}

type forensicResponse struct {
	ReportID    string             `json:"report_id"`
	ReportType  string             `json:"report_type"`
	GeneratedAt string             `json:"generated_at"`
	DeviceID    string             `json:"device_id"`
	Period      forensicPeriod     `json:"analysis_period"`
	Integrity   dataIntegrity      `json:"data_integrity"`
	Findings    forensicFindings   `json:"findings"`
	Legal       legalCertification `json:"legal_certification"`
}

type healthResponse struct {
	Status           string  `json:"status"`
	TelemetryBatches int     `json:"telemetry_batches_stored"`
	ThreatsTracked   int     `json:"threats_tracked"`
	Timestamp        float64 `json:"timestamp"`
}

type bannerResponse struct {
	Service      string   `json:"service"`
	Version      string   `json:"version"`
	Status       string   `json:"status"`
	Capabilities []string `json:"capabilities"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// fromWireUpload maps an upload request into a domain batch. The ciphertext
// stays opaque; it is stored byte for byte.
func fromWireUpload(req uploadRequest) models.TelemetryBatch {
	return models.TelemetryBatch{
		DeviceID:    req.DeviceID,
		Payload:     []byte(req.EncryptedData),
		BatchStart:  req.BatchStart,
		BatchEnd:    req.BatchEnd,
		SampleCount: req.SampleCount,
	}
}

func fromWireThreat(req threatReportRequest) models.ThreatReport {
	return models.ThreatReport{
		Level:           models.ThreatLevel(req.ThreatLevel),
		Confidence:      req.Confidence,
		Indicators:      nonNil(req.Indicators),
		Recommendations: nonNil(req.Recommendations),
		Timestamp:       req.Timestamp,
	}
}

func toWireAnalysis(res *models.AnalysisResult) analysisResponse {
	return analysisResponse{
		Status:      models.AnalysisStatusComplete,
		ThreatLevel: string(res.ThreatLevel),
		ThreatScore: res.ThreatScore,
		Confidence:  res.Confidence,
		Period: analysisPeriod{
			Hours:           res.Period.Hours,
			BatchesAnalyzed: res.Period.BatchesAnalyzed,
			TotalSamples:    res.Period.TotalSamples,
		},
		Indicators:      nonNil(res.Indicators),
		Recommendations: nonNil(res.Recommendations),
		Timestamp:       utils.EpochSeconds(res.CreatedAt),
	}
}

func toWireSnapshot(snap models.NetworkSnapshot) globalThreatsResponse {
	threats := make([]knownThreat, 0, len(snap.KnownThreats))
	for _, t := range snap.KnownThreats {
		threats = append(threats, knownThreat{
			ThreatLevel:     string(t.Level),
			Confidence:      t.Confidence,
			Indicators:      nonNil(t.Indicators),
			Recommendations: nonNil(t.Recommendations),
			ReportedAt:      utils.EpochSeconds(t.ReportedAt),
			Timestamp:       t.Timestamp,
		})
	}
	return globalThreatsResponse{
		NetworkStatus: snap.NetworkStatus,
		Statistics: networkStatistics{
			TotalDevices:    snap.Statistics.TotalDevices,
			TotalBatches:    snap.Statistics.TotalBatches,
			TotalSamples:    snap.Statistics.TotalSamples,
			BatchesLastHour: snap.Statistics.BatchesLastHour,
			BatchesLastDay:  snap.Statistics.BatchesLastDay,
		},
		GlobalThreatLevel: string(snap.GlobalThreatLevel),
		KnownThreats:      threats,
		Timestamp:         utils.EpochSeconds(snap.GeneratedAt),
	}
}

func toWireForensic(report models.ForensicReport) forensicResponse {
	return forensicResponse{
		ReportID:    report.ReportID,
		ReportType:  report.ReportType,
		GeneratedAt: report.GeneratedAt.Format(rfc3339Layout),
		DeviceID:    report.DeviceID,
		Period: forensicPeriod{
			Start:         report.Period.Start.Format(rfc3339Layout),
			End:           report.Period.End.Format(rfc3339Layout),
			DurationHours: report.Period.DurationHours,
		},
		Integrity: dataIntegrity{
			TotalBatches:   report.Integrity.TotalBatches,
			TotalSamples:   report.Integrity.TotalSamples,
			Encryption:     report.Integrity.Encryption,
			ChainOfCustody: report.Integrity.ChainOfCustody,
		},
		Findings: forensicFindings{
			SurveillanceIndicators: nonNil(report.Findings.SurveillanceIndicators),
			InterferenceEvents:     nonNil(report.Findings.InterferenceEvents),
			AnomalousPatterns:      nonNil(report.Findings.AnomalousPatterns),
		},
		Legal: legalCertification{
			Admissible:        report.Legal.Admissible,
			Standard:          report.Legal.Standard,
			IntegrityVerified: report.Legal.IntegrityVerified,
		},
	}
}

const rfc3339Layout = "2006-01-02T15:04:05.999999Z07:00"

// nonNil keeps empty lists as [] on the wire instead of null.
func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
