package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sentinelstack/sentinel-analysis/internal/cache"
	"github.com/sentinelstack/sentinel-analysis/internal/engine"
	"github.com/sentinelstack/sentinel-analysis/internal/intel"
	"github.com/sentinelstack/sentinel-analysis/internal/models"
	"github.com/sentinelstack/sentinel-analysis/internal/store"
)

func newTestService(t *testing.T, cacheProvider cache.Provider) (*AnalysisService, *store.TelemetryLedger) {
	t.Helper()

	now := func() time.Time { return time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC) }
	ledger := store.NewTelemetryLedger(10000, now)
	aggregator := intel.NewAggregator(1000, ledger, now)

	svc := NewAnalysisService(
		nil,
		ledger,
		engine.NewIntervalDetector(0),
		engine.NewThreatScorer(0),
		aggregator,
		cacheProvider,
		Options{DefaultWindowHours: 24, ResultTTL: time.Minute},
		now,
	)
	return svc, ledger
}

// insertChain stores batches whose consecutive gaps equal the given values.
func insertChain(svc *AnalysisService, deviceID string, gaps []float64, samplesPer int) int {
	start := 1000.0
	count := len(gaps) + 1
	for i := 0; i < count; i++ {
		svc.Ingest(models.TelemetryBatch{
			DeviceID:    deviceID,
			Payload:     []byte("ciphertext"),
			BatchStart:  start,
			BatchEnd:    start + 10,
			SampleCount: samplesPer,
		})
		if i < len(gaps) {
			start += 10 + gaps[i]
		}
	}
	return count
}

func TestIngestReceipt(t *testing.T) {
	svc, _ := newTestService(t, nil)

	receipt := svc.Ingest(models.TelemetryBatch{DeviceID: "d1", SampleCount: 5})
	if receipt.BatchID != 1 || receipt.StoredBatches != 1 {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if receipt.ReceivedAt.IsZero() {
		t.Fatalf("expected stamped receipt time")
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	svc, _ := newTestService(t, nil)

	outcome := svc.Analyze(context.Background(), models.AnalysisRequest{DeviceID: "ghost"})
	if outcome.Status != models.AnalysisStatusInsufficientData {
		t.Fatalf("expected insufficient_data, got %q", outcome.Status)
	}
	if outcome.Result != nil {
		t.Fatalf("insufficient data must not carry a result")
	}
	if outcome.Message != "No telemetry in last 24 hours" {
		t.Fatalf("unexpected message %q", outcome.Message)
	}
	if outcome.Recommendation != "Continue baseline collection" {
		t.Fatalf("unexpected recommendation %q", outcome.Recommendation)
	}
}

func TestAnalyzeNegativeWindowEchoedBack(t *testing.T) {
	svc, _ := newTestService(t, nil)

	// A negative window puts the cutoff in the future, so even a device
	// with stored batches resolves to insufficient_data for that range.
	insertChain(svc, "d1", []float64{100, 100}, 10)

	outcome := svc.Analyze(context.Background(), models.AnalysisRequest{DeviceID: "d1", TimeRangeHours: -1})
	if outcome.Status != models.AnalysisStatusInsufficientData {
		t.Fatalf("expected insufficient_data, got %q", outcome.Status)
	}
	if outcome.Message != "No telemetry in last -1 hours" {
		t.Fatalf("unexpected message %q", outcome.Message)
	}
}

func TestAnalyzeSteadyUploadsScoreDensityOnly(t *testing.T) {
	svc, _ := newTestService(t, nil)

	// Three batches with identical gaps: no anomalies, but 3 < 24*6 so the
	// density term fires.
	insertChain(svc, "d1", []float64{100, 100}, 50)

	outcome := svc.Analyze(context.Background(), models.AnalysisRequest{DeviceID: "d1", TimeRangeHours: 24})
	if outcome.Status != models.AnalysisStatusComplete {
		t.Fatalf("expected complete, got %q", outcome.Status)
	}
	res := outcome.Result
	if len(res.Indicators) != 0 {
		t.Fatalf("expected no anomalies, got %v", res.Indicators)
	}
	if res.Period.BatchesAnalyzed != 3 {
		t.Fatalf("expected 3 batches analyzed, got %d", res.Period.BatchesAnalyzed)
	}
	if res.ThreatScore != 0.2 {
		t.Fatalf("expected score 0.2, got %v", res.ThreatScore)
	}
	if res.ThreatLevel != models.ThreatLevelLow {
		t.Fatalf("expected LOW, got %s", res.ThreatLevel)
	}
	if res.Period.TotalSamples != 150 {
		t.Fatalf("expected 150 samples, got %d", res.Period.TotalSamples)
	}
}

func TestAnalyzeOutlierGapBoundaryStaysLow(t *testing.T) {
	svc, _ := newTestService(t, nil)

	// Twelve steady gaps plus one 50x outlier: exactly one anomaly (0.1)
	// plus the density term (0.2) lands on the 0.3 boundary, which the
	// strict comparison keeps at LOW.
	gaps := make([]float64, 12)
	for i := range gaps {
		gaps[i] = 100
	}
	gaps = append(gaps, 5000)
	insertChain(svc, "d1", gaps, 10)

	outcome := svc.Analyze(context.Background(), models.AnalysisRequest{DeviceID: "d1", TimeRangeHours: 24})
	res := outcome.Result
	if len(res.Indicators) != 1 {
		t.Fatalf("expected exactly 1 anomaly, got %v", res.Indicators)
	}
	if res.ThreatScore != 0.3 {
		t.Fatalf("expected boundary score 0.3, got %v", res.ThreatScore)
	}
	if res.ThreatLevel != models.ThreatLevelLow {
		t.Fatalf("expected LOW at boundary, got %s", res.ThreatLevel)
	}
}

func TestAnalyzeServesCachedOutcome(t *testing.T) {
	provider := cache.NewMemoryProvider()
	svc, _ := newTestService(t, provider)

	insertChain(svc, "d1", []float64{100, 100}, 10)
	first := svc.Analyze(context.Background(), models.AnalysisRequest{DeviceID: "d1", TimeRangeHours: 24})
	if first.Status != models.AnalysisStatusComplete {
		t.Fatalf("expected complete, got %q", first.Status)
	}

	// New uploads within the TTL are invisible to the cached window.
	insertChain(svc, "d1", []float64{100, 100, 100, 100}, 10)
	second := svc.Analyze(context.Background(), models.AnalysisRequest{DeviceID: "d1", TimeRangeHours: 24})
	if second.Result.Period.BatchesAnalyzed != first.Result.Period.BatchesAnalyzed {
		t.Fatalf("expected cached batch count %d, got %d",
			first.Result.Period.BatchesAnalyzed, second.Result.Period.BatchesAnalyzed)
	}
}

func TestReportThreatAck(t *testing.T) {
	svc, _ := newTestService(t, nil)

	ack := svc.ReportThreat(models.ThreatReport{Level: models.ThreatLevelHigh, Confidence: 0.9})
	if ack.ThreatID != 1 {
		t.Fatalf("expected threat id 1, got %d", ack.ThreatID)
	}
	if !ack.Distributed {
		t.Fatalf("expected distribution acknowledgement")
	}
}

func TestNetworkSnapshotCountsDistinctDevices(t *testing.T) {
	svc, _ := newTestService(t, nil)

	insertChain(svc, "d1", []float64{100}, 10)
	insertChain(svc, "d2", []float64{100}, 10)
	insertChain(svc, "d1", []float64{100}, 10)

	snap := svc.NetworkSnapshot()
	if snap.Statistics.TotalDevices != 2 {
		t.Fatalf("expected 2 distinct devices, got %d", snap.Statistics.TotalDevices)
	}
	if snap.Statistics.TotalBatches != 6 {
		t.Fatalf("expected 6 batches, got %d", snap.Statistics.TotalBatches)
	}
	if snap.GlobalThreatLevel != models.ThreatLevelLow {
		t.Fatalf("expected constant LOW, got %s", snap.GlobalThreatLevel)
	}
}

func TestForensicReportNotFound(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.ForensicReport("ghost")
	if !errors.Is(err, ErrNoTelemetry) {
		t.Fatalf("expected ErrNoTelemetry, got %v", err)
	}
}

func TestForensicReportTimeline(t *testing.T) {
	svc, _ := newTestService(t, nil)

	svc.Ingest(models.TelemetryBatch{DeviceID: "d1", BatchStart: 7200, BatchEnd: 10800, SampleCount: 10})
	svc.Ingest(models.TelemetryBatch{DeviceID: "d1", BatchStart: 0, BatchEnd: 3600, SampleCount: 20})

	report, err := svc.ForensicReport("d1")
	if err != nil {
		t.Fatalf("forensic report: %v", err)
	}
	if report.ReportType != "SACS_FORENSIC_ANALYSIS" {
		t.Fatalf("unexpected report type %q", report.ReportType)
	}
	// min(start)=0, max(end)=10800 -> 3 hours.
	if report.Period.DurationHours != 3 {
		t.Fatalf("expected 3 hour duration, got %v", report.Period.DurationHours)
	}
	if report.Integrity.TotalBatches != 2 || report.Integrity.TotalSamples != 30 {
		t.Fatalf("unexpected integrity block: %+v", report.Integrity)
	}
	if len(report.Findings.SurveillanceIndicators) != 0 ||
		len(report.Findings.InterferenceEvents) != 0 ||
		len(report.Findings.AnomalousPatterns) != 0 {
		t.Fatalf("findings must stay empty: %+v", report.Findings)
	}
	if !report.Legal.Admissible || !report.Legal.IntegrityVerified {
		t.Fatalf("unexpected legal block: %+v", report.Legal)
	}
	if report.ReportID == "" {
		t.Fatalf("expected assigned report id")
	}
}

func TestForensicReportNegativeDuration(t *testing.T) {
	svc, _ := newTestService(t, nil)

	// Malformed range: end precedes start. The raw negative duration must
	// surface without a crash.
	svc.Ingest(models.TelemetryBatch{DeviceID: "d1", BatchStart: 7200, BatchEnd: 0, SampleCount: 1})

	report, err := svc.ForensicReport("d1")
	if err != nil {
		t.Fatalf("forensic report: %v", err)
	}
	if report.Period.DurationHours != -2 {
		t.Fatalf("expected raw -2 hour duration, got %v", report.Period.DurationHours)
	}
}

func TestHealth(t *testing.T) {
	svc, _ := newTestService(t, nil)

	insertChain(svc, "d1", []float64{100}, 10)
	svc.ReportThreat(models.ThreatReport{Level: models.ThreatLevelLow})

	health := svc.Health()
	if health.Status != "healthy" {
		t.Fatalf("unexpected status %q", health.Status)
	}
	if health.TelemetryBatches != 2 || health.ThreatsTracked != 1 {
		t.Fatalf("unexpected health counts: %+v", health)
	}
}
