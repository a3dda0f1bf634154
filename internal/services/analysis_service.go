package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/sentinelstack/sentinel-analysis/internal/cache"
	"github.com/sentinelstack/sentinel-analysis/internal/engine"
	"github.com/sentinelstack/sentinel-analysis/internal/intel"
	"github.com/sentinelstack/sentinel-analysis/internal/metrics"
	"github.com/sentinelstack/sentinel-analysis/internal/models"
	"github.com/sentinelstack/sentinel-analysis/internal/store"
	"github.com/sentinelstack/sentinel-analysis/internal/utils"
)

// ErrNoTelemetry signals a forensic report request for a device with no
// stored batches.
var ErrNoTelemetry = errors.New("no telemetry found for device")

// Fixed forensic report fields. The analysis placeholders stay empty because
// the forensic endpoint intentionally does not run the anomaly detector.
const (
	forensicReportType = "SACS_FORENSIC_ANALYSIS"
	forensicEncryption = "Fernet (AES-128)"
	forensicCustody    = "Preserved"
	forensicStandard   = "Federal Rules of Evidence 901"
)

// Options bundles the tunables for the analysis facade.
type Options struct {
	DefaultWindowHours float64
	ResultTTL          time.Duration
}

// AnalysisService is the request-facing facade over the shared stores and
// the analysis engine. Each method is an independent unit of work; the
// stores provide their own exclusion.
type AnalysisService struct {
	logger    *slog.Logger
	ledger    *store.TelemetryLedger
	detector  *engine.IntervalDetector
	scorer    *engine.ThreatScorer
	intel     *intel.Aggregator
	cache     cache.Provider
	opts      Options
	latencies *utils.LatencyTracker
	now       func() time.Time
}

// NewAnalysisService constructs the facade. cacheProvider may be nil, in
// which case results are never cached; now may be nil for the system clock.
func NewAnalysisService(
	logger *slog.Logger,
	ledger *store.TelemetryLedger,
	detector *engine.IntervalDetector,
	scorer *engine.ThreatScorer,
	aggregator *intel.Aggregator,
	cacheProvider cache.Provider,
	opts Options,
	now func() time.Time,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if opts.DefaultWindowHours <= 0 {
		opts.DefaultWindowHours = 24
	}
	if now == nil {
		now = time.Now
	}
	return &AnalysisService{
		logger:    logger,
		ledger:    ledger,
		detector:  detector,
		scorer:    scorer,
		intel:     aggregator,
		cache:     cacheProvider,
		opts:      opts,
		latencies: utils.NewLatencyTracker(1024),
		now:       now,
	}
}

// Ingest stores an encrypted batch. Inserts never fail; the receipt carries
// the assigned position, which doubles as the current store size.
func (s *AnalysisService) Ingest(batch models.TelemetryBatch) models.IngestReceipt {
	stored, position := s.ledger.Insert(batch)
	metrics.ObserveIngest(position)

	s.logger.Debug("telemetry batch stored",
		slog.String("device_id", stored.DeviceID),
		slog.Int("position", position),
		slog.Int("sample_count", stored.SampleCount))

	return models.IngestReceipt{
		BatchID:       position,
		StoredBatches: position,
		ReceivedAt:    stored.ReceivedAt,
	}
}

// Analyze runs the gap detector and threat scorer over the device's recent
// window. A window with no batches yields the insufficient_data outcome, a
// successful status distinct from a zero score. Results may be served from
// cache; staleness is bounded by the configured TTL.
func (s *AnalysisService) Analyze(ctx context.Context, req models.AnalysisRequest) models.AnalysisOutcome {
	// Only the zero value (absent on the wire) falls back to the default.
	// Negative windows are kept: the cutoff lands in the future, so they
	// resolve to insufficient_data echoing the requested range.
	hours := req.TimeRangeHours
	if hours == 0 {
		hours = s.opts.DefaultWindowHours
	}

	key := analysisCacheKey(req.DeviceID, hours)
	if payload, err := s.cache.Get(ctx, key); err == nil {
		var outcome models.AnalysisOutcome
		if err := json.Unmarshal(payload, &outcome); err == nil {
			return outcome
		}
	}

	start := time.Now()
	cutoff := s.now().Add(-time.Duration(hours * float64(time.Hour)))
	batches := s.ledger.QueryByDeviceSince(req.DeviceID, cutoff)

	if len(batches) == 0 {
		metrics.ObserveAnalysis(time.Since(start), metrics.OutcomeInsufficient)
		return models.AnalysisOutcome{
			Status:         models.AnalysisStatusInsufficientData,
			Message:        fmt.Sprintf("No telemetry in last %g hours", hours),
			Recommendation: "Continue baseline collection",
		}
	}

	totalSamples := 0
	for _, b := range batches {
		totalSamples += b.SampleCount
	}

	anomalies := s.detector.Detect(batches)
	assessment := s.scorer.Score(anomalies, len(batches), hours, totalSamples)

	outcome := models.AnalysisOutcome{
		Status: models.AnalysisStatusComplete,
		Result: &models.AnalysisResult{
			ThreatLevel:     assessment.Level,
			ThreatScore:     assessment.Score,
			Confidence:      assessment.Confidence,
			Indicators:      anomalies,
			Recommendations: assessment.Recommendations,
			Period: models.AnalysisPeriod{
				Hours:           hours,
				BatchesAnalyzed: len(batches),
				TotalSamples:    totalSamples,
			},
			CreatedAt: s.now(),
		},
	}

	duration := time.Since(start)
	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeComplete)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("analysis latency",
			slog.Duration("p95", s.latencies.Percentile(95)),
			slog.Int("samples", count))
	}

	if payload, err := json.Marshal(outcome); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.opts.ResultTTL); err != nil {
			s.logger.Warn("analysis cache write failed", slog.Any("error", err))
		}
	}

	return outcome
}

// NetworkSnapshot returns the anonymized cross-device intelligence view.
func (s *AnalysisService) NetworkSnapshot() models.NetworkSnapshot {
	return s.intel.Snapshot()
}

// ReportThreat stores an externally reported threat and acknowledges it.
// The distribution flag is always true; no real network distribution occurs.
func (s *AnalysisService) ReportThreat(report models.ThreatReport) models.ThreatAck {
	position := s.intel.Report(report)
	metrics.ObserveThreatReport(position)

	s.logger.Info("threat report accepted",
		slog.String("level", string(report.Level)),
		slog.Int("position", position))

	return models.ThreatAck{ThreatID: position, Distributed: true}
}

// ForensicReport assembles the per-device evidence summary over the full
// unbounded window. It fails with ErrNoTelemetry when the device has no
// stored batches. Timeline math tolerates malformed timestamps: the duration
// is surfaced raw and may be negative.
func (s *AnalysisService) ForensicReport(deviceID string) (models.ForensicReport, error) {
	batches := s.ledger.QueryAllByDevice(deviceID)
	if len(batches) == 0 {
		metrics.ObserveForensicReport(false)
		return models.ForensicReport{}, utils.NewAppError("forensics.generate", "device "+deviceID, ErrNoTelemetry)
	}
	metrics.ObserveForensicReport(true)

	first := batches[0].BatchStart
	last := batches[0].BatchEnd
	totalSamples := 0
	for _, b := range batches {
		if b.BatchStart < first {
			first = b.BatchStart
		}
		if b.BatchEnd > last {
			last = b.BatchEnd
		}
		totalSamples += b.SampleCount
	}

	return models.ForensicReport{
		ReportID:    uuid.NewString(),
		ReportType:  forensicReportType,
		GeneratedAt: s.now(),
		DeviceID:    deviceID,
		Period: models.ForensicPeriod{
			Start:         utils.FromEpochSeconds(first),
			End:           utils.FromEpochSeconds(last),
			DurationHours: (last - first) / 3600,
		},
		Integrity: models.DataIntegrity{
			TotalBatches:   len(batches),
			TotalSamples:   totalSamples,
			Encryption:     forensicEncryption,
			ChainOfCustody: forensicCustody,
		},
		Findings: models.ForensicFindings{
			SurveillanceIndicators: []string{},
			InterferenceEvents:     []string{},
			AnomalousPatterns:      []string{},
		},
		Legal: models.LegalCertification{
			Admissible:        true,
			Standard:          forensicStandard,
			IntegrityVerified: true,
		},
	}, nil
}

// Health reports store occupancy.
func (s *AnalysisService) Health() models.HealthStatus {
	return models.HealthStatus{
		Status:           "healthy",
		TelemetryBatches: s.ledger.Len(),
		ThreatsTracked:   s.intel.ThreatCount(),
		Timestamp:        s.now(),
	}
}

// LatencyP95 returns the current p95 analysis latency.
func (s *AnalysisService) LatencyP95() time.Duration {
	return s.latencies.Percentile(95)
}

func analysisCacheKey(deviceID string, hours float64) string {
	return fmt.Sprintf("analysis:%s:%g", deviceID, hours)
}
