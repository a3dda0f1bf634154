package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sentinelstack/sentinel-analysis/internal/models"
	"github.com/sentinelstack/sentinel-analysis/internal/services"
	"github.com/sentinelstack/sentinel-analysis/internal/utils"
)

const (
	serviceName    = "sentinel-analysis"
	serviceVersion = "6.0"
)

// Handlers binds the HTTP endpoints to the analysis service.
type Handlers struct {
	logger  *slog.Logger
	service *services.AnalysisService
}

// NewHandlers constructs the endpoint set. logger may be nil.
func NewHandlers(logger *slog.Logger, service *services.AnalysisService) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{logger: logger, service: service}
}

// UploadTelemetry stores one encrypted batch and confirms the assigned
// position.
func (h *Handlers) UploadTelemetry(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" {
		h.writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	receipt := h.service.Ingest(fromWireUpload(req))
	h.writeJSON(w, http.StatusOK, uploadResponse{
		Status:        "success",
		BatchID:       receipt.BatchID,
		ReceivedAt:    utils.EpochSeconds(receipt.ReceivedAt),
		BatchesStored: receipt.StoredBatches,
	})
}

// RequestAnalysis runs the threat assessment over the device's recent window.
// A window with no telemetry answers 200 with the insufficient_data payload.
func (h *Handlers) RequestAnalysis(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" {
		h.writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	outcome := h.service.Analyze(r.Context(), models.AnalysisRequest{
		DeviceID:       req.DeviceID,
		TimeRangeHours: req.TimeRangeHours,
	})
	if outcome.Status == models.AnalysisStatusInsufficientData {
		h.writeJSON(w, http.StatusOK, insufficientDataResponse{
			Status:         outcome.Status,
			Message:        outcome.Message,
			Recommendation: outcome.Recommendation,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, toWireAnalysis(outcome.Result))
}

// GlobalThreatIntel returns the anonymized network-wide intelligence view.
func (h *Handlers) GlobalThreatIntel(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, toWireSnapshot(h.service.NetworkSnapshot()))
}

// ReportThreat accepts an externally confirmed threat into the shared store.
func (h *Handlers) ReportThreat(w http.ResponseWriter, r *http.Request) {
	var req threatReportRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ack := h.service.ReportThreat(fromWireThreat(req))
	h.writeJSON(w, http.StatusOK, threatAckResponse{
		Status:               "accepted",
		ThreatID:             ack.ThreatID,
		DistributedToNetwork: ack.Distributed,
	})
}

// GenerateForensicReport assembles the per-device evidence summary. Devices
// with no stored telemetry answer 404.
func (h *Handlers) GenerateForensicReport(w http.ResponseWriter, r *http.Request) {
	var req forensicRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" {
		h.writeError(w, http.StatusBadRequest, "device_id is required")
		return
	}

	report, err := h.service.ForensicReport(req.DeviceID)
	if err != nil {
		if errors.Is(err, services.ErrNoTelemetry) {
			h.writeError(w, http.StatusNotFound, "No telemetry found for device")
			return
		}
		h.logger.Error("forensic report failed", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	h.writeJSON(w, http.StatusOK, toWireForensic(report))
}

// Root serves the service banner.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, bannerResponse{
		Service: serviceName,
		Version: serviceVersion,
		Status:  "operational",
		Capabilities: []string{
			"Heavy ML Analysis",
			"Threat Intelligence Network",
			"Pattern Correlation",
			"Forensic Report Generation",
		},
	})
}

// Health reports store occupancy.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := h.service.Health()
	h.writeJSON(w, http.StatusOK, healthResponse{
		Status:           status.Status,
		TelemetryBatches: status.TelemetryBatches,
		ThreatsTracked:   status.ThreatsTracked,
		Timestamp:        utils.EpochSeconds(status.Timestamp),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(dst)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response encode failed", slog.Any("error", err))
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
