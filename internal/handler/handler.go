package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"anchorwatch/internal/codec"
	"anchorwatch/internal/domain"
	"anchorwatch/internal/service"
)

// ReasonManualRefresh is the cycle reason for POST /api/refresh
const ReasonManualRefresh = "manual_refresh"

// CycleTrigger enqueues an on-demand reconciliation cycle
type CycleTrigger interface {
	Trigger(reason string)
}

// DetectionView exposes the committed reconciliation state
type DetectionView interface {
	Snapshot() *domain.Snapshot
	Status() service.Status
}

// ErrorResponse is the JSON body of every error
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// DeviceView is a reconciled detection with its signal classification
type DeviceView struct {
	domain.Detection
	Signal  domain.SignalStrength `json:"signal"`
	Percent float64               `json:"signal_percent"`
}

// DetectionsResponse is the body of GET /api/detections
type DetectionsResponse struct {
	CycleID     string       `json:"cycle_id,omitempty"`
	GeneratedAt *time.Time   `json:"generated_at,omitempty"`
	Count       int          `json:"count"`
	Devices     []DeviceView `json:"devices"`
}

// DetectionHandler serves the reconciled set, dashboard stats and exports
type DetectionHandler struct {
	view    DetectionView
	trigger CycleTrigger
	limiter *rate.Limiter
}

// NewDetectionHandler creates a detection handler. Manual refreshes are
// limited to refreshRate per second with the given burst; a non-positive rate
// disables the limit.
func NewDetectionHandler(view DetectionView, trigger CycleTrigger, refreshRate float64, burst int) *DetectionHandler {
	limit := rate.Inf
	if refreshRate > 0 {
		limit = rate.Limit(refreshRate)
	}
	if burst < 1 {
		burst = 1
	}
	return &DetectionHandler{
		view:    view,
		trigger: trigger,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// GetDetections returns the current reconciled set
func (h *DetectionHandler) GetDetections(w http.ResponseWriter, r *http.Request) {
	snap := h.view.Snapshot()

	resp := DetectionsResponse{
		CycleID: snap.CycleID,
		Count:   len(snap.Detections),
		Devices: make([]DeviceView, 0, len(snap.Detections)),
	}
	if !snap.GeneratedAt.IsZero() {
		at := snap.GeneratedAt
		resp.GeneratedAt = &at
	}
	for _, d := range snap.Detections {
		resp.Devices = append(resp.Devices, DeviceView{
			Detection: d,
			Signal:    domain.ClassifySignal(d.RSSI),
			Percent:   domain.SignalPercent(d.RSSI),
		})
	}

	writeJSON(w, resp, http.StatusOK)
}

// GetStatus returns the dashboard summary
func (h *DetectionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.view.Status(), http.StatusOK)
}

// Refresh enqueues a cycle and returns immediately
func (h *DetectionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, "Refresh not configured", "No scheduler is running", http.StatusServiceUnavailable)
		return
	}
	if !h.limiter.Allow() {
		writeError(w, "Too many refresh requests", "Try again shortly", http.StatusTooManyRequests)
		return
	}

	h.trigger.Trigger(ReasonManualRefresh)
	writeJSON(w, map[string]string{"status": "refresh_queued"}, http.StatusAccepted)
}

// ExportJSON exports the reconciled set as JSON
func (h *DetectionHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	h.export(w, "json")
}

// ExportYAML exports the reconciled set as YAML
func (h *DetectionHandler) ExportYAML(w http.ResponseWriter, r *http.Request) {
	h.export(w, "yaml")
}

func (h *DetectionHandler) export(w http.ResponseWriter, format string) {
	exporter := codec.ForFormat(format)
	if exporter == nil {
		writeError(w, "Unsupported format", format, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=detections.%s", exporter.Format()))

	if err := exporter.Export(h.view.Snapshot(), w); err != nil {
		log.Printf("Failed to export %s: %v", format, err)
		// Can't write error response as we already set headers
		return
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON: %v", err)
	}
}

func writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}
