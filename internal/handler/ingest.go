package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/service"
)

// UploadResponse is the body returned to anchors
type UploadResponse struct {
	Status string `json:"status"`
	Zone   string `json:"zone,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// IngestHandler accepts anchor readings and serves anchor probe status
type IngestHandler struct {
	ingest  *service.IngestService
	anchors *service.AnchorService
}

// NewIngestHandler creates a new ingest handler. anchors may be nil when the
// probe is disabled.
func NewIngestHandler(ingest *service.IngestService, anchors *service.AnchorService) *IngestHandler {
	return &IngestHandler{ingest: ingest, anchors: anchors}
}

// Upload accepts {mac|mac_addr|ssid, anchor_id|anchor, rssi|avg_rssi}
func (h *IngestHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	reading, err := parseReading(body)
	if err != nil {
		writeError(w, "Invalid reading", err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.ingest.Ingest(r.Context(), reading)
	switch {
	case err == nil:
		writeJSON(w, UploadResponse{Status: "OK", Zone: res.Zone}, http.StatusOK)
	case errors.Is(err, service.ErrNotTargeted):
		writeJSON(w, UploadResponse{Status: "ignored", Reason: err.Error()}, http.StatusAccepted)
	case errors.Is(err, service.ErrMissingDevice), errors.Is(err, service.ErrMissingAnchor):
		writeError(w, "Invalid reading", err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Failed to ingest reading: %v", err)
		writeError(w, "Failed to store reading", err.Error(), http.StatusInternalServerError)
	}
}

// ListAnchors returns the latest probe status per anchor
func (h *IngestHandler) ListAnchors(w http.ResponseWriter, r *http.Request) {
	if h.anchors == nil {
		writeJSON(w, []domain.AnchorStatus{}, http.StatusOK)
		return
	}
	writeJSON(w, h.anchors.List(), http.StatusOK)
}

// parseReading resolves field aliases. mac_addr wins over mac, which wins
// over ssid; avg_rssi wins over rssi.
func parseReading(body map[string]interface{}) (service.Reading, error) {
	var reading service.Reading

	reading.MAC = firstString(body, "mac_addr", "mac")
	reading.SSID = firstString(body, "ssid")
	reading.AnchorID = firstString(body, "anchor_id", "anchor")

	raw, ok := firstPresent(body, "avg_rssi", "rssi")
	if !ok {
		return reading, fmt.Errorf("rssi is required")
	}
	rssi, err := parseRSSI(raw)
	if err != nil {
		return reading, err
	}
	reading.RSSI = rssi
	return reading, nil
}

func firstString(body map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := body[k].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

func firstPresent(body map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := body[k]; ok && v != nil && v != "" {
			return v, true
		}
	}
	return nil, false
}

func parseRSSI(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("RSSI must be a number")
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("RSSI must be a number")
		}
		return i, nil
	default:
		return 0, fmt.Errorf("RSSI must be a number")
	}
}
