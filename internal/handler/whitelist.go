package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"anchorwatch/internal/domain"
	"anchorwatch/internal/service"
)

// WhitelistRequest is the body of POST /api/whitelist
type WhitelistRequest struct {
	MAC string `json:"mac"`
}

// WhitelistHandler lists and extends the operator whitelist
type WhitelistHandler struct {
	svc *service.WhitelistService
}

// NewWhitelistHandler creates a new whitelist handler
func NewWhitelistHandler(svc *service.WhitelistService) *WhitelistHandler {
	return &WhitelistHandler{svc: svc}
}

// List returns all whitelist entries
func (h *WhitelistHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.List(r.Context())
	if err != nil {
		log.Printf("Failed to list whitelist: %v", err)
		writeError(w, "Failed to list whitelist", err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, entries, http.StatusOK)
}

// Add validates and stores a MAC. A successful insert queues a cycle.
func (h *WhitelistHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req WhitelistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}

	entry, err := h.svc.Add(r.Context(), req.MAC)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDuplicateMAC):
			writeError(w, domain.ErrDuplicateMAC.Error(), err.Error(), http.StatusConflict)
		case errors.Is(err, domain.ErrEmptyMAC):
			writeError(w, domain.ErrEmptyMAC.Error(), "", http.StatusBadRequest)
		case errors.Is(err, domain.ErrInvalidMAC):
			writeError(w, domain.ErrInvalidMAC.Error(), err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Failed to add whitelist entry: %v", err)
			writeError(w, "Failed to add whitelist entry", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	log.Printf("Whitelisted %s", entry.MAC)
	writeJSON(w, entry, http.StatusCreated)
}
