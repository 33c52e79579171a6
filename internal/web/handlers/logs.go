package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/facegate/internal/store"
)

// defaultLogLimit bounds the audit log listing when no limit is given.
const defaultLogLimit = 20

// LogsHandler serves the audit log listing.
type LogsHandler struct {
	audit store.AuditLog
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(audit store.AuditLog) *LogsHandler {
	return &LogsHandler{audit: audit}
}

type eventResponse struct {
	EventUID   string  `json:"event_uid"`
	IdentityID int64   `json:"identity_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	IDNumber   string  `json:"id_number,omitempty"`
	Action     string  `json:"action"`
	Detail     string  `json:"detail,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Timestamp  string  `json:"timestamp"`
}

// List handles GET /api/v1/logs.
func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultLogLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.audit.Recent(r.Context(), limit)
	if err != nil {
		log.Printf("logs: listing failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list logs")
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			EventUID:   e.EventUID,
			IdentityID: e.IdentityID,
			Name:       e.Name,
			IDNumber:   e.IDNumber,
			Action:     e.Action,
			Detail:     e.Detail,
			Confidence: e.Confidence,
			Timestamp:  e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"events": out,
		"count":  len(out),
	})
}
