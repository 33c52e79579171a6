package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/facegate/internal/faceapi"
	"github.com/kozaktomas/facegate/internal/recognize"
)

// ScanHandler serves the recognition entrypoint.
type ScanHandler struct {
	face         *faceapi.Client
	orchestrator *recognize.Orchestrator
}

// NewScanHandler creates a new scan handler.
func NewScanHandler(face *faceapi.Client, orchestrator *recognize.Orchestrator) *ScanHandler {
	return &ScanHandler{face: face, orchestrator: orchestrator}
}

type scanRequest struct {
	Images []string `json:"images"` // base64-encoded image buffers
}

type scanResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message,omitempty"`
	IdentityID int64    `json:"identity_id,omitempty"`
	Name       string   `json:"name,omitempty"`
	IDNumber   string   `json:"id_number,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// Scan handles POST /api/v1/scan.
func (h *ScanHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Images) == 0 {
		respondError(w, http.StatusBadRequest, "at least one image is required")
		return
	}

	// Build the batch in request order so the last-tentative-wins
	// policy sees items exactly as submitted.
	items := make([]recognize.Item, 0, len(req.Images))
	for i, encoded := range req.Images {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			items = append(items, recognize.Item{Err: fmt.Errorf("image %d: %w", i, faceapi.ErrInvalidImage)})
			continue
		}
		crop, err := h.face.AcquireFirst(r.Context(), data)
		if err != nil {
			items = append(items, recognize.Item{Err: err})
			continue
		}
		items = append(items, recognize.Item{Crop: crop})
	}

	result, err := h.orchestrator.Scan(r.Context(), items)
	if errors.Is(err, recognize.ErrNoEnrollments) {
		respondJSON(w, http.StatusOK, scanResponse{
			Status:    "error",
			Message:   "no enrollments",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if err != nil {
		log.Printf("scan failed: %v", err)
		respondError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	respondJSON(w, http.StatusOK, scanResultToResponse(result))
}

// scanResultToResponse maps the orchestrator result onto the wire
// format: ok, low_confidence or error.
func scanResultToResponse(result recognize.Result) scanResponse {
	resp := scanResponse{
		Timestamp: result.Timestamp.Format(time.RFC3339),
	}

	switch result.Status {
	case recognize.StatusMatched:
		resp.Status = "ok"
		resp.IdentityID = result.Identity.ID
		resp.Name = result.Identity.Name
		resp.IDNumber = result.Identity.IDNumber
		resp.Confidence = &result.Confidence
	case recognize.StatusLowConfidence:
		resp.Status = "low_confidence"
		if result.Identity != nil {
			resp.Name = result.Identity.Name
			resp.IDNumber = result.Identity.IDNumber
		}
		resp.Confidence = &result.Confidence
	case recognize.StatusUnknown:
		resp.Status = "ok"
		resp.Message = "unknown face"
		resp.Confidence = &result.Confidence
	case recognize.StatusNoFace:
		resp.Status = "ok"
		resp.Message = "no face detected"
	case recognize.StatusError:
		resp.Status = "error"
		resp.Message = result.Detail
	}
	return resp
}
