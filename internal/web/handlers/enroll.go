package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/facegate/internal/enroll"
	"github.com/kozaktomas/facegate/internal/faceapi"
)

// EnrollHandler serves the enrollment entrypoint.
type EnrollHandler struct {
	face         *faceapi.Client
	orchestrator *enroll.Orchestrator
}

// NewEnrollHandler creates a new enrollment handler.
func NewEnrollHandler(face *faceapi.Client, orchestrator *enroll.Orchestrator) *EnrollHandler {
	return &EnrollHandler{face: face, orchestrator: orchestrator}
}

type enrollRequest struct {
	Name     string   `json:"name"`
	IDNumber string   `json:"id_number"`
	Images   []string `json:"images"` // base64-encoded image buffers
}

type enrollResponse struct {
	Success     bool   `json:"success"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	IdentityID  int64  `json:"identity_id,omitempty"`
	SampleCount int    `json:"sample_count,omitempty"`
}

// Enroll handles POST /api/v1/enroll.
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.IDNumber = strings.TrimSpace(req.IDNumber)
	if req.Name == "" || req.IDNumber == "" {
		respondError(w, http.StatusBadRequest, "name and id_number are required")
		return
	}
	if len(req.Images) == 0 {
		respondError(w, http.StatusBadRequest, "at least one image is required")
		return
	}

	// Undecodable entries are dropped here the same way undecodable
	// images are dropped later: skip, never fail the batch.
	var images [][]byte
	for _, encoded := range req.Images {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		images = append(images, data)
	}

	crops, skipped, err := h.face.CollectAll(r.Context(), images)
	if err != nil {
		log.Printf("enroll: face service failed for %s: %v", sanitizeForLog(req.IDNumber), err)
		respondError(w, http.StatusServiceUnavailable, "face service unavailable")
		return
	}
	if skipped > 0 {
		log.Printf("enroll: skipped %d undecodable image(s) for %s", skipped, sanitizeForLog(req.IDNumber))
	}

	result, err := h.orchestrator.Enroll(r.Context(), req.Name, req.IDNumber, crops)
	if err != nil {
		log.Printf("enroll: %s failed: %v", sanitizeForLog(req.IDNumber), err)
		respondError(w, http.StatusInternalServerError, "enrollment failed")
		return
	}

	respondJSON(w, statusForEnrollKind(result.Kind), enrollResponse{
		Success:     result.Kind == enroll.KindSuccess,
		Code:        string(result.Kind),
		Message:     result.Message,
		IdentityID:  result.IdentityID,
		SampleCount: result.SampleCount,
	})
}

// statusForEnrollKind maps result kinds to HTTP status codes. Business
// rejections are well-formed outcomes, not transport errors.
func statusForEnrollKind(kind enroll.Kind) int {
	switch kind {
	case enroll.KindMatcherUnavailable:
		return http.StatusServiceUnavailable
	case enroll.KindPartialEnrollment:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
