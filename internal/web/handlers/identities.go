package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/facegate/internal/store"
)

// IdentitiesHandler serves the enrolled identity listing.
type IdentitiesHandler struct {
	registry store.IdentityRegistry
}

// NewIdentitiesHandler creates a new identities handler.
func NewIdentitiesHandler(registry store.IdentityRegistry) *IdentitiesHandler {
	return &IdentitiesHandler{registry: registry}
}

type identityResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IDNumber  string `json:"id_number"`
	CreatedAt string `json:"created_at"`
}

// List handles GET /api/v1/identities. An optional name query filters
// case- and diacritic-insensitively.
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	nameFilter := r.URL.Query().Get("name")

	identities, err := h.registry.List(r.Context(), nameFilter)
	if err != nil {
		log.Printf("identities: listing failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list identities")
		return
	}

	out := make([]identityResponse, 0, len(identities))
	for _, ident := range identities {
		out = append(out, identityResponse{
			ID:        ident.ID,
			Name:      ident.Name,
			IDNumber:  ident.IDNumber,
			CreatedAt: ident.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"identities": out,
		"count":      len(out),
	})
}
