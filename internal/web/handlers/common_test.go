package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthCheck(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	HealthCheck(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp map[string]string
	parseJSONResponse(t, rec, &resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %q", resp["status"])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"clean", "clean"},
		{"with\nnewline", "withnewline"},
		{"with\r\nboth", "withboth"},
	}

	for _, tt := range tests {
		if got := sanitizeForLog(tt.input); got != tt.expected {
			t.Errorf("sanitizeForLog(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
