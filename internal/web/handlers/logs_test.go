package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/facegate/internal/store"
	"github.com/kozaktomas/facegate/internal/store/mock"
)

type logsListResponse struct {
	Events []eventResponse `json:"events"`
	Count  int             `json:"count"`
}

func seedEvents(t *testing.T, audit *mock.AuditLog, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := audit.Record(context.Background(), store.Event{
			EventUID:   "uid",
			Action:     store.ActionScan,
			Detail:     "matched",
			Confidence: 90,
		})
		if err != nil {
			t.Fatalf("failed to seed events: %v", err)
		}
	}
}

func TestLogsHandler_List(t *testing.T) {
	audit := mock.NewAuditLog()
	seedEvents(t, audit, 3)
	handler := NewLogsHandler(audit)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp logsListResponse
	parseJSONResponse(t, rec, &resp)

	if resp.Count != 3 {
		t.Errorf("expected 3 events, got %d", resp.Count)
	}
	if len(resp.Events) != 3 {
		t.Fatalf("expected 3 event entries, got %d", len(resp.Events))
	}
	if resp.Events[0].Action != store.ActionScan {
		t.Errorf("expected scan action, got %s", resp.Events[0].Action)
	}
}

func TestLogsHandler_Limit(t *testing.T) {
	audit := mock.NewAuditLog()
	seedEvents(t, audit, 5)
	handler := NewLogsHandler(audit)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs?limit=2", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp logsListResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 2 {
		t.Errorf("expected 2 events, got %d", resp.Count)
	}
}

func TestLogsHandler_InvalidLimit(t *testing.T) {
	handler := NewLogsHandler(mock.NewAuditLog())

	for _, limit := range []string{"abc", "0", "-5"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/logs?limit="+limit, nil)
		rec := httptest.NewRecorder()
		handler.List(rec, req)
		assertStatusCode(t, rec, http.StatusBadRequest)
	}
}

func TestLogsHandler_StoreFailure(t *testing.T) {
	audit := mock.NewAuditLog()
	audit.RecentError = errors.New("connection lost")
	handler := NewLogsHandler(audit)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatusCode(t, rec, http.StatusInternalServerError)
}

func TestLogsHandler_Empty(t *testing.T) {
	handler := NewLogsHandler(mock.NewAuditLog())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	assertStatusCode(t, rec, http.StatusOK)
	var resp logsListResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Count != 0 {
		t.Errorf("expected 0 events, got %d", resp.Count)
	}
}
