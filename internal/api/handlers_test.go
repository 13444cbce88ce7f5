package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/repo"
	"github.com/miradorstack/mirador-triage/internal/services"
	"github.com/miradorstack/mirador-triage/internal/trends"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	t.Setenv("MIRADOR_TRIAGE_CONFIG", "")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := repo.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("fs store: %v", err)
	}
	trendAnalyzer := trends.NewAnalyzer(nil, store, cfg.Trends)
	service := services.NewTriageService(nil, cfg, store, trendAnalyzer, nil)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandlers(service, nil).Register(router)
	return router
}

func analyzeBody(week string, save bool) []byte {
	start := time.Date(2025, 3, 2, 3, 0, 0, 0, time.UTC)
	payload := map[string]any{
		"week":           week,
		"save_snapshots": save,
		"events": []map[string]any{
			{
				"id": "evt-1", "monitor_id": "mon-1", "alert_cycle_key": "cycle-1",
				"timestamp": start.Format(time.RFC3339),
				"lifecycle": map[string]any{"source_state": "OK", "destination_state": "Alert", "transition_type": "alert"},
			},
			{
				"id": "evt-2", "monitor_id": "mon-1", "alert_cycle_key": "cycle-1",
				"timestamp": start.Add(45 * time.Second).Format(time.RFC3339),
				"duration":  45.0,
				"lifecycle": map[string]any{"transition_type": "alert_recovery"},
			},
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

func TestAnalyzeEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(analyzeBody("2025-W10", false)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var report struct {
		RunID string `json:"run_id"`
		Week  string `json:"week"`
		Fleet struct {
			MonitorsAnalyzed int `json:"monitors_analyzed"`
		} `json:"fleet"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if report.RunID == "" || report.Week != "2025-W10" {
		t.Fatalf("unexpected report identity %q/%q", report.RunID, report.Week)
	}
	if report.Fleet.MonitorsAnalyzed != 1 {
		t.Fatalf("expected one monitor analyzed, got %d", report.Fleet.MonitorsAnalyzed)
	}
}

func TestAnalyzeRejectsEmptyEvents(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader([]byte(`{"events":[]}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAnalyzeRejectsMalformedJSON(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader([]byte(`{"events":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestSnapshotWeeksAfterAnalyze(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", bytes.NewReader(analyzeBody("2025-W10", true)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("analyze: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/v1/snapshots/weeks", nil)
	listW := httptest.NewRecorder()
	router.ServeHTTP(listW, listReq)
	if listW.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", listW.Code)
	}

	var body struct {
		Weeks []string `json:"weeks"`
	}
	if err := json.Unmarshal(listW.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Weeks) != 1 || body.Weeks[0] != "2025-W10" {
		t.Fatalf("expected stored week 2025-W10, got %v", body.Weeks)
	}
}

func TestMonitorTrendsEndpoint(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trends/mon-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var analysis struct {
		MonitorID string `json:"monitor_id"`
		Direction string `json:"direction"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if analysis.MonitorID != "mon-1" || analysis.Direction != "insufficient_data" {
		t.Fatalf("unexpected analysis %+v", analysis)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	router := testRouter(t)

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
}
