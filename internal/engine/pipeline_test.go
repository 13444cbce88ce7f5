package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Analysis: testAnalysisConfig(),
		Scoring:  testScoringConfig(),
		Trends:   testTrendsConfig(),
		BusinessHours: config.BusinessHoursConfig{
			StartHour:    9,
			EndHour:      18,
			BusinessDays: []int{1, 2, 3, 4, 5},
		},
	}
}

type fakeTrendSource struct {
	trends map[string]*models.MonitorTrendAnalysis
	calls  int
}

func (f *fakeTrendSource) MonitorTrend(_ context.Context, monitorID string) (*models.MonitorTrendAnalysis, error) {
	f.calls++
	if trend, ok := f.trends[monitorID]; ok {
		return trend, nil
	}
	return &models.MonitorTrendAnalysis{MonitorID: monitorID, Direction: models.TrendInsufficientData}, nil
}

func rawCyclePair(monitorID, key string, start time.Time, duration time.Duration, human bool) []map[string]any {
	return []map[string]any{
		{
			"id":              key + "-alert",
			"monitor":         map[string]any{"id": monitorID, "name": monitorID + " check"},
			"alert_cycle_key": key,
			"timestamp":       start.Format(time.RFC3339),
			"lifecycle": map[string]any{
				"source_state":      "OK",
				"destination_state": "Alert",
				"transition_type":   "alert",
			},
		},
		{
			"id":              key + "-recovery",
			"monitor":         map[string]any{"id": monitorID, "name": monitorID + " check"},
			"alert_cycle_key": key,
			"timestamp":       start.Add(duration).Format(time.RFC3339),
			"duration":        duration.Seconds(),
			"human_action":    human,
			"lifecycle":       map[string]any{"transition_type": "alert_recovery"},
		},
	}
}

func testBatch() []map[string]any {
	var raw []map[string]any
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("flap-%d", i)
		raw = append(raw, rawCyclePair("mon-flappy", key, offHours.Add(time.Duration(i)*2*time.Hour), 40*time.Second, false)...)
	}
	for i := 0; i < 2; i++ {
		key := fmt.Sprintf("incident-%d", i)
		raw = append(raw, rawCyclePair("mon-incident", key, offHours.Add(time.Duration(i)*24*time.Hour), 30*time.Minute, true)...)
	}
	return raw
}

func TestAnalyzeEndToEnd(t *testing.T) {
	analyzer := NewAnalyzer(nil, testConfig(), nil)

	report, err := analyzer.Analyze(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.RunID == "" || report.Week == "" {
		t.Fatalf("expected run id and week, got %q/%q", report.RunID, report.Week)
	}
	if report.Fleet.MonitorsAnalyzed != 2 {
		t.Fatalf("expected 2 monitors, got %d", report.Fleet.MonitorsAnalyzed)
	}
	if report.Fleet.CyclesTotal != 12 || report.Fleet.EventsTotal != 24 {
		t.Fatalf("expected 12 cycles / 24 events, got %d/%d", report.Fleet.CyclesTotal, report.Fleet.EventsTotal)
	}
	if len(report.SkippedMonitors) != 0 {
		t.Fatalf("expected no skipped monitors, got %v", report.SkippedMonitors)
	}

	flappy, ok := report.Monitors["mon-flappy"]
	if !ok {
		t.Fatal("expected mon-flappy in report")
	}
	if !flappy.MonitorFlapping.Flapping {
		t.Fatalf("expected monitor-level flapping, got %+v", flappy.MonitorFlapping)
	}
	// Every benign blip is reclassified once the monitor-level evidence lands.
	if flappy.ClassificationCounts[models.ClassificationFlapping] != 10 {
		t.Fatalf("expected 10 flapping cycles, got %+v", flappy.ClassificationCounts)
	}

	incident := report.Monitors["mon-incident"]
	if incident.ClassificationCounts[models.ClassificationActionable] != 2 {
		t.Fatalf("expected 2 actionable cycles, got %+v", incident.ClassificationCounts)
	}

	var sawSilence bool
	for _, rec := range report.Recommendations {
		if rec.Kind == models.RecommendSilenceFlapping && rec.MonitorID == "mon-flappy" {
			sawSilence = true
		}
	}
	if !sawSilence {
		t.Fatalf("expected silence_flapping recommendation, got %+v", report.Recommendations)
	}

	if len(report.Fleet.NoisiestMonitors) == 0 || report.Fleet.NoisiestMonitors[0] != "mon-flappy" {
		t.Fatalf("expected mon-flappy as noisiest, got %v", report.Fleet.NoisiestMonitors)
	}
}

func TestAnalyzeEmptyBatch(t *testing.T) {
	analyzer := NewAnalyzer(nil, testConfig(), nil)
	if _, err := analyzer.Analyze(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty batch")
	}
}

func TestAnalyzeUsesTrendSource(t *testing.T) {
	source := &fakeTrendSource{trends: map[string]*models.MonitorTrendAnalysis{
		"mon-incident": {
			MonitorID:  "mon-incident",
			Direction:  models.TrendDegrading,
			Confidence: 0.85,
			Metrics: []models.TrendMetric{
				{Name: "health_score", Direction: models.TrendDegrading, DeltaPercent: -30, Significance: 0.9},
			},
		},
	}}
	analyzer := NewAnalyzer(nil, testConfig(), source)

	report, err := analyzer.Analyze(context.Background(), testBatch())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected a trend lookup per monitor, got %d", source.calls)
	}

	var sawEscalate bool
	for _, rec := range report.Recommendations {
		if rec.Kind == models.RecommendEscalateTrend && rec.MonitorID == "mon-incident" {
			sawEscalate = true
		}
	}
	if !sawEscalate {
		t.Fatalf("expected escalate_trend recommendation, got %+v", report.Recommendations)
	}
}

func TestAnalyzeMonitorIsolatesPanics(t *testing.T) {
	analyzer := NewAnalyzer(nil, testConfig(), nil)

	if _, err := analyzer.analyzeMonitor("mon-bad", []*models.AlertCycle{nil}); err == nil {
		t.Fatal("expected error from corrupt monitor data")
	}
}
