package engine

import (
	"testing"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

func testRecommender() *Recommender {
	return NewRecommender(testAnalysisConfig(), testTrendsConfig(), NewHealthScorer(testScoringConfig()))
}

func testTrendsConfig() config.TrendsConfig {
	return config.TrendsConfig{
		MinWeeks:            2,
		LookbackWeeks:       12,
		StableSignificance:  0.3,
		NotableSignificance: 0.7,
		SwingSignificance:   0.8,
		SwingDeltaPercent:   30,
		TopMonitors:         5,
	}
}

func TestForMonitorFlappingRecommendation(t *testing.T) {
	r := testRecommender()

	m := models.MonitorMetrics{
		MonitorID:  "mon-flappy",
		CycleCount: 12,
		EventCount: 24,
		Health:     models.HealthScore{Score: 65, Grade: "C"},
		MonitorFlapping: models.MonitorFlapResult{
			Flapping:     true,
			Confidence:   0.95,
			WindowCycles: 12,
		},
	}

	recs := r.ForMonitor(m, nil)
	var silence *models.Recommendation
	for i := range recs {
		if recs[i].Kind == models.RecommendSilenceFlapping {
			silence = &recs[i]
		}
	}
	if silence == nil {
		t.Fatalf("expected silence_flapping recommendation, got %+v", recs)
	}
	if silence.Priority != "high" || silence.Confidence != 0.95 {
		t.Fatalf("unexpected priority/confidence %s/%g", silence.Priority, silence.Confidence)
	}
	detail, ok := silence.Detail.(models.SilenceFlappingDetail)
	if !ok {
		t.Fatalf("expected SilenceFlappingDetail, got %T", silence.Detail)
	}
	if detail.SuggestedDebounceSeconds != 60 {
		t.Fatalf("expected debounce suggestion 60s, got %g", detail.SuggestedDebounceSeconds)
	}
}

func TestForMonitorEscalatesDegradingTrend(t *testing.T) {
	r := testRecommender()

	m := models.MonitorMetrics{MonitorID: "mon-sliding", Health: models.HealthScore{Score: 72, Grade: "B"}}
	trend := &models.MonitorTrendAnalysis{
		MonitorID:  "mon-sliding",
		Direction:  models.TrendDegrading,
		Confidence: 0.85,
		Metrics: []models.TrendMetric{
			{Name: "health_score", Direction: models.TrendDegrading, DeltaPercent: -25, Significance: 0.9},
			{Name: "noise_score", Direction: models.TrendStable, Significance: 0.2},
		},
	}

	recs := r.ForMonitor(m, trend)
	var escalate *models.Recommendation
	for i := range recs {
		if recs[i].Kind == models.RecommendEscalateTrend {
			escalate = &recs[i]
		}
	}
	if escalate == nil {
		t.Fatalf("expected escalate_trend recommendation, got %+v", recs)
	}
	detail, ok := escalate.Detail.(models.EscalateTrendDetail)
	if !ok {
		t.Fatalf("expected EscalateTrendDetail, got %T", escalate.Detail)
	}
	if detail.Metric != "health_score" || detail.DeltaPercent != -25 {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestForMonitorNoTrendRecommendationWhenStable(t *testing.T) {
	r := testRecommender()
	m := models.MonitorMetrics{MonitorID: "mon-steady", Health: models.HealthScore{Score: 85, Grade: "A"}}
	trend := &models.MonitorTrendAnalysis{Direction: models.TrendStable, Confidence: 0.9}

	for _, rec := range r.ForMonitor(m, trend) {
		if rec.Kind == models.RecommendEscalateTrend {
			t.Fatalf("unexpected escalate_trend for stable monitor: %+v", rec)
		}
	}
}

func TestReviewThresholdsCarriesSuggestions(t *testing.T) {
	r := testRecommender()
	m := models.MonitorMetrics{
		MonitorID:  "mon-chatty",
		CycleCount: 25,
		EventCount: 50,
		Health:     models.HealthScore{Score: 45, Grade: "F"},
	}

	recs := r.ForMonitor(m, nil)
	detail, ok := recs[0].Detail.(models.ReviewThresholdsDetail)
	if !ok {
		t.Fatalf("expected ReviewThresholdsDetail first, got %T", recs[0].Detail)
	}
	if detail.SuggestedHysteresisSeconds != 120 || detail.SuggestedDebounceSeconds != 60 {
		t.Fatalf("expected hysteresis/debounce suggestions, got %+v", detail)
	}
}

func TestSortByPriority(t *testing.T) {
	recs := []models.Recommendation{
		{Kind: models.RecommendKeep, Priority: "low", Confidence: 0.8},
		{Kind: models.RecommendSilenceFlapping, Priority: "high", Confidence: 0.7},
		{Kind: models.RecommendEscalateTrend, Priority: "medium", Confidence: 0.9},
		{Kind: models.RecommendRemove, Priority: "high", Confidence: 0.95},
	}

	SortByPriority(recs)
	if recs[0].Kind != models.RecommendRemove {
		t.Fatalf("expected remove first, got %s", recs[0].Kind)
	}
	if recs[1].Kind != models.RecommendSilenceFlapping {
		t.Fatalf("expected silence_flapping second, got %s", recs[1].Kind)
	}
	if recs[2].Kind != models.RecommendEscalateTrend {
		t.Fatalf("expected escalate_trend third, got %s", recs[2].Kind)
	}
}
