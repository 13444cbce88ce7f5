package engine

import (
	"testing"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		NoiseThreshold:       70,
		SelfHealingThreshold: 0.8,
		GradeACutoff:         80,
		GradeBCutoff:         70,
		GradeCCutoff:         60,
		GradeDCutoff:         50,
		ConfidenceFloor:      0.1,
	}
}

func TestScoreNoisyMonitorRecommendsRemoval(t *testing.T) {
	scorer := NewHealthScorer(testScoringConfig())

	// Quick-recovery blips firing constantly, most cycles never completing.
	m := models.MonitorMetrics{
		MonitorID:               "mon-noisy",
		CycleCount:              100,
		EventCount:              200,
		SelfHealingRate:         0.95,
		ManualResponseRate:      0.05,
		QuickRecoveryRate:       0.9,
		OrphanRatio:             0.6,
		AvgCycleDurationSeconds: 60,
		NoiseScore:              85,
	}

	health := scorer.Score(m)
	if health.Score >= 30 {
		t.Fatalf("expected health score below 30, got %g (%+v)", health.Score, health.Factors)
	}
	if health.Grade != "F" {
		t.Fatalf("expected grade F, got %s", health.Grade)
	}
	if health.Factors.AlertRelevance != 10 {
		t.Fatalf("expected alert relevance 10, got %g", health.Factors.AlertRelevance)
	}

	rec := scorer.Recommend(m, health)
	if rec.Kind != models.RecommendRemove {
		t.Fatalf("expected remove recommendation, got %s", rec.Kind)
	}
	if rec.Priority != "high" || rec.Confidence != 0.9 {
		t.Fatalf("expected high priority at 0.9 confidence, got %s/%g", rec.Priority, rec.Confidence)
	}
	detail, ok := rec.Detail.(models.RemoveDetail)
	if !ok {
		t.Fatalf("expected RemoveDetail, got %T", rec.Detail)
	}
	if detail.EventCount != 200 {
		t.Fatalf("expected event count 200 in detail, got %d", detail.EventCount)
	}
}

func TestScoreHealthyMonitorRecommendsKeep(t *testing.T) {
	scorer := NewHealthScorer(testScoringConfig())

	m := models.MonitorMetrics{
		MonitorID:               "mon-good",
		CycleCount:              8,
		EventCount:              30,
		SelfHealingRate:         0.1,
		ManualResponseRate:      0.85,
		QuickRecoveryRate:       0.1,
		OrphanRatio:             0,
		AvgCycleDurationSeconds: 1200,
	}

	health := scorer.Score(m)
	if health.Score < 80 {
		t.Fatalf("expected health score >= 80, got %g (%+v)", health.Score, health.Factors)
	}
	if health.Grade != "A" {
		t.Fatalf("expected grade A, got %s", health.Grade)
	}

	rec := scorer.Recommend(m, health)
	if rec.Kind != models.RecommendKeep {
		t.Fatalf("expected keep recommendation, got %s", rec.Kind)
	}
}

func TestRecommendLadder(t *testing.T) {
	scorer := NewHealthScorer(testScoringConfig())

	cases := []struct {
		name   string
		score  float64
		m      models.MonitorMetrics
		expect models.RecommendationKind
	}{
		{"remove", 25, models.MonitorMetrics{EventCount: 50}, models.RecommendRemove},
		{"low score but few events", 25, models.MonitorMetrics{EventCount: 5}, models.RecommendWatch},
		{"review", 45, models.MonitorMetrics{CycleCount: 25}, models.RecommendReviewThresholds},
		{"watch", 55, models.MonitorMetrics{}, models.RecommendWatch},
		{"keep", 75, models.MonitorMetrics{}, models.RecommendKeep},
	}
	for _, tc := range cases {
		rec := scorer.Recommend(tc.m, models.HealthScore{Score: tc.score})
		if rec.Kind != tc.expect {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expect, rec.Kind)
		}
	}
}

func TestGradeCutoffs(t *testing.T) {
	scorer := NewHealthScorer(testScoringConfig())
	cases := map[float64]string{85: "A", 80: "A", 75: "B", 65: "C", 55: "D", 45: "F"}
	for score, want := range cases {
		if got := scorer.grade(score); got != want {
			t.Fatalf("grade(%g) = %s, want %s", score, got, want)
		}
	}
}

func TestTimingQualityOrphanPenalty(t *testing.T) {
	full := timingQuality(models.MonitorMetrics{AvgCycleDurationSeconds: 600})
	if full != 12 {
		t.Fatalf("expected 12 for ten-minute cycles, got %g", full)
	}
	penalized := timingQuality(models.MonitorMetrics{AvgCycleDurationSeconds: 600, OrphanRatio: 1})
	if penalized != 7 {
		t.Fatalf("expected orphan penalty to land at 7, got %g", penalized)
	}
}
