package engine

import (
	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

// HealthScorer turns a monitor's quality metrics into a 0-100 health score,
// a letter grade, and a keep/review/remove recommendation.
type HealthScorer struct {
	scoring config.ScoringConfig
}

// NewHealthScorer constructs a HealthScorer.
func NewHealthScorer(scoring config.ScoringConfig) *HealthScorer {
	return &HealthScorer{scoring: scoring}
}

// Score computes the four weighted factors and their sum.
func (h *HealthScorer) Score(m models.MonitorMetrics) models.HealthScore {
	factors := models.HealthFactors{
		AlertRelevance:    alertRelevance(m),
		ResponseNecessity: responseNecessity(m),
		BusinessImpact:    businessImpact(m),
		TimingQuality:     timingQuality(m),
	}
	score := clamp(factors.AlertRelevance+factors.ResponseNecessity+factors.BusinessImpact+factors.TimingQuality, 0, 100)
	return models.HealthScore{
		Score:   score,
		Grade:   h.grade(score),
		Factors: factors,
	}
}

// Recommend maps a health score onto the keep/review/remove ladder.
func (h *HealthScorer) Recommend(m models.MonitorMetrics, health models.HealthScore) models.Recommendation {
	switch {
	case health.Score < 30 && m.EventCount > 10:
		return models.Recommendation{
			Kind:       models.RecommendRemove,
			MonitorID:  m.MonitorID,
			Priority:   "high",
			Action:     "Remove or silence this monitor: alerting volume far exceeds its value",
			Confidence: 0.9,
			Detail: models.RemoveDetail{
				HealthScore: health.Score,
				EventCount:  m.EventCount,
				NoiseScore:  m.NoiseScore,
			},
		}
	case health.Score < 50 && m.CycleCount > 20:
		return models.Recommendation{
			Kind:       models.RecommendReviewThresholds,
			MonitorID:  m.MonitorID,
			Priority:   "medium",
			Action:     "Review alert thresholds and add hysteresis",
			Confidence: 0.7,
			Detail: models.ReviewThresholdsDetail{
				HealthScore: health.Score,
				CycleCount:  m.CycleCount,
			},
		}
	case health.Score < 60:
		return models.Recommendation{
			Kind:       models.RecommendWatch,
			MonitorID:  m.MonitorID,
			Priority:   "low",
			Action:     "Watch this monitor for another analysis period",
			Confidence: 0.5,
			Detail:     models.WatchDetail{HealthScore: health.Score, Grade: health.Grade},
		}
	default:
		return models.Recommendation{
			Kind:       models.RecommendKeep,
			MonitorID:  m.MonitorID,
			Priority:   "low",
			Action:     "Keep this monitor as configured",
			Confidence: 0.8,
			Detail:     models.KeepDetail{HealthScore: health.Score, Grade: health.Grade},
		}
	}
}

func (h *HealthScorer) grade(score float64) string {
	switch {
	case score >= h.scoring.GradeACutoff:
		return "A"
	case score >= h.scoring.GradeBCutoff:
		return "B"
	case score >= h.scoring.GradeCCutoff:
		return "C"
	case score >= h.scoring.GradeDCutoff:
		return "D"
	default:
		return "F"
	}
}

// alertRelevance (0-35) penalizes monitors whose alerts mostly resolve
// themselves quickly. The orphan bonus only applies off the penalty tiers.
func alertRelevance(m models.MonitorMetrics) float64 {
	avgMinutes := m.AvgCycleDurationSeconds / 60
	switch {
	case m.QuickRecoveryRate > 0.7 && avgMinutes < 5:
		return 10
	case m.QuickRecoveryRate > 0.5 && avgMinutes < 2:
		return 5
	case m.QuickRecoveryRate < 0.2:
		return clamp(35, 0, 35)
	default:
		return clamp(20+5*(1-m.OrphanRatio), 0, 35)
	}
}

// responseNecessity (0-30) tiers on the estimated manual-response rate,
// halved when recoveries are almost always quick.
func responseNecessity(m models.MonitorMetrics) float64 {
	var base float64
	switch {
	case m.ManualResponseRate > 0.8:
		base = 30
	case m.ManualResponseRate > 0.6:
		base = 22
	case m.ManualResponseRate > 0.4:
		base = 15
	case m.ManualResponseRate > 0.2:
		base = 10
	default:
		base = 5
	}
	if m.QuickRecoveryRate > 0.8 {
		base /= 2
	}
	return clamp(base, 0, 30)
}

// businessImpact (0-20) tiers on event volume.
func businessImpact(m models.MonitorMetrics) float64 {
	switch {
	case m.EventCount > 100:
		return 15
	case m.EventCount > 50:
		return 12
	case m.EventCount > 10:
		return 8
	default:
		return 5
	}
}

// timingQuality (0-15) rewards 5-60 minute alerts and penalizes sub-2-minute
// blips plus incomplete lifecycles.
func timingQuality(m models.MonitorMetrics) float64 {
	avgMinutes := m.AvgCycleDurationSeconds / 60
	var base float64
	switch {
	case avgMinutes >= 5 && avgMinutes <= 60:
		base = 12
	case avgMinutes < 2:
		base = 3
	default:
		base = 8
	}
	base -= 5 * minf(1, m.OrphanRatio)
	return clamp(base, 0, 15)
}
