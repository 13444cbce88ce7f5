package engine

import (
	"fmt"
	"sort"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

// Recommender turns classification, health, and trend signals into typed
// suggestions for the reporting layer.
type Recommender struct {
	cfg    config.AnalysisConfig
	trends config.TrendsConfig
	scorer *HealthScorer
}

// NewRecommender constructs a Recommender.
func NewRecommender(cfg config.AnalysisConfig, trends config.TrendsConfig, scorer *HealthScorer) *Recommender {
	return &Recommender{cfg: cfg, trends: trends, scorer: scorer}
}

// ForMonitor produces the recommendation set for one analyzed monitor. The
// trend analysis is optional; passing nil skips trend-driven suggestions.
func (r *Recommender) ForMonitor(m models.MonitorMetrics, trend *models.MonitorTrendAnalysis) []models.Recommendation {
	recs := []models.Recommendation{r.healthRecommendation(m)}

	if m.MonitorFlapping.Flapping {
		recs = append(recs, models.Recommendation{
			Kind:       models.RecommendSilenceFlapping,
			MonitorID:  m.MonitorID,
			Priority:   "high",
			Action:     fmt.Sprintf("Debounce this monitor: %d cycles inside one flap window", m.MonitorFlapping.WindowCycles),
			Confidence: m.MonitorFlapping.Confidence,
			Detail: models.SilenceFlappingDetail{
				WindowCycles:             m.MonitorFlapping.WindowCycles,
				MaxTransitionsPerHour:    m.Flapping.MaxTransitionsPerHour,
				SuggestedDebounceSeconds: r.cfg.SuggestedDebounceSeconds,
			},
		})
	}

	if trend != nil && trend.Direction == models.TrendDegrading {
		if metric, ok := worstDegradingMetric(trend); ok && (metric.Notable() || trend.Confidence >= r.trends.NotableSignificance) {
			recs = append(recs, models.Recommendation{
				Kind:       models.RecommendEscalateTrend,
				MonitorID:  m.MonitorID,
				Priority:   "medium",
				Action:     fmt.Sprintf("Escalate: %s degrading %.0f%% week over week", metric.Name, absf(metric.DeltaPercent)),
				Confidence: trend.Confidence,
				Detail: models.EscalateTrendDetail{
					Metric:       metric.Name,
					Direction:    string(metric.Direction),
					DeltaPercent: metric.DeltaPercent,
					Significance: metric.Significance,
				},
			})
		}
	}

	return recs
}

func (r *Recommender) healthRecommendation(m models.MonitorMetrics) models.Recommendation {
	rec := r.scorer.Recommend(m, m.Health)
	// Threshold reviews carry concrete hysteresis/debounce suggestions.
	if detail, ok := rec.Detail.(models.ReviewThresholdsDetail); ok {
		detail.SuggestedHysteresisSeconds = r.cfg.SuggestedHysteresisSeconds
		detail.SuggestedDebounceSeconds = r.cfg.SuggestedDebounceSeconds
		rec.Detail = detail
	}
	return rec
}

func worstDegradingMetric(trend *models.MonitorTrendAnalysis) (models.TrendMetric, bool) {
	var worst models.TrendMetric
	found := false
	for _, metric := range trend.Metrics {
		if metric.Direction != models.TrendDegrading {
			continue
		}
		if !found || metric.Significance > worst.Significance {
			worst = metric
			found = true
		}
	}
	return worst, found
}

// SortByPriority orders recommendations high first, then by confidence.
func SortByPriority(recs []models.Recommendation) {
	rank := map[string]int{"high": 0, "medium": 1, "low": 2}
	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := rank[recs[i].Priority], rank[recs[j].Priority]
		if ri != rj {
			return ri < rj
		}
		return recs[i].Confidence > recs[j].Confidence
	})
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
