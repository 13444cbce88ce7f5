package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/lifecycle"
	"github.com/miradorstack/mirador-triage/internal/metrics"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

// TrendSource supplies per-monitor trend analyses to enrich recommendations.
// It is optional; a nil source skips trend-driven suggestions.
type TrendSource interface {
	MonitorTrend(ctx context.Context, monitorID string) (*models.MonitorTrendAnalysis, error)
}

// Analyzer runs the full triage flow over one immutable event batch:
// ingestion, per-cycle classification, monitor-level flap override, quality
// aggregation, health scoring, and recommendation generation. All
// configuration is fixed at construction; no global state is consulted.
type Analyzer struct {
	logger       *slog.Logger
	classifier   *Classifier
	flapDetector *FlapDetector
	quality      *QualityAggregator
	healthScorer *HealthScorer
	recommender  *Recommender
	trendSource  TrendSource
}

// NewAnalyzer constructs the analysis pipeline. trendSource may be nil.
func NewAnalyzer(logger *slog.Logger, cfg *config.Config, trendSource TrendSource) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	window := cfg.BusinessWindow()
	scorer := NewHealthScorer(cfg.Scoring)
	return &Analyzer{
		logger:       logger,
		classifier:   NewClassifier(cfg.Analysis, window),
		flapDetector: NewFlapDetector(cfg.Analysis),
		quality:      NewQualityAggregator(cfg.Analysis, window),
		healthScorer: scorer,
		recommender:  NewRecommender(cfg.Analysis, cfg.Trends, scorer),
		trendSource:  trendSource,
	}
}

// Analyze processes a raw event batch into a full analysis report. A monitor
// whose data breaks mid-analysis is skipped and recorded; it never aborts
// the rest of the fleet.
func (a *Analyzer) Analyze(ctx context.Context, raw []map[string]any) (models.AnalysisReport, error) {
	if len(raw) == 0 {
		return models.AnalysisReport{}, fmt.Errorf("empty event batch")
	}

	cycles := lifecycle.Ingest(raw)
	byMonitor := lifecycle.GroupByMonitor(cycles)

	report := models.AnalysisReport{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Week:        utils.ISOWeek(time.Now()),
		Monitors:    make(map[string]models.MonitorMetrics, len(byMonitor)),
		Fleet: models.FleetSummary{
			ClassificationCounts: make(map[models.Classification]int),
		},
	}

	monitorIDs := make([]string, 0, len(byMonitor))
	for id := range byMonitor {
		monitorIDs = append(monitorIDs, id)
	}
	sort.Strings(monitorIDs)

	var healthSum, noiseSum float64
	for _, monitorID := range monitorIDs {
		monitorCycles := byMonitor[monitorID]
		m, err := a.analyzeMonitor(monitorID, monitorCycles)
		if err != nil {
			a.logger.Error("monitor analysis failed, skipping",
				slog.String("monitor_id", monitorID), slog.Any("error", err))
			metrics.ObserveMonitorSkipped()
			report.SkippedMonitors = append(report.SkippedMonitors, monitorID)
			continue
		}

		var trend *models.MonitorTrendAnalysis
		if a.trendSource != nil {
			if t, err := a.trendSource.MonitorTrend(ctx, monitorID); err != nil {
				a.logger.Warn("trend lookup failed",
					slog.String("monitor_id", monitorID), slog.Any("error", err))
			} else {
				trend = t
			}
		}
		report.Recommendations = append(report.Recommendations, a.recommender.ForMonitor(m, trend)...)

		report.Monitors[monitorID] = m
		report.Fleet.MonitorsAnalyzed++
		report.Fleet.CyclesTotal += m.CycleCount
		report.Fleet.EventsTotal += m.EventCount
		healthSum += m.Health.Score
		noiseSum += m.NoiseScore
		for classification, count := range m.ClassificationCounts {
			report.Fleet.ClassificationCounts[classification] += count
			metrics.ObserveCyclesClassified(string(classification), count)
		}
	}

	report.Fleet.MonitorsSkipped = len(report.SkippedMonitors)
	if report.Fleet.MonitorsAnalyzed > 0 {
		report.Fleet.AvgHealthScore = healthSum / float64(report.Fleet.MonitorsAnalyzed)
		report.Fleet.AvgNoiseScore = noiseSum / float64(report.Fleet.MonitorsAnalyzed)
	}
	report.Fleet.NoisiestMonitors = noisiestMonitors(report.Monitors, 5)
	SortByPriority(report.Recommendations)

	return report, nil
}

// analyzeMonitor runs classification and scoring for one monitor. Panics
// from corrupt data are confined here so one bad monitor cannot take down
// the batch.
func (a *Analyzer) analyzeMonitor(monitorID string, cycles []*models.AlertCycle) (m models.MonitorMetrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("monitor %s: %v", monitorID, r)
		}
	}()

	// Classify each cycle independently, then let monitor-level flapping
	// evidence override benign verdicts.
	for _, cycle := range cycles {
		result := a.classifier.Classify(cycle)
		cycle.Classification = &result
	}
	flap := a.flapDetector.Detect(cycles)
	a.flapDetector.ApplyOverride(cycles, flap)

	m = a.quality.Aggregate(monitorID, cycles)
	m.MonitorFlapping = flap
	for _, cycle := range cycles {
		m.Classifications[cycle.Key] = *cycle.Classification
		m.ClassificationCounts[cycle.Classification.Classification]++
	}
	m.Health = a.healthScorer.Score(m)
	return m, nil
}

func noisiestMonitors(monitors map[string]models.MonitorMetrics, limit int) []string {
	type entry struct {
		id    string
		noise float64
	}
	entries := make([]entry, 0, len(monitors))
	for id, m := range monitors {
		entries = append(entries, entry{id: id, noise: m.NoiseScore})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].noise != entries[j].noise {
			return entries[i].noise > entries[j].noise
		}
		return entries[i].id < entries[j].id
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}
