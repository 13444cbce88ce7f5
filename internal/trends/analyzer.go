package trends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/repo"
)

// Tracked metric names. Better-high metrics improve as they rise,
// better-low metrics improve as they fall.
const (
	MetricHealthScore  = "health_score"
	MetricNoiseScore   = "noise_score"
	MetricSelfHealRate = "self_heal_rate"
	MetricFlappingRate = "flapping_rate"
	MetricActionable   = "actionable_rate"
	MetricCyclesCount  = "cycles_count"
)

var betterHigh = map[string]bool{
	MetricHealthScore:  true,
	MetricSelfHealRate: true,
	MetricActionable:   true,
}

// slopeEpsilon is the flat-slope cutoff below which a fit counts as stable.
const slopeEpsilon = 0.01

// Analyzer rebuilds metric time series from weekly snapshots and fits linear
// trends per monitor and fleet-wide.
type Analyzer struct {
	logger *slog.Logger
	store  repo.SnapshotStore
	cfg    config.TrendsConfig
}

// NewAnalyzer constructs a trend Analyzer over the given snapshot store.
func NewAnalyzer(logger *slog.Logger, store repo.SnapshotStore, cfg config.TrendsConfig) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger, store: store, cfg: cfg}
}

// MonitorTrend rebuilds the monitor's metric series across the lookback
// window and classifies each tracked metric plus the weighted overall
// direction. A monitor absent from history yields insufficient_data.
func (a *Analyzer) MonitorTrend(ctx context.Context, monitorID string) (*models.MonitorTrendAnalysis, error) {
	records, _, err := a.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	return a.monitorTrendFromRecords(monitorID, records), nil
}

// FleetTrends summarises every monitor appearing in the snapshot history.
func (a *Analyzer) FleetTrends(ctx context.Context) (models.TrendSummary, error) {
	records, weeks, err := a.loadHistory(ctx)
	if err != nil {
		return models.TrendSummary{}, err
	}

	summary := models.TrendSummary{Weeks: weeks}

	monitorIDs := make(map[string]struct{})
	for _, record := range records {
		for id := range record.Monitors {
			monitorIDs[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(monitorIDs))
	for id := range monitorIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var improving, degrading []models.MonitorTrendAnalysis
	for _, id := range ids {
		analysis := a.monitorTrendFromRecords(id, records)
		summary.MonitorsAnalyzed++
		switch analysis.Direction {
		case models.TrendImproving:
			summary.Improving++
			improving = append(improving, *analysis)
		case models.TrendDegrading:
			summary.Degrading++
			degrading = append(degrading, *analysis)
		case models.TrendStable:
			summary.Stable++
		default:
			summary.InsufficientData++
		}

		for _, metric := range analysis.Metrics {
			if absf(metric.DeltaPercent) > a.cfg.SwingDeltaPercent && metric.Significance >= a.cfg.SwingSignificance {
				summary.Swings = append(summary.Swings, models.MetricSwing{
					MonitorID:    id,
					Metric:       metric.Name,
					Direction:    metric.Direction,
					DeltaPercent: metric.DeltaPercent,
					Significance: metric.Significance,
				})
			}
		}
	}

	summary.TopImproving = topByConfidence(improving, a.cfg.TopMonitors)
	summary.TopDegrading = topByConfidence(degrading, a.cfg.TopMonitors)
	return summary, nil
}

// loadHistory returns records oldest-first over the lookback window, along
// with the week keys newest-first as the store lists them. Missing weeks
// degrade to an empty history.
func (a *Analyzer) loadHistory(ctx context.Context) ([]models.WeeklyRecord, []string, error) {
	weeks, err := a.store.ListWeeks(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list snapshot weeks: %w", err)
	}
	if len(weeks) > a.cfg.LookbackWeeks {
		weeks = weeks[:a.cfg.LookbackWeeks]
	}

	// Reverse into chronological order for regression indexing.
	records := make([]models.WeeklyRecord, 0, len(weeks))
	for i := len(weeks) - 1; i >= 0; i-- {
		record, err := a.store.LoadWeek(ctx, weeks[i])
		if err != nil {
			if errors.Is(err, repo.ErrWeekNotFound) {
				continue
			}
			return nil, nil, fmt.Errorf("load week %s: %w", weeks[i], err)
		}
		records = append(records, record)
	}
	return records, weeks, nil
}

func (a *Analyzer) monitorTrendFromRecords(monitorID string, records []models.WeeklyRecord) *models.MonitorTrendAnalysis {
	series := map[string][]float64{}
	weeksPresent := 0
	for _, record := range records {
		snapshot, ok := record.Monitors[monitorID]
		if !ok {
			continue
		}
		weeksPresent++
		series[MetricHealthScore] = append(series[MetricHealthScore], snapshot.HealthScore)
		series[MetricNoiseScore] = append(series[MetricNoiseScore], snapshot.NoiseScore)
		series[MetricSelfHealRate] = append(series[MetricSelfHealRate], snapshot.SelfHealingRate)
		series[MetricFlappingRate] = append(series[MetricFlappingRate], snapshot.FlappingRate)
		series[MetricActionable] = append(series[MetricActionable], snapshot.ActionableRate)
		series[MetricCyclesCount] = append(series[MetricCyclesCount], float64(snapshot.CyclesCount))
	}

	analysis := &models.MonitorTrendAnalysis{MonitorID: monitorID, Weeks: weeksPresent}
	for _, name := range []string{
		MetricHealthScore, MetricNoiseScore, MetricSelfHealRate,
		MetricFlappingRate, MetricActionable, MetricCyclesCount,
	} {
		analysis.Metrics = append(analysis.Metrics, a.fitMetric(name, series[name]))
	}
	analysis.Direction, analysis.Confidence = overallDirection(analysis.Metrics)
	if analysis.Weeks < a.cfg.MinWeeks {
		analysis.Direction = models.TrendInsufficientData
		analysis.Confidence = 0
	}
	return analysis
}

// fitMetric regresses one metric series against its week index. Significance
// is the absolute correlation coefficient; a perfectly flat series has
// significance 1.0 and direction stable.
func (a *Analyzer) fitMetric(name string, values []float64) models.TrendMetric {
	metric := models.TrendMetric{Name: name, Weeks: len(values)}
	if len(values) == 0 {
		metric.Direction = models.TrendInsufficientData
		return metric
	}

	metric.Current = values[len(values)-1]
	if len(values) > 1 {
		metric.Previous = values[len(values)-2]
	} else {
		metric.Previous = metric.Current
	}
	metric.Delta = metric.Current - metric.Previous
	metric.DeltaPercent = deltaPercent(metric.Current, metric.Previous)
	metric.RollingAverage = stat.Mean(values, nil)

	if len(values) < a.cfg.MinWeeks {
		metric.Direction = models.TrendInsufficientData
		metric.Significance = 0
		return metric
	}

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, slope := stat.LinearRegression(xs, values, nil, false)
	metric.Slope = slope

	corr := stat.Correlation(xs, values, nil)
	if math.IsNaN(corr) {
		// Zero variance: a flat series is a perfectly confident stable fit.
		metric.Direction = models.TrendStable
		metric.Significance = 1.0
		return metric
	}
	metric.Significance = math.Abs(corr)

	switch {
	case math.Abs(slope) < slopeEpsilon || metric.Significance < a.cfg.StableSignificance:
		metric.Direction = models.TrendStable
	case (slope > 0) == betterHigh[name]:
		metric.Direction = models.TrendImproving
	default:
		metric.Direction = models.TrendDegrading
	}
	return metric
}

// overallDirection is a significance-weighted vote across tracked metrics.
func overallDirection(metrics []models.TrendMetric) (models.TrendDirection, float64) {
	weights := map[models.TrendDirection]float64{}
	total := 0.0
	for _, metric := range metrics {
		if metric.Direction == models.TrendInsufficientData {
			continue
		}
		weights[metric.Direction] += metric.Significance
		total += metric.Significance
	}
	if total == 0 {
		return models.TrendInsufficientData, 0
	}

	best := models.TrendStable
	bestWeight := weights[models.TrendStable]
	for _, direction := range []models.TrendDirection{models.TrendImproving, models.TrendDegrading} {
		if weights[direction] > bestWeight {
			best = direction
			bestWeight = weights[direction]
		}
	}
	return best, clamp01(bestWeight / total)
}

func deltaPercent(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		if current > 0 {
			return 100
		}
		return -100
	}
	return (current - previous) / math.Abs(previous) * 100
}

func topByConfidence(analyses []models.MonitorTrendAnalysis, limit int) []models.MonitorTrendAnalysis {
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].Confidence > analyses[j].Confidence
	})
	if len(analyses) > limit {
		analyses = analyses[:limit]
	}
	return analyses
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
