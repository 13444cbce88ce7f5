package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/miradorstack/mirador-triage/internal/cache"
	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/engine"
	"github.com/miradorstack/mirador-triage/internal/metrics"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/repo"
	"github.com/miradorstack/mirador-triage/internal/trends"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

const fleetTrendsCacheKey = "triage:trends:fleet"

// ErrInvalidRequest marks caller input errors so the API layer can map them
// to a 400 instead of a 500.
var ErrInvalidRequest = errors.New("invalid request")

// AnalyzeRequest carries one analysis invocation.
type AnalyzeRequest struct {
	Events        []map[string]any `json:"events"`
	Week          string           `json:"week,omitempty"`
	SaveSnapshots bool             `json:"save_snapshots,omitempty"`
}

// TriageService is the facade the API layer talks to. It owns the snapshot
// store, the trend engine, and the currently active configuration; the
// analyzer itself is rebuilt per run from that config so hot reloads apply
// cleanly between runs.
type TriageService struct {
	logger        *slog.Logger
	cfg           atomic.Pointer[config.Config]
	store         repo.SnapshotStore
	storeBackend  string
	trendAnalyzer *trends.Analyzer
	cacheProvider cache.Provider
	latencies     *utils.LatencyTracker
}

// NewTriageService constructs the service facade. cacheProvider may be nil.
func NewTriageService(
	logger *slog.Logger,
	cfg *config.Config,
	store repo.SnapshotStore,
	trendAnalyzer *trends.Analyzer,
	cacheProvider cache.Provider,
) *TriageService {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	s := &TriageService{
		logger:        logger,
		store:         store,
		storeBackend:  cfg.Snapshots.Backend,
		trendAnalyzer: trendAnalyzer,
		cacheProvider: cacheProvider,
		latencies:     utils.NewLatencyTracker(1024),
	}
	s.cfg.Store(cfg)
	return s
}

// SwapConfig atomically replaces the active configuration. The next analysis
// run picks it up; a run already in flight keeps the config it started with.
func (s *TriageService) SwapConfig(cfg *config.Config) {
	s.cfg.Store(cfg)
	s.logger.Info("analysis configuration swapped")
}

// RunAnalysis executes the triage pipeline over one event batch and,
// when requested, persists the run's weekly snapshots. Snapshot write
// failures are returned to the caller along with the computed report.
func (s *TriageService) RunAnalysis(ctx context.Context, req AnalyzeRequest) (models.AnalysisReport, error) {
	if len(req.Events) == 0 {
		return models.AnalysisReport{}, fmt.Errorf("%w: events are required", ErrInvalidRequest)
	}
	if req.Week != "" {
		if _, _, err := utils.ParseISOWeek(req.Week); err != nil {
			return models.AnalysisReport{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	cfg := s.cfg.Load()
	analyzer := engine.NewAnalyzer(s.logger, cfg, s.trendSource())

	start := time.Now()
	report, err := analyzer.Analyze(ctx, req.Events)
	duration := time.Since(start)
	if err != nil {
		metrics.ObserveAnalysis(duration, metrics.OutcomeError)
		return models.AnalysisReport{}, fmt.Errorf("analysis failed: %w", err)
	}
	s.latencies.Observe(duration)
	metrics.ObserveAnalysis(duration, metrics.OutcomeSuccess)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		s.logger.Info("analysis latency", slog.Duration("p95", s.latencies.Percentile(95)), slog.Int("samples", count))
	}

	if req.Week != "" {
		report.Week = req.Week
	}

	if req.SaveSnapshots {
		if err := s.SaveSnapshots(ctx, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// SaveSnapshots persists the report's per-monitor and fleet snapshots under
// its week, replacing any existing record for that week.
func (s *TriageService) SaveSnapshots(ctx context.Context, report models.AnalysisReport) error {
	record := SnapshotRecord(report)
	if err := s.store.SaveWeek(ctx, record); err != nil {
		metrics.ObserveSnapshotWrite(s.storeBackend, metrics.OutcomeError)
		return fmt.Errorf("save snapshots for %s: %w", record.Week, err)
	}
	metrics.ObserveSnapshotWrite(s.storeBackend, metrics.OutcomeSuccess)
	s.logger.Info("weekly snapshots saved",
		slog.String("week", record.Week), slog.Int("monitors", len(record.Monitors)))

	// A new snapshot invalidates any cached fleet trend summary.
	if err := s.cacheProvider.Del(ctx, fleetTrendsCacheKey); err != nil {
		s.logger.Warn("trend cache invalidation failed", slog.Any("error", err))
	}
	return nil
}

// MonitorTrends returns the weekly trend analysis for one monitor.
func (s *TriageService) MonitorTrends(ctx context.Context, monitorID string) (*models.MonitorTrendAnalysis, error) {
	if monitorID == "" {
		return nil, fmt.Errorf("%w: monitor_id is required", ErrInvalidRequest)
	}
	return s.trendAnalyzer.MonitorTrend(ctx, monitorID)
}

// FleetTrends returns the fleet-wide trend summary, cached for a short TTL
// because it walks the whole snapshot history.
func (s *TriageService) FleetTrends(ctx context.Context) (models.TrendSummary, error) {
	if data, err := s.cacheProvider.Get(ctx, fleetTrendsCacheKey); err == nil {
		var summary models.TrendSummary
		if err := json.Unmarshal(data, &summary); err == nil {
			return summary, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("trend cache read failed", slog.Any("error", err))
	}

	summary, err := s.trendAnalyzer.FleetTrends(ctx)
	if err != nil {
		return models.TrendSummary{}, err
	}

	if data, err := json.Marshal(summary); err == nil {
		ttl := s.cfg.Load().Cache.TrendSummaryTTL
		if err := s.cacheProvider.Set(ctx, fleetTrendsCacheKey, data, ttl); err != nil {
			s.logger.Warn("trend cache write failed", slog.Any("error", err))
		}
	}
	return summary, nil
}

// ListWeeks returns the stored snapshot weeks, newest first.
func (s *TriageService) ListWeeks(ctx context.Context) ([]string, error) {
	return s.store.ListWeeks(ctx)
}

// PruneSnapshots deletes weeks beyond the configured retention.
func (s *TriageService) PruneSnapshots(ctx context.Context) (int, error) {
	retain := s.cfg.Load().Snapshots.RetentionWeeks
	removed, err := s.store.Prune(ctx, retain)
	if err != nil {
		return removed, fmt.Errorf("prune snapshots: %w", err)
	}
	if removed > 0 {
		s.logger.Info("snapshots pruned", slog.Int("removed", removed), slog.Int("retained_weeks", retain))
	}
	return removed, nil
}

// LatencyP95 returns the current p95 analysis latency.
func (s *TriageService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}

// Ready reports whether the snapshot store answers.
func (s *TriageService) Ready(ctx context.Context) error {
	_, err := s.store.ListWeeks(ctx)
	return err
}

func (s *TriageService) trendSource() engine.TrendSource {
	if s.trendAnalyzer == nil {
		return nil
	}
	return s.trendAnalyzer
}

// SnapshotRecord converts one analysis report into the weekly record shape
// the store persists.
func SnapshotRecord(report models.AnalysisReport) models.WeeklyRecord {
	now := time.Now().UTC()
	record := models.WeeklyRecord{
		Week:     report.Week,
		Monitors: make(map[string]models.WeeklyMonitorSnapshot, len(report.Monitors)),
		SavedAt:  now,
	}

	for id, m := range report.Monitors {
		snapshot := models.WeeklyMonitorSnapshot{
			Week:                    report.Week,
			MonitorID:               id,
			MonitorName:             m.MonitorName,
			HealthScore:             m.Health.Score,
			Grade:                   m.Health.Grade,
			NoiseScore:              m.NoiseScore,
			SelfHealingRate:         m.SelfHealingRate,
			FlappingRate:            m.FlappingRate(),
			ActionableRate:          m.ActionableRate(),
			CyclesCount:             m.CycleCount,
			EventsCount:             m.EventCount,
			MaxTransitionsPerHour:   m.Flapping.MaxTransitionsPerHour,
			AvgTransitionsPerHour:   m.Flapping.AvgTransitionsPerHour,
			FlapIncidents:           m.Flapping.IncidentCount,
			AvgCycleDurationSeconds: m.AvgCycleDurationSeconds,
			ClassificationCounts:    m.ClassificationCounts,
			CreatedAt:               now,
		}
		if len(m.Teams) > 0 {
			snapshot.Team = m.Teams[0]
		}
		if len(m.Environments) > 0 {
			snapshot.Env = m.Environments[0]
		}
		record.Monitors[id] = snapshot
	}

	record.Summary = models.WeeklySummarySnapshot{
		Week:                 report.Week,
		MonitorsAnalyzed:     report.Fleet.MonitorsAnalyzed,
		CyclesTotal:          report.Fleet.CyclesTotal,
		EventsTotal:          report.Fleet.EventsTotal,
		AvgHealthScore:       report.Fleet.AvgHealthScore,
		AvgNoiseScore:        report.Fleet.AvgNoiseScore,
		ClassificationCounts: report.Fleet.ClassificationCounts,
		NoisiestMonitors:     report.Fleet.NoisiestMonitors,
		CreatedAt:            now,
	}
	return record
}
