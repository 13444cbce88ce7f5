package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/miradorstack/mirador-triage/internal/cache"
	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/repo"
	"github.com/miradorstack/mirador-triage/internal/trends"
)

type fakeStore struct {
	records   map[string]models.WeeklyRecord
	listCalls int
	saveCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]models.WeeklyRecord)}
}

func (f *fakeStore) SaveWeek(_ context.Context, record models.WeeklyRecord) error {
	f.saveCalls++
	f.records[record.Week] = record
	return nil
}

func (f *fakeStore) LoadWeek(_ context.Context, week string) (models.WeeklyRecord, error) {
	record, ok := f.records[week]
	if !ok {
		return models.WeeklyRecord{}, repo.ErrWeekNotFound
	}
	return record, nil
}

func (f *fakeStore) ListWeeks(_ context.Context) ([]string, error) {
	f.listCalls++
	weeks := make([]string, 0, len(f.records))
	for week := range f.records {
		weeks = append(weeks, week)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(weeks)))
	return weeks, nil
}

func (f *fakeStore) Prune(_ context.Context, retainWeeks int) (int, error) {
	weeks, _ := f.ListWeeks(context.Background())
	removed := 0
	for i, week := range weeks {
		if i >= retainWeeks {
			delete(f.records, week)
			removed++
		}
	}
	return removed, nil
}

func testService(t *testing.T, store repo.SnapshotStore, provider cache.Provider) *TriageService {
	t.Helper()
	t.Setenv("MIRADOR_TRIAGE_CONFIG", "")
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	trendAnalyzer := trends.NewAnalyzer(nil, store, cfg.Trends)
	return NewTriageService(nil, cfg, store, trendAnalyzer, provider)
}

func testEvents() []map[string]any {
	start := time.Date(2025, 3, 2, 3, 0, 0, 0, time.UTC)
	return []map[string]any{
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
	}
}

func TestRunAnalysisSavesSnapshots(t *testing.T) {
	store := newFakeStore()
	service := testService(t, store, nil)

	report, err := service.RunAnalysis(context.Background(), AnalyzeRequest{
		Events:        testEvents(),
		Week:          "2025-W10",
		SaveSnapshots: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Week != "2025-W10" {
		t.Fatalf("expected requested week, got %s", report.Week)
	}
	if store.saveCalls != 1 {
		t.Fatalf("expected one snapshot write, got %d", store.saveCalls)
	}

	record, ok := store.records["2025-W10"]
	if !ok {
		t.Fatalf("expected stored record for 2025-W10, got %v", store.records)
	}
	if _, ok := record.Monitors["mon-1"]; !ok {
		t.Fatalf("expected mon-1 snapshot, got %v", record.Monitors)
	}
	if record.Summary.MonitorsAnalyzed != 1 {
		t.Fatalf("expected summary for one monitor, got %+v", record.Summary)
	}
}

func TestRunAnalysisWithoutSaving(t *testing.T) {
	store := newFakeStore()
	service := testService(t, store, nil)

	if _, err := service.RunAnalysis(context.Background(), AnalyzeRequest{Events: testEvents()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.saveCalls != 0 {
		t.Fatalf("expected no snapshot writes, got %d", store.saveCalls)
	}
}

func TestRunAnalysisRejectsEmptyEvents(t *testing.T) {
	service := testService(t, newFakeStore(), nil)
	if _, err := service.RunAnalysis(context.Background(), AnalyzeRequest{}); err == nil {
		t.Fatal("expected error for empty events")
	}
}

func TestRunAnalysisRejectsMalformedWeek(t *testing.T) {
	service := testService(t, newFakeStore(), nil)
	req := AnalyzeRequest{Events: testEvents(), Week: "week-ten"}
	if _, err := service.RunAnalysis(context.Background(), req); err == nil {
		t.Fatal("expected error for malformed week")
	}
}

func TestPruneSnapshots(t *testing.T) {
	store := newFakeStore()
	for _, week := range []string{"2025-W01", "2025-W02", "2025-W03"} {
		store.records[week] = models.WeeklyRecord{Week: week}
	}
	service := testService(t, store, nil)

	cfg := service.cfg.Load()
	cfg.Snapshots.RetentionWeeks = 1
	service.SwapConfig(cfg)

	removed, err := service.PruneSnapshots(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
}

func TestFleetTrendsCachesSummary(t *testing.T) {
	store := newFakeStore()
	for _, week := range []string{"2025-W01", "2025-W02"} {
		store.records[week] = models.WeeklyRecord{
			Week: week,
			Monitors: map[string]models.WeeklyMonitorSnapshot{
				"mon-1": {Week: week, MonitorID: "mon-1", HealthScore: 80},
			},
		}
	}
	service := testService(t, store, cache.NewMemoryProvider())

	first, err := service.FleetTrends(context.Background())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.MonitorsAnalyzed != 1 {
		t.Fatalf("expected one monitor analyzed, got %d", first.MonitorsAnalyzed)
	}
	listCallsAfterFirst := store.listCalls

	second, err := service.FleetTrends(context.Background())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if second.MonitorsAnalyzed != first.MonitorsAnalyzed {
		t.Fatalf("cached summary diverged: %+v vs %+v", second, first)
	}
	if store.listCalls != listCallsAfterFirst {
		t.Fatalf("expected cached summary to skip the store, got %d extra calls", store.listCalls-listCallsAfterFirst)
	}
}

func TestSaveSnapshotsInvalidatesTrendCache(t *testing.T) {
	store := newFakeStore()
	for _, week := range []string{"2025-W01", "2025-W02"} {
		store.records[week] = models.WeeklyRecord{
			Week:     week,
			Monitors: map[string]models.WeeklyMonitorSnapshot{"mon-1": {Week: week, MonitorID: "mon-1", HealthScore: 80}},
		}
	}
	service := testService(t, store, cache.NewMemoryProvider())

	if _, err := service.FleetTrends(context.Background()); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	listCallsWarm := store.listCalls

	report := models.AnalysisReport{Week: "2025-W03", Monitors: map[string]models.MonitorMetrics{}}
	if err := service.SaveSnapshots(context.Background(), report); err != nil {
		t.Fatalf("save: %v", err)
	}

	if _, err := service.FleetTrends(context.Background()); err != nil {
		t.Fatalf("post-save call: %v", err)
	}
	if store.listCalls == listCallsWarm {
		t.Fatal("expected trend cache invalidation to hit the store again")
	}
}

func TestMonitorTrendsRequiresID(t *testing.T) {
	service := testService(t, newFakeStore(), nil)
	if _, err := service.MonitorTrends(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty monitor id")
	}
}
