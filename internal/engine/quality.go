package engine

import (
	"sort"
	"time"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

// incidentTransitionsPerHour is the window density past which a burst of
// transitions counts as a flapping incident.
const incidentTransitionsPerHour = 5

// QualityAggregator folds a monitor's cycles into its noise and
// actionability profile.
type QualityAggregator struct {
	cfg    config.AnalysisConfig
	window models.BusinessWindow
}

// NewQualityAggregator constructs a QualityAggregator.
func NewQualityAggregator(cfg config.AnalysisConfig, window models.BusinessWindow) *QualityAggregator {
	return &QualityAggregator{cfg: cfg, window: window}
}

// Aggregate computes per-monitor quality metrics from its cycles. Health
// scoring and classification counts are filled in by the pipeline.
func (q *QualityAggregator) Aggregate(monitorID string, cycles []*models.AlertCycle) models.MonitorMetrics {
	m := models.MonitorMetrics{
		MonitorID:            monitorID,
		CycleCount:           len(cycles),
		Classifications:      make(map[string]models.ClassificationResult, len(cycles)),
		ClassificationCounts: make(map[models.Classification]int),
	}
	if len(cycles) == 0 {
		return m
	}

	teams := make(map[string]struct{})
	envs := make(map[string]struct{})
	var timestamps []time.Time
	recovered, quick, orphaned, human := 0, 0, 0, 0
	var durationSum, businessSum float64

	for _, cycle := range cycles {
		if m.MonitorName == "" {
			m.MonitorName = cycle.MonitorName
		}
		m.EventCount += len(cycle.Events)
		durationSum += cycle.Duration().Seconds()
		businessSum += cycle.BusinessHoursFraction(q.window)

		if cycle.HasRecovery() {
			recovered++
			if cycle.Duration() < 5*time.Minute {
				quick++
			}
		}
		if cycle.Orphaned() {
			orphaned++
		}
		if cycleHasHumanAction(cycle) {
			human++
		}

		for _, ev := range cycle.Events {
			if ev.Team != "" {
				teams[ev.Team] = struct{}{}
			}
			if ev.Env != "" {
				envs[ev.Env] = struct{}{}
			}
			if ev.Timestamp != nil {
				timestamps = append(timestamps, *ev.Timestamp)
			}
		}
	}

	n := float64(len(cycles))
	m.SelfHealingRate = float64(recovered) / n
	m.ManualResponseRate = float64(human) / n
	m.OrphanRatio = float64(orphaned) / n
	if recovered > 0 {
		m.QuickRecoveryRate = float64(quick) / float64(recovered)
	}
	m.AvgCycleDurationSeconds = durationSum / n
	m.BusinessHoursFraction = businessSum / n
	m.Teams = sortedKeys(teams)
	m.Environments = sortedKeys(envs)

	if len(timestamps) > 0 {
		sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })
		first, last := timestamps[0], timestamps[len(timestamps)-1]
		m.FirstEvent, m.LastEvent = &first, &last
		m.Flapping = flapStats(timestamps)
	}

	m.NoiseScore = q.noiseScore(m)
	m.ActionabilityScore, m.ActionabilityConfidence = q.actionability(m)
	return m
}

// noiseScore composes self-healing, alert frequency, transition density and
// the absence of manual response into a 0-100 noise estimate.
func (q *QualityAggregator) noiseScore(m models.MonitorMetrics) float64 {
	frequency := minf(1, float64(m.CycleCount)/float64(q.cfg.AnalysisPeriodDays))
	manualRate := 1 - m.SelfHealingRate
	score := 40*m.SelfHealingRate +
		25*frequency +
		20*minf(1, m.Flapping.MaxTransitionsPerHour/10) +
		15*(1-manualRate)
	return clamp(score, 0, 100)
}

func (q *QualityAggregator) actionability(m models.MonitorMetrics) (score, confidence float64) {
	manual := 1 - m.SelfHealingRate
	durationSignal := minf(1, m.AvgCycleDurationSeconds/60/30)
	ratioSignal := minf(1, avgAlertEventRatio(m))

	score = q.cfg.ManualRateWeight*manual +
		q.cfg.DurationWeight*durationSignal +
		q.cfg.AlertRatioWeight*ratioSignal
	confidence = (manual + durationSignal + ratioSignal) / 3
	return clamp(score, 0, 100), clamp01(confidence)
}

// avgAlertEventRatio approximates the monitor's alert-event share from its
// event volume per cycle. Cycle-level ratios are folded in during
// aggregation when event destinations are known.
func avgAlertEventRatio(m models.MonitorMetrics) float64 {
	if m.EventCount == 0 || m.CycleCount == 0 {
		return 0
	}
	// Two events per cycle (trigger + recovery) means no extra alert churn.
	extra := float64(m.EventCount)/float64(m.CycleCount) - 2
	if extra < 0 {
		return 0
	}
	return minf(1, extra/4)
}

// flapStats slides a 1-hour window over the sorted event timestamps with a
// two-pointer scan. Each event anchors one window; the incident count is the
// number of distinct bursts whose window exceeds the fixed threshold.
func flapStats(timestamps []time.Time) models.FlappingStats {
	var stats models.FlappingStats
	if len(timestamps) == 0 {
		return stats
	}

	var sum float64
	inBurst := false
	lo := 0
	for hi := range timestamps {
		for timestamps[hi].Sub(timestamps[lo]) > time.Hour {
			lo++
		}
		count := float64(hi - lo + 1)
		sum += count
		if count > stats.MaxTransitionsPerHour {
			stats.MaxTransitionsPerHour = count
		}
		if count > incidentTransitionsPerHour {
			if !inBurst {
				stats.IncidentCount++
				inBurst = true
			}
		} else {
			inBurst = false
		}
	}
	stats.AvgTransitionsPerHour = sum / float64(len(timestamps))
	return stats
}

func cycleHasHumanAction(cycle *models.AlertCycle) bool {
	for _, ev := range cycle.Events {
		if ev.HumanAction || ev.Paged {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
