package engine

import (
	"sort"
	"time"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

// FlapDetector finds monitor-level flapping: many separate cycles crowding
// into one time window, even when each cycle looks harmless on its own.
type FlapDetector struct {
	cfg config.AnalysisConfig
}

// NewFlapDetector constructs a FlapDetector.
func NewFlapDetector(cfg config.AnalysisConfig) *FlapDetector {
	return &FlapDetector{cfg: cfg}
}

// Detect slides a window of flapWindowHours over the sorted cycle start
// times with a two-pointer scan. Confidence scales with how far the densest
// window exceeds flapMinCycles, boosted when at least 70% of its cycles are
// individually under five minutes.
func (d *FlapDetector) Detect(cycles []*models.AlertCycle) models.MonitorFlapResult {
	starts := make([]time.Time, 0, len(cycles))
	durations := make([]time.Duration, 0, len(cycles))
	for _, cycle := range cycles {
		if start := cycle.StartTime(); start != nil {
			starts = append(starts, *start)
			durations = append(durations, cycle.Duration())
		}
	}
	if len(starts) < d.cfg.FlapMinCycles {
		return models.MonitorFlapResult{}
	}

	idx := make([]int, len(starts))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return starts[idx[i]].Before(starts[idx[j]]) })

	window := time.Duration(d.cfg.FlapWindowHours) * time.Hour
	densest := 0
	densestLo, densestHi := 0, 0
	lo := 0
	for hi := range idx {
		for starts[idx[hi]].Sub(starts[idx[lo]]) > window {
			lo++
		}
		if count := hi - lo + 1; count > densest {
			densest = count
			densestLo, densestHi = lo, hi
		}
	}

	if densest < d.cfg.FlapMinCycles {
		return models.MonitorFlapResult{WindowCycles: densest}
	}

	short := 0
	for i := densestLo; i <= densestHi; i++ {
		if durations[idx[i]] < 5*time.Minute {
			short++
		}
	}
	shortFraction := float64(short) / float64(densest)

	confidence := 0.4 + 0.2*float64(densest)/float64(d.cfg.FlapMinCycles)
	if shortFraction >= 0.7 {
		confidence += 0.15
	}

	return models.MonitorFlapResult{
		Flapping:      true,
		Confidence:    clamp01(confidence),
		WindowCycles:  densest,
		ShortFraction: shortFraction,
	}
}

// ApplyOverride reclassifies benign_transient cycles as flapping once the
// monitor-level confidence exceeds 0.8: recurring "benign" blips are noise.
// Actionable cycles are never downgraded. Each affected cycle's
// classification is replaced exactly once.
func (d *FlapDetector) ApplyOverride(cycles []*models.AlertCycle, flap models.MonitorFlapResult) int {
	if !flap.Flapping || flap.Confidence <= 0.8 {
		return 0
	}
	overridden := 0
	for _, cycle := range cycles {
		current := cycle.Classification
		if current == nil || current.Classification != models.ClassificationBenignTransient {
			continue
		}
		cycle.Classification = &models.ClassificationResult{
			Classification: models.ClassificationFlapping,
			Confidence:     flap.Confidence,
			Reasons:        append(append([]string(nil), current.Reasons...), "monitor-level flapping override"),
			Overridden:     true,
		}
		overridden++
	}
	return overridden
}
