package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// ValidationError reports every violated constraint found in one pass.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Violations, "; "))
}

// Validate checks every constraint and returns a single *ValidationError
// listing all violations, or nil when the config is usable.
func (c *Config) Validate() error {
	var violations []string
	add := func(format string, args ...any) {
		violations = append(violations, fmt.Sprintf(format, args...))
	}

	if c.Server.GracefulTimeout < 0 {
		add("server.gracefulTimeout must not be negative")
	}

	a := c.Analysis
	if a.MinEventsForClassification < 1 {
		add("analysis.minEventsForClassification must be at least 1, got %d", a.MinEventsForClassification)
	}
	if a.AnalysisPeriodDays < 1 {
		add("analysis.analysisPeriodDays must be at least 1, got %d", a.AnalysisPeriodDays)
	}
	if a.FlapWindowHours < 1 {
		add("analysis.flapWindowHours must be at least 1, got %d", a.FlapWindowHours)
	}
	if a.FlapMinCycles < 2 {
		add("analysis.flapMinCycles must be at least 2, got %d", a.FlapMinCycles)
	}
	if a.FlapMaxTransitionsPerHour <= 0 {
		add("analysis.flapMaxTransitionsPerHour must be positive, got %g", a.FlapMaxTransitionsPerHour)
	}
	if a.FlapCoefficientOfVariation < 0 {
		add("analysis.flapCoefficientOfVariation must not be negative, got %g", a.FlapCoefficientOfVariation)
	}
	if a.TransientMaxDurationSeconds <= 0 {
		add("analysis.transientMaxDurationSeconds must be positive, got %g", a.TransientMaxDurationSeconds)
	}
	if a.TransientMinGapSeconds < 0 {
		add("analysis.transientMinGapSeconds must not be negative, got %g", a.TransientMinGapSeconds)
	}
	if a.ActionableMinDurationSeconds <= 0 {
		add("analysis.actionableMinDurationSeconds must be positive, got %g", a.ActionableMinDurationSeconds)
	}
	if sum := a.ManualRateWeight + a.DurationWeight + a.AlertRatioWeight; sum != 100 {
		add("analysis actionability weights must sum to 100, got %g", sum)
	}
	if a.SuggestedHysteresisSeconds < 0 || a.SuggestedDebounceSeconds < 0 {
		add("analysis hysteresis/debounce suggestions must not be negative")
	}

	bh := c.BusinessHours
	if bh.StartHour < 0 || bh.StartHour > 23 {
		add("businessHours.startHour must be in [0,23], got %d", bh.StartHour)
	}
	if bh.EndHour < 1 || bh.EndHour > 24 {
		add("businessHours.endHour must be in [1,24], got %d", bh.EndHour)
	}
	if bh.StartHour >= bh.EndHour {
		add("businessHours.startHour (%d) must be before endHour (%d)", bh.StartHour, bh.EndHour)
	}
	if bh.UTCOffsetHours < -12 || bh.UTCOffsetHours > 14 {
		add("businessHours.utcOffsetHours must be in [-12,14], got %d", bh.UTCOffsetHours)
	}
	for _, day := range bh.BusinessDays {
		if day < 0 || day > 6 {
			add("businessHours.businessDays entries must be in [0,6], got %d", day)
		}
	}

	s := c.Scoring
	if s.NoiseThreshold < 0 || s.NoiseThreshold > 100 {
		add("scoring.noiseThreshold must be in [0,100], got %g", s.NoiseThreshold)
	}
	if s.SelfHealingThreshold < 0 || s.SelfHealingThreshold > 1 {
		add("scoring.selfHealingThreshold must be in [0,1], got %g", s.SelfHealingThreshold)
	}
	if !(s.GradeACutoff > s.GradeBCutoff && s.GradeBCutoff > s.GradeCCutoff && s.GradeCCutoff > s.GradeDCutoff) {
		add("scoring grade cutoffs must strictly descend A > B > C > D")
	}
	if s.GradeACutoff > 100 || s.GradeDCutoff < 0 {
		add("scoring grade cutoffs must stay within [0,100]")
	}
	if s.ConfidenceFloor < 0 || s.ConfidenceFloor > 1 {
		add("scoring.confidenceFloor must be in [0,1], got %g", s.ConfidenceFloor)
	}

	t := c.Trends
	if t.MinWeeks < 2 {
		add("trends.minWeeks must be at least 2, got %d", t.MinWeeks)
	}
	if t.LookbackWeeks < t.MinWeeks {
		add("trends.lookbackWeeks (%d) must be at least minWeeks (%d)", t.LookbackWeeks, t.MinWeeks)
	}
	for name, sig := range map[string]float64{
		"stableSignificance":  t.StableSignificance,
		"notableSignificance": t.NotableSignificance,
		"swingSignificance":   t.SwingSignificance,
	} {
		if sig < 0 || sig > 1 {
			add("trends.%s must be in [0,1], got %g", name, sig)
		}
	}
	if t.SwingDeltaPercent <= 0 {
		add("trends.swingDeltaPercent must be positive, got %g", t.SwingDeltaPercent)
	}
	if t.TopMonitors < 1 {
		add("trends.topMonitors must be at least 1, got %d", t.TopMonitors)
	}

	switch c.Snapshots.Backend {
	case "fs", "valkey":
	default:
		add("snapshots.backend must be \"fs\" or \"valkey\", got %q", c.Snapshots.Backend)
	}
	if c.Snapshots.Backend == "fs" && c.Snapshots.Dir == "" {
		add("snapshots.dir is required for the fs backend")
	}
	if c.Snapshots.RetentionWeeks < 1 {
		add("snapshots.retentionWeeks must be at least 1, got %d", c.Snapshots.RetentionWeeks)
	}
	if c.Snapshots.Backend == "valkey" && c.Cache.Addr == "" {
		add("cache.addr is required for the valkey snapshot backend")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		add("cache.addr is required when cache.enabled is true")
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// BusinessWindow converts the config into the domain business-hours window.
func (c *Config) BusinessWindow() models.BusinessWindow {
	days := make(map[time.Weekday]bool, len(c.BusinessHours.BusinessDays))
	for _, d := range c.BusinessHours.BusinessDays {
		days[time.Weekday(d)] = true
	}
	return models.BusinessWindow{
		StartHour:      c.BusinessHours.StartHour,
		EndHour:        c.BusinessHours.EndHour,
		UTCOffsetHours: c.BusinessHours.UTCOffsetHours,
		Days:           days,
	}
}
