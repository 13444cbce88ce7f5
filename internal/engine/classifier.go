package engine

import (
	"fmt"
	"time"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
)

// Classifier decides whether a single alert cycle is flapping noise, a
// benign transient, or genuinely actionable. It holds only read-only
// configuration; Classify is pure and deterministic.
type Classifier struct {
	cfg    config.AnalysisConfig
	window models.BusinessWindow
}

// NewClassifier constructs a Classifier from the analysis config and the
// business-hours window.
func NewClassifier(cfg config.AnalysisConfig, window models.BusinessWindow) *Classifier {
	return &Classifier{cfg: cfg, window: window}
}

// Classify runs the ordered decision procedure over one cycle. The input is
// never mutated; writing the result back onto the cycle is the pipeline's
// job.
func (c *Classifier) Classify(cycle *models.AlertCycle) models.ClassificationResult {
	if len(cycle.Events) < c.cfg.MinEventsForClassification {
		return models.ClassificationResult{
			Classification: models.ClassificationActionable,
			Confidence:     0.1,
			Reasons: []string{fmt.Sprintf("only %d events, need %d to classify",
				len(cycle.Events), c.cfg.MinEventsForClassification)},
		}
	}

	if result, decided := c.checkBenignTransient(cycle); decided {
		return result
	}
	if result, decided := c.checkFlapping(cycle); decided {
		return result
	}
	return c.classifyActionable(cycle)
}

// checkBenignTransient implements the benign gate. Gate failures (too long,
// too many transitions, human involvement) fall through to the flapping
// check. A gate pass always decides the cycle: either benign_transient or
// actionable at 0.8 minus the accumulated evidence. Single-transition cycles
// cannot flap, so nothing is lost by deciding here.
func (c *Classifier) checkBenignTransient(cycle *models.AlertCycle) (models.ClassificationResult, bool) {
	duration := cycle.Duration().Seconds()
	if duration > c.cfg.TransientMaxDurationSeconds {
		return models.ClassificationResult{}, false
	}
	if cycle.TransitionCount() > 1 {
		return models.ClassificationResult{}, false
	}
	if c.humanActionInvolved(cycle) {
		return models.ClassificationResult{}, false
	}

	total := 0.6
	reasons := []string{"within transient duration limit", "single state transition", "no human action"}

	if duration < c.cfg.TransientMaxDurationSeconds/2 {
		total += 0.12
		reasons = append(reasons, "short duration")
	}
	total += 0.04 // single-transition simplicity
	total += 0.04 // absence of human action

	if ttr := cycle.TimeToResolution(); ttr != nil && duration > 0 {
		if diff := ttr.Seconds() - duration; diff >= -0.2*duration && diff <= 0.2*duration {
			total += 0.12
			reasons = append(reasons, "resolution time matches cycle duration")
		}
	}
	if cycle.BusinessHoursFraction(c.window) < 0.5 {
		total += 0.08
		reasons = append(reasons, "occurred outside business hours")
	}

	if total >= 0.7 {
		return models.ClassificationResult{
			Classification: models.ClassificationBenignTransient,
			Confidence:     clamp01(total),
			Reasons:        reasons,
		}, true
	}
	return models.ClassificationResult{
		Classification: models.ClassificationActionable,
		Confidence:     clamp01(0.8 - total),
		Reasons:        append(reasons, "insufficient benign-transient evidence"),
	}, true
}

func (c *Classifier) checkFlapping(cycle *models.AlertCycle) (models.ClassificationResult, bool) {
	total := 0.4
	var reasons []string

	if cycle.TransitionCount() >= 4 {
		total += 0.2
		reasons = append(reasons, fmt.Sprintf("%d state transitions", cycle.TransitionCount()))
	}
	if cycle.Duration() < time.Minute {
		total += 0.15
		reasons = append(reasons, "cycle shorter than a minute")
	}
	if osc := oscillationScore(cycle.StateSequence()); osc > 0 {
		total += 0.3 * osc
		reasons = append(reasons, fmt.Sprintf("oscillation score %.2f", osc))
	}

	if total >= 0.7 {
		return models.ClassificationResult{
			Classification: models.ClassificationFlapping,
			Confidence:     clamp01(total),
			Reasons:        reasons,
		}, true
	}
	return models.ClassificationResult{}, false
}

func (c *Classifier) classifyActionable(cycle *models.AlertCycle) models.ClassificationResult {
	total := 0.5
	reasons := []string{"default actionable"}

	if cycle.Duration().Seconds() >= c.cfg.ActionableMinDurationSeconds {
		total += 0.2
		reasons = append(reasons, "sustained duration")
	}
	if c.humanActionInvolved(cycle) {
		total += 0.2
		reasons = append(reasons, "human action involved")
	}
	if cycle.BusinessHoursFraction(c.window) >= 0.5 {
		total += 0.05
		reasons = append(reasons, "occurred during business hours")
	}
	if cycle.TransitionCount() > 1 {
		total += 0.05
		reasons = append(reasons, "multiple state transitions")
	}

	return models.ClassificationResult{
		Classification: models.ClassificationActionable,
		Confidence:     clamp01(total),
		Reasons:        reasons,
	}
}

// humanActionInvolved is true on explicit human-action or paging metadata,
// or when resolution arrives far later than the alert itself lasted:
// beyond 1.5x the cycle duration and beyond 600 seconds.
func (c *Classifier) humanActionInvolved(cycle *models.AlertCycle) bool {
	for _, ev := range cycle.Events {
		if ev.HumanAction || ev.Paged {
			return true
		}
	}
	ttr := cycle.TimeToResolution()
	if ttr == nil {
		return false
	}
	duration := cycle.ReportedDurationSeconds()
	if duration == 0 {
		duration = cycle.Duration().Seconds()
	}
	return ttr.Seconds() > 1.5*duration && ttr.Seconds() > 600
}

// oscillationScore is the fraction of 3-state windows in the deduplicated
// sequence where the outer states match and differ from the middle one.
func oscillationScore(seq []models.MonitorState) float64 {
	if len(seq) < 3 {
		return 0
	}
	windows := len(seq) - 2
	oscillating := 0
	for i := 0; i < windows; i++ {
		if seq[i] == seq[i+2] && seq[i] != seq[i+1] {
			oscillating++
		}
	}
	return float64(oscillating) / float64(windows)
}

func clamp01(value float64) float64 {
	return clamp(value, 0, 1)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
