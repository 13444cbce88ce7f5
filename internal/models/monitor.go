package models

import "time"

// FlappingStats summarises per-monitor transition density over 1-hour windows.
type FlappingStats struct {
	MaxTransitionsPerHour float64 `json:"max_transitions_per_hour"`
	AvgTransitionsPerHour float64 `json:"avg_transitions_per_hour"`
	IncidentCount         int     `json:"incident_count"`
}

// MonitorFlapResult is the monitor-level sliding-window flapping verdict.
type MonitorFlapResult struct {
	Flapping      bool    `json:"flapping"`
	Confidence    float64 `json:"confidence"`
	WindowCycles  int     `json:"window_cycles"`
	ShortFraction float64 `json:"short_fraction"`
}

// HealthFactors breaks a health score into its weighted components.
type HealthFactors struct {
	AlertRelevance    float64 `json:"alert_relevance"`
	ResponseNecessity float64 `json:"response_necessity"`
	BusinessImpact    float64 `json:"business_impact"`
	TimingQuality     float64 `json:"timing_quality"`
}

// HealthScore is the 0-100 composite plus its grade and factor breakdown.
type HealthScore struct {
	Score   float64       `json:"score"`
	Grade   string        `json:"grade"`
	Factors HealthFactors `json:"factors"`
}

// MonitorMetrics folds one monitor's cycles into its quality profile.
type MonitorMetrics struct {
	MonitorID    string   `json:"monitor_id"`
	MonitorName  string   `json:"monitor_name,omitempty"`
	Teams        []string `json:"teams,omitempty"`
	Environments []string `json:"environments,omitempty"`

	CycleCount int `json:"cycle_count"`
	EventCount int `json:"event_count"`

	SelfHealingRate    float64 `json:"self_healing_rate"`
	ManualResponseRate float64 `json:"manual_response_rate"`
	QuickRecoveryRate  float64 `json:"quick_recovery_rate"`
	OrphanRatio        float64 `json:"orphan_ratio"`

	NoiseScore              float64 `json:"noise_score"`
	ActionabilityScore      float64 `json:"actionability_score"`
	ActionabilityConfidence float64 `json:"actionability_confidence"`

	AvgCycleDurationSeconds float64 `json:"avg_cycle_duration_seconds"`
	BusinessHoursFraction   float64 `json:"business_hours_fraction"`

	Flapping        FlappingStats     `json:"flapping"`
	MonitorFlapping MonitorFlapResult `json:"monitor_flapping"`

	Classifications      map[string]ClassificationResult `json:"classifications"`
	ClassificationCounts map[Classification]int          `json:"classification_counts"`
	Health               HealthScore                     `json:"health"`

	FirstEvent *time.Time `json:"first_event,omitempty"`
	LastEvent  *time.Time `json:"last_event,omitempty"`
}

// FlappingRate is the share of cycles classified as flapping.
func (m MonitorMetrics) FlappingRate() float64 {
	if m.CycleCount == 0 {
		return 0
	}
	return float64(m.ClassificationCounts[ClassificationFlapping]) / float64(m.CycleCount)
}

// ActionableRate is the share of cycles classified as actionable.
func (m MonitorMetrics) ActionableRate() float64 {
	if m.CycleCount == 0 {
		return 0
	}
	return float64(m.ClassificationCounts[ClassificationActionable]) / float64(m.CycleCount)
}

// FleetSummary aggregates an analysis run across every monitor.
type FleetSummary struct {
	MonitorsAnalyzed     int                    `json:"monitors_analyzed"`
	MonitorsSkipped      int                    `json:"monitors_skipped"`
	CyclesTotal          int                    `json:"cycles_total"`
	EventsTotal          int                    `json:"events_total"`
	AvgHealthScore       float64                `json:"avg_health_score"`
	AvgNoiseScore        float64                `json:"avg_noise_score"`
	ClassificationCounts map[Classification]int `json:"classification_counts"`
	NoisiestMonitors     []string               `json:"noisiest_monitors,omitempty"`
}

// AnalysisReport is the full output of one triage run, handed to the
// reporting layer.
type AnalysisReport struct {
	RunID           string                    `json:"run_id"`
	GeneratedAt     time.Time                 `json:"generated_at"`
	Week            string                    `json:"week"`
	Monitors        map[string]MonitorMetrics `json:"monitors"`
	Fleet           FleetSummary              `json:"fleet"`
	Recommendations []Recommendation          `json:"recommendations"`
	SkippedMonitors []string                  `json:"skipped_monitors,omitempty"`
}
