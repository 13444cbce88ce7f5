package models

import "time"

// WeeklyMonitorSnapshot is an immutable point-in-time record of one
// monitor's metrics for one ISO week.
type WeeklyMonitorSnapshot struct {
	Week        string `json:"week"`
	MonitorID   string `json:"monitor_id"`
	MonitorName string `json:"monitor_name,omitempty"`
	Team        string `json:"team,omitempty"`
	Env         string `json:"env,omitempty"`

	HealthScore     float64 `json:"health_score"`
	Grade           string  `json:"grade"`
	NoiseScore      float64 `json:"noise_score"`
	SelfHealingRate float64 `json:"self_healing_rate"`
	FlappingRate    float64 `json:"flapping_rate"`
	ActionableRate  float64 `json:"actionable_rate"`

	CyclesCount int `json:"cycles_count"`
	EventsCount int `json:"events_count"`

	MaxTransitionsPerHour   float64 `json:"max_transitions_per_hour"`
	AvgTransitionsPerHour   float64 `json:"avg_transitions_per_hour"`
	FlapIncidents           int     `json:"flap_incidents"`
	AvgCycleDurationSeconds float64 `json:"avg_cycle_duration_seconds"`

	ClassificationCounts map[Classification]int `json:"classification_counts,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// WeeklySummarySnapshot is the fleet aggregate for one ISO week.
type WeeklySummarySnapshot struct {
	Week                 string                 `json:"week"`
	MonitorsAnalyzed     int                    `json:"monitors_analyzed"`
	CyclesTotal          int                    `json:"cycles_total"`
	EventsTotal          int                    `json:"events_total"`
	AvgHealthScore       float64                `json:"avg_health_score"`
	AvgNoiseScore        float64                `json:"avg_noise_score"`
	ClassificationCounts map[Classification]int `json:"classification_counts,omitempty"`
	NoisiestMonitors     []string               `json:"noisiest_monitors,omitempty"`
	CreatedAt            time.Time              `json:"created_at"`
}

// WeeklyRecord is the unit of snapshot persistence: every monitor snapshot
// plus the fleet aggregate for one ISO week. Re-saving a week replaces its
// record; it never duplicates it.
type WeeklyRecord struct {
	Week     string                           `json:"week"`
	Monitors map[string]WeeklyMonitorSnapshot `json:"monitors"`
	Summary  WeeklySummarySnapshot            `json:"summary"`
	SavedAt  time.Time                        `json:"saved_at"`
}
