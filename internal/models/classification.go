package models

// Classification labels an alert cycle by its triage value.
type Classification string

const (
	ClassificationFlapping        Classification = "flapping"
	ClassificationBenignTransient Classification = "benign_transient"
	ClassificationActionable      Classification = "actionable"
)

// ClassificationResult is the outcome of classifying one alert cycle.
// It is produced exactly once per cycle; the monitor-level flapping rule
// may replace a benign_transient result with a flapping one, once.
type ClassificationResult struct {
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Reasons        []string       `json:"reasons,omitempty"`
	Overridden     bool           `json:"overridden,omitempty"`
}
