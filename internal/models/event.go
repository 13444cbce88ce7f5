package models

import "time"

// MonitorState enumerates normalized monitor states.
type MonitorState string

const (
	StateOK      MonitorState = "OK"
	StateWarn    MonitorState = "WARN"
	StateAlert   MonitorState = "ALERT"
	StateNoData  MonitorState = "NO_DATA"
	StateUnknown MonitorState = "UNKNOWN"
)

// LifecycleEvent is a single normalized monitor state-transition event.
// Instances are built once by the ingestion layer and never mutated.
type LifecycleEvent struct {
	EventID          string         `json:"event_id"`
	Timestamp        *time.Time     `json:"timestamp,omitempty"`
	MonitorID        string         `json:"monitor_id"`
	MonitorName      string         `json:"monitor_name,omitempty"`
	CycleKey         string         `json:"cycle_key"`
	SourceState      MonitorState   `json:"source_state"`
	DestinationState MonitorState   `json:"destination_state"`
	TransitionType   string         `json:"transition_type,omitempty"`
	Status           string         `json:"status,omitempty"`
	Team             string         `json:"team,omitempty"`
	Env              string         `json:"env,omitempty"`
	DurationSeconds  *float64       `json:"duration_seconds,omitempty"`
	Priority         string         `json:"priority,omitempty"`
	Paged            bool           `json:"paged,omitempty"`
	HumanAction      bool           `json:"human_action,omitempty"`
	Severity         string         `json:"severity,omitempty"`
	Raw              map[string]any `json:"-"`
}
