package models

import (
	"strings"
	"time"
)

// BusinessWindow describes the hours a team treats as working time.
// Hours are local to the configured UTC offset.
type BusinessWindow struct {
	StartHour      int
	EndHour        int
	UTCOffsetHours int
	Days           map[time.Weekday]bool
}

// Contains reports whether t falls inside the window.
func (w BusinessWindow) Contains(t time.Time) bool {
	local := t.UTC().Add(time.Duration(w.UTCOffsetHours) * time.Hour)
	if len(w.Days) > 0 && !w.Days[local.Weekday()] {
		return false
	}
	hour := local.Hour()
	return hour >= w.StartHour && hour < w.EndHour
}

// AlertCycle is one full lifecycle of a monitor: every event sharing a
// cycle key, ordered ascending by timestamp (events without a timestamp
// sort first, preserving their original order).
type AlertCycle struct {
	Key         string           `json:"key"`
	MonitorID   string           `json:"monitor_id"`
	MonitorName string           `json:"monitor_name,omitempty"`
	Events      []LifecycleEvent `json:"events"`

	// Classification is written back exactly once by the analysis pipeline.
	Classification *ClassificationResult `json:"classification,omitempty"`
}

// StartTime returns the first event timestamp, or nil when no event carries one.
func (c *AlertCycle) StartTime() *time.Time {
	for _, ev := range c.Events {
		if ev.Timestamp != nil {
			return ev.Timestamp
		}
	}
	return nil
}

// EndTime returns the last event timestamp, or nil when no event carries one.
func (c *AlertCycle) EndTime() *time.Time {
	for i := len(c.Events) - 1; i >= 0; i-- {
		if c.Events[i].Timestamp != nil {
			return c.Events[i].Timestamp
		}
	}
	return nil
}

// Duration returns the elapsed time between the first and last timestamped
// events. Cycles with fewer than two timestamps have zero duration.
func (c *AlertCycle) Duration() time.Duration {
	start, end := c.StartTime(), c.EndTime()
	if start == nil || end == nil {
		return 0
	}
	if end.Before(*start) {
		return 0
	}
	return end.Sub(*start)
}

// ReportedDurationSeconds returns the largest platform-reported duration
// hint across events, or 0 when none is present.
func (c *AlertCycle) ReportedDurationSeconds() float64 {
	max := 0.0
	for _, ev := range c.Events {
		if ev.DurationSeconds != nil && *ev.DurationSeconds > max {
			max = *ev.DurationSeconds
		}
	}
	return max
}

// StateSequence collapses consecutive duplicate states from each event's
// (source, destination-or-status) pair into a normalized path, e.g.
// [OK WARN ALERT OK].
func (c *AlertCycle) StateSequence() []MonitorState {
	var seq []MonitorState
	push := func(s MonitorState) {
		if s == "" {
			return
		}
		if len(seq) > 0 && seq[len(seq)-1] == s {
			return
		}
		seq = append(seq, s)
	}
	for _, ev := range c.Events {
		push(ev.SourceState)
		dest := ev.DestinationState
		if dest == "" && ev.Status != "" {
			dest = NormalizeState(ev.Status)
		}
		push(dest)
	}
	return seq
}

// TransitionCount returns the number of state changes along the sequence.
func (c *AlertCycle) TransitionCount() int {
	seq := c.StateSequence()
	if len(seq) == 0 {
		return 0
	}
	return len(seq) - 1
}

// HasRecovery reports whether any event recovers the monitor: a transition
// type containing "recovery" or a destination state of OK.
func (c *AlertCycle) HasRecovery() bool {
	return c.firstRecoveryIndex() >= 0
}

// HasAlert reports whether the cycle ever reaches ALERT.
func (c *AlertCycle) HasAlert() bool {
	for _, s := range c.StateSequence() {
		if s == StateAlert {
			return true
		}
	}
	return false
}

// AlertEventRatio is the share of events whose destination state is ALERT.
func (c *AlertCycle) AlertEventRatio() float64 {
	if len(c.Events) == 0 {
		return 0
	}
	alerts := 0
	for _, ev := range c.Events {
		if ev.DestinationState == StateAlert {
			alerts++
		}
	}
	return float64(alerts) / float64(len(c.Events))
}

// TimeToResolution returns the elapsed time from cycle start to the first
// recovering event, or nil when the cycle never recovers.
func (c *AlertCycle) TimeToResolution() *time.Duration {
	idx := c.firstRecoveryIndex()
	if idx < 0 {
		return nil
	}
	start := c.StartTime()
	recovered := c.Events[idx].Timestamp
	if start == nil || recovered == nil {
		return nil
	}
	ttr := recovered.Sub(*start)
	if ttr < 0 {
		ttr = 0
	}
	return &ttr
}

// BusinessHoursFraction is the share of timestamped events inside the window.
func (c *AlertCycle) BusinessHoursFraction(window BusinessWindow) float64 {
	stamped, inside := 0, 0
	for _, ev := range c.Events {
		if ev.Timestamp == nil {
			continue
		}
		stamped++
		if window.Contains(*ev.Timestamp) {
			inside++
		}
	}
	if stamped == 0 {
		return 0
	}
	return float64(inside) / float64(stamped)
}

// Orphaned reports whether the cycle holds a single event, meaning the
// lifecycle never completed in the collected batch.
func (c *AlertCycle) Orphaned() bool {
	return len(c.Events) == 1
}

func (c *AlertCycle) firstRecoveryIndex() int {
	for i, ev := range c.Events {
		if strings.Contains(strings.ToLower(ev.TransitionType), "recovery") {
			return i
		}
		if ev.DestinationState == StateOK {
			return i
		}
	}
	return -1
}

// NormalizeState maps free-form state strings onto the MonitorState enum.
func NormalizeState(value string) MonitorState {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "OK", "RECOVERED", "RESOLVED":
		return StateOK
	case "WARN", "WARNING":
		return StateWarn
	case "ALERT", "CRITICAL", "TRIGGERED":
		return StateAlert
	case "NO DATA", "NO_DATA", "NODATA":
		return StateNoData
	case "":
		return ""
	default:
		return StateUnknown
	}
}
