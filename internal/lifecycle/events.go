package lifecycle

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// ParseEvent normalizes one raw event record into a LifecycleEvent. Missing
// or malformed fields degrade to their zero values; parsing never fails the
// batch. Sequence is the record's position in the batch and seeds cycle-key
// synthesis when nothing better is available.
func ParseEvent(raw map[string]any, sequence int) models.LifecycleEvent {
	monitor, _ := raw["monitor"].(map[string]any)
	attributes, _ := raw["attributes"].(map[string]any)
	lifecycle, _ := raw["lifecycle"].(map[string]any)

	ev := models.LifecycleEvent{
		Raw:       raw,
		EventID:   firstString(raw["event_id"], raw["id"]),
		Timestamp: parseTimestamp(raw["timestamp"]),
		Status:    stringField(raw["status"]),
		Team:      stringField(raw["team"]),
		Env:       stringField(raw["env"]),
		Priority:  stringField(raw["priority"]),
		Severity:  stringField(raw["severity"]),
	}

	if d := parseFloat(raw["duration"]); d != nil {
		ev.DurationSeconds = d
	} else if d := parseFloat(raw["duration_seconds"]); d != nil {
		ev.DurationSeconds = d
	}

	// Monitor id falls through several metadata paths before "unknown".
	ev.MonitorID = firstString(
		mapField(monitor, "id"),
		raw["monitor_id"],
		mapField(attributes, "monitor_id"),
	)
	if ev.MonitorID == "" {
		ev.MonitorID = "unknown"
	}
	ev.MonitorName = firstString(
		mapField(monitor, "name"),
		raw["monitor_name"],
		mapField(attributes, "monitor_name"),
	)

	if lifecycle != nil {
		ev.SourceState = models.NormalizeState(stringField(lifecycle["source_state"]))
		ev.DestinationState = models.NormalizeState(stringField(lifecycle["destination_state"]))
		ev.TransitionType = stringField(lifecycle["transition_type"])
	}
	if ev.SourceState == "" {
		ev.SourceState = models.NormalizeState(stringField(raw["source_state"]))
	}
	if ev.DestinationState == "" {
		ev.DestinationState = models.NormalizeState(stringField(raw["destination_state"]))
	}
	if ev.TransitionType == "" {
		ev.TransitionType = stringField(raw["transition_type"])
	}

	ev.Paged = boolField(raw["paged"]) || boolField(mapField(attributes, "paged"))
	ev.HumanAction = boolField(raw["human_action"]) ||
		boolField(raw["acknowledged"]) ||
		boolField(mapField(attributes, "human_action"))

	// Cycle key falls through its own chain and is synthesized as a last
	// resort so no event is ever dropped for lacking one.
	ev.CycleKey = firstString(
		mapField(monitor, "alert_cycle_key"),
		mapField(monitor, "cycle_key"),
		raw["alert_cycle_key"],
		raw["cycle_key"],
		raw["group_key"],
		mapField(attributes, "cycle_key"),
	)
	if ev.CycleKey == "" {
		ev.CycleKey = synthesizeCycleKey(ev, sequence)
	}

	return ev
}

// ParseBatch normalizes a whole batch, preserving input order.
func ParseBatch(raw []map[string]any) []models.LifecycleEvent {
	events := make([]models.LifecycleEvent, 0, len(raw))
	for i, record := range raw {
		if record == nil {
			continue
		}
		events = append(events, ParseEvent(record, i))
	}
	return events
}

func synthesizeCycleKey(ev models.LifecycleEvent, sequence int) string {
	switch {
	case ev.EventID != "":
		return fmt.Sprintf("%s:%s", ev.MonitorID, ev.EventID)
	case ev.Timestamp != nil:
		return fmt.Sprintf("%s:%d", ev.MonitorID, ev.Timestamp.UnixNano())
	default:
		return fmt.Sprintf("%s:seq-%d", ev.MonitorID, sequence)
	}
}

// parseTimestamp accepts ISO-8601 strings, epoch numbers (seconds or
// milliseconds), or nothing. Anything unparseable degrades to nil.
func parseTimestamp(value any) *time.Time {
	switch v := value.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				t = t.UTC()
				return &t
			}
		}
		return nil
	case float64:
		return epochTime(v)
	case int:
		return epochTime(float64(v))
	case int64:
		return epochTime(float64(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return epochTime(f)
		}
		return nil
	default:
		return nil
	}
}

func epochTime(v float64) *time.Time {
	if v <= 0 {
		return nil
	}
	// Values past the year 33658 in seconds are millisecond epochs.
	if v > 1e12 {
		v /= 1000
	}
	sec := int64(v)
	nsec := int64((v - float64(sec)) * float64(time.Second))
	t := time.Unix(sec, nsec).UTC()
	return &t
}

func parseFloat(value any) *float64 {
	switch v := value.(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case int64:
		f := float64(v)
		return &f
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return &f
		}
		return nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

func stringField(value any) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

func boolField(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true") || v == "1"
	default:
		return false
	}
}

func mapField(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

func firstString(values ...any) string {
	for _, v := range values {
		if s := stringField(v); s != "" {
			return s
		}
	}
	return ""
}
