package lifecycle

import (
	"sort"

	"github.com/miradorstack/mirador-triage/internal/models"
)

// BuildCycles groups events by cycle key into AlertCycle entities. Events in
// each cycle are sorted ascending by timestamp with a stable sort: events
// without a timestamp sort first and ties keep their original batch order.
// Every event lands in exactly one cycle.
func BuildCycles(events []models.LifecycleEvent) map[string]*models.AlertCycle {
	cycles := make(map[string]*models.AlertCycle)

	for _, ev := range events {
		cycle, ok := cycles[ev.CycleKey]
		if !ok {
			cycle = &models.AlertCycle{
				Key:         ev.CycleKey,
				MonitorID:   ev.MonitorID,
				MonitorName: ev.MonitorName,
			}
			cycles[ev.CycleKey] = cycle
		}
		if cycle.MonitorName == "" && ev.MonitorName != "" {
			cycle.MonitorName = ev.MonitorName
		}
		cycle.Events = append(cycle.Events, ev)
	}

	for _, cycle := range cycles {
		sortEvents(cycle.Events)
	}
	return cycles
}

// GroupByMonitor splits built cycles per monitor id, preserving nothing
// about ordering; callers sort as needed.
func GroupByMonitor(cycles map[string]*models.AlertCycle) map[string][]*models.AlertCycle {
	byMonitor := make(map[string][]*models.AlertCycle)
	for _, cycle := range cycles {
		byMonitor[cycle.MonitorID] = append(byMonitor[cycle.MonitorID], cycle)
	}
	return byMonitor
}

// Ingest is the full ingestion path: raw records to cycles keyed by cycle key.
func Ingest(raw []map[string]any) map[string]*models.AlertCycle {
	return BuildCycles(ParseBatch(raw))
}

func sortEvents(events []models.LifecycleEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		ti, tj := events[i].Timestamp, events[j].Timestamp
		switch {
		case ti == nil && tj == nil:
			return false
		case ti == nil:
			return true
		case tj == nil:
			return false
		default:
			return ti.Before(*tj)
		}
	})
}
