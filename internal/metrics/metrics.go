package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful analyses and snapshot writes.
	OutcomeSuccess = "success"
	// OutcomeError labels failed ones.
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_triage",
			Name:      "analyses_total",
			Help:      "Total number of triage analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_triage",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	cyclesClassifiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_triage",
			Name:      "cycles_classified_total",
			Help:      "Alert cycles classified, partitioned by classification.",
		},
		[]string{"classification"},
	)

	monitorsSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mirador_triage",
			Name:      "monitors_skipped_total",
			Help:      "Monitors skipped because their data failed analysis.",
		},
	)

	snapshotWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_triage",
			Name:      "snapshot_writes_total",
			Help:      "Weekly snapshot writes, partitioned by backend and outcome.",
		},
		[]string{"backend", "outcome"},
	)
)

// Register attaches mirador-triage collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		cyclesClassifiedTotal,
		monitorsSkippedTotal,
		snapshotWritesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveCyclesClassified counts classified cycles per classification label.
func ObserveCyclesClassified(classification string, count int) {
	if count <= 0 {
		return
	}
	cyclesClassifiedTotal.WithLabelValues(classification).Add(float64(count))
}

// ObserveMonitorSkipped counts a monitor skipped for corrupt data.
func ObserveMonitorSkipped() {
	monitorsSkippedTotal.Inc()
}

// ObserveSnapshotWrite records a snapshot write outcome per backend.
func ObserveSnapshotWrite(backend, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	snapshotWritesTotal.WithLabelValues(backend, label).Inc()
}
