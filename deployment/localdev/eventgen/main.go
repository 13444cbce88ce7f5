// eventgen serves synthetic monitor lifecycle event batches for local
// development. POST the generated payload straight into the triage engine:
//
//	curl -s localhost:8080/api/v1/events | curl -s -X POST -d @- localhost:8085/api/v1/analyze
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type lifecycleEvent struct {
	ID               string         `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	TransitionType   string         `json:"transition_type"`
	SourceState      string         `json:"source_state"`
	DestinationState string         `json:"destination_state"`
	DurationSeconds  *float64       `json:"duration,omitempty"`
	Monitor          map[string]any `json:"monitor"`
	AlertCycleKey    string         `json:"alert_cycle_key"`
	Paged            bool           `json:"paged,omitempty"`
	HumanAction      bool           `json:"human_action,omitempty"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		var events []lifecycleEvent

		// A flappy monitor: ten short cycles inside the last day.
		for i := 0; i < 10; i++ {
			start := now.Add(-time.Duration(23-2*i) * time.Hour)
			events = append(events, cyclePair("mon-flappy", "checkout p99 latency", start, 40*time.Second, false)...)
		}

		// A well-behaved monitor: brief self-healing blips.
		for i := 0; i < 3; i++ {
			start := now.Add(-time.Duration(5-i) * 24 * time.Hour)
			events = append(events, cyclePair("mon-healthy", "payments error rate", start, 90*time.Second, false)...)
		}

		// A real incident: long cycle with a human in the loop.
		events = append(events, cyclePair("mon-incident", "orders DB replication lag", now.Add(-36*time.Hour), 45*time.Minute, true)...)

		writeJSON(w, map[string]any{"events": events, "save_snapshots": false})
	})

	logger := log.New(log.Writer(), "eventgen ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8080",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8080")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// cyclePair emits the alert/recovery event pair for one alert cycle.
func cyclePair(monitorID, name string, start time.Time, duration time.Duration, human bool) []lifecycleEvent {
	cycleKey := fmt.Sprintf("%s:%d", monitorID, start.Unix())
	monitor := map[string]any{
		"id":   monitorID,
		"name": name,
		"tags": map[string]any{"team": "platform", "env": "dev"},
	}
	seconds := duration.Seconds() * (0.9 + 0.2*rand.Float64())
	return []lifecycleEvent{
		{
			ID:               uuid.NewString(),
			Timestamp:        start,
			TransitionType:   "alert",
			SourceState:      "OK",
			DestinationState: "ALERT",
			Monitor:          monitor,
			AlertCycleKey:    cycleKey,
			Paged:            human,
		},
		{
			ID:               uuid.NewString(),
			Timestamp:        start.Add(duration),
			TransitionType:   "recovery",
			SourceState:      "ALERT",
			DestinationState: "OK",
			DurationSeconds:  &seconds,
			Monitor:          monitor,
			AlertCycleKey:    cycleKey,
			HumanAction:      human,
		},
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
