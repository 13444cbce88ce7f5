package models

import (
	"encoding/json"
	"fmt"
)

// RecommendationKind enumerates the actions the triage engine can suggest.
type RecommendationKind string

const (
	RecommendRemove           RecommendationKind = "remove"
	RecommendReviewThresholds RecommendationKind = "review_thresholds"
	RecommendWatch            RecommendationKind = "watch"
	RecommendKeep             RecommendationKind = "keep"
	RecommendSilenceFlapping  RecommendationKind = "silence_flapping"
	RecommendEscalateTrend    RecommendationKind = "escalate_trend"
)

// RecommendationDetail is the kind-specific payload. Each kind has a fixed
// shape; the sealed marker keeps the set closed.
type RecommendationDetail interface {
	recommendationDetail()
}

// RemoveDetail backs a remove recommendation.
type RemoveDetail struct {
	HealthScore float64 `json:"health_score"`
	EventCount  int     `json:"event_count"`
	NoiseScore  float64 `json:"noise_score"`
}

// ReviewThresholdsDetail backs a review_thresholds recommendation, carrying
// concrete hysteresis/debounce suggestions for the monitor configuration.
type ReviewThresholdsDetail struct {
	HealthScore               float64 `json:"health_score"`
	CycleCount                int     `json:"cycle_count"`
	SuggestedHysteresisSeconds float64 `json:"suggested_hysteresis_seconds"`
	SuggestedDebounceSeconds   float64 `json:"suggested_debounce_seconds"`
}

// WatchDetail backs a watch recommendation.
type WatchDetail struct {
	HealthScore float64 `json:"health_score"`
	Grade       string  `json:"grade"`
}

// KeepDetail backs a keep recommendation.
type KeepDetail struct {
	HealthScore float64 `json:"health_score"`
	Grade       string  `json:"grade"`
}

// SilenceFlappingDetail backs a silence_flapping recommendation.
type SilenceFlappingDetail struct {
	WindowCycles             int     `json:"window_cycles"`
	MaxTransitionsPerHour    float64 `json:"max_transitions_per_hour"`
	SuggestedDebounceSeconds float64 `json:"suggested_debounce_seconds"`
}

// EscalateTrendDetail backs an escalate_trend recommendation.
type EscalateTrendDetail struct {
	Metric       string  `json:"metric"`
	Direction    string  `json:"direction"`
	DeltaPercent float64 `json:"delta_percent"`
	Significance float64 `json:"significance"`
}

func (RemoveDetail) recommendationDetail()           {}
func (ReviewThresholdsDetail) recommendationDetail() {}
func (WatchDetail) recommendationDetail()            {}
func (KeepDetail) recommendationDetail()             {}
func (SilenceFlappingDetail) recommendationDetail()  {}
func (EscalateTrendDetail) recommendationDetail()    {}

// Recommendation is one typed, confidence-qualified suggestion for a monitor.
type Recommendation struct {
	Kind       RecommendationKind   `json:"kind"`
	MonitorID  string               `json:"monitor_id"`
	Priority   string               `json:"priority"`
	Action     string               `json:"action"`
	Confidence float64              `json:"confidence"`
	Detail     RecommendationDetail `json:"detail,omitempty"`
}

// UnmarshalJSON decodes the detail payload into the variant matching Kind.
func (r *Recommendation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind       RecommendationKind `json:"kind"`
		MonitorID  string             `json:"monitor_id"`
		Priority   string             `json:"priority"`
		Action     string             `json:"action"`
		Confidence float64            `json:"confidence"`
		Detail     json.RawMessage    `json:"detail"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Kind = raw.Kind
	r.MonitorID = raw.MonitorID
	r.Priority = raw.Priority
	r.Action = raw.Action
	r.Confidence = raw.Confidence
	r.Detail = nil
	if len(raw.Detail) == 0 || string(raw.Detail) == "null" {
		return nil
	}

	decode := func(v RecommendationDetail) error {
		if err := json.Unmarshal(raw.Detail, v); err != nil {
			return fmt.Errorf("decode %s detail: %w", raw.Kind, err)
		}
		return nil
	}

	switch raw.Kind {
	case RecommendRemove:
		d := &RemoveDetail{}
		if err := decode(d); err != nil {
			return err
		}
		r.Detail = *d
	case RecommendReviewThresholds:
		d := &ReviewThresholdsDetail{}
		if err := decode(d); err != nil {
			return err
		}
		r.Detail = *d
	case RecommendWatch:
		d := &WatchDetail{}
		if err := decode(d); err != nil {
			return err
		}
		r.Detail = *d
	case RecommendKeep:
		d := &KeepDetail{}
		if err := decode(d); err != nil {
			return err
		}
		r.Detail = *d
	case RecommendSilenceFlapping:
		d := &SilenceFlappingDetail{}
		if err := decode(d); err != nil {
			return err
		}
		r.Detail = *d
	case RecommendEscalateTrend:
		d := &EscalateTrendDetail{}
		if err := decode(d); err != nil {
			return err
		}
		r.Detail = *d
	default:
		return fmt.Errorf("unknown recommendation kind %q", raw.Kind)
	}
	return nil
}
