package models

import (
	"encoding/json"
	"testing"
)

func TestRecommendationUnmarshalDispatchesDetail(t *testing.T) {
	original := Recommendation{
		Kind:       RecommendRemove,
		MonitorID:  "mon-1",
		Priority:   "high",
		Action:     "Remove or silence this monitor",
		Confidence: 0.9,
		Detail:     RemoveDetail{HealthScore: 27.5, EventCount: 200, NoiseScore: 85},
	}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Recommendation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	detail, ok := decoded.Detail.(RemoveDetail)
	if !ok {
		t.Fatalf("expected RemoveDetail, got %T", decoded.Detail)
	}
	if detail.EventCount != 200 || detail.HealthScore != 27.5 {
		t.Fatalf("detail fields lost: %+v", detail)
	}
}

func TestRecommendationUnmarshalSilenceFlapping(t *testing.T) {
	data := []byte(`{"kind":"silence_flapping","monitor_id":"mon-2","priority":"high","confidence":0.95,` +
		`"detail":{"window_cycles":12,"max_transitions_per_hour":8,"suggested_debounce_seconds":60}}`)

	var decoded Recommendation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	detail, ok := decoded.Detail.(SilenceFlappingDetail)
	if !ok {
		t.Fatalf("expected SilenceFlappingDetail, got %T", decoded.Detail)
	}
	if detail.WindowCycles != 12 || detail.SuggestedDebounceSeconds != 60 {
		t.Fatalf("detail fields lost: %+v", detail)
	}
}

func TestRecommendationUnmarshalRejectsUnknownKind(t *testing.T) {
	data := []byte(`{"kind":"mystery","monitor_id":"mon-3","detail":{}}`)
	var decoded Recommendation
	if err := json.Unmarshal(data, &decoded); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestRecommendationUnmarshalNilDetail(t *testing.T) {
	data := []byte(`{"kind":"keep","monitor_id":"mon-4","priority":"low","confidence":0.8}`)
	var decoded Recommendation
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Detail != nil {
		t.Fatalf("expected nil detail, got %+v", decoded.Detail)
	}
}
