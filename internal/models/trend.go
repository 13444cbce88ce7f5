package models

// TrendDirection classifies how a metric is moving across weeks.
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendDegrading        TrendDirection = "degrading"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// TrendMetric is the fitted trend of one metric across weekly snapshots.
// Significance is the absolute correlation coefficient of the regression.
type TrendMetric struct {
	Name           string         `json:"name"`
	Current        float64        `json:"current"`
	Previous       float64        `json:"previous"`
	Delta          float64        `json:"delta"`
	DeltaPercent   float64        `json:"delta_percent"`
	RollingAverage float64        `json:"rolling_average"`
	Slope          float64        `json:"slope"`
	Direction      TrendDirection `json:"direction"`
	Significance   float64        `json:"significance"`
	Weeks          int            `json:"weeks"`
}

// Notable reports whether the metric moved enough to call out in a report.
func (t TrendMetric) Notable() bool {
	pct := t.DeltaPercent
	if pct < 0 {
		pct = -pct
	}
	return pct > 20 || t.Significance > 0.7
}

// MonitorTrendAnalysis aggregates a monitor's tracked metric trends into a
// significance-weighted overall direction.
type MonitorTrendAnalysis struct {
	MonitorID  string         `json:"monitor_id"`
	Weeks      int            `json:"weeks"`
	Metrics    []TrendMetric  `json:"metrics"`
	Direction  TrendDirection `json:"direction"`
	Confidence float64        `json:"confidence"`
}

// MetricSwing is a single-metric change large enough to surface fleet-wide.
type MetricSwing struct {
	MonitorID    string         `json:"monitor_id"`
	Metric       string         `json:"metric"`
	Direction    TrendDirection `json:"direction"`
	DeltaPercent float64        `json:"delta_percent"`
	Significance float64        `json:"significance"`
}

// TrendSummary is the fleet-wide trend rollup.
type TrendSummary struct {
	Weeks            []string               `json:"weeks"`
	MonitorsAnalyzed int                    `json:"monitors_analyzed"`
	Improving        int                    `json:"improving"`
	Degrading        int                    `json:"degrading"`
	Stable           int                    `json:"stable"`
	InsufficientData int                    `json:"insufficient_data"`
	TopImproving     []MonitorTrendAnalysis `json:"top_improving,omitempty"`
	TopDegrading     []MonitorTrendAnalysis `json:"top_degrading,omitempty"`
	Swings           []MetricSwing          `json:"swings,omitempty"`
}
