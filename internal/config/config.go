package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the triage service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Analysis      AnalysisConfig      `yaml:"analysis"`
	BusinessHours BusinessHoursConfig `yaml:"businessHours"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Trends        TrendsConfig        `yaml:"trends"`
	Snapshots     SnapshotsConfig     `yaml:"snapshots"`
	Cache         CacheConfig         `yaml:"cache"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AnalysisConfig groups the cycle-classification tunables, flat per concern.
type AnalysisConfig struct {
	MinEventsForClassification int `yaml:"minEventsForClassification"`
	AnalysisPeriodDays         int `yaml:"analysisPeriodDays"`

	// Flapping.
	FlapWindowHours           int     `yaml:"flapWindowHours"`
	FlapMinCycles             int     `yaml:"flapMinCycles"`
	FlapMaxTransitionsPerHour float64 `yaml:"flapMaxTransitionsPerHour"`
	// FlapCoefficientOfVariation is reserved: accepted and validated but not
	// consumed by the current classification logic.
	FlapCoefficientOfVariation float64 `yaml:"flapCoefficientOfVariation"`

	// Benign transients.
	TransientMaxDurationSeconds float64 `yaml:"transientMaxDurationSeconds"`
	TransientWindowSeconds      float64 `yaml:"transientWindowSeconds"`
	TransientMinGapSeconds      float64 `yaml:"transientMinGapSeconds"`

	// Actionable cycles.
	ActionableMinDurationSeconds float64 `yaml:"actionableMinDurationSeconds"`
	ActionableMinTTRSeconds      float64 `yaml:"actionableMinTTRSeconds"`
	ManualRateWeight             float64 `yaml:"manualRateWeight"`
	DurationWeight               float64 `yaml:"durationWeight"`
	AlertRatioWeight             float64 `yaml:"alertRatioWeight"`

	// Hysteresis/debounce suggestions emitted with threshold reviews.
	SuggestedHysteresisSeconds float64 `yaml:"suggestedHysteresisSeconds"`
	SuggestedDebounceSeconds   float64 `yaml:"suggestedDebounceSeconds"`
}

// BusinessHoursConfig bounds the working-hours window used by the classifier.
type BusinessHoursConfig struct {
	StartHour      int   `yaml:"startHour"`
	EndHour        int   `yaml:"endHour"`
	UTCOffsetHours int   `yaml:"utcOffsetHours"`
	BusinessDays   []int `yaml:"businessDays"`
}

// ScoringConfig holds the noise/health cut points.
type ScoringConfig struct {
	NoiseThreshold       float64 `yaml:"noiseThreshold"`
	SelfHealingThreshold float64 `yaml:"selfHealingThreshold"`
	GradeACutoff         float64 `yaml:"gradeACutoff"`
	GradeBCutoff         float64 `yaml:"gradeBCutoff"`
	GradeCCutoff         float64 `yaml:"gradeCCutoff"`
	GradeDCutoff         float64 `yaml:"gradeDCutoff"`
	ConfidenceFloor      float64 `yaml:"confidenceFloor"`
}

// TrendsConfig controls the weekly trend engine.
type TrendsConfig struct {
	MinWeeks            int     `yaml:"minWeeks"`
	LookbackWeeks       int     `yaml:"lookbackWeeks"`
	StableSignificance  float64 `yaml:"stableSignificance"`
	NotableSignificance float64 `yaml:"notableSignificance"`
	SwingSignificance   float64 `yaml:"swingSignificance"`
	SwingDeltaPercent   float64 `yaml:"swingDeltaPercent"`
	TopMonitors         int     `yaml:"topMonitors"`
}

// SnapshotsConfig controls weekly snapshot persistence.
type SnapshotsConfig struct {
	Backend        string `yaml:"backend"`
	Dir            string `yaml:"dir"`
	RetentionWeeks int    `yaml:"retentionWeeks"`
}

// CacheConfig controls Valkey-backed caching and the Valkey snapshot backend.
type CacheConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Addr            string        `yaml:"addr"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	DB              int           `yaml:"db"`
	DialTimeout     time.Duration `yaml:"dialTimeout"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	MaxRetries      int           `yaml:"maxRetries"`
	TLS             bool          `yaml:"tls"`
	TrendSummaryTTL time.Duration `yaml:"trendSummaryTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
// The returned config has already passed Validate.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_TRIAGE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8085",
			MetricsAddress:  ":2113",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Analysis: AnalysisConfig{
			MinEventsForClassification:   2,
			AnalysisPeriodDays:           7,
			FlapWindowHours:              24,
			FlapMinCycles:                5,
			FlapMaxTransitionsPerHour:    5,
			FlapCoefficientOfVariation:   0.5,
			TransientMaxDurationSeconds:  300,
			TransientWindowSeconds:       3600,
			TransientMinGapSeconds:       120,
			ActionableMinDurationSeconds: 600,
			ActionableMinTTRSeconds:      600,
			ManualRateWeight:             50,
			DurationWeight:               20,
			AlertRatioWeight:             30,
			SuggestedHysteresisSeconds:   120,
			SuggestedDebounceSeconds:     60,
		},
		BusinessHours: BusinessHoursConfig{
			StartHour:    9,
			EndHour:      18,
			BusinessDays: []int{1, 2, 3, 4, 5},
		},
		Scoring: ScoringConfig{
			NoiseThreshold:       70,
			SelfHealingThreshold: 0.8,
			GradeACutoff:         80,
			GradeBCutoff:         70,
			GradeCCutoff:         60,
			GradeDCutoff:         50,
			ConfidenceFloor:      0.1,
		},
		Trends: TrendsConfig{
			MinWeeks:            2,
			LookbackWeeks:       12,
			StableSignificance:  0.3,
			NotableSignificance: 0.7,
			SwingSignificance:   0.8,
			SwingDeltaPercent:   30,
			TopMonitors:         5,
		},
		Snapshots: SnapshotsConfig{
			Backend:        "fs",
			Dir:            "data/snapshots",
			RetentionWeeks: 26,
		},
		Cache: CacheConfig{
			Enabled:         false,
			DialTimeout:     2 * time.Second,
			ReadTimeout:     500 * time.Millisecond,
			WriteTimeout:    500 * time.Millisecond,
			MaxRetries:      2,
			TrendSummaryTTL: 5 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_TRIAGE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_TRIAGE_SNAPSHOTS_BACKEND"); v != "" {
		cfg.Snapshots.Backend = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_SNAPSHOTS_DIR"); v != "" {
		cfg.Snapshots.Dir = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_SNAPSHOTS_RETENTION_WEEKS"); v != "" {
		if weeks, err := strconv.Atoi(v); err == nil {
			cfg.Snapshots.RetentionWeeks = weeks
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || strings.EqualFold(v, "1")
	}
	if v := os.Getenv("MIRADOR_TRIAGE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_CACHE_USERNAME"); v != "" {
		cfg.Cache.Username = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("MIRADOR_TRIAGE_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_CACHE_TLS"); strings.EqualFold(v, "true") || strings.EqualFold(v, "1") {
		cfg.Cache.TLS = true
	}
	if v := os.Getenv("MIRADOR_TRIAGE_CACHE_TREND_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TrendSummaryTTL = d
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_ANALYSIS_PERIOD_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.AnalysisPeriodDays = days
		}
	}
	if v := os.Getenv("MIRADOR_TRIAGE_TRENDS_MIN_WEEKS"); v != "" {
		if weeks, err := strconv.Atoi(v); err == nil {
			cfg.Trends.MinWeeks = weeks
		}
	}
}
