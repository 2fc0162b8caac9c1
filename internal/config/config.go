package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the detector's root configuration.
type Config struct {
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Batch      BatchConfig      `yaml:"batch"`
	Breaker    BreakerConfig    `yaml:"breaker"`
	Sources    SourcesConfig    `yaml:"sources"`
	Providers  ProvidersConfig  `yaml:"providers"`
	SolBonding SolBondingConfig `yaml:"sol_bonding"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitor    MonitorConfig    `yaml:"monitor"`
}

// AnalysisConfig holds scoring and alerting thresholds.
type AnalysisConfig struct {
	AlertScoreThreshold float64       `yaml:"alert_score_threshold"`
	Scoring             ScoringConfig `yaml:"scoring"`
}

// ScoringConfig nests the early-gem hunting overrides.
type ScoringConfig struct {
	EarlyGemHunting EarlyGemConfig `yaml:"early_gem_hunting"`
}

// EarlyGemConfig overrides the alerting threshold for the early-gem path.
// This is the alerting floor; conviction names (MODERATE/HIGH/VERY_HIGH) are
// fixed at 60/70/80 and unrelated.
type EarlyGemConfig struct {
	HighConvictionThreshold float64 `yaml:"high_conviction_threshold"`
}

// BatchConfig tunes enrichment batching.
type BatchConfig struct {
	MaxOHLCVConcurrency int `yaml:"max_ohlcv_concurrency"`
}

// BreakerConfig tunes the pipeline circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	RecoveryTimeout  int `yaml:"recovery_timeout"` // seconds
}

// SourcesConfig holds the discovery feed endpoints.
type SourcesConfig struct {
	TrendingURL  string `yaml:"trending_url"`
	GraduatedURL string `yaml:"graduated_url"`
	BondingURL   string `yaml:"bonding_url"`
	LaunchStream string `yaml:"launch_stream_url"`
	SolanaRPCURL string `yaml:"solana_rpc_url"`
	CurveProgram string `yaml:"curve_program_id"`
}

// ProvidersConfig holds paid vendor endpoints and keys.
type ProvidersConfig struct {
	BirdeyeURL     string  `yaml:"birdeye_url"`
	BirdeyeAPIKey  string  `yaml:"birdeye_api_key"`
	MoralisURL     string  `yaml:"moralis_url"`
	MoralisAPIKey  string  `yaml:"moralis_api_key"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
}

// SolBondingConfig selects the curve analysis mode.
type SolBondingConfig struct {
	AnalysisMode string `yaml:"analysis_mode"` // "heuristic" or "accurate"
}

// AlertsConfig tunes the alert emitter.
type AlertsConfig struct {
	DedupeWindowHours int    `yaml:"dedupe_window_hours"`
	PostgresDSN       string `yaml:"postgres_dsn"`
}

// RedisConfig locates the curve cache.
type RedisConfig struct {
	Addr        string `yaml:"addr"`
	CacheTTLMin int    `yaml:"cache_ttl_minutes"`
}

// MonitorConfig tunes the HTTP monitoring server.
type MonitorConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads and validates a config file. A missing file is fatal at init;
// the detector refuses to start without configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Analysis.AlertScoreThreshold <= 0 {
		c.Analysis.AlertScoreThreshold = 35
	}
	if c.Analysis.Scoring.EarlyGemHunting.HighConvictionThreshold <= 0 {
		c.Analysis.Scoring.EarlyGemHunting.HighConvictionThreshold = 35
	}
	if c.Batch.MaxOHLCVConcurrency <= 0 {
		c.Batch.MaxOHLCVConcurrency = 10
	}
	if c.Breaker.FailureThreshold <= 0 {
		c.Breaker.FailureThreshold = 3
	}
	if c.Breaker.RecoveryTimeout <= 0 {
		c.Breaker.RecoveryTimeout = 60
	}
	if c.SolBonding.AnalysisMode == "" {
		c.SolBonding.AnalysisMode = "heuristic"
	}
	if c.Providers.RequestsPerSec <= 0 {
		c.Providers.RequestsPerSec = 2
	}
	if c.Alerts.DedupeWindowHours <= 0 {
		c.Alerts.DedupeWindowHours = 6
	}
	if c.Redis.CacheTTLMin <= 0 {
		c.Redis.CacheTTLMin = 15
	}
	if c.Monitor.ListenAddr == "" {
		c.Monitor.ListenAddr = ":8090"
	}
}

func (c *Config) validate() error {
	if mode := c.SolBonding.AnalysisMode; mode != "heuristic" && mode != "accurate" {
		return fmt.Errorf("sol_bonding.analysis_mode must be heuristic or accurate, got %q", mode)
	}
	return nil
}

// RecoveryTimeoutDuration returns the breaker recovery timeout as a duration.
func (c *BreakerConfig) RecoveryTimeoutDuration() time.Duration {
	return time.Duration(c.RecoveryTimeout) * time.Second
}
