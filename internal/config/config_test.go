package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gemscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "analysis: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, 35.0, cfg.Analysis.AlertScoreThreshold)
	assert.Equal(t, 35.0, cfg.Analysis.Scoring.EarlyGemHunting.HighConvictionThreshold)
	assert.Equal(t, 10, cfg.Batch.MaxOHLCVConcurrency)
	assert.Equal(t, 3, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 60*time.Second, cfg.Breaker.RecoveryTimeoutDuration())
	assert.Equal(t, "heuristic", cfg.SolBonding.AnalysisMode)
	assert.Equal(t, 2.0, cfg.Providers.RequestsPerSec)
	assert.Equal(t, 6, cfg.Alerts.DedupeWindowHours)
	assert.Equal(t, 15, cfg.Redis.CacheTTLMin)
	assert.Equal(t, ":8090", cfg.Monitor.ListenAddr)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
analysis:
  alert_score_threshold: 50
breaker:
  failure_threshold: 5
  recovery_timeout: 120
sol_bonding:
  analysis_mode: accurate
sources:
  trending_url: "https://example.test"
`))
	require.NoError(t, err)

	assert.Equal(t, 50.0, cfg.Analysis.AlertScoreThreshold)
	assert.Equal(t, 5, cfg.Breaker.FailureThreshold)
	assert.Equal(t, 2*time.Minute, cfg.Breaker.RecoveryTimeoutDuration())
	assert.Equal(t, "accurate", cfg.SolBonding.AnalysisMode)
	assert.Equal(t, "https://example.test", cfg.Sources.TrendingURL)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadAnalysisMode(t *testing.T) {
	_, err := Load(writeConfig(t, "sol_bonding:\n  analysis_mode: guesswork\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analysis_mode")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "analysis: [broken\n"))
	assert.Error(t, err)
}
