package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgems/gemscan/internal/domain"
)

func gatherValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		m := fam.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			return m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func stageValue(t *testing.T, reg *prometheus.Registry, stage string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != "gemscan_stage_output" {
			continue
		}
		for _, m := range fam.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "stage" && l.GetValue() == stage {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("stage %s not found", stage)
	return 0
}

func sampleReport() *domain.CycleReport {
	return &domain.CycleReport{
		CycleID:         "test-cycle",
		Duration:        3 * time.Second,
		TotalCandidates: 120,
		Degraded:        true,
		Stages: []domain.StageOutcome{
			{Name: "stage1_triage", In: 120, Out: 35},
			{Name: "stage2_enhanced", In: 35, Out: 20},
		},
		Finalists: make([]domain.Finalist, 3),
		Ledger: domain.LedgerSnapshot{
			OHLCVCallsMade:  10,
			OHLCVCallsSaved: 90,
			CostSavingsPct:  0.9,
		},
	}
}

func TestObserveCycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveCycle(sampleReport())

	assert.Equal(t, 1.0, gatherValue(t, reg, "gemscan_cycles_total"))
	assert.Equal(t, 1.0, gatherValue(t, reg, "gemscan_cycles_degraded_total"))
	assert.Equal(t, 120.0, gatherValue(t, reg, "gemscan_candidates_total"))
	assert.Equal(t, 3.0, gatherValue(t, reg, "gemscan_finalists"))
	assert.Equal(t, 35.0, stageValue(t, reg, "stage1_triage"))
	assert.Equal(t, 20.0, stageValue(t, reg, "stage2_enhanced"))
	assert.Equal(t, 10.0, gatherValue(t, reg, "gemscan_ohlcv_calls_made"))
	assert.Equal(t, 90.0, gatherValue(t, reg, "gemscan_ohlcv_calls_saved"))
	assert.Equal(t, 0.9, gatherValue(t, reg, "gemscan_cost_savings_ratio"))
}

func TestObserveAlerts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveAlerts(2)
	c.ObserveAlerts(1)
	assert.Equal(t, 3.0, gatherValue(t, reg, "gemscan_alerts_total"))
}

func TestHistogramFamilyExists(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ObserveCycle(sampleReport())

	families, err := reg.Gather()
	require.NoError(t, err)

	var found *dto.MetricFamily
	for _, fam := range families {
		if fam.GetName() == "gemscan_cycle_duration_seconds" {
			found = fam
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, uint64(1), found.GetMetric()[0].GetHistogram().GetSampleCount())
}
