package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/solgems/gemscan/internal/domain"
)

// Collector registers and updates the detector's prometheus metrics.
type Collector struct {
	cyclesTotal      prometheus.Counter
	cyclesDegraded   prometheus.Counter
	cycleDuration    prometheus.Histogram
	candidatesSeen   prometheus.Counter
	finalistsPerRun  prometheus.Gauge
	stageOutput      *prometheus.GaugeVec
	ohlcvCallsMade   prometheus.Gauge
	ohlcvCallsSaved  prometheus.Gauge
	costSavingsRatio prometheus.Gauge
	alertsSent       prometheus.Counter
}

// NewCollector creates and registers the metric set on the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gemscan_cycles_total",
			Help: "Completed detection cycles.",
		}),
		cyclesDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gemscan_cycles_degraded_total",
			Help: "Cycles that completed via a stage fallback.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gemscan_cycle_duration_seconds",
			Help:    "Wall time of a full detection cycle.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		candidatesSeen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gemscan_candidates_total",
			Help: "Unique candidates entering the funnel.",
		}),
		finalistsPerRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gemscan_finalists",
			Help: "Finalists emitted by the most recent cycle.",
		}),
		stageOutput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gemscan_stage_output",
			Help: "Candidates surviving each stage in the most recent cycle.",
		}, []string{"stage"}),
		ohlcvCallsMade: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gemscan_ohlcv_calls_made",
			Help: "Lifetime OHLCV calls issued.",
		}),
		ohlcvCallsSaved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gemscan_ohlcv_calls_saved",
			Help: "Lifetime OHLCV calls avoided by the funnel.",
		}),
		costSavingsRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gemscan_cost_savings_ratio",
			Help: "saved / (saved + made) for OHLCV calls.",
		}),
		alertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gemscan_alerts_total",
			Help: "Alerts dispatched.",
		}),
	}

	reg.MustRegister(c.cyclesTotal, c.cyclesDegraded, c.cycleDuration, c.candidatesSeen,
		c.finalistsPerRun, c.stageOutput, c.ohlcvCallsMade, c.ohlcvCallsSaved,
		c.costSavingsRatio, c.alertsSent)
	return c
}

// ObserveCycle records one finished cycle report.
func (c *Collector) ObserveCycle(report *domain.CycleReport) {
	c.cyclesTotal.Inc()
	if report.Degraded {
		c.cyclesDegraded.Inc()
	}
	c.cycleDuration.Observe(report.Duration.Seconds())
	c.candidatesSeen.Add(float64(report.TotalCandidates))
	c.finalistsPerRun.Set(float64(len(report.Finalists)))

	for _, stage := range report.Stages {
		c.stageOutput.WithLabelValues(stage.Name).Set(float64(stage.Out))
	}

	c.ohlcvCallsMade.Set(float64(report.Ledger.OHLCVCallsMade))
	c.ohlcvCallsSaved.Set(float64(report.Ledger.OHLCVCallsSaved))
	c.costSavingsRatio.Set(report.Ledger.CostSavingsPct)
}

// ObserveAlerts records dispatched alerts.
func (c *Collector) ObserveAlerts(n int) {
	c.alertsSent.Add(float64(n))
}
