package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/discovery"
	"github.com/solgems/gemscan/internal/domain"
	"github.com/solgems/gemscan/internal/enrich"
	"github.com/solgems/gemscan/internal/scoring"
)

type stubDiscovery struct {
	candidates []domain.Candidate
}

func (s *stubDiscovery) Name() string { return "stub" }

func (s *stubDiscovery) Discover(ctx context.Context) ([]domain.Candidate, error) {
	return s.candidates, nil
}

func newTestCoordinator(t *testing.T, cands []domain.Candidate, ohlcv *stubOHLCV, batch *stubBatcher, breaker *budget.Breaker) (*Coordinator, *budget.Ledger) {
	t.Helper()
	ledger := budget.NewLedger()
	orch := discovery.NewOrchestrator([]discovery.Source{&stubDiscovery{candidates: cands}}, discovery.Config{})
	enricher := enrich.New(batch, nil, nil, ohlcv, breaker, ledger, enrich.Config{OHLCVPreSleep: 1})

	validator := NewMarketValidator(breaker, ledger)
	validator.SetPause(0)

	co := NewCoordinator(
		orch,
		NewTriage(ledger),
		NewEnhancedFilter(enricher, ledger),
		validator,
		NewOHLCVAnalyzer(enricher, scoring.NewKernel(ledger), breaker, ledger),
		breaker,
		ledger,
	)
	return co, ledger
}

func strongCandidate(i int) domain.Candidate {
	return domain.Candidate{
		Address:              gemAddr(i),
		Symbol:               "GEM",
		Source:               domain.SourceGraduated,
		HoursSinceGraduation: 0.5,
		MarketCapUSD:         500_000,
		LiquidityUSD:         150_000,
	}
}

func TestRunCycleEndToEnd(t *testing.T) {
	cands := []domain.Candidate{strongCandidate(1), strongCandidate(2)}

	batch := &stubBatcher{records: map[string]enrich.Metadata{
		gemAddr(1): {Volume24h: 600_000, Trades24h: 1_500, HolderCount: 500, SecurityScore: 80},
		gemAddr(2): {Volume24h: 600_000, Trades24h: 1_500, HolderCount: 500, SecurityScore: 80},
	}}
	ohlcv := &stubOHLCV{candles: map[string][]domain.Candle{
		gemAddr(1) + "/15m": fullCandles(), gemAddr(1) + "/30m": fullCandles(),
		gemAddr(2) + "/15m": fullCandles(), gemAddr(2) + "/30m": fullCandles(),
	}}

	co, _ := newTestCoordinator(t, cands, ohlcv, batch, budget.NewBreaker(budget.DefaultConfig()))
	report := co.RunCycle(context.Background())

	assert.NotEmpty(t, report.CycleID)
	assert.False(t, report.Degraded)
	assert.Equal(t, 2, report.TotalCandidates)
	require.Len(t, report.Finalists, 2)
	assert.Equal(t, "closed", report.BreakerState)

	// discovery + four stages
	require.Len(t, report.Stages, 5)
	assert.Equal(t, "discovery", report.Stages[0].Name)
	assert.Equal(t, "stage4_final", report.Stages[4].Name)

	for _, f := range report.Finalists {
		assert.Equal(t, "enhanced", f.Breakdown.ScoringMode)
		assert.Positive(t, f.FinalScore)
	}

	snap := report.Ledger
	assert.Equal(t, int64(2), snap.TokensProcessed)
	assert.Equal(t, int64(4), snap.OHLCVCallsMade)
	assert.GreaterOrEqual(t, snap.CostSavingsPct, 0.0)
	assert.LessOrEqual(t, snap.CostSavingsPct, 1.0)
}

func TestRunCycleFunnelSavings(t *testing.T) {
	// Twenty candidates, only a few survive to Stage 4: the ledger must show
	// the saved OHLCV calls of everyone filtered out.
	var cands []domain.Candidate
	for i := 0; i < 20; i++ {
		c := strongCandidate(i)
		if i >= 3 {
			c.MarketCapUSD = 2_000 // fails Stage-3 fundamentals
			c.LiquidityUSD = 500
		}
		cands = append(cands, c)
	}

	batch := &stubBatcher{records: map[string]enrich.Metadata{}}
	ohlcv := &stubOHLCV{candles: map[string][]domain.Candle{}}
	for i := 0; i < 3; i++ {
		batch.records[gemAddr(i)] = enrich.Metadata{Volume24h: 600_000, Trades24h: 1_500}
		ohlcv.candles[gemAddr(i)+"/15m"] = fullCandles()
		ohlcv.candles[gemAddr(i)+"/30m"] = fullCandles()
	}

	co, ledger := newTestCoordinator(t, cands, ohlcv, batch, budget.NewBreaker(budget.DefaultConfig()))
	report := co.RunCycle(context.Background())

	assert.False(t, report.Degraded)
	snap := ledger.Snapshot()
	assert.Equal(t, int64((20-3)*2), snap.OHLCVCallsSaved)
	assert.Equal(t, int64(6), snap.OHLCVCallsMade)
	assert.InDelta(t, 34.0/40.0, snap.CostSavingsPct, 1e-9)
}

func TestRunCycleBreakerOpenFallsBackToStage3(t *testing.T) {
	cands := []domain.Candidate{strongCandidate(1)}
	batch := &stubBatcher{records: map[string]enrich.Metadata{
		gemAddr(1): {Volume24h: 600_000, Trades24h: 1_500},
	}}

	breaker := budget.NewBreaker(budget.Config{FailureThreshold: 1})
	breaker.Update(true) // open before the cycle

	co, _ := newTestCoordinator(t, cands, &stubOHLCV{}, batch, breaker)
	report := co.RunCycle(context.Background())

	assert.True(t, report.Degraded)
	require.Len(t, report.Finalists, 1)

	f := report.Finalists[0]
	assert.Equal(t, "stage4_failed", f.Candidate.Stage4Error)
	assert.Equal(t, "fallback", f.Breakdown.ScoringMode)
	assert.InDelta(t, f.Candidate.ValidationScore*penaltyStage3Scores, f.FinalScore, 1e-9)

	last := report.Stages[len(report.Stages)-1]
	assert.Equal(t, "stage4_final", last.Name)
	assert.True(t, last.Fallback)
	assert.NotEmpty(t, last.Err)
}

func TestFallbackFinalistsPenaltyAndTopK(t *testing.T) {
	var prev []domain.Candidate
	for i := 0; i < 15; i++ {
		prev = append(prev, domain.Candidate{
			Address:       gemAddr(i),
			EnhancedScore: float64(i * 5),
		})
	}

	finalists := fallbackFinalists(prev, "stage3", penaltyStage2Scores,
		func(c domain.Candidate) float64 { return c.EnhancedScore })

	require.Len(t, finalists, fallbackTopK)
	assert.Equal(t, gemAddr(14), finalists[0].Candidate.Address, "top-k by stage-2 score")
	assert.InDelta(t, 70*0.7, finalists[0].FinalScore, 1e-9)
	assert.Equal(t, "stage3_failed", finalists[0].Candidate.Stage3Error)
	assert.Equal(t, domain.ConvictionLow, finalists[0].Conviction)
	assert.Equal(t, domain.ConfidenceError, finalists[0].Breakdown.RiskAssessment.ConfidenceLevel)
}

func TestGuardStageConvertsPanic(t *testing.T) {
	out, outcome := guardStage("stage2_enhanced", 3, func() ([]domain.Candidate, error) {
		panic("scoring exploded")
	})
	assert.Nil(t, out)
	assert.Contains(t, outcome.Err, "panic")
	assert.Equal(t, 3, outcome.In)
}

func TestGuardStagePassesThroughErrors(t *testing.T) {
	wantErr := errors.New("stage broke")
	out, outcome := guardStage("stage3_validated", 1, func() ([]domain.Candidate, error) {
		return nil, wantErr
	})
	assert.Nil(t, out)
	assert.Equal(t, wantErr.Error(), outcome.Err)
}
