package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/domain"
	"github.com/solgems/gemscan/internal/enrich"
	"github.com/solgems/gemscan/internal/scoring"
)

// Stage-4 fetch parameters: short timeframes only, last 20 candles.
var stage4Timeframes = []string{"15m", "30m"}

const stage4CandleLimit = 20

// OHLCVAnalyzer is Stage 4: one batched OHLCV fetch for the finalists, then
// full interaction-aware scoring per candidate.
type OHLCVAnalyzer struct {
	enricher *enrich.Enricher
	kernel   *scoring.Kernel
	breaker  *budget.Breaker
	ledger   *budget.Ledger
}

// NewOHLCVAnalyzer creates the Stage-4 analyzer.
func NewOHLCVAnalyzer(enricher *enrich.Enricher, kernel *scoring.Kernel, breaker *budget.Breaker, ledger *budget.Ledger) *OHLCVAnalyzer {
	return &OHLCVAnalyzer{enricher: enricher, kernel: kernel, breaker: breaker, ledger: ledger}
}

// Run analyzes the finalists. When the breaker is open the stage emits no
// finalists and the coordinator falls back to Stage-3 output. Per-candidate
// failures degrade to basic or validation scores; they never abort the stage.
func (a *OHLCVAnalyzer) Run(ctx context.Context, candidates []domain.Candidate) ([]domain.Finalist, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	if a.breaker != nil && !a.breaker.Allow() {
		log.Warn().Msg("circuit breaker open, skipping stage 4 entirely")
		return nil, fmt.Errorf("stage 4 skipped: %w", budget.ErrCircuitOpen)
	}

	addresses := make([]string, len(candidates))
	for i := range candidates {
		addresses[i] = candidates[i].Address
	}

	batch := a.enricher.FetchOHLCVBatch(ctx, addresses, stage4Timeframes, stage4CandleLimit)

	// Coverage across all (token, timeframe) tasks decides the breaker update.
	tasks := len(addresses) * len(stage4Timeframes)
	covered := 0
	for _, byFrame := range batch {
		for _, candles := range byFrame {
			if len(candles) > 0 {
				covered++
			}
		}
	}
	coverage := 0.0
	if tasks > 0 {
		coverage = float64(covered) / float64(tasks)
	}
	if a.breaker != nil {
		a.breaker.Update(coverage < 0.8)
	}

	finalists := make([]domain.Finalist, 0, len(candidates))
	for _, c := range candidates {
		c.DeepAnalysisPhase = true
		c.Advance(domain.StageDeepAnalysis)
		finalists = append(finalists, a.scoreFinalist(c, batch[c.Address]))
	}

	if a.ledger != nil {
		a.ledger.RecordStage("stage4_final", len(finalists))
	}
	log.Info().
		Int("finalists", len(finalists)).
		Float64("ohlcv_coverage", coverage).
		Msg("stage 4 analysis complete")
	return finalists, nil
}

// scoreFinalist applies the timeframe derivations and enhanced scoring, with
// graceful degradation: missing OHLCV falls back to basic velocity scoring,
// and a scoring failure keeps the Stage-3 validation score. Either way the
// candidate stays eligible for alerting with an explicit error marker.
func (a *OHLCVAnalyzer) scoreFinalist(c domain.Candidate, byFrame map[string][]domain.Candle) domain.Finalist {
	applied := 0
	for _, tf := range stage4Timeframes {
		candles := byFrame[tf]
		if len(candles) == 0 {
			continue
		}
		if err := enrich.ApplyTimeframe(&c, tf, candles); err != nil {
			log.Debug().Err(err).Str("address", c.Address).Str("timeframe", tf).Msg("timeframe derivation failed")
			continue
		}
		applied++
	}

	var score float64
	var breakdown domain.ScoringBreakdown
	if applied == 0 {
		c.Stage4Error = "ohlcv_unavailable"
		score, breakdown = a.kernel.ScoreBasic(&c)
	} else {
		score, breakdown = a.safeScoreEnhanced(&c)
	}

	c.FinalScore = score
	return domain.Finalist{
		Candidate:  c,
		FinalScore: score,
		Breakdown:  breakdown,
		Conviction: domain.ConvictionFor(score),
	}
}

// safeScoreEnhanced shields the stage from kernel panics; the candidate keeps
// its validation score when scoring fails.
func (a *OHLCVAnalyzer) safeScoreEnhanced(c *domain.Candidate) (score float64, breakdown domain.ScoringBreakdown) {
	defer func() {
		if r := recover(); r != nil {
			c.ScoringError = fmt.Sprintf("enhanced scoring panic: %v", r)
			score = c.ValidationScore
			breakdown = domain.ScoringBreakdown{
				ScoringMode: "enhanced",
				RiskAssessment: domain.RiskAssessment{
					RiskLevel:       domain.RiskHigh,
					ConfidenceLevel: domain.ConfidenceError,
				},
			}
			log.Error().Str("address", c.Address).Str("error", c.ScoringError).Msg("scoring failure absorbed")
		}
	}()
	return a.kernel.ScoreEnhanced(c)
}
