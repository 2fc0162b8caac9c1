package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/domain"
)

// Stage-3 constants. Validation spends no OHLCV; it decides who deserves it.
const (
	validationThreshold  = 35.0
	earlyGemGate         = 70.0
	defaultValidatePause = 100 * time.Millisecond
)

// MarketValidator is Stage 3: fundamentals validation before any OHLCV spend,
// with adaptive backpressure from the circuit breaker.
type MarketValidator struct {
	breaker *budget.Breaker
	ledger  *budget.Ledger
	pause   time.Duration
}

// NewMarketValidator creates the Stage-3 validator.
func NewMarketValidator(breaker *budget.Breaker, ledger *budget.Ledger) *MarketValidator {
	return &MarketValidator{breaker: breaker, ledger: ledger, pause: defaultValidatePause}
}

// SetPause overrides the inter-candidate pacing. Tests shorten it.
func (v *MarketValidator) SetPause(d time.Duration) { v.pause = d }

// Run scores fundamentals 0-100, keeps candidates above the threshold and
// trims to the breaker-derived Stage-4 budget.
func (v *MarketValidator) Run(ctx context.Context, candidates []domain.Candidate) ([]domain.Candidate, error) {
	var kept []domain.Candidate

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && v.pause > 0 {
			time.Sleep(v.pause) // light pacing between validations
		}

		c.ValidationScore = validationScore(&c)
		if c.ValidationScore < validationThreshold {
			continue
		}
		c.Advance(domain.StageValidated)
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].ValidationScore > kept[j].ValidationScore
	})

	maxStage4 := 10
	if v.breaker != nil {
		maxStage4 = v.breaker.MaxStage4()
	}
	if len(kept) > maxStage4 {
		kept = kept[:maxStage4]
	}

	// When the early-gem composite exists, only strong composites may spend
	// OHLCV budget.
	kept = filterEarlyGem(kept)

	if v.ledger != nil {
		v.ledger.RecordStage("stage3_validated", len(kept))
	}
	log.Info().Int("in", len(candidates)).Int("out", len(kept)).Int("max_stage4", maxStage4).
		Msg("stage 3 market validation complete")
	return kept, nil
}

// validationScore scores fundamentals on market cap, liquidity, volume and
// trading activity bands.
func validationScore(c *domain.Candidate) float64 {
	score := 0.0

	switch {
	case c.MarketCapUSD >= 50_000 && c.MarketCapUSD <= 5_000_000:
		score += 30 // sweet spot
	case c.MarketCapUSD >= 10_000 && c.MarketCapUSD < 50_000:
		score += 25
	case c.MarketCapUSD > 5_000_000:
		score += 15
	}

	switch {
	case c.LiquidityUSD > 100_000:
		score += 25
	case c.LiquidityUSD > 50_000:
		score += 20
	case c.LiquidityUSD > 10_000:
		score += 10
	}

	switch {
	case c.Volume24h > 500_000:
		score += 25
	case c.Volume24h > 100_000:
		score += 20
	case c.Volume24h > 10_000:
		score += 10
	}

	switch {
	case c.Trades24h > 1_000:
		score += 20
	case c.Trades24h > 500:
		score += 15
	case c.Trades24h > 100:
		score += 10
	}

	return score
}

func filterEarlyGem(candidates []domain.Candidate) []domain.Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if c.EarlyGemScore > 0 && c.EarlyGemScore < earlyGemGate {
			continue
		}
		out = append(out, c)
	}
	return out
}
