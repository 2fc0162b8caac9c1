package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/domain"
)

func TestValidationScoreBands(t *testing.T) {
	strong := domain.Candidate{
		MarketCapUSD: 500_000,  // 30
		LiquidityUSD: 150_000,  // 25
		Volume24h:    600_000,  // 25
		Trades24h:    1_500,    // 20
	}
	assert.Equal(t, 100.0, validationScore(&strong))

	weak := domain.Candidate{MarketCapUSD: 5_000, LiquidityUSD: 2_000, Volume24h: 1_000}
	assert.Equal(t, 0.0, validationScore(&weak))

	borderline := domain.Candidate{MarketCapUSD: 20_000, Volume24h: 20_000} // 25 + 10
	assert.Equal(t, 35.0, validationScore(&borderline))
}

func TestValidatorThresholdAndOrdering(t *testing.T) {
	v := NewMarketValidator(nil, nil)
	v.SetPause(0)

	in := []domain.Candidate{
		{Address: gemAddr(1), MarketCapUSD: 20_000, Volume24h: 20_000},                        // 35, kept
		{Address: gemAddr(2), MarketCapUSD: 5_000},                                            // 0, dropped
		{Address: gemAddr(3), MarketCapUSD: 500_000, LiquidityUSD: 150_000, Volume24h: 600_000}, // 80, kept
	}

	out, err := v.Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, gemAddr(3), out[0].Address, "highest validation score first")
	assert.Equal(t, domain.StageValidated, out[0].TriageStage)
}

func TestValidatorTrimsToBreakerBudget(t *testing.T) {
	breaker := budget.NewBreaker(budget.Config{FailureThreshold: 10})
	breaker.Update(true)
	breaker.Update(true) // MaxStage4 = 10 - 2*2 = 6

	v := NewMarketValidator(breaker, nil)
	v.SetPause(0)

	var in []domain.Candidate
	for i := 0; i < 12; i++ {
		in = append(in, domain.Candidate{
			Address: gemAddr(i), MarketCapUSD: 500_000, LiquidityUSD: 150_000, Volume24h: 600_000,
		})
	}

	out, err := v.Run(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, out, 6)
}

func TestValidatorEarlyGemGate(t *testing.T) {
	v := NewMarketValidator(nil, nil)
	v.SetPause(0)

	base := domain.Candidate{MarketCapUSD: 500_000, LiquidityUSD: 150_000, Volume24h: 600_000}

	weakComposite := base
	weakComposite.Address = gemAddr(1)
	weakComposite.EarlyGemScore = 50 // known and weak: dropped

	strongComposite := base
	strongComposite.Address = gemAddr(2)
	strongComposite.EarlyGemScore = 85

	unknownComposite := base
	unknownComposite.Address = gemAddr(3) // zero score: not evidence of weakness

	out, err := v.Run(context.Background(), []domain.Candidate{weakComposite, strongComposite, unknownComposite})
	require.NoError(t, err)
	require.Len(t, out, 2)
	for _, c := range out {
		assert.NotEqual(t, gemAddr(1), c.Address)
	}
}

func TestValidatorContextCancellation(t *testing.T) {
	v := NewMarketValidator(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := v.Run(ctx, []domain.Candidate{{Address: gemAddr(1)}})
	assert.Error(t, err)
}
