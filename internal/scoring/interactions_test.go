package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgems/gemscan/internal/domain"
)

func TestWashTradingDanger(t *testing.T) {
	// 100k volume against 10k liquidity: VLR 10 on thin liquidity.
	c := &domain.Candidate{LiquidityUSD: 10_000, Volume24h: 100_000}

	ia := AnalyzeInteractions(c, VelocityResult{})
	require.Len(t, ia.Dangers, 1)
	assert.Equal(t, -85.0, ia.Dangers[0].ImpactPct)
	assert.Contains(t, ia.Dangers[0].Factors, "vlr")
}

func TestNoWashTradingDangerWithDeepLiquidity(t *testing.T) {
	// Same VLR but liquidity above the thin threshold.
	c := &domain.Candidate{LiquidityUSD: 50_000, Volume24h: 500_000}
	ia := AnalyzeInteractions(c, VelocityResult{})
	assert.Empty(t, ia.Dangers)
}

func TestWhaleWithPoorSecurityDanger(t *testing.T) {
	c := &domain.Candidate{AvgTradeSize: 8_000, SecurityScore: 30, LiquidityUSD: 100_000}
	ia := AnalyzeInteractions(c, VelocityResult{})
	require.Len(t, ia.Dangers, 1)
	assert.Equal(t, -12.0, ia.Dangers[0].ImpactPct)
}

func TestConcentratedHoldersDanger(t *testing.T) {
	c := &domain.Candidate{HolderCount: 30, MarketCapUSD: 2_000_000, LiquidityUSD: 100_000}
	ia := AnalyzeInteractions(c, VelocityResult{})
	require.Len(t, ia.Dangers, 1)
	assert.Equal(t, -20.0, ia.Dangers[0].ImpactPct)
}

func TestAmplifications(t *testing.T) {
	c := &domain.Candidate{
		UniqueTraders24h:     400,
		SecurityScore:        80,
		SeenOn:               []domain.Source{domain.SourceTrending, domain.SourceGraduated},
		BondingCurveProgress: 96,
		IsFreshGraduate:      true,
		LiquidityUSD:         100_000,
	}
	vel := VelocityResult{AcceleratingFrames: 2, PositiveFrames: 3}

	ia := AnalyzeInteractions(c, vel)
	assert.Len(t, ia.Amplifications, 4)

	total := 0.0
	for _, a := range ia.Amplifications {
		total += a.ImpactPct
	}
	assert.Equal(t, 15.0+13+10+8, total)
}

func TestContradictions(t *testing.T) {
	c := &domain.Candidate{
		Volume24h:        600_000,
		SeenOn:           []domain.Source{domain.SourceTrending},
		UniqueTraders24h: 10,
		LiquidityUSD:     200_000,
	}
	ia := AnalyzeInteractions(c, VelocityResult{PositiveFrames: 3})
	assert.Len(t, ia.Contradictions, 2)
}

func TestInteractionMultiplierComposition(t *testing.T) {
	ia := domain.InteractionAnalysis{
		Dangers:        []domain.Interaction{{ImpactPct: -85}},
		Amplifications: []domain.Interaction{{ImpactPct: 15}},
	}
	got := interactionMultiplier(ia)
	assert.InDelta(t, 0.15*1.15, got, 1e-9)
}

func TestInteractionMultiplierNeverNegative(t *testing.T) {
	ia := domain.InteractionAnalysis{
		Dangers: []domain.Interaction{{ImpactPct: -120}},
	}
	assert.Equal(t, 0.0, interactionMultiplier(ia))
}

func TestWorstDangerImpact(t *testing.T) {
	ia := domain.InteractionAnalysis{
		Dangers: []domain.Interaction{{ImpactPct: -12}, {ImpactPct: -85}},
	}
	assert.Equal(t, -85.0, worstDangerImpact(ia))
	assert.Equal(t, 0.0, worstDangerImpact(domain.InteractionAnalysis{}))
}
