package scoring

import "github.com/solgems/gemscan/internal/domain"

// AnalyzeInteractions inspects factor pairs and emits the structured danger,
// amplification and contradiction records that explain the corrected score.
// Impacts are signed percentages applied multiplicatively to the linear score.
func AnalyzeInteractions(c *domain.Candidate, vel VelocityResult) domain.InteractionAnalysis {
	var ia domain.InteractionAnalysis

	// Danger: factor pairs that invalidate each other's bullish reading.
	if c.LiquidityUSD > 0 && c.LiquidityUSD < 20_000 && c.Volume24h/c.LiquidityUSD > 5 {
		ia.Dangers = append(ia.Dangers, domain.Interaction{
			Explanation: "high volume-to-liquidity ratio on thin liquidity indicates likely wash trading or manipulation",
			ImpactPct:   -85,
			Factors:     []string{"vlr", "liquidity"},
		})
	}
	if c.AvgTradeSize > 5_000 && c.SecurityScore > 0 && c.SecurityScore < 50 {
		ia.Dangers = append(ia.Dangers, domain.Interaction{
			Explanation: "whale-sized trades combined with poor token security",
			ImpactPct:   -12,
			Factors:     []string{"avg_trade_size", "security_score"},
		})
	}
	if c.HolderCount > 0 && c.HolderCount < 50 && c.MarketCapUSD > 1_000_000 {
		ia.Dangers = append(ia.Dangers, domain.Interaction{
			Explanation: "large market cap concentrated in very few holders",
			ImpactPct:   -20,
			Factors:     []string{"holder_count", "market_cap"},
		})
	}

	// Amplification: factor pairs that validate each other.
	if c.UniqueTraders24h >= 300 && vel.AcceleratingFrames >= 2 {
		ia.Amplifications = append(ia.Amplifications, domain.Interaction{
			Explanation: "broad trader participation during a sustained volume surge",
			ImpactPct:   15,
			Factors:     []string{"unique_traders", "volume_acceleration"},
		})
	}
	if len(c.SeenOn) >= 2 && c.SecurityScore >= 70 {
		ia.Amplifications = append(ia.Amplifications, domain.Interaction{
			Explanation: "multi-platform visibility with a clean security profile",
			ImpactPct:   13,
			Factors:     []string{"platforms", "security_score"},
		})
	}
	if c.BondingCurveProgress >= 95 {
		ia.Amplifications = append(ia.Amplifications, domain.Interaction{
			Explanation: "graduation imminent: bonding curve nearly filled",
			ImpactPct:   10,
			Factors:     []string{"bonding_progress"},
		})
	}
	if c.IsFreshGraduate && vel.PositiveFrames >= 2 {
		ia.Amplifications = append(ia.Amplifications, domain.Interaction{
			Explanation: "fresh graduate carrying momentum into its AMM pool",
			ImpactPct:   8,
			Factors:     []string{"fresh_graduate", "momentum"},
		})
	}

	// Contradictions: signals that disagree without being outright dangerous.
	if c.Volume24h > 500_000 && len(c.SeenOn) < 2 {
		ia.Contradictions = append(ia.Contradictions, domain.Interaction{
			Explanation: "high volume yet visible on a single platform only",
			ImpactPct:   -5,
			Factors:     []string{"volume_24h", "platforms"},
		})
	}
	if vel.PositiveFrames >= 3 && c.UniqueTraders24h > 0 && c.UniqueTraders24h < 25 {
		ia.Contradictions = append(ia.Contradictions, domain.Interaction{
			Explanation: "broad price momentum driven by a handful of traders",
			ImpactPct:   -5,
			Factors:     []string{"momentum", "unique_traders"},
		})
	}

	return ia
}

// interactionMultiplier folds all signed impacts into one multiplier.
func interactionMultiplier(ia domain.InteractionAnalysis) float64 {
	m := 1.0
	for _, group := range [][]domain.Interaction{ia.Dangers, ia.Amplifications, ia.Contradictions} {
		for _, it := range group {
			m *= 1 + it.ImpactPct/100
		}
	}
	if m < 0 {
		m = 0
	}
	return m
}

// worstDangerImpact returns the most negative danger impact, 0 when none.
func worstDangerImpact(ia domain.InteractionAnalysis) float64 {
	worst := 0.0
	for _, it := range ia.Dangers {
		if it.ImpactPct < worst {
			worst = it.ImpactPct
		}
	}
	return worst
}
