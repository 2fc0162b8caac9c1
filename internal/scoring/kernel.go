package scoring

import (
	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/domain"
)

// Kernel produces final scores and their breakdowns. Two modes share the same
// result shape: basic velocity scoring for Stages 2-3 and enhanced scoring for
// Stage 4 once OHLCV-derived short timeframes are available.
type Kernel struct {
	ledger *budget.Ledger
}

// NewKernel creates a scoring kernel reporting usage into the cost ledger.
func NewKernel(ledger *budget.Ledger) *Kernel {
	return &Kernel{ledger: ledger}
}

// ScoreBasic scores a candidate from discovery-time fields only. The 0-1
// velocity composite expands into 0-100 and the age-aware confidence
// multiplier is applied on top.
func (k *Kernel) ScoreBasic(c *domain.Candidate) (float64, domain.ScoringBreakdown) {
	if k.ledger != nil {
		k.ledger.RecordBasicScoring()
	}

	vel := ComputeVelocity(c)
	conf := AssessConfidence(c)
	c.VelocityConfidence = &conf

	linear := vel.Score * 100
	final := clampScore(linear * conf.Level.ScoreMultiplier())

	breakdown := domain.ScoringBreakdown{
		MomentumAnalysis: domain.SectionScore{
			Score: round1(vel.Score * domain.MaxMomentumScore),
			Max:   domain.MaxMomentumScore,
		},
		VelocityScore: vel.Score,
		ScoringMode:   "basic",
		RiskAssessment: domain.RiskAssessment{
			RiskLevel:       assessRisk(c, domain.InteractionAnalysis{}),
			ConfidenceLevel: conf.Level,
		},
		ScoreComparison: domain.ScoreComparison{
			LinearScoreFlawed:         round1(linear),
			InteractionScoreCorrected: round1(final),
			MathematicalImprovement:   round1(final - linear),
		},
	}
	return final, breakdown
}

// ScoreEnhanced performs the full interaction-aware scoring used for Stage-4
// finalists. Platform, momentum, safety and cross-platform sections are capped
// individually; interactions then correct the linear sum multiplicatively and
// the confidence multiplier applies last.
func (k *Kernel) ScoreEnhanced(c *domain.Candidate) (float64, domain.ScoringBreakdown) {
	if k.ledger != nil {
		k.ledger.RecordEnhancedScoring()
	}

	vel := ComputeVelocity(c)
	conf := AssessConfidence(c)
	c.VelocityConfidence = &conf

	platform := scorePlatform(c)
	momentum := domain.SectionScore{
		Score: round1(vel.Score * domain.MaxMomentumScore),
		Max:   domain.MaxMomentumScore,
	}
	safety := scoreSafety(c)
	cross := scoreCrossPlatform(c)

	linear := platform.Score + momentum.Score + safety.Score + cross.Score
	if linear > 100 {
		linear = 100
	}

	ia := AnalyzeInteractions(c, vel)
	corrected := linear * interactionMultiplier(ia)
	final := clampScore(corrected * conf.Level.ScoreMultiplier())

	breakdown := domain.ScoringBreakdown{
		EarlyPlatformAnalysis: platform,
		MomentumAnalysis:      momentum,
		SafetyValidation:      safety,
		CrossPlatformBonus:    cross,
		InteractionAnalysis:   ia,
		VelocityScore:         vel.Score,
		ScoringMode:           "enhanced",
		RiskAssessment: domain.RiskAssessment{
			RiskLevel:       assessRisk(c, ia),
			ConfidenceLevel: conf.Level,
		},
		ScoreComparison: domain.ScoreComparison{
			LinearScoreFlawed:         round1(linear),
			InteractionScoreCorrected: round1(corrected),
			MathematicalImprovement:   round1(corrected - linear),
		},
	}

	log.Debug().
		Str("address", c.Address).
		Float64("linear", linear).
		Float64("corrected", corrected).
		Float64("final", final).
		Str("confidence", string(conf.Level)).
		Msg("enhanced scoring complete")

	return final, breakdown
}

// scorePlatform scores discovery-side early signals, capped at 50.
func scorePlatform(c *domain.Candidate) domain.SectionScore {
	s := domain.SectionScore{Max: domain.MaxEarlyPlatformScore}
	add := func(points float64, signal string) {
		s.Score += points
		s.Signals = append(s.Signals, signal)
	}

	switch {
	case c.IsFreshGraduate:
		add(20, "fresh_graduate")
	case c.IsRecentGraduate:
		add(12, "recent_graduate")
	case c.Source == domain.SourceGraduated && c.HoursSinceGraduation <= 12:
		add(6, "graduated_12h")
	}

	switch {
	case c.BondingCurveProgress >= 95:
		add(25, "graduation_imminent")
	case c.BondingCurveProgress >= 90:
		add(18, "bonding_90")
	case c.BondingCurveProgress >= 85:
		add(12, "bonding_85")
	case c.BondingCurveProgress >= 75:
		add(8, "bonding_75")
	}

	if c.Source == domain.SourceTrending {
		add(12, "trending")
	}
	if c.Source == domain.SourceCurveDetector || c.Source == domain.SourceLiveLaunch {
		add(8, "onchain_detection")
	}

	switch {
	case c.MarketCapUSD >= 50_000 && c.MarketCapUSD <= 2_000_000:
		add(10, "mcap_sweet_spot")
	case c.MarketCapUSD >= 10_000 && c.MarketCapUSD < 50_000:
		add(7, "mcap_micro")
	}

	switch {
	case c.LiquidityUSD >= 50_000:
		add(8, "liquidity_strong")
	case c.LiquidityUSD >= 10_000:
		add(5, "liquidity_ok")
	}

	if s.Score > s.Max {
		s.Score = s.Max
	}
	return s
}

// scoreSafety scores security and structural health, capped at 25.
func scoreSafety(c *domain.Candidate) domain.SectionScore {
	s := domain.SectionScore{Max: domain.MaxSafetyScore}
	add := func(points float64, signal string) {
		s.Score += points
		s.Signals = append(s.Signals, signal)
	}

	if c.SecurityScore > 0 {
		add(round1(c.SecurityScore/100*15), "security_score")
	}
	if r := c.LiquidityToMcapRatio; r >= 0.05 && r <= 0.5 {
		add(5, "healthy_liquidity_ratio")
	}
	switch {
	case c.HolderCount >= 500:
		add(5, "holders_500")
	case c.HolderCount >= 100:
		add(3, "holders_100")
	}

	if s.Score > s.Max {
		s.Score = s.Max
	}
	return s
}

// scoreCrossPlatform rewards confirmation across independent feeds, capped at 12.
func scoreCrossPlatform(c *domain.Candidate) domain.SectionScore {
	s := domain.SectionScore{Max: domain.MaxCrossPlatformBonus}
	extra := len(c.SeenOn) - 1
	if extra > 0 {
		s.Score = float64(extra) * 6
		s.Signals = []string{"multi_platform"}
	}
	if s.Score > s.Max {
		s.Score = s.Max
	}
	return s
}

// assessRisk derives a downside label from liquidity, security and dangers.
func assessRisk(c *domain.Candidate, ia domain.InteractionAnalysis) domain.RiskLevel {
	switch {
	case worstDangerImpact(ia) <= -50:
		return domain.RiskCritical
	case c.LiquidityUSD > 0 && c.LiquidityUSD < 5_000:
		return domain.RiskCritical
	case c.LiquidityUSD < 20_000, c.SecurityScore > 0 && c.SecurityScore < 40:
		return domain.RiskHigh
	case c.LiquidityUSD < 50_000:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func round1(v float64) float64 {
	if v < 0 {
		return float64(int(v*10-0.5)) / 10
	}
	return float64(int(v*10+0.5)) / 10
}
