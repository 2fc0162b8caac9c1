package pipeline

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/domain"
)

// Stage-1 limits. Triage is the cheapest stage, so it prefers false positives
// over false negatives: a candidate that cannot be scored keeps the default
// score instead of being dropped.
const (
	Stage1Cap          = 35
	triageDefaultScore = 20
)

// Triage prunes the discovery output using only fields already present. No
// network calls happen here.
type Triage struct {
	ledger *budget.Ledger
}

// NewTriage creates the Stage-1 triage filter.
func NewTriage(ledger *budget.Ledger) *Triage {
	return &Triage{ledger: ledger}
}

// Run scores every candidate with the source-specific rubric, applies the
// source-dependent threshold and keeps the top 35 by score.
func (t *Triage) Run(candidates []domain.Candidate) ([]domain.Candidate, error) {
	var kept []domain.Candidate

	for _, c := range candidates {
		score, err := t.scoreCandidate(&c)
		if err != nil {
			// Fail-safe: keep with the default score and an annotation.
			c.TriageError = err.Error()
			score = triageDefaultScore
		}
		c.DiscoveryPriorityScore = score
		if score < triageThreshold(c.Source) {
			continue
		}
		c.Advance(domain.StageTriaged)
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].DiscoveryPriorityScore > kept[j].DiscoveryPriorityScore
	})
	if len(kept) > Stage1Cap {
		kept = kept[:Stage1Cap]
	}

	if t.ledger != nil {
		t.ledger.RecordStage("stage1_triage", len(kept))
	}
	log.Info().Int("in", len(candidates)).Int("out", len(kept)).Msg("stage 1 triage complete")
	return kept, nil
}

// scoreCandidate applies the source-specific rubric.
func (t *Triage) scoreCandidate(c *domain.Candidate) (float64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	score := 0.0
	switch c.Source {
	case domain.SourceGraduated:
		score += graduatedSignals(c)
	case domain.SourceBonding:
		score += bondingSignals(c)
	case domain.SourceTrending:
		score += 30 // presence on the trending feed is itself the signal
	case domain.SourceCurveDetector, domain.SourceCachedCurve, domain.SourceLiveLaunch:
		score += 20
		score += bondingSignals(c) * 0.5 // partial credit for curve progress when known
	}

	score += universalSignals(c)
	return score, nil
}

func graduatedSignals(c *domain.Candidate) float64 {
	score := 0.0

	age := c.HoursSinceGraduation
	switch {
	case age > 0 && age <= 1:
		score += 40
	case age > 1 && age <= 6:
		score += 25
	case age > 6 && age <= 12:
		score += 15
	}

	switch {
	case c.MarketCapUSD >= 50_000 && c.MarketCapUSD <= 2_000_000:
		score += 20
	case c.MarketCapUSD >= 10_000 && c.MarketCapUSD < 50_000:
		score += 15
	case c.MarketCapUSD > 2_000_000:
		score += 5
	}

	switch {
	case c.LiquidityUSD >= 50_000:
		score += 15
	case c.LiquidityUSD >= 10_000:
		score += 10
	case c.LiquidityUSD >= 1_000:
		score += 5
	}

	return score
}

func bondingSignals(c *domain.Candidate) float64 {
	score := 0.0

	switch {
	case c.BondingCurveProgress >= 95:
		score += 50
	case c.BondingCurveProgress >= 90:
		score += 35
	case c.BondingCurveProgress >= 85:
		score += 25
	case c.BondingCurveProgress >= 75:
		score += 15
	case c.BondingCurveProgress >= 50:
		score += 10
	}

	switch {
	case c.MarketCapUSD >= 5_000 && c.MarketCapUSD <= 500_000:
		score += 15
	case c.MarketCapUSD > 0 && c.MarketCapUSD < 5_000:
		score += 10
	}

	return score
}

func universalSignals(c *domain.Candidate) float64 {
	score := 0.0

	if len(c.Address) == 44 && c.ValidAddress() {
		score += 5
	}
	if cleanSymbol(c.Symbol) {
		score += 3
	}

	age := c.Age().Minutes()
	switch {
	case age > 0 && age <= 60:
		score += 8
	case age > 60 && age <= 360:
		score += 5
	case age > 360 && age <= 1440:
		score += 2
	}

	return score
}

// triageThreshold returns the Stage-1 floor for a source.
func triageThreshold(s domain.Source) float64 {
	switch s {
	case domain.SourceGraduated:
		return 25
	case domain.SourceBonding, domain.SourceTrending:
		return 30
	default:
		return 20
	}
}

// cleanSymbol rejects empty, overlong and obviously spammy tickers.
func cleanSymbol(sym string) bool {
	if len(sym) < 2 || len(sym) > 12 {
		return false
	}
	for _, r := range sym {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
