package pipeline

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/domain"
	"github.com/solgems/gemscan/internal/enrich"
)

// Stage2Cap bounds the enhanced filter's output before dynamic-k shrinks it
// further on small inputs.
const Stage2Cap = 30

// EnhancedFilter is Stage 2: it turns the discovery priority score into an
// enhanced score by adding enrichment-derived bonuses.
type EnhancedFilter struct {
	enricher *enrich.Enricher
	ledger   *budget.Ledger
}

// NewEnhancedFilter creates the Stage-2 filter.
func NewEnhancedFilter(enricher *enrich.Enricher, ledger *budget.Ledger) *EnhancedFilter {
	return &EnhancedFilter{enricher: enricher, ledger: ledger}
}

// Run enriches un-enriched candidates in basic mode, adds the bonus tiers and
// keeps the dynamic top-k above the source/quality-aware threshold.
func (f *EnhancedFilter) Run(ctx context.Context, candidates []domain.Candidate) ([]domain.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	enriched := f.enricher.EnrichBasic(ctx, candidates)

	var kept []domain.Candidate
	for _, c := range enriched {
		c.EnhancedScore = c.DiscoveryPriorityScore + enrichmentBonus(&c)
		if c.EnhancedScore < enhancedThreshold(&c) {
			continue
		}
		c.Advance(domain.StageEnhanced)
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].EnhancedScore > kept[j].EnhancedScore
	})

	k := dynamicK(len(candidates))
	if len(kept) > k {
		kept = kept[:k]
	}

	if f.ledger != nil {
		f.ledger.RecordStage("stage2_enhanced", len(kept))
	}
	log.Info().Int("in", len(candidates)).Int("out", len(kept)).Int("k", k).Msg("stage 2 enhanced filter complete")
	return kept, nil
}

// dynamicK keeps min(30, max(15, floor(0.4*n))) candidates.
func dynamicK(n int) int {
	k := int(0.4 * float64(n))
	if k < 15 {
		k = 15
	}
	if k > Stage2Cap {
		k = Stage2Cap
	}
	return k
}

// enrichmentBonus adds the tiered volume / trades / holders / security bonuses.
func enrichmentBonus(c *domain.Candidate) float64 {
	bonus := 0.0

	switch {
	case c.Volume24h >= 500_000:
		bonus += 15
	case c.Volume24h >= 100_000:
		bonus += 10
	case c.Volume24h >= 10_000:
		bonus += 5
	}

	switch {
	case c.Trades24h >= 1_000:
		bonus += 10
	case c.Trades24h >= 300:
		bonus += 5
	}

	switch {
	case c.HolderCount >= 1_000:
		bonus += 10
	case c.HolderCount >= 100:
		bonus += 5
	}

	switch {
	case c.SecurityScore >= 80:
		bonus += 8
	case c.SecurityScore >= 50:
		bonus += 4
	}

	return bonus
}

// highQuality marks candidates whose enrichment confirmed real structure.
func highQuality(c *domain.Candidate) bool {
	return c.Enriched && (c.SecurityScore >= 60 || c.LiquidityUSD >= 25_000)
}

// enhancedThreshold is source- and quality-aware: bonding-stage tokens with a
// confirmed profile must clear a higher bar than generic candidates.
func enhancedThreshold(c *domain.Candidate) float64 {
	switch {
	case c.Source == domain.SourceBonding && highQuality(c):
		return 45
	case c.Source == domain.SourceGraduated && highQuality(c):
		return 40
	default:
		return 35
	}
}
