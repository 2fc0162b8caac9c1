package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/domain"
)

// minBondingProgress filters out tokens too far from graduation to act on.
const minBondingProgress = 70.0

// BondingFeed discovers pre-graduation tokens still filling their bonding
// curve, keeping those at >= 70% progress.
type BondingFeed struct {
	baseURL    string
	httpClient *http.Client
}

// NewBondingFeed creates the bonding-tokens adapter.
func NewBondingFeed(baseURL string) *BondingFeed {
	return &BondingFeed{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *BondingFeed) Name() string { return string(domain.SourceBonding) }

type bondingToken struct {
	Address             string  `json:"address"`
	Symbol              string  `json:"symbol"`
	Name                string  `json:"name"`
	PriceUSD            float64 `json:"price_usd"`
	MarketCapUSD        float64 `json:"market_cap_usd"`
	ProgressPct         float64 `json:"bonding_curve_progress"`
	GraduationThreshold float64 `json:"graduation_threshold"`
	CreatedAtUnix       int64   `json:"created_at"`
}

// Discover fetches bonding tokens, filters by progress and logs a per-band
// summary of what the curve population looks like.
func (f *BondingFeed) Discover(ctx context.Context) ([]domain.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/tokens/bonding?chain=solana", nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bonding feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bonding feed: unexpected status %d", resp.StatusCode)
	}

	var tokens []bondingToken
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("bonding feed: decode: %w", err)
	}

	now := time.Now()
	var imminent, nearGrad, approaching int
	candidates := make([]domain.Candidate, 0, len(tokens))
	for _, t := range tokens {
		if t.Address == "" || t.ProgressPct < minBondingProgress {
			continue
		}
		switch {
		case t.ProgressPct >= 95:
			imminent++
		case t.ProgressPct >= 85:
			nearGrad++
		default:
			approaching++
		}

		c := domain.Candidate{
			Address:              t.Address,
			Symbol:               t.Symbol,
			Name:                 t.Name,
			Source:               domain.SourceBonding,
			PriceUSD:             t.PriceUSD,
			MarketCapUSD:         t.MarketCapUSD,
			BondingCurveProgress: t.ProgressPct,
			GraduationThreshold:  t.GraduationThreshold,
			DiscoveredAt:         now,
		}
		if t.CreatedAtUnix > 0 {
			c.AgeMinutes = now.Sub(time.Unix(t.CreatedAtUnix, 0)).Minutes()
		}
		candidates = append(candidates, c)
	}

	log.Info().
		Int("total", len(tokens)).
		Int("kept", len(candidates)).
		Int("imminent_95", imminent).
		Int("close_85", nearGrad).
		Int("approaching_70", approaching).
		Msg("bonding feed summary")
	return candidates, nil
}
