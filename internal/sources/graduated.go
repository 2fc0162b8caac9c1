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

// graduationWindow limits the graduated feed to tokens that left their curve
// recently enough to still be early.
const graduationWindow = 12 * time.Hour

// GraduatedFeed discovers tokens that recently graduated from a launchpad
// bonding curve to an AMM pool.
type GraduatedFeed struct {
	baseURL    string
	httpClient *http.Client
}

// NewGraduatedFeed creates the graduated-tokens adapter.
func NewGraduatedFeed(baseURL string) *GraduatedFeed {
	return &GraduatedFeed{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *GraduatedFeed) Name() string { return string(domain.SourceGraduated) }

type graduatedToken struct {
	Address         string  `json:"address"`
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	PriceUSD        float64 `json:"price_usd"`
	MarketCapUSD    float64 `json:"market_cap_usd"`
	LiquidityUSD    float64 `json:"liquidity_usd"`
	Volume24h       float64 `json:"volume_24h"`
	Trades24h       int     `json:"trades_24h"`
	GraduatedAtUnix int64   `json:"graduated_at"`
}

// Discover fetches recent graduates and keeps those inside the 12-hour window.
func (f *GraduatedFeed) Discover(ctx context.Context) ([]domain.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/tokens/graduated?chain=solana", nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graduated feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graduated feed: unexpected status %d", resp.StatusCode)
	}

	var tokens []graduatedToken
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("graduated feed: decode: %w", err)
	}

	now := time.Now()
	candidates := make([]domain.Candidate, 0, len(tokens))
	skipped := 0
	for _, t := range tokens {
		if t.Address == "" || t.GraduatedAtUnix == 0 {
			continue
		}
		since := now.Sub(time.Unix(t.GraduatedAtUnix, 0))
		if since < 0 || since > graduationWindow {
			skipped++
			continue
		}

		c := domain.Candidate{
			Address:              t.Address,
			Symbol:               t.Symbol,
			Name:                 t.Name,
			Source:               domain.SourceGraduated,
			PriceUSD:             t.PriceUSD,
			MarketCapUSD:         t.MarketCapUSD,
			LiquidityUSD:         t.LiquidityUSD,
			Volume24h:            t.Volume24h,
			Trades24h:            t.Trades24h,
			HoursSinceGraduation: since.Hours(),
			AgeMinutes:           since.Minutes(),
			DiscoveredAt:         now,
		}
		c.RefreshAgeFlags()
		candidates = append(candidates, c)
	}

	log.Debug().Int("tokens", len(tokens)).Int("candidates", len(candidates)).
		Int("outside_window", skipped).Msg("graduated feed mapped")
	return candidates, nil
}
