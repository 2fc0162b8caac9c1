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

// TrendingFeed discovers tokens from a DexScreener-style trending endpoint.
type TrendingFeed struct {
	baseURL    string
	httpClient *http.Client
}

// NewTrendingFeed creates the trending-feed adapter.
func NewTrendingFeed(baseURL string) *TrendingFeed {
	return &TrendingFeed{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *TrendingFeed) Name() string { return string(domain.SourceTrending) }

type trendingPair struct {
	BaseToken struct {
		Address string `json:"address"`
		Symbol  string `json:"symbol"`
		Name    string `json:"name"`
	} `json:"baseToken"`
	PriceUSD    string  `json:"priceUsd"`
	MarketCap   float64 `json:"marketCap"`
	Liquidity   struct{ USD float64 `json:"usd"` } `json:"liquidity"`
	Volume      struct {
		H24 float64 `json:"h24"`
		H6  float64 `json:"h6"`
		H1  float64 `json:"h1"`
		M5  float64 `json:"m5"`
	} `json:"volume"`
	PriceChange struct {
		H24 float64 `json:"h24"`
		H6  float64 `json:"h6"`
		H1  float64 `json:"h1"`
		M5  float64 `json:"m5"`
	} `json:"priceChange"`
	Txns struct {
		H24 struct{ Buys, Sells int } `json:"h24"`
		H1  struct{ Buys, Sells int } `json:"h1"`
		M5  struct{ Buys, Sells int } `json:"m5"`
	} `json:"txns"`
	PairCreatedAt int64 `json:"pairCreatedAt"` // unix millis
}

// Discover fetches the trending pairs and maps them into candidates.
func (f *TrendingFeed) Discover(ctx context.Context) ([]domain.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/token-boosts/trending/v1?chain=solana", nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trending feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trending feed: unexpected status %d", resp.StatusCode)
	}

	var pairs []trendingPair
	if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
		return nil, fmt.Errorf("trending feed: decode: %w", err)
	}

	now := time.Now()
	candidates := make([]domain.Candidate, 0, len(pairs))
	for _, p := range pairs {
		if p.BaseToken.Address == "" {
			continue
		}
		c := domain.Candidate{
			Address:        p.BaseToken.Address,
			Symbol:         p.BaseToken.Symbol,
			Name:           p.BaseToken.Name,
			Source:         domain.SourceTrending,
			PriceUSD:       parsePrice(p.PriceUSD),
			MarketCapUSD:   p.MarketCap,
			LiquidityUSD:   p.Liquidity.USD,
			Volume5m:       p.Volume.M5,
			Volume1h:       p.Volume.H1,
			Volume6h:       p.Volume.H6,
			Volume24h:      p.Volume.H24,
			PriceChange5m:  p.PriceChange.M5,
			PriceChange1h:  p.PriceChange.H1,
			PriceChange6h:  p.PriceChange.H6,
			PriceChange24h: p.PriceChange.H24,
			Trades5m:       p.Txns.M5.Buys + p.Txns.M5.Sells,
			Trades1h:       p.Txns.H1.Buys + p.Txns.H1.Sells,
			Trades24h:      p.Txns.H24.Buys + p.Txns.H24.Sells,
			DiscoveredAt:   now,
		}
		if p.PairCreatedAt > 0 {
			c.AgeMinutes = now.Sub(time.UnixMilli(p.PairCreatedAt)).Minutes()
		}
		candidates = append(candidates, c)
	}

	log.Debug().Int("pairs", len(pairs)).Int("candidates", len(candidates)).Msg("trending feed mapped")
	return candidates, nil
}

func parsePrice(s string) float64 {
	var v float64
	fmt.Sscanf(s, "%f", &v)
	return v
}
