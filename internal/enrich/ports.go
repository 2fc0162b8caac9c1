package enrich

import (
	"context"
	"math"

	"github.com/solgems/gemscan/internal/domain"
)

// Metadata is one token's record from a metadata batch response. Err is set
// for per-token failures; the enricher then passes the original candidate
// through unchanged.
type Metadata struct {
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	PriceUSD         float64 `json:"price_usd"`
	MarketCapUSD     float64 `json:"market_cap_usd"`
	LiquidityUSD     float64 `json:"liquidity_usd"`
	Volume24h        float64 `json:"volume_24h"`
	Trades24h        int     `json:"trades_24h"`
	UniqueTraders24h int     `json:"unique_traders_24h"`
	HolderCount      int     `json:"holder_count"`
	SecurityScore    float64 `json:"security_score"`
	GraduatedAtUnix  int64   `json:"graduated_at,omitempty"`
	Err              string  `json:"error,omitempty"`
}

// CostModel declares a batch endpoint's pricing: BaseCU + N^Exponent cost
// units for N tokens, against PerTokenCU for individual calls.
type CostModel struct {
	BaseCU     float64
	Exponent   float64
	PerTokenCU float64
}

// BatchCU returns the cost of one batch call for n tokens.
func (m CostModel) BatchCU(n int) float64 {
	return m.BaseCU + math.Pow(float64(n), m.Exponent)
}

// IndividualCU returns the cost of n individual calls.
func (m CostModel) IndividualCU(n int) float64 {
	return m.PerTokenCU * float64(n)
}

// MetadataBatcher retrieves metadata for many tokens in a single call.
type MetadataBatcher interface {
	FetchMetadataBatch(ctx context.Context, addresses []string) (map[string]Metadata, error)
	CostModel() CostModel
}

// MetadataFetcher retrieves metadata for one token. Used as the last resort of
// the fallback chain.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, address string) (Metadata, error)
}

// OHLCVFetcher retrieves candles for one token and timeframe. Forbidden
// outside of Stage 4.
type OHLCVFetcher interface {
	FetchOHLCV(ctx context.Context, address, timeframe string, limit int) ([]domain.Candle, error)
}
