package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/domain"
	"github.com/solgems/gemscan/internal/enrich"
	"github.com/solgems/gemscan/internal/net/ratelimit"
)

// BirdeyeClient is the primary paid vendor: true-batch token metadata and
// per-timeframe OHLCV. The batch endpoint costs 5 + N^0.8 CU against 30 CU
// per individual call, which is why the enricher prefers it.
type BirdeyeClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	breakers   *BreakerManager
}

const birdeyeVendor = "birdeye"

// NewBirdeyeClient creates a Birdeye client. limiter and breakers may be nil
// in tests.
func NewBirdeyeClient(baseURL, apiKey string, limiter *ratelimit.Limiter, breakers *BreakerManager) *BirdeyeClient {
	return &BirdeyeClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    limiter,
		breakers:   breakers,
	}
}

// CostModel declares the batch endpoint's pricing.
func (c *BirdeyeClient) CostModel() enrich.CostModel {
	return enrich.CostModel{BaseCU: 5, Exponent: 0.8, PerTokenCU: 30}
}

type birdeyeMetaResponse struct {
	Success bool                       `json:"success"`
	Data    map[string]enrich.Metadata `json:"data"`
}

// FetchMetadataBatch retrieves metadata for every address in a single call.
func (c *BirdeyeClient) FetchMetadataBatch(ctx context.Context, addresses []string) (map[string]enrich.Metadata, error) {
	if len(addresses) == 0 {
		return map[string]enrich.Metadata{}, nil
	}

	endpoint := fmt.Sprintf("%s/defi/v3/token/meta-data/multiple?list_address=%s",
		c.baseURL, url.QueryEscape(strings.Join(addresses, ",")))

	var resp birdeyeMetaResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("birdeye metadata batch: %w", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("birdeye metadata batch: vendor reported failure")
	}

	log.Debug().Int("requested", len(addresses)).Int("returned", len(resp.Data)).Msg("birdeye metadata batch fetched")
	return resp.Data, nil
}

// FetchMetadata retrieves one token's metadata. Last link of the fallback
// chain.
func (c *BirdeyeClient) FetchMetadata(ctx context.Context, address string) (enrich.Metadata, error) {
	endpoint := fmt.Sprintf("%s/defi/v3/token/meta-data/single?address=%s", c.baseURL, url.QueryEscape(address))

	var resp struct {
		Success bool            `json:"success"`
		Data    enrich.Metadata `json:"data"`
	}
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return enrich.Metadata{}, fmt.Errorf("birdeye metadata for %s: %w", address, err)
	}
	if !resp.Success {
		return enrich.Metadata{}, fmt.Errorf("birdeye metadata for %s: vendor reported failure", address)
	}
	return resp.Data, nil
}

type birdeyeOHLCVResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items []domain.Candle `json:"items"`
	} `json:"data"`
}

// FetchOHLCV retrieves the most recent candles for one address and timeframe.
func (c *BirdeyeClient) FetchOHLCV(ctx context.Context, address, timeframe string, limit int) ([]domain.Candle, error) {
	endpoint := fmt.Sprintf("%s/defi/ohlcv?address=%s&type=%s&limit=%d",
		c.baseURL, url.QueryEscape(address), url.QueryEscape(timeframe), limit)

	var resp birdeyeOHLCVResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("birdeye ohlcv %s/%s: %w", address, timeframe, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("birdeye ohlcv %s/%s: vendor reported failure", address, timeframe)
	}
	return resp.Data.Items, nil
}

// getJSON performs a rate-limited, breaker-guarded GET and decodes into out.
func (c *BirdeyeClient) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, birdeyeVendor); err != nil {
			return err
		}
	}

	do := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-KEY", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			// 429s are not retried within a cycle; the caller degrades.
			return nil, fmt.Errorf("rate limited (429)")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil, json.NewDecoder(resp.Body).Decode(out)
	}

	if c.breakers != nil {
		_, err := c.breakers.Execute(birdeyeVendor, do)
		return err
	}
	_, err := do()
	return err
}
