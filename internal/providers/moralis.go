package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/solgems/gemscan/internal/enrich"
	"github.com/solgems/gemscan/internal/net/ratelimit"
)

// MoralisClient is the legacy batch vendor used when the true-batch endpoint
// is down. Its batch is a plain POST of addresses with per-token pricing and
// no cross-vendor merge, so it sits second in the fallback chain.
type MoralisClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	breakers   *BreakerManager
}

const moralisVendor = "moralis"

// NewMoralisClient creates a Moralis client.
func NewMoralisClient(baseURL, apiKey string, limiter *ratelimit.Limiter, breakers *BreakerManager) *MoralisClient {
	return &MoralisClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    limiter,
		breakers:   breakers,
	}
}

// CostModel declares legacy-batch pricing: cheaper than individual calls but
// without the true batch's sublinear curve.
func (c *MoralisClient) CostModel() enrich.CostModel {
	return enrich.CostModel{BaseCU: 10, Exponent: 1.0, PerTokenCU: 30}
}

// FetchMetadataBatch posts the address list and maps the vendor's token
// records into the common metadata shape.
func (c *MoralisClient) FetchMetadataBatch(ctx context.Context, addresses []string) (map[string]enrich.Metadata, error) {
	if len(addresses) == 0 {
		return map[string]enrich.Metadata{}, nil
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, moralisVendor); err != nil {
			return nil, err
		}
	}

	body := strings.NewReader(fmt.Sprintf(`{"addresses":[%s]}`, quoteJoin(addresses)))
	do := func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tokens/metadata", body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		var records []struct {
			Address string `json:"address"`
			enrich.Metadata
		}
		if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
			return nil, err
		}

		out := make(map[string]enrich.Metadata, len(records))
		for _, r := range records {
			out[r.Address] = r.Metadata
		}
		return out, nil
	}

	var result interface{}
	var err error
	if c.breakers != nil {
		result, err = c.breakers.Execute(moralisVendor, do)
	} else {
		result, err = do()
	}
	if err != nil {
		return nil, fmt.Errorf("moralis metadata batch: %w", err)
	}
	return result.(map[string]enrich.Metadata), nil
}

func quoteJoin(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ",")
}
