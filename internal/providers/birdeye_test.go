package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBirdeyeMetadataBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/v3/token/meta-data/multiple", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		assert.Contains(t, r.URL.Query().Get("list_address"), "mint1")

		w.Write([]byte(`{"success": true, "data": {
			"mint1": {"symbol": "GEM", "market_cap_usd": 120000, "security_score": 75}
		}}`))
	}))
	defer ts.Close()

	c := NewBirdeyeClient(ts.URL, "secret", nil, nil)
	got, err := c.FetchMetadataBatch(context.Background(), []string{"mint1", "mint2"})
	require.NoError(t, err)

	rec, ok := got["mint1"]
	require.True(t, ok)
	assert.Equal(t, "GEM", rec.Symbol)
	assert.Equal(t, 120_000.0, rec.MarketCapUSD)
	assert.Equal(t, 75.0, rec.SecurityScore)
}

func TestBirdeyeVendorFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false}`))
	}))
	defer ts.Close()

	c := NewBirdeyeClient(ts.URL, "", nil, nil)
	_, err := c.FetchMetadataBatch(context.Background(), []string{"mint1"})
	assert.Error(t, err)
}

func TestBirdeye429NotRetried(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewBirdeyeClient(ts.URL, "", nil, nil)
	_, err := c.FetchMetadata(context.Background(), "mint1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Equal(t, 1, calls, "429 must not be retried within a cycle")
}

func TestBirdeyeOHLCV(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/defi/ohlcv", r.URL.Path)
		assert.Equal(t, "15m", r.URL.Query().Get("type"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))

		w.Write([]byte(`{"success": true, "data": {"items": [
			{"o": 1.0, "h": 1.2, "l": 0.9, "c": 1.1, "v": 50000, "t": 1756100000},
			{"o": 1.1, "h": 1.4, "l": 1.0, "c": 1.3, "v": 80000, "t": 1756100900}
		]}}`))
	}))
	defer ts.Close()

	c := NewBirdeyeClient(ts.URL, "", nil, nil)
	candles, err := c.FetchOHLCV(context.Background(), "mint1", "15m", 20)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 1.3, candles[1].Close)
	assert.Equal(t, 80_000.0, candles[1].Volume)
}

func TestBirdeyeEmptyBatch(t *testing.T) {
	c := NewBirdeyeClient("http://unreachable.invalid", "", nil, nil)
	got, err := c.FetchMetadataBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got, "empty input must not hit the network")
}
