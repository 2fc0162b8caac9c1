package enrich

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/domain"
)

// Mode selects how much data an enrichment pass fetches.
type Mode string

const (
	// ModeBasic fetches batch metadata only.
	ModeBasic Mode = "basic"
	// ModeComprehensive fetches metadata plus OHLCV. Only Stage 4 may use it.
	ModeComprehensive Mode = "comprehensive"
)

// Config tunes the enricher's pacing and concurrency.
type Config struct {
	// OHLCVPreSleep is the mandatory pause before every OHLCV request.
	// Defaults to 300ms; shortening it violates vendor rate plans.
	OHLCVPreSleep time.Duration
	// MaxOHLCVConcurrency caps the adaptive semaphore. Zero means 10.
	MaxOHLCVConcurrency int
}

// Enricher turns candidate address lists into enriched records. It prefers a
// true batch endpoint, downgrading to a legacy single-vendor batch and then to
// per-token calls; every downgrade is logged.
type Enricher struct {
	batch      MetadataBatcher
	legacy     MetadataBatcher
	individual MetadataFetcher
	ohlcv      OHLCVFetcher
	breaker    *budget.Breaker
	ledger     *budget.Ledger
	config     Config

	// sleep is swappable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an enricher. batch, legacy and individual may each be nil; the
// fallback chain skips missing links.
func New(batch, legacy MetadataBatcher, individual MetadataFetcher, ohlcv OHLCVFetcher,
	breaker *budget.Breaker, ledger *budget.Ledger, config Config) *Enricher {
	if config.OHLCVPreSleep <= 0 {
		config.OHLCVPreSleep = 300 * time.Millisecond
	}
	return &Enricher{
		batch:      batch,
		legacy:     legacy,
		individual: individual,
		ohlcv:      ohlcv,
		breaker:    breaker,
		ledger:     ledger,
		config:     config,
		sleep:      sleepCtx,
	}
}

// EnrichBasic merges batch metadata into the given candidates and computes
// derived metrics. Candidates missing from the response pass through
// unchanged. The result preserves input order.
func (e *Enricher) EnrichBasic(ctx context.Context, candidates []domain.Candidate) []domain.Candidate {
	var pending []string
	for i := range candidates {
		if !candidates[i].Enriched {
			pending = append(pending, candidates[i].Address)
		}
	}
	if len(pending) == 0 {
		return candidates
	}

	records, method := e.fetchMetadata(ctx, pending)

	out := make([]domain.Candidate, len(candidates))
	for i, c := range candidates {
		if rec, ok := records[c.Address]; ok && rec.Err == "" {
			mergeMetadata(&c, rec)
			c.Enriched = true
			c.EnhancementMethod = method
		}
		computeDerived(&c)
		out[i] = c
	}
	return out
}

// fetchMetadata walks the fallback chain and returns whatever it could get,
// with the name of the method that served it.
func (e *Enricher) fetchMetadata(ctx context.Context, addresses []string) (map[string]Metadata, string) {
	// Batch endpoints want deterministic input; per-address output does not
	// depend on request order.
	sorted := make([]string, len(addresses))
	copy(sorted, addresses)
	sort.Strings(sorted)

	if e.batch != nil {
		records, err := e.batch.FetchMetadataBatch(ctx, sorted)
		if err == nil {
			e.recordBatchSavings(e.batch.CostModel(), len(sorted))
			return records, "true-batch"
		}
		log.Warn().Err(err).Int("addresses", len(sorted)).Msg("true-batch metadata failed, downgrading to legacy batch")
	}

	if e.legacy != nil {
		records, err := e.legacy.FetchMetadataBatch(ctx, sorted)
		if err == nil {
			e.recordBatchSavings(e.legacy.CostModel(), len(sorted))
			return records, "legacy-batch"
		}
		log.Warn().Err(err).Int("addresses", len(sorted)).Msg("legacy batch metadata failed, downgrading to individual calls")
	}

	records := make(map[string]Metadata, len(sorted))
	if e.individual != nil {
		for _, addr := range sorted {
			rec, err := e.individual.FetchMetadata(ctx, addr)
			if err != nil {
				log.Debug().Err(err).Str("address", addr).Msg("individual metadata fetch failed")
				continue
			}
			records[addr] = rec
		}
	}
	return records, "individual"
}

func (e *Enricher) recordBatchSavings(model CostModel, n int) {
	if e.ledger == nil || n == 0 {
		return
	}
	saved := model.IndividualCU(n) - model.BatchCU(n)
	if saved > 0 {
		e.ledger.RecordCUSaved(saved)
	}
}

// FetchOHLCVBatch issues M tokens x T timeframes requests under a semaphore
// sized from the circuit breaker. Each task sleeps before its request to stay
// inside per-plan rate limits. Partial results are returned; per-task errors
// are logged and counted, never propagated.
func (e *Enricher) FetchOHLCVBatch(ctx context.Context, addresses, timeframes []string, limit int) map[string]map[string][]domain.Candle {
	results := make(map[string]map[string][]domain.Candle, len(addresses))
	if e.ohlcv == nil || len(addresses) == 0 || len(timeframes) == 0 {
		return results
	}

	concurrency := 10
	if e.breaker != nil {
		concurrency = e.breaker.OHLCVConcurrency(e.config.MaxOHLCVConcurrency)
	} else if e.config.MaxOHLCVConcurrency > 0 && concurrency > e.config.MaxOHLCVConcurrency {
		concurrency = e.config.MaxOHLCVConcurrency
	}

	log.Info().
		Int("tokens", len(addresses)).
		Int("timeframes", len(timeframes)).
		Int("concurrency", concurrency).
		Msg("starting OHLCV batch")

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	made := 0

	// All inner maps exist before the first worker starts; workers only write
	// through them under mu.
	for _, addr := range addresses {
		results[addr] = make(map[string][]domain.Candle, len(timeframes))
	}

	for _, addr := range addresses {
		for _, tf := range timeframes {
			wg.Add(1)
			go func(addr, tf string) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				if err := e.sleep(ctx, e.config.OHLCVPreSleep); err != nil {
					return
				}
				candles, err := e.ohlcv.FetchOHLCV(ctx, addr, tf, limit)

				mu.Lock()
				defer mu.Unlock()
				made++
				if err != nil {
					log.Debug().Err(err).Str("address", addr).Str("timeframe", tf).Msg("OHLCV fetch failed")
					return
				}
				results[addr][tf] = candles
			}(addr, tf)
		}
	}
	wg.Wait()

	if e.ledger != nil {
		e.ledger.RecordOHLCVCalls(made)
	}
	return results
}

// ApplyTimeframe folds a timeframe's candles into the candidate's short-window
// fields: volume is the mean of the last three candles, price change is the
// last-to-previous close move in percent, and the trade count is the coarse
// volume/(close*100) estimator.
func ApplyTimeframe(c *domain.Candidate, timeframe string, candles []domain.Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("no candles for %s", timeframe)
	}

	n := len(candles)
	last := candles[n-1]

	volN := 3
	if n < volN {
		volN = n
	}
	var volume float64
	for _, candle := range candles[n-volN:] {
		volume += candle.Volume
	}
	volume /= float64(volN)

	var change float64
	if n >= 2 && candles[n-2].Close > 0 {
		change = (last.Close - candles[n-2].Close) / candles[n-2].Close * 100
	}

	var trades int
	if last.Close > 0 {
		trades = int(volume / (last.Close * 100))
	}

	switch timeframe {
	case "5m":
		c.Volume5m, c.PriceChange5m, c.Trades5m = volume, change, trades
	case "15m":
		c.Volume15m, c.PriceChange15m, c.Trades15m = volume, change, trades
	case "30m":
		c.Volume30m, c.PriceChange30m, c.Trades30m = volume, change, trades
	case "1h":
		c.Volume1h, c.PriceChange1h, c.Trades1h = volume, change, trades
	default:
		return fmt.Errorf("unsupported timeframe %q", timeframe)
	}
	return nil
}

// mergeMetadata copies non-empty metadata fields onto the candidate.
// Discovery-time price_change fields stay authoritative until Stage 4.
func mergeMetadata(c *domain.Candidate, m Metadata) {
	if m.Symbol != "" {
		c.Symbol = m.Symbol
	}
	if m.Name != "" {
		c.Name = m.Name
	}
	if m.PriceUSD > 0 {
		c.PriceUSD = m.PriceUSD
	}
	if m.MarketCapUSD > 0 {
		c.MarketCapUSD = m.MarketCapUSD
	}
	if m.LiquidityUSD > 0 {
		c.LiquidityUSD = m.LiquidityUSD
	}
	if m.Volume24h > 0 {
		c.Volume24h = m.Volume24h
	}
	if m.Trades24h > 0 {
		c.Trades24h = m.Trades24h
	}
	if m.UniqueTraders24h > 0 {
		c.UniqueTraders24h = m.UniqueTraders24h
	}
	if m.HolderCount > 0 {
		c.HolderCount = m.HolderCount
	}
	if m.SecurityScore > 0 {
		c.SecurityScore = m.SecurityScore
	}
	if m.GraduatedAtUnix > 0 {
		c.HoursSinceGraduation = time.Since(time.Unix(m.GraduatedAtUnix, 0)).Hours()
		if c.HoursSinceGraduation < 0 {
			c.HoursSinceGraduation = 0
		}
	}
}

// computeDerived fills the enrichment-derived metrics and age flags.
func computeDerived(c *domain.Candidate) {
	trades := c.Trades24h
	if trades < 1 {
		trades = 1
	}
	c.AvgTradeSize = c.Volume24h / float64(trades)

	if c.MarketCapUSD > 0 {
		c.LiquidityToMcapRatio = c.LiquidityUSD / c.MarketCapUSD
		c.DailyTurnoverRatio = c.Volume24h / c.MarketCapUSD
	}
	c.RefreshAgeFlags()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
