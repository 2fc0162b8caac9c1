package discovery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/domain"
)

// Source is the uniform discovery capability every feed implements. Adapters
// own their HTTP/RPC clients, retries and field mapping, and tag the Source on
// every candidate they emit.
type Source interface {
	Name() string
	Discover(ctx context.Context) ([]domain.Candidate, error)
}

// TimeoutHinter lets an adapter declare its own deadline. On-chain pool scans
// need more headroom than HTTP feeds.
type TimeoutHinter interface {
	Timeout() time.Duration
}

// Config tunes the orchestrator.
type Config struct {
	// DefaultTimeout bounds sources that do not hint their own. Default 30s.
	DefaultTimeout time.Duration
}

// Orchestrator fans out to all sources concurrently, merges their output and
// deduplicates by address. Source errors never abort a cycle.
type Orchestrator struct {
	sources   []Source
	fallbacks map[string]Source // source name -> cached fallback
	config    Config
}

// NewOrchestrator creates a discovery orchestrator over the given sources.
func NewOrchestrator(sources []Source, config Config) *Orchestrator {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30 * time.Second
	}
	return &Orchestrator{
		sources:   sources,
		fallbacks: make(map[string]Source),
		config:    config,
	}
}

// SetFallback registers a fallback source consulted when the named source
// times out or fails, e.g. cached on-chain curve data standing in for the
// live detector.
func (o *Orchestrator) SetFallback(sourceName string, fallback Source) {
	o.fallbacks[sourceName] = fallback
}

type sourceResult struct {
	name       string
	candidates []domain.Candidate
	err        error
}

// Discover runs every source with its own timeout, waits for all, merges and
// deduplicates. The result is sorted by discovery time, newest first.
func (o *Orchestrator) Discover(ctx context.Context) []domain.Candidate {
	results := make(chan sourceResult, len(o.sources))
	var wg sync.WaitGroup

	for _, src := range o.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			results <- o.runSource(ctx, src)
		}(src)
	}
	wg.Wait()
	close(results)

	var merged []domain.Candidate
	for res := range results {
		if res.err != nil {
			log.Warn().Err(res.err).Str("source", res.name).Msg("discovery source failed, contribution empty")
			if fb, ok := o.fallbacks[res.name]; ok {
				if cached, err := fb.Discover(ctx); err == nil {
					log.Info().Str("source", res.name).Str("fallback", fb.Name()).
						Int("candidates", len(cached)).Msg("using cached fallback data")
					merged = append(merged, cached...)
				} else {
					log.Warn().Err(err).Str("fallback", fb.Name()).Msg("fallback source also failed")
				}
			}
			continue
		}
		merged = append(merged, res.candidates...)
	}

	unique := Deduplicate(merged)

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].DiscoveredAt.After(unique[j].DiscoveredAt)
	})

	log.Info().
		Int("sources", len(o.sources)).
		Int("raw", len(merged)).
		Int("unique", len(unique)).
		Msg("discovery complete")

	return unique
}

// runSource executes one source under its timeout.
func (o *Orchestrator) runSource(ctx context.Context, src Source) sourceResult {
	timeout := o.config.DefaultTimeout
	if h, ok := src.(TimeoutHinter); ok && h.Timeout() > 0 {
		timeout = h.Timeout()
	}
	srcCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	candidates, err := src.Discover(srcCtx)
	if err != nil {
		return sourceResult{name: src.Name(), err: err}
	}

	for i := range candidates {
		if candidates[i].DiscoveredAt.IsZero() {
			candidates[i].DiscoveredAt = time.Now()
		}
		if len(candidates[i].SeenOn) == 0 {
			candidates[i].SeenOn = []domain.Source{candidates[i].Source}
		}
	}

	log.Debug().
		Str("source", src.Name()).
		Int("candidates", len(candidates)).
		Dur("took", time.Since(start)).
		Msg("source discovery done")

	return sourceResult{name: src.Name(), candidates: candidates}
}

// Deduplicate collapses duplicate addresses, keeping the first occurrence and
// appending later sightings to SeenOn so cross-platform validation can reward
// them.
func Deduplicate(candidates []domain.Candidate) []domain.Candidate {
	index := make(map[string]int, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))

	for _, c := range candidates {
		if i, ok := index[c.Address]; ok {
			kept := &out[i]
			if !containsSource(kept.SeenOn, c.Source) {
				kept.SeenOn = append(kept.SeenOn, c.Source)
			}
			continue
		}
		if len(c.SeenOn) == 0 {
			c.SeenOn = []domain.Source{c.Source}
		}
		index[c.Address] = len(out)
		out = append(out, c)
	}
	return out
}

func containsSource(list []domain.Source, s domain.Source) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
