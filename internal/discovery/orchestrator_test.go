package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgems/gemscan/internal/domain"
)

type stubSource struct {
	name       string
	candidates []domain.Candidate
	err        error
	delay      time.Duration
	timeout    time.Duration
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Discover(ctx context.Context) ([]domain.Candidate, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.candidates, s.err
}

func (s *stubSource) Timeout() time.Duration { return s.timeout }

func TestDiscoverMergesAllSources(t *testing.T) {
	o := NewOrchestrator([]Source{
		&stubSource{name: "a", candidates: []domain.Candidate{{Address: "x", Source: domain.SourceTrending}}},
		&stubSource{name: "b", candidates: []domain.Candidate{{Address: "y", Source: domain.SourceGraduated}}},
	}, Config{})

	got := o.Discover(context.Background())
	assert.Len(t, got, 2)
	for _, c := range got {
		assert.False(t, c.DiscoveredAt.IsZero(), "orchestrator stamps discovery time")
		assert.NotEmpty(t, c.SeenOn)
	}
}

func TestDiscoverSourceFailureContributesNothing(t *testing.T) {
	o := NewOrchestrator([]Source{
		&stubSource{name: "ok", candidates: []domain.Candidate{{Address: "x", Source: domain.SourceTrending}}},
		&stubSource{name: "down", err: errors.New("feed unreachable")},
	}, Config{})

	got := o.Discover(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].Address)
}

func TestDiscoverTimeoutTriggersFallback(t *testing.T) {
	slow := &stubSource{name: "curve", delay: 200 * time.Millisecond, timeout: 20 * time.Millisecond}
	cached := &stubSource{name: "cached", candidates: []domain.Candidate{
		{Address: "c1", Source: domain.SourceCachedCurve, SeenOn: []domain.Source{domain.SourceCachedCurve}},
	}}

	o := NewOrchestrator([]Source{slow}, Config{})
	o.SetFallback("curve", cached)

	got := o.Discover(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, domain.SourceCachedCurve, got[0].Source)
}

func TestDiscoverSortsNewestFirst(t *testing.T) {
	now := time.Now()
	o := NewOrchestrator([]Source{
		&stubSource{name: "a", candidates: []domain.Candidate{
			{Address: "old", Source: domain.SourceTrending, DiscoveredAt: now.Add(-time.Hour)},
			{Address: "new", Source: domain.SourceTrending, DiscoveredAt: now},
		}},
	}, Config{})

	got := o.Discover(context.Background())
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].Address)
}

func TestDeduplicateKeepsFirstAndAccumulatesSources(t *testing.T) {
	in := []domain.Candidate{
		{Address: "x", Source: domain.SourceTrending, MarketCapUSD: 100},
		{Address: "x", Source: domain.SourceGraduated, MarketCapUSD: 999},
		{Address: "x", Source: domain.SourceTrending}, // same source twice
		{Address: "y", Source: domain.SourceBonding},
	}

	out := Deduplicate(in)
	require.Len(t, out, 2)

	// First occurrence wins; later sightings only extend SeenOn.
	assert.Equal(t, 100.0, out[0].MarketCapUSD)
	assert.Equal(t, []domain.Source{domain.SourceTrending, domain.SourceGraduated}, out[0].SeenOn)
	assert.Equal(t, []domain.Source{domain.SourceBonding}, out[1].SeenOn)
}

func TestDeduplicateEmpty(t *testing.T) {
	assert.Empty(t, Deduplicate(nil))
}
