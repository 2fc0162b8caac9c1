package alerts

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/domain"
)

// Emitter delivers one alert to a downstream channel (Telegram formatter,
// console, webhook). Emitters receive the breakdown verbatim.
type Emitter interface {
	Emit(ctx context.Context, finalist domain.Finalist) error
}

// Registry remembers prior alerts so the same address is not re-alerted
// within the dedupe window.
type Registry interface {
	WasAlerted(ctx context.Context, address string, within time.Duration) (bool, error)
	RecordAlert(ctx context.Context, address string, score float64, conviction string) error
}

// Dispatcher filters cycle finalists against the alerting threshold and the
// registry, then fans out to every emitter. The threshold is adjusted per
// candidate by the age-aware confidence multiplier: early detections alert a
// touch sooner, stale data demands more.
type Dispatcher struct {
	threshold    float64
	dedupeWindow time.Duration
	registry     Registry
	emitters     []Emitter
}

// NewDispatcher creates a dispatcher. registry may be nil to disable dedupe.
func NewDispatcher(threshold float64, dedupeWindow time.Duration, registry Registry, emitters ...Emitter) *Dispatcher {
	return &Dispatcher{
		threshold:    threshold,
		dedupeWindow: dedupeWindow,
		registry:     registry,
		emitters:     emitters,
	}
}

// Dispatch evaluates every finalist of a cycle. Per-finalist failures are
// absorbed; alerting must never fail a cycle.
func (d *Dispatcher) Dispatch(ctx context.Context, report *domain.CycleReport) int {
	sent := 0
	for _, f := range report.Finalists {
		threshold := d.threshold
		if vc := f.Candidate.VelocityConfidence; vc != nil && vc.ThresholdAdjustment > 0 {
			threshold *= vc.ThresholdAdjustment
		}
		if f.FinalScore < threshold {
			continue
		}

		if d.registry != nil {
			seen, err := d.registry.WasAlerted(ctx, f.Candidate.Address, d.dedupeWindow)
			if err != nil {
				log.Warn().Err(err).Str("address", f.Candidate.Address).Msg("alert registry lookup failed, alerting anyway")
			} else if seen {
				log.Debug().Str("address", f.Candidate.Address).Msg("suppressing duplicate alert")
				continue
			}
		}

		for _, e := range d.emitters {
			if err := e.Emit(ctx, f); err != nil {
				log.Error().Err(err).Str("address", f.Candidate.Address).Msg("alert emission failed")
			}
		}
		sent++

		if d.registry != nil {
			if err := d.registry.RecordAlert(ctx, f.Candidate.Address, f.FinalScore, string(f.Conviction)); err != nil {
				log.Warn().Err(err).Str("address", f.Candidate.Address).Msg("failed to record alert")
			}
		}
	}

	if sent > 0 {
		log.Info().Int("alerts", sent).Str("cycle_id", report.CycleID).Msg("alerts dispatched")
	}
	return sent
}

// LogEmitter renders alerts into the structured log. It is the default
// emitter when no external channel is configured.
type LogEmitter struct{}

// Emit logs the alert with its conviction and headline factors.
func (LogEmitter) Emit(ctx context.Context, f domain.Finalist) error {
	c := f.Candidate
	log.Info().
		Str("address", c.Address).
		Str("symbol", c.Symbol).
		Str("source", string(c.Source)).
		Float64("final_score", f.FinalScore).
		Str("conviction", string(f.Conviction)).
		Str("risk", string(f.Breakdown.RiskAssessment.RiskLevel)).
		Float64("market_cap", c.MarketCapUSD).
		Float64("liquidity", c.LiquidityUSD).
		Int("amplifications", len(f.Breakdown.InteractionAnalysis.Amplifications)).
		Int("dangers", len(f.Breakdown.InteractionAnalysis.Dangers)).
		Msg("EARLY GEM ALERT")
	return nil
}
