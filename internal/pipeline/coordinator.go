package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/solgems/gemscan/internal/budget"
	"github.com/solgems/gemscan/internal/discovery"
	"github.com/solgems/gemscan/internal/domain"
)

// Fallback penalties, keyed by the stage whose score stands in for the final
// score. Using Stage-3 validation scores (Stage 4 failed) costs x0.8; using
// Stage-2 enhanced scores (Stage 3 failed) costs x0.7; falling all the way
// back to triage scores costs x0.6.
const (
	penaltyStage3Scores = 0.8
	penaltyStage2Scores = 0.7
	penaltyStage1Scores = 0.6
	fallbackTopK        = 10
)

// Coordinator runs one full cycle: discovery through Stage 4, with per-stage
// guards. A cycle always completes and emits a report, even when degraded.
type Coordinator struct {
	orchestrator *discovery.Orchestrator
	triage       *Triage
	enhanced     *EnhancedFilter
	validator    *MarketValidator
	analyzer     *OHLCVAnalyzer
	breaker      *budget.Breaker
	ledger       *budget.Ledger
}

// NewCoordinator wires the cycle coordinator.
func NewCoordinator(orchestrator *discovery.Orchestrator, triage *Triage, enhanced *EnhancedFilter,
	validator *MarketValidator, analyzer *OHLCVAnalyzer, breaker *budget.Breaker, ledger *budget.Ledger) *Coordinator {
	return &Coordinator{
		orchestrator: orchestrator,
		triage:       triage,
		enhanced:     enhanced,
		validator:    validator,
		analyzer:     analyzer,
		breaker:      breaker,
		ledger:       ledger,
	}
}

// RunCycle executes discovery and the four filter stages sequentially. Stage
// boundaries are strict: a stage only ever observes its predecessor's
// completed output.
func (co *Coordinator) RunCycle(ctx context.Context) *domain.CycleReport {
	start := time.Now()
	report := &domain.CycleReport{
		CycleID:   uuid.NewString(),
		StartedAt: start,
	}

	log.Info().Str("cycle_id", report.CycleID).Msg("cycle starting")

	// C1: discovery
	discoveryStart := time.Now()
	candidates := co.orchestrator.Discover(ctx)
	report.TotalCandidates = len(candidates)
	if co.ledger != nil {
		co.ledger.RecordTokens(len(candidates))
	}
	report.Stages = append(report.Stages, domain.StageOutcome{
		Name: "discovery", In: len(candidates), Out: len(candidates),
		Duration: time.Since(discoveryStart),
	})

	// Stage 1: triage
	stage1, outcome := guardStage("stage1_triage", len(candidates), func() ([]domain.Candidate, error) {
		return co.triage.Run(candidates)
	})
	report.Stages = append(report.Stages, outcome)
	if outcome.Err != "" {
		stage1 = nil // triage has nothing upstream to fall back to
	}

	// Stage 2: enhanced filter
	stage2, outcome := guardStage("stage2_enhanced", len(stage1), func() ([]domain.Candidate, error) {
		return co.enhanced.Run(ctx, stage1)
	})
	if outcome.Err != "" {
		report.Degraded = true
		report.Finalists = fallbackFinalists(stage1, "stage2", penaltyStage1Scores,
			func(c domain.Candidate) float64 { return c.DiscoveryPriorityScore })
		outcome.Fallback = true
		report.Stages = append(report.Stages, outcome)
		return co.finishCycle(report, start)
	}
	report.Stages = append(report.Stages, outcome)

	// Stage 3: market validation
	stage3, outcome := guardStage("stage3_validated", len(stage2), func() ([]domain.Candidate, error) {
		return co.validator.Run(ctx, stage2)
	})
	if outcome.Err != "" {
		report.Degraded = true
		report.Finalists = fallbackFinalists(stage2, "stage3", penaltyStage2Scores,
			func(c domain.Candidate) float64 { return c.EnhancedScore })
		outcome.Fallback = true
		report.Stages = append(report.Stages, outcome)
		return co.finishCycle(report, start)
	}
	report.Stages = append(report.Stages, outcome)

	// OHLCV calls avoided by the funnel: every candidate dropped before
	// Stage 4 would have cost one call per timeframe.
	if co.ledger != nil && len(candidates) > len(stage3) {
		co.ledger.RecordOHLCVSaved((len(candidates) - len(stage3)) * len(stage4Timeframes))
	}

	// Stage 4: OHLCV final analysis
	stage4Start := time.Now()
	finalists, err := co.runStage4(ctx, stage3)
	outcome = domain.StageOutcome{
		Name: "stage4_final", In: len(stage3), Out: len(finalists),
		Duration: time.Since(stage4Start),
	}
	if err != nil {
		outcome.Err = err.Error()
		outcome.Fallback = true
		report.Degraded = true
		report.Finalists = fallbackFinalists(stage3, "stage4", penaltyStage3Scores,
			func(c domain.Candidate) float64 { return c.ValidationScore })
	} else {
		report.Finalists = finalists
	}
	report.Stages = append(report.Stages, outcome)

	return co.finishCycle(report, start)
}

func (co *Coordinator) runStage4(ctx context.Context, stage3 []domain.Candidate) (finalists []domain.Finalist, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage4 panic: %v", r)
		}
	}()
	return co.analyzer.Run(ctx, stage3)
}

func (co *Coordinator) finishCycle(report *domain.CycleReport, start time.Time) *domain.CycleReport {
	report.Duration = time.Since(start)
	if co.ledger != nil {
		report.Ledger = co.ledger.Snapshot()
	}
	if co.breaker != nil {
		report.BreakerState = co.breaker.State().String()
	}

	log.Info().
		Str("cycle_id", report.CycleID).
		Int("candidates", report.TotalCandidates).
		Int("finalists", len(report.Finalists)).
		Bool("degraded", report.Degraded).
		Dur("took", report.Duration).
		Float64("cost_savings_pct", report.Ledger.CostSavingsPct*100).
		Msg("cycle complete")

	return report
}

// guardStage runs one stage, converting panics into stage errors so the
// coordinator can fall back instead of aborting the cycle.
func guardStage(name string, in int, fn func() ([]domain.Candidate, error)) (out []domain.Candidate, outcome domain.StageOutcome) {
	start := time.Now()
	outcome = domain.StageOutcome{Name: name, In: in}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			outcome.Err = fmt.Sprintf("%s panic: %v", name, r)
			outcome.Duration = time.Since(start)
			log.Error().Str("stage", name).Str("error", outcome.Err).Msg("stage failed wholesale")
		}
	}()

	out, err := fn()
	outcome.Out = len(out)
	outcome.Duration = time.Since(start)
	if err != nil {
		outcome.Err = err.Error()
		log.Error().Str("stage", name).Err(err).Msg("stage failed wholesale")
	}
	return out, outcome
}

// fallbackFinalists produces a best-effort finalist list from the previous
// stage's output: top-k by that stage's score, penalized, each annotated with
// the failing stage's error marker.
func fallbackFinalists(prev []domain.Candidate, failedStage string, penalty float64, scoreOf func(domain.Candidate) float64) []domain.Finalist {
	sorted := make([]domain.Candidate, len(prev))
	copy(sorted, prev)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scoreOf(sorted[i]) > scoreOf(sorted[j])
	})
	if len(sorted) > fallbackTopK {
		sorted = sorted[:fallbackTopK]
	}

	finalists := make([]domain.Finalist, 0, len(sorted))
	for _, c := range sorted {
		marker := failedStage + "_failed"
		switch failedStage {
		case "stage3":
			c.Stage3Error = marker
		case "stage4":
			c.Stage4Error = marker
		default:
			c.TriageError = marker
		}
		c.FinalScore = scoreOf(c) * penalty
		finalists = append(finalists, domain.Finalist{
			Candidate:  c,
			FinalScore: c.FinalScore,
			Breakdown: domain.ScoringBreakdown{
				ScoringMode: "fallback",
				RiskAssessment: domain.RiskAssessment{
					RiskLevel:       domain.RiskHigh,
					ConfidenceLevel: domain.ConfidenceError,
				},
			},
			Conviction: domain.ConvictionFor(c.FinalScore),
		})
	}
	return finalists
}
