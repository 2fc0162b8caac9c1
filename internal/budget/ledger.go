package budget

import (
	"sync"

	"github.com/solgems/gemscan/internal/domain"
)

// Ledger tracks paid-API consumption across the process lifetime. Counters are
// monotonic and mutated under a single mutex; snapshots feed cycle reports.
type Ledger struct {
	mu sync.Mutex

	tokensProcessed     int64
	basicScoringUses    int64
	enhancedScoringUses int64
	ohlcvCallsMade      int64
	ohlcvCallsSaved     int64
	estimatedCUSaved    float64
	stageTokenCounts    map[string]int64
}

// NewLedger creates an empty cost ledger.
func NewLedger() *Ledger {
	return &Ledger{stageTokenCounts: make(map[string]int64)}
}

// RecordTokens counts tokens entering the pipeline.
func (l *Ledger) RecordTokens(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokensProcessed += int64(n)
}

// RecordStage counts tokens surviving a named stage.
func (l *Ledger) RecordStage(stage string, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stageTokenCounts[stage] += int64(n)
}

// RecordBasicScoring counts a basic velocity-scoring use.
func (l *Ledger) RecordBasicScoring() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.basicScoringUses++
}

// RecordEnhancedScoring counts an enhanced OHLCV-scoring use.
func (l *Ledger) RecordEnhancedScoring() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enhancedScoringUses++
}

// RecordOHLCVCalls counts OHLCV requests actually issued.
func (l *Ledger) RecordOHLCVCalls(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ohlcvCallsMade += int64(n)
}

// RecordOHLCVSaved counts OHLCV requests avoided by early filtering. Tokens
// dropped before Stage 4 would each have cost one call per timeframe.
func (l *Ledger) RecordOHLCVSaved(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ohlcvCallsSaved += int64(n)
}

// RecordCUSaved accumulates vendor cost units saved by batch endpoints.
func (l *Ledger) RecordCUSaved(cu float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.estimatedCUSaved += cu
}

// Snapshot returns an immutable copy of the counters. The derived savings
// percentage is saved/(saved+made), zero when nothing has been counted.
func (l *Ledger) Snapshot() domain.LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[string]int64, len(l.stageTokenCounts))
	for k, v := range l.stageTokenCounts {
		counts[k] = v
	}

	var savings float64
	if total := l.ohlcvCallsSaved + l.ohlcvCallsMade; total > 0 {
		savings = float64(l.ohlcvCallsSaved) / float64(total)
	}

	return domain.LedgerSnapshot{
		TokensProcessed:     l.tokensProcessed,
		BasicScoringUses:    l.basicScoringUses,
		EnhancedScoringUses: l.enhancedScoringUses,
		OHLCVCallsMade:      l.ohlcvCallsMade,
		OHLCVCallsSaved:     l.ohlcvCallsSaved,
		StageTokenCounts:    counts,
		CostSavingsPct:      savings,
		EstimatedCUSaved:    l.estimatedCUSaved,
	}
}
