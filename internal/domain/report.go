package domain

import "time"

// StageOutcome records timing and counts for one pipeline stage within a cycle.
type StageOutcome struct {
	Name     string        `json:"name"`
	In       int           `json:"in"`
	Out      int           `json:"out"`
	Duration time.Duration `json:"duration"`
	Err      string        `json:"error,omitempty"`
	Fallback bool          `json:"fallback,omitempty"`
}

// Finalist couples a fully analyzed candidate with its score explanation.
type Finalist struct {
	Candidate  Candidate        `json:"candidate"`
	FinalScore float64          `json:"final_score"`
	Breakdown  ScoringBreakdown `json:"breakdown"`
	Conviction ConvictionLevel  `json:"conviction_level"`
}

// LedgerSnapshot is an immutable view of the cost ledger taken at cycle end.
type LedgerSnapshot struct {
	TokensProcessed    int64            `json:"tokens_processed"`
	BasicScoringUses   int64            `json:"basic_scoring_uses"`
	EnhancedScoringUses int64           `json:"enhanced_scoring_uses"`
	OHLCVCallsMade     int64            `json:"ohlcv_calls_made"`
	OHLCVCallsSaved    int64            `json:"ohlcv_calls_saved"`
	StageTokenCounts   map[string]int64 `json:"stage_token_counts"`
	CostSavingsPct     float64          `json:"cost_savings_percentage"` // [0,1]
	EstimatedCUSaved   float64          `json:"estimated_cu_saved"`
}

// CycleReport is the immutable snapshot produced at the end of every cycle,
// degraded or not.
type CycleReport struct {
	CycleID         string         `json:"cycle_id"`
	StartedAt       time.Time      `json:"started_at"`
	Duration        time.Duration  `json:"duration"`
	TotalCandidates int            `json:"total_candidates"`
	Stages          []StageOutcome `json:"stages"`
	Finalists       []Finalist     `json:"finalists"`
	Ledger          LedgerSnapshot `json:"ledger"`
	BreakerState    string         `json:"breaker_state"`
	Degraded        bool           `json:"degraded"`
}
