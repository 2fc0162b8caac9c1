package domain

import (
	"fmt"
	"time"
)

// Source identifies the discovery feed that produced a candidate.
type Source string

const (
	SourceTrending      Source = "trending-feed"
	SourceGraduated     Source = "graduated-feed"
	SourceBonding       Source = "bonding-feed"
	SourceCurveDetector Source = "curve-detector"
	SourceLiveLaunch    Source = "live-launch"
	SourceCachedCurve   Source = "cached-curve"
)

// TriageStage tracks how far a candidate has advanced through the funnel.
// Stages only advance; Advance ignores regressions.
type TriageStage int

const (
	StageDiscovered TriageStage = iota
	StageTriaged
	StageEnhanced
	StageValidated
	StageDeepAnalysis
)

func (s TriageStage) String() string {
	switch s {
	case StageDiscovered:
		return "discovered"
	case StageTriaged:
		return "triaged"
	case StageEnhanced:
		return "enhanced"
	case StageValidated:
		return "validated"
	case StageDeepAnalysis:
		return "deep_analysis"
	default:
		return "unknown"
	}
}

// Candidate is the mutable record that accumulates fields as it flows through
// the pipeline. It is keyed by Address (44-character base58 mint).
type Candidate struct {
	// Identity
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Source  Source `json:"source"`

	// SeenOn lists every feed that surfaced this address in the cycle. The
	// first entry matches Source; duplicates collapse into this list.
	SeenOn []Source `json:"seen_on,omitempty"`

	// Market snapshot
	PriceUSD     float64 `json:"price_usd"`
	MarketCapUSD float64 `json:"market_cap_usd"`
	LiquidityUSD float64 `json:"liquidity_usd"`

	Volume5m  float64 `json:"volume_5m"`
	Volume15m float64 `json:"volume_15m"`
	Volume30m float64 `json:"volume_30m"`
	Volume1h  float64 `json:"volume_1h"`
	Volume6h  float64 `json:"volume_6h"`
	Volume24h float64 `json:"volume_24h"`

	Trades5m  int `json:"trades_5m"`
	Trades15m int `json:"trades_15m"`
	Trades30m int `json:"trades_30m"`
	Trades1h  int `json:"trades_1h"`
	Trades6h  int `json:"trades_6h"`
	Trades24h int `json:"trades_24h"`

	PriceChange5m  float64 `json:"price_change_5m"`
	PriceChange15m float64 `json:"price_change_15m"`
	PriceChange30m float64 `json:"price_change_30m"`
	PriceChange1h  float64 `json:"price_change_1h"`
	PriceChange6h  float64 `json:"price_change_6h"`
	PriceChange24h float64 `json:"price_change_24h"`

	UniqueTraders24h int     `json:"unique_traders_24h"`
	HolderCount      int     `json:"holder_count"`
	SecurityScore    float64 `json:"security_score"`
	EarlyGemScore    float64 `json:"early_gem_score,omitempty"`

	// Bonding-curve lifecycle
	BondingCurveProgress float64   `json:"bonding_curve_progress_pct"` // 0-100
	GraduationThreshold  float64   `json:"graduation_threshold,omitempty"`
	HoursSinceGraduation float64   `json:"hours_since_graduation"`
	IsFreshGraduate      bool      `json:"is_fresh_graduate"`  // age <= 1h
	IsRecentGraduate     bool      `json:"is_recent_graduate"` // 1h < age <= 6h
	AgeMinutes           float64   `json:"age_minutes"`
	DiscoveredAt         time.Time `json:"discovered_at"`

	// Derived metrics (set by enrichment)
	AvgTradeSize         float64 `json:"avg_trade_size,omitempty"`
	LiquidityToMcapRatio float64 `json:"liquidity_to_mcap_ratio,omitempty"`
	DailyTurnoverRatio   float64 `json:"daily_turnover_ratio,omitempty"`

	// Pipeline metadata
	DiscoveryPriorityScore float64     `json:"discovery_priority_score"`
	EnhancedScore          float64     `json:"enhanced_score"`
	ValidationScore        float64     `json:"validation_score"`
	FinalScore             float64     `json:"final_score"`
	TriageStage            TriageStage `json:"triage_stage"`
	DeepAnalysisPhase      bool        `json:"deep_analysis_phase"`
	Enriched               bool        `json:"enriched"`
	EnhancementMethod      string      `json:"enhancement_method,omitempty"`

	VelocityConfidence *VelocityConfidence `json:"velocity_confidence,omitempty"`

	// Error annotations; the candidate stays eligible for alerting when these
	// are set, carrying the previous stage's score.
	TriageError  string `json:"triage_error,omitempty"`
	Stage3Error  string `json:"stage3_error,omitempty"`
	Stage4Error  string `json:"stage4_error,omitempty"`
	ScoringError string `json:"scoring_error,omitempty"`
}

// Advance moves the candidate forward to stage s. Regressions are ignored so
// the stage is monotone non-decreasing over the candidate's lifetime.
func (c *Candidate) Advance(s TriageStage) {
	if s > c.TriageStage {
		c.TriageStage = s
	}
}

// Age returns the candidate's age. AgeMinutes wins when set; graduated tokens
// fall back to the graduation timestamp.
func (c *Candidate) Age() time.Duration {
	if c.AgeMinutes > 0 {
		return time.Duration(c.AgeMinutes * float64(time.Minute))
	}
	if c.HoursSinceGraduation > 0 {
		return time.Duration(c.HoursSinceGraduation * float64(time.Hour))
	}
	return 0
}

// ValidAddress reports whether the address looks like a base58 Solana mint.
func (c *Candidate) ValidAddress() bool {
	if len(c.Address) < 32 || len(c.Address) > 44 {
		return false
	}
	for _, r := range c.Address {
		switch {
		case r >= '1' && r <= '9', r >= 'A' && r <= 'H', r >= 'J' && r <= 'N',
			r >= 'P' && r <= 'Z', r >= 'a' && r <= 'k', r >= 'm' && r <= 'z':
		default:
			return false
		}
	}
	return true
}

// RefreshAgeFlags recomputes the graduate flags from HoursSinceGraduation.
func (c *Candidate) RefreshAgeFlags() {
	c.IsFreshGraduate = c.HoursSinceGraduation > 0 && c.HoursSinceGraduation < 1.0
	c.IsRecentGraduate = c.HoursSinceGraduation >= 1.0 && c.HoursSinceGraduation <= 6.0
}

// ConvictionLevel names the strength of a finished score.
type ConvictionLevel string

const (
	ConvictionVeryHigh ConvictionLevel = "VERY_HIGH"
	ConvictionHigh     ConvictionLevel = "HIGH"
	ConvictionModerate ConvictionLevel = "MODERATE"
	ConvictionLow      ConvictionLevel = "LOW"
)

// ConvictionFor maps a final score to its conviction name.
func ConvictionFor(score float64) ConvictionLevel {
	switch {
	case score >= 80:
		return ConvictionVeryHigh
	case score >= 70:
		return ConvictionHigh
	case score >= 60:
		return ConvictionModerate
	default:
		return ConvictionLow
	}
}

// Candle is a single OHLCV bar.
type Candle struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	Time   int64   `json:"t"` // unix seconds
}

// Validate checks the candidate's structural invariants.
func (c *Candidate) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("candidate missing address")
	}
	if c.BondingCurveProgress < 0 || c.BondingCurveProgress > 100 {
		return fmt.Errorf("bonding curve progress %.2f out of [0,100]", c.BondingCurveProgress)
	}
	if c.HoursSinceGraduation < 0 {
		return fmt.Errorf("negative hours since graduation %.2f", c.HoursSinceGraduation)
	}
	return nil
}
