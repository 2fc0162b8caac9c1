package domain

// Section caps for the scoring breakdown. The kernel clamps each section so a
// single factor cannot dominate the composite.
const (
	MaxEarlyPlatformScore = 50.0
	MaxMomentumScore      = 38.0
	MaxSafetyScore        = 25.0
	MaxCrossPlatformBonus = 12.0
)

// RiskLevel names the downside assessment attached to a breakdown.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Interaction is one structured explanation of how two or more factors
// combined to move the score. The alert formatter renders these verbatim.
type Interaction struct {
	Explanation string   `json:"explanation"`
	ImpactPct   float64  `json:"impact_pct"` // signed percentage applied to the score
	Factors     []string `json:"factors"`
}

// InteractionAnalysis groups interactions by their effect.
type InteractionAnalysis struct {
	Dangers        []Interaction `json:"danger_interactions"`
	Amplifications []Interaction `json:"amplification_interactions"`
	Contradictions []Interaction `json:"contradictions"`
}

// SectionScore is one capped component of the composite score.
type SectionScore struct {
	Score   float64  `json:"score"`
	Max     float64  `json:"max"`
	Signals []string `json:"signals,omitempty"`
}

// RiskAssessment summarizes downside and trust for a scored candidate.
type RiskAssessment struct {
	RiskLevel       RiskLevel       `json:"risk_level"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
}

// ScoreComparison contrasts the naive linear sum with the interaction-aware
// corrected score.
type ScoreComparison struct {
	LinearScoreFlawed         float64 `json:"linear_score_flawed"`
	InteractionScoreCorrected float64 `json:"interaction_score_corrected"`
	MathematicalImprovement   float64 `json:"mathematical_improvement"`
}

// ScoringBreakdown is the full explanation emitted with a final score.
type ScoringBreakdown struct {
	EarlyPlatformAnalysis SectionScore        `json:"early_platform_analysis"`
	MomentumAnalysis      SectionScore        `json:"momentum_analysis"`
	SafetyValidation      SectionScore        `json:"safety_validation"`
	CrossPlatformBonus    SectionScore        `json:"cross_platform_bonus"`
	InteractionAnalysis   InteractionAnalysis `json:"interaction_analysis"`
	RiskAssessment        RiskAssessment      `json:"risk_assessment"`
	ScoreComparison       ScoreComparison     `json:"score_comparison"`
	VelocityScore         float64             `json:"velocity_score"` // [0,1] composite
	ScoringMode           string              `json:"scoring_mode"`   // "basic" or "enhanced"
}
