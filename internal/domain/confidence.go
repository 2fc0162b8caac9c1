package domain

// ConfidenceLevel is the age-aware label governing the multiplicative
// adjustment applied to a velocity-derived score.
type ConfidenceLevel string

const (
	ConfidenceEarlyDetection ConfidenceLevel = "EARLY_DETECTION"
	ConfidenceHigh           ConfidenceLevel = "HIGH"
	ConfidenceMedium         ConfidenceLevel = "MEDIUM"
	ConfidenceLow            ConfidenceLevel = "LOW"
	ConfidenceVeryLow        ConfidenceLevel = "VERY_LOW"
	ConfidenceError          ConfidenceLevel = "ERROR"
)

// AgeCategory buckets a token's age for the confidence model.
type AgeCategory string

const (
	AgeUltraEarly  AgeCategory = "ULTRA_EARLY"  // <= 30 min
	AgeEarly       AgeCategory = "EARLY"        // 30 min - 2 h
	AgeEstablished AgeCategory = "ESTABLISHED"  // 2 - 12 h
	AgeMature      AgeCategory = "MATURE"       // > 12 h
)

// VelocityConfidence captures how much the velocity score can be trusted given
// the token's age and timeframe coverage. ThresholdAdjustment is a multiplier
// on the alerting threshold: values below 1.0 reward early detection, values
// above 1.0 demand more evidence.
type VelocityConfidence struct {
	Level               ConfidenceLevel `json:"level"`
	ConfidenceScore     float64         `json:"confidence_score"`     // [0,1]
	CoveragePercentage  float64         `json:"coverage_percentage"`  // [0,100]
	ThresholdAdjustment float64         `json:"threshold_adjustment"`
	AgeCategory         AgeCategory     `json:"age_category"`
	AgeMinutes          float64         `json:"age_minutes"`
}

// ScoreMultiplier returns the final-score multiplier for a confidence level.
func (l ConfidenceLevel) ScoreMultiplier() float64 {
	switch l {
	case ConfidenceEarlyDetection:
		return 1.05
	case ConfidenceHigh:
		return 1.02
	case ConfidenceMedium:
		return 0.98
	case ConfidenceLow:
		return 0.95
	case ConfidenceVeryLow:
		return 0.90
	case ConfidenceError:
		return 0.85
	default:
		return 1.0
	}
}

// CategorizeAge buckets age in minutes into the confidence model's categories.
func CategorizeAge(ageMinutes float64) AgeCategory {
	switch {
	case ageMinutes <= 30:
		return AgeUltraEarly
	case ageMinutes <= 120:
		return AgeEarly
	case ageMinutes <= 720:
		return AgeEstablished
	default:
		return AgeMature
	}
}
