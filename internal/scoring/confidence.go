package scoring

import "github.com/solgems/gemscan/internal/domain"

// Timeframe buckets the confidence model counts coverage over.
var coverageFrames = []string{"5m", "15m", "30m", "1h", "6h", "24h"}

// frameSignal reports whether a timeframe carries any usable datapoint.
func frameSignal(c *domain.Candidate, frame string) bool {
	switch frame {
	case "5m":
		return c.Volume5m > 0 || c.Trades5m > 0 || c.PriceChange5m != 0
	case "15m":
		return c.Volume15m > 0 || c.Trades15m > 0 || c.PriceChange15m != 0
	case "30m":
		return c.Volume30m > 0 || c.Trades30m > 0 || c.PriceChange30m != 0
	case "1h":
		return c.Volume1h > 0 || c.Trades1h > 0 || c.PriceChange1h != 0
	case "6h":
		return c.Volume6h > 0 || c.Trades6h > 0 || c.PriceChange6h != 0
	case "24h":
		return c.Volume24h > 0 || c.Trades24h > 0 || c.PriceChange24h != 0
	}
	return false
}

// coverage returns the fraction of timeframes carrying data, the number of
// frames with signal, and whether any short frame (5m/15m/30m) has signal.
func coverage(c *domain.Candidate) (pct float64, frames int, shortSignal bool) {
	for _, f := range coverageFrames {
		if frameSignal(c, f) {
			frames++
			if f == "5m" || f == "15m" || f == "30m" {
				shortSignal = true
			}
		}
	}
	pct = float64(frames) / float64(len(coverageFrames)) * 100
	return pct, frames, shortSignal
}

// hasMeaningfulMomentum requires short-timeframe activity (5m or 15m present)
// AND at least two distinct timeframes with signal. A lone 5m datapoint does
// not qualify.
func hasMeaningfulMomentum(c *domain.Candidate) bool {
	if !frameSignal(c, "5m") && !frameSignal(c, "15m") {
		return false
	}
	_, frames, _ := coverage(c)
	return frames >= 2
}

// AssessConfidence derives the age-aware velocity confidence for a candidate.
// Token age drives the model: a 20-minute-old token with only 5m data is
// behaving normally for its age and is not punished for sparse coverage.
func AssessConfidence(c *domain.Candidate) domain.VelocityConfidence {
	ageMinutes := c.Age().Minutes()
	category := domain.CategorizeAge(ageMinutes)
	pct, frames, shortSignal := coverage(c)

	vc := domain.VelocityConfidence{
		CoveragePercentage: pct,
		AgeCategory:        category,
		AgeMinutes:         ageMinutes,
	}

	switch category {
	case domain.AgeUltraEarly:
		switch {
		case hasMeaningfulMomentum(c):
			vc.Level = domain.ConfidenceEarlyDetection
			vc.ThresholdAdjustment = 0.95
		case frames > 0 && !shortSignal:
			// Only long-term data on a brand-new token is suspicious.
			vc.Level = domain.ConfidenceLow
			vc.ThresholdAdjustment = 1.10
		case frames > 0:
			// Limited data, but normal for the age.
			vc.Level = domain.ConfidenceMedium
			vc.ThresholdAdjustment = 1.0
		default:
			vc.Level = domain.ConfidenceLow
			vc.ThresholdAdjustment = 1.10
		}
	case domain.AgeEarly:
		vc.Level, vc.ThresholdAdjustment = byCoverage(pct, 50, 33)
	case domain.AgeEstablished:
		vc.Level, vc.ThresholdAdjustment = byCoverage(pct, 67, 50)
	default: // MATURE
		switch {
		case pct >= 83:
			vc.Level, vc.ThresholdAdjustment = domain.ConfidenceHigh, 1.0
		case pct >= 67:
			vc.Level, vc.ThresholdAdjustment = domain.ConfidenceMedium, 1.0
		case pct >= 50:
			vc.Level, vc.ThresholdAdjustment = domain.ConfidenceLow, 1.10
		default:
			vc.Level, vc.ThresholdAdjustment = domain.ConfidenceVeryLow, 1.25
		}
	}

	vc.ConfidenceScore = confidenceScore(vc.Level, pct)
	return vc
}

// byCoverage maps coverage against HIGH/MEDIUM floors; below both is LOW.
func byCoverage(pct, high, medium float64) (domain.ConfidenceLevel, float64) {
	switch {
	case pct >= high:
		return domain.ConfidenceHigh, 1.0
	case pct >= medium:
		return domain.ConfidenceMedium, 1.0
	default:
		return domain.ConfidenceLow, 1.10
	}
}

// confidenceScore maps a level to [0,1], nudged by coverage within the band.
func confidenceScore(level domain.ConfidenceLevel, coveragePct float64) float64 {
	var base float64
	switch level {
	case domain.ConfidenceEarlyDetection:
		base = 0.85
	case domain.ConfidenceHigh:
		base = 0.90
	case domain.ConfidenceMedium:
		base = 0.65
	case domain.ConfidenceLow:
		base = 0.40
	case domain.ConfidenceVeryLow:
		base = 0.20
	default:
		base = 0.10
	}
	score := base + coveragePct/100*0.1
	return clamp01(score)
}
