package scoring

import "github.com/solgems/gemscan/internal/domain"

// Velocity component caps. The composite velocity score is the clamped sum of
// the three components and lives in [0,1].
const (
	maxVolumeAcceleration = 0.40
	maxMomentumCascade    = 0.35
	maxActivitySurge      = 0.25
)

// VelocityResult carries the composite velocity score with its components so
// the breakdown can attribute it.
type VelocityResult struct {
	Score              float64 `json:"score"` // [0,1]
	VolumeAcceleration float64 `json:"volume_acceleration"`
	MomentumCascade    float64 `json:"momentum_cascade"`
	ActivitySurge      float64 `json:"activity_surge"`
	AcceleratingFrames int     `json:"accelerating_frames"`
	PositiveFrames     int     `json:"positive_frames"`
}

// ComputeVelocity composes volume acceleration, momentum cascade and activity
// surge into a single 0-1 velocity score.
func ComputeVelocity(c *domain.Candidate) VelocityResult {
	r := VelocityResult{}
	r.VolumeAcceleration, r.AcceleratingFrames = volumeAcceleration(c)
	r.MomentumCascade, r.PositiveFrames = momentumCascade(c)
	r.ActivitySurge = activitySurge(c)

	r.Score = clamp01(r.VolumeAcceleration + r.MomentumCascade + r.ActivitySurge)
	return r
}

// volumeAcceleration compares projected short-window volume against the longer
// window it sits inside. A 5m window projecting to 2x the observed 1h volume
// means trading is speeding up.
func volumeAcceleration(c *domain.Candidate) (bonus float64, accelerating int) {
	pairs := []struct {
		short, long float64
		projection  float64 // short-window multiples that fill the long window
	}{
		{c.Volume5m, c.Volume1h, 12},
		{c.Volume1h, c.Volume6h, 6},
		{c.Volume6h, c.Volume24h, 4},
	}

	for _, p := range pairs {
		if p.short <= 0 || p.long <= 0 {
			continue
		}
		ratio := p.short * p.projection / p.long
		switch {
		case ratio >= 3.0:
			bonus += 0.15
		case ratio >= 2.0:
			bonus += 0.10
		case ratio >= 1.5:
			bonus += 0.05
		}
		if ratio >= 1.5 {
			accelerating++
		}
	}

	if accelerating >= 2 {
		bonus += 0.05 // consistency across timeframes
	}
	if bonus > maxVolumeAcceleration {
		bonus = maxVolumeAcceleration
	}
	return bonus, accelerating
}

// momentumCascade rewards price appreciation that holds across short
// timeframes rather than a single spike.
func momentumCascade(c *domain.Candidate) (bonus float64, positive int) {
	switch {
	case c.PriceChange5m >= 10:
		bonus += 0.12
	case c.PriceChange5m >= 5:
		bonus += 0.08
	case c.PriceChange5m >= 2:
		bonus += 0.04
	}

	mid := c.PriceChange15m
	if c.PriceChange30m > mid {
		mid = c.PriceChange30m
	}
	switch {
	case mid >= 15:
		bonus += 0.10
	case mid >= 8:
		bonus += 0.06
	case mid >= 3:
		bonus += 0.03
	}

	switch {
	case c.PriceChange1h >= 25:
		bonus += 0.08
	case c.PriceChange1h >= 10:
		bonus += 0.05
	case c.PriceChange1h >= 5:
		bonus += 0.03
	}

	for _, chg := range []float64{c.PriceChange5m, c.PriceChange15m, c.PriceChange30m, c.PriceChange1h} {
		if chg > 0 {
			positive++
		}
	}
	if positive >= 3 {
		bonus += 0.05
	}
	if bonus > maxMomentumCascade {
		bonus = maxMomentumCascade
	}
	return bonus, positive
}

// activitySurge rewards dense recent trading plus trader diversity.
func activitySurge(c *domain.Candidate) float64 {
	bonus := 0.0

	switch {
	case c.Trades5m >= 50:
		bonus += 0.10
	case c.Trades5m >= 20:
		bonus += 0.07
	case c.Trades5m >= 5:
		bonus += 0.03
	}

	switch {
	case c.Trades1h >= 500:
		bonus += 0.08
	case c.Trades1h >= 200:
		bonus += 0.05
	case c.Trades1h >= 50:
		bonus += 0.02
	}

	switch {
	case c.UniqueTraders24h >= 500:
		bonus += 0.07
	case c.UniqueTraders24h >= 100:
		bonus += 0.04
	case c.UniqueTraders24h >= 25:
		bonus += 0.02
	}

	if bonus > maxActivitySurge {
		bonus = maxActivitySurge
	}
	return bonus
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
