package scoring

import (
	"testing"

	"github.com/solgems/gemscan/internal/domain"
)

func TestVelocityZeroDataScoresZero(t *testing.T) {
	r := ComputeVelocity(&domain.Candidate{})
	if r.Score != 0 {
		t.Fatalf("empty candidate velocity = %v, want 0", r.Score)
	}
}

func TestVolumeAccelerationTiers(t *testing.T) {
	// 5m volume of 1000 projects to 12000/h against 4000 observed: ratio 3.0.
	c := &domain.Candidate{Volume5m: 1000, Volume1h: 4000}
	r := ComputeVelocity(c)
	if r.VolumeAcceleration != 0.15 {
		t.Errorf("ratio 3.0 acceleration = %v, want 0.15", r.VolumeAcceleration)
	}
	if r.AcceleratingFrames != 1 {
		t.Errorf("accelerating frames = %d, want 1", r.AcceleratingFrames)
	}

	// Ratio exactly 2.0 lands in the middle tier.
	c = &domain.Candidate{Volume5m: 1000, Volume1h: 6000}
	if r := ComputeVelocity(c); r.VolumeAcceleration != 0.10 {
		t.Errorf("ratio 2.0 acceleration = %v, want 0.10", r.VolumeAcceleration)
	}

	// Decelerating volume earns nothing.
	c = &domain.Candidate{Volume5m: 100, Volume1h: 6000}
	if r := ComputeVelocity(c); r.VolumeAcceleration != 0 {
		t.Errorf("decelerating acceleration = %v, want 0", r.VolumeAcceleration)
	}
}

func TestVolumeAccelerationConsistencyBonusAndCap(t *testing.T) {
	// All three pairs at ratio >= 3: 3*0.15 + 0.05 consistency = 0.50, capped.
	c := &domain.Candidate{
		Volume5m:  1000,  // 12000 vs 4000 -> 3.0
		Volume1h:  4000,  // 24000 vs 8000 -> 3.0
		Volume6h:  8000,  // 32000 vs 10000 -> 3.2
		Volume24h: 10000,
	}
	r := ComputeVelocity(c)
	if r.VolumeAcceleration != maxVolumeAcceleration {
		t.Fatalf("acceleration = %v, want cap %v", r.VolumeAcceleration, maxVolumeAcceleration)
	}
	if r.AcceleratingFrames != 3 {
		t.Fatalf("accelerating frames = %d, want 3", r.AcceleratingFrames)
	}
}

func TestMomentumCascade(t *testing.T) {
	c := &domain.Candidate{
		PriceChange5m:  12, // 0.12
		PriceChange15m: 16, // mid 16 -> 0.10
		PriceChange30m: 4,
		PriceChange1h:  30, // 0.08
	}
	r := ComputeVelocity(c)
	// 0.12+0.10+0.08+0.05 (4 positive frames) = 0.35, exactly the cap.
	if r.MomentumCascade != maxMomentumCascade {
		t.Fatalf("cascade = %v, want %v", r.MomentumCascade, maxMomentumCascade)
	}
	if r.PositiveFrames != 4 {
		t.Fatalf("positive frames = %d, want 4", r.PositiveFrames)
	}
}

func TestMomentumCascadeUsesBestMidFrame(t *testing.T) {
	a := &domain.Candidate{PriceChange15m: 9}
	b := &domain.Candidate{PriceChange30m: 9}
	if ra, rb := ComputeVelocity(a), ComputeVelocity(b); ra.MomentumCascade != rb.MomentumCascade {
		t.Fatalf("15m and 30m mid frames must be interchangeable: %v vs %v",
			ra.MomentumCascade, rb.MomentumCascade)
	}
}

func TestActivitySurgeCap(t *testing.T) {
	c := &domain.Candidate{Trades5m: 100, Trades1h: 600, UniqueTraders24h: 600}
	r := ComputeVelocity(c)
	if r.ActivitySurge != maxActivitySurge {
		t.Fatalf("surge = %v, want cap %v", r.ActivitySurge, maxActivitySurge)
	}
}

func TestVelocityScoreBounded(t *testing.T) {
	c := &domain.Candidate{
		Volume5m: 1000, Volume1h: 4000, Volume6h: 8000, Volume24h: 10000,
		PriceChange5m: 50, PriceChange15m: 50, PriceChange30m: 50, PriceChange1h: 50,
		Trades5m: 1000, Trades1h: 1000, UniqueTraders24h: 1000,
	}
	r := ComputeVelocity(c)
	if r.Score < 0 || r.Score > 1 {
		t.Fatalf("velocity score out of [0,1]: %v", r.Score)
	}
	want := maxVolumeAcceleration + maxMomentumCascade + maxActivitySurge
	if r.Score != want {
		t.Fatalf("maxed velocity = %v, want %v", r.Score, want)
	}
}
