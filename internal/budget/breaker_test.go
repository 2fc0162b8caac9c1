package budget

import (
	"testing"
	"time"
)

func newTestBreaker(threshold int, recovery time.Duration) (*Breaker, *time.Time) {
	b := NewBreaker(Config{FailureThreshold: threshold, RecoveryTimeout: recovery})
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	b.clock = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.Update(true)
	b.Update(true)
	if b.State() != StateClosed {
		t.Fatalf("expected closed after 2 failures, got %s", b.State())
	}

	b.Update(true)
	if b.State() != StateOpen {
		t.Fatalf("expected open after 3 failures, got %s", b.State())
	}
	if b.Allow() {
		t.Fatal("open breaker must reject requests")
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.Update(true)
	b.Update(true)
	b.Update(false)
	if b.FailureCount() != 0 {
		t.Fatalf("expected failure count reset, got %d", b.FailureCount())
	}

	// The count starts over; two more failures must not open the circuit.
	b.Update(true)
	b.Update(true)
	if b.State() != StateClosed {
		t.Fatalf("expected closed, got %s", b.State())
	}
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)

	b.Update(true)
	if b.Allow() {
		t.Fatal("open breaker must reject before recovery timeout")
	}

	*now = now.Add(61 * time.Second)
	if !b.Allow() {
		t.Fatal("expected a half-open trial after recovery timeout")
	}
	if b.Allow() {
		t.Fatal("only one trial may be in flight")
	}

	// A successful trial closes the circuit.
	b.Update(false)
	if b.State() != StateClosed {
		t.Fatalf("expected closed after successful trial, got %s", b.State())
	}
	if !b.Allow() {
		t.Fatal("closed breaker must allow requests")
	}
}

func TestBreakerFailedTrialReopens(t *testing.T) {
	b, now := newTestBreaker(1, time.Minute)

	b.Update(true)
	*now = now.Add(2 * time.Minute)
	if !b.Allow() {
		t.Fatal("expected a half-open trial")
	}

	b.Update(true)
	if b.Allow() {
		t.Fatal("failed trial must reopen the circuit")
	}
}

func TestOHLCVConcurrencyShrinksWithFailures(t *testing.T) {
	b, _ := newTestBreaker(10, time.Minute)

	cases := []struct {
		failures int
		want     int
	}{
		{0, 10},
		{1, 8},
		{2, 6},
		{3, 4},
		{4, 2},
		{5, 2}, // floor
	}
	for _, tc := range cases {
		b.failures = tc.failures
		if got := b.OHLCVConcurrency(0); got != tc.want {
			t.Errorf("failures=%d: concurrency = %d, want %d", tc.failures, got, tc.want)
		}
	}

	b.failures = 0
	if got := b.OHLCVConcurrency(4); got != 4 {
		t.Errorf("cap not applied: got %d, want 4", got)
	}
}

func TestMaxStage4Floor(t *testing.T) {
	b, _ := newTestBreaker(10, time.Minute)

	b.failures = 0
	if got := b.MaxStage4(); got != 10 {
		t.Errorf("healthy MaxStage4 = %d, want 10", got)
	}
	b.failures = 2
	if got := b.MaxStage4(); got != 6 {
		t.Errorf("MaxStage4 with 2 failures = %d, want 6", got)
	}
	b.failures = 4
	if got := b.MaxStage4(); got != 5 {
		t.Errorf("MaxStage4 floor = %d, want 5", got)
	}
}
