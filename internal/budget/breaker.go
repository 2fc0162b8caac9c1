package budget

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a request.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // requests allowed
	StateOpen                  // requests blocked until recovery timeout
	StateHalfOpen              // exactly one trial request allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config tunes the breaker shared across pipeline stages.
type Config struct {
	FailureThreshold int           // consecutive failures to open (default 3)
	RecoveryTimeout  time.Duration // wait before a half-open trial (default 60s)
}

// DefaultConfig returns the breaker defaults used by the detector.
func DefaultConfig() Config {
	return Config{FailureThreshold: 3, RecoveryTimeout: 60 * time.Second}
}

// Breaker is the pipeline-wide circuit breaker. Unlike a per-call breaker it
// exposes its failure count: enrichment sizes its OHLCV semaphore and Stage 3
// sizes its Stage-4 hand-off from it.
type Breaker struct {
	mu              sync.RWMutex
	config          Config
	state           State
	failures        int
	lastFailureTime time.Time
	trialInFlight   bool

	// clock is swappable for tests.
	clock func() time.Time
}

// NewBreaker creates a breaker in the closed state.
func NewBreaker(config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 3
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	return &Breaker{config: config, state: StateClosed, clock: time.Now}
}

// Allow reports whether a request may proceed. In the open state it transitions
// to half-open once the recovery timeout has elapsed and admits exactly one
// trial; further callers are rejected until that trial reports its outcome.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.clock().Sub(b.lastFailureTime) >= b.config.RecoveryTimeout {
			b.state = StateHalfOpen
			b.trialInFlight = true
			return true
		}
		return false
	case StateHalfOpen:
		if b.trialInFlight {
			return false
		}
		b.trialInFlight = true
		return true
	}
	return false
}

// Update records the outcome of a batch. Any success from any stage resets the
// failure count and closes the circuit; a failure increments the count and
// opens the circuit at the threshold.
func (b *Breaker) Update(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false

	if !failed {
		b.failures = 0
		b.state = StateClosed
		return
	}

	b.failures++
	b.lastFailureTime = b.clock()
	if b.state == StateHalfOpen || b.failures >= b.config.FailureThreshold {
		b.state = StateOpen
	}
}

// State returns the current state without consuming a half-open trial.
func (b *Breaker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state == StateOpen && b.clock().Sub(b.lastFailureTime) >= b.config.RecoveryTimeout {
		return StateHalfOpen
	}
	return b.state
}

// FailureCount returns the consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.failures
}

// OHLCVConcurrency sizes the Stage-4 OHLCV semaphore from the failure count:
// max(2, 10 - failures*2), capped at maxConcurrency when positive.
func (b *Breaker) OHLCVConcurrency(maxConcurrency int) int {
	n := 10 - b.FailureCount()*2
	if n < 2 {
		n = 2
	}
	if maxConcurrency > 0 && n > maxConcurrency {
		n = maxConcurrency
	}
	return n
}

// MaxStage4 returns how many finalists Stage 3 may hand to Stage 4:
// max(5, 10 - failures*2).
func (b *Breaker) MaxStage4() int {
	n := 10 - b.FailureCount()*2
	if n < 5 {
		n = 5
	}
	return n
}
