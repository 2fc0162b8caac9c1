package providers

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerManager wraps every vendor client in its own gobreaker. This guards
// the HTTP edge per vendor; the pipeline-wide breaker in internal/budget
// stays separate because its failure count drives stage sizing.
type BreakerManager struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// BreakerConfig tunes one vendor's breaker.
type BreakerConfig struct {
	Name                string
	MaxRequests         uint32
	Interval            time.Duration
	Timeout             time.Duration
	ConsecutiveFailures uint32
	ErrorRateThreshold  float64
}

// NewBreakerManager creates an empty manager.
func NewBreakerManager() *BreakerManager {
	return &BreakerManager{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

// Register installs a breaker for the named vendor.
func (m *BreakerManager) Register(vendor string, config BreakerConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()

	settings := gobreaker.Settings{
		Name:        config.Name,
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= config.ConsecutiveFailures {
				return true
			}
			if counts.Requests >= 10 && config.ErrorRateThreshold > 0 {
				rate := float64(counts.TotalFailures) / float64(counts.Requests) * 100
				return rate >= config.ErrorRateThreshold
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("vendor", vendor).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("vendor circuit breaker state change")
		},
	}
	m.breakers[vendor] = gobreaker.NewCircuitBreaker(settings)
}

// Execute runs fn through the vendor's breaker.
func (m *BreakerManager) Execute(vendor string, fn func() (interface{}, error)) (interface{}, error) {
	m.mu.RLock()
	breaker, ok := m.breakers[vendor]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no circuit breaker registered for vendor %q", vendor)
	}
	return breaker.Execute(fn)
}

// State returns the vendor breaker's state string, "unregistered" when absent.
func (m *BreakerManager) State(vendor string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	breaker, ok := m.breakers[vendor]
	if !ok {
		return "unregistered"
	}
	return breaker.State().String()
}

// DefaultBreakerConfigs returns per-vendor defaults tuned to each plan's
// tolerance for failures.
func DefaultBreakerConfigs() map[string]BreakerConfig {
	return map[string]BreakerConfig{
		"birdeye": {
			Name:                "Birdeye",
			MaxRequests:         3,
			Interval:            60 * time.Second,
			Timeout:             45 * time.Second,
			ConsecutiveFailures: 3,
			ErrorRateThreshold:  30,
		},
		"moralis": {
			Name:                "Moralis",
			MaxRequests:         2,
			Interval:            60 * time.Second,
			Timeout:             90 * time.Second,
			ConsecutiveFailures: 2,
			ErrorRateThreshold:  20,
		},
		"dexscreener": {
			Name:                "DexScreener",
			MaxRequests:         5,
			Interval:            60 * time.Second,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 4,
			ErrorRateThreshold:  40,
		},
	}
}
