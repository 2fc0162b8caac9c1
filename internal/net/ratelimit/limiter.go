package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter provides per-vendor rate limiting using a token bucket per host.
// Vendor plans price in requests per second; one limiter instance is shared by
// every client talking to the same plan.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewLimiter creates a limiter handing out rps requests per second with the
// given burst per vendor.
func NewLimiter(rps float64, burst int) *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (l *Limiter) limiterFor(vendor string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[vendor]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[vendor]; ok {
		return lim
	}
	lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.limiters[vendor] = lim
	return lim
}

// Allow reports whether a request for the vendor may fire immediately.
func (l *Limiter) Allow(vendor string) bool {
	return l.limiterFor(vendor).Allow()
}

// Wait blocks until the vendor's bucket releases a token or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context, vendor string) error {
	return l.limiterFor(vendor).Wait(ctx)
}

// SetRPS retunes every vendor bucket, e.g. after a plan change.
func (l *Limiter) SetRPS(rps float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rps = rps
	for _, lim := range l.limiters {
		lim.SetLimit(rate.Limit(rps))
	}
}
