// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Limiter is a per-key token bucket with a positive refill rate. Rather
// than tracking a token count, each key stores the virtual arrival time
// of its next request (the GCRA formulation); a key is limited when that
// time has run too far ahead of the clock. Buckets start full. Safe for
// concurrent use.
type Limiter struct {
	mu   sync.Mutex
	next map[string]time.Time // virtual arrival time per key
	step time.Duration        // time credit one request costs
	lead time.Duration        // how far next may run ahead of now
	now  func() time.Time     // injectable clock for testing
}

// NewLimiter creates a limiter refilling rate tokens per second with the
// given burst capacity. rate must be positive.
func NewLimiter(rate float64, burst int) *Limiter {
	step := time.Duration(float64(time.Second) / rate)
	return &Limiter{
		next: make(map[string]time.Time),
		step: step,
		lead: time.Duration(burst-1) * step,
		now:  time.Now,
	}
}

// Allow takes one token from key's bucket. It reports false when the
// bucket is empty.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	at, ok := l.next[key]
	if !ok || at.Before(now) {
		at = now
	}
	if at.Sub(now) > l.lead {
		return false
	}
	l.next[key] = at.Add(l.step)
	return true
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates the per-tool limiters for the bnet MCP server.
// Sweeps draw orders of magnitude more samples per call than single
// estimates, so they get the tightest budget.
func NewToolLimiters() ToolLimiters {
	return ToolLimiters{
		"bnet_infer":   NewLimiter(30.0/60.0, 5), // 30/minute, burst 5
		"bnet_network": NewLimiter(1.0, 10),      // 60/minute, burst 10
		"bnet_sweep":   NewLimiter(6.0/60.0, 2),  // 6/minute, burst 2
	}
}

// Check takes a token for the named tool. It returns nil when the call
// may proceed and an error when the tool's bucket is empty. Tools
// without a configured limiter are never limited.
func (tl ToolLimiters) Check(tool string) error {
	limiter, ok := tl[tool]
	if !ok {
		return nil
	}

	if !limiter.Allow(tool) {
		return fmt.Errorf("%s rate limit exceeded, retry shortly", tool)
	}

	return nil
}
