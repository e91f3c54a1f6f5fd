package security

import (
	"errors"
	"sync"
	"time"
)

// RateLimiterService is the registry key of the shared *RateLimiter.
const RateLimiterService = "security.ratelimiter"

// ErrRateLimited is returned when a request exceeds the rate limit.
var ErrRateLimited = errors.New("rate limit exceeded")

// Rate-limited operation kinds.
const (
	KindTurn    = "turn"
	KindIngest  = "ingest"
	KindSummary = "summary"
)

// RateLimitConfig holds per-minute limits for each operation kind.
// Limits apply per key (the session id or client address).
type RateLimitConfig struct {
	TurnsPerMin     int `yaml:"turns_per_min"`
	IngestsPerMin   int `yaml:"ingests_per_min"`
	SummariesPerMin int `yaml:"summaries_per_min"`
}

// Defaults fills zero fields.
func (c *RateLimitConfig) Defaults() {
	if c.TurnsPerMin <= 0 {
		c.TurnsPerMin = 60
	}
	if c.IngestsPerMin <= 0 {
		c.IngestsPerMin = 10
	}
	if c.SummariesPerMin <= 0 {
		c.SummariesPerMin = 5
	}
}

// RateLimiter implements sliding window rate limiting keyed by operation
// kind and caller.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]int
	window  time.Duration
	buckets map[bucketKey][]time.Time
	now     func() time.Time
}

type bucketKey struct {
	kind string
	key  string
}

// NewRateLimiter creates a rate limiter. Zero-value fields in cfg get defaults.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg.Defaults()
	return &RateLimiter{
		limits: map[string]int{
			KindTurn:    cfg.TurnsPerMin,
			KindIngest:  cfg.IngestsPerMin,
			KindSummary: cfg.SummariesPerMin,
		},
		window:  time.Minute,
		buckets: make(map[bucketKey][]time.Time),
		now:     time.Now,
	}
}

// Allow records one event of kind for key. It returns ErrRateLimited when
// the key already reached the limit inside the window. Unknown kinds are
// never limited.
func (rl *RateLimiter) Allow(kind, key string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, ok := rl.limits[kind]
	if !ok {
		return nil
	}

	now := rl.now()
	k := bucketKey{kind: kind, key: key}
	events := evict(rl.buckets[k], now.Add(-rl.window))
	if len(events) >= limit {
		rl.buckets[k] = events
		return ErrRateLimited
	}
	rl.buckets[k] = append(events, now)
	return nil
}

// Prune drops buckets with no events inside the window and returns how
// many were removed.
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	removed := 0
	for k, events := range rl.buckets {
		if len(evict(events, cutoff)) == 0 {
			delete(rl.buckets, k)
			removed++
		}
	}
	return removed
}

// evict removes events before cutoff. Events are chronologically ordered.
func evict(events []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(events) && events[i].Before(cutoff) {
		i++
	}
	return events[i:]
}
