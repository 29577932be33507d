package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limit is a request budget over a sliding window.
type Limit struct {
	Max    int
	Window time.Duration
}

// RatePolicy applies a Limit to the requests it matches. A nil Match matches
// every request.
type RatePolicy struct {
	Name  string
	Match func(*http.Request) bool
	Limit Limit
}

// RateLimitConfig configures RateLimit. The first matching policy decides;
// requests matched by none pass unlimited.
type RateLimitConfig struct {
	Policies []RatePolicy
	// Key identifies the caller. ClientIP when nil.
	Key func(*http.Request) string
	// Skip exempts requests before any policy is consulted.
	Skip func(*http.Request) bool
}

// counter approximates a sliding window from the current fixed window and a
// share of the previous one.
type counter struct {
	start      time.Time
	prev, curr float64
}

func (c *counter) advance(now time.Time, window time.Duration) {
	switch elapsed := now.Sub(c.start); {
	case elapsed >= 2*window:
		c.prev, c.curr = 0, 0
		c.start = now.Truncate(window)
	case elapsed >= window:
		c.prev, c.curr = c.curr, 0
		c.start = c.start.Add(window)
	}
}

func (c *counter) weight(now time.Time, window time.Duration) float64 {
	overlap := 1 - float64(now.Sub(c.start))/float64(window)
	return c.prev*max(overlap, 0) + c.curr
}

type bucket struct {
	policy string
	caller string
}

type limiter struct {
	cfg RateLimitConfig

	mu       sync.Mutex
	counters map[bucket]*counter
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.Key == nil {
		cfg.Key = ClientIP
	}
	return &limiter{cfg: cfg, counters: make(map[bucket]*counter)}
}

func (l *limiter) policyFor(r *http.Request) (RatePolicy, bool) {
	i := slices.IndexFunc(l.cfg.Policies, func(p RatePolicy) bool {
		return p.Match == nil || p.Match(r)
	})
	if i < 0 {
		return RatePolicy{}, false
	}
	return l.cfg.Policies[i], true
}

// take spends one request from b if the budget allows it.
func (l *limiter) take(b bucket, lim Limit, now time.Time) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, found := l.counters[b]
	if !found {
		c = &counter{start: now.Truncate(lim.Window)}
		l.counters[b] = c
	}
	c.advance(now, lim.Window)
	reset = c.start.Add(lim.Window)

	used := c.weight(now, lim.Window)
	if used >= float64(lim.Max) {
		return 0, reset, false
	}
	c.curr++
	return max(int(float64(lim.Max)-used-1), 0), reset, true
}

// evict drops counters idle for two of their windows.
func (l *limiter) evict(now time.Time) {
	windows := make(map[string]time.Duration, len(l.cfg.Policies))
	for _, p := range l.cfg.Policies {
		windows[p.Name] = p.Limit.Window
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for b, c := range l.counters {
		if now.Sub(c.start) >= 2*windows[b.policy] {
			delete(l.counters, b)
		}
	}
}

func (l *limiter) longestWindow() time.Duration {
	var longest time.Duration
	for _, p := range l.cfg.Policies {
		longest = max(longest, p.Limit.Window)
	}
	return longest
}

// RateLimit answers 429 once a caller exhausts the budget of the policy
// matching its request. Every limited route reports X-RateLimit-* headers.
// Counters are evicted in the background until ctx ends.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	if every := 2 * l.longestWindow(); every > 0 {
		go func() {
			ticker := time.NewTicker(every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case now := <-ticker.C:
					l.evict(now)
				}
			}
		}()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.cfg.Skip != nil && l.cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}
			policy, ok := l.policyFor(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			remaining, reset, allowed := l.take(bucket{policy: policy.Name, caller: l.cfg.Key(r)}, policy.Limit, now)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(policy.Limit.Max))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !allowed {
				wait := max(reset.Sub(now), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
