package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/markmentum-portal/internal/common"
)

// limiterIdle is how long an unused limiter is kept.
const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per member, falling back to the remote
// address when no member is attached.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	logger   *common.Logger
	onLimit  func()
	now      func() time.Time
}

// NewRateLimiter allows perMinute requests per key with the given burst.
// perMinute <= 0 disables limiting.
func NewRateLimiter(perMinute, burst int, logger *common.Logger) *RateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     limit,
		burst:    burst,
		logger:   logger,
		now:      time.Now,
	}
}

// OnLimit registers a callback run for every rejected request.
func (rl *RateLimiter) OnLimit(fn func()) {
	rl.onLimit = fn
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = rl.now()
	return e.limiter
}

// Wrap returns next guarded by the limiter. skip, when set, exempts
// requests from counting.
func (rl *RateLimiter) Wrap(next http.HandlerFunc, skip func(*http.Request) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if skip != nil && skip(r) {
			next(w, r)
			return
		}

		key := common.MemberID(r.Context())
		if key == "" {
			key = r.RemoteAddr
		}

		res := rl.getLimiter(key).ReserveN(rl.now(), 1)
		if delay := res.DelayFrom(rl.now()); !res.OK() || delay > 0 {
			res.Cancel()
			retry := int(math.Ceil(delay.Seconds()))
			if retry < 1 {
				retry = 1
			}
			rl.logger.Warn().
				Str("key", key).
				Str("path", r.URL.Path).
				Int("retry_after", retry).
				Msg("rate limit exceeded")
			if rl.onLimit != nil {
				rl.onLimit()
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "Too many requests. Please wait a moment and try again.", http.StatusTooManyRequests)
			return
		}

		next(w, r)
	}
}

// Cleanup removes limiters idle for longer than limiterIdle and returns
// how many were removed.
func (rl *RateLimiter) Cleanup() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-limiterIdle)
	removed := 0
	for k, e := range rl.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(rl.limiters, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
