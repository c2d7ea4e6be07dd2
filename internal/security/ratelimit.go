package security

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/smktahasus/psb_api/internal/config"
)

// RateLimiter tracks attempts per key in a fixed window. Counters increment
// first and are compared to the limit afterwards, so the limit-th attempt is
// still allowed and the one after it is refused.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptWindow

	maxAttempts int
	window      time.Duration

	now func() time.Time
}

type attemptWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		attempts:    make(map[string]*attemptWindow),
		maxAttempts: cfg.MaxAttempts,
		window:      cfg.Window,
		now:         time.Now,
	}
	go rl.cleanup()
	return rl
}

// Allow records an attempt for key and reports whether it is within the limit.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	info, exists := r.attempts[key]
	if !exists || now.After(info.resetAt) {
		info = &attemptWindow{resetAt: now.Add(r.window)}
		r.attempts[key] = info
	}
	info.count++
	return info.count <= r.maxAttempts
}

// Reset clears the counter for key, used after a successful login.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, key)
}

// RetryAfter returns how long until the window for key resets.
func (r *RateLimiter) RetryAfter(key string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, exists := r.attempts[key]
	if !exists {
		return 0
	}
	remaining := info.resetAt.Sub(r.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LimitMessage formats the refusal shown to the user, rounding the remaining
// window up to whole minutes.
func (r *RateLimiter) LimitMessage(key string) string {
	minutes := int(math.Ceil(r.RetryAfter(key).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Terlalu banyak percobaan. Coba lagi dalam %d menit.", minutes)
}

func (r *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		r.mu.Lock()
		now := r.now()
		for key, info := range r.attempts {
			if now.After(info.resetAt) {
				delete(r.attempts, key)
			}
		}
		r.mu.Unlock()
	}
}
