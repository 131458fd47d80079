package auth

import "time"

// Bucket counts failed login attempts of one session within a window.
type Bucket struct {
	Count   int
	ResetAt time.Time
}

// RateLimiter applies a fixed-window limit to buckets. Only elapsed time
// empties a bucket; successful logins do not. Callers hold the lock that
// guards the bucket.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: maxAttempts, window: window, now: time.Now}
}

func (r *RateLimiter) refresh(b *Bucket) {
	now := r.now()
	if b.ResetAt.IsZero() || now.After(b.ResetAt) {
		b.Count = 0
		b.ResetAt = now.Add(r.window)
	}
}

// Reserve takes an attempt slot and reports whether one was free. Every
// attempt starts as a failure; Release gives the slot back for outcomes
// that do not count.
func (r *RateLimiter) Reserve(b *Bucket) bool {
	r.refresh(b)
	if b.Count >= r.max {
		return false
	}
	b.Count++
	return true
}

// Release returns a slot taken by Reserve.
func (r *RateLimiter) Release(b *Bucket) {
	if b.Count > 0 {
		b.Count--
	}
}
