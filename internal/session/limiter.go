package session

import (
	"time"

	"github.com/soyeahso/salesbot/internal/domain"
)

// AttemptLimiter counts failed password attempts per conversation inside a
// sliding window. A limiter with max <= 0 allows everything.
type AttemptLimiter struct {
	max      int
	window   time.Duration
	now      func() time.Time
	failures map[domain.ConversationKey][]time.Time
}

// NewAttemptLimiter creates a limiter allowing max failures per window.
func NewAttemptLimiter(max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		max:      max,
		window:   window,
		now:      time.Now,
		failures: make(map[domain.ConversationKey][]time.Time),
	}
}

// Allow reports whether key may attempt another login.
func (l *AttemptLimiter) Allow(key domain.ConversationKey) bool {
	if l.max <= 0 {
		return true
	}
	return len(l.prune(key)) < l.max
}

// Fail records a failed attempt on key.
func (l *AttemptLimiter) Fail(key domain.ConversationKey) {
	if l.max <= 0 {
		return
	}
	l.failures[key] = append(l.prune(key), l.now())
}

// Reset forgets failures on key, e.g. after a successful login.
func (l *AttemptLimiter) Reset(key domain.ConversationKey) {
	delete(l.failures, key)
}

// prune drops failures older than the window and returns what remains.
func (l *AttemptLimiter) prune(key domain.ConversationKey) []time.Time {
	cutoff := l.now().Add(-l.window)
	recent := l.failures[key]
	kept := recent[:0]
	for _, t := range recent {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, key)
		return nil
	}
	l.failures[key] = kept
	return kept
}
