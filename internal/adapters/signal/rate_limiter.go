package signal

import (
	"sync"
	"time"

	"github.com/emoedu/live/internal/core"
)

// EmotionRateLimiter caps how often one connection may publish emotion
// readings, sliding-window per connection. The in-browser classifier
// samples every few seconds; anything much faster is a misbehaving
// client flooding the room.
type EmotionRateLimiter struct {
	mu       sync.Mutex
	history  map[core.ConnID][]time.Time
	limit    int
	interval time.Duration
}

func NewEmotionRateLimiter(limit int, interval time.Duration) *EmotionRateLimiter {
	return &EmotionRateLimiter{
		history:  make(map[core.ConnID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *EmotionRateLimiter) Allow(id core.ConnID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[id]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[id] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[id] = fresh
	return true
}

// Forget drops a closed connection's window.
func (rl *EmotionRateLimiter) Forget(id core.ConnID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, id)
}
