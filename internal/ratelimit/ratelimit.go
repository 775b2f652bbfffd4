// Package ratelimit bounds how often one-time verification and reset codes
// can be requested per email address. The counter lives in Redis with a TTL
// rather than in process memory, so the limit survives restarts and holds
// across instances.
package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript atomically increments the counter and sets its expiry on
// first increment.
const allowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

// evaler is the slice of the Redis client the limiter needs.
type evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Limiter allows at most max events per key per window.
type Limiter struct {
	client evaler
	window time.Duration
	max    int
	prefix string
}

// New creates a Redis-backed limiter. Returns nil when client is nil; a nil
// *Limiter allows everything, so callers need no nil checks of their own.
func New(client *redis.Client, window time.Duration, max int) *Limiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &Limiter{
		client: client,
		window: window,
		max:    max,
		prefix: "code:rl:",
	}
}

// Allow reports whether an event for key is within the limit. Redis errors
// fail open: an unavailable limiter must not lock users out of verification.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	count, err := l.client.Eval(ctx, allowScript, []string{l.prefix + key}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
