// Package ratelimit implements the sliding-window admission gate: per-key
// event timestamps held in a sorted set in the shared fast store, trimmed
// and counted atomically via a single Lua script so concurrent callers on
// the same key can't race a check-then-insert.
package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindowScript trims expired entries, inserts the current event,
// refreshes the key TTL, and returns the count including that event — all
// server-side so the whole sequence is atomic from the caller's perspective.
const slidingWindowScript = `
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[4])
return redis.call('ZCARD', KEYS[1])
`

// Logger is the minimal interface the limiter needs to report degraded mode.
type Logger interface {
	Warn(msg string, kv ...any)
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}

// RejectionCounter is satisfied by internal/obs.Collectors; kept minimal so
// this package doesn't need to import the metrics package directly.
type RejectionCounter interface {
	Inc(method string)
}

type Limiter struct {
	client redis.UniversalClient
	script *redis.Script
	log    Logger
}

func New(client redis.UniversalClient, log Logger) *Limiter {
	if log == nil {
		log = nopLogger{}
	}
	return &Limiter{
		client: client,
		script: redis.NewScript(slidingWindowScript),
		log:    log,
	}
}

// Allow reports whether an event tagged with key is admitted under limit
// events per window. On store unreachability it fails open (admits the
// request) and logs — rate limiting is an optimisation, not a correctness
// boundary.
func (l *Limiter) Allow(ctx context.Context, key string, limit int, window time.Duration) bool {
	now := time.Now()
	nonce, err := uniqueMember(now)
	if err != nil {
		l.log.Warn("ratelimit: nonce generation failed, failing open", "error", err)
		return true
	}

	cutoff := now.Add(-window).UnixMilli()
	score := now.UnixMilli()
	ttlMillis := window.Milliseconds()
	if ttlMillis <= 0 {
		ttlMillis = 1
	}

	redisKey := "ratelimit:{" + key + "}"
	res, err := l.script.Run(ctx, l.client, []string{redisKey}, cutoff, score, nonce, ttlMillis).Result()
	if err != nil {
		l.log.Warn("ratelimit: store unreachable, failing open", "key", key, "error", err)
		return true
	}

	count, ok := res.(int64)
	if !ok {
		l.log.Warn("ratelimit: unexpected script result type, failing open", "key", key)
		return true
	}
	return count < int64(limit)
}

func uniqueMember(now time.Time) (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return now.Format(time.RFC3339Nano) + "-" + hex.EncodeToString(buf[:]), nil
}
