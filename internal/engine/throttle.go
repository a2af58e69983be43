// Package engine holds the pieces that drive outbound batches: the campaign
// runner, the per-sender throttle and the engagement signal counters.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle caps sends per second per sending account using a Redis sliding
// window. A burst of mailbox sends looks like spam to workspace providers;
// the daily quota in the pool does nothing against bursts, this does.
// A sorted set per account holds one member per send; a Lua script atomically
// cleans expired entries, checks the count and admits or denies.
type Throttle struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
}

// 1. Drop entries older than the window
// 2. Count what remains
// 3. Under the limit: record this send and return 1 (allowed)
// 4. At the limit: return 0 (denied)
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, window / 1000 + 1)
    return 1
else
    return 0
end
`)

func NewThrottle(redisClient *redis.Client, logger *slog.Logger) *Throttle {
	return &Throttle{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
	}
}

func throttleKey(account string) string {
	return fmt.Sprintf("send_rate:%s", account)
}

// Allow checks whether a send through this account is within the per-second
// cap. Returns true if allowed, false if the account should back off.
func (t *Throttle) Allow(ctx context.Context, account string, limit int) bool {
	if limit <= 0 {
		return true // No throttle configured
	}

	key := throttleKey(account)
	now := time.Now().UnixMilli()
	window := int64(1000) // 1 second window in milliseconds
	member := fmt.Sprintf("%d:%d", now, time.Now().UnixNano()%10000) // unique member

	result, err := t.script.Run(ctx, t.redisClient, []string{key},
		now, window, limit, member,
	).Int64()
	if err != nil {
		t.logger.Error("throttle script failed", "error", err, "account", account)
		return true // Fail open — allow the send if Redis fails
	}

	if result == 0 {
		t.logger.Debug("send throttled",
			"account", account,
			"limit", limit,
		)
		return false
	}

	return true
}

// Wait blocks until Allow admits a send for the account or the context ends.
// Used by the campaign runner between batch sends.
func (t *Throttle) Wait(ctx context.Context, account string, limit int) error {
	for !t.Allow(ctx, account, limit) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	return nil
}
