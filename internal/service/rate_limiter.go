package service

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	rkeys "github.com/maeum-coach/coaching-server-go/internal/redis"
	"github.com/maeum-coach/coaching-server-go/internal/util"
)

// admitScript trims the user's sorted set to the window and records the
// message only while the set holds fewer than limit entries.
// KEYS[1] set, ARGV now_ms, window_ms, limit, member. Returns 1 or 0.
var admitScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
if redis.call('ZCARD', KEYS[1]) >= tonumber(ARGV[3]) then
    return 0
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return 1
`)

// RateLimiter caps how many messages one user may send per window. It fails
// open: when Redis is unreachable every message is allowed.
type RateLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter allows limit messages per user per minute. A non-positive
// limit disables limiting.
func NewRateLimiter(client redis.UniversalClient, limit int) *RateLimiter {
	return &RateLimiter{client: client, limit: limit, window: time.Minute, now: time.Now}
}

func (rl *RateLimiter) Allow(ctx context.Context, userID string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}

	now := rl.now()
	admitted, err := admitScript.Run(ctx, rl.client,
		[]string{rkeys.RateLimitKey(userID)},
		now.UnixMilli(),
		rl.window.Milliseconds(),
		rl.limit,
		strconv.FormatInt(now.UnixNano(), 36),
	).Int()
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("rate limit check failed, allowing message")
		return true
	}

	if admitted == 0 {
		log.Ctx(ctx).Warn().
			Str("user", util.MaskUserID(userID)).
			Int("limit", rl.limit).
			Dur("window", rl.window).
			Msg("user rate limit exceeded")
		return false
	}
	return true
}
