package dialsvc

import (
	"context"
	"time"

	"voiceagent-platform/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces a per-agency cap on simultaneous outbound calls
// using the atomic acquire/release scripts in pkg/utils.
//
// The TTL bounds slot leakage if a release is lost (process crash between
// dial and the call-ended webhook).
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	ttl   time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) *RedisLimiter {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl}
}

func (l *RedisLimiter) key(agencyID string) string {
	return "dialcap:" + agencyID
}

func (l *RedisLimiter) Acquire(ctx context.Context, agencyID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, l.rdb, l.key(agencyID), l.limit, l.ttl)
}

func (l *RedisLimiter) Release(ctx context.Context, agencyID string) error {
	return utils.ReleaseConcurrencyCap(ctx, l.rdb, l.key(agencyID))
}
