package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// DateLocker serializes writers on one date ahead of the store transaction.
type DateLocker interface {
	Lock(ctx context.Context, date timeofday.Date) (release func(), err error)
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisDateLocker is a SET NX PX lock with an owner token per holder.
type RedisDateLocker struct {
	redis  *redis.Client
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
	logger *logging.Logger
}

// NewRedisDateLocker holds locks for ttl and waits up to wait to acquire one.
func NewRedisDateLocker(redisClient *redis.Client, ttl, wait time.Duration, logger *logging.Logger) *RedisDateLocker {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if wait < 0 {
		wait = 0
	}
	return &RedisDateLocker{
		redis:  redisClient,
		ttl:    ttl,
		wait:   wait,
		poll:   10 * time.Millisecond,
		logger: logger,
	}
}

func (l *RedisDateLocker) key(date timeofday.Date) string {
	return fmt.Sprintf("booking:lock:%s", date)
}

// Lock returns a transient error when the date stays locked past the wait budget.
func (l *RedisDateLocker) Lock(ctx context.Context, date timeofday.Date) (func(), error) {
	key := l.key(date)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		acquired, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, apperr.Transient("date lock unavailable", err)
		}
		if acquired {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, apperr.Transient("date is busy", nil)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}

	return func() {
		// Release must outlive a cancelled request context.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.redis, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("date lock release failed", "date", date, "error", err)
		}
	}, nil
}
