package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/clinic-scheduler/internal/timeofday"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// SnapshotCache caches the live appointments of a date in Redis for slot
// listing. Cache failures fall back to the store; they never fail a read.
type SnapshotCache struct {
	redis  *redis.Client
	store  Reader
	ttl    time.Duration
	logger *logging.Logger
}

// NewSnapshotCache wraps store. A nil redis client disables caching.
func NewSnapshotCache(redisClient *redis.Client, store Reader, ttl time.Duration, logger *logging.Logger) *SnapshotCache {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SnapshotCache{
		redis:  redisClient,
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

// fillScript stores the snapshot only if no write bumped the date's
// generation since the reader sampled it.
var fillScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2])
if current == false then
	current = "0"
end
if current ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

const generationTTL = 24 * time.Hour

func (c *SnapshotCache) key(date timeofday.Date) string {
	return fmt.Sprintf("appointments:snapshot:%s", date)
}

func (c *SnapshotCache) generationKey(date timeofday.Date) string {
	return fmt.Sprintf("appointments:snapshot:gen:%s", date)
}

// Day returns every live appointment on date.
func (c *SnapshotCache) Day(ctx context.Context, date timeofday.Date) ([]Appointment, error) {
	if c.redis == nil {
		return c.store.List(ctx, LiveOn(date))
	}

	data, err := c.redis.Get(ctx, c.key(date)).Bytes()
	switch {
	case err == nil:
		var list []Appointment
		if err := json.Unmarshal(data, &list); err == nil {
			return list, nil
		}
		c.logger.Warn("discarding unreadable appointment snapshot", "date", date)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("appointment snapshot read failed", "date", date, "error", err)
	}

	gen, err := c.redis.Get(ctx, c.generationKey(date)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		gen = "0"
	case err != nil:
		c.logger.Warn("appointment snapshot generation read failed", "date", date, "error", err)
		return c.store.List(ctx, LiveOn(date))
	}

	list, err := c.store.List(ctx, LiveOn(date))
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return list, nil
	}
	keys := []string{c.key(date), c.generationKey(date)}
	if err := fillScript.Run(ctx, c.redis, keys, gen, payload, c.ttl.Milliseconds()).Err(); err != nil {
		c.logger.Warn("appointment snapshot write failed", "date", date, "error", err)
	}
	return list, nil
}

// Invalidate drops the snapshots of the given dates and bumps their
// generation so in-flight reads do not store what they listed.
func (c *SnapshotCache) Invalidate(ctx context.Context, dates ...timeofday.Date) {
	if c == nil || c.redis == nil || len(dates) == 0 {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, d := range dates {
			if d == "" {
				continue
			}
			pipe.Del(ctx, c.key(d))
			pipe.Incr(ctx, c.generationKey(d))
			pipe.Expire(ctx, c.generationKey(d), generationTTL)
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("appointment snapshot invalidation failed", "dates", dates, "error", err)
	}
}
