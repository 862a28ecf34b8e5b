package handler

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// hitScript trims the window, then either rejects with the oldest score or
// records the request. Running it as one script keeps check-and-add atomic
// across instances.
var hitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local member = ARGV[4]
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count >= max then
  local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
  return {0, tonumber(oldest[2])}
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, 0}
`)

// RedisWindowStore keeps sliding windows in Redis sorted sets so every
// instance behind a load balancer shares one budget per client.
type RedisWindowStore struct {
	client redis.UniversalClient
	prefix string
	seq    atomic.Uint64
}

// NewRedisWindowStore uses keys "<prefix><ip>".
func NewRedisWindowStore(client redis.UniversalClient, prefix string) *RedisWindowStore {
	return &RedisWindowStore{client: client, prefix: prefix}
}

func (s *RedisWindowStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, max int) (bool, time.Duration, error) {
	nowMs := now.UnixMilli()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), strconv.FormatUint(s.seq.Add(1), 36))
	res, err := hitScript.Run(ctx, s.client, []string{s.prefix + key},
		nowMs, window.Milliseconds(), max, member).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: redis: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("ratelimit: unexpected script reply %v", res)
	}
	if res[0] == 1 {
		return true, 0, nil
	}
	retry := time.Duration(res[1]+window.Milliseconds()-nowMs) * time.Millisecond
	return false, retry, nil
}
