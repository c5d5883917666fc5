package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const checkoutKeyPrefix = "checkout:"

var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

// RedisAdapter holds per-terminal checkout locks so two processes serving
// the same terminal cannot submit at once.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) Acquire(ctx context.Context, terminalID, token string) (bool, error) {
	ok, err := r.client.SetNX(ctx, checkoutKeyPrefix+terminalID, token, r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Release(ctx context.Context, terminalID, token string) error {
	return releaseLockScript.Run(ctx, r.client, []string{checkoutKeyPrefix + terminalID}, token).Err()
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
