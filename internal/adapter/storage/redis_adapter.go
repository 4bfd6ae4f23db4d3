package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/plug-checkout/internal/core/domain"
)

const (
	modeKeyPrefix     = "pref:last_used_mode:"
	idempotencyKeyTTL = 24 * time.Hour
)

// saveModeScript writes the mode and returns the previous value so a switch
// can be logged without a second round trip.
var saveModeScript = redis.NewScript(`
local key = KEYS[1]
local mode = ARGV[1]

local previous = redis.call('GET', key)
redis.call('SET', key, mode)

if not previous then
	return ''
end
return previous
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) LastUsedMode(ctx context.Context, deviceID string) (domain.Mode, bool, error) {
	val, err := r.client.Get(ctx, modeKeyPrefix+deviceID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	mode, ok := domain.ParseMode(val)
	if !ok {
		return "", false, nil
	}
	return mode, true, nil
}

// SaveLastUsedMode stores mode and returns the mode it replaced, if any.
func (r *RedisAdapter) SaveLastUsedMode(ctx context.Context, deviceID string, mode domain.Mode) (domain.Mode, error) {
	prev, err := saveModeScript.Run(ctx, r.client, []string{modeKeyPrefix + deviceID}, string(mode)).Text()
	if err != nil {
		return "", err
	}
	return domain.Mode(prev), nil
}
