package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage keeps carts under "cart:<session>" with a sliding TTL.
type RedisStorage struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{Client: client, TTL: ttl}
}

func key(session string) string {
	return "cart:" + session
}

func (r *RedisStorage) Load(ctx context.Context, session string) ([]Line, error) {
	raw, err := r.Client.Get(ctx, key(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", session, err)
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, fmt.Errorf("decode cart %s: %w", session, err)
	}
	return lines, nil
}

func (r *RedisStorage) Save(ctx context.Context, session string, lines []Line) error {
	if len(lines) == 0 {
		return r.Client.Del(ctx, key(session)).Err()
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key(session), raw, r.TTL).Err()
}
