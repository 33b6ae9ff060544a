package persist

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/l1jgo/eventcopy/internal/config"
	"github.com/l1jgo/eventcopy/internal/world"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps saved copy lists in one redis hash: field = map id,
// value = JSON array of copy params.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client, key: cfg.KeyPrefix + "copies"}, nil
}

func (s *RedisStore) SaveCopies(ctx context.Context, mapID int32, list []world.CopyParams) error {
	field := strconv.Itoa(int(mapID))
	if len(list) == 0 {
		if err := s.client.HDel(ctx, s.key, field).Err(); err != nil {
			return fmt.Errorf("redis delete map %d: %w", mapID, err)
		}
		return nil
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode map %d: %w", mapID, err)
	}
	if err := s.client.HSet(ctx, s.key, field, raw).Err(); err != nil {
		return fmt.Errorf("redis save map %d: %w", mapID, err)
	}
	return nil
}

func (s *RedisStore) LoadAll(ctx context.Context) (map[int32][]world.CopyParams, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis load: %w", err)
	}
	out := make(map[int32][]world.CopyParams, len(fields))
	for field, raw := range fields {
		id, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("redis field %q: %w", field, err)
		}
		var list []world.CopyParams
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("decode map %d: %w", id, err)
		}
		out[int32(id)] = list
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
