// README: Broadcast store backed by Redis: TTL'd JSON keys indexed by a sorted set scored on expiry.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"campuspool/internal/types"
)

const (
	expiryIndexKey = "broadcast:by_expiry"
	itemKeyPrefix  = "broadcast:item:%s"
	// Item keys outlive their expiry by keyGrace; reads filter on the index score.
	keyGrace = time.Minute
)

type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redis *redis.Client) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Save(ctx context.Context, b *Broadcast) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	ttl := b.ExpiresAt.Sub(b.CreatedAt) + keyGrace
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, itemKey(b.ID), payload, ttl)
		pipe.ZAdd(ctx, expiryIndexKey, redis.Z{Score: float64(b.ExpiresAt.UnixMilli()), Member: string(b.ID)})
		return nil
	})
	return err
}

func (s *RedisStore) ListActive(ctx context.Context, now time.Time) ([]*Broadcast, error) {
	ids, err := s.redis.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "(" + strconv.FormatInt(now.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = itemKey(types.ID(id))
	}
	vals, err := s.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Broadcast, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var b Broadcast
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			return nil, fmt.Errorf("decode broadcast %s: %w", ids[i], err)
		}
		out = append(out, &b)
	}
	return out, nil
}

func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	upTo := strconv.FormatInt(now.UnixMilli(), 10)
	ids, err := s.redis.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{Min: "-inf", Max: upTo}).Result()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = itemKey(types.ID(id))
		members[i] = id
	}
	var removed *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		removed = pipe.ZRem(ctx, expiryIndexKey, members...)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(removed.Val()), nil
}

func itemKey(id types.ID) string {
	return fmt.Sprintf(itemKeyPrefix, string(id))
}
