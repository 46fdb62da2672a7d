package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const convKeyPrefix = "conv:"

// RedisStore keeps conversation history in Redis lists so multiple
// processes can share it. Each append trims the list to the cap and
// refreshes the TTL.
type RedisStore struct {
	client  *redis.Client
	maxMsgs int
	ttl     time.Duration
}

// NewRedisStore creates a Redis-backed conversation store.
func NewRedisStore(client *redis.Client, maxMsgs int, ttl time.Duration) *RedisStore {
	if maxMsgs <= 0 {
		maxMsgs = DefaultCap
	}
	return &RedisStore{client: client, maxMsgs: maxMsgs, ttl: ttl}
}

func convKey(id string) string {
	return convKeyPrefix + id
}

func (s *RedisStore) History(ctx context.Context, id string) ([]Turn, error) {
	vals, err := s.client.LRange(ctx, convKey(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", convKey(id), err)
	}

	turns := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var t Turn
		if err := json.Unmarshal([]byte(v), &t); err != nil {
			continue // skip malformed entries
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, id string, turns ...Turn) error {
	if len(turns) == 0 {
		return nil
	}
	key := convKey(id)

	pipe := s.client.Pipeline()
	for _, t := range turns {
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshaling turn: %w", err)
		}
		pipe.RPush(ctx, key, string(data))
	}
	pipe.LTrim(ctx, key, int64(-s.maxMsgs), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, id string) error {
	return s.client.Del(ctx, convKey(id)).Err()
}

func (s *RedisStore) ListIDs(ctx context.Context) ([]string, error) {
	var (
		cursor uint64
		ids    []string
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, convKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning conversation keys: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, convKeyPrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(ids)
	return ids, nil
}
