package threshold

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// HashGetter is the subset of the redis client used by RedisStore.
type HashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// RedisStore reads thresholds from hashes at <prefix><lower-case symbol>,
// field "threshold".
type RedisStore struct {
	client HashGetter
	prefix string
}

func NewRedisStore(client HashGetter, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Lookup(ctx context.Context, symbol string) (Entry, error) {
	key := s.prefix + strings.ToLower(symbol)

	raw, err := s.client.HGet(ctx, key, "threshold").Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("hget %s: %w", key, err)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %s threshold %q", ErrMalformed, key, raw)
	}

	return Entry{Symbol: symbol, Threshold: v}, nil
}
