package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
	"visit-route-engine/internal/domain"
	"visit-route-engine/internal/platform/obs"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "route:distance"

// RedisDistanceCache is a DistanceStore shared across service instances.
// Entries expire after the configured TTL since traffic estimates age.
type RedisDistanceCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisDistanceCache(client redis.UniversalClient, ttl time.Duration) *RedisDistanceCache {
	return &RedisDistanceCache{client: client, ttl: ttl}
}

type redisEntry struct {
	DistanceMeters         float64 `json:"d"`
	DurationSeconds        float64 `json:"s"`
	DurationTrafficSeconds float64 `json:"t,omitempty"`
}

func redisKey(origin, destination string, bucket int64) string {
	return redisKeyPrefix + ":" + strconv.FormatInt(bucket, 10) + ":" + origin + "|" + destination
}

// Fetch cached results for one origin and multiple destinations.
func (r *RedisDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
	bucket int64,
) (_ map[string]domain.DistanceEntry, err error) {
	defer obs.Time(ctx, "distance.redis.GetMany")(&err)

	if r.client == nil {
		return nil, errors.New("redis distance cache: client is nil")
	}

	uniq := uniqueNonEmpty(destinations)
	if origin == "" || len(uniq) == 0 {
		return map[string]domain.DistanceEntry{}, nil
	}

	keys := make([]string, len(uniq))
	for i, d := range uniq {
		keys[i] = redisKey(origin, d, bucket)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get redis distance cache: mget: %w", err)
	}

	out := make(map[string]domain.DistanceEntry, len(uniq))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var e redisEntry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("get redis distance cache: decode %q: %w", keys[i], err)
		}
		out[uniq[i]] = domain.DistanceEntry{
			DistanceMeters:         e.DistanceMeters,
			DurationSeconds:        e.DurationSeconds,
			DurationTrafficSeconds: e.DurationTrafficSeconds,
			Source:                 domain.SourceCache,
		}
	}
	return out, nil
}

// Store many results for a single origin in one pipeline.
func (r *RedisDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	bucket int64,
	results map[string]domain.DistanceEntry,
) error {
	if r.client == nil {
		return errors.New("redis distance cache: client is nil")
	}
	if origin == "" {
		return errors.New("insert redis distance cache: origin must not be empty")
	}
	if len(results) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for dest, e := range results {
		raw, err := json.Marshal(redisEntry{
			DistanceMeters:         e.DistanceMeters,
			DurationSeconds:        e.DurationSeconds,
			DurationTrafficSeconds: e.DurationTrafficSeconds,
		})
		if err != nil {
			return fmt.Errorf("insert redis distance cache: encode: %w", err)
		}
		pipe.Set(ctx, redisKey(origin, dest, bucket), raw, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert redis distance cache: exec: %w", err)
	}
	return nil
}
