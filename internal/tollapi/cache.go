package tollapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/tollbatch/internal/core"
)

const cacheKeyPrefix = "tollbatch:lookup:"

// DefaultCacheTTL is how long a cached quote stays valid.
const DefaultCacheTTL = 24 * time.Hour

// Cache memoizes toll quotes in Redis. Errors talking to Redis are logged
// and the lookup falls through to the wrapped function.
type Cache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewCache creates a Cache. A non-positive ttl uses DefaultCacheTTL.
func NewCache(rdb redis.Cmdable, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Wrap returns a LookupFunc that consults the cache before calling next.
// Only successful lookups are stored.
func (c *Cache) Wrap(next core.LookupFunc) core.LookupFunc {
	return func(ctx context.Context, req core.TripRequest) (core.LookupResult, error) {
		key := CacheKey(req)

		raw, err := c.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var res core.LookupResult
			if jerr := json.Unmarshal(raw, &res); jerr == nil {
				return res, nil
			}
			slog.Warn("discarding corrupt cache entry", "key", key)
		case errors.Is(err, redis.Nil):
		default:
			slog.Warn("cache read failed", "key", key, "error", err)
		}

		res, err := next(ctx, req)
		if err != nil {
			return res, err
		}

		if b, jerr := json.Marshal(res); jerr == nil {
			if serr := c.rdb.Set(ctx, key, b, c.ttl).Err(); serr != nil {
				slog.Warn("cache write failed", "key", key, "error", serr)
			}
		}
		return res, nil
	}
}

// CacheKey derives a stable key from the normalized trip.
func CacheKey(req core.TripRequest) string {
	parts := []string{
		strings.ToLower(CorrectCity(strings.TrimSpace(req.Origin))),
		strings.ToLower(CorrectCity(strings.TrimSpace(req.Destination))),
		req.JourneyType,
	}
	for _, wp := range req.Waypoints {
		parts = append(parts, strings.ToLower(CorrectCity(strings.TrimSpace(wp))))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
