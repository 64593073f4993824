package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/paklift/service-ride/internal/domain/geo"
)

// Cache stores resolved coordinates by place name.
type Cache interface {
	// Get returns the cached coordinate and whether it was found.
	Get(ctx context.Context, placeName string) (geo.Coordinate, bool, error)
	Set(ctx context.Context, placeName string, coords geo.Coordinate) error
}

// RedisCache is a Cache backed by Redis with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new RedisCache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get reads a cached coordinate. A missing key is not an error.
func (c *RedisCache) Get(ctx context.Context, placeName string) (geo.Coordinate, bool, error) {
	val, err := c.client.Get(ctx, cacheKey(placeName)).Bytes()
	if err == redis.Nil {
		return geo.Coordinate{}, false, nil
	}
	if err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("failed to read geocode cache: %w", err)
	}

	var coords geo.Coordinate
	if err := json.Unmarshal(val, &coords); err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("failed to decode cached coordinates: %w", err)
	}
	return coords, true, nil
}

// Set stores a coordinate for the configured TTL.
func (c *RedisCache) Set(ctx context.Context, placeName string, coords geo.Coordinate) error {
	data, err := json.Marshal(coords)
	if err != nil {
		return fmt.Errorf("failed to encode coordinates: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(placeName), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write geocode cache: %w", err)
	}
	return nil
}

// cacheKey normalizes the place name so "Lahore" and " lahore" share an entry.
func cacheKey(placeName string) string {
	return "geocoding:" + strings.ToLower(strings.TrimSpace(placeName))
}
