package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/domain"
)

// RedisCache keeps the active fleet list. Availability itself is never
// cached; the block store is the only source of truth for it.
type RedisCache struct {
	client   *redis.Client
	fleetTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, fleetTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		fleetTTL: fleetTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetVehicles returns nil without error on a cache miss.
func (c *RedisCache) GetVehicles(ctx context.Context, key string) ([]domain.Vehicle, error) {
	data, err := c.client.Get(ctx, fleetKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var vehicles []domain.Vehicle
	if err := json.Unmarshal(data, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (c *RedisCache) SetVehicles(ctx context.Context, key string, vehicles []domain.Vehicle) error {
	payload, err := json.Marshal(vehicles)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, fleetKey(key), payload, c.fleetTTL).Err()
}

func fleetKey(key string) string {
	return "cache:fleet:" + key
}
